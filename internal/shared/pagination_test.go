package shared

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseListParamsDefaults(t *testing.T) {
	p := ParseListParams(url.Values{}, "name")
	require.Equal(t, 1, p.Page)
	require.Equal(t, DefaultPageSize, p.PageSize)
	require.Equal(t, "name", p.Ordering)

	limit, offset := p.LimitOffset()
	require.Equal(t, DefaultPageSize, limit)
	require.Zero(t, offset)
}

func TestParseListParamsOverridesAndClamps(t *testing.T) {
	q := url.Values{
		"page":      {"3"},
		"page_size": {"500"},
		"search":    {"  acme  "},
		"ordering":  {"-created_at"},
	}
	p := ParseListParams(q, "name")
	require.Equal(t, 3, p.Page)
	require.Equal(t, MaxPageSize, p.PageSize)
	require.Equal(t, "acme", p.Search)
	require.Equal(t, "-created_at", p.Ordering)

	_, offset := p.LimitOffset()
	require.Equal(t, 2*MaxPageSize, offset)
}

func TestOrderClauseAllowList(t *testing.T) {
	allowed := map[string]string{"name": "c.name", "created_at": "c.created_at"}
	require.Equal(t, "c.name ASC", OrderClause("name", allowed, "c.id ASC"))
	require.Equal(t, "c.created_at DESC", OrderClause("-created_at", allowed, "c.id ASC"))
	require.Equal(t, "c.id ASC", OrderClause("drop table", allowed, "c.id ASC"))
}

func TestNewEnvelopeLinks(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/customers?page=2&search=acme", nil)
	params := ListParams{Page: 2, PageSize: 10}

	env := NewEnvelope(req, params, 35, []string{})
	require.Equal(t, 35, env.Count)
	require.NotNil(t, env.Next)
	require.Contains(t, *env.Next, "page=3")
	require.NotNil(t, env.Previous)
	require.Contains(t, *env.Previous, "page=1")
	require.Contains(t, *env.Next, "search=acme")

	last := NewEnvelope(req, ListParams{Page: 4, PageSize: 10}, 35, []string{})
	require.Nil(t, last.Next)

	first := NewEnvelope(req, ListParams{Page: 1, PageSize: 10}, 5, []string{})
	require.Nil(t, first.Next)
	require.Nil(t, first.Previous)
}
