package shared

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize matches the page size the dashboard tables render.
const DefaultPageSize = 10

// MaxPageSize bounds the page_size override.
const MaxPageSize = 100

// ListParams carries the common list query parameters every collection
// endpoint accepts: page, page_size, search, ordering.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Ordering string
}

// ParseListParams reads pagination/search/ordering parameters from the query
// string. Invalid numbers fall back to defaults rather than erroring.
func ParseListParams(q url.Values, defaultOrdering string) ListParams {
	p := ListParams{Page: 1, PageSize: DefaultPageSize, Ordering: defaultOrdering}
	if raw := q.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.Page = n
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			if n > MaxPageSize {
				n = MaxPageSize
			}
			p.PageSize = n
		}
	}
	p.Search = strings.TrimSpace(q.Get("search"))
	if raw := strings.TrimSpace(q.Get("ordering")); raw != "" {
		p.Ordering = raw
	}
	return p
}

// LimitOffset converts page numbers to SQL limit/offset.
func (p ListParams) LimitOffset() (limit, offset int) {
	return p.PageSize, (p.Page - 1) * p.PageSize
}

// OrderClause maps an ordering parameter (optionally prefixed with "-" for
// descending) through an allow-list of column expressions. Unknown keys fall
// back to the provided default clause, so callers never interpolate raw user
// input into SQL.
func OrderClause(ordering string, allowed map[string]string, fallback string) string {
	key := ordering
	desc := false
	if strings.HasPrefix(key, "-") {
		desc = true
		key = key[1:]
	}
	col, ok := allowed[key]
	if !ok {
		return fallback
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

// Envelope is the wire shape of every paginated listing:
// {count, next, previous, results}.
type Envelope struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// NewEnvelope builds the pagination envelope, deriving next/previous links
// from the request URL by rewriting its page parameter.
func NewEnvelope(r *http.Request, params ListParams, count int, results any) Envelope {
	env := Envelope{Count: count, Results: results}
	if params.Page > 1 {
		env.Previous = pageLink(r, params.Page-1)
	}
	if params.Page*params.PageSize < count {
		env.Next = pageLink(r, params.Page+1)
	}
	return env
}

func pageLink(r *http.Request, page int) *string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	link := u.String()
	if r.Host != "" && !u.IsAbs() {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		link = fmt.Sprintf("%s://%s%s", scheme, r.Host, link)
	}
	return &link
}
