package transactions

import (
	"errors"
	"sync"

	"github.com/lumina-dist/lumina/internal/transactions/draft"
)

// ErrNoDraft means the account has no draft in progress.
var ErrNoDraft = errors.New("transactions: no draft in progress")

// DraftStore keeps in-progress drafts in memory, one per account. Drafts are
// form state, not ledger state; losing one on restart costs a re-entry, not
// data.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[int64]*draft.Draft
}

// NewDraftStore constructs an empty store.
func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: map[int64]*draft.Draft{}}
}

// Put replaces the account's draft.
func (s *DraftStore) Put(accountID int64, d *draft.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[accountID] = d
}

// Delete discards the account's draft.
func (s *DraftStore) Delete(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, accountID)
}

// With runs fn while holding the store lock, so a read-modify-write on one
// draft is atomic against concurrent requests from the same account.
func (s *DraftStore) With(accountID int64, fn func(*draft.Draft) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.drafts[accountID]
	if d == nil {
		return ErrNoDraft
	}
	return fn(d)
}
