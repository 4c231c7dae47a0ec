package ledger

import (
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// TransactionFilter narrows a transaction listing. Zero fields match
// everything; From and To are inclusive dates.
type TransactionFilter struct {
	Search    string
	Category  string
	Type      domain.TransactionType
	AccountID string
	CardID    string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Matches reports whether tx passes every set criterion.
func (f TransactionFilter) Matches(tx *domain.Transaction) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(tx.Description), strings.ToLower(strings.TrimSpace(f.Search))) {
		return false
	}
	if f.Category != "" && normalizeCategory(f.Category) != normalizeCategory(tx.Category) {
		return false
	}
	if f.Type != "" && f.Type != tx.Type {
		return false
	}
	if f.AccountID != "" && f.AccountID != tx.AccountID {
		return false
	}
	if f.CardID != "" && f.CardID != tx.CardID {
		return false
	}
	if f.From != nil && tx.Date.Before(domain.DateOnly(*f.From)) {
		return false
	}
	if f.To != nil && tx.Date.After(domain.DateOnly(*f.To)) {
		return false
	}
	return true
}

// Apply returns the transactions matching the filter, keeping their order.
func (f TransactionFilter) Apply(txs []*domain.Transaction) []*domain.Transaction {
	var out []*domain.Transaction
	for _, tx := range txs {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// Page cuts txs to the filter's Offset and Limit. A Limit of zero or less
// returns everything after Offset.
func (f TransactionFilter) Page(txs []*domain.Transaction) []*domain.Transaction {
	if f.Offset > 0 {
		if f.Offset >= len(txs) {
			return nil
		}
		txs = txs[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(txs) {
		txs = txs[:f.Limit]
	}
	return txs
}
