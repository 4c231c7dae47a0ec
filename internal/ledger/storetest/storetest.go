// Package storetest holds the behaviour every ledger.Store backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) ledger.Store

// Run exercises a store implementation.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s ledger.Store)
	}{
		{"EmptyOwner", testEmptyOwner},
		{"RoundTrip", testRoundTrip},
		{"FailedUpdateCommitsNothing", testFailedUpdate},
		{"Removals", testRemovals},
		{"OrderSurvivesReload", testOrder},
		{"VersionAndOwners", testVersionAndOwners},
		{"OwnerIsolation", testOwnerIsolation},
		{"ViewDiscardsChanges", testViewDiscards},
		{"ConcurrentUpdatesSerialise", testConcurrentUpdates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

var ts = time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)

func load(t *testing.T, s ledger.Store, owner string) *domain.Ledger {
	t.Helper()
	var out *domain.Ledger
	require.NoError(t, s.View(context.Background(), owner, func(l *domain.Ledger) error {
		out = l.Clone()
		return nil
	}))
	return out
}

func testEmptyOwner(t *testing.T, s ledger.Store) {
	l := load(t, s, "nobody")
	assert.Equal(t, "nobody", l.Owner)
	assert.Empty(t, l.Accounts())
	assert.Empty(t, l.Cards())
	assert.Empty(t, l.Goals())
	assert.Empty(t, l.Transactions())
}

func testRoundTrip(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	deadline := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	err := s.Update(ctx, "alice", func(l *domain.Ledger) error {
		l.PutAccount(&domain.Account{
			ID: "a1", Institution: "Nubank", Kind: domain.AccountChecking,
			Balance: decimal.RequireFromString("-12.34"), CreatedAt: ts, UpdatedAt: ts,
		})
		l.PutCard(&domain.CreditCard{
			ID: "c1", Issuer: "Itau", Brand: "Visa", AvailableLimit: decimal.RequireFromString("5000.50"),
			DueDay: 5, ClosingOffset: 10, ClosingDay: 25, CreatedAt: ts, UpdatedAt: ts,
		})
		l.PutGoal(&domain.Goal{
			ID: "g1", Name: "Trip", TargetAmount: decimal.NewFromInt(3000), CurrentAmount: decimal.RequireFromString("120.10"),
			Deadline: &deadline, Icon: "plane", CreatedAt: ts, UpdatedAt: ts,
		})
		l.PutTransaction(&domain.Transaction{
			ID: "t1", Type: domain.Credit, Date: ts.Truncate(24 * time.Hour), Description: "TV (1/2)",
			Amount: decimal.RequireFromString("399.99"), Category: "Electronics", CardID: "c1",
			Installment: &domain.Installment{Number: 1, Total: 2, PurchaseID: "p1"},
			CreatedAt: ts, UpdatedAt: ts,
		})
		l.PutTransaction(&domain.Transaction{
			ID: "t2", Type: domain.Receive, Date: ts.Truncate(24 * time.Hour), Description: "Salary",
			Amount: decimal.NewFromInt(100), Category: "savings", AccountID: "a1", GoalID: "g1",
			CreatedAt: ts, UpdatedAt: ts,
		})
		return nil
	})
	require.NoError(t, err)

	l := load(t, s, "alice")

	acct, ok := l.Account("a1")
	require.True(t, ok)
	assert.Equal(t, "alice", acct.Owner)
	assert.Equal(t, "Nubank", acct.Institution)
	assert.Equal(t, domain.AccountChecking, acct.Kind)
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("-12.34")), "balance %s", acct.Balance)
	assert.True(t, acct.CreatedAt.Equal(ts))

	card, ok := l.Card("c1")
	require.True(t, ok)
	assert.Equal(t, "Visa", card.Brand)
	assert.True(t, card.AvailableLimit.Equal(decimal.RequireFromString("5000.5")))
	assert.Equal(t, 5, card.DueDay)
	assert.Equal(t, 10, card.ClosingOffset)
	assert.Equal(t, 25, card.ClosingDay)

	goal, ok := l.Goal("g1")
	require.True(t, ok)
	require.NotNil(t, goal.Deadline)
	assert.True(t, goal.Deadline.Equal(deadline))
	assert.Equal(t, "plane", goal.Icon)
	assert.True(t, goal.CurrentAmount.Equal(decimal.RequireFromString("120.1")))

	tx, ok := l.Transaction("t1")
	require.True(t, ok)
	assert.Equal(t, domain.Credit, tx.Type)
	assert.Equal(t, "c1", tx.CardID)
	assert.Empty(t, tx.AccountID)
	require.NotNil(t, tx.Installment)
	assert.Equal(t, domain.Installment{Number: 1, Total: 2, PurchaseID: "p1"}, *tx.Installment)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("399.99")))

	tx, ok = l.Transaction("t2")
	require.True(t, ok)
	assert.Equal(t, "g1", tx.GoalID)
	assert.Nil(t, tx.Installment)
}

func testFailedUpdate(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, "alice", func(l *domain.Ledger) error {
		l.PutAccount(&domain.Account{ID: "a1", Kind: domain.AccountChecking, Balance: decimal.NewFromInt(1000)})
		return nil
	}))

	boom := errors.New("boom")
	err := s.Update(ctx, "alice", func(l *domain.Ledger) error {
		acct, _ := l.Account("a1")
		acct.Balance = decimal.NewFromInt(1)
		l.PutAccount(acct)
		l.PutGoal(&domain.Goal{ID: "g1", Name: "x"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	l := load(t, s, "alice")
	acct, ok := l.Account("a1")
	require.True(t, ok)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(1000)))
	assert.Empty(t, l.Goals())
}

func testRemovals(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, "alice", func(l *domain.Ledger) error {
		l.PutAccount(&domain.Account{ID: "a1", Kind: domain.AccountChecking})
		l.PutCard(&domain.CreditCard{ID: "c1", DueDay: 1})
		l.PutGoal(&domain.Goal{ID: "g1", Name: "x"})
		l.PutTransaction(&domain.Transaction{ID: "t1", Type: domain.Debit, AccountID: "a1", Date: ts})
		return nil
	}))

	require.NoError(t, s.Update(ctx, "alice", func(l *domain.Ledger) error {
		l.RemoveAccount("a1")
		l.RemoveCard("c1")
		l.RemoveGoal("g1")
		l.RemoveTransaction("t1")
		return nil
	}))

	l := load(t, s, "alice")
	assert.Empty(t, l.Accounts())
	assert.Empty(t, l.Cards())
	assert.Empty(t, l.Goals())
	assert.Empty(t, l.Transactions())
}

func testOrder(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		i := i
		require.NoError(t, s.Update(ctx, "alice", func(l *domain.Ledger) error {
			l.PutAccount(&domain.Account{ID: fmt.Sprintf("a%d", i), Kind: domain.AccountChecking})
			l.PutTransaction(&domain.Transaction{ID: fmt.Sprintf("t%d", i), Type: domain.Debit, AccountID: "a1", Date: ts})
			return nil
		}))
	}

	// Replacing a record keeps its position.
	require.NoError(t, s.Update(ctx, "alice", func(l *domain.Ledger) error {
		tx, _ := l.Transaction("t1")
		tx.Description = "edited"
		l.PutTransaction(tx)
		acct, _ := l.Account("a1")
		acct.Institution = "edited"
		l.PutAccount(acct)
		return nil
	}))

	l := load(t, s, "alice")
	var accountIDs, txIDs []string
	for _, a := range l.Accounts() {
		accountIDs = append(accountIDs, a.ID)
	}
	for _, tx := range l.Transactions() {
		txIDs = append(txIDs, tx.ID)
	}
	assert.Equal(t, []string{"a1", "a2", "a3"}, accountIDs)
	assert.Equal(t, []string{"t3", "t2", "t1"}, txIDs)
}

func testVersionAndOwners(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	for _, owner := range []string{"bob", "alice", "bob"} {
		require.NoError(t, s.Update(ctx, owner, func(l *domain.Ledger) error {
			l.PutGoal(&domain.Goal{ID: fmt.Sprintf("g%d", l.Version), Name: "g"})
			return nil
		}))
	}

	assert.Equal(t, int64(2), load(t, s, "bob").Version)
	assert.Equal(t, int64(1), load(t, s, "alice").Version)

	owners, err := s.Owners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, owners)
}

func testOwnerIsolation(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, "alice", func(l *domain.Ledger) error {
		l.PutAccount(&domain.Account{ID: "shared", Kind: domain.AccountChecking, Balance: decimal.NewFromInt(1)})
		return nil
	}))
	require.NoError(t, s.Update(ctx, "bob", func(l *domain.Ledger) error {
		l.PutAccount(&domain.Account{ID: "shared", Kind: domain.AccountSavings, Balance: decimal.NewFromInt(2)})
		return nil
	}))

	a, _ := load(t, s, "alice").Account("shared")
	b, _ := load(t, s, "bob").Account("shared")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(1)))
	assert.True(t, b.Balance.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "bob", b.Owner)
}

func testViewDiscards(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	require.NoError(t, s.View(ctx, "alice", func(l *domain.Ledger) error {
		l.PutAccount(&domain.Account{ID: "a1", Kind: domain.AccountChecking})
		return nil
	}))
	assert.Empty(t, load(t, s, "alice").Accounts())
}

func testConcurrentUpdates(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, "alice", func(l *domain.Ledger) error {
		l.PutAccount(&domain.Account{ID: "a1", Kind: domain.AccountChecking})
		return nil
	}))

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(ctx, "alice", func(l *domain.Ledger) error {
				acct, ok := l.Account("a1")
				if !ok {
					return errors.New("account missing")
				}
				acct.Balance = acct.Balance.Add(decimal.NewFromInt(1))
				l.PutAccount(acct)
				return nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	acct, _ := load(t, s, "alice").Account("a1")
	require.NotNil(t, acct)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(writers)), "balance %s", acct.Balance)
}
