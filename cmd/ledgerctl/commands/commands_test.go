package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/insights"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/ledger/inmemory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	app *app.App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("LEDGER_OWNER", "")
	n := 0
	svc := ledger.NewService(inmemory.NewStore(), ledger.Rules{}, zerolog.Nop(),
		ledger.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		}),
	)
	return &harness{app: &app.App{
		Ledger:   svc,
		Insights: insights.NewService(svc, nil, zerolog.Nop()),
		Log:      zerolog.Nop(),
	}}
}

func (h *harness) run(args ...string) (string, error) {
	root := NewRootCommand(func(ctx context.Context, envFile string, debug bool) (*app.App, error) {
		return h.app, nil
	})
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func (h *harness) runJSON(t *testing.T, dst interface{}, args ...string) {
	t.Helper()
	out, err := h.run(append([]string{"--owner", "alice", "--json"}, args...)...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), dst), out)
}

func TestOwnerRequired(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("accounts", "list")
	assert.ErrorContains(t, err, "--owner")
}

func TestAccounts(t *testing.T) {
	h := newHarness(t)

	var account domain.Account
	h.runJSON(t, &account, "accounts", "add", "--institution", "Bank", "--kind", "savings", "--balance", "150.25")
	assert.Equal(t, "id-001", account.ID)
	assert.Equal(t, domain.AccountSavings, account.Kind)

	h.runJSON(t, &account, "accounts", "update", account.ID, "--balance", "99")
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(99)))
	assert.Equal(t, "Bank", account.Institution)

	out, err := h.run("-u", "alice", "accounts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Bank")
	assert.Contains(t, out, "99.00")

	_, err = h.run("-u", "alice", "accounts", "add", "--institution", "Bank", "--balance", "abc")
	assert.ErrorContains(t, err, "invalid amount")

	_, err = h.run("-u", "alice", "accounts", "show", "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	out, err = h.run("-u", "alice", "accounts", "delete", account.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted account")
}

func TestTransactionsAndPurchases(t *testing.T) {
	h := newHarness(t)

	var card domain.CreditCard
	h.runJSON(t, &card, "cards", "add", "--issuer", "Issuer", "--brand", "Visa", "--limit", "3000", "--due-day", "10")

	var created []*domain.Transaction
	h.runJSON(t, &created, "tx", "add", "--type", "credit", "--card", card.ID, "--amount", "900",
		"--installments", "3", "--date", "2024-05-02", "--description", "Laptop", "--category", "Electronics")
	require.Len(t, created, 3)
	purchaseID := created[0].PurchaseID()

	h.runJSON(t, &card, "cards", "show", card.ID)
	assert.True(t, card.AvailableLimit.Equal(decimal.NewFromInt(2100)), card.AvailableLimit.String())

	var page struct {
		Transactions []*domain.Transaction `json:"transactions"`
		Total        int                   `json:"total"`
	}
	h.runJSON(t, &page, "tx", "list", "--search", "laptop", "--limit", "1")
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Transactions, 1)

	var deleted struct {
		Deleted int `json:"deleted"`
	}
	h.runJSON(t, &deleted, "purchase", "delete", purchaseID)
	assert.Equal(t, 3, deleted.Deleted)

	h.runJSON(t, &card, "cards", "show", card.ID)
	assert.True(t, card.AvailableLimit.Equal(decimal.NewFromInt(3000)), card.AvailableLimit.String())

	_, err := h.run("-u", "alice", "tx", "add", "--type", "DEBIT", "--amount", "10", "--category", "Food", "--description", "x")
	assert.ErrorIs(t, err, ledger.ErrInvalidReference)
}

func TestGoalsAndSummary(t *testing.T) {
	h := newHarness(t)

	var goal domain.Goal
	h.runJSON(t, &goal, "goals", "add", "--name", "Trip", "--target", "1000", "--current", "250", "--deadline", "2030-01-01")
	require.NotNil(t, goal.Deadline)

	var cleared domain.Goal
	h.runJSON(t, &cleared, "goals", "update", goal.ID, "--clear-deadline")
	assert.Equal(t, goal.ID, cleared.ID)
	assert.Nil(t, cleared.Deadline)

	var summary insights.Summary
	h.runJSON(t, &summary, "summary", "--months", "2")
	assert.Equal(t, 2, summary.Months)
	require.Len(t, summary.Goals, 1)
	assert.Equal(t, "Trip", summary.Goals[0].Name)

	out, err := h.run("-u", "alice", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Trip")

	_, err = h.run("-u", "alice", "insights")
	assert.ErrorIs(t, err, insights.ErrNoGenerator)
}

func TestUnconfiguredServices(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{
		{"backup"},
		{"restore", "gs://bucket/backups/alice/x.json", "--yes"},
		{"export"},
		{"export", "history"},
		{"notion-sync", "--dry-run"},
	} {
		_, err := h.run(append([]string{"-u", "alice"}, args...)...)
		assert.ErrorIs(t, err, app.ErrNotConfigured, args[0])
	}
}

func TestCategories(t *testing.T) {
	h := newHarness(t)
	out, err := h.run("-u", "alice", "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "any category is accepted")
}
