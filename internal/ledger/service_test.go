package ledger_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/ledger/inmemory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "alice"

var (
	ctx   = context.Background()
	day   = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	clock = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

type fixture struct {
	svc   *ledger.Service
	store *inmemory.Store
	logs  *bytes.Buffer
}

func newFixture(t *testing.T, rules ledger.Rules) *fixture {
	t.Helper()
	n := 0
	logs := &bytes.Buffer{}
	store := inmemory.NewStore()
	svc := ledger.NewService(store, rules, zerolog.New(logs),
		ledger.WithClock(func() time.Time { return clock }),
		ledger.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		}),
	)
	return &fixture{svc: svc, store: store, logs: logs}
}

func (f *fixture) account(t *testing.T, balance string) *domain.Account {
	t.Helper()
	a, err := f.svc.CreateAccount(ctx, owner, ledger.AccountInput{
		Institution: "Bank", Kind: domain.AccountChecking, Balance: dec(balance),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) card(t *testing.T, limit string) *domain.CreditCard {
	t.Helper()
	c, err := f.svc.CreateCard(ctx, owner, ledger.CardInput{
		Issuer: "Issuer", Brand: "Visa", AvailableLimit: dec(limit), DueDay: 10, ClosingOffset: 7,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) goal(t *testing.T, name, target, current string) *domain.Goal {
	t.Helper()
	g, err := f.svc.CreateGoal(ctx, owner, ledger.GoalInput{
		Name: name, TargetAmount: dec(target), CurrentAmount: dec(current),
	})
	require.NoError(t, err)
	return g
}

func (f *fixture) create(t *testing.T, in ledger.TransactionInput) []*domain.Transaction {
	t.Helper()
	if in.Date.IsZero() {
		in.Date = day
	}
	if in.Description == "" {
		in.Description = "test"
	}
	if in.Category == "" {
		in.Category = "General"
	}
	txs, err := f.svc.CreateTransaction(ctx, owner, in)
	require.NoError(t, err)
	return txs
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	a, err := f.svc.GetAccount(ctx, owner, id)
	require.NoError(t, err)
	return a.Balance
}

func (f *fixture) limit(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	c, err := f.svc.GetCard(ctx, owner, id)
	require.NoError(t, err)
	return c.AvailableLimit
}

func (f *fixture) saved(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	g, err := f.svc.GetGoal(ctx, owner, id)
	require.NoError(t, err)
	return g.CurrentAmount
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), append([]interface{}{"got %s, want %s", got, want}, msgAndArgs...)...)
}

func TestScenario_DebitThenInstallmentsThenDelete(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	checking := f.account(t, "1000")
	card := f.card(t, "5000")

	f.create(t, ledger.TransactionInput{Type: domain.Debit, Amount: dec("200"), AccountID: checking.ID})
	assertAmount(t, "800", f.balance(t, checking.ID))

	txs := f.create(t, ledger.TransactionInput{
		Type: domain.Credit, Amount: dec("1200"), CardID: card.ID, Installments: 3, Description: "Phone",
	})
	require.Len(t, txs, 3)
	assertAmount(t, "3800", f.limit(t, card.ID))
	for i, tx := range txs {
		assertAmount(t, "400", tx.Amount)
		assert.Equal(t, day.AddDate(0, i, 0), tx.Date)
		assert.Equal(t, fmt.Sprintf("Phone (%d/3)", i+1), tx.Description)
	}

	require.NoError(t, f.svc.DeleteTransaction(ctx, owner, txs[0].ID))
	assertAmount(t, "4200", f.limit(t, card.ID))
}

func TestBalanceRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		typ  domain.TransactionType
	}{
		{"debit", domain.Debit},
		{"receive", domain.Receive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, ledger.Rules{})
			acct := f.account(t, "250.75")

			txs := f.create(t, ledger.TransactionInput{Type: tt.typ, Amount: dec("99.99"), AccountID: acct.ID})
			assert.False(t, f.balance(t, acct.ID).Equal(dec("250.75")))

			require.NoError(t, f.svc.DeleteTransaction(ctx, owner, txs[0].ID))
			assertAmount(t, "250.75", f.balance(t, acct.ID))
		})
	}
}

func TestLimitRoundTrip(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	card := f.card(t, "1500")

	txs := f.create(t, ledger.TransactionInput{Type: domain.Credit, Amount: dec("320.10"), CardID: card.ID})
	assertAmount(t, "1179.90", f.limit(t, card.ID))

	require.NoError(t, f.svc.DeleteTransaction(ctx, owner, txs[0].ID))
	assertAmount(t, "1500", f.limit(t, card.ID))
}

func TestInstallments_ConservationAndDating(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	card := f.card(t, "1000")

	purchase := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	txs := f.create(t, ledger.TransactionInput{
		Type: domain.Credit, Amount: dec("100"), CardID: card.ID, Installments: 3, Date: purchase,
	})
	require.Len(t, txs, 3)

	sum := decimal.Zero
	purchaseID := txs[0].PurchaseID()
	require.NotEmpty(t, purchaseID)
	for i, tx := range txs {
		sum = sum.Add(tx.Amount)
		assert.Equal(t, purchaseID, tx.PurchaseID())
		assert.Equal(t, i+1, tx.Installment.Number)
		assert.Equal(t, 3, tx.Installment.Total)
	}
	assertAmount(t, "100", sum)
	assertAmount(t, "33.34", txs[2].Amount)

	assert.Equal(t, "2024-01-31", txs[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2024-02-29", txs[1].Date.Format("2006-01-02"))
	assert.Equal(t, "2024-03-31", txs[2].Date.Format("2006-01-02"))

	// Full amount deducted exactly once.
	assertAmount(t, "900", f.limit(t, card.ID))

	group, err := f.svc.ListPurchase(ctx, owner, purchaseID)
	require.NoError(t, err)
	require.Len(t, group, 3)
	assert.Equal(t, txs[0].ID, group[0].ID)

	removed, err := f.svc.DeletePurchase(ctx, owner, purchaseID)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assertAmount(t, "1000", f.limit(t, card.ID))

	_, err = f.svc.ListPurchase(ctx, owner, purchaseID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestInstallments_Validation(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	card := f.card(t, "1000")
	acct := f.account(t, "0")

	tests := []struct {
		name    string
		in      ledger.TransactionInput
		wantErr error
	}{
		{"too many", ledger.TransactionInput{Type: domain.Credit, CardID: card.ID, Amount: dec("100"), Installments: 13}, ledger.ErrInvalidInput},
		{"negative", ledger.TransactionInput{Type: domain.Credit, CardID: card.ID, Amount: dec("100"), Installments: -2}, ledger.ErrInvalidInput},
		{"debit split", ledger.TransactionInput{Type: domain.Debit, AccountID: acct.ID, Amount: dec("100"), Installments: 2}, ledger.ErrInvalidInput},
		{"amount too small", ledger.TransactionInput{Type: domain.Credit, CardID: card.ID, Amount: dec("0.05"), Installments: 12}, ledger.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Date, tt.in.Description, tt.in.Category = day, "x", "General"
			_, err := f.svc.CreateTransaction(ctx, owner, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assertAmount(t, "1000", f.limit(t, card.ID))
}

func TestCreateTransaction_Validation(t *testing.T) {
	f := newFixture(t, ledger.Rules{Categories: []string{"Food"}})
	acct := f.account(t, "100")
	card := f.card(t, "100")

	base := func() ledger.TransactionInput {
		return ledger.TransactionInput{
			Type: domain.Debit, Date: day, Description: "Lunch", Amount: dec("10"), Category: "food", AccountID: acct.ID,
		}
	}

	tests := []struct {
		name    string
		mutate  func(in *ledger.TransactionInput)
		wantErr error
	}{
		{"zero amount", func(in *ledger.TransactionInput) { in.Amount = decimal.Zero }, ledger.ErrInvalidAmount},
		{"negative amount", func(in *ledger.TransactionInput) { in.Amount = dec("-5") }, ledger.ErrInvalidAmount},
		{"sub-cent amount", func(in *ledger.TransactionInput) { in.Amount = dec("1.001") }, ledger.ErrInvalidAmount},
		{"unknown type", func(in *ledger.TransactionInput) { in.Type = "REFUND" }, ledger.ErrInvalidInput},
		{"missing date", func(in *ledger.TransactionInput) { in.Date = time.Time{} }, ledger.ErrInvalidInput},
		{"blank description", func(in *ledger.TransactionInput) { in.Description = " " }, ledger.ErrInvalidInput},
		{"unknown category", func(in *ledger.TransactionInput) { in.Category = "Travel" }, ledger.ErrInvalidInput},
		{"debit without account", func(in *ledger.TransactionInput) { in.AccountID = "" }, ledger.ErrInvalidReference},
		{"debit with card", func(in *ledger.TransactionInput) { in.CardID = card.ID }, ledger.ErrInvalidReference},
		{"credit with account", func(in *ledger.TransactionInput) { in.Type = domain.Credit; in.CardID = card.ID }, ledger.ErrInvalidReference},
		{"goal on debit", func(in *ledger.TransactionInput) { in.GoalID = "g" }, ledger.ErrInvalidReference},
		{"missing account", func(in *ledger.TransactionInput) { in.AccountID = "nope" }, ledger.ErrNotFound},
		{"missing card", func(in *ledger.TransactionInput) { in.Type = domain.Credit; in.AccountID = ""; in.CardID = "nope" }, ledger.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			_, err := f.svc.CreateTransaction(ctx, owner, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assertAmount(t, "100", f.balance(t, acct.ID))
	txs, total, err := f.svc.ListTransactions(ctx, owner, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Zero(t, total)
}

func TestGoalPool(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	acct := f.account(t, "0")
	full := f.goal(t, "Full", "100", "100")
	first := f.goal(t, "Car", "500", "450")
	second := f.goal(t, "House", "1000", "0")

	// Pool rule: first goal below target takes the whole amount.
	txs := f.create(t, ledger.TransactionInput{Type: domain.Receive, Amount: dec("80"), AccountID: acct.ID, Category: " Savings "})
	assert.Equal(t, first.ID, txs[0].GoalID)
	assertAmount(t, "530", f.saved(t, first.ID))
	assertAmount(t, "0", f.saved(t, second.ID))
	assertAmount(t, "100", f.saved(t, full.ID))
	assertAmount(t, "80", f.balance(t, acct.ID))

	// The first goal is now complete, so the next contribution moves on.
	next := f.create(t, ledger.TransactionInput{Type: domain.Receive, Amount: dec("20"), AccountID: acct.ID, Category: "goal"})
	assert.Equal(t, second.ID, next[0].GoalID)
	assertAmount(t, "20", f.saved(t, second.ID))

	// Reversal uses the recorded goal, not the pool.
	require.NoError(t, f.svc.DeleteTransaction(ctx, owner, txs[0].ID))
	assertAmount(t, "450", f.saved(t, first.ID))
	assertAmount(t, "20", f.saved(t, second.ID))
	assertAmount(t, "20", f.balance(t, acct.ID))
}

func TestGoalPool_NoOpenGoal(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	acct := f.account(t, "0")
	g := f.goal(t, "Done", "10", "10")

	txs := f.create(t, ledger.TransactionInput{Type: domain.Receive, Amount: dec("5"), AccountID: acct.ID, Category: "savings"})
	assert.Empty(t, txs[0].GoalID)
	assertAmount(t, "10", f.saved(t, g.ID))
	assertAmount(t, "5", f.balance(t, acct.ID))
}

func TestGoalPool_MonotonicAcrossGoals(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	acct := f.account(t, "0")
	goals := []*domain.Goal{
		f.goal(t, "A", "50", "0"),
		f.goal(t, "B", "50", "0"),
		f.goal(t, "C", "50", "0"),
	}

	total := func() decimal.Decimal {
		sum := decimal.Zero
		for _, g := range goals {
			sum = sum.Add(f.saved(t, g.ID))
		}
		return sum
	}

	var created []*domain.Transaction
	for i := 0; i < 5; i++ {
		before := total()
		txs := f.create(t, ledger.TransactionInput{Type: domain.Receive, Amount: dec("30"), AccountID: acct.ID, Category: "savings"})
		created = append(created, txs[0])
		assertAmount(t, before.Add(dec("30")).String(), total())
	}

	for i := len(created) - 1; i >= 0; i-- {
		before := total()
		require.NoError(t, f.svc.DeleteTransaction(ctx, owner, created[i].ID))
		assert.True(t, total().LessThanOrEqual(before))
	}
	assertAmount(t, "0", total())
}

func TestExplicitGoal(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	acct := f.account(t, "0")
	f.goal(t, "Open", "100", "0")
	target := f.goal(t, "Chosen", "100", "0")

	txs := f.create(t, ledger.TransactionInput{Type: domain.Receive, Amount: dec("40"), AccountID: acct.ID, Category: "savings", GoalID: target.ID})
	assert.Equal(t, target.ID, txs[0].GoalID)
	assertAmount(t, "40", f.saved(t, target.ID))

	_, err := f.svc.CreateTransaction(ctx, owner, ledger.TransactionInput{
		Type: domain.Receive, Date: day, Description: "x", Amount: dec("1"), AccountID: acct.ID, Category: "savings", GoalID: "missing",
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assertAmount(t, "40", f.balance(t, acct.ID))
}

func TestGoalReversal_ClampsAtZero(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	acct := f.account(t, "0")
	g := f.goal(t, "Trip", "100", "0")

	txs := f.create(t, ledger.TransactionInput{Type: domain.Receive, Amount: dec("60"), AccountID: acct.ID, Category: "savings"})
	_, err := f.svc.UpdateGoal(ctx, owner, g.ID, ledger.GoalPatch{CurrentAmount: ptr(dec("10"))})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTransaction(ctx, owner, txs[0].ID))
	assertAmount(t, "0", f.saved(t, g.ID))
}

func TestUpdateTransaction_Equivalence(t *testing.T) {
	tests := []struct {
		name  string
		patch ledger.TransactionPatch
	}{
		{"amount", ledger.TransactionPatch{Amount: ptr(dec("75.50"))}},
		{"move account", ledger.TransactionPatch{AccountID: ptr("second")}},
		{"debit to credit", ledger.TransactionPatch{Type: ptr(domain.Credit), CardID: ptr("card")}},
		{"debit to savings receive", ledger.TransactionPatch{Type: ptr(domain.Receive), Category: ptr("savings")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated := newEquivalenceLedger(t)
			viaUpdate, err := updated.svc.UpdateTransaction(ctx, owner, "tx", tt.patch)
			require.NoError(t, err)

			replayed := newEquivalenceLedger(t)
			old, err := replayed.svc.GetTransaction(ctx, owner, "tx")
			require.NoError(t, err)
			require.NoError(t, replayed.svc.DeleteTransaction(ctx, owner, "tx"))
			in := ledger.TransactionInput{
				Type: viaUpdate.Type, Date: old.Date, Description: viaUpdate.Description, Amount: viaUpdate.Amount,
				Category: viaUpdate.Category, AccountID: viaUpdate.AccountID, CardID: viaUpdate.CardID,
			}
			_, err = replayed.svc.CreateTransaction(ctx, owner, in)
			require.NoError(t, err)

			a, err := updated.svc.Snapshot(ctx, owner)
			require.NoError(t, err)
			b, err := replayed.svc.Snapshot(ctx, owner)
			require.NoError(t, err)
			assertSameEffects(t, a, b)

			assert.Equal(t, "tx", viaUpdate.ID)
		})
	}
}

// newEquivalenceLedger builds the same starting ledger with stable ids:
// accounts "first" and "second", card "card", goal "goal" and a DEBIT of
// 40 on "first" with id "tx".
func newEquivalenceLedger(t *testing.T) *fixture {
	t.Helper()
	ids := []string{"first", "second", "card", "goal", "tx"}
	n := 0
	store := inmemory.NewStore()
	svc := ledger.NewService(store, ledger.Rules{}, zerolog.Nop(),
		ledger.WithClock(func() time.Time { return clock }),
		ledger.WithIDGenerator(func() string {
			n++
			if n <= len(ids) {
				return ids[n-1]
			}
			return fmt.Sprintf("gen-%d", n)
		}),
	)
	f := &fixture{svc: svc, store: store, logs: &bytes.Buffer{}}
	f.account(t, "1000")
	f.account(t, "500")
	f.card(t, "2000")
	f.goal(t, "Goal", "100", "0")
	f.create(t, ledger.TransactionInput{Type: domain.Debit, Amount: dec("40"), AccountID: "first"})
	return f
}

func assertSameEffects(t *testing.T, a, b *domain.Ledger) {
	t.Helper()
	require.Len(t, b.Accounts(), len(a.Accounts()))
	for i := range a.Accounts() {
		assert.True(t, a.Accounts()[i].Balance.Equal(b.Accounts()[i].Balance), "account %s", a.Accounts()[i].ID)
	}
	require.Len(t, b.Cards(), len(a.Cards()))
	for i := range a.Cards() {
		assert.True(t, a.Cards()[i].AvailableLimit.Equal(b.Cards()[i].AvailableLimit), "card %s", a.Cards()[i].ID)
	}
	require.Len(t, b.Goals(), len(a.Goals()))
	for i := range a.Goals() {
		assert.True(t, a.Goals()[i].CurrentAmount.Equal(b.Goals()[i].CurrentAmount), "goal %s", a.Goals()[i].ID)
	}
}

func TestUpdateTransaction_KeepsPositionAndMergesFields(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	acct := f.account(t, "100")
	first := f.create(t, ledger.TransactionInput{Type: domain.Debit, Amount: dec("10"), AccountID: acct.ID, Description: "first"})
	f.create(t, ledger.TransactionInput{Type: domain.Debit, Amount: dec("5"), AccountID: acct.ID, Description: "second"})

	updated, err := f.svc.UpdateTransaction(ctx, owner, first[0].ID, ledger.TransactionPatch{Description: ptr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Description)
	assertAmount(t, "10", updated.Amount)
	assert.Equal(t, first[0].CreatedAt, updated.CreatedAt)
	assertAmount(t, "85", f.balance(t, acct.ID))

	txs, _, err := f.svc.ListTransactions(ctx, owner, ledger.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "second", txs[0].Description)
	assert.Equal(t, first[0].ID, txs[1].ID)
}

func TestUpdateTransaction_FailureLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	acct := f.account(t, "100")
	txs := f.create(t, ledger.TransactionInput{Type: domain.Debit, Amount: dec("10"), AccountID: acct.ID})

	_, err := f.svc.UpdateTransaction(ctx, owner, txs[0].ID, ledger.TransactionPatch{AccountID: ptr("missing")})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = f.svc.UpdateTransaction(ctx, owner, txs[0].ID, ledger.TransactionPatch{Amount: ptr(decimal.Zero)})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = f.svc.UpdateTransaction(ctx, owner, "missing", ledger.TransactionPatch{})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assertAmount(t, "90", f.balance(t, acct.ID))
	got, err := f.svc.GetTransaction(ctx, owner, txs[0].ID)
	require.NoError(t, err)
	assertAmount(t, "10", got.Amount)
}

func TestUpdateTransaction_Installment(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	card := f.card(t, "1000")
	txs := f.create(t, ledger.TransactionInput{Type: domain.Credit, Amount: dec("300"), CardID: card.ID, Installments: 3})

	_, err := f.svc.UpdateTransaction(ctx, owner, txs[1].ID, ledger.TransactionPatch{Type: ptr(domain.Debit)})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	updated, err := f.svc.UpdateTransaction(ctx, owner, txs[1].ID, ledger.TransactionPatch{Amount: ptr(dec("150"))})
	require.NoError(t, err)
	require.NotNil(t, updated.Installment)
	assert.Equal(t, 2, updated.Installment.Number)
	assertAmount(t, "650", f.limit(t, card.ID))
}

func TestUpdateTransaction_SavingsGoalChanges(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	acct := f.account(t, "0")
	g1 := f.goal(t, "One", "100", "0")
	g2 := f.goal(t, "Two", "100", "0")

	txs := f.create(t, ledger.TransactionInput{Type: domain.Receive, Amount: dec("30"), AccountID: acct.ID, Category: "savings"})
	require.Equal(t, g1.ID, txs[0].GoalID)

	// Amount change stays with the recorded goal.
	_, err := f.svc.UpdateTransaction(ctx, owner, txs[0].ID, ledger.TransactionPatch{Amount: ptr(dec("50"))})
	require.NoError(t, err)
	assertAmount(t, "50", f.saved(t, g1.ID))

	// Explicit move to another goal.
	moved, err := f.svc.UpdateTransaction(ctx, owner, txs[0].ID, ledger.TransactionPatch{GoalID: ptr(g2.ID)})
	require.NoError(t, err)
	assert.Equal(t, g2.ID, moved.GoalID)
	assertAmount(t, "0", f.saved(t, g1.ID))
	assertAmount(t, "50", f.saved(t, g2.ID))

	// No longer savings: the goal contribution is withdrawn.
	plain, err := f.svc.UpdateTransaction(ctx, owner, txs[0].ID, ledger.TransactionPatch{Category: ptr("Salary")})
	require.NoError(t, err)
	assert.Empty(t, plain.GoalID)
	assertAmount(t, "0", f.saved(t, g2.ID))
	assertAmount(t, "50", f.balance(t, acct.ID))
}

func TestDeleteTransaction_MissingTargetStillRemoves(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	acct := f.account(t, "100")
	txs := f.create(t, ledger.TransactionInput{Type: domain.Debit, Amount: dec("10"), AccountID: acct.ID})

	require.NoError(t, f.svc.DeleteAccount(ctx, owner, acct.ID))
	require.NoError(t, f.svc.DeleteTransaction(ctx, owner, txs[0].ID))

	_, err := f.svc.GetTransaction(ctx, owner, txs[0].ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.Contains(t, f.logs.String(), "Reversal target no longer exists")

	err = f.svc.DeleteTransaction(ctx, owner, txs[0].ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestListTransactions_Filter(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	acct := f.account(t, "0")
	card := f.card(t, "1000")

	f.create(t, ledger.TransactionInput{Type: domain.Receive, Amount: dec("1000"), AccountID: acct.ID, Description: "Salary", Category: "Income", Date: day})
	f.create(t, ledger.TransactionInput{Type: domain.Debit, Amount: dec("50"), AccountID: acct.ID, Description: "Groceries market", Category: "Food", Date: day.AddDate(0, 0, 1)})
	f.create(t, ledger.TransactionInput{Type: domain.Credit, Amount: dec("30"), CardID: card.ID, Description: "Market snacks", Category: "food", Date: day.AddDate(0, 0, 2)})

	tests := []struct {
		name   string
		filter ledger.TransactionFilter
		want   []string
		total  int
	}{
		{"all", ledger.TransactionFilter{}, []string{"Market snacks", "Groceries market", "Salary"}, 3},
		{"search", ledger.TransactionFilter{Search: "MARKET"}, []string{"Market snacks", "Groceries market"}, 2},
		{"category", ledger.TransactionFilter{Category: "FOOD"}, []string{"Market snacks", "Groceries market"}, 2},
		{"type", ledger.TransactionFilter{Type: domain.Credit}, []string{"Market snacks"}, 1},
		{"account", ledger.TransactionFilter{AccountID: acct.ID}, []string{"Groceries market", "Salary"}, 2},
		{"card", ledger.TransactionFilter{CardID: card.ID}, []string{"Market snacks"}, 1},
		{"date range", ledger.TransactionFilter{From: ptr(day.AddDate(0, 0, 1)), To: ptr(day.AddDate(0, 0, 1))}, []string{"Groceries market"}, 1},
		{"page", ledger.TransactionFilter{Limit: 1, Offset: 1}, []string{"Groceries market"}, 3},
		{"offset past end", ledger.TransactionFilter{Offset: 5}, nil, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, total, err := f.svc.ListTransactions(ctx, owner, tt.filter)
			require.NoError(t, err)
			var got []string
			for _, tx := range txs {
				got = append(got, tx.Description)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.total, total)
		})
	}
}

func TestEntityManagement(t *testing.T) {
	f := newFixture(t, ledger.Rules{})

	acct := f.account(t, "10")
	updated, err := f.svc.UpdateAccount(ctx, owner, acct.ID, ledger.AccountPatch{Balance: ptr(dec("99")), Kind: ptr(domain.AccountBusiness)})
	require.NoError(t, err)
	assertAmount(t, "99", updated.Balance)
	assert.Equal(t, domain.AccountBusiness, updated.Kind)

	_, err = f.svc.UpdateAccount(ctx, owner, acct.ID, ledger.AccountPatch{Kind: ptr(domain.AccountKind("crypto"))})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	card := f.card(t, "100")
	assert.Equal(t, 3, card.ClosingDay)
	card, err = f.svc.UpdateCard(ctx, owner, card.ID, ledger.CardPatch{DueDay: ptr(5), ClosingOffset: ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, 25, card.ClosingDay)

	_, err = f.svc.CreateCard(ctx, owner, ledger.CardInput{Issuer: "x", DueDay: 32})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	_, err = f.svc.CreateCard(ctx, owner, ledger.CardInput{Issuer: "x", DueDay: 1, ClosingOffset: 31})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	deadline := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	g, err := f.svc.CreateGoal(ctx, owner, ledger.GoalInput{Name: "Trip", TargetAmount: dec("100"), Deadline: &deadline})
	require.NoError(t, err)
	require.NotNil(t, g.Deadline)
	assert.Equal(t, "2025-06-01", g.Deadline.Format("2006-01-02"))
	g, err = f.svc.UpdateGoal(ctx, owner, g.ID, ledger.GoalPatch{ClearDeadline: true})
	require.NoError(t, err)
	assert.Nil(t, g.Deadline)

	_, err = f.svc.CreateGoal(ctx, owner, ledger.GoalInput{Name: "Bad", TargetAmount: dec("-1")})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	accounts, err := f.svc.ListAccounts(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, f.svc.DeleteCard(ctx, owner, card.ID))
	require.NoError(t, f.svc.DeleteGoal(ctx, owner, g.ID))
	assert.ErrorIs(t, f.svc.DeleteGoal(ctx, owner, g.ID), ledger.ErrNotFound)

	cards, err := f.svc.ListCards(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, cards)
	goals, err := f.svc.ListGoals(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestReplaceLedger(t *testing.T) {
	src := newFixture(t, ledger.Rules{})
	acct := src.account(t, "100")
	src.create(t, ledger.TransactionInput{Type: domain.Debit, Amount: dec("10"), AccountID: acct.ID, Description: "older"})
	src.create(t, ledger.TransactionInput{Type: domain.Debit, Amount: dec("20"), AccountID: acct.ID, Description: "newer"})
	snap, err := src.svc.Snapshot(ctx, owner)
	require.NoError(t, err)

	dst := newFixture(t, ledger.Rules{})
	dst.account(t, "5")
	require.NoError(t, dst.svc.ReplaceLedger(ctx, owner, snap))

	accounts, err := dst.svc.ListAccounts(ctx, owner)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, acct.ID, accounts[0].ID)
	assertAmount(t, "70", accounts[0].Balance)

	txs, _, err := dst.svc.ListTransactions(ctx, owner, ledger.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "newer", txs[0].Description)
	assert.Equal(t, "older", txs[1].Description)

	bad := domain.EmptyLedger(owner)
	bad.PutTransaction(&domain.Transaction{ID: "t", Type: "BOGUS"})
	assert.ErrorIs(t, dst.svc.ReplaceLedger(ctx, owner, bad), ledger.ErrInvalidInput)
}

func TestOwnerRequired(t *testing.T) {
	f := newFixture(t, ledger.Rules{})
	_, err := f.svc.CreateAccount(ctx, "", ledger.AccountInput{Institution: "x", Kind: domain.AccountChecking})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	_, err = f.svc.Snapshot(ctx, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestOwnerRequired_MutatingOperations(t *testing.T) {
	f := newFixture(t, ledger.Rules{})

	calls := map[string]func() error{
		"UpdateAccount": func() error {
			_, err := f.svc.UpdateAccount(ctx, "", "id-001", ledger.AccountPatch{})
			return err
		},
		"DeleteAccount": func() error { return f.svc.DeleteAccount(ctx, "", "id-001") },
		"UpdateCard": func() error {
			_, err := f.svc.UpdateCard(ctx, "", "id-001", ledger.CardPatch{})
			return err
		},
		"DeleteCard": func() error { return f.svc.DeleteCard(ctx, "", "id-001") },
		"UpdateGoal": func() error {
			_, err := f.svc.UpdateGoal(ctx, "", "id-001", ledger.GoalPatch{})
			return err
		},
		"DeleteGoal": func() error { return f.svc.DeleteGoal(ctx, "", "id-001") },
		"UpdateTransaction": func() error {
			_, err := f.svc.UpdateTransaction(ctx, "", "id-001", ledger.TransactionPatch{})
			return err
		},
		"DeleteTransaction": func() error { return f.svc.DeleteTransaction(ctx, "", "id-001") },
		"DeletePurchase": func() error {
			_, err := f.svc.DeletePurchase(ctx, "", "p-1")
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			assert.ErrorIs(t, err, ledger.ErrInvalidInput)
			assert.NotErrorIs(t, err, ledger.ErrNotFound)
		})
	}
}
