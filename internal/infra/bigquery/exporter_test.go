package bigquery

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportedAt = time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)

func testLedger() *domain.Ledger {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.NewLedger("alice", 12,
		[]*domain.Account{{ID: "a1", Institution: "Bank", Kind: domain.AccountChecking, Balance: decimal.RequireFromString("800.10"), Seq: 1}},
		[]*domain.CreditCard{{ID: "c1", Issuer: "Nubank", Brand: "Visa", AvailableLimit: decimal.RequireFromString("3800"), DueDay: 5, ClosingDay: 25, Seq: 2}},
		nil,
		[]*domain.Transaction{
			{
				ID: "t1", Type: domain.Debit, Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Description: "Groceries",
				Amount: decimal.RequireFromString("199.90"), Category: "Food", AccountID: "a1",
				CreatedAt: created, UpdatedAt: created, Seq: 3,
			},
			{
				ID: "t2", Type: domain.Credit, Date: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), Description: "TV (2/3)",
				Amount: decimal.RequireFromString("400"), Category: "Electronics", CardID: "c1",
				Installment: &domain.Installment{Number: 2, Total: 3, PurchaseID: "p1"},
				CreatedAt: created, UpdatedAt: created, Seq: 4,
			},
		},
	)
}

func TestTransactionRowsFromLedger(t *testing.T) {
	rows := TransactionRowsFromLedger(testLedger(), "exp-1", exportedAt)
	require.Len(t, rows, 2)

	// Most recent first.
	inst := rows[0]
	assert.Equal(t, "t2", inst.TransactionID)
	assert.Equal(t, "exp-1", inst.ExportID)
	assert.Equal(t, "alice", inst.UserID)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.April, Day: 2}, inst.TransactionDate)
	assert.False(t, inst.AccountID.Valid)
	assert.Equal(t, "c1", inst.CardID.StringVal)
	assert.Equal(t, "p1", inst.PurchaseID.StringVal)
	assert.Equal(t, int64(2), inst.InstallmentNumber.Int64)
	assert.Equal(t, int64(3), inst.InstallmentTotal.Int64)

	debit := rows[1]
	assert.Equal(t, 0, debit.Amount.Cmp(big.NewRat(19990, 100)))
	assert.True(t, debit.AccountID.Valid)
	assert.False(t, debit.PurchaseID.Valid)
	assert.False(t, debit.InstallmentNumber.Valid)
	assert.Equal(t, exportedAt, debit.ExportedTS)
}

func TestBalanceAndLimitRows(t *testing.T) {
	l := testLedger()

	accounts := AccountBalanceRowsFromLedger(l, "exp-1", exportedAt)
	require.Len(t, accounts, 1)
	assert.Equal(t, 0, accounts[0].Balance.Cmp(big.NewRat(80010, 100)))
	assert.Equal(t, "checking", accounts[0].Kind)

	cards := CardLimitRowsFromLedger(l, "exp-1", exportedAt)
	require.Len(t, cards, 1)
	assert.Equal(t, 0, cards[0].AvailableLimit.Cmp(big.NewRat(3800, 1)))
	assert.Equal(t, int64(25), cards[0].ClosingDay)
}

type recordedPut struct {
	table string
	rows  interface{}
}

func newTestExporter(put putFunc) *Exporter {
	return &Exporter{
		projectID: "test",
		datasetID: "ledger",
		put:       put,
		log:       zerolog.Nop(),
		now:       func() time.Time { return exportedAt },
	}
}

func TestExportLedger(t *testing.T) {
	var puts []recordedPut
	e := newTestExporter(func(ctx context.Context, table string, rows interface{}) error {
		puts = append(puts, recordedPut{table, rows})
		return nil
	})

	export, err := e.ExportLedger(context.Background(), testLedger())
	require.NoError(t, err)

	require.Len(t, puts, 4)
	assert.Equal(t, []string{transactionsTable, accountBalancesTable, cardLimitsTable, exportsTable},
		[]string{puts[0].table, puts[1].table, puts[2].table, puts[3].table})

	assert.NotEmpty(t, export.ExportID)
	assert.Equal(t, "alice", export.UserID)
	assert.Equal(t, int64(12), export.LedgerVersion)
	assert.Equal(t, int64(2), export.Transactions)
	assert.Equal(t, exportedAt, export.ExportedTS)

	txRows := puts[0].rows.([]*TransactionRow)
	assert.Equal(t, export.ExportID, txRows[0].ExportID)
}

func TestExportLedger_EmptyLedgerRecordsHistoryOnly(t *testing.T) {
	var tables []string
	e := newTestExporter(func(ctx context.Context, table string, rows interface{}) error {
		tables = append(tables, table)
		return nil
	})

	export, err := e.ExportLedger(context.Background(), domain.EmptyLedger("bob"))
	require.NoError(t, err)
	assert.Equal(t, []string{exportsTable}, tables)
	assert.Zero(t, export.Transactions)
}

func TestExportLedger_InsertFailure(t *testing.T) {
	e := newTestExporter(func(ctx context.Context, table string, rows interface{}) error {
		if table == accountBalancesTable {
			return errors.New("quota exceeded")
		}
		return nil
	})

	_, err := e.ExportLedger(context.Background(), testLedger())
	assert.ErrorContains(t, err, "quota exceeded")
}
