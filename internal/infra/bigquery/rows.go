package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionRow is one row of ledger_transactions.
type TransactionRow struct {
	ExportID      string `bigquery:"export_id"`      // REQUIRED
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	Type            string     `bigquery:"type"`             // REQUIRED: DEBIT, CREDIT, RECEIVE
	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Description     string     `bigquery:"description"`      // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC
	Category        string     `bigquery:"category"`         // REQUIRED

	AccountID bigquery.NullString `bigquery:"account_id"` // NULLABLE
	CardID    bigquery.NullString `bigquery:"card_id"`    // NULLABLE
	GoalID    bigquery.NullString `bigquery:"goal_id"`    // NULLABLE

	PurchaseID        bigquery.NullString `bigquery:"purchase_id"`        // NULLABLE
	InstallmentNumber bigquery.NullInt64  `bigquery:"installment_number"` // NULLABLE
	InstallmentTotal  bigquery.NullInt64  `bigquery:"installment_total"`  // NULLABLE

	CreatedTS  time.Time `bigquery:"created_ts"`  // REQUIRED
	UpdatedTS  time.Time `bigquery:"updated_ts"`  // REQUIRED
	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// AccountBalanceRow is one row of ledger_account_balances.
type AccountBalanceRow struct {
	ExportID    string    `bigquery:"export_id"`
	AccountID   string    `bigquery:"account_id"`
	UserID      string    `bigquery:"user_id"`
	Institution string    `bigquery:"institution"`
	Kind        string    `bigquery:"kind"`
	Balance     *big.Rat  `bigquery:"balance"` // NUMERIC
	ExportedTS  time.Time `bigquery:"exported_ts"`
}

// CardLimitRow is one row of ledger_card_limits.
type CardLimitRow struct {
	ExportID       string    `bigquery:"export_id"`
	CardID         string    `bigquery:"card_id"`
	UserID         string    `bigquery:"user_id"`
	Issuer         string    `bigquery:"issuer"`
	Brand          string    `bigquery:"brand"`
	AvailableLimit *big.Rat  `bigquery:"available_limit"` // NUMERIC
	DueDay         int64     `bigquery:"due_day"`
	ClosingDay     int64     `bigquery:"closing_day"`
	ExportedTS     time.Time `bigquery:"exported_ts"`
}

// ExportRow is one row of ledger_exports, the export history.
type ExportRow struct {
	ExportID      string    `bigquery:"export_id" json:"export_id"`
	UserID        string    `bigquery:"user_id" json:"user_id"`
	LedgerVersion int64     `bigquery:"ledger_version" json:"ledger_version"`
	Transactions  int64     `bigquery:"transactions" json:"transactions"`
	Accounts      int64     `bigquery:"accounts" json:"accounts"`
	Cards         int64     `bigquery:"cards" json:"cards"`
	ExportedTS    time.Time `bigquery:"exported_ts" json:"exported_ts"`
}

func numeric(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// TransactionRowsFromLedger converts every transaction of l, most recent
// first.
func TransactionRowsFromLedger(l *domain.Ledger, exportID string, exportedAt time.Time) []*TransactionRow {
	rows := make([]*TransactionRow, 0, len(l.Transactions()))
	for _, tx := range l.Transactions() {
		row := &TransactionRow{
			ExportID:        exportID,
			TransactionID:   tx.ID,
			UserID:          l.Owner,
			Type:            string(tx.Type),
			TransactionDate: civil.DateOf(tx.Date),
			Description:     tx.Description,
			Amount:          numeric(tx.Amount),
			Category:        tx.Category,
			AccountID:       nullString(tx.AccountID),
			CardID:          nullString(tx.CardID),
			GoalID:          nullString(tx.GoalID),
			CreatedTS:       tx.CreatedAt,
			UpdatedTS:       tx.UpdatedAt,
			ExportedTS:      exportedAt,
		}
		if inst := tx.Installment; inst != nil {
			row.PurchaseID = nullString(inst.PurchaseID)
			row.InstallmentNumber = bigquery.NullInt64{Int64: int64(inst.Number), Valid: true}
			row.InstallmentTotal = bigquery.NullInt64{Int64: int64(inst.Total), Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

// AccountBalanceRowsFromLedger converts the accounts of l.
func AccountBalanceRowsFromLedger(l *domain.Ledger, exportID string, exportedAt time.Time) []*AccountBalanceRow {
	rows := make([]*AccountBalanceRow, 0, len(l.Accounts()))
	for _, a := range l.Accounts() {
		rows = append(rows, &AccountBalanceRow{
			ExportID:    exportID,
			AccountID:   a.ID,
			UserID:      l.Owner,
			Institution: a.Institution,
			Kind:        string(a.Kind),
			Balance:     numeric(a.Balance),
			ExportedTS:  exportedAt,
		})
	}
	return rows
}

// CardLimitRowsFromLedger converts the cards of l.
func CardLimitRowsFromLedger(l *domain.Ledger, exportID string, exportedAt time.Time) []*CardLimitRow {
	rows := make([]*CardLimitRow, 0, len(l.Cards()))
	for _, c := range l.Cards() {
		rows = append(rows, &CardLimitRow{
			ExportID:       exportID,
			CardID:         c.ID,
			UserID:         l.Owner,
			Issuer:         c.Issuer,
			Brand:          c.Brand,
			AvailableLimit: numeric(c.AvailableLimit),
			DueDay:         int64(c.DueDay),
			ClosingDay:     int64(c.ClosingDay),
			ExportedTS:     exportedAt,
		})
	}
	return rows
}
