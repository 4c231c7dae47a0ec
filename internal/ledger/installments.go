package ledger

import (
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// MinInstallments is the smallest installment count that splits a purchase.
	MinInstallments = 2
	// MaxInstallments is the largest allowed installment count.
	MaxInstallments = 12
)

var cent = decimal.New(1, -2)

// splitAmount divides total into count amounts of two decimals. Each
// amount is total/count rounded down to the cent and the last one takes
// the remainder, so the amounts always sum to total.
func splitAmount(total decimal.Decimal, count int) ([]decimal.Decimal, error) {
	if count < 1 {
		return nil, invalid(ErrInvalidInput, "installments", "must be at least 1, got %d", count)
	}
	n := decimal.NewFromInt(int64(count))
	if total.LessThan(cent.Mul(n)) {
		return nil, invalid(ErrInvalidAmount, "amount", "%s cannot be split into %d installments of at least 0.01", total.StringFixed(2), count)
	}

	each := total.DivRound(n, 8).Truncate(2)
	out := make([]decimal.Decimal, count)
	for i := 0; i < count-1; i++ {
		out[i] = each
	}
	out[count-1] = total.Sub(each.Mul(decimal.NewFromInt(int64(count - 1))))
	return out, nil
}

// addMonths moves t forward by n calendar months. The day is clamped to
// the last day of the target month, so Jan 31 + 1 month is Feb 28 (or 29).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// expandInstallments turns one CREDIT purchase into count installment
// records sharing purchaseID. The template supplies every field except
// the id, date, description suffix, amount and installment info.
func expandInstallments(tmpl *domain.Transaction, count int, purchaseID string, newID func() string) ([]*domain.Transaction, error) {
	amounts, err := splitAmount(tmpl.Amount, count)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Transaction, 0, count)
	for i := 0; i < count; i++ {
		tx := tmpl.Clone()
		tx.ID = newID()
		tx.Date = addMonths(tmpl.Date, i)
		tx.Description = fmt.Sprintf("%s (%d/%d)", tmpl.Description, i+1, count)
		tx.Amount = amounts[i]
		tx.Installment = &domain.Installment{
			Number:     i + 1,
			Total:      count,
			PurchaseID: purchaseID,
		}
		out = append(out, tx)
	}
	return out, nil
}
