package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		total string
		count int
		want  []string
	}{
		{total: "1200", count: 3, want: []string{"400", "400", "400"}},
		{total: "100", count: 3, want: []string{"33.33", "33.33", "33.34"}},
		{total: "10", count: 12, want: []string{"0.83", "0.83", "0.83", "0.83", "0.83", "0.83", "0.83", "0.83", "0.83", "0.83", "0.83", "0.87"}},
		{total: "0.05", count: 2, want: []string{"0.02", "0.03"}},
		{total: "0.02", count: 2, want: []string{"0.01", "0.01"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.total, tt.count), func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			got, err := splitAmount(total, tt.count)
			if err != nil {
				t.Fatalf("splitAmount() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("splitAmount() returned %d amounts, want %d", len(got), len(tt.want))
			}
			sum := decimal.Zero
			for i, amt := range got {
				if !amt.Equal(decimal.RequireFromString(tt.want[i])) {
					t.Errorf("amount[%d] = %s, want %s", i, amt, tt.want[i])
				}
				sum = sum.Add(amt)
			}
			if !sum.Equal(total) {
				t.Errorf("sum = %s, want %s", sum, total)
			}
		})
	}
}

func TestSplitAmount_MinimumCent(t *testing.T) {
	tests := []struct {
		total   string
		count   int
		wantErr bool
		last    string
	}{
		{"0.11", 12, true, ""},
		{"0.12", 12, false, "0.01"},
		{"0.18", 12, false, "0.07"},
		{"0.01", 2, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			amounts, err := splitAmount(decimal.RequireFromString(tt.total), tt.count)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("splitAmount() error = %v, want ErrInvalidAmount", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitAmount() error = %v", err)
			}
			if len(amounts) != tt.count {
				t.Fatalf("got %d amounts, want %d", len(amounts), tt.count)
			}
			for _, amt := range amounts[:tt.count-1] {
				if !amt.Equal(decimal.RequireFromString("0.01")) {
					t.Errorf("installment = %s, want 0.01", amt)
				}
			}
			if last := amounts[tt.count-1]; !last.Equal(decimal.RequireFromString(tt.last)) {
				t.Errorf("last installment = %s, want %s", last, tt.last)
			}
		})
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		start string
		n     int
		want  string
	}{
		{"2024-01-15", 0, "2024-01-15"},
		{"2024-01-15", 1, "2024-02-15"},
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-03-31", 1, "2024-04-30"},
		{"2024-11-30", 2, "2025-01-30"},
		{"2024-08-31", 6, "2025-02-28"},
	}

	for _, tt := range tests {
		start, _ := time.Parse("2006-01-02", tt.start)
		got := addMonths(start, tt.n).Format("2006-01-02")
		if got != tt.want {
			t.Errorf("addMonths(%s, %d) = %s, want %s", tt.start, tt.n, got, tt.want)
		}
	}
}

func TestExpandInstallments(t *testing.T) {
	tmpl := &domain.Transaction{
		Type:        domain.Credit,
		Date:        time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Description: "Laptop",
		Amount:      decimal.NewFromInt(1000),
		Category:    "Electronics",
		CardID:      "c1",
	}

	n := 0
	newID := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}

	got, err := expandInstallments(tmpl, 3, "p1", newID)
	if err != nil {
		t.Fatalf("expandInstallments() error = %v", err)
	}

	wantDates := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	wantDesc := []string{"Laptop (1/3)", "Laptop (2/3)", "Laptop (3/3)"}
	for i, tx := range got {
		if tx.ID != fmt.Sprintf("id-%d", i+1) {
			t.Errorf("[%d] ID = %s", i, tx.ID)
		}
		if d := tx.Date.Format("2006-01-02"); d != wantDates[i] {
			t.Errorf("[%d] Date = %s, want %s", i, d, wantDates[i])
		}
		if tx.Description != wantDesc[i] {
			t.Errorf("[%d] Description = %q, want %q", i, tx.Description, wantDesc[i])
		}
		if tx.Installment == nil || tx.Installment.Number != i+1 || tx.Installment.Total != 3 || tx.Installment.PurchaseID != "p1" {
			t.Errorf("[%d] Installment = %+v", i, tx.Installment)
		}
		if tx.CardID != "c1" || tx.Category != "Electronics" {
			t.Errorf("[%d] lost template fields: %+v", i, tx)
		}
	}
	if tmpl.Installment != nil || tmpl.Description != "Laptop" {
		t.Error("expandInstallments() modified the template")
	}
}

func TestCategoryCatalog(t *testing.T) {
	open := NewCategoryCatalog(Rules{})
	if err := open.ValidateCategory("Anything"); err != nil {
		t.Errorf("open catalog rejected category: %v", err)
	}
	if err := open.ValidateCategory("  "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank category error = %v, want ErrInvalidInput", err)
	}
	for _, c := range []string{"savings", " Savings ", "GOAL", "goals"} {
		if !open.IsSavings(c) {
			t.Errorf("IsSavings(%q) = false", c)
		}
	}
	if open.IsSavings("Salary") {
		t.Error("IsSavings(Salary) = true")
	}

	strict := NewCategoryCatalog(Rules{
		Categories:        []string{"Groceries", "Rent"},
		SavingsCategories: []string{"Poupança"},
	})
	if err := strict.ValidateCategory(" groceries"); err != nil {
		t.Errorf("ValidateCategory(groceries) error = %v", err)
	}
	if err := strict.ValidateCategory("poupança"); err != nil {
		t.Errorf("savings marker rejected: %v", err)
	}
	var verr *ValidationError
	if err := strict.ValidateCategory("Travel"); !errors.As(err, &verr) || verr.Field != "category" {
		t.Errorf("ValidateCategory(Travel) error = %v, want category ValidationError", err)
	}
	if strict.IsSavings("savings") {
		t.Error("custom savings list still matches the default markers")
	}
}
