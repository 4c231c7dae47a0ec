// Package postgres stores ledgers in PostgreSQL, one row per record.
// Updates lock the owner's row in ledger_owners, so concurrent writers for
// the same owner are serialised across processes.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store is a ledger.Store backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and checks the connection.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("Connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Connect: ping: %w", err)
	}
	return pool, nil
}

// New wraps an existing pool. The schema must already be migrated.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to dsn, applies migrations and returns the store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := ApplyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return New(pool), nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// View implements the ledger.Store interface. It reads from a read-only
// repeatable-read transaction so fn sees one consistent snapshot.
func (s *Store) View(ctx context.Context, owner string, fn func(l *domain.Ledger) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("View: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int64
	err = tx.QueryRow(ctx, `SELECT version FROM ledger_owners WHERE owner=$1`, owner).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return fn(domain.EmptyLedger(owner))
	}
	if err != nil {
		return fmt.Errorf("View: %w", err)
	}

	l, err := loadLedger(ctx, tx, owner, version)
	if err != nil {
		return err
	}
	return fn(l)
}

// Update implements the ledger.Store interface.
func (s *Store) Update(ctx context.Context, owner string, fn func(l *domain.Ledger) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("Update: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO ledger_owners(owner) VALUES($1) ON CONFLICT (owner) DO NOTHING`, owner); err != nil {
		return fmt.Errorf("Update: registering owner: %w", err)
	}
	var version int64
	if err := tx.QueryRow(ctx, `SELECT version FROM ledger_owners WHERE owner=$1 FOR UPDATE`, owner).Scan(&version); err != nil {
		return fmt.Errorf("Update: locking owner: %w", err)
	}

	l, err := loadLedger(ctx, tx, owner, version)
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	if !l.HasChanges() {
		return nil
	}

	if err := saveChanges(ctx, tx, l); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE ledger_owners SET version=$2, updated_at=now() WHERE owner=$1`, owner, l.Version+1); err != nil {
		return fmt.Errorf("Update: bumping version: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("Update: commit: %w", err)
	}

	l.Version++
	l.ResetChanges()
	return nil
}

// Owners implements the ledger.Store interface.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT owner FROM ledger_owners ORDER BY owner`)
	if err != nil {
		return nil, fmt.Errorf("Owners: %w", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("Owners: %w", err)
	}
	return owners, nil
}

func loadLedger(ctx context.Context, tx pgx.Tx, owner string, version int64) (*domain.Ledger, error) {
	accounts, err := queryAccounts(ctx, tx, owner)
	if err != nil {
		return nil, err
	}
	cards, err := queryCards(ctx, tx, owner)
	if err != nil {
		return nil, err
	}
	goals, err := queryGoals(ctx, tx, owner)
	if err != nil {
		return nil, err
	}
	transactions, err := queryTransactions(ctx, tx, owner)
	if err != nil {
		return nil, err
	}
	return domain.NewLedger(owner, version, accounts, cards, goals, transactions), nil
}

func queryAccounts(ctx context.Context, tx pgx.Tx, owner string) ([]*domain.Account, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, seq, institution, kind, balance::text, created_at, updated_at
		FROM ledger_accounts WHERE owner=$1 ORDER BY seq
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("queryAccounts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		a := &domain.Account{Owner: owner}
		var balance, kind string
		if err := rows.Scan(&a.ID, &a.Seq, &a.Institution, &kind, &balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("queryAccounts: scan: %w", err)
		}
		a.Kind = domain.AccountKind(kind)
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("queryAccounts: balance: %w", err)
		}
		a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func queryCards(ctx context.Context, tx pgx.Tx, owner string) ([]*domain.CreditCard, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, seq, issuer, brand, available_limit::text, due_day, closing_offset, closing_day, created_at, updated_at
		FROM ledger_cards WHERE owner=$1 ORDER BY seq
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("queryCards: %w", err)
	}
	defer rows.Close()

	var out []*domain.CreditCard
	for rows.Next() {
		c := &domain.CreditCard{Owner: owner}
		var limit string
		if err := rows.Scan(&c.ID, &c.Seq, &c.Issuer, &c.Brand, &limit, &c.DueDay, &c.ClosingOffset, &c.ClosingDay, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("queryCards: scan: %w", err)
		}
		if c.AvailableLimit, err = decimal.NewFromString(limit); err != nil {
			return nil, fmt.Errorf("queryCards: available_limit: %w", err)
		}
		c.CreatedAt, c.UpdatedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func queryGoals(ctx context.Context, tx pgx.Tx, owner string) ([]*domain.Goal, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, seq, name, target_amount::text, current_amount::text, deadline, icon, created_at, updated_at
		FROM ledger_goals WHERE owner=$1 ORDER BY seq
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("queryGoals: %w", err)
	}
	defer rows.Close()

	var out []*domain.Goal
	for rows.Next() {
		g := &domain.Goal{Owner: owner}
		var target, current string
		var deadline *time.Time
		if err := rows.Scan(&g.ID, &g.Seq, &g.Name, &target, &current, &deadline, &g.Icon, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("queryGoals: scan: %w", err)
		}
		if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("queryGoals: target_amount: %w", err)
		}
		if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
			return nil, fmt.Errorf("queryGoals: current_amount: %w", err)
		}
		if deadline != nil {
			d := domain.DateOnly(*deadline)
			g.Deadline = &d
		}
		g.CreatedAt, g.UpdatedAt = g.CreatedAt.UTC(), g.UpdatedAt.UTC()
		out = append(out, g)
	}
	return out, rows.Err()
}

func queryTransactions(ctx context.Context, tx pgx.Tx, owner string) ([]*domain.Transaction, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, seq, type, date, description, amount::text, category,
		       COALESCE(account_id, ''), COALESCE(card_id, ''), COALESCE(goal_id, ''),
		       COALESCE(installment_number, 0), COALESCE(installment_total, 0), COALESCE(purchase_id, ''),
		       created_at, updated_at
		FROM ledger_transactions WHERE owner=$1 ORDER BY seq DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("queryTransactions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t := &domain.Transaction{Owner: owner}
		var (
			typ, amount   string
			number, total int
			purchaseID    string
		)
		if err := rows.Scan(&t.ID, &t.Seq, &typ, &t.Date, &t.Description, &amount, &t.Category,
			&t.AccountID, &t.CardID, &t.GoalID, &number, &total, &purchaseID,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("queryTransactions: scan: %w", err)
		}
		t.Type = domain.TransactionType(typ)
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("queryTransactions: amount: %w", err)
		}
		if purchaseID != "" {
			t.Installment = &domain.Installment{Number: number, Total: total, PurchaseID: purchaseID}
		}
		t.Date = domain.DateOnly(t.Date)
		t.CreatedAt, t.UpdatedAt = t.CreatedAt.UTC(), t.UpdatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

var deleteStatements = map[domain.EntityKind]string{
	domain.KindAccount:     `DELETE FROM ledger_accounts WHERE owner=$1 AND id=$2`,
	domain.KindCard:        `DELETE FROM ledger_cards WHERE owner=$1 AND id=$2`,
	domain.KindGoal:        `DELETE FROM ledger_goals WHERE owner=$1 AND id=$2`,
	domain.KindTransaction: `DELETE FROM ledger_transactions WHERE owner=$1 AND id=$2`,
}

const (
	upsertAccount = `
		INSERT INTO ledger_accounts (owner, id, seq, institution, kind, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)
		ON CONFLICT (owner, id) DO UPDATE SET
			seq=EXCLUDED.seq, institution=EXCLUDED.institution, kind=EXCLUDED.kind,
			balance=EXCLUDED.balance, created_at=EXCLUDED.created_at, updated_at=EXCLUDED.updated_at`

	upsertCard = `
		INSERT INTO ledger_cards (owner, id, seq, issuer, brand, available_limit, due_day, closing_offset, closing_day, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11)
		ON CONFLICT (owner, id) DO UPDATE SET
			seq=EXCLUDED.seq, issuer=EXCLUDED.issuer, brand=EXCLUDED.brand,
			available_limit=EXCLUDED.available_limit, due_day=EXCLUDED.due_day,
			closing_offset=EXCLUDED.closing_offset, closing_day=EXCLUDED.closing_day,
			created_at=EXCLUDED.created_at, updated_at=EXCLUDED.updated_at`

	upsertGoal = `
		INSERT INTO ledger_goals (owner, id, seq, name, target_amount, current_amount, deadline, icon, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10)
		ON CONFLICT (owner, id) DO UPDATE SET
			seq=EXCLUDED.seq, name=EXCLUDED.name, target_amount=EXCLUDED.target_amount,
			current_amount=EXCLUDED.current_amount, deadline=EXCLUDED.deadline, icon=EXCLUDED.icon,
			created_at=EXCLUDED.created_at, updated_at=EXCLUDED.updated_at`

	upsertTransaction = `
		INSERT INTO ledger_transactions (owner, id, seq, type, date, description, amount, category,
			account_id, card_id, goal_id, installment_number, installment_total, purchase_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''),
			$12, $13, $14, $15, $16)
		ON CONFLICT (owner, id) DO UPDATE SET
			seq=EXCLUDED.seq, type=EXCLUDED.type, date=EXCLUDED.date, description=EXCLUDED.description,
			amount=EXCLUDED.amount, category=EXCLUDED.category, account_id=EXCLUDED.account_id,
			card_id=EXCLUDED.card_id, goal_id=EXCLUDED.goal_id,
			installment_number=EXCLUDED.installment_number, installment_total=EXCLUDED.installment_total,
			purchase_id=EXCLUDED.purchase_id, created_at=EXCLUDED.created_at, updated_at=EXCLUDED.updated_at`
)

// saveChanges queues one statement per changed record and sends them as a
// single batch.
func saveChanges(ctx context.Context, tx pgx.Tx, l *domain.Ledger) error {
	batch := &pgx.Batch{}
	for _, ch := range l.Changes() {
		if ch.Deleted {
			batch.Queue(deleteStatements[ch.Kind], l.Owner, ch.ID)
			continue
		}

		switch ch.Kind {
		case domain.KindAccount:
			a, _ := l.Account(ch.ID)
			batch.Queue(upsertAccount, l.Owner, a.ID, a.Seq, a.Institution, string(a.Kind),
				a.Balance.String(), a.CreatedAt, a.UpdatedAt)
		case domain.KindCard:
			c, _ := l.Card(ch.ID)
			batch.Queue(upsertCard, l.Owner, c.ID, c.Seq, c.Issuer, c.Brand, c.AvailableLimit.String(),
				c.DueDay, c.ClosingOffset, c.ClosingDay, c.CreatedAt, c.UpdatedAt)
		case domain.KindGoal:
			g, _ := l.Goal(ch.ID)
			var deadline *time.Time
			if g.Deadline != nil {
				d := domain.DateOnly(*g.Deadline)
				deadline = &d
			}
			batch.Queue(upsertGoal, l.Owner, g.ID, g.Seq, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(),
				deadline, g.Icon, g.CreatedAt, g.UpdatedAt)
		case domain.KindTransaction:
			t, _ := l.Transaction(ch.ID)
			var number, total *int
			var purchaseID *string
			if t.Installment != nil {
				number, total, purchaseID = &t.Installment.Number, &t.Installment.Total, &t.Installment.PurchaseID
			}
			batch.Queue(upsertTransaction, l.Owner, t.ID, t.Seq, string(t.Type), domain.DateOnly(t.Date),
				t.Description, t.Amount.String(), t.Category, t.AccountID, t.CardID, t.GoalID,
				number, total, purchaseID, t.CreatedAt, t.UpdatedAt)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saveChanges: %w", err)
	}
	return nil
}

// Ensure Store implements the ledger.Store interface.
var _ ledger.Store = (*Store)(nil)
