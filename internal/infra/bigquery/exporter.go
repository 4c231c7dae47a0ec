// Package bigquery exports ledger snapshots into BigQuery for analytics.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

const (
	transactionsTable    = "ledger_transactions"
	accountBalancesTable = "ledger_account_balances"
	cardLimitsTable      = "ledger_card_limits"
	exportsTable         = "ledger_exports"

	// DefaultListLimit caps ListExports when no limit is given.
	DefaultListLimit = 20
)

// putFunc streams rows into a table of the exporter's dataset.
type putFunc func(ctx context.Context, table string, rows interface{}) error

// Exporter writes ledger snapshots into a dataset. Every export is tagged
// with a fresh export_id so snapshots never overwrite each other.
type Exporter struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	put       putFunc
	log       zerolog.Logger
	now       func() time.Time
}

// NewExporter creates a BigQuery client for projectID.
func NewExporter(ctx context.Context, projectID, datasetID string, log zerolog.Logger) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: creating client: %w", err)
	}

	e := &Exporter{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
	e.put = e.insert
	return e, nil
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func (e *Exporter) insert(ctx context.Context, table string, rows interface{}) error {
	// Use fully qualified table name to avoid project ID issues
	inserter := e.client.DatasetInProject(e.projectID, e.datasetID).Table(table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("inserting rows into %s: %w", table, err)
	}
	return nil
}

// ExportLedger writes the transactions, account balances and card limits
// of l, then records the export in ledger_exports.
func (e *Exporter) ExportLedger(ctx context.Context, l *domain.Ledger) (*ExportRow, error) {
	exportID := uuid.NewString()
	exportedAt := e.now()

	txRows := TransactionRowsFromLedger(l, exportID, exportedAt)
	accountRows := AccountBalanceRowsFromLedger(l, exportID, exportedAt)
	cardRows := CardLimitRowsFromLedger(l, exportID, exportedAt)

	if len(txRows) > 0 {
		if err := e.put(ctx, transactionsTable, txRows); err != nil {
			return nil, fmt.Errorf("ExportLedger: %w", err)
		}
	}
	if len(accountRows) > 0 {
		if err := e.put(ctx, accountBalancesTable, accountRows); err != nil {
			return nil, fmt.Errorf("ExportLedger: %w", err)
		}
	}
	if len(cardRows) > 0 {
		if err := e.put(ctx, cardLimitsTable, cardRows); err != nil {
			return nil, fmt.Errorf("ExportLedger: %w", err)
		}
	}

	export := &ExportRow{
		ExportID:      exportID,
		UserID:        l.Owner,
		LedgerVersion: l.Version,
		Transactions:  int64(len(txRows)),
		Accounts:      int64(len(accountRows)),
		Cards:         int64(len(cardRows)),
		ExportedTS:    exportedAt,
	}
	if err := e.put(ctx, exportsTable, []*ExportRow{export}); err != nil {
		return nil, fmt.Errorf("ExportLedger: %w", err)
	}

	e.log.Info().
		Str("owner", l.Owner).
		Str("export_id", exportID).
		Int64("transactions", export.Transactions).
		Msg("Ledger exported")
	return export, nil
}

// ListExports returns the owner's export history, latest first.
func (e *Exporter) ListExports(ctx context.Context, owner string, limit int) ([]*ExportRow, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	q := e.client.Query(fmt.Sprintf(`
		SELECT
			export_id,
			user_id,
			ledger_version,
			transactions,
			accounts,
			cards,
			exported_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE user_id = @user_id
		ORDER BY exported_ts DESC
		LIMIT @limit
	`, e.projectID, e.datasetID, exportsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: owner},
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListExports: query read: %w", err)
	}

	var rows []*ExportRow
	for {
		var r ExportRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListExports: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
