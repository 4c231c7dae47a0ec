// Package notionsync mirrors ledger transactions into a Notion database.
package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
)

// pageSize is the Notion query page size (the API maximum).
const pageSize = 100

// Result counts what a sync did, or would do in dry-run mode.
type Result struct {
	Owner     string `json:"owner"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Archived  int    `json:"archived"`
	Failed    int    `json:"failed"`
	DryRun    bool   `json:"dry_run"`
}

// Syncer mirrors one owner's transactions at a time into a database
// shared by every owner. Pages are matched by the Transaction ID property
// and scoped by the Owner property.
type Syncer struct {
	ledgers    SnapshotSource
	notion     NotionService
	databaseID string
	log        zerolog.Logger
}

// NewSyncer creates a Syncer writing into databaseID.
func NewSyncer(ledgers SnapshotSource, notion NotionService, databaseID string, log zerolog.Logger) *Syncer {
	return &Syncer{ledgers: ledgers, notion: notion, databaseID: databaseID, log: log}
}

// SyncOwner loads the owner's ledger and mirrors it.
func (s *Syncer) SyncOwner(ctx context.Context, owner string, dryRun bool) (*Result, error) {
	l, err := s.ledgers.Snapshot(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("SyncOwner: %w", err)
	}
	return s.Sync(ctx, l, dryRun)
}

// Sync brings the owner's pages in line with l:
//  1. pages whose transaction is gone, or duplicates, are archived
//  2. pages whose transaction changed since the last sync are updated
//  3. transactions without a page get one
//
// A failure on a single page is logged and counted; the sync continues.
func (s *Syncer) Sync(ctx context.Context, l *domain.Ledger, dryRun bool) (*Result, error) {
	log := s.log.With().Str("owner", l.Owner).Bool("dry_run", dryRun).Logger()
	res := &Result{Owner: l.Owner, DryRun: dryRun}

	log.Info().Int("transaction_count", len(l.Transactions())).Msg("Starting transaction sync to Notion")

	pages, err := s.ownerPages(ctx, l.Owner)
	if err != nil {
		return nil, fmt.Errorf("Sync: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	byTx := make(map[string]notionapi.Page)
	for _, page := range pages {
		txID := extractTransactionID(page)
		_, live := l.Transaction(txID)
		_, seen := byTx[txID]
		if txID != "" && live && !seen {
			byTx[txID] = page
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := s.notion.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Archived++
	}

	for _, tx := range l.Transactions() {
		page, exists := byTx[tx.ID]
		if exists {
			if stored, ok := extractUpdatedAt(page); ok && stored.Truncate(time.Second).Equal(tx.UpdatedAt.Truncate(time.Second)) {
				res.Unchanged++
				continue
			}
		}

		props := TransactionToNotionProperties(l.Owner, tx)
		switch {
		case dryRun && exists:
			log.Info().Str("transaction_id", tx.ID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would update Notion page")
			res.Updated++
		case dryRun:
			log.Info().Str("transaction_id", tx.ID).Str("description", tx.Description).Msg("[DRY RUN] Would create Notion page")
			res.Created++
		case exists:
			if _, err := s.notion.UpdatePage(ctx, string(page.ID), props); err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
		default:
			if _, err := s.notion.CreatePage(ctx, s.databaseID, props); err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
				res.Failed++
				continue
			}
			res.Created++
		}
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("unchanged", res.Unchanged).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("Transaction sync completed")
	return res, nil
}

// ownerPages queries every page tagged with owner, following pagination.
func (s *Syncer) ownerPages(ctx context.Context, owner string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter: &notionapi.PropertyFilter{
				Property: PropOwner,
				RichText: &notionapi.TextFilterCondition{Equals: owner},
			},
			PageSize: pageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := s.notion.QueryDatabase(ctx, s.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("ownerPages: %w", err)
		}

		for _, page := range resp.Results {
			if plainText(page, PropOwner) == owner {
				allPages = append(allPages, page)
			}
		}

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
