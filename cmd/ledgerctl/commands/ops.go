package commands

import (
	"fmt"
	"strconv"

	"github.com/dvloznov/finance-ledger/cmd/ledgerctl/output"
	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/spf13/cobra"
)

func (c *cli) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload a snapshot of the ledger to GCS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.Backups == nil {
				return fmt.Errorf("backup: %w (set GCS_BUCKET)", app.ErrNotConfigured)
			}
			result, err := c.app.Backups.Backup(cmd.Context(), c.owner)
			if err != nil {
				return err
			}
			return c.print(result, func() {
				output.Success(c.out, "Backed up %d transaction(s) to %s", result.Transactions, result.URI)
			})
		},
	}
}

func (c *cli) restoreCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <gs://bucket/object>",
		Short: "Replace the ledger with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.Backups == nil {
				return fmt.Errorf("restore: %w (set GCS_BUCKET)", app.ErrNotConfigured)
			}
			if !yes {
				return fmt.Errorf("restore overwrites the ledger of %s; pass --yes to confirm", c.owner)
			}
			snap, err := c.app.Backups.Restore(cmd.Context(), c.owner, args[0])
			if err != nil {
				return err
			}
			return c.print(snap, func() {
				output.Success(c.out, "Restored %d account(s), %d card(s), %d goal(s) and %d transaction(s) from %s",
					len(snap.Accounts), len(snap.Cards), len(snap.Goals), len(snap.Transactions), args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm overwriting the ledger")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger to BigQuery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.Exporter == nil {
				return fmt.Errorf("export: %w (set GCP_PROJECT_ID)", app.ErrNotConfigured)
			}
			l, err := c.app.Ledger.Snapshot(cmd.Context(), c.owner)
			if err != nil {
				return err
			}
			row, err := c.app.Exporter.ExportLedger(cmd.Context(), l)
			if err != nil {
				return err
			}
			return c.print(row, func() {
				output.Success(c.out, "Exported %d transaction(s) as %s", row.Transactions, row.ExportID)
			})
		},
	}

	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List previous exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.Exporter == nil {
				return fmt.Errorf("export: %w (set GCP_PROJECT_ID)", app.ErrNotConfigured)
			}
			rows, err := c.app.Exporter.ListExports(cmd.Context(), c.owner, limit)
			if err != nil {
				return err
			}
			return c.print(rows, func() { c.renderExports(rows) })
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", bigquery.DefaultListLimit, "Maximum rows")

	cmd.AddCommand(historyCmd)
	return cmd
}

func (c *cli) renderExports(rows []*bigquery.ExportRow) {
	if len(rows) == 0 {
		output.Muted(c.out, "No exports yet.")
		return
	}
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{
			r.ExportID, r.ExportedTS.Format("2006-01-02 15:04"),
			strconv.FormatInt(r.LedgerVersion, 10), strconv.FormatInt(r.Transactions, 10),
		})
	}
	output.Table(c.out, []string{"Export", "Exported", "Version", "Transactions"}, table)
}

func (c *cli) notionSyncCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "notion-sync",
		Short: "Mirror transactions into the Notion database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.Notion == nil {
				return fmt.Errorf("notion-sync: %w (set NOTION_TOKEN and NOTION_DATABASE_ID)", app.ErrNotConfigured)
			}
			result, err := c.app.Notion.SyncOwner(cmd.Context(), c.owner, dryRun)
			if err != nil {
				return err
			}
			return c.print(result, func() {
				if result.DryRun {
					output.Warning(c.out, "Dry run: nothing was written")
				}
				output.KeyValues(c.out,
					[2]string{"Created", strconv.Itoa(result.Created)},
					[2]string{"Updated", strconv.Itoa(result.Updated)},
					[2]string{"Unchanged", strconv.Itoa(result.Unchanged)},
					[2]string{"Archived", strconv.Itoa(result.Archived)},
					[2]string{"Failed", strconv.Itoa(result.Failed)},
				)
				if result.Failed > 0 {
					output.Error(c.out, "%d page(s) failed to sync", result.Failed)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without writing to Notion")
	return cmd
}
