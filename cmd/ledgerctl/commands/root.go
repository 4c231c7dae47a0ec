// Package commands implements the ledgerctl command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dvloznov/finance-ledger/cmd/ledgerctl/output"
	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Opener builds the application for a command run.
type Opener func(ctx context.Context, envFile string, debug bool) (*app.App, error)

// cli is the state shared by every command of one invocation.
type cli struct {
	envFile    string
	owner      string
	jsonOutput bool
	debug      bool

	open Opener
	app  *app.App
	out  io.Writer
}

// Execute runs ledgerctl against the configured store.
func Execute() {
	if err := NewRootCommand(OpenApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// OpenApp loads configuration from the environment and builds the app.
// Logs go to stderr, at debug level when asked.
func OpenApp(ctx context.Context, envFile string, debug bool) (*app.App, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	level := "warn"
	if debug {
		level = "debug"
	}
	log, err := logger.Configure(os.Stderr, level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}

// NewRootCommand builds the command tree. open is called once, before
// the selected subcommand runs.
func NewRootCommand(open Opener) *cobra.Command {
	c := &cli{open: open}

	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Manage personal finance ledgers",
		Long: `ledgerctl manages accounts, credit cards, savings goals and transactions
in a personal finance ledger, and runs the backup, export and Notion jobs
by hand.

Examples:
  ledgerctl --owner alice accounts add --institution "Bank" --kind checking --balance 1500
  ledgerctl --owner alice tx add --type CREDIT --card <id> --amount 1200 --installments 3 --category Electronics --description Phone
  ledgerctl --owner alice summary --months 6
  ledgerctl --owner alice backup`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.out = cmd.OutOrStdout()
			if !needsLedger(cmd) {
				return nil
			}
			if c.owner == "" {
				c.owner = os.Getenv("LEDGER_OWNER")
			}
			if c.owner == "" {
				return fmt.Errorf("--owner flag (or LEDGER_OWNER) is required")
			}
			a, err := c.open(cmd.Context(), c.envFile, c.debug)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.envFile, "env", "", "Path to a .env file (default: ./.env if present)")
	rootCmd.PersistentFlags().StringVarP(&c.owner, "owner", "u", "", "Ledger owner (default: LEDGER_OWNER)")
	rootCmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		c.accountsCmd(),
		c.cardsCmd(),
		c.goalsCmd(),
		c.txCmd(),
		c.purchaseCmd(),
		c.categoriesCmd(),
		c.summaryCmd(),
		c.insightsCmd(),
		c.backupCmd(),
		c.restoreCmd(),
		c.exportCmd(),
		c.notionSyncCmd(),
	)
	return rootCmd
}

func needsLedger(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return false
		}
	}
	return true
}

// print writes v as JSON when --json is set, otherwise calls render.
func (c *cli) print(v interface{}, render func()) error {
	if c.jsonOutput {
		return output.JSON(c.out, v)
	}
	render()
	return nil
}

func parseAmount(flag, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: invalid amount %q", flag, raw)
	}
	return d, nil
}

func parseDate(flag, raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: invalid date %q, expected YYYY-MM-DD", flag, raw)
	}
	return t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
