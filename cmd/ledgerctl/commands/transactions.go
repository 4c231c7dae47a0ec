package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/cmd/ledgerctl/output"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/spf13/cobra"
)

// txFields are the flags shared by tx add and tx update.
type txFields struct {
	typ, date, description, amount, category string
	account, card, goal                      string
	installments                             int
}

func (f *txFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.typ, "type", "", "DEBIT, CREDIT or RECEIVE")
	cmd.Flags().StringVar(&f.date, "date", "", "Transaction date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&f.description, "description", "", "Description")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Amount")
	cmd.Flags().StringVar(&f.category, "category", "", "Category")
	cmd.Flags().StringVar(&f.account, "account", "", "Account id (DEBIT and RECEIVE)")
	cmd.Flags().StringVar(&f.card, "card", "", "Card id (CREDIT)")
	cmd.Flags().StringVar(&f.goal, "goal", "", "Goal credited by a savings RECEIVE")
}

func (c *cli) txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Record and browse transactions",
	}

	var filter ledger.TransactionFilter
	var filterType, from, to string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := filter
			if filterType != "" {
				f.Type = domain.TransactionType(strings.ToUpper(filterType))
			}
			if from != "" {
				d, err := parseDate("from", from)
				if err != nil {
					return err
				}
				f.From = &d
			}
			if to != "" {
				d, err := parseDate("to", to)
				if err != nil {
					return err
				}
				f.To = &d
			}

			txs, total, err := c.app.Ledger.ListTransactions(cmd.Context(), c.owner, f)
			if err != nil {
				return err
			}
			result := map[string]interface{}{"transactions": txs, "total": total}
			return c.print(result, func() {
				c.renderTransactions(txs)
				output.Muted(c.out, "Showing %d of %d", len(txs), total)
			})
		},
	}
	listCmd.Flags().StringVar(&filter.Search, "search", "", "Match descriptions containing this text")
	listCmd.Flags().StringVar(&filter.Category, "category", "", "Only this category")
	listCmd.Flags().StringVar(&filterType, "type", "", "Only this type")
	listCmd.Flags().StringVar(&filter.AccountID, "account", "", "Only this account")
	listCmd.Flags().StringVar(&filter.CardID, "card", "", "Only this card")
	listCmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD)")
	listCmd.Flags().IntVar(&filter.Limit, "limit", 50, "Maximum rows (0 for all)")
	listCmd.Flags().IntVar(&filter.Offset, "offset", 0, "Rows to skip")

	var add txFields
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record a transaction and apply it to its account, card or goal.

A CREDIT with --installments 2 or more is split into monthly installments
that share a purchase id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := ledger.TransactionInput{
				Type:         domain.TransactionType(strings.ToUpper(add.typ)),
				Description:  add.description,
				Category:     add.category,
				AccountID:    add.account,
				CardID:       add.card,
				GoalID:       add.goal,
				Installments: add.installments,
				Date:         time.Now().UTC(),
			}
			var err error
			if in.Amount, err = parseAmount("amount", add.amount); err != nil {
				return err
			}
			if add.date != "" {
				if in.Date, err = parseDate("date", add.date); err != nil {
					return err
				}
			}

			created, err := c.app.Ledger.CreateTransaction(cmd.Context(), c.owner, in)
			if err != nil {
				return err
			}
			return c.print(created, func() {
				if len(created) == 1 {
					output.Success(c.out, "Recorded transaction %s", created[0].ID)
					return
				}
				output.Success(c.out, "Recorded %d installments of purchase %s", len(created), created[0].PurchaseID())
				c.renderTransactions(created)
			})
		},
	}
	add.register(addCmd)
	addCmd.Flags().IntVar(&add.installments, "installments", 0, "Split a CREDIT into this many monthly installments")

	var upd txFields
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a transaction and re-apply its effect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := upd.patch(cmd)
			if err != nil {
				return err
			}
			tx, err := c.app.Ledger.UpdateTransaction(cmd.Context(), c.owner, args[0], patch)
			if err != nil {
				return err
			}
			return c.print(tx, func() { output.Success(c.out, "Updated transaction %s", tx.ID) })
		},
	}
	upd.register(updateCmd)

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := c.app.Ledger.GetTransaction(cmd.Context(), c.owner, args[0])
			if err != nil {
				return err
			}
			return c.print(tx, func() { c.renderTransactions([]*domain.Transaction{tx}) })
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction and reverse its effect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Ledger.DeleteTransaction(cmd.Context(), c.owner, args[0]); err != nil {
				return err
			}
			return c.print(map[string]string{"deleted": args[0]}, func() { output.Success(c.out, "Deleted transaction %s", args[0]) })
		},
	}

	cmd.AddCommand(listCmd, addCmd, updateCmd, showCmd, deleteCmd)
	return cmd
}

// patch builds a TransactionPatch from the flags set on cmd.
func (f *txFields) patch(cmd *cobra.Command) (ledger.TransactionPatch, error) {
	var patch ledger.TransactionPatch
	flags := cmd.Flags()

	if flags.Changed("type") {
		t := domain.TransactionType(strings.ToUpper(f.typ))
		patch.Type = &t
	}
	if flags.Changed("date") {
		d, err := parseDate("date", f.date)
		if err != nil {
			return patch, err
		}
		patch.Date = &d
	}
	if flags.Changed("amount") {
		a, err := parseAmount("amount", f.amount)
		if err != nil {
			return patch, err
		}
		patch.Amount = &a
	}
	if flags.Changed("description") {
		patch.Description = &f.description
	}
	if flags.Changed("category") {
		patch.Category = &f.category
	}
	if flags.Changed("account") {
		patch.AccountID = &f.account
	}
	if flags.Changed("card") {
		patch.CardID = &f.card
	}
	if flags.Changed("goal") {
		patch.GoalID = &f.goal
	}
	return patch, nil
}

func (c *cli) purchaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Inspect or remove installment purchases",
	}

	showCmd := &cobra.Command{
		Use:   "show <purchase-id>",
		Short: "List the installments of a purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := c.app.Ledger.ListPurchase(cmd.Context(), c.owner, args[0])
			if err != nil {
				return err
			}
			return c.print(txs, func() { c.renderTransactions(txs) })
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <purchase-id>",
		Short: "Delete every remaining installment of a purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.app.Ledger.DeletePurchase(cmd.Context(), c.owner, args[0])
			if err != nil {
				return err
			}
			result := map[string]interface{}{"purchase_id": args[0], "deleted": n}
			return c.print(result, func() { output.Success(c.out, "Deleted %d installment(s) of purchase %s", n, args[0]) })
		},
	}

	cmd.AddCommand(showCmd, deleteCmd)
	return cmd
}

func (c *cli) renderTransactions(txs []*domain.Transaction) {
	if len(txs) == 0 {
		output.Muted(c.out, "No transactions.")
		return
	}
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		target := tx.AccountID
		if tx.Type == domain.Credit {
			target = tx.CardID
		}
		installment := "-"
		if tx.Installment != nil {
			installment = fmt.Sprintf("%d/%d", tx.Installment.Number, tx.Installment.Total)
		}
		rows = append(rows, []string{
			tx.ID, tx.Date.Format("2006-01-02"), string(tx.Type), tx.Description,
			tx.Category, output.Money(tx.Amount), target, installment,
		})
	}
	output.Table(c.out, []string{"ID", "Date", "Type", "Description", "Category", "Amount", "Account/Card", "Inst."}, rows)
}
