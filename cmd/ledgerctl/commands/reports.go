package commands

import (
	"fmt"
	"strconv"

	"github.com/dvloznov/finance-ledger/cmd/ledgerctl/output"
	"github.com/dvloznov/finance-ledger/internal/insights"
	"github.com/spf13/cobra"
)

func (c *cli) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show the category catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories := c.app.Ledger.Catalog().Allowed()
			return c.print(categories, func() {
				if len(categories) == 0 {
					output.Info(c.out, "No category catalog configured; any category is accepted.")
					return
				}
				for _, name := range categories {
					fmt.Fprintln(c.out, name)
				}
			})
		},
	}
}

func (c *cli) summaryCmd() *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarise balances, spending and goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := c.app.Insights.Summary(cmd.Context(), c.owner, months)
			if err != nil {
				return err
			}
			return c.print(summary, func() { c.renderSummary(summary) })
		},
	}
	cmd.Flags().IntVar(&months, "months", insights.DefaultMonths, "Months of history to include")
	return cmd
}

func (c *cli) insightsCmd() *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Ask Gemini for observations about the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.app.Insights.Generate(cmd.Context(), c.owner, months)
			if err != nil {
				return err
			}
			return c.print(report, func() {
				output.Section(c.out, fmt.Sprintf("Insights for %s", c.owner))
				if len(report.Insights) == 0 {
					output.Muted(c.out, "Nothing to report.")
				}
				for _, in := range report.Insights {
					fmt.Fprintf(c.out, "%s %s\n", output.SeverityIcon(in.Severity), in.Title)
					output.Muted(c.out, "  %s", in.Body)
				}
			})
		},
	}
	cmd.Flags().IntVar(&months, "months", insights.DefaultMonths, "Months of history to include")
	return cmd
}

func (c *cli) renderSummary(s *insights.Summary) {
	output.Section(c.out, fmt.Sprintf("Ledger summary for %s since %s", s.Owner, s.From.Format("2006-01-02")))
	output.KeyValues(c.out,
		[2]string{"Total balance", output.Money(s.TotalBalance)},
		[2]string{"Available credit", output.Money(s.AvailableCredit)},
		[2]string{"Income", output.Money(s.Income)},
		[2]string{"Spending", output.Money(s.Spending)},
		[2]string{"On credit", output.Money(s.CreditSpending)},
		[2]string{"Transactions", strconv.Itoa(s.Transactions)},
	)

	if len(s.Categories) > 0 {
		output.Section(c.out, "Spending by category")
		rows := make([][]string, 0, len(s.Categories))
		for _, cat := range s.Categories {
			rows = append(rows, []string{cat.Category, output.Money(cat.Amount)})
		}
		output.Table(c.out, []string{"Category", "Amount"}, rows)
	}

	if len(s.Goals) > 0 {
		output.Section(c.out, "Goals")
		rows := make([][]string, 0, len(s.Goals))
		for _, g := range s.Goals {
			rows = append(rows, []string{
				g.Name, output.Money(g.Current), output.Money(g.Target),
				g.Progress.StringFixed(1) + "%", formatDate(g.Deadline),
			})
		}
		output.Table(c.out, []string{"Goal", "Saved", "Target", "Progress", "Deadline"}, rows)
	}
}
