package commands

import (
	"fmt"
	"strconv"

	"github.com/dvloznov/finance-ledger/cmd/ledgerctl/output"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/spf13/cobra"
)

func (c *cli) accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Manage bank accounts",
	}

	var institution, kind, balance string
	addFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&institution, "institution", "", "Bank or institution name")
		cmd.Flags().StringVar(&kind, "kind", string(domain.AccountChecking), "Account kind: checking, savings, payment or business")
		cmd.Flags().StringVar(&balance, "balance", "0", "Current balance")
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := c.app.Ledger.ListAccounts(cmd.Context(), c.owner)
			if err != nil {
				return err
			}
			return c.print(accounts, func() { c.renderAccounts(accounts) })
		},
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount("balance", balance)
			if err != nil {
				return err
			}
			account, err := c.app.Ledger.CreateAccount(cmd.Context(), c.owner, ledger.AccountInput{
				Institution: institution,
				Kind:        domain.AccountKind(kind),
				Balance:     amount,
			})
			if err != nil {
				return err
			}
			return c.print(account, func() {
				output.Success(c.out, "Created account %s (%s, %s)", account.ID, account.Institution, output.Money(account.Balance))
			})
		},
	}
	addFlags(addCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an account's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch ledger.AccountPatch
			flags := cmd.Flags()
			if flags.Changed("institution") {
				patch.Institution = &institution
			}
			if flags.Changed("kind") {
				k := domain.AccountKind(kind)
				patch.Kind = &k
			}
			if flags.Changed("balance") {
				amount, err := parseAmount("balance", balance)
				if err != nil {
					return err
				}
				patch.Balance = &amount
			}
			account, err := c.app.Ledger.UpdateAccount(cmd.Context(), c.owner, args[0], patch)
			if err != nil {
				return err
			}
			return c.print(account, func() { output.Success(c.out, "Updated account %s", account.ID) })
		},
	}
	addFlags(updateCmd)

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := c.app.Ledger.GetAccount(cmd.Context(), c.owner, args[0])
			if err != nil {
				return err
			}
			return c.print(account, func() { c.renderAccounts([]*domain.Account{account}) })
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Long:  "Delete an account. Transactions that reference it are kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Ledger.DeleteAccount(cmd.Context(), c.owner, args[0]); err != nil {
				return err
			}
			return c.print(map[string]string{"deleted": args[0]}, func() { output.Success(c.out, "Deleted account %s", args[0]) })
		},
	}

	cmd.AddCommand(listCmd, addCmd, updateCmd, showCmd, deleteCmd)
	return cmd
}

func (c *cli) renderAccounts(accounts []*domain.Account) {
	if len(accounts) == 0 {
		output.Muted(c.out, "No accounts.")
		return
	}
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{a.ID, a.Institution, string(a.Kind), output.Money(a.Balance)})
	}
	output.Table(c.out, []string{"ID", "Institution", "Kind", "Balance"}, rows)
}

func (c *cli) cardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cards",
		Aliases: []string{"card"},
		Short:   "Manage credit cards",
	}

	var issuer, brand, limit string
	var dueDay, closingOffset int
	addFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&issuer, "issuer", "", "Card issuer")
		cmd.Flags().StringVar(&brand, "brand", "", "Card brand")
		cmd.Flags().StringVar(&limit, "limit", "0", "Available limit")
		cmd.Flags().IntVar(&dueDay, "due-day", 1, "Day of month the bill is due (1-31)")
		cmd.Flags().IntVar(&closingOffset, "closing-offset", 7, "Days before the due day the statement closes")
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List credit cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := c.app.Ledger.ListCards(cmd.Context(), c.owner)
			if err != nil {
				return err
			}
			return c.print(cards, func() { c.renderCards(cards) })
		},
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a credit card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount("limit", limit)
			if err != nil {
				return err
			}
			card, err := c.app.Ledger.CreateCard(cmd.Context(), c.owner, ledger.CardInput{
				Issuer:         issuer,
				Brand:          brand,
				AvailableLimit: amount,
				DueDay:         dueDay,
				ClosingOffset:  closingOffset,
			})
			if err != nil {
				return err
			}
			return c.print(card, func() {
				output.Success(c.out, "Created card %s (%s %s, closes on day %d)", card.ID, card.Issuer, card.Brand, card.ClosingDay)
			})
		},
	}
	addFlags(addCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a card's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch ledger.CardPatch
			flags := cmd.Flags()
			if flags.Changed("issuer") {
				patch.Issuer = &issuer
			}
			if flags.Changed("brand") {
				patch.Brand = &brand
			}
			if flags.Changed("limit") {
				amount, err := parseAmount("limit", limit)
				if err != nil {
					return err
				}
				patch.AvailableLimit = &amount
			}
			if flags.Changed("due-day") {
				patch.DueDay = &dueDay
			}
			if flags.Changed("closing-offset") {
				patch.ClosingOffset = &closingOffset
			}
			card, err := c.app.Ledger.UpdateCard(cmd.Context(), c.owner, args[0], patch)
			if err != nil {
				return err
			}
			return c.print(card, func() { output.Success(c.out, "Updated card %s", card.ID) })
		},
	}
	addFlags(updateCmd)

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a credit card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := c.app.Ledger.GetCard(cmd.Context(), c.owner, args[0])
			if err != nil {
				return err
			}
			return c.print(card, func() { c.renderCards([]*domain.CreditCard{card}) })
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a credit card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Ledger.DeleteCard(cmd.Context(), c.owner, args[0]); err != nil {
				return err
			}
			return c.print(map[string]string{"deleted": args[0]}, func() { output.Success(c.out, "Deleted card %s", args[0]) })
		},
	}

	cmd.AddCommand(listCmd, addCmd, updateCmd, showCmd, deleteCmd)
	return cmd
}

func (c *cli) renderCards(cards []*domain.CreditCard) {
	if len(cards) == 0 {
		output.Muted(c.out, "No credit cards.")
		return
	}
	rows := make([][]string, 0, len(cards))
	for _, card := range cards {
		rows = append(rows, []string{
			card.ID, card.Issuer, card.Brand, output.Money(card.AvailableLimit),
			strconv.Itoa(card.ClosingDay), strconv.Itoa(card.DueDay),
		})
	}
	output.Table(c.out, []string{"ID", "Issuer", "Brand", "Available", "Closes", "Due"}, rows)
}

func (c *cli) goalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goals",
		Aliases: []string{"goal"},
		Short:   "Manage savings goals",
	}

	var name, target, current, deadline, icon string
	var clearDeadline bool
	addFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&name, "name", "", "Goal name")
		cmd.Flags().StringVar(&target, "target", "0", "Target amount")
		cmd.Flags().StringVar(&current, "current", "0", "Amount already saved")
		cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline (YYYY-MM-DD)")
		cmd.Flags().StringVar(&icon, "icon", "", "Icon shown next to the goal")
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List savings goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			goals, err := c.app.Ledger.ListGoals(cmd.Context(), c.owner)
			if err != nil {
				return err
			}
			return c.print(goals, func() { c.renderGoals(goals) })
		},
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a savings goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := ledger.GoalInput{Name: name, Icon: icon}
			var err error
			if in.TargetAmount, err = parseAmount("target", target); err != nil {
				return err
			}
			if in.CurrentAmount, err = parseAmount("current", current); err != nil {
				return err
			}
			if deadline != "" {
				d, err := parseDate("deadline", deadline)
				if err != nil {
					return err
				}
				in.Deadline = &d
			}
			goal, err := c.app.Ledger.CreateGoal(cmd.Context(), c.owner, in)
			if err != nil {
				return err
			}
			return c.print(goal, func() {
				output.Success(c.out, "Created goal %s (%s, target %s)", goal.ID, goal.Name, output.Money(goal.TargetAmount))
			})
		},
	}
	addFlags(addCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a goal's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := ledger.GoalPatch{ClearDeadline: clearDeadline}
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("icon") {
				patch.Icon = &icon
			}
			if flags.Changed("target") {
				amount, err := parseAmount("target", target)
				if err != nil {
					return err
				}
				patch.TargetAmount = &amount
			}
			if flags.Changed("current") {
				amount, err := parseAmount("current", current)
				if err != nil {
					return err
				}
				patch.CurrentAmount = &amount
			}
			if flags.Changed("deadline") {
				d, err := parseDate("deadline", deadline)
				if err != nil {
					return err
				}
				patch.Deadline = &d
			}
			goal, err := c.app.Ledger.UpdateGoal(cmd.Context(), c.owner, args[0], patch)
			if err != nil {
				return err
			}
			return c.print(goal, func() { output.Success(c.out, "Updated goal %s", goal.ID) })
		},
	}
	addFlags(updateCmd)
	updateCmd.Flags().BoolVar(&clearDeadline, "clear-deadline", false, "Remove the deadline")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a savings goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal, err := c.app.Ledger.GetGoal(cmd.Context(), c.owner, args[0])
			if err != nil {
				return err
			}
			return c.print(goal, func() { c.renderGoals([]*domain.Goal{goal}) })
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a savings goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Ledger.DeleteGoal(cmd.Context(), c.owner, args[0]); err != nil {
				return err
			}
			return c.print(map[string]string{"deleted": args[0]}, func() { output.Success(c.out, "Deleted goal %s", args[0]) })
		},
	}

	cmd.AddCommand(listCmd, addCmd, updateCmd, showCmd, deleteCmd)
	return cmd
}

func (c *cli) renderGoals(goals []*domain.Goal) {
	if len(goals) == 0 {
		output.Muted(c.out, "No savings goals.")
		return
	}
	rows := make([][]string, 0, len(goals))
	for _, g := range goals {
		rows = append(rows, []string{
			g.ID, g.Icon + " " + g.Name, output.Money(g.CurrentAmount), output.Money(g.TargetAmount),
			fmt.Sprintf("%s%%", g.Progress().StringFixed(1)), formatDate(g.Deadline),
		})
	}
	output.Table(c.out, []string{"ID", "Goal", "Saved", "Target", "Progress", "Deadline"}, rows)
}
