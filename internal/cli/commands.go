package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"finflow/internal/core"
	"finflow/internal/services"
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(expensesCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(adviceCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(accountsCmd)

	addCmd.Flags().StringP("amount", "a", "", "Amount, e.g. 12.50")
	addCmd.Flags().StringP("description", "d", "", "Free text description")
	addCmd.Flags().StringP("category", "c", "", "Category name (default Other Things)")
	addCmd.Flags().StringP("type", "t", "", "expense or income (default expense)")
	_ = addCmd.MarkFlagRequired("amount")

	resetCmd.Flags().BoolP("yes", "y", false, "Clear without asking")
}

// startInteractive opens a session whose weekly reset question is put to
// the terminal.
func startInteractive(cmd *cobra.Command, withAdvice bool) (*session, error) {
	return openSession(cmd.Context(), logger, sessionOptions{
		confirmer: NewTerminalConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()),
		advice:    withAdvice,
	})
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a transaction",
	Args:  cobra.NoArgs,
	RunE:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, err := startInteractive(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	in := services.TransactionInput{}
	in.Amount, _ = cmd.Flags().GetString("amount")
	in.Description, _ = cmd.Flags().GetString("description")
	in.Category, _ = cmd.Flags().GetString("category")
	in.Type, _ = cmd.Flags().GetString("type")

	tx, err := s.app.AddTransaction(cmd.Context(), in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s in %s on %s (%s)\n",
		tx.Type, tx.Amount, tx.Category, tx.Date, tx.ID)
	return nil
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the weekly budget and recent activity",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	s, err := startInteractive(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	d := s.app.Dashboard()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Weekly budget: %s\n", d.Budget.Limit)
	fmt.Fprintf(out, "Spent (last 7 days): %s (%d%%)\n", d.Budget.Spent, d.Budget.SpentPercentage)
	fmt.Fprintf(out, "Remaining: %s\n", d.Budget.Remaining)

	if len(d.ByCategory) > 0 {
		fmt.Fprintln(out, "\nBy category:")
		for _, c := range d.ByCategory {
			fmt.Fprintf(out, "  %-16s %10s\n", c.Name, c.Amount)
		}
	}

	fmt.Fprintln(out, "\nRecent activity:")
	if len(d.Recent) == 0 {
		fmt.Fprintln(out, "  No transactions yet.")
	}
	for _, tx := range d.Recent {
		printTransaction(out, tx)
	}
	return nil
}

var expensesCmd = &cobra.Command{
	Use:   "expenses",
	Short: "Show spending by weekday and the full history",
	Args:  cobra.NoArgs,
	RunE:  runExpenses,
}

func runExpenses(cmd *cobra.Command, args []string) error {
	s, err := startInteractive(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	view := s.app.Expenses()
	out := cmd.OutOrStdout()
	for _, w := range view.Weekdays {
		mark := ""
		if w.Highlight {
			mark = " *"
		}
		fmt.Fprintf(out, "%s %10s%s\n", w.Day, w.Amount, mark)
	}
	for _, g := range view.Groups {
		fmt.Fprintf(out, "\n%s\n", g.Label)
		for _, tx := range g.Transactions {
			printTransaction(out, tx)
		}
	}
	return nil
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear every transaction now",
	Long: `Clear the transaction log immediately. The weekly cycle marker is left
alone, so the next new-week prompt still happens on schedule.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	s, err := startInteractive(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		ok, err := s.confirmer.Confirm(cmd.Context(), services.ManualResetPrompt)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Reset cancelled.")
			return nil
		}
	}
	if err := s.app.ManualReset(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Transactions cleared.")
	return nil
}

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run the weekly cycle check and show its state",
	Args:  cobra.NoArgs,
	RunE:  runCycle,
}

func runCycle(cmd *cobra.Command, args []string) error {
	s, err := startInteractive(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.app.Cycle(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Startup check: %s\n", s.outcome)
	fmt.Fprintf(out, "Current week: %s\n", st.Decision.CurrentWeek)
	if st.Decision.MarkerWeek != nil {
		fmt.Fprintf(out, "Last reset week: %s\n", *st.Decision.MarkerWeek)
	}
	return nil
}

var adviceCmd = &cobra.Command{
	Use:   "advice",
	Short: "Get advice on this week's spending",
	Args:  cobra.NoArgs,
	RunE:  runAdvice,
}

func runAdvice(cmd *cobra.Command, args []string) error {
	s, err := startInteractive(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintln(cmd.OutOrStdout(), s.app.Advice(cmd.Context()))
	return nil
}

var themeCmd = &cobra.Command{
	Use:   "theme [THEME]",
	Short: "Show or change the theme",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTheme,
}

func runTheme(cmd *cobra.Command, args []string) error {
	s, err := startInteractive(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	current := s.app.Theme()
	if len(args) == 1 {
		current, err = s.app.SetTheme(cmd.Context(), args[0])
		if err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()
	for _, t := range core.Themes() {
		mark := " "
		if t.ID == current.ID {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %-8s %-16s %s\n", mark, t.ID, t.Name, t.Accent)
	}
	return nil
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List payment accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccounts,
}

func runAccounts(cmd *cobra.Command, args []string) error {
	s, err := startInteractive(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	view := s.app.Accounts()
	out := cmd.OutOrStdout()
	for _, a := range view.Accounts {
		fmt.Fprintf(out, "%-12s **** %s %12s\n", a.Name, a.LastFour, a.Balance)
	}
	fmt.Fprintf(out, "%-21s %12s\n", "Total", view.Total)
	return nil
}

func printTransaction(out io.Writer, tx core.Transaction) {
	desc := tx.Description
	if desc == "" {
		desc = "-"
	}
	sign := ""
	if tx.Type == core.Income {
		sign = "+"
	}
	fmt.Fprintf(out, "  %s  %-14s %-24s %s%s\n", tx.Date, tx.Category, desc, sign, tx.Amount)
}
