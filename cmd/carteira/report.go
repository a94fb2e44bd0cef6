package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"carteira/internal/cli"
	"carteira/internal/core"
	"carteira/internal/metrics"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	paceStyles  = map[metrics.Pace]lipgloss.Style{
		metrics.PaceSlow:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		metrics.PaceOnTrack:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		metrics.PaceFast:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		metrics.PaceCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
	boxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the monthly insight and budget report",
		RunE:  runReport,
	}
	cmd.Flags().Int("year", 0, "year (default: current)")
	cmd.Flags().Int("month", 0, "month 1-12 (default: current)")
	cmd.Flags().String("user", "", "user id (default: default_user setting)")
	return cmd
}

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the home screen metrics",
		RunE:  runDashboard,
	}
	cmd.Flags().String("user", "", "user id (default: default_user setting)")
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	app, err := cli.Open(cmd.Context(), state.cfg, state.logger)
	if err != nil {
		return err
	}
	defer app.Close()

	user, _ := cmd.Flags().GetString("user")
	sess := app.Session(user)
	today := app.Metrics.Today(sess)

	year, _ := cmd.Flags().GetInt("year")
	month, _ := cmd.Flags().GetInt("month")
	if year == 0 {
		year = today.Year()
	}
	if month == 0 {
		month = int(today.Month())
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("invalid month %d: must be between 1 and 12", month)
	}

	insight := app.Metrics.Insight(cmd.Context(), sess, year, time.Month(month))
	budget := app.Metrics.Budget(cmd.Context(), sess, year, time.Month(month))
	renderReport(cmd.OutOrStdout(), insight, budget)
	return nil
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	app, err := cli.Open(cmd.Context(), state.cfg, state.logger)
	if err != nil {
		return err
	}
	defer app.Close()

	user, _ := cmd.Flags().GetString("user")
	sess := app.Session(user)
	renderDashboard(cmd.OutOrStdout(),
		app.Metrics.Dashboard(cmd.Context(), sess),
		app.Metrics.Streak(cmd.Context(), sess))
	return nil
}

func renderReport(w io.Writer, in metrics.MonthlyInsight, b metrics.BudgetReport) {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s %d", in.Month, in.Year)))
	sb.WriteString("\n\n")

	sb.WriteString(headerStyle.Render("Insight"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Income   %s  (%+.1f%%)\n", core.FormatAmount(in.Income), in.IncomeVariation)
	fmt.Fprintf(&sb, "Expense  %s  (%+.1f%%)\n", core.FormatAmount(in.Expense), in.ExpenseVariation)
	fmt.Fprintf(&sb, "Savings  %s  (%.1f%%)\n", core.FormatAmount(in.Savings), in.SavingsRate)
	fmt.Fprintf(&sb, "Health   %s\n", in.Health)
	if in.BiggestExpense != nil {
		fmt.Fprintf(&sb, "Biggest  %s %s\n", in.BiggestExpense.Title, core.FormatAmount(in.BiggestExpense.Amount))
	}
	if in.TopCategory != nil {
		fmt.Fprintf(&sb, "Top      %s %s\n", in.TopCategory.Name, core.FormatAmount(in.TopCategory.Total))
	}

	sb.WriteString("\n")
	sb.WriteString(headerStyle.Render("Budget"))
	sb.WriteString("\n")
	if b.TotalBudget.Cents == 0 {
		sb.WriteString(mutedStyle.Render("(no category budgets set)"))
		sb.WriteString("\n")
	} else {
		fmt.Fprintf(&sb, "Spent    %s of %s\n", core.FormatAmount(b.TotalSpent), core.FormatAmount(b.TotalBudget))
		if b.Exhausted {
			sb.WriteString("Left     exhausted\n")
		} else {
			fmt.Fprintf(&sb, "Left     %s\n", core.FormatAmount(b.Remaining))
		}
		fmt.Fprintf(&sb, "Pace     %s  (%.0f%% used, %.0f%% of month)\n",
			paceStyles[b.Pace].Render(string(b.Pace)), b.BudgetConsumedPct, b.DaysPassedPct)
		fmt.Fprintf(&sb, "Fixed    %s  Installments %s  Variable %s\n",
			core.FormatAmount(b.FixedCosts), core.FormatAmount(b.CommittedInstallments), core.FormatAmount(b.VariableSpent))
		for _, c := range b.Categories {
			mark := ""
			if c.Overspent {
				mark = " !"
			}
			fmt.Fprintf(&sb, "  %-16s %s / %s%s\n", c.Name, core.FormatAmount(c.Spent), core.FormatAmount(c.Budget), mark)
		}
		if b.AlertCategory != nil {
			fmt.Fprintf(&sb, "Alert    %s is over budget by %s\n", b.AlertCategory.Name, core.FormatAmount(b.AlertCategory.Overspend()))
		}
	}

	if len(b.Goals) > 0 {
		sb.WriteString("\n")
		sb.WriteString(headerStyle.Render("Goals"))
		sb.WriteString("\n")
		for _, g := range b.Goals {
			fmt.Fprintf(&sb, "  %-16s %5.1f%%  %s to go", g.Name, g.Progress, core.FormatAmount(g.Remaining))
			if g.MonthsLeft > 0 {
				fmt.Fprintf(&sb, ", %s/month", core.FormatAmount(g.MonthlyNeeded))
			}
			sb.WriteString("\n")
		}
	}

	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(sb.String(), "\n")))
}

func renderDashboard(w io.Writer, d metrics.DashboardMetrics, s metrics.StreakStats) {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Dashboard"))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Balance    %s\n", core.FormatAmount(d.Balance))
	fmt.Fprintf(&sb, "Projected  %s\n", core.FormatAmount(d.ProjectedBalance))
	fmt.Fprintf(&sb, "Income     %s  (%+.1f%%)\n", core.FormatAmount(d.Income), d.MonthVariationIncome)
	fmt.Fprintf(&sb, "Expense    %s  (%+.1f%%)\n", core.FormatAmount(d.Expense), d.MonthVariationExpense)
	fmt.Fprintf(&sb, "Health     %s\n", d.FinancialHealth)
	fmt.Fprintf(&sb, "Saved/year %s\n", core.FormatAmount(d.YearlySavings))
	fmt.Fprintf(&sb, "Streak     %d days (best %d)\n", s.Current, s.Max)
	if d.LastTransaction != nil {
		fmt.Fprintf(&sb, "Last       %s %s on %s\n", d.LastTransaction.Title, core.FormatAmount(d.LastTransaction.Amount), d.LastTransaction.Date)
	}
	if len(d.TopExpenses) > 0 {
		sb.WriteString("\n")
		sb.WriteString(headerStyle.Render("Shortcuts"))
		sb.WriteString("\n")
		for _, e := range d.TopExpenses {
			fmt.Fprintf(&sb, "  %-16s x%d  %s\n", e.Title, e.Count, core.FormatAmount(e.Amount))
		}
	}
	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(sb.String(), "\n")))
}
