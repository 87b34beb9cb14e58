package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mop.org/internal/cases"
	"mop.org/internal/demo"
)

// StatsResult is the outcome of cases stats.
type StatsResult struct {
	Window        string         `json:"window"`
	StatusCounts  map[string]int `json:"case_statistics"`
	WindowTotal   int            `json:"total_cases"`
	LifetimeTotal int            `json:"lifetime_total"`
}

// NewCasesCommand creates the cases command.
func NewCasesCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Inspect onboarding cases",
	}

	var windowDays int
	stats := &cobra.Command{
		Use:           "stats",
		Short:         "Print case counts by status over the statistics window",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if windowDays <= 0 {
				return NewExitError(ExitCommandError, "--window-days must be > 0")
			}
			f := rootOpts.formatter(cmd)
			return withBackend(cmd, rootOpts, open, func(ctx context.Context, b *Backend) error {
				window := time.Duration(windowDays) * 24 * time.Hour
				agg, err := cases.NewAggregator(b.Cases, nil, window)
				if err != nil {
					return err
				}
				dash, err := agg.DashboardStats(ctx)
				if err != nil {
					return fmt.Errorf("cases stats: %w", err)
				}
				lifetime, err := agg.LifetimeTotal(ctx)
				if err != nil {
					return fmt.Errorf("cases stats: %w", err)
				}
				res := StatsResult{
					Window:        fmt.Sprintf("%dd", windowDays),
					StatusCounts:  dash.StatusCounts,
					WindowTotal:   dash.TotalCases,
					LifetimeTotal: lifetime,
				}
				return f.Success(res, func(w io.Writer) error {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "STATUS\tCOUNT")
					statuses := make([]string, 0, len(res.StatusCounts))
					for s := range res.StatusCounts {
						statuses = append(statuses, s)
					}
					sort.Strings(statuses)
					for _, s := range statuses {
						fmt.Fprintf(tw, "%s\t%d\n", s, res.StatusCounts[s])
					}
					fmt.Fprintf(tw, "total (%s)\t%d\n", res.Window, res.WindowTotal)
					fmt.Fprintf(tw, "lifetime\t%d\n", res.LifetimeTotal)
					return tw.Flush()
				})
			})
		},
	}
	stats.Flags().IntVar(&windowDays, "window-days", 30, "trailing window in days")

	get := &cobra.Command{
		Use:           "get <case-id>",
		Short:         "Print one case with its history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return withBackend(cmd, rootOpts, open, func(ctx context.Context, b *Backend) error {
				svc, err := cases.NewService(b.Cases)
				if err != nil {
					return err
				}
				c, err := svc.GetCase(ctx, args[0])
				if err != nil {
					return fmt.Errorf("cases get: %w", err)
				}
				return f.Success(c, func(w io.Writer) error {
					return printCase(w, c)
				})
			})
		},
	}

	var (
		count, steps int
		seed         int64
		strict       bool
	)
	seedDemo := &cobra.Command{
		Use:           "seed-demo",
		Short:         "Create generated demo cases and walk them through the review workflow",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return NewExitError(ExitCommandError, "--count must be > 0")
			}
			f := rootOpts.formatter(cmd)
			return withBackend(cmd, rootOpts, open, func(ctx context.Context, b *Backend) error {
				var opts []cases.ServiceOption
				if strict {
					opts = append(opts, cases.WithTransitions(cases.ReviewWorkflow()))
				}
				svc, err := cases.NewService(b.Cases, opts...)
				if err != nil {
					return err
				}
				var counter demo.Counter
				created, err := demo.Populate(ctx, svc, demo.NewGenerator(seed), count, steps, &counter)
				if err != nil {
					return fmt.Errorf("cases seed-demo: %w", err)
				}
				f.VerboseLog("created %d cases", len(created))
				sum := counter.Summary()
				return f.Success(sum, func(w io.Writer) error {
					fmt.Fprintf(w, "created %d cases (%d transitions)\n", sum.Created, sum.Transitions)
					statuses := make([]string, 0, len(sum.ByStatus))
					for s := range sum.ByStatus {
						statuses = append(statuses, s)
					}
					sort.Strings(statuses)
					for _, s := range statuses {
						if _, err := fmt.Fprintf(w, "  %-26s %d\n", s, sum.ByStatus[s]); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
	seedDemo.Flags().IntVar(&count, "count", 10, "number of cases to create")
	seedDemo.Flags().IntVar(&steps, "steps", 1, "maximum workflow transitions per case")
	seedDemo.Flags().Int64Var(&seed, "seed", 0, "generator seed, 0 picks one from the clock")
	seedDemo.Flags().BoolVar(&strict, "strict", true, "enforce the review workflow")

	cmd.AddCommand(stats, get, seedDemo)
	return cmd
}

func printCase(w io.Writer, c cases.Case) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Case\t%s\n", c.ID)
	fmt.Fprintf(tw, "Business\t%s\n", c.BusinessName)
	fmt.Fprintf(tw, "Type\t%s\n", c.BusinessType)
	fmt.Fprintf(tw, "Director\t%s\n", c.DirectorName)
	fmt.Fprintf(tw, "Status\t%s\n", c.Status)
	fmt.Fprintf(tw, "Priority\t%s\n", c.Priority)
	if c.AssignedTo != "" {
		fmt.Fprintf(tw, "Assigned to\t%s\n", c.AssignedTo)
	}
	fmt.Fprintf(tw, "Created\t%s\n", c.CreatedDate)
	fmt.Fprintf(tw, "Updated\t%s\n", c.LastUpdated)
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(c.History) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nHistory:")
	for _, h := range c.History {
		if _, err := fmt.Fprintf(w, "  %s  %s\n", h.Time, h.Action); err != nil {
			return err
		}
	}
	return nil
}
