package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/benvon/taskwise/internal/app"
	"github.com/benvon/taskwise/internal/models"
	"github.com/benvon/taskwise/internal/projection"
	"github.com/spf13/cobra"
)

func newListCmd(rt *runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all tasks by due date",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				tasks := a.Store.Snapshot(ctx)
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), tasks)
				}
				return writeTasks(cmd.OutOrStdout(), tasks, a.Store.Location())
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				task, err := a.Store.Get(ctx, taskIDArg(args))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), task)
			})
		},
	}
}

func newDayCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "day [YYYY-MM-DD]",
		Short: "List tasks due on a day, today by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				loc := a.Store.Location()
				date := models.DateOf(a.Store.Now(), loc)
				if len(args) == 1 {
					parsed, err := models.ParseDate(args[0])
					if err != nil {
						return err
					}
					date = parsed
				}

				tasks := projection.OnDate(a.Store.Snapshot(ctx), date, loc)
				out := cmd.OutOrStdout()
				if len(tasks) == 0 {
					fmt.Fprintf(out, "No tasks due on %s\n", date)
					return nil
				}
				fmt.Fprintf(out, "Tasks due on %s:\n", date)
				return writeTasks(out, tasks, loc)
			})
		},
	}
}

func newMarkersCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "markers",
		Short: "Print every distinct due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				for _, d := range projection.DueDateMarkers(a.Store.Snapshot(ctx), a.Store.Location()) {
					fmt.Fprintln(cmd.OutOrStdout(), d)
				}
				return nil
			})
		},
	}
}

func newBucketsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "Show recurring tasks by period and other tasks by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				snapshot := a.Store.Snapshot(ctx)
				loc := a.Store.Location()
				out := cmd.OutOrStdout()

				b := projection.ByRecurrence(snapshot)
				sections := []struct {
					r     models.Recurrence
					tasks []models.Task
				}{
					{models.RecurrenceDaily, b.Daily},
					{models.RecurrenceWeekly, b.Weekly},
					{models.RecurrenceMonthly, b.Monthly},
				}
				for _, s := range sections {
					fmt.Fprintf(out, "== %s (%d)\n", s.r.Info().Label, len(s.tasks))
					if err := writeTasks(out, s.tasks, loc); err != nil {
						return err
					}
				}
				for _, g := range projection.ByCategory(snapshot).Groups() {
					fmt.Fprintf(out, "== %s (%d)\n", g.Info.Label, len(g.Tasks))
					if err := writeTasks(out, g.Tasks, loc); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newExportICSCmd(rt *runtime) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export-ics",
		Short: "Export dated tasks as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				body := projection.CalendarICS(a.Store.Snapshot(ctx), a.Store.Now(), a.Store.Location())
				if output == "" || output == "-" {
					_, err := io.WriteString(cmd.OutOrStdout(), body)
					return err
				}
				if err := os.WriteFile(output, []byte(body), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (stdout when empty)")
	return cmd
}

func writeTasks(w io.Writer, tasks []models.Task, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tDUE\tCATEGORY\tREPEATS\tTITLE")
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		}
		due := "-"
		if t.DueDate != nil {
			due = models.DateOf(*t.DueDate, loc).String()
		}
		fmt.Fprintf(tw, "%s\t[%s]\t%s\t%s\t%s\t%s\n", t.ID, done, due, t.Category, t.Recurrence, t.Title)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
