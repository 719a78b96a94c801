package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/taskwise/internal/app"
	"github.com/benvon/taskwise/internal/models"
	"github.com/benvon/taskwise/internal/validation"
	"github.com/spf13/cobra"
)

type taskFlags struct {
	title       string
	description string
	due         string
	category    string
	recurrence  string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Task title")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Task description")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "Category (Work, Personal, Study, Errands, Fitness, Other)")
	cmd.Flags().StringVarP(&f.recurrence, "recurrence", "r", "", "Recurrence (none, daily, weekly, monthly)")
}

func newAddCmd(rt *runtime) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Long:  "Create a task. The title may be given with --title or as arguments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.title == "" {
				f.title = strings.Join(args, " ")
			}
			if err := validation.ValidateRecurrence(f.recurrence); err != nil {
				return err
			}
			return rt.withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				due, err := parseDue(f.due, a.Store.Location())
				if err != nil {
					return err
				}
				task, err := a.Store.Create(ctx, models.TaskInput{
					Title:       f.title,
					Description: f.description,
					DueDate:     due,
					Category:    models.Category(f.category),
					Recurrence:  models.Recurrence(strings.ToLower(f.recurrence)),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", task.ID)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newEditCmd(rt *runtime) *cobra.Command {
	var f taskFlags
	var clearDue bool
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task",
		Long:  "Edit a task. Only the flags given are changed; completion state is never touched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := taskIDArg(args)
			if cmd.Flags().Changed("recurrence") {
				if err := validation.ValidateRecurrence(f.recurrence); err != nil {
					return err
				}
			}
			return rt.withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				current, err := a.Store.Get(ctx, id)
				if err != nil {
					return err
				}

				in := models.TaskInput{
					Title:       current.Title,
					Description: current.Description,
					DueDate:     current.DueDate,
					Category:    current.Category,
					Recurrence:  current.Recurrence,
				}
				flags := cmd.Flags()
				if flags.Changed("title") {
					in.Title = f.title
				}
				if flags.Changed("description") {
					in.Description = f.description
				}
				if flags.Changed("category") {
					in.Category = models.Category(f.category)
				}
				if flags.Changed("recurrence") {
					in.Recurrence = models.Recurrence(strings.ToLower(f.recurrence))
				}
				if flags.Changed("due") {
					if in.DueDate, err = parseDue(f.due, a.Store.Location()); err != nil {
						return err
					}
				}
				if clearDue {
					in.DueDate = nil
				}

				if _, err := a.Store.Update(ctx, id, in); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", id)
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&clearDue, "no-due", false, "Remove the due date")
	return cmd
}

func newToggleCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between completed and pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				task, err := a.Store.ToggleCompletion(ctx, taskIDArg(args))
				if err != nil {
					return err
				}
				state := "pending"
				if task.Completed {
					state = "completed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task marked as %s\n", state)
				return nil
			})
		},
	}
}

func newRemoveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := taskIDArg(args)
			return rt.withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				if err := a.Store.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", id)
				return nil
			})
		},
	}
}
