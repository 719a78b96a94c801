// Package commands implements the taskctl subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/taskwise/internal/app"
	"github.com/benvon/taskwise/internal/config"
	"github.com/benvon/taskwise/internal/logger"
	"github.com/benvon/taskwise/internal/models"
	"github.com/spf13/cobra"
)

// OpenFunc builds the app a command runs against
type OpenFunc func(ctx context.Context, debug bool) (*app.App, error)

// OpenFromEnv loads config from the environment and opens the configured
// backend. Change events are published when RABBITMQ_URL is set, but the
// connection is tried only once.
func OpenFromEnv(ctx context.Context, debug bool) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.NewDevelopmentLogger(debug || cfg.ServerDebugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return app.New(ctx, cfg, log, app.WithRetry(1, time.Second))
}

type runtime struct {
	open  OpenFunc
	debug bool
}

// NewRootCmd creates the taskctl root command
func NewRootCmd(open OpenFunc) *cobra.Command {
	rt := &runtime{open: open}

	rootCmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage TaskWise tasks from the command line",
		Long:          "CLI over the same task store the TaskWise server uses. Storage is selected with TASKWISE_STORAGE_BACKEND.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Enable debug logging on stderr")

	rootCmd.AddCommand(
		newAddCmd(rt),
		newEditCmd(rt),
		newToggleCmd(rt),
		newRemoveCmd(rt),
		newListCmd(rt),
		newShowCmd(rt),
		newDayCmd(rt),
		newMarkersCmd(rt),
		newBucketsCmd(rt),
		newExportICSCmd(rt),
	)
	return rootCmd
}

// withApp opens the app, runs fn and closes it. Mutating commands refuse to run
// when the stored collection could not be read, so a bad file is never overwritten.
func (rt *runtime) withApp(cmd *cobra.Command, mutates bool, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := rt.open(ctx, rt.debug)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
		_ = logger.Sync(a.Logger)
	}()

	if a.LoadErr != nil {
		if mutates {
			return fmt.Errorf("stored tasks could not be read, refusing to overwrite them: %w", a.LoadErr)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", a.LoadErr)
	}

	if err := fn(ctx, a); err != nil {
		return err
	}
	if mutates {
		// Save failures are logged by the store; surface them as a command error
		if err := a.Store.LastSaveError(); err != nil {
			return err
		}
	}
	return nil
}

// parseDue accepts YYYY-MM-DD (midnight in loc) or RFC 3339
func parseDue(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if d, err := models.ParseDate(s); err == nil {
		t := d.Start(loc)
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, errors.New("invalid --due value, want YYYY-MM-DD or RFC 3339")
	}
	return &t, nil
}

func taskIDArg(args []string) models.TaskID {
	return models.TaskID(strings.TrimSpace(args[0]))
}
