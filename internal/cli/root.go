// Package cli implements the rollcall command line: an interactive menu
// plus one subcommand per operation.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rpggio/rollcall/internal/config"
	"github.com/rpggio/rollcall/internal/logging"
)

// Streams are the standard streams a command runs against.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// state is filled by the root pre-run hook and released when the command
// returns.
type state struct {
	streams  Streams
	app      *App
	closeLog func() error
	console  *Console
}

func (s *state) operator() *operator {
	return newOperator(s.app, s.streams.Out)
}

// Console is created on first use so commands that never read input do not
// start a reader.
func (s *state) inputConsole() *Console {
	if s.console == nil {
		s.console = NewConsole(s.streams.In, s.streams.Out)
	}
	return s.console
}

func (s *state) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger, closeLog, err := logging.New(cfg.Log.Level, cfg.Log.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open log file", err)
	}
	s.closeLog = closeLog

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start", err)
	}
	s.app = app
	return nil
}

func (s *state) close() error {
	var errs []error
	if s.app != nil {
		errs = append(errs, s.app.Close())
	}
	if s.closeLog != nil {
		errs = append(errs, s.closeLog())
	}
	return errors.Join(errs...)
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// newRootCommand creates the rollcall command tree over st.
func newRootCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollcall",
		Short: "Face recognition attendance",
		Long: `rollcall registers students from camera captures, trains a face
recognition model on them and marks attendance for the faces it recognises.

Run without a subcommand for the interactive menu.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
				return nil
			}
			return st.setup(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			NewMenu(st.inputConsole(), st.operator(), st.app.Logger).Run(cmd.Context())
			return nil
		},
	}

	cmd.AddCommand(newEnrollCommand(st))
	cmd.AddCommand(newTrainCommand(st))
	cmd.AddCommand(newAttendCommand(st))
	cmd.AddCommand(newDeleteCommand(st))
	cmd.AddCommand(newExportCommand(st))
	cmd.AddCommand(newListCommand(st))
	cmd.AddCommand(newTodayCommand(st))
	cmd.AddCommand(newActivityCommand(st))
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, streams Streams) int {
	st := &state{streams: streams}
	cmd := newRootCommand(st)
	cmd.SetArgs(args)
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.Err)

	err := cmd.ExecuteContext(ctx)
	if cerr := st.close(); cerr != nil {
		fmt.Fprintf(streams.Err, "shutdown error: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(streams.Err, "Error: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
