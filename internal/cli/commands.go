package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
)

// usageArgs turns positional argument errors into command errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "usage: "+cmd.UseLine(), err)
		}
		return nil
	}
}

func parseIDArg(arg string) (int64, error) {
	id, err := parseID(arg)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "invalid student id", err)
	}
	return id, nil
}

func newEnrollCommand(st *state) *cobra.Command {
	var appendSamples bool
	cmd := &cobra.Command{
		Use:   "enroll <id> <name>",
		Short: "Register a student, capture face samples and retrain",
		Long: `Registers the student (or renames an existing one), captures face samples
from the camera until the quota is reached and retrains the model.

Existing samples of the student are replaced unless --append is given.
Type q and Enter to stop capturing early.`,
		Args: usageArgs(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")

			stop, release := st.inputConsole().WatchKey("q")
			defer release()

			op := st.operator()
			op.appendSamples = appendSamples
			return op.Enroll(cmd.Context(), id, name, stop)
		},
	}
	cmd.Flags().BoolVar(&appendSamples, "append", false, "keep existing samples and number new ones after them")
	return cmd
}

func newTrainCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Retrain the model from every stored face sample",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.operator().Train(cmd.Context())
		},
	}
}

func newAttendCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "attend",
		Short: "Run an attendance session",
		Long: `Recognises faces from the camera and marks each recognised student present
once per day. Type q and Enter, or interrupt, to end the session.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			stop, release := st.inputConsole().WatchKey("q")
			defer release()
			return st.operator().Attend(cmd.Context(), stop)
		},
	}
}

func newDeleteCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a student with their samples and attendance, then retrain",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			return st.operator().Delete(cmd.Context(), id)
		},
	}
}

func newExportCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "export [date]",
		Short: "Write a day's attendance to exports/attendance_<date>.xlsx",
		Long:  `Exports the attendance of date (YYYY-MM-DD, default today) to a spreadsheet.`,
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := st.operator()
			if len(args) == 0 {
				return op.ExportToday(cmd.Context())
			}
			return op.Export(cmd.Context(), args[0])
		},
	}
}

func newListCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered students",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.operator().List(cmd.Context())
		},
	}
}

func newTodayCommand(st *state) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show who is marked present today",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := st.operator()
			if date == "" {
				date = attendance.Day(op.now())
			}
			return op.Day(cmd.Context(), date)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "show another day (YYYY-MM-DD)")
	return cmd
}

func newActivityCommand(st *state) *cobra.Command {
	var (
		studentID int64
		typ       string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent enrollment, training and attendance events",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := activity.ListActivityOptions{Limit: limit}
			if studentID > 0 {
				opts.StudentID = &studentID
			}
			if typ != "" {
				t := activity.ActivityType(typ)
				opts.ActivityType = &t
			}
			return st.operator().Activity(cmd.Context(), opts)
		},
	}
	cmd.Flags().Int64Var(&studentID, "student", 0, "only events for this student")
	cmd.Flags().StringVar(&typ, "type", "", "only events of this type")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	return cmd
}
