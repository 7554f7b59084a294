package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

var errInvalidID = errors.New("student id must be a positive integer")

// Actions are the operations the interactive menu drives.
type Actions interface {
	Enroll(ctx context.Context, id int64, name string, stop <-chan struct{}) error
	Attend(ctx context.Context, stop <-chan struct{}) error
	Delete(ctx context.Context, id int64) error
	ExportToday(ctx context.Context) error
}

const menuText = `
!!!!!!*********************!!!!!!!!!!!
  SMART ATTENDANCE SYSTEM - MAIN MENU
!!!!!!*********************!!!!!!!!!!!
1. Register NEW student
2. Start attendance
3. Delete student
4. Exit
!!!!!!*********************!!!!!!!!!!!
`

// Menu is the interactive operator loop.
type Menu struct {
	console *Console
	actions Actions
	logger  *slog.Logger
}

func NewMenu(console *Console, actions Actions, logger *slog.Logger) *Menu {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Menu{console: console, actions: actions, logger: logger}
}

// Run shows the menu until the operator exits, input ends or ctx is
// cancelled. Failed operations are reported and the menu continues.
func (m *Menu) Run(ctx context.Context) {
	for ctx.Err() == nil {
		m.console.Printf("%s", menuText)
		choice, err := m.console.Prompt(ctx, "Enter your choice (1-4): ")
		if err != nil {
			return
		}

		switch choice {
		case "1":
			m.enroll(ctx)
		case "2":
			m.attend(ctx)
		case "3":
			m.delete(ctx)
		case "4":
			m.console.Printf("Exiting... Have a good day!\n")
			return
		default:
			m.console.Printf("\n[ERROR] Invalid input. Please enter 1, 2, 3, or 4.\n\n")
		}
	}
}

func (m *Menu) enroll(ctx context.Context) {
	raw, err := m.console.Prompt(ctx, "Enter student ID: ")
	if err != nil {
		return
	}
	id, err := parseID(raw)
	if err != nil {
		m.console.Printf("[ERROR] Invalid ID. Must be a positive integer.\n")
		return
	}
	name, err := m.console.Prompt(ctx, "Enter student name: ")
	if err != nil {
		return
	}
	if name == "" {
		m.console.Printf("[ERROR] Name cannot be empty.\n")
		return
	}

	m.console.Printf("\n[STEP 1] Registering student and capturing faces. Type q and Enter to stop early.\n\n")
	stop, release := m.console.WatchKey("q")
	err = m.actions.Enroll(ctx, id, name, stop)
	release()
	if m.report("enrollment", err) && ctx.Err() == nil {
		m.console.Printf("\n[INFO] Student added and model trained successfully!\n\n")
	}
}

func (m *Menu) attend(ctx context.Context) {
	m.console.Printf("\n[INFO] Starting attendance. Type q and Enter to stop.\n\n")
	stop, release := m.console.WatchKey("q")
	err := m.actions.Attend(ctx, stop)
	release()
	if !m.report("attendance", err) || ctx.Err() != nil {
		return
	}
	m.console.Printf("\n[INFO] Attendance session finished.\n\n")

	ok, err := m.console.Confirm(ctx, "Do you want to export today's attendance to Excel?")
	if err != nil {
		return
	}
	if ok {
		m.report("export", m.actions.ExportToday(ctx))
	}

	ok, err = m.console.Confirm(ctx, "Do you want to delete any student?")
	if err != nil {
		return
	}
	if ok {
		m.delete(ctx)
	}
}

// delete asks until it gets a valid id. A blank line cancels.
func (m *Menu) delete(ctx context.Context) {
	for {
		raw, err := m.console.Prompt(ctx, "Enter Student ID to delete (blank to cancel): ")
		if err != nil {
			return
		}
		if raw == "" {
			m.console.Printf("[INFO] Delete cancelled.\n")
			return
		}
		id, err := parseID(raw)
		if err != nil {
			m.console.Printf("[ERROR] Invalid Student ID. Please enter a number.\n")
			continue
		}
		m.report("delete", m.actions.Delete(ctx, id))
		return
	}
}

// report prints a failed operation and reports whether it succeeded.
// Operator cancellation is not a failure.
func (m *Menu) report(op string, err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	m.logger.Error(op+" failed", "error", err)
	m.console.Printf("[ERROR] %v\n", err)
	return false
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidID, s)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d", errInvalidID, id)
	}
	return id, nil
}
