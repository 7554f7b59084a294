package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/rollcall/internal/domain/deletion"
	"github.com/rpggio/rollcall/internal/domain/identity"
	"github.com/rpggio/rollcall/internal/repository"
)

// StudentRepository implements identity.Repository for SQLite
type StudentRepository struct {
	db *DB
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db *DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Get retrieves a student by ID
func (r *StudentRepository) Get(ctx context.Context, id int64) (*identity.Identity, error) {
	var ident identity.Identity
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM students WHERE id = ?`, id).Scan(
		&ident.ID,
		&ident.Name,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &ident, nil
}

// Create inserts a new student
func (r *StudentRepository) Create(ctx context.Context, ident *identity.Identity) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO students (id, name) VALUES (?, ?)`, ident.ID, ident.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// Rename updates a student's name
func (r *StudentRepository) Rename(ctx context.Context, id int64, name string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE students SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename student: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes the student row only. It fails with a foreign key
// violation while attendance rows still reference the student.
func (r *StudentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, repository.ErrForeignKeyViolation
		}
		return false, fmt.Errorf("failed to delete student: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// List returns all students ordered by ID
func (r *StudentRepository) List(ctx context.Context) ([]identity.Identity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM students ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var idents []identity.Identity
	for rows.Next() {
		var ident identity.Identity
		if err := rows.Scan(&ident.ID, &ident.Name); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		idents = append(idents, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}
	return idents, nil
}

// DeleteCascade removes a student's attendance history and the student row
// in one transaction.
func (r *StudentRepository) DeleteCascade(ctx context.Context, id int64) (*deletion.CascadeResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE student_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete attendance: %w", err)
	}
	attendanceRemoved, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	result, err = tx.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete student: %w", err)
	}
	studentsRemoved, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &deletion.CascadeResult{
		Existed:           studentsRemoved > 0,
		AttendanceRemoved: attendanceRemoved,
	}, nil
}
