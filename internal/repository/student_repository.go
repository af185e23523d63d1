package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-tc-api/internal/models"
)

const studentColumns = `id, admission_no, unique_id, courses, student_name, surname, father_name, mother_name,
	phone_number, email_id, address1, address2, address3, town, state, date_of_birth, gender, nationality,
	religion, caste, subcaste, college, date_of_admission, date_of_leaving, aadhar_number, old_tc_no,
	number_of_tc_issued, date_of_tc_issued, remarks, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a new repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a student and returns the stored row. A duplicate admission
// number surfaces as ErrDuplicate.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (*models.Student, error) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	query := `INSERT INTO students (` + studentColumns + `) VALUES (
	:id, :admission_no, :unique_id, :courses, :student_name, :surname, :father_name, :mother_name,
	:phone_number, :email_id, :address1, :address2, :address3, :town, :state, :date_of_birth, :gender, :nationality,
	:religion, :caste, :subcaste, :college, :date_of_admission, :date_of_leaving, :aadhar_number, :old_tc_no,
	:number_of_tc_issued, :date_of_tc_issued, :remarks, :created_at, :updated_at) RETURNING ` + studentColumns

	rows, err := r.db.NamedQueryContext(ctx, query, student)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		if isValueTooLong(err) {
			return nil, fmt.Errorf("create student: %w", ErrValueTooLong)
		}
		return nil, fmt.Errorf("create student: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("create student: %w", err)
		}
		return nil, fmt.Errorf("create student: no row returned")
	}
	var stored models.Student
	if err := rows.StructScan(&stored); err != nil {
		return nil, fmt.Errorf("scan created student: %w", err)
	}
	return &stored, nil
}

// FindByID fetches a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ExistsByAdmissionNo reports whether the admission number is already registered.
func (r *StudentRepository) ExistsByAdmissionNo(ctx context.Context, admissionNo string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM students WHERE admission_no = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, admissionNo); err != nil {
		return false, fmt.Errorf("check admission number: %w", err)
	}
	return exists, nil
}

// ListSummaries returns listing projections in registration order.
func (r *StudentRepository) ListSummaries(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT id, unique_id AS student_id, student_name || ' ' || surname AS name, admission_no AS roll_number, college, caste FROM students`)
	args := make([]interface{}, 0, 2)
	conditions := make([]string, 0, 2)
	if filter.College != "" {
		args = append(args, filter.College)
		conditions = append(conditions, fmt.Sprintf("college = $%d", len(args)))
	}
	if filter.Caste != "" {
		args = append(args, filter.Caste)
		conditions = append(conditions, fmt.Sprintf("caste = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at ASC, id ASC")

	var students []models.StudentSummary
	if err := r.db.SelectContext(ctx, &students, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Count returns the number of registered students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}
