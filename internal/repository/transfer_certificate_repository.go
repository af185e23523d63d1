package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-tc-api/internal/models"
)

// TransferCertificateRepository stores issued certificate metadata. Rows are never updated or deleted.
type TransferCertificateRepository struct {
	db *sqlx.DB
}

// NewTransferCertificateRepository constructs the repository.
func NewTransferCertificateRepository(db *sqlx.DB) *TransferCertificateRepository {
	return &TransferCertificateRepository{db: db}
}

// Create inserts the metadata row and returns the record as stored.
func (r *TransferCertificateRepository) Create(ctx context.Context, tc *models.TransferCertificate) (*models.TransferCertificate, error) {
	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	const query = `INSERT INTO transfer_certificates (id, student_id, admission_number, file_name, file_url, issued_by)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, student_id, admission_number, file_name, file_url, issued_by, created_at`
	var stored models.TransferCertificate
	if err := r.db.GetContext(ctx, &stored, query, tc.ID, tc.StudentID, tc.AdmissionNumber, tc.FileName, tc.FileURL, tc.IssuedBy); err != nil {
		return nil, fmt.Errorf("create transfer certificate: %w", err)
	}
	return &stored, nil
}

// FindLatest returns the most recent certificate matching both values exactly.
func (r *TransferCertificateRepository) FindLatest(ctx context.Context, admissionNumber, studentID string) (*models.TransferCertificate, error) {
	const query = `SELECT id, student_id, admission_number, file_name, file_url, issued_by, created_at
	FROM transfer_certificates WHERE admission_number = $1 AND student_id = $2
	ORDER BY created_at DESC LIMIT 1`
	var tc models.TransferCertificate
	if err := r.db.GetContext(ctx, &tc, query, admissionNumber, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find transfer certificate: %w", err)
	}
	return &tc, nil
}

// FindByFileName returns the certificate stored under the given object name.
func (r *TransferCertificateRepository) FindByFileName(ctx context.Context, fileName string) (*models.TransferCertificate, error) {
	const query = `SELECT id, student_id, admission_number, file_name, file_url, issued_by, created_at
	FROM transfer_certificates WHERE file_name = $1`
	var tc models.TransferCertificate
	if err := r.db.GetContext(ctx, &tc, query, fileName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find transfer certificate by file: %w", err)
	}
	return &tc, nil
}

// Count returns the number of issued certificates.
func (r *TransferCertificateRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM transfer_certificates`); err != nil {
		return 0, fmt.Errorf("count transfer certificates: %w", err)
	}
	return total, nil
}
