package models

import "time"

// TransferCertificate is the metadata row for an issued certificate file.
type TransferCertificate struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"studentId"`
	AdmissionNumber string    `db:"admission_number" json:"admissionNumber"`
	FileName        string    `db:"file_name" json:"fileName"`
	FileURL         string    `db:"file_url" json:"url"`
	IssuedBy        *string   `db:"issued_by" json:"issuedBy,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}
