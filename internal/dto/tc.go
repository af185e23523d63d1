package dto

import "time"

// IssueTCRequest carries the values printed on a new transfer certificate.
type IssueTCRequest struct {
	StudentID   string `json:"studentId" validate:"required,max=64"`
	StudentName string `json:"studentName" validate:"required,max=255"`
	RollNumber  string `json:"rollNumber" validate:"required,max=64"`
	College     string `json:"college" validate:"required,max=255"`
	Caste       string `json:"caste" validate:"required,max=64"`
}

// IssueTCResponse describes an issued certificate.
type IssueTCResponse struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	FileName  string    `json:"fileName"`
	URL       string    `json:"url"`
	VerifyURL string    `json:"verifyUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TCSearchQuery captures the lookup parameters.
type TCSearchQuery struct {
	AdmissionNumber string `form:"admissionNumber" validate:"required"`
	StudentID       string `form:"studentId" validate:"required"`
	Download        bool   `form:"download"`
}

// TCVerifyResponse reports whether a printed verification token matches an issued certificate.
type TCVerifyResponse struct {
	Valid           bool      `json:"valid"`
	StudentID       string    `json:"studentId"`
	AdmissionNumber string    `json:"admissionNumber"`
	FileName        string    `json:"fileName"`
	IssuedAt        time.Time `json:"issuedAt"`
}
