package models

import "time"

// Student is a registered student record.
type Student struct {
	ID               string     `db:"id" json:"id"`
	AdmissionNo      string     `db:"admission_no" json:"admissionNo"`
	UniqueID         string     `db:"unique_id" json:"uniqueId"`
	Courses          string     `db:"courses" json:"courses"`
	StudentName      string     `db:"student_name" json:"studentName"`
	Surname          string     `db:"surname" json:"surname"`
	FatherName       string     `db:"father_name" json:"fatherName"`
	MotherName       string     `db:"mother_name" json:"motherName"`
	PhoneNumber      string     `db:"phone_number" json:"phoneNumber"`
	EmailID          string     `db:"email_id" json:"emailId"`
	Address1         string     `db:"address1" json:"address1"`
	Address2         string     `db:"address2" json:"address2"`
	Address3         string     `db:"address3" json:"address3"`
	Town             string     `db:"town" json:"town"`
	State            string     `db:"state" json:"state"`
	DateOfBirth      time.Time  `db:"date_of_birth" json:"dateOfBirth"`
	Gender           string     `db:"gender" json:"gender"`
	Nationality      string     `db:"nationality" json:"nationality"`
	Religion         string     `db:"religion" json:"religion"`
	Caste            string     `db:"caste" json:"caste"`
	Subcaste         string     `db:"subcaste" json:"subcaste"`
	College          string     `db:"college" json:"college"`
	DateOfAdmission  time.Time  `db:"date_of_admission" json:"dateOfAdmission"`
	DateOfLeaving    *time.Time `db:"date_of_leaving" json:"dateOfLeaving,omitempty"`
	AadharNumber     string     `db:"aadhar_number" json:"aadharNumber"`
	OldTCNo          string     `db:"old_tc_no" json:"oldTcNo"`
	NumberOfTCIssued string     `db:"number_of_tc_issued" json:"numberOfTcIssued"`
	DateOfTCIssued   *time.Time `db:"date_of_tc_issued" json:"dateOfTcIssued,omitempty"`
	Remarks          string     `db:"remarks" json:"remarks"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// StudentSummary is the projection used by listings and certificate issuance.
// RollNumber is the admission number and StudentID the institution's unique id.
type StudentSummary struct {
	ID         string `db:"id" json:"id"`
	StudentID  string `db:"student_id" json:"studentId"`
	Name       string `db:"name" json:"name"`
	RollNumber string `db:"roll_number" json:"rollNumber"`
	College    string `db:"college" json:"college"`
	Caste      string `db:"caste" json:"caste"`
}

// StudentFilter narrows listings by exact college and caste values.
type StudentFilter struct {
	College string
	Caste   string
}
