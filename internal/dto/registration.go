package dto

import "time"

// StudentForm is the registration draft. Every field is kept as entered text.
type StudentForm struct {
	AdmissionNo      string `json:"admissionNo" validate:"required,max=64"`
	UniqueID         string `json:"uniqueId" validate:"required,max=64"`
	Courses          string `json:"courses" validate:"required,option=courses"`
	StudentName      string `json:"studentName" validate:"required,max=255"`
	Surname          string `json:"surname" validate:"required,max=255"`
	FatherName       string `json:"fatherName" validate:"required,max=255"`
	MotherName       string `json:"motherName" validate:"required,max=255"`
	Address1         string `json:"address1" validate:"required"`
	Address2         string `json:"address2"`
	Address3         string `json:"address3"`
	Town             string `json:"town" validate:"required,option=town"`
	State            string `json:"state" validate:"required,option=state"`
	DateOfBirth      string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	PhoneNumber      string `json:"phoneNumber" validate:"required,max=32"`
	EmailID          string `json:"emailId" validate:"required,email,max=255"`
	Caste            string `json:"caste" validate:"required,option=caste"`
	Subcaste         string `json:"subcaste" validate:"omitempty,option=subcaste"`
	Nationality      string `json:"nationality" validate:"required,option=nationality"`
	Religion         string `json:"religion" validate:"required,option=religion"`
	Gender           string `json:"gender" validate:"required,option=gender"`
	College          string `json:"college" validate:"required,max=255"`
	DateOfAdmission  string `json:"dateOfAdmission" validate:"required,datetime=2006-01-02"`
	DateOfLeaving    string `json:"dateOfLeaving" validate:"omitempty,datetime=2006-01-02"`
	OldTCNo          string `json:"oldTcNo" validate:"omitempty,max=64"`
	AadharNumber     string `json:"aadharNumber" validate:"required,max=14"`
	NumberOfTCIssued string `json:"numberOfTcIssued" validate:"omitempty,max=32"`
	DateOfTCIssued   string `json:"dateOfTcIssued" validate:"omitempty,datetime=2006-01-02"`
	Remarks          string `json:"remarks"`
}

// Field returns a pointer to the form field with the given JSON name.
func (f *StudentForm) Field(name string) (*string, bool) {
	switch name {
	case "admissionNo":
		return &f.AdmissionNo, true
	case "uniqueId":
		return &f.UniqueID, true
	case "courses":
		return &f.Courses, true
	case "studentName":
		return &f.StudentName, true
	case "surname":
		return &f.Surname, true
	case "fatherName":
		return &f.FatherName, true
	case "motherName":
		return &f.MotherName, true
	case "address1":
		return &f.Address1, true
	case "address2":
		return &f.Address2, true
	case "address3":
		return &f.Address3, true
	case "town":
		return &f.Town, true
	case "state":
		return &f.State, true
	case "dateOfBirth":
		return &f.DateOfBirth, true
	case "phoneNumber":
		return &f.PhoneNumber, true
	case "emailId":
		return &f.EmailID, true
	case "caste":
		return &f.Caste, true
	case "subcaste":
		return &f.Subcaste, true
	case "nationality":
		return &f.Nationality, true
	case "religion":
		return &f.Religion, true
	case "gender":
		return &f.Gender, true
	case "college":
		return &f.College, true
	case "dateOfAdmission":
		return &f.DateOfAdmission, true
	case "dateOfLeaving":
		return &f.DateOfLeaving, true
	case "oldTcNo":
		return &f.OldTCNo, true
	case "aadharNumber":
		return &f.AadharNumber, true
	case "numberOfTcIssued":
		return &f.NumberOfTCIssued, true
	case "dateOfTcIssued":
		return &f.DateOfTCIssued, true
	case "remarks":
		return &f.Remarks, true
	}
	return nil, false
}

// UpdateDraftRequest carries one or more field changes keyed by JSON name.
type UpdateDraftRequest struct {
	Fields map[string]string `json:"fields" validate:"required,min=1"`
}

// DraftResponse is the current registration draft.
type DraftResponse struct {
	Form       StudentForm `json:"form"`
	Submitting bool        `json:"submitting"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}
