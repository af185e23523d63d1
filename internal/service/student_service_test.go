package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/internal/repository"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
)

type mockStudentRepo struct {
	mu         sync.Mutex
	students   []models.Student
	createErr  error
	listErr    error
	listCalls  int
	lastFilter models.StudentFilter
}

func (m *mockStudentRepo) Create(_ context.Context, student *models.Student) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	stored := *student
	stored.ID = "student-" + student.AdmissionNo
	m.students = append(m.students, stored)
	return &stored, nil
}

func (m *mockStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByAdmissionNo(_ context.Context, admissionNo string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.AdmissionNo == admissionNo {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) ListSummaries(_ context.Context, filter models.StudentFilter) ([]models.StudentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.StudentSummary, 0, len(m.students))
	for _, s := range m.students {
		if filter.College != "" && s.College != filter.College {
			continue
		}
		if filter.Caste != "" && s.Caste != filter.Caste {
			continue
		}
		out = append(out, models.StudentSummary{
			ID: s.ID, StudentID: s.UniqueID, Name: s.StudentName + " " + s.Surname,
			RollNumber: s.AdmissionNo, College: s.College, Caste: s.Caste,
		})
	}
	return out, nil
}

func (m *mockStudentRepo) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.students), nil
}

func validForm() dto.StudentForm {
	return dto.StudentForm{
		AdmissionNo:     "001",
		UniqueID:        "1",
		Courses:         "B.Tech",
		StudentName:     "John",
		Surname:         "Doe",
		FatherName:      "Richard Doe",
		MotherName:      "Jane Doe",
		Address1:        "12 Main Road",
		Town:            "Hyderabad",
		State:           "Telangana",
		DateOfBirth:     "2003-04-05",
		PhoneNumber:     "9876543210",
		EmailID:         "john@example.com",
		Caste:           "General",
		Nationality:     "Indian",
		Religion:        "Hindu",
		Gender:          "Male",
		College:         "Engineering College",
		DateOfAdmission: "2021-07-01",
		DateOfLeaving:   "2025-05-31",
		AadharNumber:    "123412341234",
		DateOfTCIssued:  "2025-06-01",
	}
}

func newStudentServiceForTest(repo *mockStudentRepo, audit auditLogger) *StudentService {
	return NewStudentService(repo, audit, newMemoryCache(), nil, validator.New(), nil, StudentServiceConfig{})
}

func TestStudentServiceRegister(t *testing.T) {
	repo := &mockStudentRepo{}
	audit := &auditStub{}
	svc := newStudentServiceForTest(repo, audit)

	stored, err := svc.Register(context.Background(), validForm(), RequestMeta{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, "student-001", stored.ID)
	assert.Equal(t, "Engineering College", stored.College)
	require.NotNil(t, stored.DateOfLeaving)
	assert.Equal(t, 2025, stored.DateOfLeaving.Year())
	assert.Equal(t, []string{models.AuditActionStudentCreate}, audit.actions())
}

func TestStudentServiceRegisterRejectsDuplicateAdmission(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newStudentServiceForTest(repo, nil)

	_, err := svc.Register(context.Background(), validForm(), RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validForm(), RequestMeta{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestStudentServiceValidate(t *testing.T) {
	svc := newStudentServiceForTest(&mockStudentRepo{}, nil)

	cases := map[string]func(f *dto.StudentForm){
		"missing name":     func(f *dto.StudentForm) { f.StudentName = "" },
		"unknown course":   func(f *dto.StudentForm) { f.Courses = "Astrology" },
		"bad email":        func(f *dto.StudentForm) { f.EmailID = "nope" },
		"bad date":         func(f *dto.StudentForm) { f.DateOfBirth = "05/04/2003" },
		"leaving same day": func(f *dto.StudentForm) { f.DateOfLeaving = f.DateOfAdmission },
		"leaving before":   func(f *dto.StudentForm) { f.DateOfLeaving = "2020-01-01" },
		"unknown subcaste": func(f *dto.StudentForm) { f.Subcaste = "Z" },
		"long aadhar":      func(f *dto.StudentForm) { f.AadharNumber = "1234 5678 9012 3" },
		"long tc number":   func(f *dto.StudentForm) { f.NumberOfTCIssued = strings.Repeat("9", 33) },
		"long admission":   func(f *dto.StudentForm) { f.AdmissionNo = strings.Repeat("A", 65) },
		"long phone":       func(f *dto.StudentForm) { f.PhoneNumber = strings.Repeat("1", 33) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			form := validForm()
			mutate(&form)
			err := svc.Validate(form)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}

	form := validForm()
	form.DateOfLeaving = ""
	assert.NoError(t, svc.Validate(form))

	form = validForm()
	form.AadharNumber = "1234 5678 9012"
	form.NumberOfTCIssued = "TC/2025/CS/000123"
	assert.NoError(t, svc.Validate(form))
}

func TestStudentServiceRegisterValueTooLong(t *testing.T) {
	repo := &mockStudentRepo{createErr: fmt.Errorf("create student: %w", repository.ErrValueTooLong)}
	svc := newStudentServiceForTest(repo, nil)

	_, err := svc.Register(context.Background(), validForm(), RequestMeta{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.False(t, errors.Is(err, appErrors.ErrInternal))
}

func TestStudentServiceListSummariesUsesCache(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newStudentServiceForTest(repo, nil)

	_, err := svc.Register(context.Background(), validForm(), RequestMeta{})
	require.NoError(t, err)

	first, err := svc.ListSummaries(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	second, err := svc.ListSummaries(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls)

	form := validForm()
	form.AdmissionNo = "002"
	_, err = svc.Register(context.Background(), form, RequestMeta{})
	require.NoError(t, err)

	third, err := svc.ListSummaries(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Equal(t, 2, repo.listCalls)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc := newStudentServiceForTest(&mockStudentRepo{}, nil)
	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceListFailure(t *testing.T) {
	repo := &mockStudentRepo{listErr: errors.New("db down")}
	svc := newStudentServiceForTest(repo, nil)
	_, err := svc.ListSummaries(context.Background(), models.StudentFilter{College: "X"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, "X", repo.lastFilter.College)
}
