package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/internal/repository"
	"github.com/noah-isme/sma-tc-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
	"github.com/noah-isme/sma-tc-api/pkg/export"
)

type studentRepository interface {
	Create(ctx context.Context, student *models.Student) (*models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByAdmissionNo(ctx context.Context, admissionNo string) (bool, error)
	ListSummaries(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, error)
	Count(ctx context.Context) (int, error)
}

// StudentServiceConfig tunes listing caches.
type StudentServiceConfig struct {
	ListCacheTTL time.Duration
}

// StudentService validates and persists student records.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	cache     *CacheService
	metrics   *MetricsService
	audit     auditRecorder
	logger    *zap.Logger
	cfg       StudentServiceConfig
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, audit auditLogger, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg StudentServiceConfig) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerStudentValidations(validate)
	return &StudentService{
		repo:      repo,
		validator: validate,
		cache:     cacheSvc,
		metrics:   metrics,
		audit:     auditRecorder{audit: audit, logger: logger},
		logger:    logger,
		cfg:       cfg,
	}
}

func registerStudentValidations(v *validator.Validate) {
	sets := models.OptionSets()
	_ = v.RegisterValidation("option", func(fl validator.FieldLevel) bool {
		options, ok := sets[fl.Param()]
		if !ok {
			return false
		}
		value := fl.Field().String()
		for _, opt := range options {
			if opt == value {
				return true
			}
		}
		return false
	})
}

// Validate checks required fields, option sets and the admission/leaving date order.
func (s *StudentService) Validate(form dto.StudentForm) error {
	if err := s.validator.Struct(form); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if form.DateOfLeaving == "" {
		return nil
	}
	admitted, _ := time.Parse(export.DateLayout, form.DateOfAdmission)
	left, _ := time.Parse(export.DateLayout, form.DateOfLeaving)
	if !left.After(admitted) {
		return appErrors.Clone(appErrors.ErrValidation, "date of leaving must be after date of admission")
	}
	return nil
}

// Register validates the form and inserts the record. The stored row, including its
// generated id, is returned.
func (s *StudentService) Register(ctx context.Context, form dto.StudentForm, meta RequestMeta) (*models.Student, error) {
	if err := s.Validate(form); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByAdmissionNo(ctx, form.AdmissionNo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admission number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already registered")
	}

	stored, err := s.repo.Create(ctx, studentFromForm(form))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already registered")
		}
		if errors.Is(err, repository.ErrValueTooLong) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a field exceeds its maximum length")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register student")
	}

	s.InvalidateLists(ctx)
	s.metrics.RecordRegistration()
	s.audit.record(ctx, meta, models.AuditActionStudentCreate, models.AuditResourceStudent, stored.ID, map[string]string{
		"admissionNo": stored.AdmissionNo,
		"college":     stored.College,
	})
	return stored, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// ListSummaries returns listing projections, served from cache when possible.
func (s *StudentService) ListSummaries(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, error) {
	key := cache.Key("students", "list", filter.College, filter.Caste)
	var cached []models.StudentSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	students, err := s.repo.ListSummaries(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.StudentSummary{}
	}
	_ = s.cache.Set(ctx, key, students, s.cfg.ListCacheTTL)
	return students, nil
}

// Count returns the number of registered students.
func (s *StudentService) Count(ctx context.Context) (int, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	return total, nil
}

// InvalidateLists drops cached listings.
func (s *StudentService) InvalidateLists(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cache.Key("students", "list", "*"))
}

// Options returns the permitted values of the enumerated fields.
func (s *StudentService) Options() map[string][]string {
	return models.OptionSets()
}

func studentFromForm(form dto.StudentForm) *models.Student {
	return &models.Student{
		AdmissionNo:      form.AdmissionNo,
		UniqueID:         form.UniqueID,
		Courses:          form.Courses,
		StudentName:      form.StudentName,
		Surname:          form.Surname,
		FatherName:       form.FatherName,
		MotherName:       form.MotherName,
		PhoneNumber:      form.PhoneNumber,
		EmailID:          form.EmailID,
		Address1:         form.Address1,
		Address2:         form.Address2,
		Address3:         form.Address3,
		Town:             form.Town,
		State:            form.State,
		DateOfBirth:      parseDate(form.DateOfBirth),
		Gender:           form.Gender,
		Nationality:      form.Nationality,
		Religion:         form.Religion,
		Caste:            form.Caste,
		Subcaste:         form.Subcaste,
		College:          form.College,
		DateOfAdmission:  parseDate(form.DateOfAdmission),
		DateOfLeaving:    parseOptionalDate(form.DateOfLeaving),
		AadharNumber:     form.AadharNumber,
		OldTCNo:          form.OldTCNo,
		NumberOfTCIssued: form.NumberOfTCIssued,
		DateOfTCIssued:   parseOptionalDate(form.DateOfTCIssued),
		Remarks:          form.Remarks,
	}
}

func parseDate(raw string) time.Time {
	t, _ := time.Parse(export.DateLayout, raw)
	return t
}

func parseOptionalDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t := parseDate(raw)
	return &t
}
