package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
	"github.com/noah-isme/sma-tc-api/pkg/export"
)

const fieldDateOfTCIssued = "dateOfTcIssued"

// PersistFunc stores a submitted form and returns the created record.
type PersistFunc func(ctx context.Context, form dto.StudentForm) (*models.Student, error)

// RegistrationForm is one mutable registration draft. The issue date is always today.
type RegistrationForm struct {
	mu         sync.Mutex
	form       dto.StudentForm
	submitting bool
	updatedAt  time.Time
	now        func() time.Time
}

// NewRegistrationForm returns an empty draft with the issue date set to today.
func NewRegistrationForm(now func() time.Time) *RegistrationForm {
	if now == nil {
		now = time.Now
	}
	f := &RegistrationForm{now: now}
	f.form.DateOfTCIssued = f.today()
	f.updatedAt = now().UTC()
	return f
}

func (f *RegistrationForm) today() string {
	return f.now().Format(export.DateLayout)
}

// Set changes one field by its JSON name.
func (f *RegistrationForm) Set(field, value string) error {
	return f.Apply(map[string]string{field: value})
}

// Apply changes several fields at once. Unknown names reject the whole batch.
func (f *RegistrationForm) Apply(fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var unknown []string
	for name := range fields {
		if _, ok := f.form.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return appErrors.Clone(appErrors.ErrValidation, "unknown form field: "+strings.Join(unknown, ", "))
	}

	for name, value := range fields {
		ptr, _ := f.form.Field(name)
		*ptr = value
	}
	f.form.DateOfTCIssued = f.today()
	f.updatedAt = f.now().UTC()
	return nil
}

// Snapshot returns a copy of the draft.
func (f *RegistrationForm) Snapshot() dto.DraftResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return dto.DraftResponse{Form: f.form, Submitting: f.submitting, UpdatedAt: f.updatedAt}
}

// Submit hands the draft to persist. Only one submission may run at a time.
// On success every field is cleared; on failure the draft is left as it was.
func (f *RegistrationForm) Submit(ctx context.Context, persist PersistFunc) (*models.Student, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, appErrors.ErrSubmitInProgress
	}
	f.submitting = true
	form := f.form
	f.mu.Unlock()

	student, err := persist(ctx, form)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		return nil, err
	}
	f.form = dto.StudentForm{}
	f.updatedAt = f.now().UTC()
	return student, nil
}

// Reset clears the draft and restores today's issue date.
func (f *RegistrationForm) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.form = dto.StudentForm{DateOfTCIssued: f.today()}
	f.updatedAt = f.now().UTC()
}

func (f *RegistrationForm) restore(form dto.StudentForm, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.form = form
	f.form.DateOfTCIssued = f.today()
	if !updatedAt.IsZero() {
		f.updatedAt = updatedAt
	}
}
