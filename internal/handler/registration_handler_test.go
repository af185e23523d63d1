package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/internal/service"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
)

type fakeRegistrationService struct {
	form       dto.StudentForm
	lastFields map[string]string
	submitErr  error
}

func (f *fakeRegistrationService) Draft(context.Context, string) dto.DraftResponse {
	return dto.DraftResponse{Form: f.form}
}

func (f *fakeRegistrationService) Update(_ context.Context, _ string, fields map[string]string) (dto.DraftResponse, error) {
	f.lastFields = fields
	if _, ok := fields["bogus"]; ok {
		return dto.DraftResponse{}, appErrors.Clone(appErrors.ErrValidation, "unknown form field: bogus")
	}
	f.form.StudentName = fields["studentName"]
	return dto.DraftResponse{Form: f.form}, nil
}

func (f *fakeRegistrationService) Discard(context.Context, string) dto.DraftResponse {
	f.form = dto.StudentForm{}
	return dto.DraftResponse{}
}

func (f *fakeRegistrationService) Submit(context.Context, string, service.RequestMeta) (*models.Student, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &models.Student{ID: "s1"}, nil
}

type invalidationCounter struct{ calls int }

func (i *invalidationCounter) Invalidate(context.Context) { i.calls++ }

func TestRegistrationHandlerUpdate(t *testing.T) {
	svc := &fakeRegistrationService{}
	h := NewRegistrationHandler(svc, nil)

	c, rec := newTestContext(http.MethodPatch, "/students/registration", dto.UpdateDraftRequest{Fields: map[string]string{"studentName": "John"}})
	withClaims(c, models.RoleAdmin)
	h.Update(c)
	require.Equal(t, http.StatusOK, rec.Code)
	form := decode(rec).Data["form"].(map[string]interface{})
	assert.Equal(t, "John", form["studentName"])

	c, rec = newTestContext(http.MethodPatch, "/students/registration", dto.UpdateDraftRequest{Fields: map[string]string{"bogus": "x"}})
	withClaims(c, models.RoleAdmin)
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodPatch, "/students/registration", dto.UpdateDraftRequest{})
	withClaims(c, models.RoleAdmin)
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistrationHandlerSubmit(t *testing.T) {
	counts := &invalidationCounter{}
	svc := &fakeRegistrationService{}
	h := NewRegistrationHandler(svc, counts)

	c, rec := newTestContext(http.MethodPost, "/students/registration/submit", nil)
	withClaims(c, models.RoleAdmin)
	h.Submit(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, counts.calls)

	svc.submitErr = appErrors.ErrSubmitInProgress
	c, rec = newTestContext(http.MethodPost, "/students/registration/submit", nil)
	withClaims(c, models.RoleAdmin)
	h.Submit(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, appErrors.ErrSubmitInProgress.Code, decode(rec).Error.Code)
	assert.Equal(t, 1, counts.calls)
}

func TestRegistrationHandlerRequiresSession(t *testing.T) {
	h := NewRegistrationHandler(&fakeRegistrationService{}, nil)
	c, rec := newTestContext(http.MethodGet, "/students/registration", nil)
	h.Get(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
