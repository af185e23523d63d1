package handler

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/internal/service"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
	"github.com/noah-isme/sma-tc-api/pkg/response"
)

type studentService interface {
	Register(ctx context.Context, form dto.StudentForm, meta service.RequestMeta) (*models.Student, error)
	Get(ctx context.Context, id string) (*models.Student, error)
	Options() map[string][]string
	InvalidateLists(ctx context.Context)
}

type studentListService interface {
	List(ctx context.Context, query dto.StudentListQuery, withActions bool) (*dto.GroupedStudentsResponse, error)
	Export(ctx context.Context, query dto.StudentListQuery) (*service.ExportFile, error)
	IssueForStudent(ctx context.Context, id string, opts service.IssueOptions, onIssued func(studentID string)) (*dto.IssueTCResponse, error)
}

type certificateOpener interface {
	Open(ctx context.Context, tc *models.TransferCertificate) (*service.TCDownload, error)
}

// StudentHandler manages student endpoints.
type StudentHandler struct {
	students  studentService
	lists     studentListService
	files     certificateOpener
	dashboard countInvalidator
}

// NewStudentHandler instantiates the handler.
func NewStudentHandler(students studentService, lists studentListService, files certificateOpener, dashboard countInvalidator) *StudentHandler {
	return &StudentHandler{students: students, lists: lists, files: files, dashboard: dashboard}
}

// Create godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StudentForm true "Student record"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var form dto.StudentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.students.Register(c.Request.Context(), form, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateCounts(c)
	response.Created(c, student)
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// List godoc
// @Summary Grouped student list
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param groupBy query string false "college or caste"
// @Param college query string false "College filter"
// @Param caste query string false "Caste filter"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var query dto.StudentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	claims := claimsFromContext(c)
	withActions := claims != nil && claims.Role == models.RoleAdmin
	view, err := h.lists.List(c.Request.Context(), query, withActions)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, map[string]interface{}{"total": view.Total, "groups": len(view.Groups)})
}

// Options godoc
// @Summary Permitted values for enumerated fields
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /students/options [get]
func (h *StudentHandler) Options(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.students.Options(), nil)
}

// Export godoc
// @Summary Export the grouped student list
// @Tags Students
// @Produce octet-stream
// @Security BearerAuth
// @Param groupBy query string false "college or caste"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	var query dto.StudentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	file, err := h.lists.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.FileName, file.ContentType, int64(len(file.Content)), bytes.NewReader(file.Content))
}

// IssueTC godoc
// @Summary Issue a transfer certificate for a listed student
// @Tags Transfer Certificates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param download query bool false "Stream the certificate as an attachment"
// @Param Idempotency-Key header string false "Replay key"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /students/{id}/tc [post]
func (h *StudentHandler) IssueTC(c *gin.Context) {
	ctx := c.Request.Context()
	opts := service.IssueOptions{IdempotencyKey: c.GetHeader(idempotencyHeader), Meta: requestMeta(c)}
	res, err := h.lists.IssueForStudent(ctx, c.Param("id"), opts, func(string) {
		h.students.InvalidateLists(ctx)
		h.invalidateCounts(c)
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	download, _ := strconv.ParseBool(c.Query("download"))
	if !download {
		response.Created(c, res)
		return
	}
	file, err := h.files.Open(ctx, &models.TransferCertificate{FileName: res.FileName})
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Body.Close() //nolint:errcheck
	response.Attachment(c, file.FileName, file.ContentType, file.Size, file.Body)
}

func (h *StudentHandler) invalidateCounts(c *gin.Context) {
	if h.dashboard != nil {
		h.dashboard.Invalidate(c.Request.Context())
	}
}
