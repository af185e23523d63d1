package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
	"github.com/noah-isme/sma-tc-api/pkg/export"
	"github.com/noah-isme/sma-tc-api/pkg/storage"
)

type tcRepository interface {
	Create(ctx context.Context, tc *models.TransferCertificate) (*models.TransferCertificate, error)
	FindLatest(ctx context.Context, admissionNumber, studentID string) (*models.TransferCertificate, error)
	FindByFileName(ctx context.Context, fileName string) (*models.TransferCertificate, error)
	Count(ctx context.Context) (int, error)
}

type tcSigner interface {
	Generate(studentID, fileName string) (string, time.Time, error)
	Parse(token string) (studentID, fileName string, expiresAt time.Time, err error)
}

type orphanScheduler interface {
	Schedule(bucket, name string) error
}

// TCServiceConfig tunes certificate storage and lookups.
type TCServiceConfig struct {
	Bucket           string
	CallTimeout      time.Duration
	LookupRetries    int
	LookupRetryDelay time.Duration
	IdempotencyTTL   time.Duration
	VerifyBaseURL    string
}

// IssueOptions carries per-request issuance metadata.
type IssueOptions struct {
	IdempotencyKey string
	Meta           RequestMeta
}

// TCDownload is an opened certificate ready for streaming.
type TCDownload struct {
	Body        io.ReadCloser
	FileName    string
	ContentType string
	Size        int64
}

// TCService issues, finds and verifies transfer certificates.
type TCService struct {
	repo      tcRepository
	store     storage.ObjectStore
	renderer  *export.CertificateRenderer
	signer    tcSigner
	orphans   orphanScheduler
	cache     *CacheService
	metrics   *MetricsService
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TCServiceConfig
	now       func() time.Time
}

// NewTCService constructs the certificate service.
func NewTCService(repo tcRepository, store storage.ObjectStore, renderer *export.CertificateRenderer, signer tcSigner, orphans orphanScheduler, audit auditLogger, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg TCServiceConfig) *TCService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewCertificateRenderer(export.FormatText)
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "transfer_certificates"
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.LookupRetries <= 0 {
		cfg.LookupRetries = 1
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	return &TCService{
		repo:      repo,
		store:     store,
		renderer:  renderer,
		signer:    signer,
		orphans:   orphans,
		cache:     cacheSvc,
		metrics:   metrics,
		audit:     auditRecorder{audit: audit, logger: logger},
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Issue renders a certificate, uploads it and records its metadata.
func (s *TCService) Issue(ctx context.Context, req dto.IssueTCRequest, opts IssueOptions) (*dto.IssueTCResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certificate payload")
	}

	var idemKey string
	if opts.IdempotencyKey != "" {
		idemKey = cache.Key("tc", "idempotency", opts.IdempotencyKey, requestDigest(req))
		var previous dto.IssueTCResponse
		if hit, _ := s.cache.Get(ctx, idemKey, &previous); hit && previous.ID != "" {
			return &previous, nil
		}
		claimed, err := s.cache.Claim(ctx, idemKey, dto.IssueTCResponse{}, s.cfg.IdempotencyTTL)
		if err == nil && !claimed {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a request with this idempotency key is in progress")
		}
	}

	resp, err := s.issue(ctx, req, opts.Meta)
	if idemKey != "" {
		if err != nil {
			_ = s.cache.Delete(ctx, idemKey)
		} else {
			_ = s.cache.Set(ctx, idemKey, resp, s.cfg.IdempotencyTTL)
		}
	}
	return resp, err
}

func (s *TCService) issue(ctx context.Context, req dto.IssueTCRequest, meta RequestMeta) (*dto.IssueTCResponse, error) {
	issuedAt := s.now()
	fileName := fmt.Sprintf("TC_%s_%d.%s", objectSafe(req.StudentID), issuedAt.UnixMilli(), s.renderer.Format())

	doc, err := s.renderer.Render(export.CertificateData{
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		RollNumber:  req.RollNumber,
		College:     req.College,
		Caste:       req.Caste,
		IssuedOn:    issuedAt,
		VerifyURL:   s.verifyURL(req.StudentID, fileName),
	})
	if err != nil {
		s.metrics.RecordTCIssueFailure("render")
		return nil, appErrors.Wrap(err, appErrors.ErrTCIssueFailed.Code, appErrors.ErrTCIssueFailed.Status, "failed to render certificate")
	}

	if err := s.upload(ctx, fileName, doc.Content); err != nil {
		s.metrics.RecordTCIssueFailure("upload")
		return nil, appErrors.Wrap(err, appErrors.ErrTCIssueFailed.Code, appErrors.ErrTCIssueFailed.Status, "failed to upload certificate")
	}

	record := &models.TransferCertificate{
		StudentID:       req.StudentID,
		AdmissionNumber: req.RollNumber,
		FileName:        fileName,
		FileURL:         s.store.PublicURL(s.cfg.Bucket, fileName),
	}
	if meta.UserID != "" {
		issuer := meta.UserID
		record.IssuedBy = &issuer
	}

	insertCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	stored, err := s.repo.Create(insertCtx, record)
	cancel()
	if err != nil {
		s.metrics.RecordTCIssueFailure("insert")
		s.discardOrphan(ctx, fileName)
		return nil, appErrors.Wrap(err, appErrors.ErrTCIssueFailed.Code, appErrors.ErrTCIssueFailed.Status, "failed to record certificate")
	}

	s.metrics.RecordTCIssued(doc.Extension)
	s.audit.record(ctx, meta, models.AuditActionTCIssue, models.AuditResourceCertificate, stored.ID, map[string]string{
		"studentId": stored.StudentID,
		"fileName":  stored.FileName,
	})
	s.logger.Info("transfer certificate issued", zap.String("student_id", stored.StudentID), zap.String("file_name", stored.FileName))

	return &dto.IssueTCResponse{
		ID:        stored.ID,
		StudentID: stored.StudentID,
		FileName:  stored.FileName,
		URL:       stored.FileURL,
		VerifyURL: s.verifyURL(stored.StudentID, stored.FileName),
		CreatedAt: stored.CreatedAt,
	}, nil
}

func (s *TCService) upload(ctx context.Context, fileName string, content []byte) error {
	uploadCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	start := time.Now()
	err := s.store.Upload(uploadCtx, s.cfg.Bucket, fileName, content)
	s.metrics.ObserveStorage("upload", time.Since(start))
	return err
}

// discardOrphan removes a blob whose metadata row was never written. When the
// delete fails the blob is handed to the cleanup queue.
func (s *TCService) discardOrphan(ctx context.Context, fileName string) {
	removeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CallTimeout)
	defer cancel()
	start := time.Now()
	err := s.store.Remove(removeCtx, s.cfg.Bucket, fileName)
	s.metrics.ObserveStorage("remove", time.Since(start))
	if err == nil || errors.Is(err, storage.ErrObjectNotFound) {
		s.metrics.RecordOrphanCleanup("removed")
		return
	}
	s.logger.Warn("failed to remove orphaned certificate", zap.String("file_name", fileName), zap.Error(err))
	if s.orphans == nil {
		return
	}
	if err := s.orphans.Schedule(s.cfg.Bucket, fileName); err != nil {
		s.logger.Error("orphaned certificate not scheduled for cleanup", zap.String("file_name", fileName), zap.Error(err))
	}
}

func (s *TCService) verifyURL(studentID, fileName string) string {
	if s.signer == nil || s.cfg.VerifyBaseURL == "" {
		return ""
	}
	token, _, err := s.signer.Generate(studentID, fileName)
	if err != nil {
		s.logger.Warn("verification token not generated", zap.Error(err))
		return ""
	}
	return s.cfg.VerifyBaseURL + "?token=" + url.QueryEscape(token)
}

// Lookup finds the latest certificate matching both values exactly. Transient
// query failures are retried; a missing record is not.
func (s *TCService) Lookup(ctx context.Context, admissionNumber, studentID string) (*models.TransferCertificate, error) {
	if admissionNumber == "" || studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "admission number and student id are required")
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.LookupRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		tc, err := s.repo.FindLatest(callCtx, admissionNumber, studentID)
		cancel()
		switch {
		case err == nil:
			s.metrics.RecordTCLookup("found")
			return tc, nil
		case errors.Is(err, sql.ErrNoRows):
			s.metrics.RecordTCLookup("not_found")
			return nil, appErrors.ErrTCNotFound
		}

		lastErr = err
		s.logger.Warn("certificate lookup failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == s.cfg.LookupRetries {
			break
		}
		select {
		case <-ctx.Done():
			s.metrics.RecordTCLookup("error")
			return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "certificate lookup cancelled")
		case <-time.After(s.cfg.LookupRetryDelay):
		}
	}

	s.metrics.RecordTCLookup("error")
	return nil, appErrors.Wrap(lastErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up certificate")
}

// Open returns the stored certificate file for download.
func (s *TCService) Open(ctx context.Context, tc *models.TransferCertificate) (*TCDownload, error) {
	if tc == nil {
		return nil, appErrors.ErrTCNotFound
	}
	start := time.Now()
	body, size, err := s.store.Open(s.cfg.Bucket, tc.FileName)
	s.metrics.ObserveStorage("open", time.Since(start))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate file missing from storage")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open certificate")
	}
	return &TCDownload{Body: body, FileName: tc.FileName, ContentType: contentTypeFor(tc.FileName), Size: size}, nil
}

// Verify checks a token printed on a certificate against the stored record.
func (s *TCService) Verify(ctx context.Context, token string) (*dto.TCVerifyResponse, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate verification is disabled")
	}
	if strings.TrimSpace(token) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	studentID, fileName, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "verification token expired")
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "verification token invalid")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	tc, err := s.repo.FindByFileName(callCtx, fileName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTCNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify certificate")
	}
	if tc.StudentID != studentID {
		return nil, appErrors.ErrTCNotFound
	}
	return &dto.TCVerifyResponse{
		Valid:           true,
		StudentID:       tc.StudentID,
		AdmissionNumber: tc.AdmissionNumber,
		FileName:        tc.FileName,
		IssuedAt:        tc.CreatedAt,
	}, nil
}

// Count returns the number of issued certificates.
func (s *TCService) Count(ctx context.Context) (int, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count certificates")
	}
	return total, nil
}

// objectSafe maps an id onto the characters allowed in an object name. The
// stored record keeps the id as entered.
func objectSafe(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '-'
	}, id)
}

// requestDigest scopes an idempotency key to the certificate it was first used for.
func requestDigest(req dto.IssueTCRequest) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{req.StudentID, req.StudentName, req.RollNumber, req.College, req.Caste}, "\x00")))
	return hex.EncodeToString(sum[:8])
}

func contentTypeFor(fileName string) string {
	if strings.EqualFold(path.Ext(fileName), "."+export.FormatPDF) {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}
