package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
	"github.com/noah-isme/sma-tc-api/pkg/export"
	"github.com/noah-isme/sma-tc-api/pkg/storage"
)

type mockTCRepo struct {
	mu        sync.Mutex
	records   []models.TransferCertificate
	createErr error
	findErrs  []error
	findCalls int
}

func (m *mockTCRepo) Create(_ context.Context, tc *models.TransferCertificate) (*models.TransferCertificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	stored := *tc
	stored.ID = "tc-" + tc.FileName
	stored.CreatedAt = time.Now().UTC()
	m.records = append(m.records, stored)
	return &stored, nil
}

func (m *mockTCRepo) FindLatest(_ context.Context, admissionNumber, studentID string) (*models.TransferCertificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if len(m.findErrs) > 0 {
		err := m.findErrs[0]
		m.findErrs = m.findErrs[1:]
		return nil, err
	}
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.AdmissionNumber == admissionNumber && r.StudentID == studentID {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTCRepo) FindByFileName(_ context.Context, fileName string) (*models.TransferCertificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.FileName == fileName {
			found := r
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTCRepo) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

type flakyStore struct {
	storage.ObjectStore
	uploadErr error
	removeErr error
	removed   []string
}

func (f *flakyStore) Upload(ctx context.Context, bucket, name string, content []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	return f.ObjectStore.Upload(ctx, bucket, name, content)
}

func (f *flakyStore) Remove(ctx context.Context, bucket, name string) error {
	f.removed = append(f.removed, name)
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.ObjectStore.Remove(ctx, bucket, name)
}

type recordingScheduler struct {
	scheduled []string
}

func (r *recordingScheduler) Schedule(_, name string) error {
	r.scheduled = append(r.scheduled, name)
	return nil
}

type tcFixture struct {
	svc     *TCService
	repo    *mockTCRepo
	store   *flakyStore
	orphans *recordingScheduler
	audit   *auditStub
}

func newTCFixture(t *testing.T) *tcFixture {
	t.Helper()
	local, err := storage.NewLocalObjectStore(t.TempDir(), "http://files.test/storage/public")
	require.NoError(t, err)
	f := &tcFixture{
		repo:    &mockTCRepo{},
		store:   &flakyStore{ObjectStore: local},
		orphans: &recordingScheduler{},
		audit:   &auditStub{},
	}
	f.svc = NewTCService(f.repo, f.store, export.NewCertificateRenderer(export.FormatText),
		storage.NewCertificateSigner("secret", time.Hour), f.orphans, f.audit, newMemoryCache(), nil, nil, nil,
		TCServiceConfig{
			Bucket:           "transfer_certificates",
			CallTimeout:      time.Second,
			LookupRetries:    3,
			LookupRetryDelay: time.Millisecond,
			VerifyBaseURL:    "http://api.test/api/v1/tc/verify",
		})
	return f
}

func johnDoe() dto.IssueTCRequest {
	return dto.IssueTCRequest{StudentID: "1", StudentName: "John Doe", RollNumber: "001", College: "Engineering College", Caste: "General"}
}

func TestTCServiceIssueAndLookup(t *testing.T) {
	f := newTCFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Issue(ctx, johnDoe(), IssueOptions{Meta: RequestMeta{UserID: "admin-1"}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.FileName, "TC_1_"))
	assert.True(t, strings.HasSuffix(resp.FileName, ".txt"))
	assert.Equal(t, "http://files.test/storage/public/transfer_certificates/"+resp.FileName, resp.URL)
	assert.Contains(t, resp.VerifyURL, "http://api.test/api/v1/tc/verify?token=")
	assert.Equal(t, []string{models.AuditActionTCIssue}, f.audit.actions())

	found, err := f.svc.Lookup(ctx, "001", "1")
	require.NoError(t, err)
	assert.Equal(t, resp.FileName, found.FileName)
	require.NotNil(t, found.IssuedBy)
	assert.Equal(t, "admin-1", *found.IssuedBy)

	download, err := f.svc.Open(ctx, found)
	require.NoError(t, err)
	defer download.Body.Close()
	body, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	text := string(body)
	for _, v := range []string{"1", "John Doe", "001", "Engineering College", "General", time.Now().Format(export.DateLayout)} {
		assert.Contains(t, text, v)
	}
	assert.Equal(t, "text/plain; charset=utf-8", download.ContentType)

	_, err = f.svc.Lookup(ctx, "999", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTCNotFound))
	assert.False(t, errors.Is(err, appErrors.ErrInternal))
}

func TestTCServiceIssueValidation(t *testing.T) {
	f := newTCFixture(t)
	req := johnDoe()
	req.Caste = ""
	_, err := f.svc.Issue(context.Background(), req, IssueOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTCServiceUploadFailure(t *testing.T) {
	f := newTCFixture(t)
	f.store.uploadErr = errors.New("bucket offline")

	_, err := f.svc.Issue(context.Background(), johnDoe(), IssueOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTCIssueFailed))
	assert.Contains(t, err.Error(), "bucket offline")
	assert.Empty(t, f.repo.records)
}

func TestTCServiceInsertFailureRemovesBlob(t *testing.T) {
	f := newTCFixture(t)
	f.repo.createErr = errors.New("insert refused")

	_, err := f.svc.Issue(context.Background(), johnDoe(), IssueOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTCIssueFailed))
	assert.Contains(t, err.Error(), "insert refused")
	require.Len(t, f.store.removed, 1)
	assert.Empty(t, f.orphans.scheduled)
}

func TestTCServiceInsertFailureSchedulesCleanup(t *testing.T) {
	f := newTCFixture(t)
	f.repo.createErr = errors.New("insert refused")
	f.store.removeErr = errors.New("storage busy")

	_, err := f.svc.Issue(context.Background(), johnDoe(), IssueOptions{})
	require.Error(t, err)
	require.Len(t, f.orphans.scheduled, 1)
	assert.Equal(t, f.store.removed[0], f.orphans.scheduled[0])
}

func TestTCServiceIdempotentIssue(t *testing.T) {
	f := newTCFixture(t)
	ctx := context.Background()

	first, err := f.svc.Issue(ctx, johnDoe(), IssueOptions{IdempotencyKey: "k1"})
	require.NoError(t, err)
	second, err := f.svc.Issue(ctx, johnDoe(), IssueOptions{IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.repo.records, 1)
}

func TestTCServiceIdempotencyKeyScopedToPayload(t *testing.T) {
	f := newTCFixture(t)
	ctx := context.Background()

	first, err := f.svc.Issue(ctx, johnDoe(), IssueOptions{IdempotencyKey: "k1"})
	require.NoError(t, err)

	other := johnDoe()
	other.StudentID = "2"
	other.StudentName = "Jane Roe"
	second, err := f.svc.Issue(ctx, other, IssueOptions{IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "2", second.StudentID)
	assert.Len(t, f.repo.records, 2)
}

func TestTCServiceIssueForSlashedStudentID(t *testing.T) {
	f := newTCFixture(t)
	ctx := context.Background()

	req := johnDoe()
	req.StudentID = "2023/CS/001"
	resp, err := f.svc.Issue(ctx, req, IssueOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.FileName, "TC_2023-CS-001_"))
	assert.Equal(t, "2023/CS/001", resp.StudentID)

	found, err := f.svc.Lookup(ctx, "001", "2023/CS/001")
	require.NoError(t, err)
	assert.Equal(t, resp.FileName, found.FileName)

	download, err := f.svc.Open(ctx, found)
	require.NoError(t, err)
	defer download.Body.Close()
	body, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "2023/CS/001")

	token := resp.VerifyURL[strings.Index(resp.VerifyURL, "token=")+len("token="):]
	token, err = url.QueryUnescape(token)
	require.NoError(t, err)
	verified, err := f.svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "2023/CS/001", verified.StudentID)
}

func TestObjectSafe(t *testing.T) {
	assert.Equal(t, "1", objectSafe("1"))
	assert.Equal(t, "A-7_x.y", objectSafe("A-7_x.y"))
	assert.Equal(t, "2023-CS-001", objectSafe("2023/CS/001"))
	assert.Equal(t, "a-b", objectSafe(`a\b`))
}

func TestTCServiceLookupRetriesTransientErrors(t *testing.T) {
	f := newTCFixture(t)
	_, err := f.svc.Issue(context.Background(), johnDoe(), IssueOptions{})
	require.NoError(t, err)

	f.repo.findErrs = []error{errors.New("timeout"), errors.New("timeout")}
	found, err := f.svc.Lookup(context.Background(), "001", "1")
	require.NoError(t, err)
	assert.Equal(t, "1", found.StudentID)
	assert.Equal(t, 3, f.repo.findCalls)
}

func TestTCServiceLookupGivesUp(t *testing.T) {
	f := newTCFixture(t)
	f.repo.findErrs = []error{errors.New("a"), errors.New("b"), errors.New("c")}

	_, err := f.svc.Lookup(context.Background(), "001", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, 3, f.repo.findCalls)
}

func TestTCServiceLookupRequiresBothValues(t *testing.T) {
	f := newTCFixture(t)
	_, err := f.svc.Lookup(context.Background(), "", "1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = f.svc.Lookup(context.Background(), "001", "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, f.repo.findCalls)
}

func TestTCServiceVerify(t *testing.T) {
	f := newTCFixture(t)
	resp, err := f.svc.Issue(context.Background(), johnDoe(), IssueOptions{})
	require.NoError(t, err)

	token := resp.VerifyURL[strings.Index(resp.VerifyURL, "token=")+len("token="):]
	result, err := f.svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "001", result.AdmissionNumber)

	_, err = f.svc.Verify(context.Background(), "garbage")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
