package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/pkg/cache"
)

type studentRegistrar interface {
	Register(ctx context.Context, form dto.StudentForm, meta RequestMeta) (*models.Student, error)
}

type draftEntry struct {
	form    *RegistrationForm
	touched time.Time
}

// RegistrationService keeps one registration draft per session. Drafts live in
// memory and are mirrored to the cache so they survive restarts.
type RegistrationService struct {
	students studentRegistrar
	cache    *CacheService
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	drafts map[string]*draftEntry
}

// NewRegistrationService constructs the draft store.
func NewRegistrationService(students studentRegistrar, cacheSvc *CacheService, ttl time.Duration, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RegistrationService{
		students: students,
		cache:    cacheSvc,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		drafts:   make(map[string]*draftEntry),
	}
}

// Draft returns the session's current draft.
func (s *RegistrationService) Draft(ctx context.Context, sessionID string) dto.DraftResponse {
	return s.form(ctx, sessionID).Snapshot()
}

// Update applies field changes to the session's draft.
func (s *RegistrationService) Update(ctx context.Context, sessionID string, fields map[string]string) (dto.DraftResponse, error) {
	form := s.form(ctx, sessionID)
	if err := form.Apply(fields); err != nil {
		return dto.DraftResponse{}, err
	}
	snapshot := form.Snapshot()
	s.persist(ctx, sessionID, snapshot)
	return snapshot, nil
}

// Discard resets the session's draft.
func (s *RegistrationService) Discard(ctx context.Context, sessionID string) dto.DraftResponse {
	form := s.form(ctx, sessionID)
	form.Reset()
	_ = s.cache.Delete(ctx, draftKey(sessionID))
	return form.Snapshot()
}

// Submit registers the session's draft as a student record.
func (s *RegistrationService) Submit(ctx context.Context, sessionID string, meta RequestMeta) (*models.Student, error) {
	form := s.form(ctx, sessionID)
	student, err := form.Submit(ctx, func(ctx context.Context, f dto.StudentForm) (*models.Student, error) {
		return s.students.Register(ctx, f, meta)
	})
	if err != nil {
		return nil, err
	}
	s.persist(ctx, sessionID, form.Snapshot())
	return student, nil
}

func (s *RegistrationService) form(ctx context.Context, sessionID string) *RegistrationForm {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	if entry, ok := s.drafts[sessionID]; ok {
		entry.touched = now
		return entry.form
	}

	form := NewRegistrationForm(s.now)
	var cached dto.DraftResponse
	if hit, _ := s.cache.Get(ctx, draftKey(sessionID), &cached); hit {
		form.restore(cached.Form, cached.UpdatedAt)
	}
	s.drafts[sessionID] = &draftEntry{form: form, touched: now}
	return form
}

func (s *RegistrationService) evictLocked(now time.Time) {
	for id, entry := range s.drafts {
		if now.Sub(entry.touched) > s.ttl {
			delete(s.drafts, id)
		}
	}
}

func (s *RegistrationService) persist(ctx context.Context, sessionID string, snapshot dto.DraftResponse) {
	snapshot.Submitting = false
	if err := s.cache.Set(ctx, draftKey(sessionID), snapshot, s.ttl); err != nil {
		s.logger.Debug("draft not cached", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func draftKey(sessionID string) string {
	return cache.Key("draft", sessionID)
}
