package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
)

type counter interface {
	Count(ctx context.Context) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	APIPrefix string
	CacheTTL  time.Duration
}

// DashboardService composes the role-specific dashboard shells.
type DashboardService struct {
	students     counter
	certificates counter
	cache        *CacheService
	logger       *zap.Logger
	cfg          DashboardServiceConfig
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(students, certificates counter, cacheSvc *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")
	return &DashboardService{students: students, certificates: certificates, cache: cacheSvc, logger: logger, cfg: cfg}
}

// Get returns the dashboard for the caller's role.
func (s *DashboardService) Get(ctx context.Context, claims *models.JWTClaims) (*dto.DashboardResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch claims.Role {
	case models.RoleAdmin:
		counts, err := s.counts(ctx)
		if err != nil {
			return nil, err
		}
		return &dto.DashboardResponse{
			Role:  string(models.RoleAdmin),
			Title: "Admin Dashboard",
			Cards: []dto.DashboardCard{
				{Category: "Students", Title: "Manage Students", Path: s.path("/students")},
				{Category: "Courses", Title: "Course Management", Path: s.path("/students/options")},
				{Category: "Analytics", Title: "View Reports", Path: s.path("/students/export")},
				{Category: "Documents", Title: "Manage Files", Path: s.path("/tc/search")},
			},
			Navigation: []dto.NavItem{
				{Key: "registration", Label: "Student Registration", Method: http.MethodGet, Path: s.path("/students/registration")},
				{Key: "list_by_college", Label: "Students by College", Method: http.MethodGet, Path: s.path("/students?groupBy=college")},
				{Key: "list_by_caste", Label: "Students by Caste", Method: http.MethodGet, Path: s.path("/students?groupBy=caste")},
				{Key: "tc_search", Label: "Search Transfer Certificate", Method: http.MethodGet, Path: s.path("/tc/search")},
				{Key: "tc_issue", Label: "Generate Transfer Certificate", Method: http.MethodPost, Path: s.path("/tc")},
			},
			Counts:     counts,
			LogoutPath: "/login",
		}, nil
	case models.RoleStudent:
		return &dto.DashboardResponse{
			Role:  string(models.RoleStudent),
			Title: "Student Portal",
			Cards: []dto.DashboardCard{
				{Category: "My Profile", Title: "View Details", Path: s.path("/auth/me")},
				{Category: "Courses", Title: "Current Semester"},
				{Category: "Academic", Title: "Progress"},
				{Category: "Documents", Title: "Certificates", Path: s.path("/tc/search")},
			},
			Navigation: []dto.NavItem{
				{Key: "profile", Label: "View Details", Method: http.MethodGet, Path: s.path("/auth/me")},
				{Key: "tc_search", Label: "Search Transfer Certificate", Method: http.MethodGet, Path: s.path("/tc/search")},
			},
			LogoutPath: "/login",
		}, nil
	}
	return nil, appErrors.ErrForbidden
}

func (s *DashboardService) counts(ctx context.Context) (*dto.DashboardCounts, error) {
	key := cache.Key("dashboard", "counts")
	var cached dto.DashboardCounts
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	students, err := s.students.Count(ctx)
	if err != nil {
		return nil, err
	}
	certificates, err := s.certificates.Count(ctx)
	if err != nil {
		return nil, err
	}
	counts := &dto.DashboardCounts{TotalStudents: students, CertificatesIssued: certificates}
	_ = s.cache.Set(ctx, key, counts, s.cfg.CacheTTL)
	return counts, nil
}

// Invalidate drops cached counts.
func (s *DashboardService) Invalidate(ctx context.Context) {
	_ = s.cache.Delete(ctx, cache.Key("dashboard", "counts"))
}

func (s *DashboardService) path(p string) string {
	return s.cfg.APIPrefix + p
}
