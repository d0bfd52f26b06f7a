package branches

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// CacheInvalidator drops derived read models after a write.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service manages branches.
type Service struct {
	repo    Repository
	auditor shared.Auditor
	cache   CacheInvalidator
	hash    func(string) (string, error)
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the service. hash turns a plain password into a stored hash.
func NewService(repo Repository, auditor shared.Auditor, hash func(string) (string, error), logger *slog.Logger) *Service {
	if auditor == nil {
		auditor = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		auditor: auditor,
		hash:    hash,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetCacheInvalidator registers the analytics cache.
func (s *Service) SetCacheInvalidator(c CacheInvalidator) { s.cache = c }

// Create adds a branch with its administrator account.
func (s *Service) Create(ctx context.Context, actor shared.Principal, in CreateInput) (Branch, error) {
	title := strings.TrimSpace(in.Title)
	base := Slugify(title)
	if base == "" {
		return Branch{}, fmt.Errorf("%w: title must contain letters or digits", httpx.ErrValidation)
	}
	slug := base + "-" + uuid.NewString()[:6]
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = slug
	}
	hashed, err := s.hash(in.Password)
	if err != nil {
		return Branch{}, err
	}

	now := s.now()
	b := Branch{
		Slug:                   slug,
		Title:                  title,
		Description:            strings.TrimSpace(in.Description),
		CurrentOperationalDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
	created, err := s.repo.Create(ctx, b, NewOwner{Username: username, Name: title, PasswordHash: hashed})
	if err != nil {
		return Branch{}, err
	}
	s.audit(ctx, actor, "create", created.Slug, map[string]any{"title": created.Title, "username": created.OwnerUsername})
	s.bump(ctx)
	return created, nil
}

// List returns every branch.
func (s *Service) List(ctx context.Context) ([]Branch, error) {
	return s.repo.List(ctx, "")
}

// Others returns every branch except the caller's.
func (s *Service) Others(ctx context.Context, p shared.Principal) ([]Branch, error) {
	return s.repo.List(ctx, p.OfficeID)
}

// Me returns the caller's branch.
func (s *Service) Me(ctx context.Context, p shared.Principal) (Branch, error) {
	if p.OfficeID == "" {
		return Branch{}, ErrNotFound
	}
	return s.repo.Get(ctx, p.OfficeID)
}

// Delete removes a branch and its administrator account.
func (s *Service) Delete(ctx context.Context, actor shared.Principal, slug string) error {
	if err := s.repo.Delete(ctx, slug); err != nil {
		return err
	}
	s.audit(ctx, actor, "delete", slug, nil)
	s.bump(ctx)
	return nil
}

// DayEnd closes the caller's business day, once per calendar day.
func (s *Service) DayEnd(ctx context.Context, p shared.Principal) (Branch, error) {
	if p.OfficeID == "" {
		return Branch{}, ErrNotFound
	}
	b, err := s.repo.AdvanceDay(ctx, p.OfficeID, s.now())
	if err != nil {
		return Branch{}, err
	}
	s.audit(ctx, p, "day_end", b.Slug, map[string]any{"operational_date": b.CurrentOperationalDate.Format("2006-01-02")})
	return b, nil
}

func (s *Service) audit(ctx context.Context, actor shared.Principal, action, slug string, meta map[string]any) {
	entry := shared.NewAuditEntry(actor, "branch", action, slug)
	entry.Meta = meta
	entry.At = s.now()
	err := s.auditor.Record(ctx, entry)
	if err != nil {
		s.logger.Warn("audit branch", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("analytics cache bump", slog.Any("error", err))
	}
}
