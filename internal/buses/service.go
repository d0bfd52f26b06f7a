package buses

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

// CreateInput describes a new bus.
type CreateInput struct {
	BusNumber     string
	Description   string
	PreferredDays []int
}

// Service manages buses.
type Service struct {
	repo    Repository
	auditor shared.Auditor
	logger  *slog.Logger
}

// NewService constructs the service.
func NewService(repo Repository, auditor shared.Auditor, logger *slog.Logger) *Service {
	if auditor == nil {
		auditor = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, auditor: auditor, logger: logger}
}

// Create registers a bus.
func (s *Service) Create(ctx context.Context, actor shared.Principal, in CreateInput) (Bus, error) {
	number := strings.ToUpper(strings.TrimSpace(in.BusNumber))
	if number == "" {
		return Bus{}, fmt.Errorf("%w: bus number is required", httpx.ErrValidation)
	}
	days, err := normalizeDays(in.PreferredDays)
	if err != nil {
		return Bus{}, err
	}
	b, err := s.repo.Create(ctx, Bus{
		Slug:          uuid.NewString(),
		BusNumber:     number,
		Description:   strings.TrimSpace(in.Description),
		PreferredDays: days,
	})
	if err != nil {
		return Bus{}, err
	}
	s.audit(ctx, actor, "create", b.Slug, map[string]any{"bus_number": b.BusNumber})
	return b, nil
}

// List returns every bus.
func (s *Service) List(ctx context.Context) ([]Bus, error) {
	return s.repo.List(ctx)
}

// Available returns the buses that usually run on day's weekday. The result is
// advisory; booking does not enforce it.
func (s *Service) Available(ctx context.Context, day time.Time) ([]Bus, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Bus, 0, len(all))
	for _, b := range all {
		if b.RunsOn(day) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Delete removes a bus.
func (s *Service) Delete(ctx context.Context, actor shared.Principal, slug string) error {
	if err := s.repo.Delete(ctx, slug); err != nil {
		return err
	}
	s.audit(ctx, actor, "delete", slug, nil)
	return nil
}

func (s *Service) audit(ctx context.Context, actor shared.Principal, action, slug string, meta map[string]any) {
	entry := shared.NewAuditEntry(actor, "bus", action, slug)
	entry.Meta = meta
	err := s.auditor.Record(ctx, entry)
	if err != nil {
		s.logger.Warn("audit bus", slog.String("action", action), slog.Any("error", err))
	}
}
