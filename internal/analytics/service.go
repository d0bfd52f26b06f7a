package analytics

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/parcelhub/parcelhub/internal/shared"
)

// Service coordinates report queries with the cache layer.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, logger: slog.Default()}
}

// SetLogger replaces the default logger.
func (s *Service) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *Service) warn(msg string, err error) {
	s.logger.Warn(msg, slog.Any("error", err))
}

// Report builds the summary and one page of rows for scope and f.
func (s *Service) Report(ctx context.Context, scope Scope, f Filter) (Report, error) {
	f.Page, f.PageSize = shared.NormalizePage(f.Page, f.PageSize)
	if !scope.IsOrganization() {
		f.BranchSlug = ""
	}
	if s.cache == nil {
		return s.load(ctx, scope, f)
	}

	// Redis trouble degrades to uncached reads; reports never fail because of the cache.
	key, err := s.cache.ReportKey(ctx, scope, f)
	if err != nil {
		s.warn("analytics cache key", err)
		return s.load(ctx, scope, f)
	}
	if report, ok, err := s.cache.Get(ctx, key); err != nil {
		s.warn("analytics cache read", err)
	} else if ok {
		return report, nil
	}
	report, err := s.load(ctx, scope, f)
	if err != nil {
		return Report{}, err
	}
	if err := s.cache.Put(ctx, key, report); err != nil {
		s.warn("analytics cache write", err)
	}
	return report, nil
}

func (s *Service) load(ctx context.Context, scope Scope, f Filter) (Report, error) {
	var report Report
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		totals, err := s.repo.Totals(ctx, scope, f)
		if err != nil {
			return err
		}
		report.Summary.Totals = totals
		return nil
	})
	g.Go(func() error {
		counts, err := s.repo.ByStatus(ctx, scope, f)
		if err != nil {
			return err
		}
		report.Summary.ByStatus = counts
		return nil
	})
	g.Go(func() error {
		counts, err := s.repo.ByPaymentMode(ctx, scope, f)
		if err != nil {
			return err
		}
		report.Summary.ByPaymentMode = counts
		return nil
	})
	if scope.IsOrganization() {
		g.Go(func() error {
			counts, err := s.repo.ByBranch(ctx, scope, f)
			if err != nil {
				return err
			}
			report.Summary.ByBranch = counts
			return nil
		})
	}
	g.Go(func() error {
		rows, err := s.repo.Rows(ctx, scope, f, f.PageSize, shared.Offset(f.Page, f.PageSize))
		if err != nil {
			return err
		}
		report.Data = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if report.Data == nil {
		report.Data = []Row{}
	}
	report.Pagination = shared.NewPagination(f.Page, f.PageSize, report.Summary.Count)
	return report, nil
}
