package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind a report.
type Repository interface {
	Totals(ctx context.Context, scope Scope, f Filter) (Totals, error)
	ByStatus(ctx context.Context, scope Scope, f Filter) ([]StatusCount, error)
	ByPaymentMode(ctx context.Context, scope Scope, f Filter) ([]PaymentModeCount, error)
	ByBranch(ctx context.Context, scope Scope, f Filter) ([]BranchCount, error)
	Rows(ctx context.Context, scope Scope, f Filter, limit, offset int) ([]Row, error)
}

// PGRepository implements Repository on postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs the repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Totals(ctx context.Context, scope Scope, f Filter) (Totals, error) {
	w := buildWhere(scope, f)
	var t Totals
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(s.price), 0)::text, COALESCE(ROUND(AVG(s.price), 2), 0)::text
		FROM shipments s WHERE `+w.SQL(), w.args...).Scan(&t.Count, &t.Revenue, &t.AveragePrice)
	return t, err
}

func (r *PGRepository) ByStatus(ctx context.Context, scope Scope, f Filter) ([]StatusCount, error) {
	w := buildWhere(scope, f)
	rows, err := r.pool.Query(ctx, `
		SELECT s.current_status, COUNT(*) FROM shipments s WHERE `+w.SQL()+`
		GROUP BY s.current_status
		ORDER BY array_position(ARRAY['BOOKED','IN_TRANSIT','ARRIVED','DELIVERED'], s.current_status::text)`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StatusCount{}
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *PGRepository) ByPaymentMode(ctx context.Context, scope Scope, f Filter) ([]PaymentModeCount, error) {
	w := buildWhere(scope, f)
	rows, err := r.pool.Query(ctx, `
		SELECT s.payment_mode, COUNT(*) FROM shipments s WHERE `+w.SQL()+`
		GROUP BY s.payment_mode ORDER BY s.payment_mode DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PaymentModeCount{}
	for rows.Next() {
		var pc PaymentModeCount
		if err := rows.Scan(&pc.PaymentMode, &pc.Count); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func (r *PGRepository) ByBranch(ctx context.Context, scope Scope, f Filter) ([]BranchCount, error) {
	w := buildWhere(scope, f)
	rows, err := r.pool.Query(ctx, `
		SELECT b.slug, b.title, COUNT(*), COALESCE(SUM(s.price), 0)::text
		FROM shipments s
		JOIN branches b ON b.slug IN (s.source_branch, s.destination_branch)
		WHERE `+w.SQL()+`
		GROUP BY b.slug, b.title
		ORDER BY COUNT(*) DESC, b.title`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BranchCount{}
	for rows.Next() {
		var bc BranchCount
		if err := rows.Scan(&bc.Branch.Slug, &bc.Branch.Title, &bc.Count, &bc.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, bc)
	}
	return out, rows.Err()
}

func (r *PGRepository) Rows(ctx context.Context, scope Scope, f Filter, limit, offset int) ([]Row, error) {
	w := buildWhere(scope, f)
	args := append(w.args, limit, offset)
	rows, err := r.pool.Query(ctx, `
		SELECT s.slug, s.tracking_id, s.sender_name, s.receiver_name,
		       src.slug, src.title, dst.slug, dst.title,
		       bus.slug, bus.bus_number, bus.preferred_days,
		       s.price::text, s.payment_mode, s.current_status, to_char(s.day, 'YYYY-MM-DD'), s.created_at
		FROM shipments s
		JOIN branches src ON src.slug = s.source_branch
		JOIN branches dst ON dst.slug = s.destination_branch
		LEFT JOIN buses bus ON bus.slug = s.bus_slug
		WHERE `+w.SQL()+fmt.Sprintf(`
		ORDER BY s.created_at DESC, s.slug
		LIMIT $%d OFFSET $%d`, len(w.args)+1, len(w.args)+2), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Row{}
	for rows.Next() {
		var row Row
		var busSlug, busNumber *string
		var busDays []int32
		if err := rows.Scan(&row.Slug, &row.TrackingID, &row.SenderName, &row.ReceiverName,
			&row.SourceBranch.Slug, &row.SourceBranch.Title, &row.DestinationBranch.Slug, &row.DestinationBranch.Title,
			&busSlug, &busNumber, &busDays,
			&row.Price, &row.PaymentMode, &row.CurrentStatus, &row.Day, &row.CreatedAt); err != nil {
			return nil, err
		}
		if busSlug != nil {
			row.Bus = &BusRef{Slug: *busSlug, PreferredDays: make([]int, len(busDays))}
			if busNumber != nil {
				row.Bus.BusNumber = *busNumber
			}
			for i, d := range busDays {
				row.Bus.PreferredDays[i] = int(d)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
