package shared

import "math"

const (
	// DefaultPageSize applies when a listing omits page_size.
	DefaultPageSize = 50
	// MaxPageSize caps page_size to keep queries bounded.
	MaxPageSize = 500
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_previous"`
}

// NormalizePage clamps page and page size to sane values.
func NormalizePage(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return page, pageSize
}

// Offset returns the row offset for a normalised page.
func Offset(page, pageSize int) int {
	page, pageSize = NormalizePage(page, pageSize)
	return (page - 1) * pageSize
}

// NewPagination computes pagination metadata.
func NewPagination(page, pageSize, total int) Pagination {
	page, pageSize = NormalizePage(page, pageSize)
	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
