package analytics

import (
	"fmt"
	"strings"
)

// clause is a parameterised WHERE fragment over shipments aliased as s.
type clause struct {
	conds []string
	args  []any
}

// add appends a condition; every %[1]d in format becomes the new placeholder.
func (c *clause) add(format string, v any) {
	c.args = append(c.args, v)
	c.conds = append(c.conds, fmt.Sprintf(format, len(c.args)))
}

func (c *clause) SQL() string {
	if len(c.conds) == 0 {
		return "TRUE"
	}
	return strings.Join(c.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildWhere(scope Scope, f Filter) *clause {
	c := &clause{}
	if !scope.IsOrganization() {
		c.add("(s.source_branch = $%[1]d OR s.destination_branch = $%[1]d)", scope.OfficeID)
	} else if f.BranchSlug != "" {
		c.add("(s.source_branch = $%[1]d OR s.destination_branch = $%[1]d)", f.BranchSlug)
	}
	if f.StartDay != nil {
		c.add("s.day >= $%[1]d", *f.StartDay)
	}
	if f.EndDay != nil {
		c.add("s.day <= $%[1]d", *f.EndDay)
	}
	if len(f.Statuses) > 0 {
		c.add("s.current_status = ANY($%[1]d)", f.Statuses)
	}
	if f.SourceBranchSlug != "" {
		c.add("s.source_branch = $%[1]d", f.SourceBranchSlug)
	}
	if f.DestinationBranchSlug != "" {
		c.add("s.destination_branch = $%[1]d", f.DestinationBranchSlug)
	}
	if f.BusSlug != "" {
		c.add("s.bus_slug = $%[1]d", f.BusSlug)
	}
	if f.PaymentMode != "" {
		c.add("s.payment_mode = $%[1]d", f.PaymentMode)
	}
	if f.MinPrice != nil {
		c.add("s.price >= $%[1]d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		c.add("s.price <= $%[1]d", *f.MaxPrice)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		c.add("(s.tracking_id ILIKE $%[1]d OR s.sender_name ILIKE $%[1]d OR s.receiver_name ILIKE $%[1]d)",
			"%"+likeEscaper.Replace(term)+"%")
	}
	return c
}
