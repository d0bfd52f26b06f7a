package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry is one administrative change to a branch or bus.
type AuditEntry struct {
	Actor    Principal
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// NewAuditEntry builds an entry whose action is namespaced by entity, e.g.
// "branch.create".
func NewAuditEntry(actor Principal, entity, verb, entityID string) AuditEntry {
	return AuditEntry{Actor: actor, Entity: entity, Action: entity + "." + verb, EntityID: entityID}
}

// With returns a copy of e carrying an extra meta field.
func (e AuditEntry) With(key string, value any) AuditEntry {
	meta := make(map[string]any, len(e.Meta)+1)
	for k, v := range e.Meta {
		meta[k] = v
	}
	meta[key] = value
	e.Meta = meta
	return e
}

// Validate rejects entries the audit table cannot index.
func (e AuditEntry) Validate() error {
	if e.Entity == "" || e.EntityID == "" {
		return errors.New("audit entry requires entity and entity id")
	}
	if !strings.HasPrefix(e.Action, e.Entity+".") {
		return fmt.Errorf("audit action %q is not namespaced by %q", e.Action, e.Entity)
	}
	return nil
}

// Auditor records administrative actions.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditStore appends entries to audit_logs.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore returns a store backed by pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Record persists the entry. A zero At uses the database clock.
func (s *AuditStore) Record(ctx context.Context, entry AuditEntry) error {
	if s == nil || s.pool == nil {
		return errors.New("audit store not initialised")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("audit meta: %w", err)
	}
	var at *time.Time
	if !entry.At.IsZero() {
		at = &entry.At
	}
	var actorID *int64
	if entry.Actor.UserID != 0 {
		actorID = &entry.Actor.UserID
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, actor_role, office_slug, action, entity, entity_id, meta, occurred_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, COALESCE($8, NOW()))`,
		actorID, string(entry.Actor.Role), entry.Actor.OfficeID, entry.Action, entry.Entity, entry.EntityID, meta, at)
	return err
}

// NopAuditor discards entries.
type NopAuditor struct{}

// Record implements Auditor.
func (NopAuditor) Record(context.Context, AuditEntry) error { return nil }

var _ Auditor = (*AuditStore)(nil)
