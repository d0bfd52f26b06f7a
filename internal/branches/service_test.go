package branches

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/shared"
)

type memRepo struct {
	mu       sync.Mutex
	branches map[string]Branch
	users    map[string]bool
	inUse    map[string]bool
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{branches: map[string]Branch{}, users: map[string]bool{}, inUse: map[string]bool{}}
}

func (m *memRepo) Create(_ context.Context, b Branch, owner NewOwner) (Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.branches[b.Slug]; ok || m.users[owner.Username] {
		return Branch{}, ErrSlugTaken
	}
	m.nextID++
	m.users[owner.Username] = true
	b.OwnerID = m.nextID
	b.OwnerUsername = owner.Username
	b.CreatedAt = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	m.branches[b.Slug] = b
	return b, nil
}

func (m *memRepo) Get(_ context.Context, slug string) (Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.branches[slug]
	if !ok {
		return Branch{}, ErrNotFound
	}
	return b, nil
}

func (m *memRepo) List(_ context.Context, exclude string) ([]Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Branch, 0, len(m.branches))
	for slug, b := range m.branches {
		if slug != exclude {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *memRepo) Delete(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.branches[slug]
	if !ok {
		return ErrNotFound
	}
	if m.inUse[slug] {
		return ErrInUse
	}
	delete(m.users, b.OwnerUsername)
	delete(m.branches, slug)
	return nil
}

func (m *memRepo) AdvanceDay(_ context.Context, slug string, now time.Time) (Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.branches[slug]
	if !ok {
		return Branch{}, ErrNotFound
	}
	if b.LastDayEndAt != nil && sameUTCDay(*b.LastDayEndAt, now) {
		return Branch{}, ErrDayEndDone
	}
	b.CurrentOperationalDate = b.CurrentOperationalDate.AddDate(0, 0, 1)
	at := now
	b.LastDayEndAt = &at
	m.branches[slug] = b
	return b, nil
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

type recordingAuditor struct {
	mu   sync.Mutex
	logs []shared.AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, log shared.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

func plainHash(p string) (string, error) { return "hashed:" + p, nil }

type fixture struct {
	repo    *memRepo
	auditor *recordingAuditor
	cache   *countingCache
	service *Service
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    newMemRepo(),
		auditor: &recordingAuditor{},
		cache:   &countingCache{},
		clock:   time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}
	f.service = NewService(f.repo, f.auditor, plainHash, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.service.SetCacheInvalidator(f.cache)
	f.service.now = func() time.Time { return f.clock }
	return f
}

var superAdmin = shared.Principal{UserID: 1, Role: shared.RoleSuperAdmin}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Kathmandu Main":         "kathmandu-main",
		"  Pokhara -- Lakeside ": "pokhara-lakeside",
		"Café Ñandú":             "cafe-nandu",
		"!!!":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCreateBranch(t *testing.T) {
	f := newFixture(t)

	b, err := f.service.Create(context.Background(), superAdmin, CreateInput{Title: " Kathmandu Main ", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Regexp(t, `^kathmandu-main-[0-9a-f]{6}$`, b.Slug)
	assert.Equal(t, "Kathmandu Main", b.Title)
	assert.Equal(t, b.Slug, b.OwnerUsername, "username defaults to slug")
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), b.CurrentOperationalDate)
	assert.Equal(t, 1, f.cache.bumps)
	require.Len(t, f.auditor.logs, 1)
	assert.Equal(t, "branch.create", f.auditor.logs[0].Action)
	assert.Equal(t, b.Slug, f.auditor.logs[0].EntityID)
}

func TestCreateBranchExplicitUsernameTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, superAdmin, CreateInput{Title: "Pokhara", Username: "pokhara", Password: "secret-pass"})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, superAdmin, CreateInput{Title: "Pokhara Two", Username: "pokhara", Password: "secret-pass"})
	assert.ErrorIs(t, err, ErrSlugTaken)
	assert.Equal(t, 409, httpx.StatusFor(err))
}

func TestCreateBranchRejectsSymbolTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Create(context.Background(), superAdmin, CreateInput{Title: "***", Password: "secret-pass"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateBranchHashFailure(t *testing.T) {
	f := newFixture(t)
	f.service.hash = func(string) (string, error) { return "", errors.New("boom") }
	_, err := f.service.Create(context.Background(), superAdmin, CreateInput{Title: "Birgunj", Password: "secret-pass"})
	assert.Error(t, err)
	assert.Empty(t, f.repo.branches)
}

func TestMeAndOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.service.Create(ctx, superAdmin, CreateInput{Title: "Alpha", Password: "secret-pass"})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, superAdmin, CreateInput{Title: "Beta", Password: "secret-pass"})
	require.NoError(t, err)

	admin := shared.Principal{UserID: 2, Role: shared.RoleOfficeAdmin, OfficeID: a.Slug}
	me, err := f.service.Me(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", me.Title)

	others, err := f.service.Others(ctx, admin)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, "Beta", others[0].Title)

	all, err := f.service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.service.Me(ctx, superAdmin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.service.Create(ctx, superAdmin, CreateInput{Title: "Gamma", Password: "secret-pass"})
	require.NoError(t, err)

	f.repo.inUse[b.Slug] = true
	assert.ErrorIs(t, f.service.Delete(ctx, superAdmin, b.Slug), ErrInUse)

	f.repo.inUse[b.Slug] = false
	require.NoError(t, f.service.Delete(ctx, superAdmin, b.Slug))
	assert.ErrorIs(t, f.service.Delete(ctx, superAdmin, b.Slug), ErrNotFound)
	assert.Equal(t, 2, f.cache.bumps)
}

func TestDayEndOncePerCalendarDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.service.Create(ctx, superAdmin, CreateInput{Title: "Delta", Password: "secret-pass"})
	require.NoError(t, err)
	admin := shared.Principal{UserID: 2, Role: shared.RoleOfficeAdmin, OfficeID: b.Slug}

	closed, err := f.service.DayEnd(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-03", closed.CurrentOperationalDate.Format("2006-01-02"))

	f.clock = f.clock.Add(10 * time.Hour)
	_, err = f.service.DayEnd(ctx, admin)
	assert.ErrorIs(t, err, ErrDayEndDone)

	f.clock = f.clock.Add(24 * time.Hour)
	closed, err = f.service.DayEnd(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04", closed.CurrentOperationalDate.Format("2006-01-02"))
}
