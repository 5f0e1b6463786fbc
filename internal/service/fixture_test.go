package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pickfast/internal/core/cache"
	"pickfast/internal/core/database"
	"pickfast/internal/core/mail"
	"pickfast/internal/domain"
	"pickfast/internal/repo"
	"pickfast/pkg/utils"
)

type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

// outbox records mails; fail makes Send return it.
type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
	fail error
}

func (o *outbox) Send(_ context.Context, m mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.sent = append(o.sent, m)
	return nil
}

func (o *outbox) last(t *testing.T) mail.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return o.sent[len(o.sent)-1]
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubIssuer struct{}

func (stubIssuer) Issue(uid, role string) (string, error) { return "tok-" + uid + "-" + role, nil }

type fixture struct {
	t     *testing.T
	ctx   context.Context
	unit  *repo.Unit
	svc   *Services
	clock *stepClock
	mail  *outbox
}

func newFixture(t *testing.T) *fixture { return newFixtureWith(t, nil, time.Second) }

// newFixtureWith builds the services over a fresh in-memory database. step is
// how far the clock moves on each read; zero freezes it.
func newFixtureWith(t *testing.T, c *cache.Cache, step time.Duration) *fixture {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	clock := &stepClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), step: step}
	unit := repo.NewUnit(db)
	box := &outbox{}
	svc := New(Deps{
		Unit:       unit,
		Now:        clock.Now,
		Cache:      c,
		CacheTTL:   time.Minute,
		Mail:       box,
		FeedbackTo: []string{"support@pick-fast.com"},
	}, stubIssuer{})
	return &fixture{t: t, ctx: context.Background(), unit: unit, svc: svc, clock: clock, mail: box}
}

// user inserts a user without a group. Hashing is skipped to keep tests fast.
func (f *fixture) user(name string) *domain.User {
	return f.userWithID(utils.NewID(), name)
}

func (f *fixture) userWithID(id, name string) *domain.User {
	f.t.Helper()
	u := &domain.User{ID: id, Email: name + "@example.com", Name: name, Role: domain.RoleUser}
	if err := f.unit.Users().Create(f.ctx, u); err != nil {
		f.t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func (f *fixture) staff() domain.Actor {
	u := f.user("staff")
	return domain.Actor{UserID: u.ID, Role: domain.RoleStaff}
}

func actorOf(u *domain.User) domain.Actor { return domain.Actor{UserID: u.ID, Role: u.Role} }

func (f *fixture) group(admin *domain.User, private bool) *domain.Group {
	f.t.Helper()
	g, err := f.svc.Groups.CreateGroup(f.ctx, admin.ID, private)
	if err != nil {
		f.t.Fatalf("create group: %v", err)
	}
	return g
}

func (f *fixture) join(u *domain.User, code string) {
	f.t.Helper()
	if _, err := f.svc.Ledger.AssignUserToGroup(f.ctx, u.ID, &code); err != nil {
		f.t.Fatalf("join %s to %s: %v", u.Name, code, err)
	}
}

func (f *fixture) reload(u *domain.User) *domain.User {
	f.t.Helper()
	got, err := f.unit.Users().FindByID(f.ctx, u.ID)
	if err != nil || got == nil {
		f.t.Fatalf("reload user %s: %v", u.Name, err)
	}
	return got
}

func (f *fixture) groupRow(code string) *domain.Group {
	f.t.Helper()
	g, err := f.unit.Groups().FindByCode(f.ctx, code)
	if err != nil {
		f.t.Fatalf("load group %s: %v", code, err)
	}
	return g
}

func (f *fixture) adminOf(code string) string {
	f.t.Helper()
	g := f.groupRow(code)
	if g == nil {
		f.t.Fatalf("group %s missing", code)
	}
	if g.AdminID == nil {
		return ""
	}
	return *g.AdminID
}

func groupOf(u *domain.User) string {
	if u.GroupCode == nil {
		return ""
	}
	return *u.GroupCode
}

func wantDenied(t *testing.T, err error, reason domain.DenyReason) {
	t.Helper()
	got, ok := domain.DeniedReason(err)
	if !ok {
		t.Fatalf("expected permission denied (%s), got %v", reason, err)
	}
	if got != reason {
		t.Fatalf("expected reason %s, got %s", reason, got)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
