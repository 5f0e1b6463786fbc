package service

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"pickfast/internal/domain"
	"pickfast/internal/repo"
)

func TestAssignToPrivateGroupDenied(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	private := f.group(alice, true)
	open := f.group(f.user("carol"), false)
	f.join(bob, open.Code)

	before := testutil.ToFloat64(membershipDenied.WithLabelValues("private"))
	_, err := f.svc.Ledger.AssignUserToGroup(f.ctx, bob.ID, &private.Code)
	wantDenied(t, err, domain.DenyPrivate)

	if got := groupOf(f.reload(bob)); got != open.Code {
		t.Errorf("bob moved to %q, expected to stay in %s", got, open.Code)
	}
	if d := testutil.ToFloat64(membershipDenied.WithLabelValues("private")) - before; d != 1 {
		t.Errorf("denied metric delta = %v, want 1", d)
	}
}

func TestAssignBlacklistedUserDenied(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	g := f.group(alice, false)
	if err := f.svc.Ledger.Blacklist(f.ctx, actorOf(alice), g.Code, bob.ID); err != nil {
		t.Fatalf("Blacklist: %v", err)
	}

	_, err := f.svc.Ledger.AssignUserToGroup(f.ctx, bob.ID, &g.Code)
	wantDenied(t, err, domain.DenyBlacklisted)
	if got := groupOf(f.reload(bob)); got != "" {
		t.Errorf("bob joined %q", got)
	}

	if err := f.svc.Ledger.Unblacklist(f.ctx, actorOf(alice), g.Code, bob.ID); err != nil {
		t.Fatalf("Unblacklist: %v", err)
	}
	f.join(bob, g.Code)
}

func TestPrivacyCheckedBeforeBlacklist(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	g := f.group(alice, true)
	if err := f.svc.Ledger.Blacklist(f.ctx, actorOf(alice), g.Code, bob.ID); err != nil {
		t.Fatalf("Blacklist: %v", err)
	}
	_, err := f.svc.Ledger.AssignUserToGroup(f.ctx, bob.ID, &g.Code)
	wantDenied(t, err, domain.DenyPrivate)
}

func TestAssignUnknownGroupOrUser(t *testing.T) {
	f := newFixture(t)
	bob := f.user("bob")
	missing := "ZZZZZZ"
	_, err := f.svc.Ledger.AssignUserToGroup(f.ctx, bob.ID, &missing)
	wantErr(t, err, domain.ErrGroupNotFound)

	_, err = f.svc.Ledger.AssignUserToGroup(f.ctx, "nobody", nil)
	wantErr(t, err, domain.ErrUserNotFound)
}

func TestAssignToCurrentGroupIsNoop(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	g := f.group(alice, false)
	f.join(bob, g.Code)
	joined := f.reload(bob).JoinedGroupAt

	f.join(bob, g.Code)
	got := f.reload(bob)
	if groupOf(got) != g.Code || !got.JoinedGroupAt.Equal(*joined) {
		t.Errorf("rejoin changed membership: group=%q joined=%v (was %v)", groupOf(got), got.JoinedGroupAt, joined)
	}
	if f.adminOf(g.Code) != alice.ID {
		t.Error("admin changed on no-op assignment")
	}
}

func TestLastMemberLeavingDissolvesGroup(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	g := f.group(alice, false)
	st, err := f.svc.Stores.Create(f.ctx, actorOf(alice), "Corner shop")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if _, err := f.svc.Products.Create(f.ctx, actorOf(alice), NewProduct{Title: "Milk", StoreID: &st.ID}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	before := testutil.ToFloat64(groupsDeleted.WithLabelValues("last_member_left"))
	if _, err := f.svc.Ledger.Leave(f.ctx, alice.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	if f.groupRow(g.Code) != nil {
		t.Fatal("group still exists")
	}
	if n, _ := f.unit.Stores().CountByGroup(f.ctx, g.Code); n != 0 {
		t.Errorf("stores left: %d", n)
	}
	if n, _ := f.unit.Products().CountByGroup(f.ctx, g.Code); n != 0 {
		t.Errorf("products left: %d", n)
	}
	if got := groupOf(f.reload(alice)); got != "" {
		t.Errorf("alice still in %q", got)
	}
	if d := testutil.ToFloat64(groupsDeleted.WithLabelValues("last_member_left")) - before; d != 1 {
		t.Errorf("deleted metric delta = %v, want 1", d)
	}
}

func TestAdminSwitchingGroupsPromotesEarliestMember(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol, dave := f.user("alice"), f.user("bob"), f.user("carol"), f.user("dave")
	g := f.group(alice, false)
	f.join(bob, g.Code)
	f.join(carol, g.Code)
	h := f.group(dave, false)

	if _, err := f.svc.Ledger.AssignUserToGroup(f.ctx, alice.ID, &h.Code); err != nil {
		t.Fatalf("switch: %v", err)
	}

	if got := f.adminOf(g.Code); got != bob.ID {
		t.Errorf("admin of G = %q, want bob %q", got, bob.ID)
	}
	if got := groupOf(f.reload(alice)); got != h.Code {
		t.Errorf("alice in %q, want %s", got, h.Code)
	}
	if adm, _ := f.unit.Groups().FindByAdmin(f.ctx, alice.ID); adm != nil {
		t.Errorf("alice still administers %s", adm.Code)
	}
	if f.adminOf(h.Code) != dave.ID {
		t.Error("admin of H changed")
	}
	members, _ := f.unit.Users().CountMembers(f.ctx, g.Code)
	if members != 2 {
		t.Errorf("G has %d members, want 2", members)
	}
}

func TestAdminSwitchToPrivateGroupKeepsEverything(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	g := f.group(alice, false)
	f.join(bob, g.Code)
	h := f.group(f.user("dave"), true)

	_, err := f.svc.Ledger.AssignUserToGroup(f.ctx, alice.ID, &h.Code)
	wantDenied(t, err, domain.DenyPrivate)
	if f.adminOf(g.Code) != alice.ID {
		t.Error("succession ran for a rejected move")
	}
}

func TestSuccessionTieBreakByUserID(t *testing.T) {
	f := newFixtureWith(t, nil, 0)
	admin := f.userWithID("u-9", "admin")
	g := f.group(admin, false)
	f.join(f.userWithID("u-5", "five"), g.Code)
	f.join(f.userWithID("u-2", "two"), g.Code)
	f.join(f.userWithID("u-7", "seven"), g.Code)

	if _, err := f.svc.Ledger.Leave(f.ctx, admin.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if got := f.adminOf(g.Code); got != "u-2" {
		t.Errorf("successor = %q, want u-2", got)
	}
}

func TestResolveDepartureOfNonAdminIsNoop(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	g := f.group(alice, false)
	f.join(bob, g.Code)

	s := NewSuccession(nil)
	for _, id := range []string{bob.ID, "stranger"} {
		var res SuccessionResult
		err := f.unit.Transaction(f.ctx, func(tx *repo.Unit) error {
			var err error
			res, err = s.ResolveDeparture(f.ctx, tx, g.Code, id)
			return err
		})
		if err != nil {
			t.Fatalf("ResolveDeparture(%s): %v", id, err)
		}
		if res.Outcome != OutcomeUnchanged {
			t.Errorf("outcome for %s = %v, want unchanged", id, res.Outcome)
		}
	}
	if f.adminOf(g.Code) != alice.ID {
		t.Error("admin changed without a departure")
	}
}

func TestResolveDepartureCorruptAdminPanics(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	g := f.group(alice, false)
	// bob is not a member but is recorded as admin.
	if err := f.unit.Groups().SetAdmin(f.ctx, g.Code, &bob.ID); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}

	defer func() {
		r := recover()
		if _, ok := r.(domain.InvariantViolation); !ok {
			t.Fatalf("expected InvariantViolation panic, got %v", r)
		}
	}()
	_ = f.unit.Transaction(f.ctx, func(tx *repo.Unit) error {
		_, err := NewSuccession(nil).ResolveDeparture(f.ctx, tx, g.Code, bob.ID)
		return err
	})
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol := f.user("alice"), f.user("bob"), f.user("carol")
	g := f.group(alice, false)
	f.join(bob, g.Code)

	err := f.svc.Ledger.RemoveMember(f.ctx, actorOf(bob), g.Code, alice.ID)
	wantDenied(t, err, domain.DenyNotAdmin)

	err = f.svc.Ledger.RemoveMember(f.ctx, actorOf(alice), g.Code, carol.ID)
	wantDenied(t, err, domain.DenyNotMember)

	if err := f.svc.Ledger.RemoveMember(f.ctx, actorOf(alice), g.Code, bob.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if got := groupOf(f.reload(bob)); got != "" {
		t.Errorf("bob still in %q", got)
	}
	// Removal does not bar rejoining.
	f.join(bob, g.Code)
}

func TestStaffRemovingAdminPromotesNext(t *testing.T) {
	f := newFixture(t)
	staff := f.staff()
	alice, bob := f.user("alice"), f.user("bob")
	g := f.group(alice, false)
	f.join(bob, g.Code)

	before := testutil.ToFloat64(adminSuccessions.WithLabelValues("promoted"))
	if err := f.svc.Ledger.RemoveMember(f.ctx, staff, g.Code, alice.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if f.adminOf(g.Code) != bob.ID {
		t.Error("bob was not promoted")
	}
	if d := testutil.ToFloat64(adminSuccessions.WithLabelValues("promoted")) - before; d != 1 {
		t.Errorf("succession metric delta = %v, want 1", d)
	}
}

func TestBlacklistingAdminRemovesAndPromotes(t *testing.T) {
	f := newFixture(t)
	staff := f.staff()
	alice, bob, carol := f.user("alice"), f.user("bob"), f.user("carol")
	g := f.group(alice, false)
	f.join(bob, g.Code)
	f.join(carol, g.Code)

	if err := f.svc.Ledger.Blacklist(f.ctx, staff, g.Code, alice.ID); err != nil {
		t.Fatalf("Blacklist: %v", err)
	}
	if got := f.adminOf(g.Code); got != bob.ID {
		t.Errorf("admin = %q, want bob", got)
	}
	if got := groupOf(f.reload(alice)); got != "" {
		t.Errorf("alice still in %q", got)
	}
	_, err := f.svc.Ledger.AssignUserToGroup(f.ctx, alice.ID, &g.Code)
	wantDenied(t, err, domain.DenyBlacklisted)

	ids, _ := f.unit.Groups().Blacklist(f.ctx, g.Code)
	if len(ids) != 1 || ids[0] != alice.ID {
		t.Errorf("blacklist = %v", ids)
	}
	// Blacklisting twice is harmless.
	if err := f.svc.Ledger.Blacklist(f.ctx, staff, g.Code, alice.ID); err != nil {
		t.Fatalf("second Blacklist: %v", err)
	}
}

func TestBlacklistRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	g := f.group(alice, false)
	f.join(bob, g.Code)

	err := f.svc.Ledger.Blacklist(f.ctx, actorOf(bob), g.Code, alice.ID)
	wantDenied(t, err, domain.DenyNotAdmin)
	if f.adminOf(g.Code) != alice.ID {
		t.Error("state changed after rejected blacklist")
	}

	err = f.svc.Ledger.Blacklist(f.ctx, actorOf(alice), "NOPE00", bob.ID)
	if !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestJoinStampsClock(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	g := f.group(alice, false)
	f.join(bob, g.Code)

	a, b := f.reload(alice), f.reload(bob)
	if a.JoinedGroupAt == nil || b.JoinedGroupAt == nil {
		t.Fatal("joined-at not recorded")
	}
	if !b.JoinedGroupAt.After(*a.JoinedGroupAt) {
		t.Errorf("bob joined %v, not after alice %v", b.JoinedGroupAt, a.JoinedGroupAt)
	}
	if b.JoinedGroupAt.Sub(*a.JoinedGroupAt) > time.Minute {
		t.Errorf("unexpected clock drift %v", b.JoinedGroupAt.Sub(*a.JoinedGroupAt))
	}
}
