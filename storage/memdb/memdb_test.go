package memdb

import (
	"context"
	"testing"
	"time"

	"github.com/darasa/portal/core/identity"
	"github.com/darasa/portal/core/school"
)

func TestSessionStoreDropsExpired(t *testing.T) {
	ctx := context.Background()
	db, _ := Open()
	store := NewSessionStore(db)

	live := identity.Session{ID: "live", ExpiresAt: time.Now().Add(time.Hour)}
	dead := identity.Session{ID: "dead", ExpiresAt: time.Now().Add(-time.Minute)}
	for _, sess := range []identity.Session{live, dead} {
		if err := store.SaveSession(ctx, sess); err != nil {
			t.Fatalf("SaveSession() error = %v", err)
		}
	}

	if _, err := store.GetSession(ctx, "live"); err != nil {
		t.Errorf("GetSession(live) error = %v", err)
	}
	if _, err := store.GetSession(ctx, "dead"); err != identity.ErrSessionNotFound {
		t.Errorf("GetSession(dead) error = %v; want ErrSessionNotFound", err)
	}

	all, err := store.QueryAllSessions(ctx)
	if err != nil {
		t.Fatalf("QueryAllSessions() error = %v", err)
	}
	if len(all) != 1 || all[0].ID != "live" {
		t.Errorf("QueryAllSessions() = %v; want only the live session", all)
	}
}

func TestCacheExpiryAndCounters(t *testing.T) {
	ctx := context.Background()
	db, _ := Open()
	c := NewCache(db)

	if _, err := c.Get(ctx, "nope"); err != school.ErrCacheMiss {
		t.Errorf("Get(nope) error = %v; want ErrCacheMiss", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if b, err := c.Get(ctx, "k"); err != nil || string(b) != "v" {
		t.Errorf("Get(k) = %q, %v; want v, nil", b, err)
	}

	time.Sleep(30 * time.Millisecond)
	if _, err := c.Get(ctx, "k"); err != school.ErrCacheMiss {
		t.Errorf("Get(k) after ttl error = %v; want ErrCacheMiss", err)
	}

	for want := int64(1); want <= 3; want++ {
		n, err := c.Incr(ctx, "counter")
		if err != nil {
			t.Fatalf("Incr() error = %v", err)
		}
		if n != want {
			t.Errorf("Incr() = %d; want %d", n, want)
		}
	}
}

func TestAuditLogRecentFirst(t *testing.T) {
	ctx := context.Background()
	db, _ := Open()
	log := NewAuditLog(db)

	for _, kind := range []string{identity.EventSignIn, identity.EventSignOut, identity.EventForcedLogout} {
		if err := log.RecordEvent(ctx, identity.Event{Kind: kind}); err != nil {
			t.Fatalf("RecordEvent() error = %v", err)
		}
	}

	events, err := log.QueryRecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("QueryRecentEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d; want 2", len(events))
	}
	if events[0].Kind != identity.EventForcedLogout || events[1].Kind != identity.EventSignOut {
		t.Errorf("events = [%s %s]; want newest first", events[0].Kind, events[1].Kind)
	}
}
