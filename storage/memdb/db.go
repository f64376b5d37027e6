// Package memdb keeps sessions, cache entries and audit events in process
// memory. It backs local development and tests when Redis and Postgres are
// not around; nothing in it survives a restart.
package memdb

import (
	"sync"
	"time"

	"github.com/darasa/portal/core/identity"
)

type (
	DB struct {
		sessions *sessionTable
		cache    *cacheTable
		events   *eventTable
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*identity.Session
	}

	cacheEntry struct {
		val       []byte
		expiresAt time.Time // zero = no expiry
	}

	cacheTable struct {
		sync.RWMutex
		table    map[string]cacheEntry
		counters map[string]int64
	}

	eventTable struct {
		sync.RWMutex
		rows []identity.Event
	}
)

func Open() (*DB, error) {
	db := &DB{
		sessions: &sessionTable{table: make(map[string]*identity.Session)},
		cache:    &cacheTable{table: make(map[string]cacheEntry), counters: make(map[string]int64)},
		events:   &eventTable{},
	}
	return db, nil
}
