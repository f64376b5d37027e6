package identity

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
)

type watcherHandle struct {
	cancel context.CancelFunc
	gen    uint64
}

// StartWatcher spawns the background re-validation loop for a session, the
// server-side stand-in for a portal tab left open. Exactly one watcher runs
// per session id; starting again replaces the previous one.
func (svc *Service) StartWatcher(sess Session) {
	if svc.conf.Session.WatchInterval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	svc.mu.Lock()
	if old, ok := svc.watchers[sess.ID]; ok {
		old.cancel()
	}
	svc.watcherGen++
	gen := svc.watcherGen
	svc.watchers[sess.ID] = watcherHandle{cancel: cancel, gen: gen}
	svc.mu.Unlock()

	go svc.watch(ctx, sess.ID, gen)
}

// StopWatcher cancels the session's watcher, if any.
func (svc *Service) StopWatcher(id string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if w, ok := svc.watchers[id]; ok {
		w.cancel()
		delete(svc.watchers, id)
	}
}

// StopAllWatchers cancels every watcher; called on server shutdown.
func (svc *Service) StopAllWatchers() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for id, w := range svc.watchers {
		w.cancel()
		delete(svc.watchers, id)
	}
}

func (svc *Service) watch(ctx context.Context, id string, gen uint64) {
	// deregister on exit, unless a newer watcher already took the slot
	defer func() {
		svc.mu.Lock()
		if w, ok := svc.watchers[id]; ok && w.gen == gen {
			delete(svc.watchers, id)
		}
		svc.mu.Unlock()
	}()

	ticker := time.NewTicker(svc.conf.Session.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			vctx, cancel := context.WithTimeout(ctx, svc.conf.Upstream.Timeout)
			_, err := svc.Validate(vctx, id)
			cancel()
			if err == nil {
				continue
			}
			switch errors.Cause(err) {
			case ErrSessionInvalid, ErrSessionNotFound:
				// session destroyed or gone; nothing left to watch
				return
			default:
				if !core.IsUnavailable(err) {
					svc.logger.Warn("session watcher validation", err)
				}
			}
		}
	}
}
