package todo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Session owns everything one long-lived view of the lists needs: the
// coordinator and its store, a push listener per category and the periodic
// sync trigger. Close releases all of them.
type Session struct {
	coord      *Coordinator
	ch         Channel
	categories []string
	interval   time.Duration
	log        zerolog.Logger

	mu        sync.Mutex
	started   bool
	closed    bool
	listeners []*Listener
	trigger   *Trigger
}

// NewSession creates a session. ch may be nil to run without push updates.
func NewSession(coord *Coordinator, ch Channel, categories []string, interval time.Duration, log zerolog.Logger) *Session {
	return &Session{
		coord:      coord,
		ch:         ch,
		categories: append([]string(nil), categories...),
		interval:   interval,
		log:        log,
	}
}

// Store returns the session's store.
func (s *Session) Store() *Store {
	return s.coord.Store()
}

// Start subscribes the listeners, syncs every category once and starts the
// trigger. Sync errors are left in the store; Start itself only fails when
// the session was already started or closed.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("session closed")
	}
	if s.started {
		s.mu.Unlock()
		return errors.New("session already started")
	}
	s.started = true
	if s.ch != nil {
		for _, category := range s.categories {
			s.listeners = append(s.listeners, NewListener(s.ch, s.coord.Store(), category, s.log))
		}
	}
	s.mu.Unlock()

	s.syncAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.trigger = StartTrigger(ctx, s.interval, s.syncAll)
	}
	return nil
}

func (s *Session) syncAll(ctx context.Context) {
	for _, category := range s.categories {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.coord.Sync(ctx, category, false); err != nil {
			s.log.Warn().Err(err).Str("category", category).Msg("sync")
		}
	}
}

// Close stops the trigger, unsubscribes the listeners and closes the store.
// Responses still in flight are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	trigger := s.trigger
	listeners := s.listeners
	s.trigger, s.listeners = nil, nil
	s.mu.Unlock()

	if trigger != nil {
		trigger.Stop()
	}
	for _, l := range listeners {
		l.Close()
	}
	s.coord.Store().Close()
}
