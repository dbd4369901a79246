package todo

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"heartwork/internal/service"
)

// EventTaskUpdate carries every task of every category after any change.
const EventTaskUpdate = "taskUpdate"

// Channel is a push channel delivering named events with JSON payloads.
type Channel interface {
	On(event string, fn func(payload json.RawMessage)) (off func())
}

// Listener replaces one category's list with each pushed snapshot.
type Listener struct {
	category string
	store    *Store
	log      zerolog.Logger

	once sync.Once
	off  func()
}

// NewListener subscribes to task snapshots for a category.
func NewListener(ch Channel, store *Store, category string, log zerolog.Logger) *Listener {
	l := &Listener{category: category, store: store, log: log}
	l.off = ch.On(EventTaskUpdate, l.handle)
	return l
}

func (l *Listener) handle(payload json.RawMessage) {
	var all []service.Task
	if err := json.Unmarshal(payload, &all); err != nil {
		l.log.Warn().Err(err).Msg("decoding task snapshot")
		return
	}

	mine := make([]service.Task, 0, len(all))
	for _, t := range all {
		if t.Category == l.category {
			mine = append(mine, t)
		}
	}
	l.log.Debug().Str("category", l.category).Int("tasks", len(mine)).Msg("task snapshot")
	l.store.Replace(l.category, mine)
}

// Close removes this listener's subscription only.
func (l *Listener) Close() {
	l.once.Do(func() {
		if l.off != nil {
			l.off()
		}
	})
}
