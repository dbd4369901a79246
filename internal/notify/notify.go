// Package notify prints short notices for pushed dashboard events.
package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"heartwork/internal/service"
)

// Event names the notifier subscribes to.
const (
	EventNewNote    = "newNote"
	EventNewGallery = "newGalleryImage"
)

// Source is a push channel delivering named events.
type Source interface {
	On(event string, fn func(payload json.RawMessage)) (off func())
}

// Notifier writes one line per notice to a writer.
type Notifier struct {
	mu   sync.Mutex
	w    io.Writer
	bell bool
	now  func() time.Time
	log  zerolog.Logger
	offs []func()
}

// New creates a notifier. With bell set each notice rings the terminal bell.
func New(w io.Writer, bell bool, log zerolog.Logger) *Notifier {
	return &Notifier{w: w, bell: bell, now: time.Now, log: log}
}

// Notify prints a titled notice.
func (n *Notifier) Notify(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	prefix := ""
	if n.bell {
		prefix = "\a"
	}
	body = strings.Join(strings.Fields(body), " ")
	if body == "" {
		fmt.Fprintf(n.w, "%s[%s] %s\n", prefix, n.now().Format("15:04"), title)
		return
	}
	fmt.Fprintf(n.w, "%s[%s] %s: %s\n", prefix, n.now().Format("15:04"), title, body)
}

// Subscribe listens for new notes and photos on src until Close.
func (n *Notifier) Subscribe(src Source) {
	offNote := src.On(EventNewNote, func(payload json.RawMessage) {
		var note service.Note
		if err := json.Unmarshal(payload, &note); err != nil {
			n.log.Warn().Err(err).Msg("decoding note")
			return
		}
		n.Notify("New note", note.Text)
	})
	offImage := src.On(EventNewGallery, func(payload json.RawMessage) {
		var img service.Image
		if err := json.Unmarshal(payload, &img); err != nil {
			n.log.Warn().Err(err).Msg("decoding image")
			return
		}
		n.Notify("New photo", img.Filename)
	})

	n.mu.Lock()
	n.offs = append(n.offs, offNote, offImage)
	n.mu.Unlock()
}

// Close removes every subscription.
func (n *Notifier) Close() {
	n.mu.Lock()
	offs := n.offs
	n.offs = nil
	n.mu.Unlock()
	for _, off := range offs {
		off()
	}
}
