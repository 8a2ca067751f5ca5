// Package notify broadcasts short user-facing notices, such as "project
// saved", to connected consoles.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	UserID  string    `json:"-"`
	At      time.Time `json:"at"`
}

// Hub delivers each notice to the subscribers of its user. A subscriber that
// falls behind loses notices rather than slowing publishers.
type Hub struct {
	mu     sync.Mutex
	next   int
	subs   map[int]subscriber
	buffer int
}

type subscriber struct {
	userID string
	ch     chan Notice
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[int]subscriber), buffer: buffer}
}

// Subscribe returns a channel of notices for userID and a cancel function
// that closes it.
func (h *Hub) Subscribe(userID string) (<-chan Notice, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Notice, h.buffer)
	h.subs[id] = subscriber{userID: userID, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(n Notice) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		if s.userID != n.UserID {
			continue
		}
		select {
		case s.ch <- n:
		default:
			log.Debug().Str("userID", n.UserID).Msg("notice dropped for slow subscriber")
		}
	}
}

func (h *Hub) Success(userID, message string) {
	h.Publish(Notice{Level: LevelSuccess, Message: message, UserID: userID})
}

func (h *Hub) Error(userID, message string) {
	h.Publish(Notice{Level: LevelError, Message: message, UserID: userID})
}

// Subscribers reports the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
