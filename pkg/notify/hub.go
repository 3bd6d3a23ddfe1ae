package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/internal/metrics"
)

// pgChannel is the Postgres NOTIFY channel all instances share.
const pgChannel = "raspay_events"

// Hub fans notification events out to local SSE subscribers. Events are
// published through Postgres NOTIFY, so every instance's hub sees every
// event regardless of which instance produced it.
type Hub struct {
	db     *bun.DB
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewHub creates a hub on the given database connection.
func NewHub(db *bun.DB, logger *zap.Logger) *Hub {
	return &Hub{
		db:     db,
		logger: logger,
		subs:   make(map[chan Event]struct{}),
		stopCh: make(chan struct{}),
	}
}

// Start opens the LISTEN connection and runs the fan-out loop.
func (h *Hub) Start(ctx context.Context) error {
	listener := pgdriver.NewListener(h.db)
	if err := listener.Listen(ctx, pgChannel); err != nil {
		return err
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() { _ = listener.Close() }()
		for {
			select {
			case notif, ok := <-listener.Channel():
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(notif.Payload), &ev); err != nil {
					h.logger.Warn("bad notification payload", zap.Error(err))
					continue
				}
				h.fanOut(ev)
			case <-h.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop terminates the fan-out loop and closes all subscriber channels.
func (h *Hub) Stop() {
	close(h.stopCh)
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}

// Publish sends the event through Postgres NOTIFY. Delivery to subscribers
// happens on all instances' fan-out loops.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = h.db.ExecContext(ctx, "SELECT pg_notify(?, ?)", pgChannel, string(payload))
	return err
}

// Subscribe registers an SSE client. The returned cancel function must be
// called when the client disconnects.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	metrics.SSEClients.Inc()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
			metrics.SSEClients.Dec()
		}
	}
	return ch, cancel
}

func (h *Hub) fanOut(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Slow consumer; drop rather than block the loop.
		}
	}
}
