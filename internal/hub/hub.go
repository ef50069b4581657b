package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	devicedomain "github.com/micro-ha/mikrotik-monitor/internal/domain/device"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

const (
	defaultQueueSize = 64
	logsTimeout      = 15 * time.Second
	welcomeMessage   = "Connected to MikroTik Monitoring WebSocket"
)

var (
	ErrUnknownSubscriber = errors.New("unknown subscriber")
	ErrQueueFull         = errors.New("subscriber queue full")
)

// Transport is the write side of a subscriber connection.
type Transport interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// LogSource serves the one-shot log push requested by subscribers.
type LogSource interface {
	Logs(ctx context.Context, deviceID int64, topics []string, limit int) ([]model.LogEntry, error)
}

type subscriber struct {
	id        string
	transport Transport
	queue     chan []byte
	done      chan struct{}
	once      sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.transport.Close()
	})
}

// Hub fans events out to every registered subscriber. Each subscriber has
// its own bounded queue and writer goroutine, so a slow client never blocks
// Broadcast.
type Hub struct {
	subs      cmap.ConcurrentMap[string, *subscriber]
	queueSize int
	logs      LogSource
	logger    zerolog.Logger
	upgrader  websocket.Upgrader
}

func New(logs LogSource, queueSize int, logger zerolog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		subs:      cmap.New[*subscriber](),
		queueSize: queueSize,
		logs:      logs,
		logger:    logger.With().Str("component", "hub").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Register adds a subscriber and starts its writer. It returns the subscriber id.
func (h *Hub) Register(t Transport) string {
	sub := &subscriber{
		id:        uuid.NewString(),
		transport: t,
		queue:     make(chan []byte, h.queueSize),
		done:      make(chan struct{}),
	}
	h.subs.Set(sub.id, sub)
	go h.write(sub)
	h.logger.Debug().Str("subscriber", sub.id).Int("subscribers", h.subs.Count()).Msg("subscriber registered")
	return sub.id
}

// Unregister removes the subscriber and closes its transport. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	sub, ok := h.subs.Pop(id)
	if !ok {
		return
	}
	sub.close()
	h.logger.Debug().Str("subscriber", id).Int("subscribers", h.subs.Count()).Msg("subscriber removed")
}

func (h *Hub) Count() int {
	return h.subs.Count()
}

// Broadcast encodes the event once and queues it for every subscriber. A
// subscriber whose queue is full misses this event.
func (h *Hub) Broadcast(eventType string, deviceID int64, payload any) {
	data, err := json.Marshal(model.Event{Type: eventType, DeviceID: &deviceID, Data: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", eventType).Msg("encode event failed")
		return
	}
	for item := range h.subs.IterBuffered() {
		if !item.Val.enqueue(data) {
			h.logger.Warn().Str("subscriber", item.Key).Str("type", eventType).Msg("subscriber queue full, event dropped")
		}
	}
}

// Send queues an event for one subscriber.
func (h *Hub) Send(id string, event model.Event) error {
	sub, ok := h.subs.Get(id)
	if !ok {
		return ErrUnknownSubscriber
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if !sub.enqueue(data) {
		return ErrQueueFull
	}
	return nil
}

// Close removes every subscriber.
func (h *Hub) Close() {
	for _, id := range h.subs.Keys() {
		h.Unregister(id)
	}
}

func (s *subscriber) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.queue <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) write(sub *subscriber) {
	for {
		select {
		case <-sub.done:
			return
		case data := <-sub.queue:
			if err := sub.transport.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug().Err(err).Str("subscriber", sub.id).Msg("write failed")
				h.Unregister(sub.id)
				return
			}
		}
	}
}

// ServeWS upgrades the request and serves the subscriber until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	id := h.Register(conn)
	defer h.Unregister(id)
	h.logger.Info().Str("subscriber", id).Str("remote_addr", r.RemoteAddr).Msg("websocket client connected")

	if err := h.Send(id, model.Event{Type: model.EventConnection, Message: welcomeMessage}); err != nil {
		h.logger.Warn().Err(err).Str("subscriber", id).Msg("welcome message failed")
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			h.logger.Info().Str("subscriber", id).Msg("websocket client disconnected")
			return
		}
		var msg model.ControlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.Debug().Err(err).Str("subscriber", id).Msg("ignoring malformed control message")
			continue
		}
		h.HandleControl(id, msg)
	}
}

// HandleControl acts on a subscriber's control message. Only a logs
// subscription produces a reply; everything else is accepted silently.
func (h *Hub) HandleControl(id string, msg model.ControlMessage) {
	if msg.Type != "subscribe" || msg.Target != model.EventLogs || msg.DeviceID == 0 {
		return
	}
	if h.logs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), logsTimeout)
	defer cancel()

	deviceID := msg.DeviceID
	entries, err := h.logs.Logs(ctx, deviceID, nil, 0)
	if err != nil {
		message := "Failed to fetch logs"
		if errors.Is(err, devicedomain.ErrDeviceNotFound) {
			message = "Device not found"
		}
		h.logger.Warn().Err(err).Int64("device_id", deviceID).Msg("logs push failed")
		_ = h.Send(id, model.Event{Type: model.EventError, Message: message, Target: model.EventLogs})
		return
	}
	_ = h.Send(id, model.Event{Type: model.EventLogs, DeviceID: &deviceID, Data: entries})
}
