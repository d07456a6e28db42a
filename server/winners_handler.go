package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/spinwin-labs/spin-reward-service/errors"
	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
	"github.com/spinwin-labs/spin-reward-service/pkg/winnersfeed"
)

const (
	EventTypeConnected = "connected"
	EventTypeWinner    = "winner"
	EventTypeHeartbeat = "heartbeat"

	defaultWinnersLimit = 20
	maxWinnersLimit     = 100
)

// WinnersHandler bridges the winners feed to HTTP routes (list, SSE and
// WebSocket streams).
type WinnersHandler struct {
	feed            *winnersfeed.Service
	app             *App
	logger          zerolog.Logger
	heartbeatPeriod time.Duration
	upgrader        websocket.Upgrader
}

// NewWinnersHandler creates a winners handler.
func NewWinnersHandler(app *App, feed *winnersfeed.Service) *WinnersHandler {
	return &WinnersHandler{
		feed:            feed,
		app:             app,
		logger:          app.logger.With().Str("handler", "winners").Logger(),
		heartbeatPeriod: 30 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// StreamEvent is one message on the winners stream.
type StreamEvent struct {
	Type      string            `json:"type"`
	Timestamp int64             `json:"timestamp"`
	Winner    *providers.Winner `json:"winner,omitempty"`
}

// Recent returns the recent winners list.
// Route: GET /api/winners?limit=20
func (h *WinnersHandler) Recent(c *gin.Context) {
	limit := defaultWinnersLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			BadRequest(c, errors.New(errors.ErrInvalidRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > maxWinnersLimit {
		limit = maxWinnersLimit
	}

	winners, err := h.feed.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch winners")
		HandleAppError(c, errors.Wrap(err, errors.ErrPayoutError, "winners feed unavailable"))
		return
	}

	OK(c, winners)
}

// StreamUpdates opens an SSE connection and streams winner announcements.
// Route: GET /api/winners/updates
func (h *WinnersHandler) StreamUpdates(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.WriteHeader(http.StatusOK)

	sender := &sseSender{writer: c.Writer}
	h.streamUpdates(c, sender, nil)
}

// StreamUpdatesWebSocket opens a WebSocket connection and streams winner
// announcements.
// Route: GET /api/winners/updates/ws
func (h *WinnersHandler) StreamUpdatesWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close() //nolint:errcheck

	writeDeadline := 10 * time.Second
	conn.SetWriteDeadline(time.Now().Add(writeDeadline)) //nolint:errcheck

	done := make(chan struct{})

	// Detect connection close
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(10 * time.Minute)) //nolint:errcheck
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket connection closed unexpectedly")
			} else {
				h.logger.Debug().Err(err).Msg("WebSocket closed normally")
			}
		}
	}()

	// Send ping to keep connection alive
	pingTicker := time.NewTicker(30 * time.Second)
	go func() {
		defer pingTicker.Stop()
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					h.logger.Debug().Err(err).Msg("Failed to send ping")
					return
				}
			}
		}
	}()

	sender := &wsSender{
		conn:          conn,
		done:          done,
		logger:        h.logger,
		writeDeadline: writeDeadline,
	}
	h.streamUpdates(c, sender, done)
}

// streamUpdates handles the common streaming logic for both SSE and
// WebSocket.
func (h *WinnersHandler) streamUpdates(c *gin.Context, sender messageSender, done <-chan struct{}) {
	ctx := c.Request.Context()
	updates, cancel := h.feed.Listen(ctx)
	defer cancel()

	if err := sender.Send(&StreamEvent{
		Type:      EventTypeConnected,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send connected event, stopping stream")
		return
	}

	heartbeat := time.NewTicker(h.heartbeatPeriod)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			h.logger.Debug().Msg("WebSocket connection closed, stopping stream")
			return
		case <-heartbeat.C:
			if err := sender.Send(&StreamEvent{
				Type:      EventTypeHeartbeat,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to send heartbeat, stopping stream")
				return
			}
		case winner, ok := <-updates:
			if !ok {
				return
			}
			if err := sender.Send(&StreamEvent{
				Type:      EventTypeWinner,
				Timestamp: winner.Timestamp.Unix(),
				Winner:    &winner,
			}); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to send winner event, stopping stream")
				return
			}
		}
	}
}

// messageSender interface for sending messages (SSE or WebSocket).
type messageSender interface {
	Send(*StreamEvent) error
}

// sseSender sends messages via SSE.
type sseSender struct {
	writer http.ResponseWriter
}

func (s *sseSender) Send(event *StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("data: " + string(payload) + "\n\n"))
	if err != nil {
		return err
	}
	s.writer.(http.Flusher).Flush()
	return nil
}

// wsSender sends messages via WebSocket.
type wsSender struct {
	conn          *websocket.Conn
	done          <-chan struct{}
	logger        zerolog.Logger
	writeDeadline time.Duration
}

func (s *wsSender) Send(event *StreamEvent) error {
	select {
	case <-s.done:
		s.logger.Debug().Str("event_type", event.Type).Msg("Connection already closed, skipping send")
		return io.EOF
	default:
	}

	deadline := time.Now().Add(s.writeDeadline)
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to set write deadline")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", event.Type).Msg("Failed to marshal event")
		return err
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
			s.logger.Warn().Err(err).Str("event_type", event.Type).Msg("WebSocket write failed (EOF)")
		} else {
			s.logger.Warn().Err(err).Str("event_type", event.Type).Msg("WebSocket write failed")
		}
		return err
	}
	return nil
}
