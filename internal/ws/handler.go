// Package ws implements the per-connection relay loop: audio envelopes in,
// transcription / reply envelopes out, with both turns appended to the
// message log.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"speech-coach-demo/backend/internal/ai"
	"speech-coach-demo/backend/internal/audio"
	"speech-coach-demo/backend/internal/models"
	"speech-coach-demo/backend/internal/service"
	"speech-coach-demo/backend/pkg/logger"
	"speech-coach-demo/backend/pkg/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Default maximum message size allowed from peer. Base64 audio runs
	// about 4/3 the raw clip size.
	defaultMaxMessageSize = 8 << 20 // 8MB
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origins are filtered by the CORS layer
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Envelope is one inbound JSON frame from the client.
type Envelope struct {
	Type       string   `json:"type"`
	Audio      string   `json:"audio,omitempty"`
	UserID     string   `json:"userId,omitempty"`
	TempUserID string   `json:"tempUserId,omitempty"`
	AudioURL   string   `json:"audio_url,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`
}

// Outbound envelopes, each tagged by type.

type statusEnvelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type transcriptionEnvelope struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Analysis string `json:"analysis"`
}

type aiReplyEnvelope struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type errorEnvelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Hub tracks open connections and carries the collaborators every
// connection shares.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	transcriber ai.Transcriber
	messages    *service.MessageService
	metrics     *metrics.Metrics
	log         *logger.Logger

	maxMessageSize int64
}

// NewHub creates a hub. Call Run in its own goroutine before serving
// connections.
func NewHub(transcriber ai.Transcriber, messages *service.MessageService, m *metrics.Metrics, log *logger.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		transcriber:    transcriber,
		messages:       messages,
		metrics:        m,
		log:            log,
		maxMessageSize: defaultMaxMessageSize,
	}
}

// SetMaxMessageSize overrides the inbound frame size limit.
func (h *Hub) SetMaxMessageSize(size int64) {
	if size > 0 {
		h.maxMessageSize = size
	}
}

// Run processes client registration until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.metrics.ConnectionsActive.Inc()
			h.log.Info("client connected", "conn_id", client.ID)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.ConnectionsActive.Dec()
				h.log.Info("client disconnected", "conn_id", client.ID)
			}
		}
	}
}

// Client is one websocket connection.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  *logger.Logger
}

// ReadPump reads envelopes and processes each one to completion before
// reading the next. There is no pipelining within a connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("read failed", "error", err.Error())
			}
			break
		}

		var envelope Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			c.log.Warn("malformed envelope, skipping", "error", err.Error())
			continue
		}

		c.handleEnvelope(envelope)
	}
}

// handleEnvelope dispatches one inbound envelope. Every fault inside the
// envelope's processing is converted to an error envelope here; nothing
// closes the connection.
func (c *Client) handleEnvelope(envelope Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic while handling envelope", "panic", fmt.Sprintf("%v", r))
			c.sendError(fmt.Sprintf("%v", r))
		}
	}()

	switch envelope.Type {
	case "audio":
		c.hub.metrics.EnvelopesTotal.WithLabelValues("audio").Inc()
		c.handleAudio(envelope)
	default:
		// Unknown envelope types are silently ignored.
		c.hub.metrics.EnvelopesTotal.WithLabelValues("ignored").Inc()
		c.log.Debug("ignoring envelope", "type", envelope.Type)
	}
}

// handleAudio drives decode -> transcribe -> (emit + store), in that
// order. Store failures degrade to logs; the client has already received
// its envelopes by then.
func (c *Client) handleAudio(envelope Envelope) {
	start := time.Now()

	data, err := audio.Decode(envelope.Audio)
	if err != nil {
		c.log.Warn("audio decode failed", "error", err.Error())
		c.sendError(err.Error())
		return
	}

	c.sendJSON(statusEnvelope{Type: "status", Message: "Processing audio..."})

	result, err := c.hub.transcriber.Transcribe(context.Background(), data)
	if err != nil {
		c.log.LogError(err, "transcription failed")
	}
	if result == nil || result.Transcription == "" {
		c.hub.metrics.TranscriptionFailures.Inc()
		c.sendError("Failed to process audio")
		return
	}

	c.sendJSON(transcriptionEnvelope{
		Type:     "transcription",
		Text:     result.Transcription,
		Analysis: result.Analysis,
	})

	sessionType := models.SessionTypeTemporary
	if envelope.UserID != "" {
		sessionType = models.SessionTypeLoggedIn
	}

	elapsed := time.Since(start).Seconds()
	c.hub.metrics.PipelineDuration.Observe(elapsed)

	_, err = c.hub.messages.Store(context.Background(), service.StoreInput{
		Message:        result.Transcription,
		IsAI:           false,
		SessionType:    sessionType,
		Status:         models.StatusCompleted,
		UserID:         envelope.UserID,
		TempUserID:     envelope.TempUserID,
		AudioURL:       envelope.AudioURL,
		AudioDuration:  envelope.Duration,
		AudioFormat:    "wav",
		Transcription:  result.Transcription,
		Analysis:       result.Analysis,
		ProcessingTime: &elapsed,
	})
	if err != nil {
		c.hub.metrics.StoreFailures.Inc()
		c.log.LogError(err, "failed to store user message")
	}

	if result.Reply == "" {
		return
	}

	c.sendJSON(aiReplyEnvelope{Type: "ai_reply", Text: result.Reply})

	_, err = c.hub.messages.Store(context.Background(), service.StoreInput{
		Message:     result.Reply,
		IsAI:        true,
		SessionType: sessionType,
		Status:      models.StatusCompleted,
		UserID:      envelope.UserID,
		TempUserID:  envelope.TempUserID,
		Reply:       result.Reply,
	})
	if err != nil {
		c.hub.metrics.StoreFailures.Inc()
		c.log.LogError(err, "failed to store ai reply")
	}
}

func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.LogError(err, "failed to marshal outbound envelope")
		return
	}
	c.send <- data
}

func (c *Client) sendError(message string) {
	c.sendJSON(errorEnvelope{Type: "error", Message: message})
}

// WritePump drains the send channel to the peer and keeps the connection
// alive with pings. Envelopes leave in the order they were queued.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades an HTTP request and starts the connection's pumps.
func ServeWs(hub *Hub, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.LogError(err, "websocket upgrade failed")
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	client.log = hub.log.WithConnection(client.ID)

	hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
