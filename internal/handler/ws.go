package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-orchestrator/internal/middleware"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
	"github.com/capitalize-ai/chat-orchestrator/internal/service"
	"github.com/capitalize-ai/chat-orchestrator/internal/store"
	"github.com/capitalize-ai/chat-orchestrator/pkg/logger"
	"github.com/capitalize-ai/chat-orchestrator/pkg/metrics"
)

// Limits for the persistent connection. The message window mirrors the HTTP
// rate limit: a client gets msgWindowLimit messages per msgWindow.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxFrameSize   = 8 << 10
	msgWindowLimit = 30
	msgWindow      = time.Minute
	sendBuffer     = 16
)

// frame is the envelope for every event in either direction.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type initPayload struct {
	ParticipantID string         `json:"participantId,omitempty"`
	Language      model.Language `json:"language,omitempty"`
}

type inboundMessage struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type outboundMessage struct {
	Role     model.Role    `json:"role"`
	Content  string        `json:"content"`
	Metadata *outboundMeta `json:"metadata,omitempty"`
}

type outboundMeta struct {
	Agent       string         `json:"agent,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Actions     []model.Action `json:"actions,omitempty"`
	Handoff     string         `json:"handoff,omitempty"`
}

type typingPayload struct {
	IsTyping bool `json:"isTyping"`
}

type languagePayload struct {
	Language model.Language `json:"language"`
}

// WSHandler serves the persistent-connection transport.
type WSHandler struct {
	turns    *service.TurnService
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates the socket handler.
func NewWSHandler(turns *service.TurnService, log *logger.Logger) *WSHandler {
	return &WSHandler{
		turns:  turns,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws, upgrading to a WebSocket session.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sess := &wsSession{
		handler:       h,
		conn:          conn,
		send:          make(chan frame, sendBuffer),
		writeDone:     make(chan struct{}),
		participantID: middleware.AuthenticatedParticipant(r.Context()),
		userAgent:     r.UserAgent(),
		connectedAt:   time.Now(),
		windowStart:   time.Now(),
	}

	metrics.WSConnectionsActive.Inc()
	go sess.writeLoop()
	sess.readLoop()
}

// wsSession is one connection's state. Only the read loop mutates it, so no
// lock is needed; the write loop consumes the send channel exclusively.
type wsSession struct {
	handler   *WSHandler
	conn      *websocket.Conn
	send      chan frame
	writeDone chan struct{}

	participantID  string
	conversationID string
	language       model.Language
	userAgent      string
	connectedAt    time.Time

	windowStart time.Time
	windowCount int
}

func (s *wsSession) readLoop() {
	defer s.teardown()

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var f frame
		if err := s.conn.ReadJSON(&f); err != nil {
			return
		}
		s.dispatch(f)
	}
}

func (s *wsSession) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		close(s.writeDone)
	}()

	for {
		select {
		case f, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *wsSession) dispatch(f frame) {
	switch f.Event {
	case "chat:init":
		s.handleInit(f.Data)
	case "message":
		s.handleMessage(f.Data)
	case "language:change":
		s.handleLanguageChange(f.Data)
	case "typing:start", "typing:stop":
		// Presence only, never persisted.
		s.emit(f.Event, nil)
	default:
		s.emitError("unknown event")
	}
}

func (s *wsSession) handleInit(data json.RawMessage) {
	var p initPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			s.emitError("invalid init payload")
			return
		}
	}
	if s.participantID == "" {
		s.participantID = p.ParticipantID
	}

	conv, welcome, err := s.handler.turns.StartConversation(context.Background(), s.participantID, p.Language, s.userAgent)
	if err != nil {
		s.handler.logger.Error("socket init failed", zap.Error(err))
		s.emitError("unable to start conversation")
		return
	}
	s.participantID = conv.ParticipantID
	s.conversationID = conv.ID
	s.language = conv.Language

	s.emit("message", outboundMessage{
		Role:    model.RoleAssistant,
		Content: welcome,
		Metadata: &outboundMeta{
			Agent: "welcome",
		},
	})
}

func (s *wsSession) handleMessage(data json.RawMessage) {
	var in inboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		s.emitError("invalid message payload")
		return
	}
	if err := middleware.ValidateMessageContent(in.Content); err != nil {
		s.emitError(err.Error())
		return
	}
	if !s.allowMessage() {
		s.emitError("message rate limit exceeded")
		return
	}

	s.emit("typing", typingPayload{IsTyping: true})

	// Detached from the connection: a disconnect mid-turn must not
	// abandon the store writes.
	res, err := s.handler.turns.ProcessTurn(context.Background(), service.TurnInput{
		Message:        in.Content,
		ParticipantID:  s.participantID,
		ConversationID: s.conversationID,
		Language:       s.language,
		Channel:        model.ChannelSocket,
		Transport:      "ws",
		UserAgent:      s.userAgent,
	})
	s.emit("typing", typingPayload{IsTyping: false})
	if err != nil {
		s.handler.logger.Error("socket turn failed", zap.Error(err))
		s.emitError("unable to process message")
		return
	}

	s.participantID = res.ParticipantID
	s.conversationID = res.ConversationID

	s.emit("message", outboundMessage{
		Role:    model.RoleAssistant,
		Content: res.Response,
		Metadata: &outboundMeta{
			Agent:       res.Agent,
			Suggestions: res.Suggestions,
			Actions:     res.Actions,
			Handoff:     res.Handoff,
		},
	})
	if res.Escalation != nil {
		s.emit("escalation", res.Escalation)
	}
}

func (s *wsSession) handleLanguageChange(data json.RawMessage) {
	var p languagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.emitError("invalid language payload")
		return
	}
	lang := p.Language.Normalize()
	s.language = lang

	if s.conversationID != "" {
		actor := store.Actor{ParticipantID: s.participantID}
		if err := s.handler.turns.SetLanguage(context.Background(), s.conversationID, actor, lang); err != nil {
			s.handler.logger.Warn("language change failed",
				zap.String("conversation_id", s.conversationID),
				zap.Error(err),
			)
		}
	}
	s.emit("language:changed", languagePayload{Language: lang})
}

// allowMessage enforces the per-connection message window.
func (s *wsSession) allowMessage() bool {
	now := time.Now()
	if now.Sub(s.windowStart) >= msgWindow {
		s.windowStart = now
		s.windowCount = 0
	}
	if s.windowCount >= msgWindowLimit {
		return false
	}
	s.windowCount++
	return true
}

// emit queues a frame for the write loop. Delivery frames (message,
// escalation, error) block until the write loop drains the buffer or gives
// up on the connection; advisory frames (typing, presence) are dropped when
// a slow consumer has filled the buffer.
func (s *wsSession) emit(event string, data interface{}) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return
		}
		raw = encoded
	}
	f := frame{Event: event, Data: raw}
	switch event {
	case "message", "escalation", "error", "language:changed":
		select {
		case s.send <- f:
		case <-s.writeDone:
		}
	default:
		select {
		case s.send <- f:
		default:
		}
	}
}

func (s *wsSession) emitError(message string) {
	s.emit("error", map[string]string{"message": message})
}

// teardown closes the write loop and marks the conversation closed with the
// disconnect reason and session duration.
func (s *wsSession) teardown() {
	close(s.send)
	metrics.WSConnectionsActive.Dec()

	duration := time.Since(s.connectedAt)
	if s.conversationID != "" {
		actor := store.Actor{ParticipantID: s.participantID}
		extra := map[string]string{
			"session_duration_ms": strconv.FormatInt(duration.Milliseconds(), 10),
		}
		if err := s.handler.turns.Close(context.Background(), s.conversationID, actor, "disconnect", extra); err != nil {
			s.handler.logger.Warn("close on disconnect failed",
				zap.String("conversation_id", s.conversationID),
				zap.Error(err),
			)
		}
	}
	s.handler.logger.Info("socket disconnected",
		zap.String("conversation_id", s.conversationID),
		zap.String("participant_id", s.participantID),
		zap.Duration("session_duration", duration),
	)
}
