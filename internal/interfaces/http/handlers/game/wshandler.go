package game

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/chessforge/gamecore/internal/infrastructure/auth"
	"github.com/chessforge/gamecore/internal/infrastructure/metrics"
	"github.com/chessforge/gamecore/internal/infrastructure/wsbroker"
	"github.com/chessforge/gamecore/internal/interfaces/http/middleware"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 70 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096

	defaultInboundRate  = 5
	defaultInboundBurst = 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type tokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type connRegistry interface {
	Register(ctx context.Context, gameID, playerID string) *wsbroker.Conn
	Subscribe(ctx context.Context, conn *wsbroker.Conn, gameID string)
	Unsubscribe(ctx context.Context, conn *wsbroker.Conn, gameID string)
	Unregister(ctx context.Context, conn *wsbroker.Conn)
}

// WSHandler serves /ws/games/:id. Spectators and players alike must present
// a valid token; the connection is closed with 1008 otherwise.
type WSHandler struct {
	broker   connRegistry
	games    gameReader
	verifier tokenVerifier
	metrics  *metrics.Metrics
	logger   logger.Interface

	inboundRate  rate.Limit
	inboundBurst int
}

func NewWSHandler(broker connRegistry, games gameReader, verifier tokenVerifier, m *metrics.Metrics, log logger.Interface) *WSHandler {
	return &WSHandler{
		broker:   broker,
		games:    games,
		verifier: verifier,
		metrics:  m,
		logger:   log,

		inboundRate:  defaultInboundRate,
		inboundBurst: defaultInboundBurst,
	}
}

// WithInboundLimit caps client frames per connection. Non-positive values
// keep the defaults.
func (h *WSHandler) WithInboundLimit(perSecond float64, burst int) *WSHandler {
	if perSecond > 0 {
		h.inboundRate = rate.Limit(perSecond)
	}
	if burst > 0 {
		h.inboundBurst = burst
	}
	return h
}

// GameWS handles GET /ws/games/:id
func (h *WSHandler) GameWS(c *gin.Context) {
	gameID := c.Param("id")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnw("failed to upgrade to websocket", "error", err, "game_id", gameID, "ip", c.ClientIP())
		return
	}

	claims, err := h.verifier.Verify(middleware.TokenFromRequest(c))
	if err != nil {
		h.logger.Warnw("rejecting unauthenticated websocket", "game_id", gameID, "ip", c.ClientIP())
		deadline := time.Now().Add(writeWait)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"), deadline)
		_ = ws.Close()
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	conn := h.broker.Register(ctx, gameID, claims.UserID)
	h.metrics.WSConnected()

	h.send(conn, &wsbroker.Message{Type: wsbroker.MsgConnected, GameID: gameID, Data: gin.H{
		"connection_id": conn.ID,
		"user_id":       claims.UserID,
	}})
	if view, err := h.games.Execute(ctx, gameID); err == nil {
		h.send(conn, &wsbroker.Message{Type: wsbroker.MsgGameState, GameID: gameID, FEN: view.FEN, Data: view})
	}

	go h.writePump(ws, conn)
	h.readPump(ctx, ws, conn)
}

func (h *WSHandler) send(conn *wsbroker.Conn, msg *wsbroker.Message) {
	if msg.Timestamp == 0 {
		msg.Timestamp = biztime.NowUTC().UnixMilli()
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		return
	}
	conn.TrySend(frame)
}

func (h *WSHandler) readPump(ctx context.Context, ws *websocket.Conn, conn *wsbroker.Conn) {
	defer func() {
		h.broker.Unregister(ctx, conn)
		h.metrics.WSDisconnected()
		_ = ws.Close()
	}()

	limiter := rate.NewLimiter(h.inboundRate, h.inboundBurst)
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warnw("websocket read error", "error", err, "connection_id", conn.ID)
			}
			return
		}
		if !limiter.Allow() {
			h.send(conn, &wsbroker.Message{Type: wsbroker.MsgError, Data: "rate limit exceeded"})
			continue
		}

		var msg wsbroker.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.send(conn, &wsbroker.Message{Type: wsbroker.MsgError, Data: "invalid message"})
			continue
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case wsbroker.MsgPong:
		case wsbroker.MsgPing:
			h.send(conn, &wsbroker.Message{Type: wsbroker.MsgPong})
		case wsbroker.MsgSubscribe:
			if msg.GameID != "" {
				h.broker.Subscribe(ctx, conn, msg.GameID)
				h.send(conn, &wsbroker.Message{Type: wsbroker.MsgSubscribed, GameID: msg.GameID})
			}
		case wsbroker.MsgUnsubscribe:
			if msg.GameID != "" {
				h.broker.Unsubscribe(ctx, conn, msg.GameID)
			}
		default:
			h.send(conn, &wsbroker.Message{Type: wsbroker.MsgError, Data: "unknown message type"})
		}
	}
}

// writePump drains conn.Send and pings every pingPeriod. A client that stops
// answering pings hits the read deadline and is dropped by readPump.
func (h *WSHandler) writePump(ws *websocket.Conn, conn *wsbroker.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case frame, ok := <-conn.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			h.send(conn, &wsbroker.Message{Type: wsbroker.MsgPing})
		}
	}
}
