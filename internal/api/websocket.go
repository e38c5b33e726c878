// internal/api/websocket.go
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/services"
	"github.com/claritutor/claritutor/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams tutor chat over WebSocket connections. One
// connection serves one tutor session; deltas go out as they arrive from the
// provider.
type WebSocketHandler struct {
	sessions *services.SessionService
}

// NewWebSocketHandler creates the WebSocket handler.
func NewWebSocketHandler(sessionService *services.SessionService) *WebSocketHandler {
	return &WebSocketHandler{sessions: sessionService}
}

// wsEnvelope is the wire format in both directions.
type wsEnvelope struct {
	Type    string      `json:"type"`
	Text    string      `json:"text,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// wsConn serializes writes: the streaming goroutine and the read loop both
// send frames.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(env wsEnvelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.conn.WriteJSON(env)
}

// TutorWebSocket upgrades the connection and runs the chat loop. Client
// frames: {"type":"submit","text":...}, {"type":"cancel"}, {"type":"ping"}.
// Server frames: delta, settled, cancelled, error, pong.
func (wh *WebSocketHandler) TutorWebSocket(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		http.Error(c.Writer, "session id is required", http.StatusBadRequest)
		return
	}

	if _, err := wh.sessions.GetSession(sessionID); err != nil {
		http.Error(c.Writer, "tutor session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("websocket upgrade failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn}
	ws.send(wsEnvelope{Type: "connected", Data: gin.H{"session_id": sessionID}})

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		var msg wsEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.GetLogger().Debug("websocket closed unexpectedly", map[string]interface{}{
					"session_id": sessionID,
					"error":      err.Error(),
				})
			}
			return
		}

		switch msg.Type {
		case "submit":
			wg.Add(1)
			go func(text string) {
				defer wg.Done()
				wh.streamReply(c, ws, sessionID, text)
			}(msg.Text)

		case "cancel":
			if err := wh.sessions.Cancel(sessionID); err != nil {
				wh.sendError(ws, err)
			}

		case "ping":
			ws.send(wsEnvelope{Type: "pong"})

		default:
			ws.send(wsEnvelope{Type: "error", Code: ErrorBadRequest, Message: "unknown message type: " + msg.Type})
		}
	}
}

func (wh *WebSocketHandler) streamReply(c *gin.Context, ws *wsConn, sessionID, text string) {
	snapshot, err := wh.sessions.SubmitStream(c.Request.Context(), sessionID, text, func(delta string) {
		ws.send(wsEnvelope{Type: "delta", Text: delta})
	})
	if err != nil {
		wh.sendError(ws, err)
		return
	}

	ws.send(wsEnvelope{Type: "settled", Data: snapshot})
}

func (wh *WebSocketHandler) sendError(ws *wsConn, err error) {
	code := ErrorInternalError
	var appErr *apperrors.AppError
	if e, ok := err.(*apperrors.AppError); ok {
		appErr = e
	}
	if appErr != nil {
		code = appErr.Code
	}
	ws.send(wsEnvelope{Type: "error", Code: code, Message: err.Error()})
}
