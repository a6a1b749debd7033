package handlers

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/hearth-backend/internal/platform/ctxutil"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"github.com/yungbote/hearth-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub

	mu      sync.Mutex
	clients map[uuid.UUID]*realtime.SSEClient // keyed by token session id
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// GET /api/sse/stream
// Every connection joins the user's channel. A reconnect from the same session replaces the
// previous stream.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	sessionID := uuid.Nil
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		sessionID = rd.SessionID
	}

	client := h.hub.NewSSEClient(userID)
	if sessionID != uuid.Nil {
		h.mu.Lock()
		if existing, ok := h.clients[sessionID]; ok {
			h.hub.CloseClient(existing)
		}
		h.clients[sessionID] = client
		h.mu.Unlock()
	}
	h.hub.AddChannel(client, userID.String())
	h.log.Debug("SSE stream open", "user_id", userID, "client_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	if sessionID != uuid.Nil {
		h.mu.Lock()
		if h.clients[sessionID] == client {
			delete(h.clients, sessionID)
		}
		h.mu.Unlock()
	}
	h.hub.CloseClient(client)
}
