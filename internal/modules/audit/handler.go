package audit

import (
	"context"
	"log"
	"net/http"
	"time"

	"homestay/internal/domain"
	"homestay/internal/middleware"
	"homestay/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the feed is authenticated by token, any origin may connect
	CheckOrigin: func(r *http.Request) bool { return true },
}

type LogReader interface {
	ListByEntity(ctx context.Context, tenantID, entityID string) ([]domain.AuditLog, error)
}

type Handler struct {
	hub  *Hub
	logs LogReader
}

func NewHandler(hub *Hub, logs LogReader) *Handler {
	return &Handler{hub: hub, logs: logs}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/events/ws", h.Stream)
	rg.GET("/audit-logs", h.ListLogs)
}

// ListLogs — GET /audit-logs?entity_id=...
func (h *Handler) ListLogs(c *gin.Context) {
	entityID := c.Query("entity_id")
	if entityID == "" {
		response.FromError(c, domain.Invalid("entity_id", "query parameter is required"))
		return
	}
	logs, err := h.logs.ListByEntity(c.Request.Context(), middleware.TenantID(c), entityID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"audit_logs": logs})
}

// Stream — GET /events/ws?access_token=JWT
//
// Pushes every event of the caller's tenant. Client messages are ignored.
func (h *Handler) Stream(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("event feed upgrade failed tenant=%s error=%v", tenantID, err)
		return
	}

	cl := h.hub.register(tenantID, conn)
	log.Printf("event feed connected tenant=%s actor=%s", tenantID, middleware.Actor(c))
	defer func() {
		h.hub.unregister(tenantID, cl)
		log.Printf("event feed disconnected tenant=%s", tenantID)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go pingLoop(cl, stop)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("event feed read error tenant=%s error=%v", tenantID, err)
			}
			return
		}
	}
}

func pingLoop(cl *client, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := cl.ping(); err != nil {
				return
			}
		}
	}
}
