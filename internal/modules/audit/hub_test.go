package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay/internal/domain"
)

func feedServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.Use(func(c *gin.Context) {
		c.Set("tenant_id", c.Query("tenant"))
		c.Next()
	})
	NewHandler(hub, nil).RegisterRoutes(v1)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, tenant string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events/ws?tenant=" + tenant
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubBroadcastsPerTenant(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := feedServer(t, hub)

	a := dial(t, srv, "t1")
	b := dial(t, srv, "t2")
	require.Eventually(t, func() bool {
		return hub.Subscribers("t1") == 1 && hub.Subscribers("t2") == 1
	}, 2*time.Second, 10*time.Millisecond)

	sink := NewHubSink(hub)
	require.NoError(t, sink.Write(context.Background(), domain.Event{TenantID: "t1", Type: domain.EventCapacityUpdated, EntityID: "rt-1"}))

	var got domain.Event
	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, a.ReadJSON(&got))
	assert.Equal(t, domain.EventCapacityUpdated, got.Type)
	assert.Equal(t, "rt-1", got.EntityID)

	require.NoError(t, b.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := b.ReadMessage()
	assert.Error(t, err, "other tenants see nothing")

	assert.Zero(t, hub.Broadcast("t3", got))
}

func TestHubDropsClosedConnections(t *testing.T) {
	hub := NewHub()
	srv := feedServer(t, hub)

	conn := dial(t, srv, "t1")
	require.Eventually(t, func() bool { return hub.Subscribers("t1") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	require.Eventually(t, func() bool { return hub.Subscribers("t1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestListLogsRequiresEntity(t *testing.T) {
	srv := feedServer(t, NewHub())
	res, err := http.Get(srv.URL + "/api/v1/audit-logs?tenant=t1")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
