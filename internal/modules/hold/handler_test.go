package hold

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay/internal/storetest"
)

func newTestRouter(t *testing.T) (*gin.Engine, *harness) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := setup(t)
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.Use(func(c *gin.Context) {
		c.Set("tenant_id", h.fx.TenantID)
		c.Next()
	})
	NewHandler(h.svc).RegisterRoutes(v1)
	return r, h
}

func send(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHoldEndpoints(t *testing.T) {
	r, h := newTestRouter(t)
	storetest.SetCapacity(t, h.store, h.fx, june1, 2, 1, 0)

	create := CreateHoldRequest{RoomTypeID: h.fx.RoomType.ID, StartDate: "2025-06-01", EndDate: "2025-06-03", Quantity: 1}
	w := send(r, http.MethodPost, "/api/v1/holds", create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data HoldResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.Token)

	w = send(r, http.MethodPost, "/api/v1/holds", create)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CAPACITY_CONFLICT")
	assert.Contains(t, w.Body.String(), `"date":"2025-06-01"`)
	assert.Contains(t, w.Body.String(), `"shortfall":1`)

	w = send(r, http.MethodGet, "/api/v1/holds/"+created.Data.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodGet, "/api/v1/room-types/"+h.fx.RoomType.ID+"/availability?from=2025-06-01&to=2025-06-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remaining":0`)

	w = send(r, http.MethodDelete, "/api/v1/holds/"+created.Data.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = send(r, http.MethodDelete, "/api/v1/holds/"+created.Data.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code, "release is idempotent")

	w = send(r, http.MethodGet, "/api/v1/holds/"+created.Data.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHoldEndpointValidation(t *testing.T) {
	r, h := newTestRouter(t)

	w := send(r, http.MethodPost, "/api/v1/holds", CreateHoldRequest{RoomTypeID: h.fx.RoomType.ID, StartDate: "2025-06-03", EndDate: "2025-06-01", Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPost, "/api/v1/holds", map[string]any{"room_type_id": h.fx.RoomType.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodGet, "/api/v1/room-types/"+h.fx.RoomType.ID+"/availability?from=2025-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
