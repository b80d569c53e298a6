package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay/internal/config"
	"homestay/internal/domain"
	"homestay/internal/pkg/apikey"
	"homestay/internal/storetest"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:          "test",
		JWTSecret:       "test-secret",
		JWTTTL:          time.Hour,
		HoldTTL:         15 * time.Minute,
		SweepInterval:   time.Minute,
		SweepBatchSize:  100,
		Timezone:        "UTC",
		Location:        time.UTC,
		DefaultCurrency: "NPR",
		EventBufferSize: 64,
		IdempotencyTTL:  24 * time.Hour,
	}
}

type client struct {
	t      *testing.T
	router *gin.Engine
	header http.Header
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (c *client) do(method, path string, body any) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func field(t *testing.T, env envelope, key string) map[string]any {
	t.Helper()
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	obj, ok := data[key].(map[string]any)
	require.True(t, ok, "missing %q in %s", key, env.Data)
	return obj
}

func newApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := storetest.Open(t)
	app := New(testConfig(), store.DB(), nil)
	app.Start()
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app
}

func TestHealthAndAuth(t *testing.T) {
	app := newApp(t)
	anon := &client{t: t, router: app.Router, header: http.Header{}}

	code, _ := anon.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := anon.do(http.MethodGet, "/api/v1/bookings", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	issued, err := apikey.Generate()
	require.NoError(t, err)
	require.NoError(t, app.Store.APIKeys.Create(context.Background(), &domain.TenantAPIKey{
		ID:       issued.ID,
		TenantID: "tenant-api",
		Name:     "channel manager",
		KeyHash:  issued.Hash,
	}))
	keyed := &client{t: t, router: app.Router, header: http.Header{"X-Api-Key": {issued.Plain()}}}
	code, env = keyed.do(http.MethodGet, "/api/v1/bookings", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	app := newApp(t)
	token, err := app.JWT.GenerateToken("tenant-1", "user-1", "manager")
	require.NoError(t, err)
	api := &client{t: t, router: app.Router, header: http.Header{"Authorization": {"Bearer " + token}}}

	code, env := api.do(http.MethodPost, "/api/v1/properties", map[string]any{"name": "Lakeside Homestay", "timezone": "UTC"})
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	propertyID := field(t, env, "property")["id"].(string)

	code, env = api.do(http.MethodPost, "/api/v1/room-types", map[string]any{
		"property_id":        propertyID,
		"name":               "Deluxe Double",
		"max_occupancy":      2,
		"default_base_price": 5000,
	})
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	roomTypeID := field(t, env, "room_type")["id"].(string)

	code, env = api.do(http.MethodPost, "/api/v1/room-types/"+roomTypeID+"/calendar", map[string]any{
		"start_date": "2030-06-01", "end_date": "2030-06-03", "available_count": 1,
	})
	require.Equal(t, http.StatusOK, code, env.Error.Message)

	code, env = api.do(http.MethodPost, "/api/v1/quotes", map[string]any{
		"property_id": propertyID, "room_type_id": roomTypeID,
		"start_date": "2030-06-01", "end_date": "2030-06-03", "occupancy": 2,
	})
	require.Equal(t, http.StatusOK, code, env.Error.Message)
	var quote struct {
		Total float64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.Equal(t, 10000.0, quote.Total)

	booking := map[string]any{
		"property_id": propertyID, "room_type_id": roomTypeID,
		"checkin": "2030-06-01", "checkout": "2030-06-03", "guests_count": 2,
		"guest": map[string]any{"name": "Sita Sharma"},
	}
	code, env = api.do(http.MethodPost, "/api/v1/bookings", booking)
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	created := field(t, env, "booking")
	bookingID := created["id"].(string)
	assert.Equal(t, "PENDING", created["status"])
	assert.Equal(t, 10000.0, created["total_amount"])

	code, env = api.do(http.MethodPost, "/api/v1/bookings", booking)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CAPACITY_CONFLICT", env.Error.Code)
	assert.Equal(t, "2030-06-01", env.Error.Details["date"])

	code, env = api.do(http.MethodPost, "/api/v1/bookings/"+bookingID+"/confirm", nil)
	require.Equal(t, http.StatusOK, code, env.Error.Message)
	assert.Equal(t, "CONFIRMED", field(t, env, "booking")["status"])

	code, env = api.do(http.MethodPost, "/api/v1/bookings/"+bookingID+"/check-in", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, env = api.do(http.MethodPost, "/api/v1/bookings/"+bookingID+"/cancel", map[string]any{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, code, env.Error.Message)
	assert.Equal(t, "CANCELLED", field(t, env, "booking")["status"])

	code, env = api.do(http.MethodPost, "/api/v1/bookings/"+bookingID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_STATE_TRANSITION", env.Error.Code)

	code, env = api.do(http.MethodPost, "/api/v1/bookings", booking)
	assert.Equal(t, http.StatusCreated, code, "cancelled stay frees the dates")

	other, err := app.JWT.GenerateToken("tenant-2", "user-9", "manager")
	require.NoError(t, err)
	intruder := &client{t: t, router: app.Router, header: http.Header{"Authorization": {"Bearer " + other}}}
	code, _ = intruder.do(http.MethodGet, "/api/v1/bookings/"+bookingID, nil)
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, app.Shutdown(context.Background()))
	logs, err := app.Store.Audit.ListByEntity(context.Background(), "tenant-1", bookingID)
	require.NoError(t, err)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	assert.Subset(t, actions, []string{domain.EventBookingCreated, domain.EventBookingConfirmed, domain.EventBookingCancelled})
	for _, l := range logs {
		if l.Action == domain.EventBookingConfirmed {
			assert.Equal(t, "user:user-1", l.Actor)
		}
	}
}

func TestIdempotentBookingRetry(t *testing.T) {
	app := newApp(t)
	token, err := app.JWT.GenerateToken("tenant-1", "user-1", "manager")
	require.NoError(t, err)
	auth := "Bearer " + token
	api := &client{t: t, router: app.Router, header: http.Header{"Authorization": {auth}}}

	code, env := api.do(http.MethodPost, "/api/v1/properties", map[string]any{"name": "Hilltop Homestay", "timezone": "UTC"})
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	propertyID := field(t, env, "property")["id"].(string)
	code, env = api.do(http.MethodPost, "/api/v1/room-types", map[string]any{
		"property_id": propertyID, "name": "Twin", "max_occupancy": 2, "default_base_price": 3000,
	})
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	roomTypeID := field(t, env, "room_type")["id"].(string)
	code, env = api.do(http.MethodPost, "/api/v1/room-types/"+roomTypeID+"/calendar", map[string]any{
		"start_date": "2030-07-01", "end_date": "2030-07-02", "available_count": 1,
	})
	require.Equal(t, http.StatusOK, code, env.Error.Message)

	booking := map[string]any{
		"property_id": propertyID, "room_type_id": roomTypeID,
		"checkin": "2030-07-01", "checkout": "2030-07-02", "guests_count": 1,
	}
	retrying := &client{t: t, router: app.Router, header: http.Header{
		"Authorization":   {auth},
		"Idempotency-Key": {"checkout-7f3a"},
	}}

	code, env = retrying.do(http.MethodPost, "/api/v1/bookings", booking)
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	firstID := field(t, env, "booking")["id"].(string)

	code, env = retrying.do(http.MethodPost, "/api/v1/bookings", booking)
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	assert.Equal(t, firstID, field(t, env, "booking")["id"])

	booking["guests_count"] = 2
	code, env = retrying.do(http.MethodPost, "/api/v1/bookings", booking)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSED", env.Error.Code)

	// a failed attempt leaves its key free to retry
	other := &client{t: t, router: app.Router, header: http.Header{
		"Authorization":   {auth},
		"Idempotency-Key": {"checkout-9b21"},
	}}
	for range 2 {
		code, env = other.do(http.MethodPost, "/api/v1/bookings", booking)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "CAPACITY_CONFLICT", env.Error.Code)
	}

	code, env = api.do(http.MethodGet, "/api/v1/bookings", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, strings.Count(string(env.Data), `"id":"`+firstID+`"`))
}
