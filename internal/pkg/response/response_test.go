package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"homestay/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	FromError(c, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func errorBody(body map[string]any) map[string]any {
	return body["error"].(map[string]any)
}

func TestFromErrorCapacity(t *testing.T) {
	err := fmt.Errorf("reserve: %w", &domain.CapacityError{
		Date: domain.NewDate(2025, 6, 1), Requested: 1, Remaining: 0, Shortfall: 1,
	})

	code, body := render(t, err)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["success"])
	e := errorBody(body)
	assert.Equal(t, "CAPACITY_CONFLICT", e["code"])
	details := e["details"].(map[string]any)
	assert.Equal(t, "2025-06-01", details["date"])
	assert.Equal(t, float64(1), details["shortfall"])
}

func TestFromErrorInvalidState(t *testing.T) {
	code, body := render(t, &domain.InvalidStateError{BookingID: "b1", Current: domain.BookingCheckedIn, Attempted: domain.TransitionCancel})
	assert.Equal(t, http.StatusConflict, code)
	e := errorBody(body)
	assert.Equal(t, "INVALID_STATE_TRANSITION", e["code"])
	details := e["details"].(map[string]any)
	assert.Equal(t, "CHECKED_IN", details["current"])
	assert.Equal(t, "cancel", details["attempted"])
}

func TestFromErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
		name string
	}{
		{domain.Invalid("guests", "too many"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.NotFound("hold", "abc"), http.StatusNotFound, "NOT_FOUND"},
		{&domain.NoRatePlanError{RoomTypeID: "rt", Nights: 3}, http.StatusUnprocessableEntity, "NO_RATE_PLAN"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := render(t, tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.name, errorBody(body)["code"])
		})
	}
}
