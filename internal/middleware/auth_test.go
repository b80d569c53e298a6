package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"homestay/internal/domain"
	"homestay/internal/pkg/apikey"
	"homestay/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockKeyStore struct {
	mock.Mock
}

func (m *mockKeyStore) GetByID(ctx context.Context, id string) (*domain.TenantAPIKey, error) {
	args := m.Called(ctx, id)
	if k, ok := args.Get(0).(*domain.TenantAPIKey); ok {
		return k, args.Error(1)
	}
	return nil, args.Error(1)
}

func protectedRouter(h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(h)
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tenant_id": TenantID(c),
			"actor":     Actor(c),
			"role":      c.GetString("role"),
		})
	})
	return router
}

func TestJWTAuth_ValidToken(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour)
	validToken, err := jwtService.GenerateToken("tenant-42", "user-7", "manager")
	require.NoError(t, err)

	router := protectedRouter(JWTAuth(jwtService))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tenant-42")
	assert.Contains(t, w.Body.String(), "user:user-7")
	assert.Contains(t, w.Body.String(), "manager")
}

func TestJWTAuth_QueryToken(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour)
	token, err := jwtService.GenerateToken("tenant-42", "user-7", "manager")
	require.NoError(t, err)

	router := protectedRouter(JWTAuth(jwtService))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected?access_token="+token, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuth(jwt.New("wrong-secret", time.Hour)))
	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("This handler should not be reached")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer invalid-jwt-here")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestJWTAuth_NoToken(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuth(jwt.New("secret", time.Hour)))
	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("Should not reach here")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestJWTAuth_TenantHeaderMismatch(t *testing.T) {
	jwtService := jwt.New("secret", time.Hour)
	token, err := jwtService.GenerateToken("tenant-a", "u", "manager")
	require.NoError(t, err)

	router := protectedRouter(JWTAuth(jwtService))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Tenant-Id", "tenant-b")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "TENANT_MISMATCH")
}

func TestAPIKeyAuth(t *testing.T) {
	issued, err := apikey.Generate()
	require.NoError(t, err)

	keys := new(mockKeyStore)
	keys.On("GetByID", mock.Anything, issued.ID).Return(&domain.TenantAPIKey{
		ID:       issued.ID,
		TenantID: "tenant-k",
		KeyHash:  issued.Hash,
	}, nil)
	keys.On("GetByID", mock.Anything, "unknown").Return(nil, domain.NotFound("api key", "unknown"))

	router := protectedRouter(Authenticate(jwt.New("secret", time.Hour), keys))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-Api-Key", issued.Plain())
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tenant-k")
	assert.Contains(t, w.Body.String(), "api_key:"+issued.ID)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-Api-Key", issued.ID+".wrong")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-Api-Key", "unknown.secret")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_API_KEY")

	keys.AssertExpectations(t)
}

func TestAPIKeyAuth_DisabledKey(t *testing.T) {
	issued, err := apikey.Generate()
	require.NoError(t, err)

	keys := new(mockKeyStore)
	keys.On("GetByID", mock.Anything, issued.ID).Return(&domain.TenantAPIKey{
		ID: issued.ID, TenantID: "tenant-k", KeyHash: issued.Hash, Disabled: true,
	}, nil)

	router := protectedRouter(APIKeyAuth(keys))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-Api-Key", issued.Plain())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestErrorLoggerRecoversPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorLogger())
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS([]string{"http://localhost:3000"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Api-Key")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	get := func(origins []string, origin string) *httptest.ResponseRecorder {
		router := gin.New()
		router.Use(CORS(origins))
		router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", origin)
		router.ServeHTTP(w, req)
		return w
	}

	w := get([]string{"http://localhost:3000"}, "http://evil.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = get([]string{"*"}, "http://partner.example")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Idempotent-Replayed")
}
