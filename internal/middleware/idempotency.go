package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"homestay/internal/domain"
	"homestay/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	headerIdempotencyKey   = "Idempotency-Key"
	headerIdempotentReplay = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
)

// IdempotencyStore keeps one record per (tenant, key).
type IdempotencyStore interface {
	Claim(ctx context.Context, rec *domain.IdempotencyRecord) (bool, error)
	Get(ctx context.Context, tenantID, key string) (*domain.IdempotencyRecord, error)
	Complete(ctx context.Context, tenantID, key string, status int, payload []byte) error
	Forget(ctx context.Context, tenantID, key string) error
}

// Idempotency replays the stored response when a POST is retried with the
// same Idempotency-Key. Only 2xx responses are kept; a failed request frees
// the key again. It must run after authentication.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Idempotency-Key is too long")
			c.Abort()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			var err error
			if body, err = io.ReadAll(c.Request.Body); err != nil {
				response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Could not read request body")
				c.Abort()
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		ctx := c.Request.Context()
		tenantID := TenantID(c)
		endpoint := c.Request.Method + " " + c.FullPath()
		rec := &domain.IdempotencyRecord{
			TenantID:    tenantID,
			Key:         key,
			Endpoint:    endpoint,
			RequestHash: requestHash(endpoint, c.Request.URL.Path, body),
			CreatedAt:   time.Now(),
		}

		claimed, err := store.Claim(ctx, rec)
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}
		if !claimed {
			replay(c, store, rec)
			return
		}

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// the client may already be gone; the record must still settle
		settleCtx := context.WithoutCancel(ctx)
		status := w.Status()
		if status >= 200 && status < 300 {
			err = store.Complete(settleCtx, tenantID, key, status, w.body.Bytes())
		} else {
			err = store.Forget(settleCtx, tenantID, key)
		}
		if err != nil {
			log.Printf("idempotency_settle_failed tenant_id=%s key=%q status=%d error=%q", tenantID, key, status, err)
		}
	}
}

func replay(c *gin.Context, store IdempotencyStore, rec *domain.IdempotencyRecord) {
	defer c.Abort()

	prior, err := store.Get(c.Request.Context(), rec.TenantID, rec.Key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// the first request failed and released the key between our calls
		response.Error(c, http.StatusConflict, "IDEMPOTENCY_KEY_IN_USE", "Request with this Idempotency-Key is still in progress")
		return
	case err != nil:
		response.FromError(c, err)
		return
	}

	if prior.RequestHash != rec.RequestHash {
		response.Error(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency-Key was already used for a different request")
		return
	}
	if !prior.Completed() {
		response.Error(c, http.StatusConflict, "IDEMPOTENCY_KEY_IN_USE", "Request with this Idempotency-Key is still in progress")
		return
	}

	log.Printf("idempotent_replay tenant_id=%s key=%q endpoint=%q status=%d", rec.TenantID, rec.Key, prior.Endpoint, prior.StatusCode)
	c.Header(headerIdempotentReplay, "true")
	c.Data(prior.StatusCode, "application/json; charset=utf-8", prior.Response)
}

func requestHash(endpoint, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// capturingWriter tees the response body so it can be stored for replays.
type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
