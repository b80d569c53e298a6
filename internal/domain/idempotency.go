package domain

import "time"

// IdempotencyRecord remembers the outcome of a client request sent with an
// Idempotency-Key header. StatusCode stays zero while the first request is
// still being served.
type IdempotencyRecord struct {
	TenantID    string
	Key         string
	Endpoint    string
	RequestHash string
	StatusCode  int
	Response    []byte
	CreatedAt   time.Time
}

func (r *IdempotencyRecord) Completed() bool {
	return r.StatusCode != 0
}
