package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayHeader         = "Idempotent-Replay"

	replayTTL = 24 * time.Hour
)

// storedReply is a handler response kept for replay.
type storedReply struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// replayStore keeps replies in Redis under route-scoped keys.
type replayStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func (s replayStore) key(route, idempotencyKey string) string {
	return "idempotency:" + route + ":" + idempotencyKey
}

func (s replayStore) load(ctx context.Context, key string) (*storedReply, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var reply storedReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s replayStore) save(ctx context.Context, key string, reply storedReply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// capturingWriter copies the response body while writing it through.
type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// replayable reports whether a reply is served again for the same key.
// 409 means a cycle was already running, so the caller may retry the key.
func replayable(status int) bool {
	return status >= 200 && status < 500 && status != http.StatusConflict
}

// IdempotencyMiddleware replays the stored response of a POST carrying an
// Idempotency-Key already seen on the same route. Without a Redis client it
// is a no-op.
func IdempotencyMiddleware(client redis.Cmdable) gin.HandlerFunc {
	if client == nil {
		return func(c *gin.Context) { c.Next() }
	}
	store := replayStore{client: client, ttl: replayTTL}

	return func(c *gin.Context) {
		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if c.Request.Method != http.MethodPost || idempotencyKey == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := store.key(c.FullPath(), idempotencyKey)

		reply, err := store.load(ctx, key)
		if err != nil {
			// Redis unavailable: serve without replay.
			c.Next()
			return
		}
		if reply != nil {
			contentType := reply.ContentType
			if contentType == "" {
				contentType = "application/json"
			}
			c.Header(ReplayHeader, "true")
			c.Data(reply.Status, contentType, reply.Body)
			c.Abort()
			return
		}

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if !replayable(w.Status()) {
			return
		}
		_ = store.save(context.WithoutCancel(ctx), key, storedReply{
			Status:      w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		})
	}
}
