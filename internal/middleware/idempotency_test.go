package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeRedis serves Get and Set from memory. Any other command panics
// through the nil embedded interface.
type fakeRedis struct {
	redis.Cmdable

	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failGet bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd := redis.NewStringCmd(ctx, "get", key)
	if f.failGet {
		cmd.SetErr(errors.New("connection refused"))
		return cmd
	}
	v, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd := redis.NewStatusCmd(ctx, "set", key)
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		cmd.SetErr(fmt.Errorf("unsupported value %T", value))
		return cmd
	}
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) keys() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

// cycleRouter mounts a counting POST handler that answers with status.
func cycleRouter(client redis.Cmdable, status *int) (*gin.Engine, *int) {
	calls := 0
	r := gin.New()
	r.Use(IdempotencyMiddleware(client))
	handler := func(c *gin.Context) {
		calls++
		c.JSON(*status, gin.H{"call": calls})
	}
	r.POST("/v1/cycles", handler)
	r.POST("/v1/other", handler)
	r.GET("/v1/cycles", handler)
	return r, &calls
}

func post(r *gin.Engine, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	t.Parallel()

	store := newFakeRedis()
	status := http.StatusOK
	r, calls := cycleRouter(store, &status)

	first := post(r, "/v1/cycles", "abc")
	second := post(r, "/v1/cycles", "abc")

	if *calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", *calls)
	}
	if second.Code != http.StatusOK || second.Body.String() != first.Body.String() {
		t.Errorf("expected replay of %q, got %d %q", first.Body.String(), second.Code, second.Body.String())
	}
	if second.Header().Get(ReplayHeader) != "true" {
		t.Error("replayed response should carry the replay header")
	}
	if first.Header().Get(ReplayHeader) != "" {
		t.Error("first response must not be marked as replay")
	}
	if ct := second.Header().Get("Content-Type"); ct != first.Header().Get("Content-Type") {
		t.Errorf("expected content type %q, got %q", first.Header().Get("Content-Type"), ct)
	}
	if ttl := store.ttls["idempotency:/v1/cycles:abc"]; ttl != replayTTL {
		t.Errorf("expected ttl %s, got %s", replayTTL, ttl)
	}
}

func TestIdempotency_ConflictIsNotStored(t *testing.T) {
	t.Parallel()

	store := newFakeRedis()
	status := http.StatusConflict
	r, calls := cycleRouter(store, &status)

	if w := post(r, "/v1/cycles", "abc"); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if store.keys() != 0 {
		t.Fatal("a 409 response must not be stored")
	}

	status = http.StatusOK
	w := post(r, "/v1/cycles", "abc")
	if *calls != 2 || w.Code != http.StatusOK {
		t.Errorf("retry with the same key should reach the handler, calls=%d code=%d", *calls, w.Code)
	}
	if w.Header().Get(ReplayHeader) != "" {
		t.Error("retry after 409 must not be a replay")
	}
}

func TestIdempotency_ServerErrorIsNotStored(t *testing.T) {
	t.Parallel()

	store := newFakeRedis()
	status := http.StatusBadGateway
	r, calls := cycleRouter(store, &status)

	post(r, "/v1/cycles", "abc")
	post(r, "/v1/cycles", "abc")

	if *calls != 2 || store.keys() != 0 {
		t.Errorf("5xx responses must not be replayed, calls=%d stored=%d", *calls, store.keys())
	}
}

func TestIdempotency_KeysAreScopedByRoute(t *testing.T) {
	t.Parallel()

	store := newFakeRedis()
	status := http.StatusOK
	r, calls := cycleRouter(store, &status)

	post(r, "/v1/cycles", "abc")
	w := post(r, "/v1/other", "abc")

	if *calls != 2 || w.Header().Get(ReplayHeader) != "" {
		t.Errorf("same key on another route must not replay, calls=%d", *calls)
	}
}

func TestIdempotency_Passthrough(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		client func() redis.Cmdable
		method string
		key    string
	}{
		{"no key", func() redis.Cmdable { return newFakeRedis() }, http.MethodPost, ""},
		{"not a POST", func() redis.Cmdable { return newFakeRedis() }, http.MethodGet, "abc"},
		{"no redis", func() redis.Cmdable { return nil }, http.MethodPost, "abc"},
		{"redis unavailable", func() redis.Cmdable {
			f := newFakeRedis()
			f.failGet = true
			return f
		}, http.MethodPost, "abc"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := http.StatusOK
			r, calls := cycleRouter(tc.client(), &status)

			for i := 0; i < 2; i++ {
				req := httptest.NewRequest(tc.method, "/v1/cycles", nil)
				if tc.key != "" {
					req.Header.Set(IdempotencyKeyHeader, tc.key)
				}
				r.ServeHTTP(httptest.NewRecorder(), req)
			}
			if *calls != 2 {
				t.Errorf("expected both requests to reach the handler, got %d", *calls)
			}
		})
	}
}
