package ratelimit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestLimiterNthAllowedNextThrottled(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			l := New(store, DefaultPolicies())
			ctx := context.Background()

			for i := 1; i <= 5; i++ {
				res, err := l.Check(ctx, ActionRegister, "10.0.0.1")
				require.NoError(t, err)
				assert.True(t, res.Allowed, "request %d", i)
				assert.Equal(t, int64(5-i), res.Remaining)
			}

			res, err := l.Check(ctx, ActionRegister, "10.0.0.1")
			require.NoError(t, err)
			assert.False(t, res.Allowed)
			assert.Equal(t, 15*time.Minute, res.RetryAfter)

			// Other clients and other actions have their own budgets.
			res, err = l.Check(ctx, ActionRegister, "10.0.0.2")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			res, err = l.Check(ctx, ActionLogin, "10.0.0.1")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
		})
	}
}

func TestRedisStoreWindowExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	l := New(store, Policies{"x": {Points: 1, Window: time.Minute}})
	ctx := context.Background()

	res, err := l.Check(ctx, "x", "ip")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = l.Check(ctx, "x", "ip")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	mr.FastForward(time.Minute + time.Second)

	res, err = l.Check(ctx, "x", "ip")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestUnknownActionIsAnError(t *testing.T) {
	l := New(NewMemoryStore(), nil)
	_, err := l.Check(context.Background(), "nope", "ip")
	assert.Error(t, err)
}

func TestMergePolicies(t *testing.T) {
	merged, err := DefaultPolicies().Merge([]byte(`
actions:
  register: {points: 2, window_seconds: 60}
  export: {points: 1, window_seconds: 3600}
`))
	require.NoError(t, err)
	assert.Equal(t, Policy{Points: 2, Window: time.Minute}, merged[ActionRegister])
	assert.Equal(t, Policy{Points: 1, Window: time.Hour}, merged["export"])
	assert.Equal(t, DefaultPolicies()[ActionWebhook], merged[ActionWebhook])

	_, err = DefaultPolicies().Merge([]byte(`actions: {register: {points: 0, window_seconds: 1}}`))
	assert.Error(t, err)
}

func TestLoadPoliciesWithoutFileUsesDefaults(t *testing.T) {
	p, err := LoadPolicies("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicies(), p)

	_, err = LoadPolicies("/does/not/exist.yml")
	assert.Error(t, err)
}

func TestClientKey(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(ClientKey(c)) })

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"}, "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"peer fallback", nil, "0.0.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(body))
		})
	}
}

func TestMiddlewareReturns429WithRetryAfter(t *testing.T) {
	l := New(NewMemoryStore(), Policies{ActionContact: {Points: 3, Window: time.Hour}})
	app := fiber.New()
	app.Post("/contact", Middleware(l, ActionContact, zap.NewNop()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	send := func() *http.Response {
		req := httptest.NewRequest("POST", "/contact", nil)
		req.Header.Set("X-Forwarded-For", "192.0.2.1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	for i := 0; i < 3; i++ {
		resp := send()
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		assert.Equal(t, "3", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(2-i), resp.Header.Get("X-RateLimit-Remaining"))
	}
	throttled := send()
	assert.Equal(t, fiber.StatusTooManyRequests, throttled.StatusCode)
	assert.Equal(t, "3600", throttled.Header.Get("Retry-After"))
	assert.Equal(t, "0", throttled.Header.Get("X-RateLimit-Remaining"))
}

func TestPolicyLookup(t *testing.T) {
	l := New(NewMemoryStore(), nil)

	p, ok := l.Policy(ActionSession)
	require.True(t, ok)
	assert.Equal(t, Policy{Points: 30, Window: time.Minute}, p)

	_, ok = l.Policy("export")
	assert.False(t, ok)
}
