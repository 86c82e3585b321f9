package s3archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/internal/pkg/config"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 2, 3, 23, 59, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "webhooks/2026/02/03/evt_1.json", ObjectKey("evt_1", at))
}

func TestArchiveWebhookPutsObject(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodPut {
			path = r.URL.Path
			body, _ = io.ReadAll(r.Body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := New(context.Background(), config.Archive{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		Bucket:          "billing",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		PathStyle:       true,
	}, zap.NewNop())
	require.NoError(t, err)

	at := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, a.ArchiveWebhook(context.Background(), "evt_9", at, []byte(`{"id":"evt_9"}`)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/billing/webhooks/2026/02/03/evt_9.json", path)
	assert.Equal(t, `{"id":"evt_9"}`, string(body))
}

func TestNewDisabled(t *testing.T) {
	_, err := New(context.Background(), config.Archive{}, zap.NewNop())
	assert.Error(t, err)
}
