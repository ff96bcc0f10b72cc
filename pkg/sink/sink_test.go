package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-roulette/pkg/physics"
	"github.com/teslashibe/go-roulette/pkg/session"
)

type recorder struct {
	mu     sync.Mutex
	frames []uint64
	delay  time.Duration
}

func (r *recorder) Publish(c session.Cycle) {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, c.FrameIndex)
}

func (r *recorder) Frames() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.frames...)
}

func predicted(frame uint64, pocket int) session.Cycle {
	return session.Cycle{
		SessionID:  "s1",
		FrameIndex: frame,
		State:      session.Predicting,
		Prediction: &physics.Prediction{Pocket: pocket, Color: physics.Color(pocket), Confidence: 0.8},
	}
}

func TestAsync_NeverBlocksAndCountsDrops(t *testing.T) {
	inner := &recorder{delay: 20 * time.Millisecond}
	a := NewAsync(inner)

	start := time.Now()
	for i := uint64(0); i < 50; i++ {
		a.Publish(session.Cycle{FrameIndex: i})
	}
	assert.Less(t, time.Since(start), 20*time.Millisecond, "publish must not wait for the consumer")

	require.NoError(t, a.Close())

	stats := a.Stats()
	assert.Equal(t, uint64(50), stats.Published)
	assert.Greater(t, stats.Dropped, uint64(0))
	assert.Equal(t, stats.Published, stats.Delivered+stats.Dropped)

	frames := inner.Frames()
	require.NotEmpty(t, frames)
	assert.Equal(t, uint64(49), frames[len(frames)-1], "the latest cycle is always delivered")
}

func TestAsync_PublishAfterCloseIgnored(t *testing.T) {
	inner := &recorder{}
	a := NewAsync(inner)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	a.Publish(session.Cycle{FrameIndex: 1})
	assert.Empty(t, inner.Frames())
	assert.Equal(t, uint64(0), a.Stats().Published)
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, b}.Publish(session.Cycle{FrameIndex: 3})

	assert.Equal(t, []uint64{3}, a.Frames())
	assert.Equal(t, []uint64{3}, b.Frames())
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	l.Publish(session.Cycle{FrameIndex: 1})
	assert.Empty(t, buf.String(), "plain cycles log at debug")

	l.Publish(predicted(2, 17))
	assert.Contains(t, buf.String(), "pocket=17")
	assert.Contains(t, buf.String(), "color=black")
}

func TestWebSocket_Forwards(t *testing.T) {
	received := make(chan session.Cycle, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var c session.Cycle
			if err := conn.ReadJSON(&c); err != nil {
				return
			}
			received <- c
		}
	}))
	defer srv.Close()

	ws := NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), PredictionsOnly())
	defer ws.Close()

	ws.Publish(session.Cycle{FrameIndex: 1})
	ws.Publish(predicted(2, 32))

	select {
	case c := <-received:
		assert.Equal(t, uint64(2), c.FrameIndex)
		require.NotNil(t, c.Prediction)
		assert.Equal(t, 32, c.Prediction.Pocket)
		assert.Equal(t, session.Predicting, c.State)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestWebSocket_UnreachableDoesNotPanic(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/nowhere")
	ws.Publish(predicted(1, 0))
	ws.Publish(predicted(2, 0))
	assert.NoError(t, ws.Close())
}

func TestRedis_Key(t *testing.T) {
	r := &Redis{prefix: "roulette"}
	assert.Equal(t, "roulette:s1:counts", r.Key("s1", "counts"))

	r.prefix = ""
	assert.Equal(t, "s1:recent", r.Key("s1", "recent"))
}

// Runs only against a real server: REDIS_ADDR=localhost:6379 go test ./pkg/sink
func TestRedis_Publish(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	cfg := DefaultRedisConfig()
	cfg.Addr = addr
	cfg.Prefix = "roulette-test-" + time.Now().Format("150405.000")

	ctx := context.Background()
	r, err := NewRedis(ctx, cfg)
	require.NoError(t, err)
	defer r.Close()
	defer r.Client().Del(ctx, r.Key("s1", "counts"), r.Key("s1", "recent"), r.Key("latest"))

	r.Publish(predicted(1, 17))
	r.Publish(predicted(2, 17))
	r.Publish(predicted(3, 4))

	counts, err := r.Counts(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{17: 2, 4: 1}, counts)

	raw, err := r.Client().LIndex(ctx, r.Key("s1", "recent"), 0).Result()
	require.NoError(t, err)
	var latest physics.Prediction
	require.NoError(t, json.Unmarshal([]byte(raw), &latest))
	assert.Equal(t, 4, latest.Pocket)
}
