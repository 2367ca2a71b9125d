package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/chloe/internal/application/orchestrator"
	eventsmemory "github.com/aescanero/chloe/pkg/adapters/events/memory"
	"github.com/aescanero/chloe/pkg/domain"
	"github.com/aescanero/chloe/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type runsStub map[string]*domain.RunRecord

func (r runsStub) Get(_ context.Context, runID string) (*domain.RunRecord, error) {
	record, ok := r[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", orchestrator.ErrRunNotFound, runID)
	}
	return record, nil
}

func setup(t *testing.T, runs runsStub) (*httptest.Server, ports.EventBus) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	bus := eventsmemory.NewEventBus(logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/runs/:id/ws", NewHandler(runs, bus, nil, logger).HandleRunStream)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		_ = bus.Close()
	})
	return srv, bus
}

func dial(t *testing.T, srv *httptest.Server, runID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/runs/" + runID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func publish(t *testing.T, bus ports.EventBus, topic string, eventType domain.EventType, runID, node string) {
	t.Helper()
	require.NoError(t, bus.Publish(context.Background(), topic, domain.Event{
		ID:        fmt.Sprintf("%s-%s", eventType, node),
		Type:      eventType,
		RunID:     runID,
		NodeID:    node,
		Timestamp: time.Now(),
	}))
}

func TestStreamRunEvents(t *testing.T) {
	srv, bus := setup(t, runsStub{
		"r1": {ID: "r1", Status: domain.RunStatusRunning, Phase: "init"},
	})
	conn := dial(t, srv, "r1")

	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, MessageTypeSnapshot, snap.Type)
	assert.Equal(t, domain.RunStatusRunning, snap.Status)
	assert.Equal(t, "init", snap.Phase)

	// Events of other runs are filtered out
	publish(t, bus, ports.TopicNodeEvents, domain.EventTypeNodeStarted, "other", "fetch_profile")
	publish(t, bus, ports.TopicNodeEvents, domain.EventTypeNodeStarted, "r1", "fetch_posts")

	var event domain.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, domain.EventTypeNodeStarted, event.Type)
	assert.Equal(t, "r1", event.RunID)
	assert.Equal(t, "fetch_posts", event.NodeID)

	publish(t, bus, ports.TopicRunEvents, domain.EventTypeRunCompleted, "r1", "")
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, domain.EventTypeRunCompleted, event.Type)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStreamFinishedRun(t *testing.T) {
	srv, _ := setup(t, runsStub{
		"done": {ID: "done", Status: domain.RunStatusCompleted, Phase: "final"},
	})
	conn := dial(t, srv, "done")

	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, domain.RunStatusCompleted, snap.Status)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStreamUnknownRun(t *testing.T) {
	srv, _ := setup(t, runsStub{})

	resp, err := http.Get(srv.URL + "/runs/missing/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/runs/missing/ws"
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(runsStub{}, nil, []string{"https://app.example.com"}, zaptest.NewLogger(t))

	allowed := httptest.NewRequest(http.MethodGet, "/", nil)
	allowed.Header.Set("Origin", "https://app.example.com")
	assert.True(t, h.upgrader.CheckOrigin(allowed))

	denied := httptest.NewRequest(http.MethodGet, "/", nil)
	denied.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, h.upgrader.CheckOrigin(denied))
}
