package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProgressServer(t *testing.T, m *Manager) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		m.Register(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialProgress(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitForCount(t *testing.T, m *Manager, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.Count() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("connection count never reached %d (got %d)", want, m.Count())
}

func publishEvent(t *testing.T, b *Broker, event ProgressEvent) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, b.Publish(payload))
}

func readEvent(t *testing.T, conn *websocket.Conn) ProgressEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event ProgressEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestManagerFansOutToAllObservers(t *testing.T) {
	broker := NewBroker(16, zap.NewNop())
	m := NewManager(broker, zap.NewNop())
	srv := newProgressServer(t, m)

	first := dialProgress(t, srv)
	defer first.Close()
	second := dialProgress(t, srv)
	defer second.Close()
	waitForCount(t, m, 2)

	publishEvent(t, broker, ProgressEvent{JobID: "job-1", Percent: 42, Msg: "Researching pricing model..."})

	for _, conn := range []*websocket.Conn{first, second} {
		event := readEvent(t, conn)
		assert.Equal(t, "job-1", event.JobID)
		assert.Equal(t, 42, event.Percent)
	}
}

func TestManagerRemovesDeadObserver(t *testing.T) {
	broker := NewBroker(16, zap.NewNop())
	m := NewManager(broker, zap.NewNop())
	srv := newProgressServer(t, m)

	dead := dialProgress(t, srv)
	alive := dialProgress(t, srv)
	defer alive.Close()
	waitForCount(t, m, 2)

	// Eine Verbindung stirbt; die verbleibende bekommt weiterhin Events.
	dead.Close()
	waitForCount(t, m, 1)

	publishEvent(t, broker, ProgressEvent{JobID: "job-2", Percent: 100, Msg: "Research completed"})

	event := readEvent(t, alive)
	assert.Equal(t, "job-2", event.JobID)
	assert.Equal(t, 100, event.Percent)
	assert.Equal(t, 1, m.Count())
}

func TestManagerIdleExitChecksRegistryAndFlagTogether(t *testing.T) {
	broker := NewBroker(16, zap.NewNop())
	m := NewManager(broker, zap.NewNop())

	m.mu.Lock()
	m.fanoutRunning = true
	m.conns[&websocket.Conn{}] = struct{}{}
	m.mu.Unlock()

	// Mit registrierter Verbindung bleibt der Task am Leben, das Flag steht.
	assert.False(t, m.exitIfIdle())
	m.mu.Lock()
	assert.True(t, m.fanoutRunning)
	m.mu.Unlock()

	// Erst der Leer-Zustand beendet den Task und setzt das Flag im selben
	// Schritt zurück.
	m.mu.Lock()
	m.conns = make(map[*websocket.Conn]struct{})
	m.mu.Unlock()
	assert.True(t, m.exitIfIdle())
	m.mu.Lock()
	assert.False(t, m.fanoutRunning)
	m.mu.Unlock()
}

func TestManagerDeliversToObserverRegisteredRightAfterLastDisconnect(t *testing.T) {
	broker := NewBroker(16, zap.NewNop())
	m := NewManager(broker, zap.NewNop())
	srv := newProgressServer(t, m)

	first := dialProgress(t, srv)
	waitForCount(t, m, 1)
	first.Close()
	waitForCount(t, m, 0)

	// Sofort wieder verbinden, während der Fan-out-Task womöglich gerade
	// seinen Leer-Check durchläuft.
	second := dialProgress(t, srv)
	defer second.Close()
	waitForCount(t, m, 1)

	publishEvent(t, broker, ProgressEvent{JobID: "job-4", Percent: 10, Msg: "Researching company overview..."})

	event := readEvent(t, second)
	assert.Equal(t, "job-4", event.JobID)
}

func TestManagerRestartsFanoutForNewObserver(t *testing.T) {
	broker := NewBroker(16, zap.NewNop())
	m := NewManager(broker, zap.NewNop())
	srv := newProgressServer(t, m)

	first := dialProgress(t, srv)
	waitForCount(t, m, 1)
	first.Close()
	waitForCount(t, m, 0)

	// Warten, bis der Fan-out-Task seinen Poll-Timeout gesehen hat und
	// beendet ist.
	time.Sleep(1200 * time.Millisecond)

	second := dialProgress(t, srv)
	defer second.Close()
	waitForCount(t, m, 1)

	publishEvent(t, broker, ProgressEvent{JobID: "job-3", Percent: 5, Msg: "Starting deep research"})

	event := readEvent(t, second)
	assert.Equal(t, "job-3", event.JobID)
}
