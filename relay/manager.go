package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pollTimeout  = 1 * time.Second
	writeTimeout = 10 * time.Second
	// Kurze Pause nach jedem Broadcast, damit der Fan-out-Task nicht busy-waitet.
	broadcastYield = 100 * time.Millisecond
)

// Manager hält die Registry aller lebenden Beobachter-Verbindungen und
// betreibt höchstens einen Fan-out-Task pro Prozess. Der Task startet lazy
// mit der ersten Verbindung und wird von der nächsten neu gestartet, falls
// er beendet wurde.
type Manager struct {
	Broker *Broker
	Logger *zap.Logger

	mu            sync.Mutex
	conns         map[*websocket.Conn]struct{}
	fanoutRunning bool
}

// NewManager erstellt einen Manager für den gegebenen Broker.
func NewManager(broker *Broker, logger *zap.Logger) *Manager {
	return &Manager{
		Broker: broker,
		Logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// Register nimmt eine bereits ge-upgradete Verbindung in die Registry auf und
// stellt sicher, dass genau ein Fan-out-Task läuft.
func (m *Manager) Register(conn *websocket.Conn) {
	m.mu.Lock()
	m.conns[conn] = struct{}{}
	total := len(m.conns)
	if !m.fanoutRunning {
		m.fanoutRunning = true
		go m.fanoutLoop()
	}
	m.mu.Unlock()

	m.Logger.Info("Beobachter verbunden", zap.Int("total_connections", total))

	// Eingehende Frames werden nur konsumiert, damit Close-Frames und Pings
	// verarbeitet werden; der Kanal ist push-only.
	go m.drain(conn)
}

// Unregister entfernt eine Verbindung aus der Registry und schließt sie.
func (m *Manager) Unregister(conn *websocket.Conn) {
	m.mu.Lock()
	_, known := m.conns[conn]
	delete(m.conns, conn)
	total := len(m.conns)
	m.mu.Unlock()

	conn.Close()
	if known {
		m.Logger.Info("Beobachter getrennt", zap.Int("total_connections", total))
	}
}

// Count gibt die Anzahl der registrierten Verbindungen zurück.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// drain liest eingehende Frames, bis die Verbindung stirbt.
func (m *Manager) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			m.Unregister(conn)
			return
		}
	}
}

// fanoutLoop pollt den Broker und verteilt jedes Event an alle registrierten
// Verbindungen. Der Loop endet, sobald keine Beobachter mehr verbunden sind;
// die nächste neue Verbindung startet ihn wieder.
func (m *Manager) fanoutLoop() {
	m.Logger.Info("Fan-out-Task gestartet")

	for {
		payload, ok := m.Broker.Poll(pollTimeout)
		if !ok {
			if m.exitIfIdle() {
				m.Logger.Info("Fan-out-Task beendet")
				return
			}
			continue
		}

		var event ProgressEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			m.Logger.Error("Fortschritts-Event nicht parsebar", zap.Error(err))
			continue
		}

		m.broadcast(&event)
		time.Sleep(broadcastYield)
	}
}

// exitIfIdle prüft Leer-Zustand und Flag-Reset unter demselben Lock. Eine
// Verbindung, die sich zwischen den beiden Schritten registrieren würde,
// hält den Task am Leben oder findet das Flag bereits zurückgesetzt vor.
func (m *Manager) exitIfIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.conns) > 0 {
		return false
	}
	m.fanoutRunning = false
	return true
}

// broadcast stellt ein Event an jede Verbindung unabhängig zu. Fehlgeschlagene
// Verbindungen werden gesammelt und erst nach dem kompletten Durchlauf
// entfernt, damit das aktive Set nicht während der Iteration mutiert wird.
func (m *Manager) broadcast(event *ProgressEvent) {
	m.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(m.conns))
	for conn := range m.conns {
		targets = append(targets, conn)
	}
	m.mu.Unlock()

	var failed []*websocket.Conn
	for _, conn := range targets {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(event); err != nil {
			m.Logger.Warn("Zustellung an Beobachter fehlgeschlagen", zap.Error(err))
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		m.Unregister(conn)
	}
}
