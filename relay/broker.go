package relay

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Broker ist der prozessweite Publish-Kanal für serialisierte Fortschritts-
// Events. Beliebig viele Worker publizieren, genau ein Fan-out-Task pollt.
type Broker struct {
	ch     chan []byte
	Logger *zap.Logger
}

// NewBroker erstellt einen Broker mit der gegebenen Puffergröße.
func NewBroker(size int, logger *zap.Logger) *Broker {
	if size <= 0 {
		size = 256
	}
	return &Broker{ch: make(chan []byte, size), Logger: logger}
}

// Publish legt ein serialisiertes Event auf den Kanal. Blockiert nie: bei
// vollem Puffer kommt ein Fehler zurück, den der Aufrufer loggt und schluckt.
func (b *Broker) Publish(payload []byte) error {
	select {
	case b.ch <- payload:
		return nil
	default:
		return fmt.Errorf("progress channel full, event dropped")
	}
}

// Poll wartet höchstens timeout auf das nächste Event. Das zweite
// Rückgabe-Flag ist false, wenn der Timeout zuschlug.
func (b *Broker) Poll(timeout time.Duration) ([]byte, bool) {
	select {
	case payload := <-b.ch:
		return payload, true
	case <-time.After(timeout):
		return nil, false
	}
}
