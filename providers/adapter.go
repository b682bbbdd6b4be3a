package providers

import "go.uber.org/zap"

// Mode-Tags, die auf Fortschritts-Events ausgewiesen werden.
const (
	ModeLive      = "live"
	ModeSynthetic = "synthetic"
	ModeCached    = "cached"
)

// Adapter kapselt die zweistufige Such-Strategie: ein optionaler Live-Provider
// plus ein Fallback-Generator. Die Strategie wird einmal beim Start aufgelöst
// und als Capability-Objekt injiziert; der Adapter wirft nie einen Fehler über
// seine Grenze.
type Adapter struct {
	live     Provider
	fallback Provider
	Logger   *zap.Logger
}

// NewAdapter erstellt einen Adapter. live darf nil sein (rein synthetischer
// Betrieb); fallback muss gesetzt sein.
func NewAdapter(live, fallback Provider, logger *zap.Logger) *Adapter {
	return &Adapter{live: live, fallback: fallback, Logger: logger}
}

// LiveConfigured meldet, ob ein Live-Provider freigeschaltet ist.
func (a *Adapter) LiveConfigured() bool {
	return a.live != nil
}

// Search führt eine Suche aus und gibt das ResultSet samt benutztem Modus
// zurück. Live-Fehler und leere Live-Ergebnisse fallen pro Aufruf auf den
// synthetischen Pfad zurück.
func (a *Adapter) Search(query string) (*ResultSet, string) {
	if a.live != nil {
		rs, err := a.live.Search(query)
		if err != nil {
			a.Logger.Warn("Live-Suche fehlgeschlagen, falle auf synthetische Ergebnisse zurück",
				zap.String("provider", a.live.Name()),
				zap.String("query", query),
				zap.Error(err))
		} else if !rs.Empty() {
			return rs, ModeLive
		} else {
			a.Logger.Debug("Live-Suche ohne Treffer, nutze synthetische Ergebnisse",
				zap.String("query", query))
		}
	}

	rs, err := a.fallback.Search(query)
	if err != nil {
		// Der Generator liefert nie einen Fehler; falls doch, bleibt der
		// Vertrag erhalten: leeres Set statt Exception.
		a.Logger.Error("Fallback-Generator fehlgeschlagen", zap.Error(err))
		return &ResultSet{Status: StatusUnavailable}, ModeSynthetic
	}
	return rs, ModeSynthetic
}
