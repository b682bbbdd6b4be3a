// Package relay verteilt Fortschritts-Events eines Recherche-Jobs an alle
// verbundenen WebSocket-Beobachter. Ein einzelner Publish-Kanal pro Prozess,
// Zustellung best-effort.
package relay

// ProgressEvent ist das Wire-Schema eines Fortschritts-Events. Percent ist
// innerhalb eines Jobs monoton steigend bis zum terminalen 100 bzw. einem
// Abbruch mit 0; die Zuordnung zum Job läuft über die JobID.
type ProgressEvent struct {
	JobID       string   `json:"job_id"`
	Percent     int      `json:"percent"`
	Msg         string   `json:"msg"`
	Query       *string  `json:"query"`
	FoundFields []string `json:"found_fields"`
	Mode        string   `json:"mode"`
	Error       bool     `json:"error,omitempty"`
}
