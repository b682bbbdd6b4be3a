package providers

// Status kennzeichnet, ob ein ResultSet aus einer erreichbaren Quelle stammt.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
)

// Result ist ein einzelnes, normalisiertes Suchergebnis.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// ResultSet ist das einheitliche Ergebnis-Schema aller Such-Provider,
// unabhängig davon, ob die Ergebnisse live oder synthetisch erzeugt wurden.
type ResultSet struct {
	Results []Result `json:"results"`
	Status  Status   `json:"status"`
}

// Empty meldet, ob das Set keine verwertbaren Ergebnisse enthält.
func (rs *ResultSet) Empty() bool {
	return rs == nil || len(rs.Results) == 0
}

// Provider ist das Interface, das jeder Such-Provider implementieren muss.
type Provider interface {
	// Search führt eine Suche für die gegebene Query durch und gibt ein
	// normalisiertes ResultSet zurück.
	Search(query string) (*ResultSet, error)

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "serpapi").
	Name() string
}
