package services

import (
	"fmt"
	"strings"
)

// queryTemplates enthält pro Recherche-Feld mehrere Query-Varianten,
// absteigend nach Spezifität. Ausgeführt wird nur die erste (spezifischste).
var queryTemplates = map[string][]string{
	"company_value_proposition": {
		`"%s" mission statement value proposition`,
		`"%s" what we do company purpose`,
		`%s mission vision values`,
	},
	"key_products_services": {
		`"%s" products services offerings`,
		`"%s" platform features capabilities`,
		`%s solutions portfolio`,
	},
	"pricing_model": {
		`"%s" pricing plans cost`,
		`"%s" subscription pricing model`,
		`%s how much price`,
	},
	"target_market": {
		`"%s" target market customers`,
		`"%s" customer base demographics`,
		`%s market segments audience`,
	},
	"key_competitors": {
		`"%s" competitors alternatives`,
		`"%s" vs competition`,
		`%s competitive landscape`,
	},
	"recent_news": {
		`"%s" news updates`,
		`"%s" latest announcements`,
		`%s recent developments funding`,
	},
	"company_funding": {
		`"%s" funding investment revenue`,
		`"%s" Series A B C funding`,
		`%s valuation financial`,
	},
	"team_size": {
		`"%s" employees team size`,
		`"%s" headcount workforce`,
		`%s how many employees`,
	},
	"technology_stack": {
		`"%s" technology stack architecture`,
		`"%s" engineering tech infrastructure`,
		`%s technical platform tools`,
	},
	"business_model": {
		`"%s" business model revenue`,
		`"%s" how make money monetization`,
		`%s pricing strategy model`,
	},
}

// GenerateQueries erzeugt die Kandidaten-Queries für (Firma, Feld). Für
// unbekannte Felder gibt es eine generische Variante, damit konfigurierbare
// Feldlisten nie leer ausgehen.
func GenerateQueries(companyName, field string) []string {
	templates, ok := queryTemplates[field]
	if !ok {
		return []string{fmt.Sprintf(`"%s" %s`, companyName, strings.ReplaceAll(field, "_", " "))}
	}
	queries := make([]string, 0, len(templates))
	for _, tpl := range templates {
		queries = append(queries, fmt.Sprintf(tpl, companyName))
	}
	return queries
}
