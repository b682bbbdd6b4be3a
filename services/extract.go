package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"prospect-hand/providers"
)

const (
	extractTopResults = 3
	minSnippetLen     = 15
	maxSnippetLen     = 150
	maxCombinedLen    = 600
	snippetSeparator  = " | "
)

// Sentinel-Präfixe, an denen nicht-informative Insights erkannt werden.
// Aufrufer unterscheiden informativ vs. Platzhalter über diese Phrasen,
// nicht über ein Seitenkanal-Flag.
const (
	noResultsPrefix = "No search results found for"
	noDetailsPrefix = "No detailed information available for"
	failedPrefix    = "Research failed:"
)

// Extract reduziert ein ResultSet auf einen begrenzten, lesbaren Insight-Text
// für das gegebene Feld. Gibt nie einen leeren String zurück und wirft nie
// einen Fehler; ohne verwertbare Snippets kommt ein feldspezifischer
// Sentinel-Satz zurück.
func Extract(rs *providers.ResultSet, field string) string {
	label := fieldLabel(field)
	if rs.Empty() {
		return fmt.Sprintf("%s %s", noResultsPrefix, label)
	}

	var accepted []string
	for i, result := range rs.Results {
		if i >= extractTopResults {
			break
		}
		snippet := strings.TrimSpace(result.Snippet)
		if len(snippet) < minSnippetLen {
			continue
		}
		snippet = truncate(snippet, maxSnippetLen)
		accepted = append(accepted, snippet)
	}

	if len(accepted) == 0 {
		return fmt.Sprintf("%s %s", noDetailsPrefix, label)
	}

	return truncate(strings.Join(accepted, snippetSeparator), maxCombinedLen)
}

// truncate kürzt s auf höchstens limit Bytes und hängt "..." an. Die
// Schnittstelle liegt immer auf einer Rune-Grenze, damit kein Mehrbyte-Zeichen
// zerteilt wird und das Ergebnis gültiges UTF-8 bleibt.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// FailurePlaceholder baut den Platzhalter-Insight für ein fehlgeschlagenes Feld.
func FailurePlaceholder(err error) string {
	return fmt.Sprintf("%s %v", failedPrefix, err)
}

// IsInformative meldet, ob ein Insight echte Information enthält und kein
// Sentinel- oder Fehler-Platzhalter ist.
func IsInformative(insight string) bool {
	return insight != "" &&
		!strings.HasPrefix(insight, noResultsPrefix) &&
		!strings.HasPrefix(insight, noDetailsPrefix) &&
		!strings.HasPrefix(insight, failedPrefix)
}

// fieldLabel macht aus einem Feldnamen eine lesbare Beschriftung.
func fieldLabel(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
