package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"prospect-hand/config"
	"prospect-hand/providers"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Fetcher implementiert das Provider-Interface für SerpAPI.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen SerpAPI-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "serpapi"
}

// Probe prüft beim Start einmalig, ob der API-Key gültig ist. Nur ein
// bestandener Probe schaltet den Live-Pfad frei.
func (f *Fetcher) Probe(ctx context.Context) error {
	if f.Config.SerpAPIKey == "" {
		return fmt.Errorf("serpapi key ist nicht konfiguriert")
	}

	probeURL := fmt.Sprintf("%s/account.json?api_key=%s", f.Config.SerpAPIBaseURL, url.QueryEscape(f.Config.SerpAPIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("account probe failed: status %d", resp.StatusCode)
	}

	var account AccountResponse
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return err
	}
	if account.Error != "" {
		return fmt.Errorf("account probe rejected: %s", account.Error)
	}

	f.Logger.Info("SerpAPI-Probe bestanden", zap.String("account_id", account.AccountID))
	return nil
}

// Search führt eine Live-Suche aus. Feste Request-Form: Engine, Sprache,
// Region und Trefferanzahl kommen aus der Konfiguration.
func (f *Fetcher) Search(query string) (*providers.ResultSet, error) {
	log := f.Logger.With(zap.String("query", query))
	log.Debug("Starte SerpAPI-Suche.")

	searchURL := f.buildSearchURL(query)
	resp, err := httpClient.Get(searchURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi request failed: status %d", resp.StatusCode)
	}

	var sr SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}
	if sr.Error != "" {
		// Expliziter Provider-Fehler: erst degradierte Extraktion versuchen.
		log.Warn("SerpAPI meldet Fehler, versuche degradierte Extraktion", zap.String("provider_error", sr.Error))
		if degraded := degradedResults(&sr); len(degraded) > 0 {
			return &providers.ResultSet{Results: degraded, Status: providers.StatusOK}, nil
		}
		return nil, fmt.Errorf("serpapi error: %s", sr.Error)
	}

	results := make([]providers.Result, 0, len(sr.OrganicResults))
	for _, or := range sr.OrganicResults {
		results = append(results, providers.Result{Title: or.Title, Link: or.Link, Snippet: or.Snippet})
	}

	if len(results) == 0 {
		// Keine organischen Treffer: Answer-Box / Knowledge-Panel auswerten,
		// bevor wir ein leeres Set zurückgeben.
		log.Debug("Keine organischen Treffer, werte Auxiliary-Blöcke aus.")
		results = degradedResults(&sr)
	}

	log.Debug("SerpAPI-Suche abgeschlossen", zap.Int("results", len(results)))
	return &providers.ResultSet{Results: results, Status: providers.StatusOK}, nil
}

// buildSearchURL baut die Such-URL mit fester Request-Form.
func (f *Fetcher) buildSearchURL(query string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", f.Config.SerpAPIEngine)
	params.Set("api_key", f.Config.SerpAPIKey)
	params.Set("num", fmt.Sprintf("%d", f.Config.SerpAPINum))
	params.Set("gl", f.Config.SerpAPIRegion)
	params.Set("hl", f.Config.SerpAPILang)
	return fmt.Sprintf("%s/search.json?%s", f.Config.SerpAPIBaseURL, params.Encode())
}

// degradedResults synthetisiert ein bis zwei Ergebnisse aus Answer-Box und
// Knowledge-Panel, falls vorhanden.
func degradedResults(sr *SearchResponse) []providers.Result {
	var results []providers.Result

	if ab := sr.AnswerBox; ab != nil {
		snippet := ab.Snippet
		if snippet == "" {
			snippet = ab.Answer
		}
		if snippet != "" {
			results = append(results, providers.Result{Title: ab.Title, Link: ab.Link, Snippet: snippet})
		}
	}

	if kg := sr.KnowledgeGraph; kg != nil && kg.Description != "" {
		results = append(results, providers.Result{Title: kg.Title, Link: kg.Website, Snippet: kg.Description})
	}

	return results
}
