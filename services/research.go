package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"prospect-hand/config"
	"prospect-hand/models"
	"prospect-hand/providers"
	"prospect-hand/relay"
)

// ReportArchiver lädt fertige Reports in ein externes Archiv hoch.
// Das Archiv ist optional und best-effort.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, companyID uint, content string) (string, error)
}

// ResearchResult ist das Ergebnis eines abgeschlossenen Recherche-Jobs.
type ResearchResult struct {
	SnippetID     uint              `json:"snippet_id"`
	CompanyID     uint              `json:"company_id"`
	CompanyName   string            `json:"company_name"`
	Insights      map[string]string `json:"insights"`
	SourceURLs    []string          `json:"source_urls"`
	QueriesIssued int               `json:"queries_issued"`
}

// ResearchService orchestriert den Recherche-Lauf für eine Person: Feld für
// Feld suchen, extrahieren, loggen, am Ende aggregieren und persistieren.
// Fortschritt geht als Events über den Broker an alle Beobachter.
type ResearchService struct {
	Config   *config.Config
	DB       *gorm.DB
	Store    *SnippetStore
	Adapter  *providers.Adapter
	Broker   *relay.Broker
	Logger   *zap.Logger
	Archiver ReportArchiver

	fields     []string
	fieldDelay time.Duration
}

// NewResearchService erstellt einen neuen ResearchService.
func NewResearchService(cfg *config.Config, db *gorm.DB, adapter *providers.Adapter, broker *relay.Broker, logger *zap.Logger) *ResearchService {
	return &ResearchService{
		Config:     cfg,
		DB:         db,
		Store:      NewSnippetStore(db, logger),
		Adapter:    adapter,
		Broker:     broker,
		Logger:     logger,
		fields:     cfg.Fields(),
		fieldDelay: time.Duration(cfg.FieldDelayMillis) * time.Millisecond,
	}
}

// Fields gibt die feste, geordnete Feldliste dieses Services zurück.
func (s *ResearchService) Fields() []string {
	return s.fields
}

// Research führt den kompletten Recherche-Lauf für die gegebene Person aus.
// Pro Firma entsteht höchstens ein ContextSnippet; existiert schon eins, wird
// ohne neue Suchanfragen das gecachte Ergebnis zurückgegeben.
func (s *ResearchService) Research(ctx context.Context, jobID string, personID uint) (*ResearchResult, error) {
	log := s.Logger.With(zap.String("job_id", jobID), zap.Uint("person_id", personID))

	// 1. Person und Firma auflösen. NotFound ist fatal: keine Writes,
	// terminales 0%-Event.
	var person models.Person
	if err := s.DB.First(&person, personID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("person %d not found", personID)
		}
		s.publishError(jobID, fmt.Sprintf("Research failed: %v", err))
		return nil, err
	}

	var company models.Company
	if err := s.DB.First(&company, person.CompanyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("company for person %d not found", personID)
		}
		s.publishError(jobID, fmt.Sprintf("Research failed: %v", err))
		return nil, err
	}

	log = log.With(zap.String("company", company.Name), zap.Uint("company_id", company.ID))
	log.Info("Starte Recherche-Lauf.")

	// 2. Idempotenz-Check: vorhandenes Snippet kurzschließen.
	existing, err := s.Store.ExistingForCompany(company.ID)
	if err != nil {
		s.publishError(jobID, fmt.Sprintf("Research failed: %v", err))
		return nil, err
	}
	if existing != nil {
		log.Info("Snippet existiert bereits, nutze gecachtes Ergebnis", zap.Uint("snippet_id", existing.ID))
		s.publish(jobID, 100, fmt.Sprintf("Using existing research for %s", company.Name), nil, nil, providers.ModeCached, false)
		return &ResearchResult{
			SnippetID:   existing.ID,
			CompanyID:   company.ID,
			CompanyName: company.Name,
			Insights:    existing.Insights(),
			SourceURLs:  existing.Sources(),
		}, nil
	}

	mode := providers.ModeSynthetic
	if s.Adapter.LiveConfigured() {
		mode = providers.ModeLive
	}

	startedAt := time.Now()
	insights := make(map[string]string, len(s.fields))
	var foundFields []string
	var urls []string
	seenURL := map[string]bool{}

	s.publish(jobID, 5, fmt.Sprintf("Starting deep research for %s", company.Name), nil, nil, mode, false)

	// 3. Feste, geordnete Feldliste strikt sequentiell abarbeiten.
	total := len(s.fields)
	for i, field := range s.fields {
		queries := GenerateQueries(company.Name, field)
		primary := queries[0]

		percent := 5 + int(float64(i+1)/float64(total)*80)
		s.publish(jobID, percent,
			fmt.Sprintf("Researching %s...", fieldLabel(field)),
			&primary, foundFields, mode, false)

		insight, links, err := s.researchField(company.Name, field, i+1, total, primary)
		if err != nil {
			// Fehler eines einzelnen Feldes brechen den Lauf nie ab.
			log.Warn("Feld-Recherche fehlgeschlagen, setze Platzhalter",
				zap.String("field", field), zap.Error(err))
			insights[field] = FailurePlaceholder(err)
		} else {
			insights[field] = insight
			foundFields = append(foundFields, field)
			for _, link := range links {
				if link != "" && !seenURL[link] {
					seenURL[link] = true
					urls = append(urls, link)
				}
			}
		}

		log.Debug("Feld abgeschlossen", zap.String("field", field), zap.Int("index", i+1), zap.Int("total", total))

		if i+1 < total {
			time.Sleep(s.fieldDelay)
		}
	}

	// 4. Aggregieren und transaktional persistieren.
	s.publish(jobID, 90, "Processing and saving results...", nil, foundFields, mode, false)

	payload, err := json.Marshal(insights)
	if err != nil {
		s.publishError(jobID, fmt.Sprintf("Research failed: %v", err))
		return nil, err
	}
	sourceURLs, err := json.Marshal(urls)
	if err != nil {
		s.publishError(jobID, fmt.Sprintf("Research failed: %v", err))
		return nil, err
	}

	snippet := &models.ContextSnippet{
		EntityType:  "company",
		EntityID:    company.ID,
		SnippetType: "deep_research",
		Content:     renderReport(company.Name, s.fields, insights, urls),
		Payload:     payload,
		SourceURLs:  sourceURLs,
	}
	if err := s.Store.CreateVerified(snippet); err != nil {
		log.Error("Persistieren des Snippets fehlgeschlagen", zap.Error(err))
		s.publishError(jobID, fmt.Sprintf("Research failed: %v", err))
		return nil, fmt.Errorf("persist snippet for company %d: %w", company.ID, err)
	}
	log.Info("Snippet gespeichert", zap.Uint("snippet_id", snippet.ID))

	// Logs aus dem Zeitfenster dieses Laufs nachträglich verknüpfen;
	// best-effort, ein Fehler hier ist für den Job nicht fatal.
	if attached, err := s.Store.ReattachOrphanLogs(snippet.ID, startedAt); err != nil {
		log.Warn("Verknüpfen der Such-Logs fehlgeschlagen", zap.Error(err))
	} else {
		log.Debug("Such-Logs verknüpft", zap.Int64("count", attached))
	}

	// Optionales Report-Archiv, ebenfalls best-effort.
	if s.Archiver != nil {
		if link, err := s.Archiver.ArchiveReport(ctx, company.ID, snippet.Content); err != nil {
			log.Warn("Report-Archivierung fehlgeschlagen", zap.Error(err))
		} else {
			log.Info("Report archiviert", zap.String("link", link))
		}
	}

	// 5. Terminales Event mit Befund-Zusammenfassung.
	informative := 0
	for _, insight := range insights {
		if IsInformative(insight) {
			informative++
		}
	}
	s.publish(jobID, 100,
		fmt.Sprintf("Research completed for %s: %d/%d fields with findings, %d sources", company.Name, informative, total, len(urls)),
		nil, foundFields, mode, false)

	log.Info("Recherche-Lauf abgeschlossen",
		zap.Int("informative_fields", informative),
		zap.Int("total_fields", total),
		zap.Int("source_urls", len(urls)))

	return &ResearchResult{
		SnippetID:     snippet.ID,
		CompanyID:     company.ID,
		CompanyName:   company.Name,
		Insights:      insights,
		SourceURLs:    urls,
		QueriesIssued: total,
	}, nil
}

// researchField bearbeitet genau ein Feld: Suche, Extraktion, Log-Zeile.
// Gibt den Insight und die ersten Quell-Links zurück.
func (s *ResearchService) researchField(companyName, field string, index, total int, query string) (string, []string, error) {
	rs, _ := s.Adapter.Search(query)
	insight := Extract(rs, field)

	// Log-Zeile für jede ausgeführte Query, unabhängig vom Ergebnis.
	topN := len(rs.Results)
	if topN > 5 {
		topN = 5
	}
	topResults, err := json.Marshal(rs.Results[:topN])
	if err != nil {
		return "", nil, err
	}
	entry := &models.SearchLog{
		Iteration:  fmt.Sprintf("%d/%d %s", index, total, field),
		Query:      query,
		TopResults: topResults,
	}
	if err := s.Store.CreateLog(entry); err != nil {
		return "", nil, fmt.Errorf("record search log: %w", err)
	}

	var links []string
	for i, result := range rs.Results {
		if i >= 2 {
			break
		}
		links = append(links, result.Link)
	}
	return insight, links, nil
}

// publish serialisiert ein Fortschritts-Event und legt es auf den Broker.
// Publish-Fehler werden geloggt und geschluckt, sie gefährden nie den Job.
func (s *ResearchService) publish(jobID string, percent int, msg string, query *string, foundFields []string, mode string, isError bool) {
	if foundFields == nil {
		foundFields = []string{}
	}
	event := relay.ProgressEvent{
		JobID:       jobID,
		Percent:     percent,
		Msg:         msg,
		Query:       query,
		FoundFields: foundFields,
		Mode:        mode,
		Error:       isError,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.Logger.Warn("Fortschritts-Event nicht serialisierbar", zap.Error(err))
		return
	}
	if err := s.Broker.Publish(payload); err != nil {
		s.Logger.Warn("Fortschritts-Event verworfen", zap.String("job_id", jobID), zap.Error(err))
	}
}

// publishError sendet das terminale 0%-Fehler-Event eines abgebrochenen Jobs.
func (s *ResearchService) publishError(jobID, msg string) {
	s.publish(jobID, 0, msg, nil, nil, "", true)
}

// renderReport baut den lesbaren Text-Report aus den Insights.
func renderReport(companyName string, fields []string, insights map[string]string, urls []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deep research report for %s\n", companyName)
	fmt.Fprintf(&b, "Generated at %s\n\n", time.Now().UTC().Format(time.RFC3339))
	for _, field := range fields {
		fmt.Fprintf(&b, "## %s\n%s\n\n", fieldLabel(field), insights[field])
	}
	if len(urls) > 0 {
		b.WriteString("Sources:\n")
		for _, url := range urls {
			fmt.Fprintf(&b, "- %s\n", url)
		}
	}
	return b.String()
}
