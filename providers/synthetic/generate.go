// Package synthetic erzeugt deterministische Mock-Suchergebnisse für den
// Betrieb ohne konfigurierte Live-Suche.
package synthetic

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"prospect-hand/providers"
)

// Generator klassifiziert Queries nach Schlüsselwörtern und liefert pro Query
// zwei plausible, schema-valide Ergebnisse. Gleiche Query, gleiches Ergebnis.
type Generator struct {
	Logger *zap.Logger
}

// NewGenerator erstellt einen neuen synthetischen Generator.
func NewGenerator(logger *zap.Logger) *Generator {
	return &Generator{Logger: logger}
}

// Name gibt den Namen des Providers zurück.
func (g *Generator) Name() string {
	return "synthetic"
}

// Search erzeugt Mock-Ergebnisse für die Query. Der Fehler ist immer nil;
// die Signatur folgt dem Provider-Interface.
func (g *Generator) Search(query string) (*providers.ResultSet, error) {
	company := CompanyFromQuery(query)
	class := classify(query)

	g.Logger.Debug("Erzeuge synthetische Ergebnisse",
		zap.String("company", company),
		zap.String("class", class))

	return &providers.ResultSet{
		Results: buildResults(class, company),
		Status:  providers.StatusOK,
	}, nil
}

// CompanyFromQuery extrahiert den Firmennamen aus dem Query-Text: bevorzugt
// den ersten Abschnitt in Anführungszeichen, sonst die ersten beiden Wörter.
func CompanyFromQuery(query string) string {
	if strings.Contains(query, `"`) {
		parts := strings.Split(query, `"`)
		if len(parts) >= 2 && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1])
		}
	}
	words := strings.Fields(query)
	switch {
	case len(words) >= 2:
		return words[0] + " " + words[1]
	case len(words) == 1:
		return words[0]
	default:
		return "Unknown Company"
	}
}

// classify ordnet die Query einer Inhaltsklasse zu.
func classify(query string) string {
	q := strings.ToLower(query)
	switch {
	case containsAny(q, "value", "proposition", "mission"):
		return "value_proposition"
	case containsAny(q, "product", "service"):
		return "products"
	case containsAny(q, "pricing", "price"):
		return "pricing"
	case containsAny(q, "target", "market"):
		return "market"
	case containsAny(q, "competitor", "competition"):
		return "competitors"
	case containsAny(q, "news", "recent"):
		return "news"
	case containsAny(q, "funding", "revenue", "financial"):
		return "funding"
	case containsAny(q, "team", "employee"):
		return "team"
	case containsAny(q, "technology", "tech", "stack"):
		return "technology"
	case containsAny(q, "business", "model"):
		return "business_model"
	default:
		return "generic"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// buildResults liefert zwei Ergebnisse für die gegebene Klasse.
func buildResults(class, company string) []providers.Result {
	host := strings.ToLower(strings.ReplaceAll(company, " ", ""))
	slug := strings.ToLower(strings.ReplaceAll(company, " ", "-"))

	switch class {
	case "value_proposition":
		return []providers.Result{
			{
				Title:   fmt.Sprintf("%s - Mission and Values", company),
				Link:    fmt.Sprintf("https://about.%s.com/", host),
				Snippet: fmt.Sprintf("%s's mission is to deliver innovative solutions that drive customer success and business transformation. We focus on creating value through cutting-edge technology, exceptional service delivery, and sustainable business practices.", company),
			},
			{
				Title:   fmt.Sprintf("%s Corporate Purpose and Vision", company),
				Link:    fmt.Sprintf("https://investors.%s.com/", host),
				Snippet: fmt.Sprintf("%s is committed to revolutionizing the industry through strategic innovation and customer-centric approaches. Core values include integrity, excellence, collaboration and continuous improvement.", company),
			},
		}
	case "products":
		return []providers.Result{
			{
				Title:   fmt.Sprintf("%s Products and Services Portfolio", company),
				Link:    fmt.Sprintf("https://www.%s.com/products", host),
				Snippet: fmt.Sprintf("%s offers a comprehensive suite of solutions including core platform services, enterprise integrations, analytics tools, mobile applications, API services and professional consulting. The product lineup is designed to scale with businesses of all sizes.", company),
			},
			{
				Title:   fmt.Sprintf("%s Solution Offerings", company),
				Link:    fmt.Sprintf("https://solutions.%s.com/", host),
				Snippet: fmt.Sprintf("Key offerings from %s include cloud-based platforms, data analytics solutions, automation tools, customer relationship management systems and specialized industry-specific applications with 24/7 support.", company),
			},
		}
	case "pricing":
		return []providers.Result{
			{
				Title:   fmt.Sprintf("%s Pricing Plans and Packages", company),
				Link:    fmt.Sprintf("https://www.%s.com/pricing", host),
				Snippet: fmt.Sprintf("%s offers flexible pricing starting from $29/month for basic plans, $99/month for professional features, and $299/month for enterprise solutions. Custom pricing is available for large organizations with volume discounts and dedicated support.", company),
			},
			{
				Title:   fmt.Sprintf("%s Cost Structure and Plans", company),
				Link:    fmt.Sprintf("https://billing.%s.com/", host),
				Snippet: fmt.Sprintf("Transparent pricing model with no hidden fees. %s provides pay-as-you-scale options, annual billing discounts up to 20%%, and free trial periods. Enterprise customers receive custom quotes.", company),
			},
		}
	case "market":
		return []providers.Result{
			{
				Title:   fmt.Sprintf("%s Target Market and Customer Segments", company),
				Link:    fmt.Sprintf("https://research.%s.com/market-analysis", host),
				Snippet: fmt.Sprintf("%s primarily serves mid-market and enterprise customers across technology, healthcare, finance and retail sectors. Key demographics include decision-makers aged 30-55, with North American and European markets representing 75%% of revenue.", company),
			},
			{
				Title:   fmt.Sprintf("%s Customer Base and Market Reach", company),
				Link:    fmt.Sprintf("https://blog.%s.com/customer-insights", host),
				Snippet: fmt.Sprintf("Serving over 10,000 active customers globally, %s targets companies with 100-5000 employees. Primary verticals include SaaS companies, professional services, e-commerce and growing startups.", company),
			},
		}
	case "competitors":
		return []providers.Result{
			{
				Title:   fmt.Sprintf("%s Competitive Landscape Analysis", company),
				Link:    fmt.Sprintf("https://industry.analysis.com/%s-competitors", slug),
				Snippet: fmt.Sprintf("%s competes with established players like Salesforce, Microsoft, Oracle and emerging startups in the space. Key differentiators include superior user experience, competitive pricing and faster implementation.", company),
			},
			{
				Title:   fmt.Sprintf("Market Position of %s", company),
				Link:    fmt.Sprintf("https://marketresearch.com/%s-vs-competition", slug),
				Snippet: fmt.Sprintf("In a crowded market, %s holds approximately 8%% market share and is growing 35%% year-over-year. Main competitive advantages are technical innovation, customer support quality and rapid feature development.", company),
			},
		}
	case "news":
		return []providers.Result{
			{
				Title:   fmt.Sprintf("Latest %s News and Updates", company),
				Link:    fmt.Sprintf("https://news.%s.com/", host),
				Snippet: fmt.Sprintf("%s recently announced a $25M Series B funding round, launched new AI-powered features, expanded to 3 new international markets and achieved SOC 2 Type II compliance. The company also hired a new CTO.", company),
			},
			{
				Title:   fmt.Sprintf("%s Recent Developments and Milestones", company),
				Link:    fmt.Sprintf("https://techcrunch.com/%s-funding", slug),
				Snippet: fmt.Sprintf("%s reported 150%% revenue growth in the last quarter, launched strategic partnerships with industry leaders, surpassed 1 million users and achieved positive cash flow.", company),
			},
		}
	case "funding":
		return []providers.Result{
			{
				Title:   fmt.Sprintf("%s Financial Performance and Funding", company),
				Link:    fmt.Sprintf("https://investors.%s.com/financials", host),
				Snippet: fmt.Sprintf("%s has raised $75M to date across Series A ($15M) and Series B ($25M) rounds, with $35M in additional growth capital. Annual recurring revenue reached $50M, growing 120%% year-over-year.", company),
			},
			{
				Title:   fmt.Sprintf("%s Valuation and Investment Details", company),
				Link:    fmt.Sprintf("https://crunchbase.com/organization/%s", slug),
				Snippet: fmt.Sprintf("Current valuation estimated at $300M post-Series B. %s maintains healthy financials with 85%% gross margins, $4M monthly recurring revenue and an 18-month runway.", company),
			},
		}
	case "team":
		return []providers.Result{
			{
				Title:   fmt.Sprintf("%s Team Size and Workforce", company),
				Link:    fmt.Sprintf("https://careers.%s.com/", host),
				Snippet: fmt.Sprintf("%s employs 250+ professionals across engineering (35%%), sales & marketing (25%%), customer success (20%%) and operations (20%%). Headquartered in San Francisco with a remote-first culture.", company),
			},
			{
				Title:   fmt.Sprintf("%s Company Culture and Hiring", company),
				Link:    fmt.Sprintf("https://linkedin.com/company/%s", slug),
				Snippet: fmt.Sprintf("Award-winning workplace culture at %s with a 4.8/5 Glassdoor rating, competitive compensation packages, equity participation and comprehensive benefits. Actively hiring across all departments.", company),
			},
		}
	case "technology":
		return []providers.Result{
			{
				Title:   fmt.Sprintf("%s Technology Stack and Architecture", company),
				Link:    fmt.Sprintf("https://engineering.%s.com/tech-stack", host),
				Snippet: fmt.Sprintf("%s leverages a modern cloud-native architecture built on React, Node.js, Python and PostgreSQL. Infrastructure runs on AWS with Kubernetes orchestration, Redis caching and a microservices design.", company),
			},
			{
				Title:   fmt.Sprintf("%s Technical Infrastructure and Innovation", company),
				Link:    fmt.Sprintf("https://dev.%s.com/engineering-blog", host),
				Snippet: fmt.Sprintf("Advanced technology platform featuring real-time data processing, machine learning pipelines, API-first architecture and enterprise-grade security. %s dedicates 40%% of engineering resources to innovation projects.", company),
			},
		}
	case "business_model":
		return []providers.Result{
			{
				Title:   fmt.Sprintf("%s Business Model and Strategy", company),
				Link:    fmt.Sprintf("https://about.%s.com/business-model", host),
				Snippet: fmt.Sprintf("%s operates a SaaS subscription model with recurring revenue streams from monthly and annual plans, professional services and marketplace commissions. Revenue diversification includes API monetization and enterprise consulting.", company),
			},
			{
				Title:   fmt.Sprintf("How %s Generates Revenue", company),
				Link:    fmt.Sprintf("https://strategy.%s.com/monetization", host),
				Snippet: fmt.Sprintf("Multi-tiered revenue model: 70%% subscription revenue, 20%% professional services, 10%% partnerships and integrations. %s focuses on a land-and-expand strategy with churn rates under 5%% annually.", company),
			},
		}
	default:
		return []providers.Result{
			{
				Title:   fmt.Sprintf("%s - Company Overview", company),
				Link:    fmt.Sprintf("https://www.%s.com/", host),
				Snippet: fmt.Sprintf("%s is a leading technology company specializing in innovative software solutions for modern businesses. The company serves thousands of customers worldwide with cutting-edge products and exceptional service.", company),
			},
			{
				Title:   fmt.Sprintf("%s Company Information", company),
				Link:    fmt.Sprintf("https://en.wikipedia.org/wiki/%s", strings.ReplaceAll(company, " ", "_")),
				Snippet: fmt.Sprintf("%s has established itself as a key player in the industry through strategic growth, customer focus and continuous innovation, combining technical expertise with deep market understanding.", company),
			},
		}
	}
}
