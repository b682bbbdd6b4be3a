// Package serpapi enthält die Logik für die Interaktion mit der SerpAPI-Suche.
package serpapi

// SearchResponse repräsentiert die JSON-Antwort des Such-Endpunkts.
// Wir lesen neben den organischen Treffern auch Answer-Box und Knowledge-Graph,
// um bei leeren organischen Ergebnissen noch etwas Verwertbares zu haben.
type SearchResponse struct {
	Error          string          `json:"error"`
	OrganicResults []OrganicResult `json:"organic_results"`
	AnswerBox      *AnswerBox      `json:"answer_box"`
	KnowledgeGraph *KnowledgeGraph `json:"knowledge_graph"`
}

// OrganicResult repräsentiert einen organischen Treffer.
type OrganicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// AnswerBox repräsentiert den Answer-Box-Block der Antwort.
type AnswerBox struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Answer  string `json:"answer"`
	Snippet string `json:"snippet"`
}

// KnowledgeGraph repräsentiert den Knowledge-Panel-Block der Antwort.
type KnowledgeGraph struct {
	Title       string `json:"title"`
	Website     string `json:"website"`
	Description string `json:"description"`
}

// AccountResponse repräsentiert die Antwort des Account-Endpunkts (Probe).
type AccountResponse struct {
	AccountID string `json:"account_id"`
	Error     string `json:"error"`
}
