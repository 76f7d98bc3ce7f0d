package sdk

// HealthStatus is the GET /health response.
type HealthStatus struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	Repository   string `json:"repository"`
	ModelsLoaded bool   `json:"models_loaded"`
}

// MatchRequest is the POST /match JSON body. ImageURL is optional; the
// server fetches it with a bounded timeout.
type MatchRequest struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Similarity is the per-match score block. Nil modality scores mean the
// modality could not be evaluated, which is different from a zero score.
type Similarity struct {
	OverallScore    float64  `json:"overall_score"`
	TextSimilarity  *float64 `json:"text_similarity"`
	ImageSimilarity *float64 `json:"image_similarity"`
	HasText         bool     `json:"has_text"`
	HasImage        bool     `json:"has_image"`
}

// Match is one ranked candidate.
type Match struct {
	ItemID      string         `json:"item_id"`
	Similarity  Similarity     `json:"similarity"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	HasImage    bool           `json:"has_image"`
	ImageURL    *string        `json:"image_url"`
}

// MatchResponse is the POST /match response. Matches is ranked by overall
// score, truncated server-side; TotalItems counts candidates before
// truncation.
type MatchResponse struct {
	QueryType  string  `json:"query_type"`
	SearchedIn string  `json:"searched_in"`
	TotalItems int     `json:"total_items"`
	Message    string  `json:"message,omitempty"`
	Matches    []Match `json:"matches"`
}
