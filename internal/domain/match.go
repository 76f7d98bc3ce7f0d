package domain

// ModalityScore is the outcome of one similarity channel, percentage-scaled.
// Present=false means the channel could not be evaluated (missing input,
// failed fetch or failed embedding) and Value must be ignored: "no
// evidence" is distinct from "evidence of dissimilarity".
type ModalityScore struct {
	Value   float64
	Present bool
}

// Match is one scored candidate. OverallScore and the modality scores are
// percentages rounded to two decimals; if neither modality is present the
// overall score is 0.
type Match struct {
	ItemID       string
	OverallScore float64
	Text         ModalityScore
	Image        ModalityScore
	Description  string
	ImageURL     string
	Metadata     map[string]any
}
