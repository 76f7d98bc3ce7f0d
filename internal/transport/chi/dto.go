package chi

import (
	"fmt"

	"github.com/lostfound-cloud/matcher/internal/domain"
	healthuc "github.com/lostfound-cloud/matcher/internal/usecase/health"
	matchuc "github.com/lostfound-cloud/matcher/internal/usecase/match"
)

// descriptionPreviewLen caps the description echoed back per match.
const descriptionPreviewLen = 100

type errorResponse struct {
	Error string `json:"error"`
}

// matchRequest is the JSON request body for POST /match.
type matchRequest struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
}

type healthDTO struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	Repository   string `json:"repository"`
	ModelsLoaded bool   `json:"models_loaded"`
}

// similarityDTO mirrors the per-match similarity block. The per-modality
// fields are null, not zero, when that modality was not evaluated.
type similarityDTO struct {
	OverallScore    float64  `json:"overall_score"`
	TextSimilarity  *float64 `json:"text_similarity"`
	ImageSimilarity *float64 `json:"image_similarity"`
	HasText         bool     `json:"has_text"`
	HasImage        bool     `json:"has_image"`
}

type matchDTO struct {
	ItemID      string         `json:"item_id"`
	Similarity  similarityDTO  `json:"similarity"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	HasImage    bool           `json:"has_image"`
	ImageURL    *string        `json:"image_url"`
}

type matchResponseDTO struct {
	QueryType  string     `json:"query_type"`
	SearchedIn string     `json:"searched_in"`
	TotalItems int        `json:"total_items"`
	Message    string     `json:"message,omitempty"`
	Matches    []matchDTO `json:"matches"`
}

func healthToDTO(r healthuc.Report) healthDTO {
	return healthDTO{
		Status:       r.Status,
		Message:      r.Message,
		Repository:   r.Repository,
		ModelsLoaded: r.ModelsLoaded,
	}
}

func matchResultToDTO(r matchuc.Result) matchResponseDTO {
	resp := matchResponseDTO{
		QueryType:  string(r.QueryType),
		SearchedIn: r.Collection,
		TotalItems: r.TotalItems,
		Matches:    make([]matchDTO, len(r.Matches)),
	}
	if r.TotalItems == 0 {
		resp.Message = fmt.Sprintf("No items found in %s collection", r.Collection)
	}
	for i, m := range r.Matches {
		resp.Matches[i] = matchToDTO(m)
	}
	return resp
}

func matchToDTO(m domain.Match) matchDTO {
	dto := matchDTO{
		ItemID: m.ItemID,
		Similarity: similarityDTO{
			OverallScore:    m.OverallScore,
			TextSimilarity:  modalityValue(m.Text),
			ImageSimilarity: modalityValue(m.Image),
			HasText:         m.Text.Present,
			HasImage:        m.Image.Present,
		},
		Description: previewDescription(m.Description),
		Metadata:    m.Metadata,
		HasImage:    m.ImageURL != "",
	}
	if m.ImageURL != "" {
		url := m.ImageURL
		dto.ImageURL = &url
	}
	return dto
}

func modalityValue(s domain.ModalityScore) *float64 {
	if !s.Present {
		return nil
	}
	v := s.Value
	return &v
}

func previewDescription(desc string) string {
	if len(desc) > descriptionPreviewLen {
		return desc[:descriptionPreviewLen] + "..."
	}
	return desc
}
