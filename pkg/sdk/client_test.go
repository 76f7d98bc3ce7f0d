package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/health" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","message":"Lost and Found matcher is running","repository":"connected","models_loaded":true}`))
	}))
	defer srv.Close()

	status, err := New(srv.URL).Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != "healthy" || status.Repository != "connected" || !status.ModelsLoaded {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/match" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}

		var req MatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Type != "lost" || req.Text != "black wallet" {
			t.Errorf("unexpected request body: %+v", req)
		}

		score := 91.4
		resp := MatchResponse{
			QueryType:  "lost",
			SearchedIn: "found_items",
			TotalItems: 1,
			Matches: []Match{{
				ItemID: "a",
				Similarity: Similarity{
					OverallScore:   91.4,
					TextSimilarity: &score,
					HasText:        true,
				},
				Description: "black wallet",
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	resp, err := New(srv.URL).Match(context.Background(), MatchRequest{Type: "lost", Text: "black wallet"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.SearchedIn != "found_items" || len(resp.Matches) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	m := resp.Matches[0]
	if m.Similarity.TextSimilarity == nil || *m.Similarity.TextSimilarity != 91.4 {
		t.Fatalf("text similarity = %v", m.Similarity.TextSimilarity)
	}
	if m.Similarity.ImageSimilarity != nil {
		t.Fatal("absent modality must decode as nil")
	}
}

func TestMatch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"text description is required"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Match(context.Background(), MatchRequest{Type: "lost"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Message != "text description is required" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestClient_SendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL, WithAPIKey("sk-test")).Health(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://example.com/")
	if c.baseURL != "http://example.com" {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
}
