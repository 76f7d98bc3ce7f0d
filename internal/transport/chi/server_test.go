package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lostfound-cloud/matcher/internal/domain"
	healthuc "github.com/lostfound-cloud/matcher/internal/usecase/health"
	matchuc "github.com/lostfound-cloud/matcher/internal/usecase/match"
)

type stubMatch struct {
	result   matchuc.Result
	err      error
	gotQuery domain.Query
}

func (s *stubMatch) Match(_ context.Context, q domain.Query) (matchuc.Result, error) {
	s.gotQuery = q
	if s.err != nil {
		return matchuc.Result{}, s.err
	}
	return s.result, nil
}

type stubHealth struct {
	report healthuc.Report
}

func (s *stubHealth) Check(_ context.Context) healthuc.Report {
	return s.report
}

type stubFetcher struct {
	data []byte
	err  error
	got  string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	s.got = url
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func newTestRouter(match *stubMatch, health *stubHealth, fetcher *stubFetcher) http.Handler {
	var f imageFetcher
	if fetcher != nil {
		f = fetcher
	}
	srv := NewServer(match, health, f, 10<<20, zap.NewNop())
	r := chi.NewRouter()
	srv.Register(r)
	return r
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/match", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth_Always200(t *testing.T) {
	health := &stubHealth{report: healthuc.Report{
		Status:       "degraded",
		Message:      "Lost and Found matcher is running",
		Repository:   healthuc.RepoDisconnected,
		ModelsLoaded: false,
	}}
	h := newTestRouter(&stubMatch{}, health, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when degraded", rec.Code)
	}
	var got healthDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != "degraded" || got.Repository != healthuc.RepoDisconnected || got.ModelsLoaded {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestMatch_BadType400(t *testing.T) {
	match := &stubMatch{err: domain.ErrInvalidQueryType}
	h := newTestRouter(match, &stubHealth{}, nil)

	rec := postJSON(t, h, `{"type":"maybe","text":"keys"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var got errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Error != domain.ErrInvalidQueryType.Error() {
		t.Fatalf("error = %q", got.Error)
	}
}

func TestMatch_MissingText400(t *testing.T) {
	match := &stubMatch{err: domain.ErrTextRequired}
	h := newTestRouter(match, &stubHealth{}, nil)

	rec := postJSON(t, h, `{"type":"lost","text":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMatch_MalformedBody400(t *testing.T) {
	h := newTestRouter(&stubMatch{}, &stubHealth{}, nil)

	rec := postJSON(t, h, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var got errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Error != domain.ErrMalformedBody.Error() {
		t.Fatalf("error = %q, want the malformed-body message", got.Error)
	}
}

func TestMatch_MalformedMultipart400(t *testing.T) {
	h := newTestRouter(&stubMatch{}, &stubHealth{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/match", strings.NewReader("not a multipart body"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var got errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Error != domain.ErrMalformedBody.Error() {
		t.Fatalf("error = %q, want the malformed-body message", got.Error)
	}
}

func TestMatch_RepositoryDown500(t *testing.T) {
	match := &stubMatch{err: fmt.Errorf("%w: dial tcp: refused", domain.ErrRepositoryUnavailable)}
	h := newTestRouter(match, &stubHealth{}, nil)

	rec := postJSON(t, h, `{"type":"lost","text":"keys"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestMatch_ProviderError502(t *testing.T) {
	match := &stubMatch{err: fmt.Errorf("%w: rate limited", domain.ErrEmbeddingProviderError)}
	h := newTestRouter(match, &stubHealth{}, nil)

	rec := postJSON(t, h, `{"type":"lost","text":"keys"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestMatch_ResponseShape(t *testing.T) {
	match := &stubMatch{result: matchuc.Result{
		QueryType:  domain.QueryTypeLost,
		Collection: domain.CollectionFoundItems,
		TotalItems: 2,
		Matches: []domain.Match{
			{
				ItemID:       "a",
				OverallScore: 91.4,
				Text:         domain.ModalityScore{Value: 91.4, Present: true},
				Description:  "black wallet",
				ImageURL:     "http://img/a.jpg",
				Metadata:     map[string]any{"location": "lobby"},
			},
			{
				ItemID:       "b",
				OverallScore: 12.5,
				Text:         domain.ModalityScore{Value: 12.5, Present: true},
				Description:  strings.Repeat("x", 150),
			},
		},
	}}
	h := newTestRouter(match, &stubHealth{}, nil)

	rec := postJSON(t, h, `{"type":"lost","text":"black wallet"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var got matchResponseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.QueryType != "lost" || got.SearchedIn != domain.CollectionFoundItems {
		t.Fatalf("envelope: %+v", got)
	}
	if got.TotalItems != 2 || len(got.Matches) != 2 {
		t.Fatalf("counts: total=%d matches=%d", got.TotalItems, len(got.Matches))
	}
	if got.Message != "" {
		t.Fatalf("message should be empty when items exist, got %q", got.Message)
	}

	first := got.Matches[0]
	if first.Similarity.OverallScore != 91.4 {
		t.Fatalf("overall = %v", first.Similarity.OverallScore)
	}
	if first.Similarity.TextSimilarity == nil || *first.Similarity.TextSimilarity != 91.4 {
		t.Fatalf("text_similarity = %v", first.Similarity.TextSimilarity)
	}
	if first.Similarity.ImageSimilarity != nil {
		t.Fatal("image_similarity must be null when absent")
	}
	if !first.HasImage || first.ImageURL == nil || *first.ImageURL != "http://img/a.jpg" {
		t.Fatalf("image fields: hasImage=%v url=%v", first.HasImage, first.ImageURL)
	}
	if first.Metadata["location"] != "lobby" {
		t.Fatalf("metadata = %v", first.Metadata)
	}

	second := got.Matches[1]
	if len(second.Description) != 103 || !strings.HasSuffix(second.Description, "...") {
		t.Fatalf("description not previewed: len=%d", len(second.Description))
	}
	if second.HasImage || second.ImageURL != nil {
		t.Fatal("item without image must have has_image=false and null image_url")
	}
}

func TestMatch_EmptyCollectionMessage(t *testing.T) {
	match := &stubMatch{result: matchuc.Result{
		QueryType:  domain.QueryTypeFound,
		Collection: domain.CollectionLostItems,
		TotalItems: 0,
		Matches:    []domain.Match{},
	}}
	h := newTestRouter(match, &stubHealth{}, nil)

	rec := postJSON(t, h, `{"type":"found","text":"keys"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "No items found in lost_items collection") {
		t.Fatalf("missing empty-collection message: %s", body)
	}
	if !strings.Contains(body, `"matches":[]`) {
		t.Fatalf("matches must serialize as [], not null: %s", body)
	}
}

func TestMatch_JSONImageURLFetched(t *testing.T) {
	match := &stubMatch{result: matchuc.Result{Matches: []domain.Match{}}}
	fetcher := &stubFetcher{data: []byte("normalized-jpeg")}
	h := newTestRouter(match, &stubHealth{}, fetcher)

	rec := postJSON(t, h, `{"type":"lost","text":"keys","imageUrl":"http://img/q.jpg"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if fetcher.got != "http://img/q.jpg" {
		t.Fatalf("fetched %q", fetcher.got)
	}
	if string(match.gotQuery.Image) != "normalized-jpeg" {
		t.Fatalf("query image = %q", match.gotQuery.Image)
	}
}

func TestMatch_BrokenImageURLDegrades(t *testing.T) {
	match := &stubMatch{result: matchuc.Result{Matches: []domain.Match{}}}
	fetcher := &stubFetcher{err: errors.New("404")}
	h := newTestRouter(match, &stubHealth{}, fetcher)

	rec := postJSON(t, h, `{"type":"lost","text":"keys","imageUrl":"http://img/broken.jpg"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("broken query image must not fail the request: %d", rec.Code)
	}
	if match.gotQuery.Image != nil {
		t.Fatal("query image must be empty after a failed fetch")
	}
	if match.gotQuery.Text != "keys" {
		t.Fatalf("text lost: %q", match.gotQuery.Text)
	}
}

func TestMatch_MultipartForm(t *testing.T) {
	match := &stubMatch{result: matchuc.Result{Matches: []domain.Match{}}}
	h := newTestRouter(match, &stubHealth{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("type", "found"); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("text", "silver ring"); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/match", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if match.gotQuery.Type != domain.QueryTypeFound || match.gotQuery.Text != "silver ring" {
		t.Fatalf("query = %+v", match.gotQuery)
	}
}

func TestMatch_MultipartUndecodableImageDegrades(t *testing.T) {
	match := &stubMatch{result: matchuc.Result{Matches: []domain.Match{}}}
	h := newTestRouter(match, &stubHealth{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("type", "lost"); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("text", "blue backpack"); err != nil {
		t.Fatal(err)
	}
	part, err := mw.CreateFormFile("image", "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("definitely not a jpeg")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/match", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("undecodable upload must not fail the request: %d", rec.Code)
	}
	if match.gotQuery.Image != nil {
		t.Fatal("query image must be dropped when the upload cannot be decoded")
	}
}
