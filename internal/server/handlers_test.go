package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/nagomi-art/nagomi/internal/collection"
	"github.com/nagomi-art/nagomi/internal/config"
	"github.com/nagomi-art/nagomi/internal/encoder"
	"github.com/nagomi-art/nagomi/internal/engine"
	"github.com/nagomi-art/nagomi/internal/generate"
	"github.com/nagomi-art/nagomi/internal/keywordidx"
	"github.com/nagomi-art/nagomi/internal/models"
	"github.com/nagomi-art/nagomi/internal/session"
)

// memCollection serves a fixed ranked list for every query.
type memCollection struct {
	matches []*collection.Match
}

func (c *memCollection) Upsert(context.Context, []collection.Entry) error { return nil }

func (c *memCollection) Get(context.Context, []string) ([]collection.Entry, error) {
	return nil, nil
}

func (c *memCollection) Query(_ context.Context, _ []float32, k int) ([]*collection.Match, error) {
	if len(c.matches) > k {
		return c.matches[:k], nil
	}
	return c.matches, nil
}

func (c *memCollection) Delete(context.Context, []string) error { return nil }
func (c *memCollection) Count(context.Context) (int, error)     { return len(c.matches), nil }
func (c *memCollection) Close() error                           { return nil }

func newTestServer(t *testing.T, coll collection.Collection, withMetadata bool) *Server {
	t.Helper()
	gen := &generate.MockGenerator{
		Responses: map[string]string{
			"art therapist": "calm, warm, golden",
			"art critic":    "A quiet scene for a loud day.",
		},
	}
	eng := engine.New(gen, encoder.NewMockEncoder(8), coll)

	var meta *keywordidx.MetadataIndex
	if withMetadata {
		var err error
		meta, err = keywordidx.Open(filepath.Join(t.TempDir(), "meta.bleve"))
		if err != nil {
			t.Fatalf("open metadata index: %v", err)
		}
		t.Cleanup(func() { meta.Close() })
	}

	return NewServer(eng, session.NewStore(), coll, meta,
		&config.ServerConfig{Host: "127.0.0.1", Port: 0}, zap.NewNop())
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func testMatches(n int) []*collection.Match {
	out := make([]*collection.Match, n)
	for i := 0; i < n; i++ {
		out[i] = &collection.Match{
			ID:       fmt.Sprintf("/art/impressionism/monet_water-lilies-%d.jpg", i),
			Metadata: models.Metadata{Author: "Monet", Title: fmt.Sprintf("Water lilies %d", i), Movement: "Impressionism"},
			Distance: float64(i) * 0.05,
		}
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &memCollection{}, false)
	rr := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHandleCreateSession(t *testing.T) {
	srv := newTestServer(t, &memCollection{}, false)
	rr := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/sessions", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["session_id"] == "" {
		t.Error("missing session_id")
	}
}

func TestHandleRecommend(t *testing.T) {
	srv := newTestServer(t, &memCollection{matches: testMatches(5)}, false)
	router := srv.Router()

	t.Run("missing mood rejected", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/v1/recommend", models.RecommendRequest{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rr.Code)
		}
	})

	t.Run("unknown session rejected", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/v1/recommend",
			models.RecommendRequest{Mood: "tired", SessionID: "nope"})
		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d", rr.Code)
		}
	})

	t.Run("session excludes shown artworks across calls", func(t *testing.T) {
		first := doJSON(t, router, http.MethodPost, "/api/v1/recommend",
			models.RecommendRequest{Mood: "tired"})
		if first.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", first.Code, first.Body.String())
		}
		var resp1 models.RecommendResponse
		if err := json.Unmarshal(first.Body.Bytes(), &resp1); err != nil {
			t.Fatal(err)
		}
		if resp1.Recommendation == nil || resp1.SessionID == "" {
			t.Fatalf("incomplete response: %s", first.Body.String())
		}

		second := doJSON(t, router, http.MethodPost, "/api/v1/recommend",
			models.RecommendRequest{Mood: "tired", SessionID: resp1.SessionID})
		if second.Code != http.StatusOK {
			t.Fatalf("status = %d", second.Code)
		}
		var resp2 models.RecommendResponse
		if err := json.Unmarshal(second.Body.Bytes(), &resp2); err != nil {
			t.Fatal(err)
		}
		if resp2.Recommendation == nil {
			t.Fatal("expected a second recommendation")
		}
		if resp2.Path == resp1.Path {
			t.Errorf("same artwork %q shown twice in one session", resp2.Path)
		}
	})

	t.Run("exhausted session returns empty result", func(t *testing.T) {
		small := newTestServer(t, &memCollection{matches: testMatches(1)}, false)
		r := small.Router()
		first := doJSON(t, r, http.MethodPost, "/api/v1/recommend",
			models.RecommendRequest{Mood: "tired"})
		var resp1 models.RecommendResponse
		if err := json.Unmarshal(first.Body.Bytes(), &resp1); err != nil {
			t.Fatal(err)
		}
		second := doJSON(t, r, http.MethodPost, "/api/v1/recommend",
			models.RecommendRequest{Mood: "tired", SessionID: resp1.SessionID})
		if second.Code != http.StatusOK {
			t.Fatalf("status = %d", second.Code)
		}
		var resp2 models.RecommendResponse
		if err := json.Unmarshal(second.Body.Bytes(), &resp2); err != nil {
			t.Fatal(err)
		}
		if resp2.Recommendation != nil {
			t.Errorf("expected no result, got %q", resp2.Path)
		}
	})
}

func TestHandleArtworkSearch(t *testing.T) {
	t.Run("disabled without index", func(t *testing.T) {
		srv := newTestServer(t, &memCollection{}, false)
		rr := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/artworks/search?q=monet", nil)
		if rr.Code != http.StatusNotImplemented {
			t.Errorf("status = %d", rr.Code)
		}
	})

	t.Run("finds indexed artwork", func(t *testing.T) {
		srv := newTestServer(t, &memCollection{}, true)
		art := &models.Artwork{
			Path: "/art/impressionism/monet_water-lilies-1906.jpg",
			Metadata: models.Metadata{
				Author: "Claude Monet", Title: "Water lilies",
				Year: "1906", Movement: "Impressionism",
			},
		}
		if err := srv.metadata.Index(context.Background(), art); err != nil {
			t.Fatalf("index: %v", err)
		}
		rr := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/artworks/search?q=monet", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
		}
		var resp struct {
			Hits []keywordidx.Hit `json:"hits"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Hits) != 1 || resp.Hits[0].Path != art.Path {
			t.Errorf("hits = %+v", resp.Hits)
		}
	})

	t.Run("missing query rejected", func(t *testing.T) {
		srv := newTestServer(t, &memCollection{}, true)
		rr := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/artworks/search", nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rr.Code)
		}
	})
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, &memCollection{matches: testMatches(3)}, false)
	rr := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["artworks"].(float64) != 3 {
		t.Errorf("artworks = %v, want 3", resp["artworks"])
	}
}
