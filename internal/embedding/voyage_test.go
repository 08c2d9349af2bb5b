package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbedBatchRestoresOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// reply out of order
		w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	s, err := New("key", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors = %v", vecs)
	}

	bad, _ := New("wrong", srv.URL)
	if _, err := bad.Embed(context.Background(), "a"); err == nil {
		t.Error("expected status error")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		a, b []float64
		want float64
	}{
		{[]float64{1, 0}, []float64{1, 0}, 1},
		{[]float64{1, 0}, []float64{0, 1}, 0},
		{[]float64{1, 0}, []float64{-1, 0}, -1},
		{[]float64{1}, []float64{1, 0}, 0},
		{[]float64{0, 0}, []float64{1, 0}, 0},
	}
	for _, tt := range tests {
		if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRank(t *testing.T) {
	candidates := map[string][]float64{
		"same":     {1, 0},
		"close":    {0.9, 0.1},
		"opposite": {-1, 0},
		"twin":     {1, 0},
	}
	got := Rank([]float64{1, 0}, candidates, 3)
	if len(got) != 3 {
		t.Fatalf("got %d matches", len(got))
	}
	if got[0].ID != "same" || got[1].ID != "twin" || got[2].ID != "close" {
		t.Errorf("order = %v", got)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New("  ", ""); err == nil || err.Error() != "voyage api key is required" {
		t.Errorf("err = %v", err)
	}
	if _, err := New("key", ""); err != nil {
		t.Errorf("New: %v", err)
	}
}
