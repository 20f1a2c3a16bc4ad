package qdrant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotator/internal/domain"
)

func TestStorage_RoundTrip(t *testing.T) {
	var created map[string]any
	var upserted struct {
		Points []struct {
			ID      string         `json:"id"`
			Vector  []float64      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/photos":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		case r.Method == http.MethodPut && r.URL.Path == "/collections/photos/points":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&upserted))
		case r.Method == http.MethodPost && r.URL.Path == "/collections/photos/points/search":
			_, _ = w.Write([]byte(`{"result": [{"score": 0.9, "payload": {"doc_id": "a.jpg", "categories": "tabby "}}]}`))
			return
		case r.Method == http.MethodDelete:
			http.NotFound(w, r)
			return
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"result": true}`))
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "photos"})
	require.NoError(t, s.Init(3))
	vectors := created["vectors"].(map[string]any)
	assert.Equal(t, float64(3), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])

	require.NoError(t, s.Upsert([]domain.Entry{{ID: "a.jpg", Categories: "tabby "}}, [][]float64{{1, 0, 0}}))
	require.Len(t, upserted.Points, 1)
	assert.Equal(t, PointID("a.jpg"), upserted.Points[0].ID)
	assert.Equal(t, "a.jpg", upserted.Points[0].Payload["doc_id"])
	assert.Error(t, s.Upsert([]domain.Entry{{ID: "b"}}, [][]float64{{1}}))

	res, err := s.Search([]float64{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, domain.Entry{ID: "a.jpg", Categories: "tabby "}, res[0].Entry)
	assert.InDelta(t, 0.9, res[0].Score, 1e-9)

	assert.NoError(t, s.Clear())
}

func TestStorage_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL})
	assert.Error(t, s.Init(2))
	_, err := s.Search([]float64{1}, 1)
	assert.Error(t, err)
	assert.Error(t, s.Clear())
}

func TestPointIDStable(t *testing.T) {
	assert.Equal(t, PointID("x"), PointID("x"))
	assert.NotEqual(t, PointID("x"), PointID("y"))
}
