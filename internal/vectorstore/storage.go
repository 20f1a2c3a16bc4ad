package vectorstore

import "annotator/internal/domain"

// Storage persists vectors of annotated documents and supports similarity
// search.
type Storage interface {
	Init(dimension int) error
	Upsert(entries []domain.Entry, vectors [][]float64) error
	Search(vector []float64, topK int) ([]domain.SearchResult, error)
	Clear() error
}
