package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotator/internal/domain"
)

func TestStorage_SearchRanksByCosine(t *testing.T) {
	s := NewStorage()
	assert.Error(t, s.Init(0))
	require.NoError(t, s.Init(2))

	require.NoError(t, s.Upsert(
		[]domain.Entry{{ID: "a", Categories: "cat "}, {ID: "b", Categories: "dog "}, {ID: "c"}},
		[][]float64{{1, 0}, {0, 1}, {0.6, 0.8}},
	))
	res, err := s.Search([]float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "a", res[0].ID)
	assert.Equal(t, "cat ", res[0].Categories)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.Equal(t, "c", res[1].ID)
}

func TestStorage_UpsertReplacesAndValidates(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(2))
	assert.Error(t, s.Upsert([]domain.Entry{{ID: "a"}}, nil))
	assert.Error(t, s.Upsert([]domain.Entry{{ID: "a"}}, [][]float64{{1, 2, 3}}))

	require.NoError(t, s.Upsert([]domain.Entry{{ID: "a"}}, [][]float64{{1, 0}}))
	require.NoError(t, s.Upsert([]domain.Entry{{ID: "a", Categories: "new "}}, [][]float64{{0, 1}}))
	assert.Equal(t, 1, s.Len())

	res, err := s.Search([]float64{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "new ", res[0].Categories)

	require.NoError(t, s.Clear())
	assert.Zero(t, s.Len())
}
