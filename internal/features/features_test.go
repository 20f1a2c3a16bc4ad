package features

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotator/internal/domain"
)

func TestTermString(t *testing.T) {
	preds := []domain.Prediction{
		{Label: "tabby", Confidence: 0.91},
		{Label: "tiger_cat", Confidence: 0.05},
		{Label: "none", Confidence: 0},
	}
	got := TermString(preds)

	assert.Equal(t, 10, strings.Count(got, "tabby "))
	assert.Equal(t, 1, strings.Count(got, "tiger_cat "))
	assert.NotContains(t, got, "none")
	assert.True(t, strings.HasSuffix(got, " "))
}

func TestMaxNormalize(t *testing.T) {
	got, err := MaxNormalize([]float64{1, 2, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.5, 1}, got)

	_, err = MaxNormalize([]float64{0, 0})
	assert.ErrorIs(t, err, ErrDegenerateVector)
	_, err = MaxNormalize(nil)
	assert.ErrorIs(t, err, ErrDegenerateVector)
}

func TestMinMaxNormalize(t *testing.T) {
	got, err := MinMaxNormalize([]float64{-1, 2, 3, 4, -5})
	require.NoError(t, err)
	assert.InDelta(t, 4.0/9, got[0], 1e-12)
	assert.Equal(t, 1.0, got[3])
	assert.Equal(t, 0.0, got[4])

	_, err = MinMaxNormalize([]float64{3, 3})
	assert.ErrorIs(t, err, ErrDegenerateVector)
}

func TestQuantizeShort(t *testing.T) {
	q := QuantizeShort([]float64{0, 0.5, 1, 2, -1, math.NaN()})
	assert.Equal(t, []int16{-32768, -1, 32766, 32767, -32768, -32768}, q)
}

func TestQuantize(t *testing.T) {
	q, err := Quantize([]float64{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int16{-32768, -1, 32766}, q)
}

func TestDequantize(t *testing.T) {
	v := Dequantize([]int16{-32768, -1, 32766})
	assert.InDelta(t, 0, v[0], 1e-9)
	assert.InDelta(t, 0.5, v[1], 1e-4)
	assert.InDelta(t, 1, v[2], 1e-9)
}

func TestJoinAndSplitShorts(t *testing.T) {
	q := []int16{-32768, 0, 12, 32767}
	s := JoinShorts(q)
	assert.Equal(t, "-32768;0;12;32767;", s)

	back, err := SplitShorts("x" + s)
	require.NoError(t, err)
	assert.Equal(t, q, back)
}

func TestRawEncoder(t *testing.T) {
	hist, hashes, err := Raw{}.Encode(context.Background(), []int16{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "1;2;", hist)
	assert.Empty(t, hashes)
}

func TestLireEncoder(t *testing.T) {
	q := []int16{-32768, -1, 0, 32767}
	enc := NewLire(&BitSampler{Bundles: 4, Bits: 8, Seed: 42})

	hist, hashes, err := enc.Encode(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "gAD//wAAf/8=", hist)
	assert.Len(t, strings.Fields(hashes), 4)

	back, err := DecodeHist(hist)
	require.NoError(t, err)
	assert.Equal(t, q, back)

	_, hashes2, err := NewLire(&BitSampler{Bundles: 4, Bits: 8, Seed: 42}).Encode(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, hashes, hashes2)

	_, _, err = enc.Encode(context.Background(), nil)
	assert.ErrorIs(t, err, ErrDegenerateVector)
}

func TestDecodeHist_Raw(t *testing.T) {
	q, err := DecodeHist("1;-2;3;")
	require.NoError(t, err)
	assert.Equal(t, []int16{1, -2, 3}, q)

	_, err = DecodeHist("  ")
	assert.Error(t, err)
}

func TestHashesToString(t *testing.T) {
	assert.Equal(t, "0 ff fff", HashesToString([]int{0, 255, 4095}))
}

func TestBitSamplerRange(t *testing.T) {
	b := &BitSampler{Bundles: 10, Bits: 12, Seed: 7}
	for _, h := range b.Hashes([]float64{1, -2, 3, 0.5}) {
		assert.GreaterOrEqual(t, h, 0)
		assert.Less(t, h, 1<<12)
	}
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float64{1, 2}, []float64{2, 4}), 1e-12)
	assert.InDelta(t, 1, CosineDistance([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.Equal(t, 1.0, CosineDistance([]float64{0, 0}, []float64{1, 1}))
}
