// Package features turns classifier output into index fields: repeated
// category terms and int16 quantized feature vectors.
package features

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"annotator/internal/domain"
)

// ErrDegenerateVector is returned when a vector cannot be normalized.
var ErrDegenerateVector = errors.New("degenerate feature vector")

// TermString repeats every label ceil(confidence*10) times, each occurrence
// followed by a space, so the index's term frequency tracks the confidence.
func TermString(preds []domain.Prediction) string {
	var sb strings.Builder
	for _, p := range preds {
		n := int(math.Ceil(p.Confidence * 10))
		for i := 0; i < n; i++ {
			sb.WriteString(p.Label)
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// MaxNormalize divides every component by the largest one.
func MaxNormalize(v []float64) ([]float64, error) {
	if len(v) == 0 {
		return nil, ErrDegenerateVector
	}
	max := v[0]
	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}
	if !(max > 0) || math.IsInf(max, 0) {
		return nil, ErrDegenerateVector
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / max
	}
	return out, nil
}

// MinMaxNormalize maps v linearly onto [0, 1].
func MinMaxNormalize(v []float64) ([]float64, error) {
	if len(v) == 0 {
		return nil, ErrDegenerateVector
	}
	min, max := v[0], v[0]
	for _, x := range v[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	if max == min {
		return nil, ErrDegenerateVector
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = (x - min) / (max - min)
	}
	return out, nil
}

// QuantizeShort stretches normalized values over the int16 range with
// v*32767*2 - 32768, truncating toward zero. Values outside [0, 1] are
// clamped.
func QuantizeShort(v []float64) []int16 {
	out := make([]int16, len(v))
	for i, x := range v {
		d := math.Trunc(x*math.MaxInt16*2 + math.MinInt16)
		switch {
		case math.IsNaN(d) || d < math.MinInt16:
			d = math.MinInt16
		case d > math.MaxInt16:
			d = math.MaxInt16
		}
		out[i] = int16(d)
	}
	return out
}

// Quantize max-normalizes v and quantizes it to int16.
func Quantize(v []float64) ([]int16, error) {
	n, err := MaxNormalize(v)
	if err != nil {
		return nil, err
	}
	return QuantizeShort(n), nil
}

// JoinShorts writes q as decimals, each followed by ';'.
func JoinShorts(q []int16) string {
	var sb strings.Builder
	for _, x := range q {
		sb.WriteString(strconv.Itoa(int(x)))
		sb.WriteByte(';')
	}
	return sb.String()
}

// SplitShorts parses the output of JoinShorts. A leading 'x' is accepted.
func SplitShorts(s string) ([]int16, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "x")
	var out []int16
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 16)
		if err != nil {
			return nil, err
		}
		out = append(out, int16(n))
	}
	return out, nil
}

// CosineDistance returns 1 - cos(a, b) over the common prefix of a and b.
// Zero vectors are at distance 1.
func CosineDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// ToFloats widens a quantized vector.
func ToFloats(q []int16) []float64 {
	out := make([]float64, len(q))
	for i, x := range q {
		out[i] = float64(x)
	}
	return out
}

// Dequantize maps QuantizeShort output back onto [0, 1].
func Dequantize(q []int16) []float64 {
	out := make([]float64, len(q))
	for i, x := range q {
		out[i] = (float64(x) - math.MinInt16) / (math.MaxInt16 * 2)
	}
	return out
}
