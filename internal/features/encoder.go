package features

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
)

// Raw stores the quantized vector as ';'-joined decimals and no hashes.
type Raw struct{}

func (Raw) Name() string { return "raw" }

func (Raw) Encode(_ context.Context, q []int16) (string, string, error) {
	return JoinShorts(q), "", nil
}

// Lire stores the vector as Base64 of its big-endian int16 bytes and adds
// bit-sampling hashes as space separated hex numbers, the layout the image
// search request handler reads from *_hi and *_ha fields.
type Lire struct {
	sampler *BitSampler
}

// NewLire creates a Lire encoder using sampler for the hashes. A nil
// sampler uses DefaultBitSampler.
func NewLire(sampler *BitSampler) *Lire {
	if sampler == nil {
		sampler = DefaultBitSampler()
	}
	return &Lire{sampler: sampler}
}

func (l *Lire) Name() string { return "lire" }

func (l *Lire) Encode(_ context.Context, q []int16) (string, string, error) {
	if len(q) == 0 {
		return "", "", ErrDegenerateVector
	}
	hashes := l.sampler.Hashes(ToFloats(q))
	return EncodeShorts(q), HashesToString(hashes), nil
}

// EncodeShorts returns Base64 of q as big-endian int16 values.
func EncodeShorts(q []int16) string {
	buf := make([]byte, 2*len(q))
	for i, x := range q {
		binary.BigEndian.PutUint16(buf[2*i:], uint16(x))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeShorts reverses EncodeShorts.
func DecodeShorts(s string) ([]int16, error) {
	buf, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if len(buf)%2 != 0 {
		return nil, fmt.Errorf("odd byte length %d", len(buf))
	}
	out := make([]int16, len(buf)/2)
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(buf[2*i:]))
	}
	return out, nil
}

// DecodeHist reads a histogram field written by Raw or Lire.
func DecodeHist(s string) ([]int16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty feature field")
	}
	if strings.Contains(s, ";") {
		return SplitShorts(s)
	}
	q, err := DecodeShorts(s)
	if err != nil {
		// a single raw value without separator
		if n, perr := strconv.ParseInt(s, 10, 16); perr == nil {
			return []int16{int16(n)}, nil
		}
		return nil, fmt.Errorf("decode feature field: %w", err)
	}
	return q, nil
}

// HashesToString joins hashes as lower-case hex separated by spaces.
func HashesToString(hashes []int) string {
	var sb strings.Builder
	sb.Grow(len(hashes) * 8)
	for i, h := range hashes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatUint(uint64(uint32(h)), 16))
	}
	return sb.String()
}

// BitSampler computes locality sensitive hashes: each hash packs the signs
// of Bits random projections. Projections are drawn from a seeded source so
// the same seed always yields the same hashes.
type BitSampler struct {
	Bundles int
	Bits    int
	Seed    int64

	mu   sync.Mutex
	dim  int
	proj [][]float64
}

// DefaultBitSampler uses 100 hashes of 12 bits each.
func DefaultBitSampler() *BitSampler {
	return &BitSampler{Bundles: 100, Bits: 12, Seed: 1}
}

func (b *BitSampler) projections(dim int) [][]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.proj != nil && b.dim == dim {
		return b.proj
	}
	rnd := rand.New(rand.NewSource(b.Seed))
	proj := make([][]float64, b.Bundles*b.Bits)
	for i := range proj {
		p := make([]float64, dim)
		for j := range p {
			p[j] = rnd.Float64()*2 - 1
		}
		proj[i] = p
	}
	b.proj, b.dim = proj, dim
	return proj
}

// Hashes returns Bundles hashes for v.
func (b *BitSampler) Hashes(v []float64) []int {
	proj := b.projections(len(v))
	out := make([]int, b.Bundles)
	for i := 0; i < b.Bundles; i++ {
		h := 0
		for j := 0; j < b.Bits; j++ {
			p := proj[i*b.Bits+j]
			dot := 0.0
			for k, x := range v {
				dot += x * p[k]
			}
			h <<= 1
			if dot > 0 {
				h |= 1
			}
		}
		out[i] = h
	}
	return out
}
