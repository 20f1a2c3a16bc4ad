// Package classifier holds what every classifier implementation shares:
// label files and top-K decoding of probability vectors.
package classifier

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"annotator/internal/domain"
)

// ErrLabelMismatch is returned when a probability vector and the label list
// differ in length.
var ErrLabelMismatch = errors.New("prediction size does not match label count")

var (
	synsetRe = regexp.MustCompile(`^n\d{8}\s+`)
	indexRe  = regexp.MustCompile(`^\d+\t`)
)

// NormalizeLabel makes a label a single index term: surrounding space is
// trimmed and inner whitespace becomes '_'.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(s), "_")
}

// LoadLabels reads a label file. Two layouts are understood:
//   - JSON class index: {"0": ["n01440764", "tench"], ...}
//   - text, one class per line, optionally prefixed with "index<TAB>" or a
//     synset id, and with comma separated synonyms
//     ("n01440764 tench, Tinca tinca"); the first name is used.
func LoadLabels(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return loadJSONLabels(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		l := strings.TrimSpace(sc.Text())
		if l == "" {
			continue
		}
		l = indexRe.ReplaceAllString(l, "")
		l = synsetRe.ReplaceAllString(l, "")
		if name, _, ok := strings.Cut(l, ","); ok {
			l = name
		}
		out = append(out, NormalizeLabel(l))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no labels", path)
	}
	return out, nil
}

func loadJSONLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var idx map[string][]string
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := make([]string, len(idx))
	for k, v := range idx {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(out) || len(v) == 0 {
			return nil, fmt.Errorf("%s: bad class index entry %q", path, k)
		}
		out[i] = NormalizeLabel(v[len(v)-1])
	}
	return out, nil
}

// DecodeTopK returns the k most probable classes in descending order.
// Ties keep the lower class index first.
func DecodeTopK(probs []float64, labels []string, k int) ([]domain.Prediction, error) {
	if len(probs) != len(labels) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLabelMismatch, len(probs), len(labels))
	}
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	if k <= 0 || k > len(idx) {
		k = len(idx)
	}
	out := make([]domain.Prediction, k)
	for i := 0; i < k; i++ {
		out[i] = domain.Prediction{Label: labels[idx[i]], Confidence: probs[idx[i]]}
	}
	return out, nil
}
