// Package label maps source label values to dense integer class ids.
package label

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
)

var (
	ErrNotFitted    = errors.New("label encoder is not fitted")
	ErrUnknownLabel = errors.New("label not seen during fit")
)

// Encoder assigns each distinct value its index in the sorted class list.
// Values that all parse as numbers sort numerically, otherwise lexically.
type Encoder struct {
	classes []string
	index   map[string]int64
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

type encoderFile struct {
	Classes []string `json:"classes"`
}

func (e *Encoder) Fit(values []string) {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sortClasses(classes)
	e.setClasses(classes)
}

func (e *Encoder) setClasses(classes []string) {
	e.classes = classes
	e.index = make(map[string]int64, len(classes))
	for i, c := range classes {
		e.index[c] = int64(i)
	}
}

func (e *Encoder) Transform(values []string) ([]int64, error) {
	if e.index == nil {
		return nil, ErrNotFitted
	}
	out := make([]int64, len(values))
	for i, v := range values {
		id, ok := e.index[v]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, v)
		}
		out[i] = id
	}
	return out, nil
}

func (e *Encoder) FitTransform(values []string) []int64 {
	e.Fit(values)
	out, _ := e.Transform(values)
	return out
}

// Classes returns a copy of the fitted class list.
func (e *Encoder) Classes() []string {
	return slices.Clone(e.classes)
}

func (e *Encoder) Save(path string) error {
	if e.index == nil {
		return ErrNotFitted
	}
	data, err := json.MarshalIndent(encoderFile{Classes: e.classes}, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

func Load(path string) (*Encoder, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var f encoderFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode label encoder %s: %w", path, err)
	}
	e := NewEncoder()
	e.setClasses(f.Classes)
	return e, nil
}

func sortClasses(classes []string) {
	nums := make(map[string]float64, len(classes))
	for _, c := range classes {
		f, err := strconv.ParseFloat(c, 64)
		if err != nil {
			slices.Sort(classes)
			return
		}
		nums[c] = f
	}
	slices.SortFunc(classes, func(a, b string) int {
		switch {
		case nums[a] < nums[b]:
			return -1
		case nums[a] > nums[b]:
			return 1
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
}
