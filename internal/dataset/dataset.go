// Package dataset holds encoded chunk records in memory and persists them
// as parquet files.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var ErrSplitTooSmall = errors.New("split would leave a partition empty")

// Record is one trainable chunk. The same four-column schema is used for
// per-category artifacts and for the final partitions.
type Record struct {
	SourceLabel string `parquet:"name=source_label, type=BYTE_ARRAY, convertedtype=UTF8" json:"source_label"`
	Title       string `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8" json:"title"`
	Chunk       string `parquet:"name=chunk, type=BYTE_ARRAY, convertedtype=UTF8" json:"chunk"`
	Label       int64  `parquet:"name=label, type=INT64" json:"label"`
}

type Dataset struct {
	Records []Record
}

func New(records []Record) *Dataset {
	return &Dataset{Records: records}
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Concat returns a new dataset holding the records of every input in order.
func Concat(parts ...*Dataset) *Dataset {
	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	out := make([]Record, 0, total)
	for _, p := range parts {
		if p == nil {
			continue
		}
		out = append(out, p.Records...)
	}
	return New(out)
}

// Shuffle permutes the records in place.
func (d *Dataset) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.Records), func(i, j int) {
		d.Records[i], d.Records[j] = d.Records[j], d.Records[i]
	})
}

// TrainTestSplit randomly partitions the records. The test side gets
// ceil(testSize*n) rows and the train side the rest, so every record lands
// in exactly one partition.
func (d *Dataset) TrainTestSplit(testSize float64, rng *rand.Rand) (train, test *Dataset, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size %v must be in (0, 1)", testSize)
	}
	n := d.Len()
	// guard against 0.2*200 = 40.000000000000004 style rounding
	nTest := int(math.Ceil(testSize*float64(n) - 1e-9))
	nTrain := n - nTest
	if nTest <= 0 || nTrain <= 0 {
		return nil, nil, fmt.Errorf("%w: %d rows with test size %v", ErrSplitTooSmall, n, testSize)
	}

	perm := rng.Perm(n)
	testRecs := make([]Record, 0, nTest)
	trainRecs := make([]Record, 0, nTrain)
	for i, idx := range perm {
		if i < nTest {
			testRecs = append(testRecs, d.Records[idx])
		} else {
			trainRecs = append(trainRecs, d.Records[idx])
		}
	}
	return New(trainRecs), New(testRecs), nil
}

// NewRand returns a seeded generator. A nil seed draws one from the runtime.
func NewRand(seed *int64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := uint64(*seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}
