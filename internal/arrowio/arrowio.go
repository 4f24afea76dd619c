// Package arrowio exports ranked analysis results as Arrow record batches for
// downstream columnar tooling.
package arrowio

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/probelab/saeprobe/internal/pairs"
	"github.com/probelab/saeprobe/internal/tensor"
)

// PairSchema is the columnar layout for ranked pair results.
var PairSchema = arrow.NewSchema([]arrow.Field{
	{Name: "ablator_i", Type: arrow.PrimitiveTypes.Int32},
	{Name: "ablator_j", Type: arrow.PrimitiveTypes.Int32},
	{Name: "similarity", Type: arrow.PrimitiveTypes.Float64},
	{Name: "cooccurrence", Type: arrow.PrimitiveTypes.Float32},
}, nil)

// PairRecord builds one Arrow record holding the full ranked pair list.
// Callers must Release the record. cooccurrences may be nil, in which case
// the cooccurrence column is null.
func PairRecord(results []pairs.Pair, cooccurrences *tensor.Matrix) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, PairSchema)
	defer b.Release()

	iB := b.Field(0).(*array.Int32Builder)
	jB := b.Field(1).(*array.Int32Builder)
	simB := b.Field(2).(*array.Float64Builder)
	coocB := b.Field(3).(*array.Float32Builder)

	for _, p := range results {
		iB.Append(int32(p.I))
		jB.Append(int32(p.J))
		simB.Append(p.Similarity)
		if cooccurrences != nil {
			coocB.Append(cooccurrences.At(p.I, p.J))
		} else {
			coocB.AppendNull()
		}
	}
	return b.NewRecord()
}

// WritePairsFile writes the ranked pair list as an Arrow IPC file.
func WritePairsFile(path string, results []pairs.Pair, cooccurrences *tensor.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(PairSchema))
	if err != nil {
		return fmt.Errorf("creating IPC writer: %w", err)
	}

	rec := PairRecord(results, cooccurrences)
	defer rec.Release()

	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("writing record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing IPC writer: %w", err)
	}
	return nil
}

// ReadPairsFile loads a ranked pair list written by WritePairsFile. Used by
// tests and by tools merging sharded runs.
func ReadPairsFile(path string) ([]pairs.Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating IPC reader: %w", err)
	}
	defer r.Close()

	var out []pairs.Pair
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("reading record %d: %w", i, err)
		}
		iCol := rec.Column(0).(*array.Int32)
		jCol := rec.Column(1).(*array.Int32)
		simCol := rec.Column(2).(*array.Float64)
		for row := 0; row < int(rec.NumRows()); row++ {
			out = append(out, pairs.Pair{
				I:          int(iCol.Value(row)),
				J:          int(jCol.Value(row)),
				Similarity: simCol.Value(row),
			})
		}
	}
	return out, nil
}
