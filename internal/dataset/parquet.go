package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

const parallelism = 4

// WriteParquet persists the dataset to path, creating parent directories.
func WriteParquet(path string, d *Dataset) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("open parquet writer %s: %w", path, err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	pw, err := writer.NewParquetWriter(fw, new(Record), parallelism)
	if err != nil {
		return fmt.Errorf("create parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	if d != nil {
		for i := range d.Records {
			if err := pw.Write(d.Records[i]); err != nil {
				return fmt.Errorf("write parquet row %d: %w", i, err)
			}
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file %s: %w", path, err)
	}
	return nil
}

// ReadParquet loads every record from a file written by WriteParquet.
func ReadParquet(path string) (*Dataset, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet reader %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(Record), parallelism)
	if err != nil {
		return nil, fmt.Errorf("read parquet footer %s: %w", path, err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	records := make([]Record, n)
	if n > 0 {
		if err := pr.Read(&records); err != nil {
			return nil, fmt.Errorf("read parquet rows %s: %w", path, err)
		}
	}
	return New(records), nil
}
