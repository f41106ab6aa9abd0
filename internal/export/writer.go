package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Writer writes one PartitionSnapshot per call to WritePartition,
// following the idempotent-replace sequence from spec.md §4.8: list,
// delete, upload-with-timestamp-suffix. Remote targets replace; Writer
// itself doesn't know which — that's Target.Delete's business (a no-op
// on LocalTarget keeps every dry-run artifact, per spec).
type Writer struct {
	target     Target
	basePrefix string // e.g. "network_data"
}

func NewWriter(target Target, basePrefix string) *Writer {
	return &Writer{target: target, basePrefix: basePrefix}
}

// WritePartition encodes rows as a parquet file and replaces the
// contents of the date partition with it.
func (w *Writer) WritePartition(ctx context.Context, date string, rows []Row, now time.Time) error {
	prefix := fmt.Sprintf("%s/dt=%s/", w.basePrefix, date)

	existing, err := w.target.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("export: list partition %s: %w", date, err)
	}
	for _, name := range existing {
		if err := w.target.Delete(ctx, name); err != nil {
			return fmt.Errorf("export: delete stale artifact %s: %w", name, err)
		}
	}

	var buf bytes.Buffer
	if err := parquet.Write[Row](&buf, rows); err != nil {
		return fmt.Errorf("export: encode partition %s: %w", date, err)
	}

	name := fmt.Sprintf("%s%s_%d.parquet", prefix, date, now.UnixMicro())
	if err := w.target.Upload(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("export: upload partition %s: %w", date, err)
	}
	return nil
}
