// Package icereader implements the ReadDriver orchestration: wiring
// FieldMap, StatisticsDecoder, RowGroupEvaluator, ProjectionPlanner and
// SchemaReconciler into a single columnar read of one Parquet file
// against an Iceberg expected schema.
package icereader

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/thanos-io/objstore"
)

// InputFile is the abstract handle a ReadDriver reads through: it
// supports NewCursor, a readable stream positioned at 0, with multiple
// concurrent cursors permitted. parquet/file.Reader needs an io.ReaderAt,
// so a cursor here is any independent io.ReaderAt plus the file's total
// size.
type InputFile interface {
	// NewCursor returns an independent ReaderAt positioned to read the
	// whole file, plus its size in bytes. Concurrent cursors must not
	// share mutable position state.
	NewCursor(ctx context.Context) (io.ReaderAt, int64, error)
	// Close releases any resources the InputFile itself owns (e.g. an
	// os.File handle held open for local files). LocalInputFile cursors
	// read through that handle and stop working once it is closed;
	// BucketInputFile cursors are in-memory copies and stay readable.
	Close() error
}

// LocalInputFile backs InputFile with a single opened *os.File. Every
// NewCursor call hands back the same *os.File, which is safe because
// parquet/file.Reader performs positioned reads via ReadAt and never
// relies on a shared seek cursor.
type LocalInputFile struct {
	path string
	f    *os.File
	size int64
}

// OpenLocalInputFile opens path and stats it once up front.
func OpenLocalInputFile(path string) (*LocalInputFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("statting input file %q: %w", path, err)
	}
	return &LocalInputFile{path: path, f: f, size: info.Size()}, nil
}

func (l *LocalInputFile) NewCursor(ctx context.Context) (io.ReaderAt, int64, error) {
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	default:
	}
	return l.f, l.size, nil
}

func (l *LocalInputFile) Close() error {
	return l.f.Close()
}

// BucketInputFile backs InputFile with an objstore.Bucket object. Each
// cursor downloads the full object into a memory buffer, since
// objstore.Bucket's Get returns a plain io.ReadCloser rather than a
// ReaderAt — range support varies by backend and the bucket API does
// not expose positioned reads directly.
type BucketInputFile struct {
	bucket objstore.Bucket
	name   string
}

// NewBucketInputFile wraps an object name inside bucket as an InputFile.
func NewBucketInputFile(bucket objstore.Bucket, name string) *BucketInputFile {
	return &BucketInputFile{bucket: bucket, name: name}
}

func (b *BucketInputFile) NewCursor(ctx context.Context) (io.ReaderAt, int64, error) {
	attrs, err := b.bucket.Attributes(ctx, b.name)
	if err != nil {
		return nil, 0, fmt.Errorf("statting bucket object %q: %w", b.name, err)
	}

	rc, err := b.bucket.Get(ctx, b.name)
	if err != nil {
		return nil, 0, fmt.Errorf("opening bucket object %q: %w", b.name, err)
	}
	defer rc.Close()

	buf := make([]byte, attrs.Size)
	if _, err := io.ReadFull(rc, buf); err != nil {
		return nil, 0, fmt.Errorf("reading bucket object %q: %w", b.name, err)
	}
	return &byteRangeReader{buf: buf}, attrs.Size, nil
}

func (b *BucketInputFile) Close() error { return nil }

// byteRangeReader adapts an in-memory buffer to io.ReaderAt for bucket
// objects materialized in full by BucketInputFile.
type byteRangeReader struct {
	buf []byte
}

func (r *byteRangeReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(r.buf)) {
		return 0, io.EOF
	}
	n := copy(p, r.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
