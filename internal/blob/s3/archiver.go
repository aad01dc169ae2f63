package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mevlens/mevlens/internal/domain"
)

// multipartThreshold switches the upload path for large snapshot payloads.
const multipartThreshold = 8 * 1024 * 1024

// AttributionArchiveStore is the narrow read surface the archiver needs from
// the attribution store.
type AttributionArchiveStore interface {
	// ListBefore returns attributions dated strictly before the cutoff,
	// oldest first. limit <= 0 selects the store's default batch size.
	ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Attribution, error)
}

// Archiver implements domain.SnapshotArchiver by exporting old attribution
// rows to JSONL objects in cold storage.
//
// Deleting the archived rows from the primary store is a separate, explicit
// step run after the archive has been verified.
type Archiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	store  AttributionArchiveStore
}

// NewArchiver creates an Archiver. reader may be nil to skip upload
// verification.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, store AttributionArchiveStore) *Archiver {
	return &Archiver{
		writer: writer,
		reader: reader,
		store:  store,
	}
}

// ArchiveAttributions serializes all attributions before the cutoff as JSONL
// and uploads them to archive/attributions/YYYY-MM.jsonl, returning the
// number of records archived.
func (a *Archiver) ArchiveAttributions(ctx context.Context, before time.Time) (int64, error) {
	attrs, err := a.store.ListBefore(ctx, before, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive attributions query: %w", err)
	}
	if len(attrs) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(attrs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive attributions marshal: %w", err)
	}

	path := archivePath("attributions", before)
	if len(buf) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive attributions upload: %w", err)
	}

	if a.reader != nil {
		ok, err := a.reader.Exists(ctx, path)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive attributions verify: %w", err)
		}
		if !ok {
			return 0, fmt.Errorf("s3blob: archive attributions verify: %s missing after upload", path)
		}
	}

	return int64(len(attrs)), nil
}

// archivePath builds the object key, partitioned by the cutoff's year-month.
//
//	archive/attributions/2025-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.SnapshotArchiver = (*Archiver)(nil)
