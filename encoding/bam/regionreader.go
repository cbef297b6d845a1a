package bam

import (
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf/index"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// RegionReader reads records overlapping reference regions from a
// coordinate-sorted, indexed BAM file. The BAM and index paths may be S3
// URLs, in which case the data is read from S3; otherwise the data is read
// from the local filesystem.
//
// A RegionReader is not safe for concurrent use. Open one reader per
// goroutine.
type RegionReader struct {
	path   string
	in     file.File
	reader *bam.Reader
	index  *bam.Index
	refs   map[string]*sam.Reference
}

// NewRegionReader opens the BAM file at path. indexPath names the BAI
// index; when empty, path + ".bai" is used.
func NewRegionReader(ctx context.Context, path, indexPath string) (*RegionReader, error) {
	if indexPath == "" {
		indexPath = path + ".bai"
	}
	idxIn, err := file.Open(ctx, indexPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open index %s", indexPath)
	}
	idx, err := bam.ReadIndex(idxIn.Reader(ctx))
	if closeErr := idxIn.Close(ctx); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read index %s", indexPath)
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		_ = in.Close(ctx)
		return nil, errors.Wrapf(err, "read header of %s", path)
	}
	r := &RegionReader{
		path:   path,
		in:     in,
		reader: reader,
		index:  idx,
		refs:   make(map[string]*sam.Reference),
	}
	for _, ref := range reader.Header().Refs() {
		r.refs[ref.Name()] = ref
	}
	return r, nil
}

// Header returns the header of the underlying BAM file.
func (r *RegionReader) Header() *sam.Header {
	return r.reader.Header()
}

// HasRef returns true if the BAM header declares the named reference.
func (r *RegionReader) HasRef(refName string) bool {
	_, ok := r.refs[refName]
	return ok
}

// Close releases the reader and the underlying file.
func (r *RegionReader) Close(ctx context.Context) error {
	err := r.reader.Close()
	if closeErr := r.in.Close(ctx); err == nil {
		err = closeErr
	}
	return err
}

// Fetch calls fn for every record overlapping the 0-based half-open
// interval [start, end) of the named reference, in file order. Each record
// is freshly allocated and may be retained by fn. A non-nil error from fn
// stops the scan and is returned.
func (r *RegionReader) Fetch(refName string, start, end int, fn func(*sam.Record) error) error {
	ref, ok := r.refs[refName]
	if !ok {
		return errors.Errorf("%s: reference %q not in BAM header", r.path, refName)
	}
	if start < 0 {
		start = 0
	}
	if end > ref.Len() {
		end = ref.Len()
	}
	if start >= end {
		return nil
	}
	chunks, err := r.index.Chunks(ref, start, end)
	if err == index.ErrInvalid || len(chunks) == 0 {
		// No reads indexed for this region.
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "%s: lookup %s:%d-%d", r.path, refName, start, end)
	}
	if err := r.reader.Seek(chunks[0].Begin); err != nil {
		return errors.Wrapf(err, "%s: seek to %s:%d-%d", r.path, refName, start, end)
	}
	n := 0
	for {
		rec, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "%s: read %s:%d-%d", r.path, refName, start, end)
		}
		if rec.Ref == nil || rec.Ref.ID() != ref.ID() || rec.Pos >= end {
			break
		}
		if rec.End() <= start {
			continue
		}
		n++
		if err := fn(rec); err != nil {
			return err
		}
	}
	vlog.VI(2).Infof("%s: %d records in %s:%d-%d", r.path, n, refName, start, end)
	return nil
}
