package cramhdr

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/block"
)

// CompressionHeader is the container-level structure every slice it
// governs decodes against: the preservation map, the per-series codec
// map and the per-tag codec map, serialised in that order per spec.md
// §4.4.
type CompressionHeader struct {
	Preservation PreservationMap
	Series       SeriesCodecs
	Tags         TagCodecs
}

// ReadCompressionHeader parses a compression header from its block,
// uncompressing it first if necessary.
func ReadCompressionHeader(b *block.Block, version int) (*CompressionHeader, error) {
	if err := b.Uncompress(); err != nil {
		return nil, errors.Wrap(err, "cramhdr: uncompress compression header block")
	}
	data, err := b.ReadBytes(int(b.UncompressedSize))
	if err != nil {
		return nil, errors.Wrap(err, "cramhdr: read compression header block")
	}
	r := bytes.NewReader(data)

	pm, err := ReadPreservationMap(r)
	if err != nil {
		return nil, err
	}
	series, err := ReadSeriesCodecs(r, version)
	if err != nil {
		return nil, err
	}
	tags, err := ReadTagCodecs(r, version)
	if err != nil {
		return nil, err
	}
	return &CompressionHeader{Preservation: pm, Series: series, Tags: tags}, nil
}

// WriteBlock serialises the header and wraps it as a raw (uncompressed)
// compression-header block, ready for the caller to Compress if desired.
func (h *CompressionHeader) WriteBlock(version int) *block.Block {
	var buf []byte
	buf = append(buf, h.Preservation.Write()...)
	buf = append(buf, h.Series.write(version)...)
	buf = append(buf, h.Tags.write(version)...)
	return block.NewRawBlock(block.ContentCompressionHeader, 0, buf)
}
