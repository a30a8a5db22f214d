package cramhdr

import "github.com/go-cram/gocram/codec"

// seriesOrder fixes a stable content-id assignment for DefaultSeriesCodecs:
// every series of interest gets its own external block, content id =
// 1 + its index here (0 is reserved for the slice's CORE block).
var seriesOrder = []Series{
	SeriesBF, SeriesCF, SeriesRI, SeriesRL, SeriesAP, SeriesRG, SeriesRN,
	SeriesMF, SeriesNS, SeriesNP, SeriesTS, SeriesNF, SeriesTL,
	SeriesFN, SeriesFC, SeriesFP, SeriesBS, SeriesDL, SeriesIN,
	SeriesSC, SeriesHC, SeriesPD, SeriesRS, SeriesBB, SeriesQQ,
	SeriesBA, SeriesQS, SeriesMQ,
}

// DefaultSeriesCodecs builds a record-encoding map that sends every data
// series to its own external block via a plain varint/raw-byte codec.
// This is a concrete, simple codec-selection policy; picking codecs from
// container statistics (spec.md §2's "choose codecs from statistics") is
// a tunable optimisation spec.md leaves unspecified, so this is the one
// fixed policy the encoder implements.
func DefaultSeriesCodecs() SeriesCodecs {
	out := make(SeriesCodecs, len(seriesOrder))
	for i, s := range seriesOrder {
		vk, ok := ValueKindFor(s)
		if !ok {
			continue
		}
		out[s] = codec.NewExternal(vk, int32(i+1))
	}
	return out
}

// DefaultCompressionHeader builds a ready-to-use compression header for
// an Encoder: the default per-series external codec assignment, a tag
// dictionary whose single line (TL 0) lists no tags, and a preservation
// map that keeps read names
// (off by default per spec.md §4.4, but the simplified encoder always
// carries them, since it supports no alternative way to identify mates
// across slices) alongside the spec's other defaults.
func DefaultCompressionHeader() *CompressionHeader {
	pm := DefaultPreservationMap()
	pm.ReadNamesPreserved = true
	pm.SubstitutionMatrix = DefaultSubstitutionMatrix()
	pm.TagDict = TagDictionary{Lines: [][]TagSpec{nil}}
	return &CompressionHeader{
		Preservation: pm,
		Series:       DefaultSeriesCodecs(),
		Tags:         TagCodecs{},
	}
}
