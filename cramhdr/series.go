// Package cramhdr implements the CRAM compression header: the
// preservation map, the per-data-series and per-tag codec maps, the
// substitution matrix and the tag dictionary a slice decodes against.
package cramhdr

import "github.com/go-cram/gocram/codec"

// Series is a two-letter CRAM data-series key.
type Series string

// The fixed data-series set, grounded on spec.md's decode walk (§4.5,
// §4.5.1) and aux/sequence reconstruction tables.
const (
	SeriesBF Series = "BF" // bam flags
	SeriesCF Series = "CF" // cram-specific flags
	SeriesRI Series = "RI" // reference id (multi-reference containers)
	SeriesRL Series = "RL" // read length
	SeriesAP Series = "AP" // alignment position (or delta)
	SeriesRG Series = "RG" // read group index
	SeriesRN Series = "RN" // read name
	SeriesMF Series = "MF" // mate flags (detached records)
	SeriesNS Series = "NS" // mate reference id
	SeriesNP Series = "NP" // mate alignment position
	SeriesTS Series = "TS" // template size / explicit tlen
	SeriesNF Series = "NF" // distance to next mate-downstream record
	SeriesTL Series = "TL" // tag line index into TD
	SeriesFN Series = "FN" // feature count
	SeriesFC Series = "FC" // feature code
	SeriesFP Series = "FP" // feature position delta
	SeriesBS Series = "BS" // substitution base code
	SeriesDL Series = "DL" // deletion length
	SeriesIN Series = "IN" // insertion bases (multi-base)
	SeriesSC Series = "SC" // soft-clip bases
	SeriesHC Series = "HC" // hard-clip length
	SeriesPD Series = "PD" // padding length
	SeriesRS Series = "RS" // reference-skip length
	SeriesBB Series = "BB" // bases-run bytes
	SeriesQQ Series = "QQ" // quals-run bytes
	SeriesBA Series = "BA" // single base
	SeriesQS Series = "QS" // quality scores
	SeriesMQ Series = "MQ" // mapping quality
)

// valueKinds fixes the ValueKind each series must be initialised with,
// per spec.md §4.4 ("implementations MUST pass the correct value kind").
var valueKinds = map[Series]codec.ValueKind{
	SeriesBF: codec.ValInt32,
	SeriesCF: codec.ValInt32,
	SeriesRI: codec.ValInt32,
	SeriesRL: codec.ValInt32,
	SeriesAP: codec.ValInt32,
	SeriesRG: codec.ValInt32,
	SeriesRN: codec.ValByteArray,
	SeriesMF: codec.ValInt32,
	SeriesNS: codec.ValInt32,
	SeriesNP: codec.ValInt32,
	SeriesTS: codec.ValInt32,
	SeriesNF: codec.ValInt32,
	SeriesTL: codec.ValInt32,
	SeriesFN: codec.ValInt32,
	SeriesFC: codec.ValByte,
	SeriesFP: codec.ValInt32,
	SeriesBS: codec.ValByte,
	SeriesDL: codec.ValInt32,
	SeriesIN: codec.ValByteArray,
	SeriesSC: codec.ValByteArray,
	SeriesHC: codec.ValInt32,
	SeriesPD: codec.ValInt32,
	SeriesRS: codec.ValInt32,
	SeriesBB: codec.ValByteArray,
	SeriesQQ: codec.ValByteArray,
	SeriesBA: codec.ValByte,
	SeriesQS: codec.ValByte,
	SeriesMQ: codec.ValInt32,
}

// ValueKindFor returns the fixed value kind for a data series, and false
// if the series is not one of the known keys.
func ValueKindFor(s Series) (codec.ValueKind, bool) {
	vk, ok := valueKinds[s]
	return vk, ok
}

// RequiredField enumerates the caller-selectable output fields of
// spec.md §4.5 step 3.
type RequiredField uint32

const (
	FieldQName RequiredField = 1 << iota
	FieldFlag
	FieldRName
	FieldPos
	FieldMapQ
	FieldCigar
	FieldRNext
	FieldPNext
	FieldTLen
	FieldSeq
	FieldQual
	FieldAux
	FieldAuxRG
)

// seriesDeps lists, for each required field, the data series it directly
// needs decoded. Dependency-closure propagation (e.g. RS requiring
// FC+FP, QS requiring RL) is applied by ExpandSeries below.
var seriesDeps = map[RequiredField][]Series{
	FieldQName: {SeriesRN},
	FieldFlag:  {SeriesBF, SeriesCF},
	FieldRName: {SeriesRI},
	FieldPos:   {SeriesAP},
	FieldMapQ:  {SeriesMQ},
	FieldCigar: {SeriesFN, SeriesFC, SeriesFP},
	FieldRNext: {SeriesNS, SeriesMF},
	FieldPNext: {SeriesNP, SeriesMF},
	FieldTLen:  {SeriesTS, SeriesMF},
	FieldSeq:   {SeriesFN, SeriesFC, SeriesFP, SeriesBA},
	FieldQual:  {SeriesQS, SeriesRL},
	FieldAux:   {SeriesTL},
	FieldAuxRG: {SeriesRG},
}

// ExpandSeries computes the set of data series that must be decoded to
// satisfy the given required fields, iterating the dependency closure
// (spec.md §4.5 step 3: "iterate the dependency closure until stable")
// until it stabilises. BF, CF, RL and AP are always included: every
// record decode needs them regardless of requested output fields.
func ExpandSeries(fields RequiredField) map[Series]bool {
	need := map[Series]bool{
		SeriesBF: true,
		SeriesCF: true,
		SeriesRL: true,
		SeriesAP: true,
	}
	for f, series := range seriesDeps {
		if fields&f != 0 {
			for _, s := range series {
				need[s] = true
			}
		}
	}
	// MD/NM auto-generation and sequence reconstruction both need the
	// feature stream; seq/cigar/aux(MD,NM) all funnel through FC/FP.
	if need[SeriesFC] || need[SeriesRS] {
		need[SeriesFN] = true
		need[SeriesFC] = true
		need[SeriesFP] = true
	}
	if need[SeriesQS] {
		need[SeriesRL] = true
	}
	return need
}
