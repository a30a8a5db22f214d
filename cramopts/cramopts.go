// Package cramopts holds the enumerated decode/encode option set spec.md
// §6 names, plus the required-fields bitset and dependency-closure rules
// spec.md §4.5 step 3 describes.
package cramopts

import "github.com/go-cram/gocram/cramhdr"

// Range restricts decode to records overlapping [Start, End) on
// reference RefID (RefID == -1 selects unmapped/unplaced records).
type Range struct {
	RefID int32
	Start int64
	End   int64
}

// Version is the {major, minor} CRAM format version pair.
type Version struct {
	Major, Minor int
}

// Options is the mutable set of decode/encode knobs spec.md §6 names.
type Options struct {
	// DecodeMD requests auto-generation of the MD/NM aux tags from the
	// feature stream and reference, rather than trusting a stored value.
	DecodeMD bool
	// RequiredFields restricts decode to the data series needed to
	// populate these output fields; see cramhdr.ExpandSeries.
	RequiredFields cramhdr.RequiredField
	// IgnoreMD5 is read by no decode path: slice reference MD5s are not
	// verified, so no MD5 mismatch is ever reported.
	IgnoreMD5 bool
	// PreserveAuxOrder is read by no conversion path: aux tags always
	// come out in their on-wire TD order.
	PreserveAuxOrder bool
	Version          Version
	// Reference is an opaque handle to the caller's reference provider
	// configuration; the concrete refprovider.Provider is supplied
	// separately to the decoder/encoder constructor, not stored here.
	Reference string
	Range     *Range
	// NThreads is the worker-pool size for slice decode/encode; 0 or 1
	// means single-threaded.
	NThreads int

	UseBzip2 bool
	UseRANS  bool
	UseLZMA  bool
	UseTok   bool
}

// Default returns the spec-mandated defaults: DecodeMD and IgnoreMD5
// both false (CRC mismatches are fatal; reference MD5s are not checked),
// single-threaded, every compression method allowed.
func Default() Options {
	return Options{
		Version:  Version{Major: 3, Minor: 0},
		NThreads: 1,
		UseBzip2: true,
		UseRANS:  true,
		UseLZMA:  true,
		UseTok:   true,
	}
}
