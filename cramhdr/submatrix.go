package cramhdr

// SubstitutionMatrix maps a (reference base, 2-bit substitution code)
// pair to the read base actually observed, per spec.md §4.4's SM key.
// The fixed outer row order is A,C,G,T,N; each row's inner alphabet
// (the other four bases, in a fixed per-row order) is looked up by the
// 2-bit code read from that row's packed byte.
type SubstitutionMatrix struct {
	rows [5][4]byte // rows[refIdx][code] -> substituted base letter
}

// rowAlphabet is the fixed per-row ordering of the four non-reference
// bases whose codes are packed into that row's byte, matching io_lib's
// CRAM_SUBST_MATRIX ("CGTNAGTNACTNACGNACGT").
var rowAlphabet = [5][4]byte{
	{'C', 'G', 'T', 'N'}, // ref = A
	{'A', 'G', 'T', 'N'}, // ref = C
	{'A', 'C', 'T', 'N'}, // ref = G
	{'A', 'C', 'G', 'N'}, // ref = T
	{'A', 'C', 'G', 'T'}, // ref = N
}

func refBaseIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	default:
		return 4 // N and anything else
	}
}

// DefaultSubstitutionMatrix returns the table whose codes follow
// rowAlphabet's order, as in io_lib. DefaultCompressionHeader uses it for
// encoding; ReadPreservationMap does not fall back to it, so a header
// without SM leaves the zero-value table in place.
func DefaultSubstitutionMatrix() SubstitutionMatrix {
	return SubstitutionMatrix{rows: rowAlphabet}
}

// DecodeSubstitutionMatrix unpacks the five SM bytes: row r's byte
// stores, in its four 2-bit fields (MSB first), the code assigned to
// each letter of rowAlphabet[r] in turn.
func DecodeSubstitutionMatrix(raw [5]byte) SubstitutionMatrix {
	var sm SubstitutionMatrix
	for r := 0; r < 5; r++ {
		b := raw[r]
		for i := 0; i < 4; i++ {
			shift := uint(6 - 2*i)
			code := (b >> shift) & 0x3
			sm.rows[r][code] = rowAlphabet[r][i]
		}
	}
	return sm
}

// Encode packs the table back into five SM bytes.
func (sm SubstitutionMatrix) Encode() [5]byte {
	var raw [5]byte
	for r := 0; r < 5; r++ {
		var b byte
		for i := 0; i < 4; i++ {
			letter := rowAlphabet[r][i]
			var code byte
			for c := 0; c < 4; c++ {
				if sm.rows[r][c] == letter {
					code = byte(c)
					break
				}
			}
			b |= code << uint(6-2*i)
		}
		raw[r] = b
	}
	return raw
}

// Resolve returns the substituted base for a reference base and a
// 2-bit BS code, per spec.md §4.5.1's `X` feature.
func (sm SubstitutionMatrix) Resolve(refBase byte, code byte) byte {
	return sm.rows[refBaseIndex(refBase)][code&0x3]
}

// CodeFor returns the 2-bit code that substitutes refBase with altBase,
// for the encode path. ok is false if altBase equals refBase (no valid
// substitution code exists for identity).
func (sm SubstitutionMatrix) CodeFor(refBase, altBase byte) (code byte, ok bool) {
	row := sm.rows[refBaseIndex(refBase)]
	for c, letter := range row {
		if letter == altBase {
			return byte(c), true
		}
	}
	return 0, false
}
