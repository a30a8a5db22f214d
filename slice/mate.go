package slice

// resolveMates applies spec.md §4.5.2's mate-resolution pass over one
// slice's fully decoded records: walking the forward mate_line chain,
// computing the aleft/aright union span, and assigning tlen signs and
// mate coordinates.
//
// Records carrying CFDetached have already been filled in directly from
// NS/NP/TS during per-record decode and are left untouched here, as is a
// record already filled in as the downstream end of an earlier mate_line.
func resolveMates(records []*Record) {
	linked := make([]bool, len(records))
	for i, r := range records {
		if r.CramFlag&CFDetached != 0 {
			continue
		}
		if r.MateLine < 0 || int(r.MateLine) >= len(records) {
			if linked[i] {
				continue
			}
			// No mate_line on record (paired or not): own coordinates,
			// zero tlen, per spec.md §4.5.2's fallback case.
			r.MateRefID = r.RefID
			r.MatePos = r.Pos
			r.TLen = 0
			continue
		}
		mate := records[r.MateLine]
		linkMates(r, mate)
		linked[r.MateLine] = true
	}
}

// linkMates resolves one forward mate_line edge a -> b, propagating
// flags and coordinates both ways and assigning the tlen sign (first
// read in pair, by file order, gets the positive value on a tie).
func linkMates(a, b *Record) {
	a.Flag |= FlagPaired
	b.Flag |= FlagPaired

	a.MateRefID, a.MatePos = b.RefID, b.Pos
	b.MateRefID, b.MatePos = a.RefID, a.Pos

	if a.Flag&FlagUnmapped != 0 {
		b.Flag |= FlagMateUnmapped
	}
	if b.Flag&FlagUnmapped != 0 {
		a.Flag |= FlagMateUnmapped
	}
	if a.Flag&FlagReverse != 0 {
		b.Flag |= FlagMateReverse
	}
	if b.Flag&FlagReverse != 0 {
		a.Flag |= FlagMateReverse
	}

	aleft, aright := templateSpan(a, b)
	tlen := int32(aright - aleft + 1)
	if tlen == 0 {
		a.TLen, b.TLen = 0, 0
	} else {
		// The read starting the template span gets the positive sign;
		// on a tied start position the earlier record in file order
		// (a, by construction of the forward chain) wins it.
		if a.Pos <= b.Pos {
			a.TLen, b.TLen = tlen, -tlen
		} else {
			a.TLen, b.TLen = -tlen, tlen
		}
	}

	if a.CramFlag&CFExplicitTLen != 0 {
		a.TLen = a.ExplicitTLen
	}
	if b.CramFlag&CFExplicitTLen != 0 {
		b.TLen = b.ExplicitTLen
	}
}

func templateSpan(a, b *Record) (left, right int64) {
	left = int64(a.Pos)
	if int64(b.Pos) < left {
		left = int64(b.Pos)
	}
	right = int64(a.Aend)
	if int64(b.Aend) > right {
		right = int64(b.Aend)
	}
	return left, right
}
