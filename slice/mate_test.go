package slice

import "testing"

func TestResolveMatesForwardChain(t *testing.T) {
	a := &Record{index: 0, RefID: 0, Pos: 100, Aend: 136, CramFlag: CFMateDownstream, MateLine: 1, ExplicitTLen: explicitTLenSentinel}
	b := &Record{index: 1, RefID: 0, Pos: 200, Aend: 236, MateLine: -1, ExplicitTLen: explicitTLenSentinel}
	a.CramFlag = CFMateDownstream

	records := []*Record{a, b}
	resolveMates(records)

	if a.MateRefID != b.RefID || a.MatePos != b.Pos {
		t.Errorf("a mate coords = (%d,%d), want (%d,%d)", a.MateRefID, a.MatePos, b.RefID, b.Pos)
	}
	if b.MateRefID != a.RefID || b.MatePos != a.Pos {
		t.Errorf("b mate coords = (%d,%d), want (%d,%d)", b.MateRefID, b.MatePos, a.RefID, a.Pos)
	}
	if a.Flag&FlagPaired == 0 || b.Flag&FlagPaired == 0 {
		t.Error("expected both records flagged paired")
	}
	wantTLen := int32(236 - 100 + 1)
	if a.TLen != wantTLen {
		t.Errorf("a.TLen = %d, want %d", a.TLen, wantTLen)
	}
	if b.TLen != -wantTLen {
		t.Errorf("b.TLen = %d, want %d", b.TLen, -wantTLen)
	}
}

func TestResolveMatesExplicitTLenOverride(t *testing.T) {
	a := &Record{index: 0, RefID: 0, Pos: 100, Aend: 136, CramFlag: CFMateDownstream, MateLine: 1, ExplicitTLen: explicitTLenSentinel}
	b := &Record{index: 1, RefID: 0, Pos: 200, Aend: 236, MateLine: -1, CramFlag: CFExplicitTLen, ExplicitTLen: 999}

	records := []*Record{a, b}
	resolveMates(records)

	if b.TLen != 999 {
		t.Errorf("b.TLen = %d, want explicit override 999", b.TLen)
	}
}

func TestResolveMatesNoMateLineFallsBackToSelf(t *testing.T) {
	a := &Record{index: 0, RefID: 3, Pos: 50, CramFlag: CFMateDownstream, MateLine: -1, ExplicitTLen: explicitTLenSentinel}
	records := []*Record{a}
	resolveMates(records)

	if a.MateRefID != a.RefID || a.MatePos != a.Pos || a.TLen != 0 {
		t.Errorf("expected self-referential mate with zero tlen, got %+v", a)
	}
}
