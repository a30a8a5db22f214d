package codec

import "github.com/go-cram/gocram/cramerr"

// nullCodec yields no values; decoding from it is always an error. It
// exists so a data series can be explicitly marked "absent" in a
// compression header without the record-encoding map omitting the key
// (which would instead surface as MissingCodec).
type nullCodec struct {
	valueKind ValueKind
}

func newNullCodec(valueKind ValueKind) *nullCodec {
	return &nullCodec{valueKind: valueKind}
}

func (c *nullCodec) Kind() Kind           { return KindNull }
func (c *nullCodec) ValueKind() ValueKind { return c.valueKind }
func (c *nullCodec) Store(int) []byte     { return nil }

func (c *nullCodec) DecodeInt(*Source) (int64, error) {
	return 0, cramerr.ErrUnsupportedCodec
}

func (c *nullCodec) DecodeByte(*Source) (byte, error) {
	return 0, cramerr.ErrUnsupportedCodec
}

func (c *nullCodec) DecodeByteArray(*Source, int) ([]byte, error) {
	return nil, cramerr.ErrUnsupportedCodec
}
