package codec

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

// byteArrayStopCodec copies bytes from an external block up to (not
// including) a stop byte, consuming the stop byte itself.
type byteArrayStopCodec struct {
	stopByte  byte
	contentID int32
}

func initByteArrayStop(c *byteCursor) (Codec, error) {
	stop, err := c.ReadByte()
	if err != nil {
		return nil, errors.Wrap(err, "codec: byte-array-stop: stop byte")
	}
	id, err := bitio.ReadITF8(c)
	if err != nil {
		return nil, errors.Wrap(err, "codec: byte-array-stop: content id")
	}
	return &byteArrayStopCodec{stopByte: stop, contentID: id}, nil
}

func (c *byteArrayStopCodec) Kind() Kind           { return KindByteArrayStop }
func (c *byteArrayStopCodec) ValueKind() ValueKind { return ValByteArray }

func (c *byteArrayStopCodec) Store(int) []byte {
	out := []byte{c.stopByte}
	return append(out, bitio.WriteITF8(c.contentID)...)
}

func (c *byteArrayStopCodec) DecodeByteArray(src *Source, _ int) ([]byte, error) {
	if src.External == nil {
		return nil, errors.Wrap(cramerr.ErrMissingBlock, "codec: byte-array-stop: no block lookup configured")
	}
	b, err := src.External(c.contentID)
	if err != nil {
		return nil, err
	}
	var out []byte
	for {
		by, err := b.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrTruncatedInput, "codec: byte-array-stop: missing stop byte")
		}
		if by == c.stopByte {
			return out, nil
		}
		out = append(out, by)
	}
}

func (c *byteArrayStopCodec) EncodeByteArray(sink *Sink, v []byte) error {
	if sink.External == nil {
		return errors.New("codec: byte-array-stop: no block writer configured")
	}
	if bytes.IndexByte(v, c.stopByte) >= 0 {
		return errors.Errorf("codec: byte-array-stop: value contains stop byte 0x%02x", c.stopByte)
	}
	w, err := sink.External(c.contentID)
	if err != nil {
		return err
	}
	if _, err := w.Write(v); err != nil {
		return err
	}
	return w.WriteByte(c.stopByte)
}
