// Package block implements CRAM's typed, optionally compressed byte
// container: the Block type, its wire encoding, and the closed catalogue
// of compression methods blocks may be stored under.
package block

import (
	"bytes"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

// Block is a typed, optionally compressed byte container. Once Uncompress
// has run, Data holds exactly UncompressedSize bytes and ReadByte/ReadBytes
// and Bits read from it via two independent cursors, matching the source
// format's separate byte and bit cursors over the same buffer.
type Block struct {
	Method           Method
	ContentType      ContentType
	ContentID        int32
	CompressedSize   int32
	UncompressedSize int32

	Data []byte

	uncompressed bool
	byteReader   *bytes.Reader
	bits         *bitio.Reader
}

// ReadBlock parses a block from r: method, content type, content id,
// compressed size, uncompressed size, then compressed-size bytes of data.
// If withCRC is true (the default for all CRAM versions in practice), a
// trailing CRC-32 (IEEE 802.3) over the preceding bytes (header + data) is
// read and verified.
func ReadBlock(r io.Reader, withCRC bool) (*Block, error) {
	crc := crc32.NewIEEE()
	tr := io.TeeReader(r, crc)
	br := newByteReader(tr)

	methodByte, err := br.ReadByte()
	if err != nil {
		return nil, errors.Wrap(cramerr.ErrMalformedHeader, "block: method: "+err.Error())
	}
	typeByte, err := br.ReadByte()
	if err != nil {
		return nil, errors.Wrap(cramerr.ErrMalformedHeader, "block: content type: "+err.Error())
	}

	b := &Block{Method: Method(methodByte), ContentType: ContentType(typeByte)}
	if !b.Method.known() {
		return nil, errors.Wrapf(cramerr.ErrUnknownCompressionMethod, "block: method byte %d", methodByte)
	}

	if b.ContentID, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "block: content id")
	}
	if b.CompressedSize, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "block: compressed size")
	}
	if b.UncompressedSize, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "block: uncompressed size")
	}
	if b.Method == MethodRaw && b.CompressedSize != b.UncompressedSize {
		return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "block: raw method with compressed size %d != uncompressed size %d", b.CompressedSize, b.UncompressedSize)
	}
	if b.CompressedSize < 0 {
		return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "block: negative compressed size %d", b.CompressedSize)
	}

	b.Data = make([]byte, b.CompressedSize)
	if _, err := io.ReadFull(tr, b.Data); err != nil {
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "block: data: "+err.Error())
	}

	if withCRC {
		sum := crc.Sum32()
		var crcBuf [4]byte
		if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
			return nil, errors.Wrap(cramerr.ErrTruncatedInput, "block: crc32: "+err.Error())
		}
		got := uint32(crcBuf[0]) | uint32(crcBuf[1])<<8 | uint32(crcBuf[2])<<16 | uint32(crcBuf[3])<<24
		if got != sum {
			return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "block: crc32 mismatch got %#08x want %#08x", got, sum)
		}
	}

	return b, nil
}

// WriteTo serialises the block's header and (already-compressed) Data,
// optionally followed by a trailing CRC-32 over everything written.
func (b *Block) WriteTo(w io.Writer, withCRC bool) (int64, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte(byte(b.Method))
	buf.WriteByte(byte(b.ContentType))
	buf.Write(bitio.WriteITF8(b.ContentID))
	buf.Write(bitio.WriteITF8(b.CompressedSize))
	buf.Write(bitio.WriteITF8(b.UncompressedSize))
	buf.Write(b.Data)

	if withCRC {
		sum := crc32.ChecksumIEEE(buf.Bytes())
		var crcBuf [4]byte
		crcBuf[0] = byte(sum)
		crcBuf[1] = byte(sum >> 8)
		crcBuf[2] = byte(sum >> 16)
		crcBuf[3] = byte(sum >> 24)
		buf.Write(crcBuf[:])
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// NewRawBlock wraps data in an uncompressed block ready for WriteTo.
func NewRawBlock(contentType ContentType, contentID int32, data []byte) *Block {
	b := &Block{
		Method:           MethodRaw,
		ContentType:      contentType,
		ContentID:        contentID,
		CompressedSize:   int32(len(data)),
		UncompressedSize: int32(len(data)),
		Data:             data,
		uncompressed:     true,
	}
	b.resetCursors()
	return b
}

// Uncompress rewrites Data to hold UncompressedSize bytes, dispatching on
// Method. It is idempotent: a second call is a no-op.
func (b *Block) Uncompress() error {
	if b.uncompressed {
		return nil
	}
	raw, err := inflate(b.Method, b.Data, int(b.UncompressedSize))
	if err != nil {
		return err
	}
	if len(raw) != int(b.UncompressedSize) {
		return errors.Wrapf(cramerr.ErrMalformedHeader, "block: uncompressed %d bytes, header declared %d", len(raw), b.UncompressedSize)
	}
	b.Data = raw
	b.uncompressed = true
	b.resetCursors()
	return nil
}

// Compress replaces Data (assumed raw) with data compressed under method,
// updating CompressedSize/UncompressedSize accordingly.
func (b *Block) Compress(method Method) error {
	if !b.uncompressed {
		return errors.New("block: Compress: block is not in raw form")
	}
	raw := b.Data
	packed, err := deflate(method, raw)
	if err != nil {
		return err
	}
	b.Method = method
	b.UncompressedSize = int32(len(raw))
	b.CompressedSize = int32(len(packed))
	b.Data = packed
	b.uncompressed = method == MethodRaw
	if b.uncompressed {
		b.resetCursors()
	}
	return nil
}

func (b *Block) resetCursors() {
	b.byteReader = bytes.NewReader(b.Data)
	b.bits = bitio.NewReader(bytes.NewReader(b.Data))
}

// ReadByte reads a single byte via the block's byte cursor. Requires the
// block to already be uncompressed.
func (b *Block) ReadByte() (byte, error) {
	if !b.uncompressed {
		return 0, errors.New("block: ReadByte: block is still compressed")
	}
	c, err := b.byteReader.ReadByte()
	if err != nil {
		return 0, errors.Wrap(cramerr.ErrTruncatedInput, "block: ReadByte: "+err.Error())
	}
	return c, nil
}

// ReadBytes reads n bytes via the block's byte cursor.
func (b *Block) ReadBytes(n int) ([]byte, error) {
	if !b.uncompressed {
		return nil, errors.New("block: ReadBytes: block is still compressed")
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(b.byteReader, out); err != nil {
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "block: ReadBytes: "+err.Error())
	}
	return out, nil
}

// Bits returns the block's independent bit cursor, used by non-external
// codecs reading the CORE block's bitstream.
func (b *Block) Bits() (*bitio.Reader, error) {
	if !b.uncompressed {
		return nil, errors.New("block: Bits: block is still compressed")
	}
	return b.bits, nil
}

func newByteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return &singleByteReader{r: r}
}

type singleByteReader struct {
	r   io.Reader
	buf [1]byte
}

func (s *singleByteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		return 0, err
	}
	return s.buf[0], nil
}
