package block

import (
	"bytes"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz/lzma"

	"github.com/go-cram/gocram/cramerr"
)

// inflate decompresses data under method, sizing the output buffer to
// hint (the block's declared UncompressedSize).
func inflate(method Method, data []byte, hint int) ([]byte, error) {
	switch method {
	case MethodRaw:
		return data, nil

	case MethodGzip:
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		return readAllHint(fr, hint)

	case MethodBzip2:
		br, err := bzip2.NewReader(bytes.NewReader(data), nil)
		if err != nil {
			return nil, errors.Wrap(err, "block: bzip2")
		}
		defer br.Close()
		return readAllHint(br, hint)

	case MethodLZMA:
		lr, err := lzma.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "block: lzma")
		}
		return readAllHint(lr, hint)

	case MethodRANS:
		return ransDecode(data)

	case MethodRANS4x16:
		return rans4x16Decode(data)

	case MethodTok3:
		return tok3Decode(data)

	default:
		return nil, errors.Wrapf(cramerr.ErrUnknownCompressionMethod, "block: inflate: method %v", method)
	}
}

// deflate compresses raw under method.
func deflate(method Method, raw []byte) ([]byte, error) {
	switch method {
	case MethodRaw:
		return raw, nil

	case MethodGzip:
		buf := new(bytes.Buffer)
		fw, err := flate.NewWriter(buf, flate.DefaultCompression)
		if err != nil {
			return nil, errors.Wrap(err, "block: gzip writer")
		}
		if _, err := fw.Write(raw); err != nil {
			return nil, err
		}
		if err := fw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case MethodBzip2:
		buf := new(bytes.Buffer)
		bw, err := bzip2.NewWriter(buf, nil)
		if err != nil {
			return nil, errors.Wrap(err, "block: bzip2 writer")
		}
		if _, err := bw.Write(raw); err != nil {
			return nil, err
		}
		if err := bw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case MethodLZMA:
		buf := new(bytes.Buffer)
		lw, err := lzma.NewWriter(buf)
		if err != nil {
			return nil, errors.Wrap(err, "block: lzma writer")
		}
		if _, err := lw.Write(raw); err != nil {
			return nil, err
		}
		if err := lw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case MethodRANS:
		return ransEncode(raw, 0)

	case MethodRANS4x16:
		return rans4x16Encode(raw)

	case MethodTok3:
		return tok3Encode(raw)

	default:
		return nil, errors.Wrapf(cramerr.ErrUnknownCompressionMethod, "block: deflate: method %v", method)
	}
}

func readAllHint(r io.Reader, hint int) ([]byte, error) {
	if hint < 0 {
		hint = 0
	}
	buf := bytes.NewBuffer(make([]byte, 0, hint))
	if _, err := io.Copy(buf, r); err != nil {
		return nil, errors.Wrap(err, "block: decompress")
	}
	return buf.Bytes(), nil
}
