package filter

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

type deflate struct{}

func (deflate) ID() uint16 { return IDDeflate }

func (deflate) Decode(input []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
