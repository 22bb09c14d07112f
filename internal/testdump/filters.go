package testdump

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/robert-malhotra/go-boutdata/internal/filter"
)

// encodeFilters runs the write side of the pipeline ids over one chunk.
func encodeFilters(ids []uint16, data []byte, elemSize int) ([]byte, error) {
	for _, id := range ids {
		var err error
		switch id {
		case filter.IDShuffle:
			data = shuffle(data, elemSize)
		case filter.IDDeflate:
			var buf bytes.Buffer
			w := zlib.NewWriter(&buf)
			if _, err = w.Write(data); err == nil {
				err = w.Close()
			}
			data = buf.Bytes()
		case filter.IDFletcher32:
			data = binary.LittleEndian.AppendUint32(append([]byte(nil), data...), filter.Fletcher32(data))
		case filter.IDLZ4:
			data, err = lz4Frame(data)
		case filter.IDZstd:
			var zw *zstd.Encoder
			if zw, err = zstd.NewWriter(nil); err == nil {
				data = zw.EncodeAll(data, nil)
				err = zw.Close()
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func shuffle(data []byte, size int) []byte {
	n := len(data) / size
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for b := 0; b < size; b++ {
			out[b*n+i] = data[i*size+b]
		}
	}
	copy(out[n*size:], data[n*size:])
	return out
}

// lz4Frame writes the HDF5 LZ4 plugin framing with a single block.
func lz4Frame(data []byte) ([]byte, error) {
	var c lz4.Compressor
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := c.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}
	block := dst[:n]
	if n == 0 || n >= len(data) {
		block = data
	}
	out := binary.BigEndian.AppendUint64(nil, uint64(len(data)))
	out = binary.BigEndian.AppendUint32(out, uint32(len(data)))
	out = binary.BigEndian.AppendUint32(out, uint32(len(block)))
	return append(out, block...), nil
}

// clientData is what the HDF5 library stores for each filter.
func clientData(id uint16, elemSize int) []uint32 {
	switch id {
	case filter.IDDeflate:
		return []uint32{6}
	case filter.IDShuffle:
		return []uint32{uint32(elemSize)}
	}
	return nil
}
