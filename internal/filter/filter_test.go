package filter

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-boutdata/internal/message"
)

// chunk is a run of float64 values with plenty of repetition.
func chunk() []byte {
	var b []byte
	for i := 0; i < 512; i++ {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(float64(i%17)*0.25))
	}
	return b
}

func deflateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func shuffleBytes(data []byte, size int) []byte {
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

// lz4Frame writes the plugin framing with blocks of at most block bytes.
func lz4Frame(t *testing.T, data []byte, block int) []byte {
	t.Helper()
	out := binary.BigEndian.AppendUint64(nil, uint64(len(data)))
	out = binary.BigEndian.AppendUint32(out, uint32(block))
	var c lz4.Compressor
	for len(data) > 0 {
		raw := data[:min(block, len(data))]
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := c.CompressBlock(raw, dst)
		require.NoError(t, err)
		stored := dst[:n]
		if n == 0 || n >= len(raw) {
			stored = raw
		}
		out = binary.BigEndian.AppendUint32(out, uint32(len(stored)))
		out = append(out, stored...)
		data = data[len(raw):]
	}
	return out
}

func TestDeflate(t *testing.T) {
	f, err := New(message.FilterInfo{ID: IDDeflate, ClientData: []uint32{6}}, 8)
	require.NoError(t, err)
	assert.Equal(t, IDDeflate, f.ID())

	got, err := f.Decode(deflateBytes(t, chunk()))
	require.NoError(t, err)
	assert.Equal(t, chunk(), got)

	_, err = f.Decode([]byte("not zlib"))
	assert.Error(t, err)
}

func TestShuffle(t *testing.T) {
	data := append(chunk(), 0xaa, 0xbb, 0xcc)

	f, err := New(message.FilterInfo{ID: IDShuffle, ClientData: []uint32{8}}, 4)
	require.NoError(t, err)
	got, err := f.Decode(shuffleBytes(data, 8))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Without client data the element size of the dataset applies.
	f, err = New(message.FilterInfo{ID: IDShuffle}, 4)
	require.NoError(t, err)
	got, err = f.Decode(shuffleBytes(data, 4))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	one := []byte{1, 2, 3, 4}
	got, err = f.Decode(one)
	require.NoError(t, err)
	assert.Equal(t, one, got)
}

func TestFletcher32(t *testing.T) {
	assert.Equal(t, uint32(0x01020102), Fletcher32([]byte{0x01, 0x02}))
	assert.Equal(t, uint32(0x05040402), Fletcher32([]byte{0x01, 0x02, 0x03}))
	assert.Equal(t, uint32(0), Fletcher32(nil))

	data := chunk()
	stored := binary.LittleEndian.AppendUint32(append([]byte(nil), data...), Fletcher32(data))
	f, err := New(message.FilterInfo{ID: IDFletcher32}, 8)
	require.NoError(t, err)
	got, err := f.Decode(stored)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	stored[10] ^= 0xff
	_, err = f.Decode(stored)
	assert.ErrorIs(t, err, ErrChecksum)

	_, err = f.Decode([]byte{1, 2})
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestLZ4(t *testing.T) {
	f, err := New(message.FilterInfo{ID: IDLZ4}, 8)
	require.NoError(t, err)

	for _, block := range []int{len(chunk()), 1000, 64} {
		got, err := f.Decode(lz4Frame(t, chunk(), block))
		require.NoError(t, err, "block %d", block)
		assert.Equal(t, chunk(), got, "block %d", block)
	}

	framed := lz4Frame(t, chunk(), 1000)
	_, err = f.Decode(framed[:len(framed)-10])
	assert.ErrorContains(t, err, "truncated")
	_, err = f.Decode(framed[:8])
	assert.ErrorContains(t, err, "header")
}

func TestZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll(chunk(), nil)
	require.NoError(t, enc.Close())

	f, err := New(message.FilterInfo{ID: IDZstd}, 8)
	require.NoError(t, err)
	got, err := f.Decode(compressed)
	require.NoError(t, err)
	assert.Equal(t, chunk(), got)

	_, err = f.Decode([]byte{1, 2, 3, 4, 5})
	assert.Error(t, err)
}

func TestPipeline(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: IDShuffle, ClientData: []uint32{8}},
		{ID: IDDeflate, ClientData: []uint32{4}},
		{ID: IDFletcher32},
	}}
	p, err := NewPipeline(fp, 8)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	data := chunk()
	packed := deflateBytes(t, shuffleBytes(data, 8))
	packed = binary.LittleEndian.AppendUint32(packed, Fletcher32(packed))
	got, err := p.Decode(packed, 0)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Mask bit 1 marks deflate as skipped for this chunk.
	raw := shuffleBytes(data, 8)
	raw = binary.LittleEndian.AppendUint32(raw, Fletcher32(raw))
	got, err = p.Decode(raw, 0b010)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = p.Decode(raw, 0)
	assert.ErrorContains(t, err, "filter 1")

	empty, err := NewPipeline(nil, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	got, err = empty.Decode(data, 0)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestUnsupported(t *testing.T) {
	_, err := New(message.FilterInfo{ID: 307, Name: "bzip2"}, 8)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorContains(t, err, "bzip2")

	_, err = NewPipeline(&message.FilterPipeline{Filters: []message.FilterInfo{{ID: 4}}}, 8)
	assert.ErrorContains(t, err, "unnamed")
}
