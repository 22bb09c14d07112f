package binary

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup3KnownVectors(t *testing.T) {
	assert.Equal(t, uint32(0xdeadbeef), Lookup3Checksum(nil))
	assert.Equal(t, uint32(0x17770551), Lookup3Checksum([]byte("Four score and seven years ago")))
	assert.True(t, VerifyLookup3([]byte("Four score and seven years ago"), 0x17770551))
}

func TestLookup3LengthsDiffer(t *testing.T) {
	seen := map[uint32]int{}
	for n := 0; n <= 24; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		seen[Lookup3Checksum(data)] = n
	}
	assert.Len(t, seen, 25)
}

func TestReaderLittleEndian(t *testing.T) {
	data := []byte{
		0x42,
		0x02, 0x01,
		0x04, 0x03, 0x02, 0x01,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	r := NewReader(bytes.NewReader(data), DefaultConfig())

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x42), u8)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), u16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), u32)

	off, err := r.ReadOffset()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), off)
	assert.Equal(t, int64(len(data)), r.Pos())
}

func TestReaderBigEndian(t *testing.T) {
	data := []byte{0xff, 0xff, 0xff, 0xfe, 0x00, 0x00, 0x00, 0x0a}
	r := NewReader(bytes.NewReader(data), BigEndian())

	v, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-2), v)

	n, err := r.ReadLength()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), n)
}

func TestReaderShortRead(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}), DefaultConfig())
	_, err := r.ReadUint32()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, int64(0), r.Pos())
}

func TestReaderCursors(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	r := NewReader(bytes.NewReader(data), DefaultConfig())
	r.Skip(3)
	r.Align(8)
	assert.Equal(t, int64(8), r.Pos())

	fork := r.At(1)
	b, err := fork.ReadBytes(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)
	assert.Equal(t, int64(8), r.Pos())

	peek, err := r.Peek(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{8, 9}, peek)
	assert.Equal(t, int64(8), r.Pos())

	narrow := r.At(0).WithSizes(4, 2)
	off, err := narrow.ReadOffset()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x03020100), off)
	assert.Equal(t, 2, narrow.LengthSize())
}

func TestUndefinedAddress(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), DefaultConfig())
	assert.True(t, r.IsUndefinedOffset(0xffffffffffffffff))
	assert.False(t, r.IsUndefinedOffset(0))

	r4 := r.WithSizes(4, 4)
	assert.True(t, r4.IsUndefinedOffset(0xffffffff))
	assert.True(t, r4.IsUndefinedLength(0xffffffff))
}

func TestDecodeUintOddWidths(t *testing.T) {
	assert.Equal(t, uint64(0x030201), DecodeUint(binary.LittleEndian, []byte{1, 2, 3}))
	assert.Equal(t, uint64(0x010203), DecodeUint(binary.BigEndian, []byte{1, 2, 3}))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, Config{OffsetSize: 3, LengthSize: 8}.Validate(), ErrInvalidSize)
}
