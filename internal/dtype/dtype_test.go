package dtype

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-boutdata/internal/message"
)

func TestName(t *testing.T) {
	tests := []struct {
		dt   message.Datatype
		want string
	}{
		{message.Datatype{Class: message.ClassFloatPoint, Size: 8}, "float64"},
		{message.Datatype{Class: message.ClassFloatPoint, Size: 4}, "float32"},
		{message.Datatype{Class: message.ClassFixedPoint, Size: 4, Signed: true}, "int32"},
		{message.Datatype{Class: message.ClassFixedPoint, Size: 2}, "uint16"},
		{message.Datatype{Class: message.ClassEnum, Base: &message.Datatype{Class: message.ClassFixedPoint, Size: 1, Signed: true}}, "int8"},
		{message.Datatype{Class: message.ClassString, Size: 12}, "string"},
		{message.Datatype{Class: message.ClassCompound}, "compound"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Name(&tt.dt))
	}
}

func TestDecode(t *testing.T) {
	f64 := &message.Datatype{Class: message.ClassFloatPoint, Size: 8}
	var raw []byte
	for _, v := range []float64{1.5, -2, 1e300} {
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(v))
	}
	got, err := Decode[float64](f64, raw, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2, 1e300}, got)

	f32be := &message.Datatype{Class: message.ClassFloatPoint, Size: 4, BigEndian: true}
	got, err = Decode[float64](f32be, binary.BigEndian.AppendUint32(nil, math.Float32bits(0.1)), 1)
	require.NoError(t, err)
	assert.Equal(t, float64(float32(0.1)), got[0])

	i16 := &message.Datatype{Class: message.ClassFixedPoint, Size: 2, Signed: true}
	ints, err := Decode[int64](i16, []byte{0xff, 0xff, 0x02, 0x00}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, 2}, ints)

	u8 := &message.Datatype{Class: message.ClassFixedPoint, Size: 1}
	ints, err = Decode[int64](u8, []byte{0xff}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{255}, ints)

	_, err = Decode[float64](f64, raw[:20], 3)
	assert.Error(t, err)

	_, err = Decode[float64](&message.Datatype{Class: message.ClassString, Size: 4}, []byte("abcd"), 1)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Decode[float64](&message.Datatype{Class: message.ClassFloatPoint, Size: 2}, []byte{0, 0}, 1)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestStrings(t *testing.T) {
	fixed := &message.Datatype{Class: message.ClassString, Size: 6}
	got, err := Strings(fixed, []byte("ddt\x00\x00\x00phi\x00xy"), 2, nil, 8)
	require.NoError(t, err)
	assert.Equal(t, []string{"ddt", "phi"}, got)

	spaced := &message.Datatype{Class: message.ClassString, Size: 5, Padding: message.PadSpacePad}
	got, err = Strings(spaced, []byte("Ni   "), 1, nil, 8)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ni"}, got)

	_, err = Strings(fixed, []byte("short"), 1, nil, 8)
	assert.Error(t, err)

	vlen := &message.Datatype{Class: message.ClassVarLen, VarLenString: true}
	_, err = Strings(vlen, make([]byte, 16), 1, nil, 8)
	assert.ErrorIs(t, err, ErrUnsupported)

	s, ok := Chars(&message.Datatype{Class: message.ClassString, Size: 1}, []byte("BOUT\x00"))
	assert.True(t, ok)
	assert.Equal(t, "BOUT", s)
	_, ok = Chars(fixed, nil)
	assert.False(t, ok)
}
