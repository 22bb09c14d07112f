// Package dtype turns raw HDF5 element bytes into Go values. Numeric data
// decodes to float64 or int64 whatever its stored width, and text decodes
// to string from fixed-length or variable-length storage.
package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/robert-malhotra/go-boutdata/internal/message"
)

// ErrUnsupported is returned for element encodings this package cannot decode.
var ErrUnsupported = errors.New("unsupported datatype")

// Name is a short numpy-style name for the element type, e.g. "float64".
func Name(dt *message.Datatype) string {
	switch dt.Class {
	case message.ClassFloatPoint:
		return fmt.Sprintf("float%d", dt.Size*8)
	case message.ClassFixedPoint:
		if dt.Signed {
			return fmt.Sprintf("int%d", dt.Size*8)
		}
		return fmt.Sprintf("uint%d", dt.Size*8)
	case message.ClassEnum:
		if dt.Base != nil {
			return Name(dt.Base)
		}
	}
	if dt.IsString() {
		return "string"
	}
	return dt.Class.String()
}

func order(dt *message.Datatype) binary.ByteOrder {
	if dt.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Number decodes to T from any integer or floating point element.
type Number interface {
	~float64 | ~int64
}

// Decode converts n elements of raw into numbers.
func Decode[T Number](dt *message.Datatype, raw []byte, n int) ([]T, error) {
	if dt.Class == message.ClassEnum && dt.Base != nil {
		return Decode[T](dt.Base, raw, n)
	}
	size := int(dt.Size)
	if size <= 0 || len(raw) < n*size {
		return nil, fmt.Errorf("decoding %d %s elements from %d bytes", n, Name(dt), len(raw))
	}
	bo := order(dt)
	out := make([]T, n)

	switch dt.Class {
	case message.ClassFloatPoint:
		switch size {
		case 4:
			for i := range out {
				out[i] = T(math.Float32frombits(bo.Uint32(raw[i*4:])))
			}
		case 8:
			for i := range out {
				out[i] = T(math.Float64frombits(bo.Uint64(raw[i*8:])))
			}
		default:
			return nil, fmt.Errorf("%w: %d-byte float", ErrUnsupported, size)
		}
	case message.ClassFixedPoint:
		for i := range out {
			out[i] = T(integer(raw[i*size:(i+1)*size], bo, dt.Signed))
		}
	default:
		return nil, fmt.Errorf("%w: %s is not numeric", ErrUnsupported, dt.Class)
	}
	return out, nil
}

// integer sign-extends or zero-extends a 1, 2, 4 or 8 byte field. Unsigned
// 64-bit values above the int64 range wrap; callers decoding to float64
// see the wrapped value.
func integer(b []byte, bo binary.ByteOrder, signed bool) int64 {
	switch len(b) {
	case 1:
		if signed {
			return int64(int8(b[0]))
		}
		return int64(b[0])
	case 2:
		if signed {
			return int64(int16(bo.Uint16(b)))
		}
		return int64(bo.Uint16(b))
	case 4:
		if signed {
			return int64(int32(bo.Uint32(b)))
		}
		return int64(bo.Uint32(b))
	default:
		return int64(bo.Uint64(b))
	}
}
