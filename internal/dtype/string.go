package dtype

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/heap"
	"github.com/robert-malhotra/go-boutdata/internal/message"
)

// Strings decodes n text elements. Variable-length strings are fetched from
// the global heap through heaps; offsetSize is the file's address width.
func Strings(dt *message.Datatype, raw []byte, n int, heaps *heap.GlobalHeaps, offsetSize int) ([]string, error) {
	out := make([]string, n)
	switch {
	case dt.Class == message.ClassString:
		size := int(dt.Size)
		if len(raw) < n*size {
			return nil, fmt.Errorf("decoding %d strings of %d bytes from %d bytes", n, size, len(raw))
		}
		for i := range out {
			out[i] = trim(raw[i*size:(i+1)*size], dt.Padding)
		}
	case dt.Class == message.ClassVarLen && dt.VarLenString:
		if heaps == nil {
			return nil, fmt.Errorf("%w: variable-length string without a heap", ErrUnsupported)
		}
		size := 8 + offsetSize
		if len(raw) < n*size {
			return nil, fmt.Errorf("decoding %d variable-length strings from %d bytes", n, len(raw))
		}
		for i := range out {
			length, id, err := heap.ParseVarLen(raw[i*size:], offsetSize)
			if err != nil {
				return nil, err
			}
			if length == 0 || id.Collection == 0 {
				continue
			}
			obj, err := heaps.Object(id)
			if err != nil {
				return nil, err
			}
			out[i] = trim(obj[:min(int(length), len(obj))], message.PadNullTerm)
		}
	default:
		return nil, fmt.Errorf("%w: %s is not text", ErrUnsupported, dt.Class)
	}
	return out, nil
}

// Chars joins a one-dimensional array of single characters, the way
// NetCDF-4 stores char variables.
func Chars(dt *message.Datatype, raw []byte) (string, bool) {
	if dt.Class != message.ClassString || dt.Size != 1 {
		return "", false
	}
	return trim(raw, message.PadNullTerm), true
}

func trim(b []byte, pad message.StringPadding) string {
	switch pad {
	case message.PadSpacePad:
		b = bytes.TrimRight(b, " ")
	default:
		if i := bytes.IndexByte(b, 0); i >= 0 {
			b = b[:i]
		}
	}
	return string(b)
}
