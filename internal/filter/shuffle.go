package filter

import "github.com/robert-malhotra/go-boutdata/internal/message"

// shuffle undoes byte shuffling: the writer stores byte 0 of every element,
// then byte 1 of every element, and so on.
type shuffle struct {
	size int
}

func newShuffle(info message.FilterInfo, elemSize int) Filter {
	if len(info.ClientData) > 0 && info.ClientData[0] > 0 {
		elemSize = int(info.ClientData[0])
	}
	return shuffle{size: elemSize}
}

func (shuffle) ID() uint16 { return IDShuffle }

func (f shuffle) Decode(input []byte) ([]byte, error) {
	n := 0
	if f.size > 1 {
		n = len(input) / f.size
	}
	if n <= 1 {
		return input, nil
	}
	out := make([]byte, len(input))
	for b := 0; b < f.size; b++ {
		plane := input[b*n : (b+1)*n]
		for i, v := range plane {
			out[i*f.size+b] = v
		}
	}
	// Bytes past the last whole element are stored as-is.
	copy(out[n*f.size:], input[n*f.size:])
	return out, nil
}
