package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/robert-malhotra/go-boutdata/collect"
)

// payload is the msgpack form of a collected array.
type payload struct {
	Name       string         `msgpack:"name"`
	Dims       []string       `msgpack:"dims"`
	Shape      []int          `msgpack:"shape"`
	DType      string         `msgpack:"dtype"`
	Data       []float64      `msgpack:"data,omitempty"`
	Strings    []string       `msgpack:"strings,omitempty"`
	Attributes map[string]any `msgpack:"attributes,omitempty"`
}

func writeMsgpack(w io.Writer, arr *collect.Array) error {
	return msgpack.NewEncoder(w).Encode(payload{
		Name:       arr.Name,
		Dims:       arr.Dims.Names(),
		Shape:      arr.Shape,
		DType:      arr.DType,
		Data:       arr.Data,
		Strings:    arr.Strings,
		Attributes: arr.Attributes,
	})
}

// writeText prints a header line, the attributes and then the values, one
// row of the last axis per line prefixed by the leading indices.
func writeText(w io.Writer, arr *collect.Array) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s %s %v %s\n", arr.Name, arr.Dims, arr.Shape, arr.DType)

	keys := make([]string, 0, len(arr.Attributes))
	for k := range arr.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(bw, "  %s = %v\n", k, arr.Attributes[k])
	}

	if arr.Strings != nil {
		for _, s := range arr.Strings {
			fmt.Fprintln(bw, strconv.Quote(s))
		}
		return bw.Flush()
	}
	if len(arr.Shape) == 0 {
		for _, v := range arr.Data {
			fmt.Fprintln(bw, formatValue(v))
		}
		return bw.Flush()
	}

	row := arr.Shape[len(arr.Shape)-1]
	if row == 0 {
		return bw.Flush()
	}
	lead := arr.Shape[:len(arr.Shape)-1]
	idx := make([]int, len(lead))
	cells := make([]string, row)
	for off := 0; off < len(arr.Data); off += row {
		for i, v := range arr.Data[off : off+row] {
			cells[i] = formatValue(v)
		}
		if len(lead) > 0 {
			fmt.Fprintf(bw, "%v ", idx)
		}
		fmt.Fprintln(bw, strings.Join(cells, " "))
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < lead[d] {
				break
			}
			idx[d] = 0
		}
	}
	return bw.Flush()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// digest hashes the values of arr: numbers as little-endian float64 bits,
// text as NUL-terminated strings.
func digest(arr *collect.Array) uint64 {
	h := xxhash.New()
	if arr.Strings != nil {
		for _, s := range arr.Strings {
			h.WriteString(s)
			h.Write([]byte{0})
		}
		return h.Sum64()
	}
	var buf [8]byte
	for _, v := range arr.Data {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}
