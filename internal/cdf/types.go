package cdf

import "fmt"

// Type is a NetCDF external data type.
type Type uint32

const (
	Byte   Type = 1
	Char   Type = 2
	Short  Type = 3
	Int    Type = 4
	Float  Type = 5
	Double Type = 6

	// CDF-5 only.
	UByte  Type = 7
	UShort Type = 8
	UInt   Type = 9
	Int64  Type = 10
	UInt64 Type = 11
)

var typeNames = map[Type]string{
	Byte: "int8", Char: "char", Short: "int16", Int: "int32", Float: "float32", Double: "float64",
	UByte: "uint8", UShort: "uint16", UInt: "uint32", Int64: "int64", UInt64: "uint64",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// Size is the encoded width of one element.
func (t Type) Size() int {
	switch t {
	case Byte, Char, UByte:
		return 1
	case Short, UShort:
		return 2
	case Int, Float, UInt:
		return 4
	case Double, Int64, UInt64:
		return 8
	}
	return 0
}

// IsFloat reports whether t is a floating point type.
func (t Type) IsFloat() bool { return t == Float || t == Double }

func (t Type) valid(version uint8) bool {
	if t >= Byte && t <= Double {
		return true
	}
	return version == 5 && t >= UByte && t <= UInt64
}
