package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DType identifies the element type of a persisted dataset
type DType uint8

const (
	Float64 DType = iota + 1
	Int8
	Int16
	Int32
	Int64
	String
)

func (dt DType) String() string {
	switch dt {
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case String:
		return "string"
	default:
		return fmt.Sprintf("DType(%d)", uint8(dt))
	}
}

// IsInt reports whether dt is one of the signed integer types
func (dt DType) IsInt() bool {
	return dt >= Int8 && dt <= Int64
}

// Width returns the number of bytes per element, 0 for strings
func (dt DType) Width() int {
	switch dt {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32:
		return 4
	case Float64, Int64:
		return 8
	default:
		return 0
	}
}

// FitIndexDType returns the smallest signed integer type holding every value
// in [0, maxVal]
func FitIndexDType(maxVal int) DType {
	switch {
	case maxVal <= math.MaxInt8:
		return Int8
	case maxVal <= math.MaxInt16:
		return Int16
	case maxVal <= math.MaxInt32:
		return Int32
	default:
		return Int64
	}
}

// Dataset is a typed n-D value: an array entry of a group or an attribute.
// Exactly one of Floats, Ints or Text is meaningful, selected by DType.
type Dataset struct {
	DType  DType
	Shape  []int // empty for scalars
	Floats []float64
	Ints   []int
	Text   string
}

// Len is the number of elements implied by Shape
func (ds *Dataset) Len() int {
	n := 1
	for _, d := range ds.Shape {
		n *= d
	}
	return n
}

// NewFloats returns a float dataset of the given shape; data is not copied
func NewFloats(shape []int, data []float64) *Dataset {
	return &Dataset{DType: Float64, Shape: append([]int(nil), shape...), Floats: data}
}

// NewFloatScalar returns a 0-D float dataset
func NewFloatScalar(v float64) *Dataset {
	return &Dataset{DType: Float64, Floats: []float64{v}}
}

// NewInts returns a 1-D integer dataset of type dt; data is not copied
func NewInts(dt DType, data []int) *Dataset {
	return &Dataset{DType: dt, Shape: []int{len(data)}, Ints: data}
}

// NewCompactInts returns a 1-D integer dataset using the narrowest type that
// holds all of data
func NewCompactInts(data []int) *Dataset {
	maxVal := 0
	for _, v := range data {
		if v < 0 {
			v = -v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return NewInts(FitIndexDType(maxVal), data)
}

// NewIntScalar returns a 0-D int64 dataset
func NewIntScalar(v int) *Dataset {
	return &Dataset{DType: Int64, Ints: []int{v}}
}

// NewString returns a string dataset
func NewString(s string) *Dataset {
	return &Dataset{DType: String, Text: s}
}

func (ds *Dataset) validate() error {
	switch {
	case ds.DType == Float64:
		if len(ds.Floats) != ds.Len() {
			return fmt.Errorf("float dataset has %d values for shape %v", len(ds.Floats), ds.Shape)
		}
	case ds.DType.IsInt():
		if len(ds.Ints) != ds.Len() {
			return fmt.Errorf("int dataset has %d values for shape %v", len(ds.Ints), ds.Shape)
		}
		lim := int64(1)<<(8*ds.DType.Width()-1) - 1
		for _, v := range ds.Ints {
			if int64(v) > lim || int64(v) < -lim-1 {
				return fmt.Errorf("value %d overflows %s", v, ds.DType)
			}
		}
	case ds.DType == String:
		if len(ds.Shape) != 0 {
			return fmt.Errorf("string datasets are scalar, got shape %v", ds.Shape)
		}
	default:
		return fmt.Errorf("unknown dtype %d", ds.DType)
	}
	for _, d := range ds.Shape {
		if d < 0 {
			return fmt.Errorf("negative dimension in shape %v", ds.Shape)
		}
	}
	return nil
}

// encode lays a dataset out as
//
//	[dtype:1][ndim:uvarint][dims:uvarint...][payload little endian]
func encode(ds *Dataset) ([]byte, error) {
	if err := ds.validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 2+binary.MaxVarintLen64*len(ds.Shape)+ds.Len()*max(ds.DType.Width(), 1)+len(ds.Text))
	buf = append(buf, byte(ds.DType))
	buf = binary.AppendUvarint(buf, uint64(len(ds.Shape)))
	for _, d := range ds.Shape {
		buf = binary.AppendUvarint(buf, uint64(d))
	}
	switch ds.DType {
	case Float64:
		for _, v := range ds.Floats {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	case Int8:
		for _, v := range ds.Ints {
			buf = append(buf, byte(int8(v)))
		}
	case Int16:
		for _, v := range ds.Ints {
			buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(v)))
		}
	case Int32:
		for _, v := range ds.Ints {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(v)))
		}
	case Int64:
		for _, v := range ds.Ints {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(v)))
		}
	case String:
		buf = append(buf, ds.Text...)
	}
	return buf, nil
}

func decode(buf []byte) (*Dataset, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: dataset header truncated", ErrCorrupt)
	}
	ds := &Dataset{DType: DType(buf[0])}
	if ds.DType < Float64 || ds.DType > String {
		return nil, fmt.Errorf("%w: unknown dtype %d", ErrCorrupt, buf[0])
	}
	pos := 1
	ndim, n := binary.Uvarint(buf[pos:])
	if n <= 0 || ndim > 16 {
		return nil, fmt.Errorf("%w: bad rank", ErrCorrupt)
	}
	pos += n
	if ndim > 0 {
		ds.Shape = make([]int, ndim)
	}
	for i := range ds.Shape {
		d, n := binary.Uvarint(buf[pos:])
		if n <= 0 || d > math.MaxInt32 {
			return nil, fmt.Errorf("%w: bad dimension %d", ErrCorrupt, i)
		}
		ds.Shape[i] = int(d)
		pos += n
	}
	payload := buf[pos:]
	if ds.DType == String {
		ds.Text = string(payload)
		return ds, nil
	}
	count := ds.Len()
	w := ds.DType.Width()
	if len(payload) != count*w {
		return nil, fmt.Errorf("%w: %s payload has %d bytes, want %d", ErrCorrupt, ds.DType, len(payload), count*w)
	}
	if ds.DType == Float64 {
		ds.Floats = make([]float64, count)
		for i := range ds.Floats {
			ds.Floats[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
		}
		return ds, nil
	}
	ds.Ints = make([]int, count)
	for i := range ds.Ints {
		switch ds.DType {
		case Int8:
			ds.Ints[i] = int(int8(payload[i]))
		case Int16:
			ds.Ints[i] = int(int16(binary.LittleEndian.Uint16(payload[i*2:])))
		case Int32:
			ds.Ints[i] = int(int32(binary.LittleEndian.Uint32(payload[i*4:])))
		case Int64:
			ds.Ints[i] = int(int64(binary.LittleEndian.Uint64(payload[i*8:])))
		}
	}
	return ds, nil
}
