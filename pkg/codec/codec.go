// Package codec provides declarative big-endian byte layouts for fixed-size records.
//
// A Layout is an ordered list of Field descriptors that covers the whole byte
// image of a record type. The same list drives Decode and Encode, so the two
// directions cannot drift apart.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

// Field describes one region of a record's byte image
type Field[T any] struct {
	Name string
	Size int
	// Decode reads exactly Size bytes into v
	Decode func(b []byte, v *T) error
	// Encode writes exactly Size bytes from v
	Encode func(b []byte, v *T) error
}

// Layout is the ordered field declaration for a record type
type Layout[T any] struct {
	name   string
	fields []Field[T]
	size   int
}

// NewLayout declares a layout from fields in byte order
func NewLayout[T any](name string, fields ...Field[T]) *Layout[T] {
	l := &Layout[T]{name: name, fields: fields}
	for _, f := range fields {
		l.size += f.Size
	}
	return l
}

// Name returns the record name used in errors
func (l *Layout[T]) Name() string {
	return l.name
}

// Size returns the encoded length in bytes
func (l *Layout[T]) Size() int {
	return l.size
}

// Fields returns the field names in declaration order
func (l *Layout[T]) Fields() []string {
	names := make([]string, len(l.fields))
	for i, f := range l.fields {
		names[i] = f.Name
	}
	return names
}

// Decode parses data into a new record
func (l *Layout[T]) Decode(data []byte) (*T, error) {
	v := new(T)
	if err := l.DecodeInto(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeInto parses data into v, which is left partially filled on error
func (l *Layout[T]) DecodeInto(data []byte, v *T) error {
	if len(data) != l.size {
		return &FormatError{
			Record:   l.name,
			Offset:   min(len(data), l.size),
			Expected: fmt.Sprintf("%d bytes", l.size),
			Actual:   fmt.Sprintf("%d bytes", len(data)),
		}
	}
	return l.decode(data, v)
}

// Encode serializes v; the result is always Size bytes long
func (l *Layout[T]) Encode(v *T) ([]byte, error) {
	b := make([]byte, l.size)
	if err := l.encode(b, v); err != nil {
		return nil, err
	}
	return b, nil
}

func (l *Layout[T]) decode(data []byte, v *T) error {
	off := 0
	for _, f := range l.fields {
		if err := f.Decode(data[off:off+f.Size], v); err != nil {
			return l.locate(err, f.Name, off)
		}
		off += f.Size
	}
	return nil
}

func (l *Layout[T]) encode(b []byte, v *T) error {
	off := 0
	for _, f := range l.fields {
		if err := f.Encode(b[off:off+f.Size], v); err != nil {
			return fmt.Errorf("failed to encode %s: %w", l.name, err)
		}
		off += f.Size
	}
	return nil
}

// locate rebases a nested FormatError onto this layout
func (l *Layout[T]) locate(err error, field string, off int) error {
	var fe *FormatError
	if !errors.As(err, &fe) {
		return err
	}
	fe.Offset += off
	fe.Record = l.name
	switch {
	case fe.Field == "":
		fe.Field = field
	case strings.HasPrefix(fe.Field, "["):
		fe.Field = field + fe.Field
	default:
		fe.Field = field + "." + fe.Field
	}
	return fe
}
