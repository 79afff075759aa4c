package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Uint8 declares a single byte field
func Uint8[T any](name string, get func(*T) *uint8) Field[T] {
	return Field[T]{
		Name: name,
		Size: 1,
		Decode: func(b []byte, v *T) error {
			*get(v) = b[0]
			return nil
		},
		Encode: func(b []byte, v *T) error {
			b[0] = *get(v)
			return nil
		},
	}
}

// Uint16 declares a big-endian 16-bit field
func Uint16[T any](name string, get func(*T) *uint16) Field[T] {
	return Field[T]{
		Name: name,
		Size: 2,
		Decode: func(b []byte, v *T) error {
			*get(v) = binary.BigEndian.Uint16(b)
			return nil
		},
		Encode: func(b []byte, v *T) error {
			binary.BigEndian.PutUint16(b, *get(v))
			return nil
		},
	}
}

// Uint32 declares a big-endian 32-bit field
func Uint32[T any](name string, get func(*T) *uint32) Field[T] {
	return Field[T]{
		Name: name,
		Size: 4,
		Decode: func(b []byte, v *T) error {
			*get(v) = binary.BigEndian.Uint32(b)
			return nil
		},
		Encode: func(b []byte, v *T) error {
			binary.BigEndian.PutUint32(b, *get(v))
			return nil
		},
	}
}

// Uint16In declares a 16-bit field restricted to lo..hi
func Uint16In[T any](name string, lo, hi uint16, get func(*T) *uint16) Field[T] {
	f := Uint16(name, get)
	return bounded(f, name, uint32(lo), uint32(hi), func(v *T) uint32 { return uint32(*get(v)) },
		func(b []byte) uint32 { return uint32(binary.BigEndian.Uint16(b)) })
}

// Uint32In declares a 32-bit field restricted to lo..hi
func Uint32In[T any](name string, lo, hi uint32, get func(*T) *uint32) Field[T] {
	f := Uint32(name, get)
	return bounded(f, name, lo, hi, func(v *T) uint32 { return *get(v) }, binary.BigEndian.Uint32)
}

func bounded[T any](f Field[T], name string, lo, hi uint32, value func(*T) uint32, raw func([]byte) uint32) Field[T] {
	dec, enc := f.Decode, f.Encode
	domain := fmt.Sprintf("%d..%d", lo, hi)
	f.Decode = func(b []byte, v *T) error {
		if x := raw(b); x < lo || x > hi {
			return &FormatError{Expected: "value in " + domain, Actual: fmt.Sprint(x)}
		}
		return dec(b, v)
	}
	f.Encode = func(b []byte, v *T) error {
		if x := value(v); x < lo || x > hi {
			return Invalid(name, x, domain)
		}
		return enc(b, v)
	}
	return f
}

// Bytes declares an opaque, position-preserving blob of n bytes.
// get must return a view of exactly n bytes.
func Bytes[T any](name string, n int, get func(*T) []byte) Field[T] {
	return Field[T]{
		Name: name,
		Size: n,
		Decode: func(b []byte, v *T) error {
			copy(get(v), b)
			return nil
		},
		Encode: func(b []byte, v *T) error {
			copy(b, get(v))
			return nil
		},
	}
}

// Magic declares a constant header that must match want in both directions
func Magic[T any](name string, want []byte, get func(*T) []byte) Field[T] {
	return Field[T]{
		Name: name,
		Size: len(want),
		Decode: func(b []byte, v *T) error {
			if !bytes.Equal(b, want) {
				return &FormatError{Expected: fmt.Sprintf("% X", want), Actual: fmt.Sprintf("% X", b)}
			}
			copy(get(v), b)
			return nil
		},
		Encode: func(b []byte, v *T) error {
			got := get(v)
			if !bytes.Equal(got, want) {
				return Invalid(name, fmt.Sprintf("% X", got), fmt.Sprintf("% X", want))
			}
			copy(b, got)
			return nil
		},
	}
}

// Enum8 declares a one-byte closed enumeration
func Enum8[T any, E interface {
	~uint8
	Valid() bool
}](name string, get func(*T) *E) Field[T] {
	return Field[T]{
		Name: name,
		Size: 1,
		Decode: func(b []byte, v *T) error {
			e := E(b[0])
			if !e.Valid() {
				return &FormatError{Expected: "known " + name + " value", Actual: fmt.Sprint(b[0])}
			}
			*get(v) = e
			return nil
		},
		Encode: func(b []byte, v *T) error {
			e := *get(v)
			if !e.Valid() {
				return Invalid(name, uint8(e), "closed enumeration")
			}
			b[0] = uint8(e)
			return nil
		},
	}
}

// Enum32 declares a big-endian 32-bit closed enumeration
func Enum32[T any, E interface {
	~uint32
	Valid() bool
}](name string, get func(*T) *E) Field[T] {
	return Field[T]{
		Name: name,
		Size: 4,
		Decode: func(b []byte, v *T) error {
			raw := binary.BigEndian.Uint32(b)
			e := E(raw)
			if !e.Valid() {
				return &FormatError{Expected: "known " + name + " value", Actual: fmt.Sprint(raw)}
			}
			*get(v) = e
			return nil
		},
		Encode: func(b []byte, v *T) error {
			e := *get(v)
			if !e.Valid() {
				return Invalid(name, uint32(e), "closed enumeration")
			}
			binary.BigEndian.PutUint32(b, uint32(e))
			return nil
		},
	}
}

// Nested declares a sub-record with its own layout
func Nested[T, U any](name string, l *Layout[U], get func(*T) *U) Field[T] {
	return Field[T]{
		Name: name,
		Size: l.size,
		Decode: func(b []byte, v *T) error {
			return l.decode(b, get(v))
		},
		Encode: func(b []byte, v *T) error {
			return l.encode(b, get(v))
		},
	}
}

// Array declares n consecutive sub-records sharing one layout
func Array[T, U any](name string, n int, l *Layout[U], get func(*T, int) *U) Field[T] {
	return Field[T]{
		Name: name,
		Size: n * l.size,
		Decode: func(b []byte, v *T) error {
			for i := 0; i < n; i++ {
				off := i * l.size
				if err := l.decode(b[off:off+l.size], get(v, i)); err != nil {
					return index(err, i, off)
				}
			}
			return nil
		},
		Encode: func(b []byte, v *T) error {
			for i := 0; i < n; i++ {
				off := i * l.size
				if err := l.encode(b[off:off+l.size], get(v, i)); err != nil {
					return fmt.Errorf("%s[%d]: %w", name, i, err)
				}
			}
			return nil
		},
	}
}

func index(err error, i, off int) error {
	var fe *FormatError
	if !errors.As(err, &fe) {
		return err
	}
	fe.Offset += off
	if fe.Field == "" {
		fe.Field = fmt.Sprintf("[%d]", i)
	} else {
		fe.Field = fmt.Sprintf("[%d].%s", i, fe.Field)
	}
	return fe
}

// Rows declares n consecutive fixed-size blobs, for tables of opaque per-track values.
// get must return a view of exactly size bytes for row i.
func Rows[T any](name string, n, size int, get func(*T, int) []byte) Field[T] {
	return Field[T]{
		Name: name,
		Size: n * size,
		Decode: func(b []byte, v *T) error {
			for i := 0; i < n; i++ {
				copy(get(v, i), b[i*size:(i+1)*size])
			}
			return nil
		},
		Encode: func(b []byte, v *T) error {
			for i := 0; i < n; i++ {
				copy(b[i*size:(i+1)*size], get(v, i))
			}
			return nil
		},
	}
}
