// Package xsettings decodes the _XSETTINGS_SETTINGS property published by
// an XSETTINGS manager and tracks the desktop scale factor it carries.
package xsettings

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ScaleSetting is the integer setting holding the window scale.
const ScaleSetting = "Gdk/WindowScalingFactor"

// Type of a setting value.
type Type byte

const (
	TypeInteger Type = 0
	TypeString  Type = 1
	TypeColor   Type = 2
)

func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeString:
		return "string"
	case TypeColor:
		return "color"
	}
	return fmt.Sprintf("type(%d)", byte(t))
}

var (
	ErrTruncated = errors.New("xsettings: truncated property")
	ErrMalformed = errors.New("xsettings: malformed property")
	ErrNotFound  = errors.New("xsettings: setting not found")
)

// Color is a 16 bit per channel colour value.
type Color struct {
	Red, Green, Blue, Alpha uint16
}

// Setting is one decoded entry. Only the field matching Type is set.
type Setting struct {
	Name   string
	Type   Type
	Serial uint32

	Int    int32
	String string
	Color  Color
}

// Value returns the payload as an interface value for printing.
func (s Setting) Value() interface{} {
	switch s.Type {
	case TypeInteger:
		return s.Int
	case TypeString:
		return s.String
	default:
		return s.Color
	}
}

// Settings is a whole decoded property.
type Settings struct {
	Serial  uint32
	Entries []Setting
}

// Parse decodes every entry in the blob.
func Parse(blob []byte) (*Settings, error) {
	r, n, err := newReader(blob)
	if err != nil {
		return nil, err
	}
	out := &Settings{Serial: r.serial, Entries: make([]Setting, 0, min(n, 64))}
	for i := uint32(0); i < n; i++ {
		s, err := r.next()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out.Entries = append(out.Entries, s)
	}
	return out, nil
}

// FindInt scans the blob for an integer setting named name and stops at the
// first match. A truncated or malformed record before the match aborts the
// scan.
func FindInt(blob []byte, name string) (int32, error) {
	r, n, err := newReader(blob)
	if err != nil {
		return 0, err
	}
	for i := uint32(0); i < n; i++ {
		s, err := r.next()
		if err != nil {
			return 0, err
		}
		if s.Name == name && s.Type == TypeInteger {
			return s.Int, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
}

type reader struct {
	order  binary.ByteOrder
	buf    []byte
	serial uint32
}

func newReader(blob []byte) (*reader, uint32, error) {
	if len(blob) < 12 {
		return nil, 0, ErrTruncated
	}
	r := &reader{}
	// X11 byte order codes: LSBFirst is 0, MSBFirst is 1.
	switch blob[0] {
	case 0:
		r.order = binary.LittleEndian
	case 1:
		r.order = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("%w: byte order %d", ErrMalformed, blob[0])
	}
	r.buf = blob[4:]
	r.serial, _ = r.u32()
	n, _ := r.u32()
	return r, n, nil
}

func (r *reader) u16() (uint16, error) {
	if len(r.buf) < 2 {
		return 0, ErrTruncated
	}
	v := r.order.Uint16(r.buf)
	r.buf = r.buf[2:]
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if len(r.buf) < 4 {
		return 0, ErrTruncated
	}
	v := r.order.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v, nil
}

// padded reads n bytes followed by padding to a 4 byte boundary.
func (r *reader) padded(n int) ([]byte, error) {
	total := (n + 3) &^ 3
	if n < 0 || len(r.buf) < total {
		return nil, ErrTruncated
	}
	v := r.buf[:n]
	r.buf = r.buf[total:]
	return v, nil
}

func (r *reader) next() (Setting, error) {
	var s Setting
	if len(r.buf) < 2 {
		return s, ErrTruncated
	}
	s.Type = Type(r.buf[0])
	r.buf = r.buf[2:]

	nameLen, err := r.u16()
	if err != nil {
		return s, err
	}
	name, err := r.padded(int(nameLen))
	if err != nil {
		return s, err
	}
	s.Name = string(name)
	if s.Serial, err = r.u32(); err != nil {
		return s, err
	}

	switch s.Type {
	case TypeInteger:
		v, err := r.u32()
		if err != nil {
			return s, err
		}
		s.Int = int32(v)
	case TypeString:
		n, err := r.u32()
		if err != nil {
			return s, err
		}
		if uint64(n) > uint64(len(r.buf)) {
			return s, ErrTruncated
		}
		v, err := r.padded(int(n))
		if err != nil {
			return s, err
		}
		s.String = string(v)
	case TypeColor:
		var c [4]uint16
		for i := range c {
			if c[i], err = r.u16(); err != nil {
				return s, err
			}
		}
		s.Color = Color{Red: c[0], Green: c[1], Blue: c[2], Alpha: c[3]}
	default:
		return s, fmt.Errorf("%w: setting %q has type %d", ErrMalformed, s.Name, byte(s.Type))
	}
	return s, nil
}
