// Package edid decodes the identification fields of an EDID blob.
package edid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	blockSize = 128

	descriptorStart = 54
	descriptorSize  = 18

	tagSerial = 0xff
	tagText   = 0xfe
	tagName   = 0xfc
)

var (
	ErrShort  = errors.New("edid: blob shorter than one block")
	ErrHeader = errors.New("edid: bad header")

	header = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}
)

// Info is what a display reports about itself.
type Info struct {
	// Manufacturer is the three letter PNP id, e.g. "DEL".
	Manufacturer string
	ProductCode  uint16
	SerialNumber uint32

	// Model is the monitor name descriptor, or the hex product code.
	Model string
	// Serial is the serial descriptor, or the numeric serial when that is
	// non-zero.
	Serial string
}

// Parse decodes the base block of an EDID blob. Extension blocks are
// ignored.
func Parse(blob []byte) (*Info, error) {
	if len(blob) < blockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShort, len(blob))
	}
	if !bytes.Equal(blob[:len(header)], header) {
		return nil, ErrHeader
	}

	info := &Info{
		Manufacturer: decodePNP(binary.BigEndian.Uint16(blob[8:10])),
		ProductCode:  binary.LittleEndian.Uint16(blob[10:12]),
		SerialNumber: binary.LittleEndian.Uint32(blob[12:16]),
	}

	var name, serial string
	for off := descriptorStart; off+descriptorSize <= blockSize; off += descriptorSize {
		d := blob[off : off+descriptorSize]
		// Detailed timings have a non-zero pixel clock in the first two bytes.
		if d[0] != 0 || d[1] != 0 {
			continue
		}
		switch d[3] {
		case tagName:
			name = descriptorText(d)
		case tagSerial:
			serial = descriptorText(d)
		case tagText:
			if name == "" {
				name = descriptorText(d)
			}
		}
	}

	info.Model = name
	if info.Model == "" {
		info.Model = fmt.Sprintf("0x%04x", info.ProductCode)
	}
	info.Serial = serial
	if info.Serial == "" && info.SerialNumber != 0 {
		info.Serial = fmt.Sprintf("%d", info.SerialNumber)
	}
	return info, nil
}

// decodePNP unpacks three 5-bit letters, 'A' being 1.
func decodePNP(v uint16) string {
	letters := []byte{
		byte(v>>10&0x1f) + 'A' - 1,
		byte(v>>5&0x1f) + 'A' - 1,
		byte(v&0x1f) + 'A' - 1,
	}
	for _, c := range letters {
		if c < 'A' || c > 'Z' {
			return ""
		}
	}
	return string(letters)
}

func descriptorText(d []byte) string {
	text := d[5:descriptorSize]
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return -1
		}
		return r
	}, string(text)))
}
