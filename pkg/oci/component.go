package oci

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotWASM is returned when the input does not start with the wasm magic number
	ErrNotWASM = errors.New("not a wasm binary")
	// ErrNotComponent is returned for core wasm modules and unknown layers
	ErrNotComponent = errors.New("not a wasm component")
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

const (
	preambleSize   = 8
	layerCore      = 0
	layerComponent = 1
)

// Component describes a validated wasm component binary
type Component struct {
	// Version is the binary encoding version from the preamble
	Version uint16
	// Size is the size of the binary in bytes
	Size int
	// Sections is the number of top-level sections
	Sections int
	// CustomSections lists the names of top-level custom sections in order
	CustomSections []string
}

// ParseComponent checks that data is a well-formed wasm component: the
// preamble must carry the component layer and every top-level section must
// fit inside the binary. Section contents are not decoded.
func ParseComponent(data []byte) (*Component, error) {
	if len(data) < preambleSize || !bytes.Equal(data[:4], wasmMagic) {
		return nil, ErrNotWASM
	}

	version := binary.LittleEndian.Uint16(data[4:6])
	layer := binary.LittleEndian.Uint16(data[6:8])
	switch layer {
	case layerComponent:
	case layerCore:
		return nil, fmt.Errorf("%w: file is a core wasm module (version %d)", ErrNotComponent, version)
	default:
		return nil, fmt.Errorf("%w: unknown layer %d", ErrNotComponent, layer)
	}

	comp := &Component{
		Version: version,
		Size:    len(data),
	}

	offset := preambleSize
	for offset < len(data) {
		id := data[offset]
		offset++

		size, n, err := readU32(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("section %d at offset %d: %w", id, offset-1, err)
		}
		offset += n

		if uint64(offset)+uint64(size) > uint64(len(data)) {
			return nil, fmt.Errorf("section %d at offset %d: size %d exceeds binary length", id, offset, size)
		}
		body := data[offset : offset+int(size)]
		offset += int(size)
		comp.Sections++

		if id == 0 {
			name, err := readName(body)
			if err != nil {
				return nil, fmt.Errorf("custom section at offset %d: %w", offset-int(size), err)
			}
			comp.CustomSections = append(comp.CustomSections, name)
		}
	}

	return comp, nil
}

// readU32 decodes an unsigned LEB128 value limited to 32 bits
func readU32(b []byte) (uint32, int, error) {
	v, n := binary.Uvarint(b)
	if n <= 0 || n > 5 {
		return 0, 0, errors.New("malformed LEB128 size")
	}
	if v > math.MaxUint32 {
		return 0, 0, errors.New("size overflows u32")
	}
	return uint32(v), n, nil
}

func readName(b []byte) (string, error) {
	l, n, err := readU32(b)
	if err != nil {
		return "", err
	}
	if uint64(n)+uint64(l) > uint64(len(b)) {
		return "", errors.New("name exceeds section")
	}
	return string(b[n : n+int(l)]), nil
}
