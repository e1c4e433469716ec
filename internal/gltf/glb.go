package gltf

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidMagic   = errors.New("invalid GLB magic number")
	ErrInvalidVersion = errors.New("invalid glTF version: must be 2.x")
	ErrMissingJSON    = errors.New("GLB file missing JSON chunk")
	ErrTooSmall       = errors.New("GLB file too small")
)

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A // "JSON"
	glbChunkBIN  = 0x004E4942 // "BIN\0"
)

type glbHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

type chunkHeader struct {
	Length uint32
	Type   uint32
}

// IsGLB reports whether data starts with the GLB magic.
func IsGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == glbMagic
}

// Parse decodes either a GLB container or a plain glTF JSON document. The
// binary chunk, if any, is returned alongside.
func Parse(data []byte) (*Document, []byte, error) {
	if IsGLB(data) {
		return ReadGLB(data)
	}
	doc, err := decodeJSON(data)
	return doc, nil, err
}

// ReadGLB decodes a GLB container.
func ReadGLB(data []byte) (*Document, []byte, error) {
	if len(data) < 12 {
		return nil, nil, ErrTooSmall
	}
	r := bytes.NewReader(data)

	var header glbHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("read GLB header: %w", err)
	}
	if header.Magic != glbMagic {
		return nil, nil, ErrInvalidMagic
	}
	if header.Version != glbVersion {
		return nil, nil, ErrInvalidVersion
	}

	var jsonData, binData []byte
	for {
		var ch chunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("read chunk header: %w", err)
		}
		chunk := make([]byte, ch.Length)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, nil, fmt.Errorf("read chunk data: %w", err)
		}
		switch ch.Type {
		case glbChunkJSON:
			jsonData = chunk
		case glbChunkBIN:
			binData = chunk
		}
	}
	if jsonData == nil {
		return nil, nil, ErrMissingJSON
	}

	doc, err := decodeJSON(jsonData)
	if err != nil {
		return nil, nil, err
	}
	return doc, binData, nil
}

func decodeJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(bytes.TrimRight(data, " \x00"), &doc); err != nil {
		return nil, fmt.Errorf("parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, ErrInvalidVersion
	}
	return &doc, nil
}

// WriteGLB encodes doc (and an optional binary chunk) as a GLB container.
// Chunks are padded to 4 bytes: JSON with spaces, BIN with zeros.
func WriteGLB(w io.Writer, doc *Document, bin []byte) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode glTF JSON: %w", err)
	}
	jsonData = pad(jsonData, ' ')
	if bin != nil {
		bin = pad(bin, 0)
	}

	total := 12 + 8 + len(jsonData)
	if bin != nil {
		total += 8 + len(bin)
	}

	var buf bytes.Buffer
	buf.Grow(total)
	_ = binary.Write(&buf, binary.LittleEndian, glbHeader{Magic: glbMagic, Version: glbVersion, Length: uint32(total)})
	_ = binary.Write(&buf, binary.LittleEndian, chunkHeader{Length: uint32(len(jsonData)), Type: glbChunkJSON})
	buf.Write(jsonData)
	if bin != nil {
		_ = binary.Write(&buf, binary.LittleEndian, chunkHeader{Length: uint32(len(bin)), Type: glbChunkBIN})
		buf.Write(bin)
	}

	_, err = w.Write(buf.Bytes())
	return err
}

func pad(b []byte, fill byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, fill)
	}
	return b
}
