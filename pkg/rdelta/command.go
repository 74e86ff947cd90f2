package rdelta

import (
	"encoding/binary"
)

// widthIndex returns the index into operandWidths of the smallest operand
// width sufficient to represent v unsigned.
func widthIndex(v uint64) int {
	switch {
	case v <= 0xFF:
		return 0
	case v <= 0xFFFF:
		return 1
	case v <= 0xFFFFFFFF:
		return 2
	default:
		return 3
	}
}

// appendUint appends v to dst as a big-endian integer of the given width.
func appendUint(dst []byte, v uint64, width uint8) []byte {
	switch width {
	case 1:
		return append(dst, byte(v))
	case 2:
		var encoded [2]byte
		binary.BigEndian.PutUint16(encoded[:], uint16(v))
		return append(dst, encoded[:]...)
	case 4:
		var encoded [4]byte
		binary.BigEndian.PutUint32(encoded[:], uint32(v))
		return append(dst, encoded[:]...)
	default:
		var encoded [8]byte
		binary.BigEndian.PutUint64(encoded[:], v)
		return append(dst, encoded[:]...)
	}
}

// parseUint decodes a big-endian integer of the given width from the front
// of data.
func parseUint(data []byte, width uint8) uint64 {
	switch width {
	case 0:
		return 0
	case 1:
		return uint64(data[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(data))
	case 4:
		return uint64(binary.BigEndian.Uint32(data))
	default:
		return binary.BigEndian.Uint64(data)
	}
}

// appendMagic appends the four-byte big-endian magic number to dst.
func appendMagic(dst []byte, magic Magic) []byte {
	var encoded [4]byte
	binary.BigEndian.PutUint32(encoded[:], uint32(magic))
	return append(dst, encoded[:]...)
}

// appendLiteralCommand appends the header of a literal command of length n,
// preferring the one-byte immediate form when it fits and otherwise the
// smallest sufficient explicit length operand.
func appendLiteralCommand(dst []byte, n uint64) []byte {
	if n >= 1 && n <= maxImmediateLiteral {
		return append(dst, byte(n))
	}
	index := widthIndex(n)
	dst = append(dst, byte(opLiteral1+index))
	return appendUint(dst, n, operandWidths[index])
}

// appendCopyCommand appends a copy command for the basis range starting at
// off and spanning n bytes, selecting the opcode with the smallest operand
// widths sufficient for both values.
func appendCopyCommand(dst []byte, off, n uint64) []byte {
	offIndex := widthIndex(off)
	lenIndex := widthIndex(n)
	dst = append(dst, byte(opCopy11+4*offIndex+lenIndex))
	dst = appendUint(dst, off, operandWidths[offIndex])
	return appendUint(dst, n, operandWidths[lenIndex])
}

// appendEndCommand appends the stream terminator.
func appendEndCommand(dst []byte) []byte {
	return append(dst, opEnd)
}
