package rdelta

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestPrototabLayout(t *testing.T) {
	for op := 0; op < 256; op++ {
		entry := &prototab[op]
		switch {
		case op == 0x00:
			if entry.kind != kindEnd || entry.totalSize() != 1 {
				t.Errorf("opcode %#02x is not a bare end command", op)
			}
		case op >= 0x01 && op <= 0x40:
			if entry.kind != kindLiteral || !entry.immediate || entry.totalSize() != 1 {
				t.Errorf("opcode %#02x is not an immediate literal", op)
			}
		case op >= 0x41 && op <= 0x44:
			if entry.kind != kindLiteral || entry.immediate {
				t.Errorf("opcode %#02x is not an explicit literal", op)
			}
			if entry.len1 != operandWidths[op-0x41] || entry.len2 != 0 {
				t.Errorf("opcode %#02x has wrong operand widths", op)
			}
		case op >= 0x45 && op <= 0x54:
			if entry.kind != kindCopy {
				t.Errorf("opcode %#02x is not a copy", op)
			}
			if entry.len1 != operandWidths[(op-0x45)/4] || entry.len2 != operandWidths[(op-0x45)%4] {
				t.Errorf("opcode %#02x has wrong operand widths", op)
			}
		case op >= 0x55 && op <= 0x70:
			if entry.kind != kindSignature {
				t.Errorf("opcode %#02x is not a signature entry", op)
			}
		default:
			if entry.kind != kindReserved {
				t.Errorf("opcode %#02x should be reserved", op)
			}
		}
	}
}

func TestLiteralCommandEncoding(t *testing.T) {
	cases := []struct {
		length   uint64
		expected []byte
	}{
		{1, []byte{0x01}},
		{0x40, []byte{0x40}},
		{0x41, []byte{0x41, 0x41}},
		{0xFF, []byte{0x41, 0xFF}},
		{0x100, []byte{0x42, 0x01, 0x00}},
		{0xFFFF, []byte{0x42, 0xFF, 0xFF}},
		{0x10000, []byte{0x43, 0x00, 0x01, 0x00, 0x00}},
		{0x100000000, []byte{0x44, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}},
	}
	for _, c := range cases {
		if encoded := appendLiteralCommand(nil, c.length); !bytes.Equal(encoded, c.expected) {
			t.Errorf("literal %d encoded as %x, expected %x", c.length, encoded, c.expected)
		}
	}
}

func TestCopyCommandEncoding(t *testing.T) {
	cases := []struct {
		off, length uint64
		expected    []byte
	}{
		{0, 1, []byte{0x45, 0x00, 0x01}},
		{0xFF, 0xFF, []byte{0x45, 0xFF, 0xFF}},
		{0x100, 0x01, []byte{0x49, 0x01, 0x00, 0x01}},
		{0x01, 0x100, []byte{0x46, 0x01, 0x01, 0x00}},
		{0x12345678, 0x20, []byte{0x4D, 0x12, 0x34, 0x56, 0x78, 0x20}},
		// Offsets beyond 4 GiB require the 8-byte operand forms.
		{0x140000000, 0x800, []byte{0x52, 0x00, 0x00, 0x00, 0x01, 0x40, 0x00, 0x00, 0x00, 0x08, 0x00}},
	}
	for _, c := range cases {
		if encoded := appendCopyCommand(nil, c.off, c.length); !bytes.Equal(encoded, c.expected) {
			t.Errorf("copy (%d, %d) encoded as %x, expected %x", c.off, c.length, encoded, c.expected)
		}
	}
}

// parsedCommand is a decoded delta stream command, used by tests to inspect
// generated deltas.
type parsedCommand struct {
	kind   opKind
	off    uint64
	length uint64
	data   []byte
}

// parseDelta decodes a complete delta stream into its command sequence,
// failing the test on framing errors. The end command is consumed but not
// returned.
func parseDelta(t *testing.T, delta []byte) []parsedCommand {
	t.Helper()
	if len(delta) < 4 || Magic(binary.BigEndian.Uint32(delta)) != DeltaMagic {
		t.Fatal("delta stream has invalid magic")
	}
	delta = delta[4:]
	var commands []parsedCommand
	for {
		if len(delta) == 0 {
			t.Fatal("delta stream ended without end command")
		}
		opcode := delta[0]
		entry := &prototab[opcode]
		if len(delta) < entry.totalSize() {
			t.Fatal("delta stream ended inside a command")
		}
		v1 := parseUint(delta[1:], entry.len1)
		v2 := parseUint(delta[1+entry.len1:], entry.len2)
		delta = delta[entry.totalSize():]
		switch entry.kind {
		case kindEnd:
			if len(delta) != 0 {
				t.Fatal("trailing bytes after end command")
			}
			return commands
		case kindLiteral:
			length := v1
			if entry.immediate {
				length = uint64(opcode)
			}
			if uint64(len(delta)) < length {
				t.Fatal("delta stream ended inside literal data")
			}
			commands = append(commands, parsedCommand{
				kind:   kindLiteral,
				length: length,
				data:   delta[:length],
			})
			delta = delta[length:]
		case kindCopy:
			commands = append(commands, parsedCommand{kind: kindCopy, off: v1, length: v2})
		default:
			t.Fatalf("unexpected command %#02x in delta stream", opcode)
		}
	}
}

// encodeDelta re-encodes a parsed command sequence into a delta stream.
func encodeDelta(commands []parsedCommand) []byte {
	encoded := appendMagic(nil, DeltaMagic)
	for _, c := range commands {
		switch c.kind {
		case kindLiteral:
			encoded = appendLiteralCommand(encoded, c.length)
			encoded = append(encoded, c.data...)
		case kindCopy:
			encoded = appendCopyCommand(encoded, c.off, c.length)
		}
	}
	return appendEndCommand(encoded)
}

func TestDeltaCodecRoundTrip(t *testing.T) {
	// Generate a delta with a mix of copies and literals.
	basis := generateTestData(32*1024, 99, 0)
	target := generateTestData(32*1024, 99, 5)
	sig, err := SignatureBytes(basis, 0, 1024, StrongLenMax)
	if err != nil {
		t.Fatal("unable to generate signature:", err)
	}
	delta, err := DeltaBytes(sig, target)
	if err != nil {
		t.Fatal("unable to generate delta:", err)
	}

	// Parsing and re-encoding must reproduce the stream byte for byte,
	// since the encoder always selects minimal operand widths.
	if reencoded := encodeDelta(parseDelta(t, delta)); !bytes.Equal(reencoded, delta) {
		t.Error("re-encoded delta differs from original")
	}
}
