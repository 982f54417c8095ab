package ticker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func buildFrame(packets ...[]byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(packets)))
	for _, p := range packets {
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(p)))
		buf.Write(p)
	}
	return buf.Bytes()
}

func TestSplitPacketsEmptyFrame(t *testing.T) {
	frame := buildFrame()
	packets, err := SplitPackets(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packets) != 0 {
		t.Fatalf("expected no packets, got %d", len(packets))
	}
}

func TestSplitPacketsRoundTrip(t *testing.T) {
	p1 := []byte{0x00, 0x00, 0x04, 0xD2, 0x00, 0x00, 0x27, 0x10}
	p2 := []byte{0x01, 0x02, 0x03}
	frame := buildFrame(p1, p2)

	packets, err := SplitPackets(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("expected 2 packets, got %d", len(packets))
	}
	if !bytes.Equal(packets[0], p1) || !bytes.Equal(packets[1], p2) {
		t.Fatalf("packet contents mismatch: %v", packets)
	}

	// Invariant 1: count + 2-byte prefixes + payloads reconstitute the frame.
	var rebuilt bytes.Buffer
	_ = binary.Write(&rebuilt, binary.BigEndian, uint16(len(packets)))
	for _, p := range packets {
		_ = binary.Write(&rebuilt, binary.BigEndian, uint16(len(p)))
		rebuilt.Write(p)
	}
	if !bytes.Equal(rebuilt.Bytes(), frame) {
		t.Fatalf("reconstructed frame does not match original")
	}
}

func TestSplitPacketsMalformedOverrun(t *testing.T) {
	// Declares a 10-byte packet but only provides 3.
	frame := []byte{0x00, 0x01, 0x00, 0x0A, 0x01, 0x02, 0x03}
	_, err := SplitPackets(frame)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestSplitPacketsTruncatedHeader(t *testing.T) {
	frame := []byte{0x00, 0x02, 0x00, 0x08}
	_, err := SplitPackets(frame)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}
