package ticker

import (
	"errors"
	"testing"
)

func TestReadIntBigEndianUnsigned(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x04, 0xD2} // 1234
	v, err := ReadInt(buf, 0, 4, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1234 {
		t.Fatalf("expected 1234, got %d", v)
	}
}

func TestReadIntSignedNegative(t *testing.T) {
	buf := []byte{0xFF, 0xFF} // -1 as int16
	v, err := ReadInt(buf, 0, 2, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != -1 {
		t.Fatalf("expected -1, got %d", v)
	}
}

func TestReadIntOutOfBounds(t *testing.T) {
	buf := []byte{0x01, 0x02}
	_, err := ReadInt(buf, 1, 4, false)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestReadIntUnsupportedWidth(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03}
	_, err := ReadInt(buf, 0, 3, false)
	if err == nil {
		t.Fatal("expected an error for unsupported width")
	}
}
