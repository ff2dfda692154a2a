package filesig

import (
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		declaredText bool
		expected     Format
	}{
		{"pdf", []byte("%PDF-1.7 rest of file"), false, FormatPDF},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, false, FormatJPEG},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x01}, false, FormatPNG},
		{"tiff little endian", []byte{0x49, 0x49, 0x2A, 0x00, 0x08}, false, FormatTIFF},
		{"tiff big endian", []byte{0x4D, 0x4D, 0x00, 0x2A, 0x08}, false, FormatTIFF},
		{"bmp", []byte("BM8rest"), false, FormatBMP},
		{"docx zip container", []byte{0x50, 0x4B, 0x03, 0x04, 0x14}, false, FormatDOCX},
		{"declared utf8 text", []byte("plain lease text"), true, FormatText},
		{"undeclared utf8 text", []byte("plain lease text"), false, FormatUnknown},
		{"declared binary junk", []byte{0x00, 0xFF, 0xFE, 0x01}, true, FormatUnknown},
		{"pdf beats text declaration", []byte("%PDF-1.4"), true, FormatPDF},
		{"empty", nil, true, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.data, tt.declaredText); got != tt.expected {
				t.Errorf("Detect(%q, %v) = %q, want %q", tt.data, tt.declaredText, got, tt.expected)
			}
		})
	}
}

func TestDetectLongTextSplitRune(t *testing.T) {
	// A multibyte rune straddling the 1 KiB boundary must not reject the file.
	data := strings.Repeat("a", 1023) + "é" + strings.Repeat("b", 100)
	if got := Detect([]byte(data), true); got != FormatText {
		t.Errorf("Detect = %q, want text despite split rune at the head boundary", got)
	}
}

func TestAccepted(t *testing.T) {
	if Accepted(FormatUnknown) {
		t.Errorf("unknown format must be rejected")
	}
	for _, f := range []Format{FormatPDF, FormatJPEG, FormatPNG, FormatTIFF, FormatBMP, FormatDOCX, FormatText} {
		if !Accepted(f) {
			t.Errorf("format %q should be accepted", f)
		}
	}
}
