// Package filesig validates uploaded files by their leading bytes instead of
// trusting the client-declared content type.
package filesig

import (
	"bytes"
	"unicode/utf8"
)

type Format string

const (
	FormatPDF     Format = "pdf"
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatTIFF    Format = "tiff"
	FormatBMP     Format = "bmp"
	FormatDOCX    Format = "docx"
	FormatText    Format = "text"
	FormatUnknown Format = "unknown"
)

var signatures = []struct {
	prefix []byte
	format Format
}{
	{[]byte("%PDF"), FormatPDF},
	{[]byte{0xFF, 0xD8, 0xFF}, FormatJPEG},
	{[]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, FormatPNG},
	{[]byte{0x49, 0x49, 0x2A, 0x00}, FormatTIFF}, // little-endian
	{[]byte{0x4D, 0x4D, 0x00, 0x2A}, FormatTIFF}, // big-endian
	{[]byte("BM"), FormatBMP},
	{[]byte{0x50, 0x4B, 0x03, 0x04}, FormatDOCX}, // ZIP container
}

// Detect classifies data by magic bytes. declaredText allows the UTF-8 plain
// text path: a file is only treated as text when the client declared it as
// such AND its first kilobyte decodes as valid UTF-8.
func Detect(data []byte, declaredText bool) Format {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.prefix) {
			return sig.format
		}
	}
	if declaredText && validUTF8Head(data) {
		return FormatText
	}
	return FormatUnknown
}

// Accepted reports whether the format may be uploaded at all.
func Accepted(f Format) bool {
	return f != FormatUnknown
}

func validUTF8Head(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	head := data
	if len(head) > 1024 {
		head = head[:1024]
		// Trim a rune that the 1 KiB cut may have split in half.
		for len(head) > 0 && !utf8.Valid(head) {
			head = head[:len(head)-1]
			if len(head) < 1020 {
				break
			}
		}
	}
	return len(head) > 0 && utf8.Valid(head)
}
