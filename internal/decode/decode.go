// Package decode converts raw export buffers to text. Inventory exports
// arrive with no encoding metadata: some tools emit UTF-8, some UTF-16 with a
// byte-order mark, and a few legacy collectors emit BOM-less UTF-16LE.
package decode

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Encoding identifies a detected text encoding.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF8BOM Encoding = "utf-8-bom"
	EncodingUTF16LE Encoding = "utf-16le"
	EncodingUTF16BE Encoding = "utf-16be"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Heuristic for BOM-less UTF-16LE: mostly-ASCII text encoded as UTF-16LE has
// a zero high byte at every odd offset.
const (
	heuristicSampleLen     = 400
	heuristicZeroThreshold = 40
)

// Detect inspects a buffer and returns its most likely text encoding.
// BOM sniffing first, then the odd-offset-zero heuristic, then UTF-8.
func Detect(buf []byte) Encoding {
	if bytes.HasPrefix(buf, bomUTF8) {
		return EncodingUTF8BOM
	}
	if bytes.HasPrefix(buf, bomUTF16LE) {
		return EncodingUTF16LE
	}
	if bytes.HasPrefix(buf, bomUTF16BE) {
		return EncodingUTF16BE
	}

	sample := buf
	if len(sample) > heuristicSampleLen {
		sample = sample[:heuristicSampleLen]
	}
	zeros := 0
	for i := 1; i < len(sample); i += 2 {
		if sample[i] == 0 {
			zeros++
		}
	}
	if zeros > heuristicZeroThreshold {
		return EncodingUTF16LE
	}

	return EncodingUTF8
}

// Bytes decodes a raw buffer using the detected encoding and returns the
// text. A strictly malformed buffer still yields a best-effort string; Bytes
// never returns an error and never panics.
func Bytes(buf []byte) string {
	enc := Detect(buf)

	dec := unicode.UTF8BOM.NewDecoder()
	switch enc {
	case EncodingUTF16LE:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case EncodingUTF16BE:
		dec = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	}

	if out, err := dec.Bytes(buf); err == nil {
		return string(out)
	}
	return fallback(buf, enc)
}

// fallback is a hand-rolled decode path for contexts where the transformer
// rejects the buffer outright.
func fallback(buf []byte, enc Encoding) string {
	switch enc {
	case EncodingUTF16LE:
		return decodeUTF16(trimPrefix(buf, bomUTF16LE), false)
	case EncodingUTF16BE:
		return decodeUTF16(trimPrefix(buf, bomUTF16BE), true)
	case EncodingUTF8BOM:
		return decodeUTF8(trimPrefix(buf, bomUTF8))
	default:
		return decodeUTF8(buf)
	}
}

func trimPrefix(buf, bom []byte) []byte {
	return bytes.TrimPrefix(buf, bom)
}

// decodeUTF8 walks the buffer rune by rune, substituting the replacement
// character for invalid sequences instead of failing.
func decodeUTF8(buf []byte) string {
	var b bytes.Buffer
	b.Grow(len(buf))
	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		b.WriteRune(r)
		buf = buf[size:]
	}
	return b.String()
}

// decodeUTF16 combines byte pairs into code units and resolves surrogate
// pairs. A trailing odd byte is dropped.
func decodeUTF16(buf []byte, bigEndian bool) string {
	units := make([]uint16, 0, len(buf)/2)
	for i := 0; i+1 < len(buf); i += 2 {
		var u uint16
		if bigEndian {
			u = uint16(buf[i])<<8 | uint16(buf[i+1])
		} else {
			u = uint16(buf[i+1])<<8 | uint16(buf[i])
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}
