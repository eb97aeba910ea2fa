package decode

import (
	"testing"
	"unicode/utf16"
)

// encodeUTF16 builds a UTF-16 buffer for test input, optionally prepending a BOM.
func encodeUTF16(s string, bigEndian, withBOM bool) []byte {
	units := utf16.Encode([]rune(s))
	if withBOM {
		units = append([]uint16{0xFEFF}, units...)
	}
	buf := make([]byte, 0, len(units)*2)
	for _, u := range units {
		if bigEndian {
			buf = append(buf, byte(u>>8), byte(u))
		} else {
			buf = append(buf, byte(u), byte(u>>8))
		}
	}
	return buf
}

func TestDetect(t *testing.T) {
	// Long enough that the heuristic sample sees >40 odd-offset zeros.
	long := "{\"ComputerName\":\"UTF16-PC\",\"Notes\":\"padding padding padding padding padding padding padding\"}"

	tests := []struct {
		name string
		buf  []byte
		want Encoding
	}{
		{"utf8 plain", []byte(`{"a":1}`), EncodingUTF8},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"a":1}`)...), EncodingUTF8BOM},
		{"utf16le bom", encodeUTF16("{}", false, true), EncodingUTF16LE},
		{"utf16be bom", encodeUTF16("{}", true, true), EncodingUTF16BE},
		{"utf16le bomless heuristic", encodeUTF16(long, false, false), EncodingUTF16LE},
		{"short ascii not utf16", []byte("hi"), EncodingUTF8},
		{"empty", nil, EncodingUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.buf); got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBytesRoundTrip(t *testing.T) {
	inputs := []string{
		`{"ComputerName":"PC-001"}`,
		`{"Owner":"Åse Ähnlich (Zürich)"}`,
		"plain ascii text",
	}

	for _, s := range inputs {
		if got := Bytes([]byte(s)); got != s {
			t.Errorf("utf8: Bytes() = %q, want %q", got, s)
		}
		withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte(s)...)
		if got := Bytes(withBOM); got != s {
			t.Errorf("utf8 bom: Bytes() = %q, want %q", got, s)
		}
		if got := Bytes(encodeUTF16(s, false, true)); got != s {
			t.Errorf("utf16le bom: Bytes() = %q, want %q", got, s)
		}
		if got := Bytes(encodeUTF16(s, true, true)); got != s {
			t.Errorf("utf16be bom: Bytes() = %q, want %q", got, s)
		}
	}
}

func TestBytesBOMLessUTF16(t *testing.T) {
	s := `{"ComputerName":"UTF16-PC","Model":"OptiPlex 7070","SerialNumber":"ABC123XYZ9"}`
	buf := encodeUTF16(s, false, false)

	if got := Bytes(buf); got != s {
		t.Errorf("Bytes() = %q, want %q", got, s)
	}
}

func TestBytesMalformedNeverPanics(t *testing.T) {
	bufs := [][]byte{
		{0xFF, 0xFE, 0x41},             // UTF-16LE BOM with odd trailing byte
		{0xC3},                         // truncated UTF-8 sequence
		{0xEF, 0xBB, 0xBF, 0xFF, 0xFF}, // UTF-8 BOM followed by garbage
		{},
	}
	for _, buf := range bufs {
		_ = Bytes(buf) // must not panic
	}
}

func TestManualFallbackMatchesTransformer(t *testing.T) {
	s := "héllo wörld"
	le := encodeUTF16(s, false, false)
	if got := decodeUTF16(le, false); got != s {
		t.Errorf("decodeUTF16(le) = %q, want %q", got, s)
	}
	be := encodeUTF16(s, true, false)
	if got := decodeUTF16(be, true); got != s {
		t.Errorf("decodeUTF16(be) = %q, want %q", got, s)
	}
	if got := decodeUTF8([]byte(s)); got != s {
		t.Errorf("decodeUTF8() = %q, want %q", got, s)
	}
}

func TestDecodeUTF16SurrogatePair(t *testing.T) {
	s := "emoji: \U0001F600"
	if got := decodeUTF16(encodeUTF16(s, false, false), false); got != s {
		t.Errorf("decodeUTF16() = %q, want %q", got, s)
	}
}
