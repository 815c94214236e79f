package fetcher

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Supported text encodings for tabular sources.
const (
	EncodingAuto  = "auto"
	EncodingUTF8  = "utf-8"
	EncodingEUCKR = "euc-kr"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NormalizeEncoding maps accepted spellings onto the Encoding* constants.
// Unknown names are returned lowercased so callers can reject them.
func NormalizeEncoding(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", EncodingAuto:
		return EncodingAuto
	case "utf8", EncodingUTF8:
		return EncodingUTF8
	case "euckr", EncodingEUCKR, "cp949", "ks_c_5601-1987":
		return EncodingEUCKR
	default:
		return n
	}
}

// DetectEncoding returns utf-8 for valid UTF-8 input (BOM or not) and
// euc-kr otherwise. Korean public datasets are published in either.
func DetectEncoding(data []byte) string {
	if utf8.Valid(bytes.TrimPrefix(data, utf8BOM)) {
		return EncodingUTF8
	}
	return EncodingEUCKR
}

// DecodeText converts data in the named encoding to UTF-8 and strips a
// leading byte order mark.
func DecodeText(data []byte, encoding string) ([]byte, error) {
	enc := NormalizeEncoding(encoding)
	if enc == EncodingAuto {
		enc = DetectEncoding(data)
	}

	var t transform.Transformer
	switch enc {
	case EncodingUTF8:
		t = unicode.UTF8BOM.NewDecoder()
	case EncodingEUCKR:
		t = korean.EUCKR.NewDecoder()
	default:
		return nil, eris.Errorf("fetcher: unsupported encoding %q", encoding)
	}

	out, _, err := transform.Bytes(t, data)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: decode %s", enc)
	}
	return out, nil
}
