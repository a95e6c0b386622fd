package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Format is the wire encoding of an envelope.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.EncOptions{
		Time: cbor.TimeRFC3339Nano,
		Sort: cbor.SortCanonical,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("backup: cbor encoder options: %v", err))
	}
	cborDec, err = cbor.DecOptions{
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 24,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("backup: cbor decoder options: %v", err))
	}
}

// ParseFormat accepts "json", "cbor" and the empty string (json).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", validationErrorf("parse format", "unsupported format %q", s)
	}
}

// FormatFromContentType maps a request Content-Type onto a format. Only
// application/json and application/cbor select one; any other type yields
// the empty Format so the caller falls back to DetectFormat.
func FormatFromContentType(contentType string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "application/cbor":
		return FormatCBOR
	case "application/json":
		return FormatJSON
	default:
		return ""
	}
}

// DetectFormat guesses the encoding from the first significant byte: JSON
// documents start with '{', CBOR maps never do.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatCBOR
}

func (f Format) ContentType() string {
	if f == FormatCBOR {
		return "application/cbor"
	}
	return "application/json"
}

func (f Format) Extension() string {
	if f == FormatCBOR {
		return "cbor"
	}
	return "json"
}

func marshal(f Format, v any) ([]byte, error) {
	switch f {
	case FormatCBOR:
		return cborEnc.Marshal(v)
	case FormatJSON, "":
		return json.MarshalIndent(v, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

func unmarshal(f Format, data []byte, v any) error {
	switch f {
	case FormatCBOR:
		return cborDec.Unmarshal(data, v)
	case FormatJSON, "":
		return json.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
}

// encode marshals v completely before writing, so a failed encode never
// leaves half an envelope in w.
func encode(w io.Writer, f Format, v any) (int, error) {
	data, err := marshal(f, v)
	if err != nil {
		return 0, newError(ErrResource, "encode envelope", err)
	}
	n, err := w.Write(data)
	if err != nil {
		return n, newError(ErrResource, "write envelope", err)
	}
	return n, nil
}

// decode parses data; malformed input is a validation error.
func decode(f Format, data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return validationErrorf("decode envelope", "empty input")
	}
	if err := unmarshal(f, data, v); err != nil {
		return newError(ErrValidation, "decode envelope", fmt.Errorf("malformed %s: %w", f, err))
	}
	return nil
}
