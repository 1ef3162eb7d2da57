package ir

import (
	"bytes"
	"encoding/json"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// CanonicalValue renders v as stable, type-tagged text.
// Two values have equal canonical text iff they are the same type and value;
// strings are NFC-normalized first so equivalent compositions compare equal.
//
//	Null       -> null
//	Int(3)     -> i:3
//	Decimal(3) -> d:3
//	String("a")-> s:"a"
//	Bool(true) -> b:true
func CanonicalValue(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case Int:
		return "i:" + strconv.FormatInt(int64(val), 10)
	case Decimal:
		return "d:" + strconv.FormatFloat(float64(val), 'g', -1, 64)
	case String:
		return "s:" + CanonicalString(string(val))
	case Bool:
		return "b:" + strconv.FormatBool(bool(val))
	default:
		return "?"
	}
}

// CanonicalString returns the quoted, NFC-normalized form of s.
// No HTML escaping is applied; U+2028 and U+2029 stay literal.
func CanonicalString(s string) string {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string never fails
	_ = enc.Encode(normalized)

	out := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return string(unescapeLineSeparators(out))
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters, leaving \\u2028 untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}
