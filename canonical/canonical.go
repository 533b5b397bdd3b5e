// Package canonical implements deterministic serialization for Ansybl
// documents.
//
// Canonical bytes are the signing and equality substrate for the whole
// protocol: two semantically equal values MUST canonicalize to byte-identical
// output regardless of origin, key order, or insignificant whitespace.
package canonical

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrInvalidNumber rejects NaN and infinities. There is no canonical rendering
// for a non-finite number.
var ErrInvalidNumber = errors.New("canonical: non-finite number has no canonical form")

// maxSafeInteger is the largest integer exactly representable in an IEEE-754
// double. Integers inside this range render as plain digits.
const maxSafeInteger = 1<<53 - 1

// Serialize renders v in canonical form: object keys sorted by code-point
// order, no insignificant whitespace, minimal string escaping, deterministic
// number formatting.
func Serialize(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		appendString(buf, x)
	case json.Number:
		return appendNumberLiteral(buf, string(x))
	case int:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(x, 10))
	case float32:
		return appendFloat(buf, float64(x))
	case float64:
		return appendFloat(buf, x)
	case []any:
		buf.WriteByte('[')
		for i, el := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendValue(buf, el); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []string:
		buf.WriteByte('[')
		for i, el := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendString(buf, el)
		}
		buf.WriteByte(']')
	case []map[string]any:
		buf.WriteByte('[')
		for i, el := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendValue(buf, el); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendString(buf, k)
			buf.WriteByte(':')
			if err := appendValue(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendString(buf, k)
			buf.WriteByte(':')
			appendString(buf, x[k])
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonical: unsupported type %T", v)
	}
	return nil
}

// appendNumberLiteral canonicalizes a JSON number literal preserved by
// UseNumber decoding. Integers in the safe range stay plain digits; everything
// else goes through float formatting.
func appendNumberLiteral(buf *bytes.Buffer, lit string) error {
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		if n >= -maxSafeInteger && n <= maxSafeInteger {
			buf.WriteString(strconv.FormatInt(n, 10))
			return nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return fmt.Errorf("canonical: invalid number literal %q: %w", lit, err)
	}
	return appendFloat(buf, f)
}

func appendFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ErrInvalidNumber
	}
	if f == 0 {
		// Collapse negative zero.
		buf.WriteByte('0')
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) <= maxSafeInteger {
		buf.WriteString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	buf.WriteString(normalizeExponent(s))
	return nil
}

// normalizeExponent strips the redundant plus sign and leading zeros from an
// exponent, so "1e+21" and "1e-07" render as "1e21" and "1e-7".
func normalizeExponent(s string) string {
	i := strings.IndexByte(s, 'e')
	if i < 0 {
		return s
	}
	mantissa, exp := s[:i], s[i+1:]
	neg := ""
	switch {
	case strings.HasPrefix(exp, "+"):
		exp = exp[1:]
	case strings.HasPrefix(exp, "-"):
		neg = "-"
		exp = exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	return mantissa + "e" + neg + exp
}

// appendString escapes only quote, backslash, and control characters. All
// other runes pass through verbatim as UTF-8.
func appendString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// Decode parses JSON text preserving number literals, so canonical number
// formatting operates on the wire text rather than on a lossy float.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// Trailing garbage after the value is not canonical JSON.
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return nil, errors.New("canonical: trailing data after JSON value")
	}
	return v, nil
}

// Equivalent reports whether a and b are the same value under
// canonicalization. Invalid input yields false, never an error.
func Equivalent(a, b []byte) bool {
	va, err := Decode(a)
	if err != nil {
		return false
	}
	vb, err := Decode(b)
	if err != nil {
		return false
	}
	ca, err := Serialize(va)
	if err != nil {
		return false
	}
	cb, err := Serialize(vb)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// ConsistencyReport is the result of the canonicalization self-check.
type ConsistencyReport struct {
	Consistent bool
	// Offset of the first diverging byte between the two passes, -1 when
	// consistent.
	DivergenceOffset int
	First            []byte
	Second           []byte
	Err              error
}

// VerifyConsistency canonicalizes doc twice (parse, canonicalize, parse,
// canonicalize) and reports the first point of divergence. It is a self-check
// for the serializer, not part of the parse hot path.
func VerifyConsistency(doc []byte) ConsistencyReport {
	v1, err := Decode(doc)
	if err != nil {
		return ConsistencyReport{DivergenceOffset: -1, Err: err}
	}
	first, err := Serialize(v1)
	if err != nil {
		return ConsistencyReport{DivergenceOffset: -1, Err: err}
	}
	v2, err := Decode(first)
	if err != nil {
		return ConsistencyReport{First: first, DivergenceOffset: -1, Err: err}
	}
	second, err := Serialize(v2)
	if err != nil {
		return ConsistencyReport{First: first, DivergenceOffset: -1, Err: err}
	}
	if bytes.Equal(first, second) {
		return ConsistencyReport{Consistent: true, DivergenceOffset: -1, First: first, Second: second}
	}
	off := len(first)
	for i := 0; i < len(first) && i < len(second); i++ {
		if first[i] != second[i] {
			off = i
			break
		}
	}
	return ConsistencyReport{First: first, Second: second, DivergenceOffset: off}
}
