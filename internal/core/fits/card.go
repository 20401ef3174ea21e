package fits

import (
	"strconv"
	"strings"

	"ffiassembler/internal/platform/textutil"

	perr "ffiassembler/internal/platform/errors"
)

// CardSize is the width of one header card
const CardSize = 80

// commentary keywords carry free text instead of a value
var commentary = map[string]bool{"COMMENT": true, "HISTORY": true, "": true}

// Record is one keyword/value/comment card
// Format only affects how float values are rendered
type Record struct {
	Key     string
	Value   Value
	Comment string
	Format  Format
}

// IsCommentary reports whether r is a COMMENT, HISTORY or blank card
func (r Record) IsCommentary() bool { return commentary[r.Key] }

// Equal compares key, value and comment; Format is presentation only
func (r Record) Equal(o Record) bool {
	return r.Key == o.Key && r.Value.Equal(o.Value) &&
		strings.TrimRight(r.Comment, " ") == strings.TrimRight(o.Comment, " ")
}

func validKey(k string) bool {
	if len(k) > 8 {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// EncodeCard renders r as exactly 80 ASCII bytes
func EncodeCard(r Record) ([]byte, error) {
	if !validKey(r.Key) {
		return nil, perr.WithField(perr.Contractf("invalid keyword %q", r.Key), r.Key)
	}
	var b strings.Builder
	b.Grow(CardSize)
	b.WriteString(padRight(r.Key, 8))

	if r.IsCommentary() {
		b.WriteString(textutil.ASCII(r.Comment))
		return fixWidth(b.String()), nil
	}

	b.WriteString("= ")
	switch r.Value.Kind() {
	case KindString:
		s, _ := r.Value.AsString()
		quoted := "'" + padRight(strings.ReplaceAll(textutil.ASCII(s), "'", "''"), 8) + "'"
		if len(quoted) > CardSize-10 {
			return nil, perr.WithField(perr.Contractf("string value for %s too long", r.Key), r.Key)
		}
		b.WriteString(padRight(quoted, valueWidth))
	default:
		b.WriteString(padLeft(renderScalar(r), valueWidth))
	}
	if r.Comment != "" {
		b.WriteString(" / ")
		b.WriteString(textutil.ASCII(r.Comment))
	}
	return fixWidth(b.String()), nil
}

func renderScalar(r Record) string {
	switch r.Value.Kind() {
	case KindBool:
		if v, _ := r.Value.AsBool(); v {
			return "T"
		}
		return "F"
	case KindInt:
		v, _ := r.Value.AsInt()
		return strconv.FormatInt(v, 10)
	case KindFloat:
		v, _ := r.Value.AsFloat()
		return r.Format.FormatFloat(v)
	}
	return ""
}

// DecodeCard parses one 80-byte card
func DecodeCard(card []byte) (Record, error) {
	if len(card) != CardSize {
		return Record{}, perr.Malformedf("card length %d", len(card))
	}
	for _, c := range card {
		if c < 0x20 || c > 0x7e {
			return Record{}, perr.Malformedf("non-ASCII byte 0x%02x in card", c)
		}
	}
	line := string(card)
	key := strings.TrimRight(line[:8], " ")
	if !validKey(key) {
		return Record{}, perr.Malformedf("invalid keyword %q", line[:8])
	}
	if commentary[key] || key == "END" || line[8:10] != "= " {
		return Record{Key: key, Comment: strings.TrimRight(line[8:], " ")}, nil
	}

	rest := line[10:]
	trimmed := strings.TrimLeft(rest, " ")
	if strings.HasPrefix(trimmed, "'") {
		s, tail, err := parseQuoted(trimmed)
		if err != nil {
			return Record{}, perr.WithField(err, key)
		}
		return Record{Key: key, Value: String(s), Comment: parseComment(tail)}, nil
	}

	token, tail := trimmed, ""
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		token, tail = trimmed[:i], trimmed[i:]
	}
	v, err := parseScalar(strings.TrimSpace(token))
	if err != nil {
		return Record{}, perr.WithField(err, key)
	}
	return Record{Key: key, Value: v, Comment: parseComment(tail)}, nil
}

func parseQuoted(s string) (string, string, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return strings.TrimRight(b.String(), " "), s[i+1:], nil
	}
	return "", "", perr.Malformedf("unterminated string value")
}

func parseComment(tail string) string {
	tail = strings.TrimLeft(tail, " ")
	if !strings.HasPrefix(tail, "/") {
		return ""
	}
	tail = strings.TrimPrefix(tail[1:], " ")
	return strings.TrimRight(tail, " ")
}

func parseScalar(tok string) (Value, error) {
	switch tok {
	case "":
		return Null(), nil
	case "T":
		return Bool(true), nil
	case "F":
		return Bool(false), nil
	}
	if strings.ContainsAny(tok, ".EeDd") {
		f, err := strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(tok), 64)
		if err != nil {
			return Value{}, perr.Malformedf("bad real value %q", tok)
		}
		return Float(f), nil
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return Value{}, perr.Malformedf("bad integer value %q", tok)
	}
	return Int(i), nil
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func padLeft(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat(" ", n-len(s)) + s
}

func fixWidth(s string) []byte {
	if len(s) > CardSize {
		s = s[:CardSize]
	}
	return []byte(padRight(s, CardSize))
}
