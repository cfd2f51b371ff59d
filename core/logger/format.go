package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// orderedKeys returns keys from order that are present, then the rest sorted.
func orderedKeys(f fields, order []string) []string {
	keys := make([]string, 0, len(f))
	seen := make(map[string]bool, len(f))
	for _, k := range order {
		if _, ok := f[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(f)-len(keys))
	for k := range f {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func encodeJSON(f fields, order []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range orderedKeys(f, order) {
		v := f[k]
		if cv, ok := v.(coloredValue); ok {
			v = string(cv)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(k))
		buf.WriteByte(':')
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeKV(f fields, order []string) []byte {
	var buf bytes.Buffer
	for i, k := range orderedKeys(f, order) {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(kvValue(f[k]))
	}
	return buf.Bytes()
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case coloredValue:
		return string(x)
	case string:
		s = x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		s = fmt.Sprint(x)
	}
	if strings.ContainsFunc(s, needsQuote) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

var levelColors = func() map[string]*color.Color {
	m := map[string]*color.Color{
		LevelDebug: color.New(color.FgHiBlack),
		LevelInfo:  color.New(color.FgGreen),
		LevelWarn:  color.New(color.FgYellow),
		LevelError: color.New(color.FgRed, color.Bold),
	}
	// Forced on here; the handler only colorizes when configured to.
	for _, c := range m {
		c.EnableColor()
	}
	return m
}()

// coloredValue is written verbatim by the kv encoder.
type coloredValue string

func colorLevel(level string) coloredValue {
	if c, ok := levelColors[level]; ok {
		return coloredValue(c.Sprint(level))
	}
	return coloredValue(level)
}
