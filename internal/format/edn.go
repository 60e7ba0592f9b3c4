package format

import (
	"io"
	"slices"
	"strconv"
	"strings"
	"time"
)

// WriteEDN writes an EDN rendering of v covering maps, vectors, strings,
// numbers, booleans and nil. Field names come from json tags; map keys become
// keywords and RFC 3339 strings become #inst literals.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	x, err := generic(v)
	if err != nil {
		return err
	}
	e := &ednWriter{pretty: pretty}
	e.value(x)
	e.sb.WriteByte('\n')
	_, err = io.WriteString(w, e.sb.String())
	return err
}

type ednWriter struct {
	sb     strings.Builder
	pretty bool
	depth  int
}

func (e *ednWriter) value(v any) {
	switch t := v.(type) {
	case nil:
		e.sb.WriteString("nil")
	case bool:
		e.sb.WriteString(strconv.FormatBool(t))
	case float64:
		e.number(t)
	case string:
		if _, err := time.Parse(time.RFC3339, t); err == nil {
			e.sb.WriteString("#inst ")
		}
		e.sb.WriteString(strconv.Quote(t))
	case []any:
		e.coll('[', ']', len(t), func(i int) { e.value(t[i]) })
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		e.coll('{', '}', len(keys), func(i int) {
			e.sb.WriteString(keyword(keys[i]))
			e.sb.WriteByte(' ')
			e.value(t[keys[i]])
		})
	}
}

// number prints integral values without a fraction; decoded JSON numbers are
// always float64.
func (e *ednWriter) number(f float64) {
	if f == float64(int64(f)) {
		e.sb.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	e.sb.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
}

// coll writes n elements between start and end: space separated, or one per
// line when pretty.
func (e *ednWriter) coll(start, end byte, n int, elem func(i int)) {
	e.sb.WriteByte(start)
	if n == 0 {
		e.sb.WriteByte(end)
		return
	}
	e.depth++
	for i := 0; i < n; i++ {
		switch {
		case e.pretty:
			e.newline()
		case i > 0:
			e.sb.WriteByte(' ')
		}
		elem(i)
	}
	e.depth--
	if e.pretty {
		e.newline()
	}
	e.sb.WriteByte(end)
}

func (e *ednWriter) newline() {
	e.sb.WriteByte('\n')
	e.sb.WriteString(strings.Repeat("  ", e.depth))
}

// keyword maps a JSON key to a keyword. Spaces become dashes and the first
// colon becomes a namespace slash, so "x:color" reads as :x/color.
func keyword(k string) string {
	k = strings.ReplaceAll(strings.TrimSpace(k), " ", "-")
	return ":" + strings.Replace(k, ":", "/", 1)
}
