package opml

import (
	"encoding/xml"
	"strings"
	"time"

	"outliner-cli/internal/outline"
)

// Attribute names understood by the codec.
const (
	attrText      = "text"
	attrNote      = "_note"
	attrStatus    = "_status"
	attrStar      = "_star"
	attrExpanded  = "_expanded"
	attrCreated   = "_created"
	attrUpdated   = "_updated"
	attrCompleted = "_completed"

	statusChecked = "checked"
	flagYes       = "yes"
)

// newlinePlaceholder stands in for a newline inside _note until the document
// has been escaped; it is then swapped for a character reference.
const (
	newlinePlaceholder = "#NewLine#"
	newlineCharRef     = "&#xA;"
)

var typedAttrs = []string{attrText, attrNote, attrStatus, attrStar, attrExpanded, attrCreated, attrUpdated, attrCompleted}

func attrName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// decodeNode builds an unattached node from an <outline> element's attributes.
// Anything the typed fields do not claim lands in the extension bag.
func decodeNode(attrs []xml.Attr) *outline.Node {
	n := &outline.Node{ID: outline.NewID(), Attrs: outline.NewAttrs()}
	for _, a := range attrs {
		switch name := attrName(a.Name); name {
		case attrText:
			n.Title = a.Value
		case attrNote:
			n.Notes = a.Value
		case attrStatus:
			n.Completed = a.Value == statusChecked
		case attrStar:
			n.Starred = a.Value == flagYes
		case attrExpanded:
			n.Expanded = a.Value == flagYes
		case attrCreated, attrUpdated, attrCompleted:
			t, ok := parseDate(a.Value)
			if !ok {
				// Kept as written so an unknown date format survives a save.
				n.Attrs.Set(name, a.Value)
				continue
			}
			switch name {
			case attrCreated:
				n.CreatedAt = t
			case attrUpdated:
				n.UpdatedAt = t
			default:
				n.CompletedAt = t
			}
		default:
			n.Attrs.Set(name, a.Value)
		}
	}
	return n
}

// encodeAttrs renders n's attribute set. Typed keys are claimed from the
// extension bag so a flag that was switched off is not written back from it.
// A date the codec could not read stays in the bag until its field is set,
// or, for _completed, until the item is no longer completed.
func encodeAttrs(n *outline.Node) []xml.Attr {
	for _, k := range typedAttrs {
		if keepUnparsedDate(n, k) {
			continue
		}
		n.Attrs.Delete(k)
	}

	out := []xml.Attr{attr(attrText, n.Title)}
	if n.Notes != "" {
		notes := strings.ReplaceAll(n.Notes, "\r", "")
		out = append(out, attr(attrNote, strings.ReplaceAll(notes, "\n", newlinePlaceholder)))
	}
	if n.Completed {
		out = append(out, attr(attrStatus, statusChecked))
	}
	if n.Starred {
		out = append(out, attr(attrStar, flagYes))
	}
	if n.Expanded {
		out = append(out, attr(attrExpanded, flagYes))
	}
	out = appendDate(out, attrCompleted, n.CompletedAt)
	out = appendDate(out, attrCreated, n.CreatedAt)
	out = appendDate(out, attrUpdated, n.UpdatedAt)

	for k, v := range n.Attrs.All() {
		out = append(out, attr(k, v))
	}
	return out
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func appendDate(out []xml.Attr, name string, t time.Time) []xml.Attr {
	if t.IsZero() {
		return out
	}
	return append(out, attr(name, formatDate(t)))
}

// formatDate renders t as ISO-8601 in UTC with second precision.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func keepUnparsedDate(n *outline.Node, key string) bool {
	switch key {
	case attrCreated:
		return n.CreatedAt.IsZero()
	case attrUpdated:
		return n.UpdatedAt.IsZero()
	case attrCompleted:
		return n.Completed && n.CompletedAt.IsZero()
	}
	return false
}

// parseDate accepts ISO-8601 timestamps. ok is false for anything else; an
// empty value is a valid unset date.
func parseDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
