package opml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"outliner-cli/internal/outline"
)

type decoded struct {
	header  Header
	tree    *outline.Tree
	hasHead bool
	hasBody bool
}

// decode reads an OPML document token by token. RawToken keeps attribute
// names exactly as written (prefixes included), so tag balance is checked
// here rather than by the decoder.
func decode(r io.Reader, opts ...outline.Option) (*decoded, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	res := &decoded{tree: outline.NewTree(opts...)}
	var (
		stack   []string
		parents []outline.ID // outline ancestry while inside <body>
		text    strings.Builder
		inHead  bool
		inBody  bool
		rootSet bool
		skip    int // depth of an ignored element inside head/body
	)

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := attrName(t.Name)
			if len(stack) == 0 {
				if rootSet {
					return nil, fmt.Errorf("multiple root elements")
				}
				if t.Name.Local != "opml" {
					return nil, fmt.Errorf("root element is <%s>, expected <opml>", name)
				}
				rootSet = true
				res.header.Attrs = outline.NewAttrs()
				for _, a := range t.Attr {
					if n := attrName(a.Name); n != "version" {
						res.header.Attrs.Set(n, a.Value)
					}
				}
			}
			stack = append(stack, name)
			if skip > 0 {
				skip++
				continue
			}

			switch {
			case len(stack) == 2 && name == "head" && !res.hasHead:
				inHead, res.hasHead = true, true
			case len(stack) == 2 && name == "body" && !res.hasBody:
				inBody, res.hasBody = true, true
				parents = []outline.ID{res.tree.Root()}
			case inHead && len(stack) == 3:
				text.Reset()
			case inBody && name == "outline":
				n := decodeNode(t.Attr)
				if err := res.tree.Attach(parents[len(parents)-1], n); err != nil {
					return nil, err
				}
				parents = append(parents, n.ID)
			case inHead || inBody:
				skip = 1
			}

		case xml.EndElement:
			name := attrName(t.Name)
			if len(stack) == 0 || stack[len(stack)-1] != name {
				return nil, fmt.Errorf("unexpected closing tag </%s>", name)
			}
			stack = stack[:len(stack)-1]
			if skip > 0 {
				skip--
				continue
			}

			switch {
			case inHead && len(stack) == 2:
				res.header.set(name, text.String())
			case inHead && len(stack) == 1:
				inHead = false
			case inBody && name == "outline":
				parents = parents[:len(parents)-1]
			case inBody && len(stack) == 1:
				inBody = false
			}

		case xml.CharData:
			if inHead && skip == 0 && len(stack) == 3 {
				text.Write(t)
			}
		}
	}

	if !rootSet {
		return nil, fmt.Errorf("no <opml> element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1])
	}
	res.tree.ClearChanged(res.tree.Root())
	return res, nil
}

func (h *Header) set(name, value string) {
	value = strings.TrimSpace(value)
	switch name {
	case "title":
		h.Title = value
	case "expansionState":
		h.ExpansionState = value
	case "dateCreated":
		h.Created, _ = parseDate(value)
	case "dateLastSaved":
		h.LastSaved, _ = parseDate(value)
	}
}

// charsetReader lets files declare a non-UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
