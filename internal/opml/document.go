package opml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"outliner-cli/internal/outline"
	"outliner-cli/internal/store"
)

// DefaultHeaderTitle is the head title of a document that has none.
const DefaultHeaderTitle = "New Item"

// Header is the <head> section of an OPML file.
type Header struct {
	Title          string
	ExpansionState string
	Created        time.Time
	LastSaved      time.Time

	// Attrs holds attributes of the <opml> element other than version,
	// namespace declarations in particular.
	Attrs *outline.Attrs
}

// Document is one open outline file: a header plus the body tree.
type Document struct {
	Header Header
	Tree   *outline.Tree

	path string
}

// New returns an unsaved document holding a single default item.
func New(opts ...outline.Option) *Document {
	tree := outline.NewTree(opts...)
	tree.AddChild(tree.Root(), outline.NewNode("", tree.Now()), outline.Child)
	return &Document{
		Header: Header{Title: DefaultHeaderTitle, Created: tree.Now()},
		Tree:   tree,
	}
}

// Load reads and parses the OPML file at path. On failure nothing is returned
// besides a LoadError.
func Load(path string, opts ...outline.Option) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, LoadError{Path: path, Err: err}
	}
	doc, err := Parse(b, opts...)
	if err != nil {
		return nil, LoadError{Path: path, Err: err}
	}
	doc.path = path
	return doc, nil
}

// Parse decodes a whole OPML document. A document without a <body> gets a
// single default item.
func Parse(b []byte, opts ...outline.Option) (*Document, error) {
	res, err := decode(bytes.NewReader(b), opts...)
	if err != nil {
		return nil, err
	}
	doc := &Document{Header: res.header, Tree: res.tree}
	if !res.hasHead {
		doc.Header.Title = DefaultHeaderTitle
	}
	if !res.hasBody {
		res.tree.AddChild(res.tree.Root(), outline.NewNode("", res.tree.Now()), outline.Child)
	}
	return doc, nil
}

// Path is the file the document was last loaded from or saved to.
func (d *Document) Path() string { return d.path }

// Name is the file name without directory or extension.
func (d *Document) Name() string {
	if d.path == "" {
		return "Untitled"
	}
	base := filepath.Base(d.path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func (d *Document) HasUnsavedChanges() bool {
	return d.Tree.HasUnsavedChanges(d.Tree.Root())
}

// Save writes the document to path, or to the remembered path when path is
// empty. The write is atomic; on success the path is remembered and all
// changed flags are cleared.
func (d *Document) Save(path string) error {
	if path == "" {
		path = d.path
	}
	if path == "" {
		return SaveError{Err: fmt.Errorf("no file path")}
	}
	b, err := d.Marshal()
	if err != nil {
		return SaveError{Path: path, Err: err}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SaveError{Path: path, Err: err}
	}
	if err := store.AtomicWriteFile(dir, ".outline.*.tmp", path, b, 0o644); err != nil {
		return SaveError{Path: path, Err: err}
	}
	d.path = path
	d.Tree.ClearChanged(d.Tree.Root())
	return nil
}

// Marshal serialises the whole document and stamps the last-saved date.
func (d *Document) Marshal() ([]byte, error) {
	d.Header.LastSaved = d.Tree.Now()
	return encode(d.Header, d.Tree, d.Tree.Children(d.Tree.Root()), true)
}

// RenderSubtreeXML renders id (and, if asked, its descendants) as a
// standalone document whose body holds just that item. It is the transfer
// format for copy, cut and duplicate.
func (d *Document) RenderSubtreeXML(id outline.ID, includeChildren bool) (string, error) {
	if _, ok := d.Tree.Find(id); !ok {
		return "", outline.NotFoundError{ID: id}
	}
	h := d.Header
	h.LastSaved = d.Tree.Now()
	b, err := encode(h, d.Tree, []outline.ID{id}, includeChildren)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseFragment is the inverse of RenderSubtreeXML. It returns a tree holding
// the parsed items and the id of the first top-level one. Malformed or empty
// input reports ErrNothingToPaste.
func ParseFragment(s string, opts ...outline.Option) (*outline.Tree, outline.ID, error) {
	res, err := decode(bytes.NewReader([]byte(s)), opts...)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNothingToPaste, err)
	}
	kids := res.tree.Children(res.tree.Root())
	if len(kids) == 0 {
		return nil, "", ErrNothingToPaste
	}
	return res.tree, kids[0], nil
}

func encode(h Header, tree *outline.Tree, top []outline.ID, includeChildren bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	w := &tokenWriter{enc: enc}
	root := []xml.Attr{attr("version", "2.0")}
	for k, v := range h.Attrs.All() {
		root = append(root, attr(k, v))
	}
	w.start("opml", root...)
	w.start("head")
	w.element("title", h.Title)
	w.element("expansionState", h.ExpansionState)
	w.element("dateCreated", formatDate(h.Created))
	w.element("dateLastSaved", formatDate(h.LastSaved))
	w.end("head")
	w.start("body")
	for _, id := range top {
		w.outline(tree, id, includeChildren)
	}
	w.end("body")
	w.end("opml")
	if w.err == nil {
		w.err = enc.Flush()
	}
	if w.err != nil {
		return nil, w.err
	}

	out := bytes.ReplaceAll(buf.Bytes(), []byte(newlinePlaceholder), []byte(newlineCharRef))
	return append(out, '\n'), nil
}

// tokenWriter keeps the first encoder error so the document can be written
// without checking every token.
type tokenWriter struct {
	enc *xml.Encoder
	err error
}

func (w *tokenWriter) token(t xml.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(t)
}

func (w *tokenWriter) start(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *tokenWriter) end(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *tokenWriter) element(name, text string) {
	w.start(name)
	if text != "" {
		w.token(xml.CharData(text))
	}
	w.end(name)
}

func (w *tokenWriter) outline(tree *outline.Tree, id outline.ID, includeChildren bool) {
	n, ok := tree.Node(id)
	if !ok {
		return
	}
	w.start("outline", encodeAttrs(n)...)
	if includeChildren {
		for _, c := range tree.Children(id) {
			w.outline(tree, c, true)
		}
	}
	w.end("outline")
}
