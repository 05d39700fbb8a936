// Package document loads hierarchical configuration documents and exposes
// their values together with the file position each one came from.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Position locates a value inside a document.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	switch {
	case p.Line <= 0:
		return p.File
	case p.File == "":
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	default:
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
}

// Document is one parsed configuration file.
type Document struct {
	File string
	Root Node
}

// Load reads and parses file from fsys.
func Load(fsys afero.Fs, file string) (*Document, error) {
	data, err := afero.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", file, err)
	}
	return Parse(file, data)
}

// Parse parses data as a single YAML document. An empty document is an empty
// mapping.
func Parse(file string, data []byte) (*Document, error) {
	var root yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return nil, &FieldValueError{Pos: Position{File: file}, Err: err}
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind == 0 || isNull(node) {
		node = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: 1, Column: 1}
	}
	doc := &Document{File: file, Root: Node{file: file, node: node}}
	if !doc.Root.IsMapping() {
		return nil, doc.Root.Errorf("expected a mapping at the top level, got %s", doc.Root.KindName())
	}
	return doc, nil
}

// Node is a value inside a document. The zero Node is absent.
type Node struct {
	file string
	node *yaml.Node
	path []string
}

// Entry is one key/value pair of a mapping.
type Entry struct {
	Key   string
	Value Node
}

// FromYAML wraps an existing yaml node.
func FromYAML(file string, node *yaml.Node) Node {
	return Node{file: file, node: node}
}

// IsZero reports whether the node is absent.
func (n Node) IsZero() bool {
	return n.node == nil
}

// File returns the document the node came from.
func (n Node) File() string {
	return n.file
}

// Pos returns the node's position.
func (n Node) Pos() Position {
	if n.node == nil {
		return Position{File: n.file}
	}
	return Position{File: n.file, Line: n.node.Line, Column: n.node.Column}
}

// Path returns the breadcrumb from the document root.
func (n Node) Path() []string {
	return append([]string(nil), n.path...)
}

func (n Node) IsMapping() bool  { return n.node != nil && n.node.Kind == yaml.MappingNode }
func (n Node) IsSequence() bool { return n.node != nil && n.node.Kind == yaml.SequenceNode }
func (n Node) IsScalar() bool   { return n.node != nil && n.node.Kind == yaml.ScalarNode && !isNull(n.node) }
func (n Node) IsNull() bool     { return n.node == nil || isNull(n.node) }

// KindName describes the node's shape for error messages.
func (n Node) KindName() string {
	switch {
	case n.node == nil:
		return "nothing"
	case isNull(n.node):
		return "null"
	case n.node.Kind == yaml.MappingNode:
		return "a mapping"
	case n.node.Kind == yaml.SequenceNode:
		return "a list"
	case n.node.Kind == yaml.AliasNode:
		return "an alias"
	default:
		return "a scalar"
	}
}

// Errorf builds a FieldValueError located at n.
func (n Node) Errorf(format string, args ...any) error {
	return &FieldValueError{Path: n.Path(), Pos: n.Pos(), Err: fmt.Errorf(format, args...)}
}

// Entries returns the pairs of a mapping in document order.
func (n Node) Entries() ([]Entry, error) {
	if n.IsNull() {
		return nil, nil
	}
	if !n.IsMapping() {
		return nil, n.Errorf("expected a mapping, got %s", n.KindName())
	}
	out := make([]Entry, 0, len(n.node.Content)/2)
	for i := 0; i+1 < len(n.node.Content); i += 2 {
		key := n.node.Content[i]
		if key.Kind != yaml.ScalarNode {
			return nil, n.child(key, "").Errorf("mapping keys must be scalars")
		}
		out = append(out, Entry{Key: key.Value, Value: n.child(n.node.Content[i+1], key.Value)})
	}
	return out, nil
}

// Get returns the value stored under key.
func (n Node) Get(key string) (Node, bool) {
	if !n.IsMapping() {
		return Node{}, false
	}
	for i := 0; i+1 < len(n.node.Content); i += 2 {
		if n.node.Content[i].Value == key {
			return n.child(n.node.Content[i+1], key), true
		}
	}
	return Node{}, false
}

// Without returns a copy of a mapping without the given keys.
func (n Node) Without(keys ...string) Node {
	if !n.IsMapping() {
		return n
	}
	drop := make(map[string]bool, len(keys))
	for _, key := range keys {
		drop[key] = true
	}
	clone := *n.node
	clone.Content = make([]*yaml.Node, 0, len(n.node.Content))
	for i := 0; i+1 < len(n.node.Content); i += 2 {
		if drop[n.node.Content[i].Value] {
			continue
		}
		clone.Content = append(clone.Content, n.node.Content[i], n.node.Content[i+1])
	}
	out := n
	out.node = &clone
	return out
}

// Items returns the elements of a list.
func (n Node) Items() ([]Node, error) {
	if n.IsNull() {
		return nil, nil
	}
	if !n.IsSequence() {
		return nil, n.Errorf("expected a list, got %s", n.KindName())
	}
	out := make([]Node, len(n.node.Content))
	for i, item := range n.node.Content {
		out[i] = n.child(item, "["+strconv.Itoa(i)+"]")
	}
	return out, nil
}

// Scalar returns the raw text of a scalar.
func (n Node) Scalar() (string, error) {
	if !n.IsScalar() {
		return "", n.Errorf("expected a scalar, got %s", n.KindName())
	}
	return n.node.Value, nil
}

// Bool decodes a boolean scalar.
func (n Node) Bool() (bool, error) {
	var out bool
	if !n.IsScalar() || n.node.ShortTag() != "!!bool" {
		return false, n.Errorf("expected a boolean, got %s", n.KindName())
	}
	if err := n.node.Decode(&out); err != nil {
		return false, n.Errorf("%v", err)
	}
	return out, nil
}

// IsBool reports whether n is a boolean scalar.
func (n Node) IsBool() bool {
	return n.IsScalar() && n.node.ShortTag() == "!!bool"
}

// Decode decodes the node into v using yaml tags.
func (n Node) Decode(v any) error {
	if n.node == nil {
		return nil
	}
	if err := n.node.Decode(v); err != nil {
		return n.Errorf("%v", err)
	}
	return nil
}

// DecodeStrict decodes a mapping into the struct pointed to by v after
// checking every key against the struct's yaml tags.
func (n Node) DecodeStrict(v any) error {
	if n.IsNull() {
		return nil
	}
	entries, err := n.Entries()
	if err != nil {
		return err
	}
	known := yamlFieldNames(reflect.TypeOf(v))
	for _, entry := range entries {
		if !known[entry.Key] {
			return entry.Value.Errorf("unknown field %q", entry.Key)
		}
	}
	return n.Decode(v)
}

// Interface decodes the node into plain maps, lists and scalars.
func (n Node) Interface() (any, error) {
	var out any
	if err := n.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// YAML returns the underlying yaml node.
func (n Node) YAML() *yaml.Node {
	return n.node
}

func (n Node) child(node *yaml.Node, segment string) Node {
	path := append(append([]string(nil), n.path...), segment)
	if segment == "" {
		path = n.Path()
	}
	return Node{file: n.file, node: node, path: path}
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null"
}

func yamlFieldNames(t reflect.Type) map[string]bool {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]bool{}
	if t == nil || t.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(sf.Tag.Get("yaml"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = strings.ToLower(sf.Name)
		}
		out[name] = true
	}
	return out
}
