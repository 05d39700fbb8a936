// Package builders implements the builder kinds.
package builders

import (
	"github.com/goliatone/go-pkgtree/document"
	"github.com/goliatone/go-pkgtree/shell"
)

// parseArguments reads a command line from a string, which is split with
// shell quoting rules, or from a list holding one argument per item.
func parseArguments(node document.Node) (shell.Arguments, error) {
	if node.IsNull() {
		return nil, nil
	}
	if node.IsScalar() {
		text, _ := node.Scalar()
		args, err := shell.Parse(text)
		if err != nil {
			return nil, node.Errorf("%v", err)
		}
		return args, nil
	}
	items, err := node.Items()
	if err != nil {
		return nil, err
	}
	args := make(shell.Arguments, 0, len(items))
	for _, item := range items {
		text, err := item.Scalar()
		if err != nil {
			return nil, err
		}
		word, err := shell.Word(shell.Expand(text))
		if err != nil {
			return nil, item.Errorf("%v", err)
		}
		args = append(args, word)
	}
	return args, nil
}
