package dag

import (
	"fmt"
	"io"
	"strings"
)

// Describe writes an indented text representation of the dependency
// subtree rooted at sink to w, one node per line. It is a debugging aid
// (supplemental to the reference implementation's graph()/text_graph()
// helpers), not a serialization format.
func Describe(w io.Writer, sink Node) error {
	return describe(w, sink, 0)
}

func describe(w io.Writer, n Node, depth int) error {
	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), n.Name()); err != nil {
		return err
	}
	for _, d := range n.Deps() {
		if err := describe(w, d, depth+1); err != nil {
			return err
		}
	}
	return nil
}
