package ast

import (
	"fmt"
	"io"
)

// Print writes an indented tree dump, one node per line.
func Print(w io.Writer, n *Node, indent int) {
	if n == nil {
		return
	}

	for i := 0; i < indent; i++ {
		fmt.Fprint(w, "  ")
	}

	if n.Value != "" {
		fmt.Fprintf(w, "%v: '%s'\n", n.Kind, n.Value)
	} else {
		fmt.Fprintf(w, "%v\n", n.Kind)
	}

	for _, c := range n.Children {
		Print(w, c, indent+1)
	}
}

// PrintDebug is Print with node address and children capacity.
func PrintDebug(w io.Writer, n *Node, indent int) {
	if n == nil {
		return
	}

	for i := 0; i < indent; i++ {
		fmt.Fprint(w, "  ")
	}

	fmt.Fprintf(w, "%v %p value=%q children=%d/%d\n",
		n.Kind, n, n.Value, len(n.Children), cap(n.Children))

	for _, c := range n.Children {
		PrintDebug(w, c, indent+1)
	}
}
