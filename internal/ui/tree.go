package ui

import (
	"sort"
	"strings"
)

type treeNode struct {
	name     string
	children map[string]*treeNode
}

func (n *treeNode) child(name string) *treeNode {
	if n.children == nil {
		n.children = map[string]*treeNode{}
	}
	c, ok := n.children[name]
	if !ok {
		c = &treeNode{name: name}
		n.children[name] = c
	}
	return c
}

func (n *treeNode) sorted() []*treeNode {
	out := make([]*treeNode, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// RenderTree draws slash-separated entry names under a title line.
// Directories are rendered with the Entry formatter, leaves as plain text.
func RenderTree(title string, entries []string) string {
	root := &treeNode{}
	for _, e := range entries {
		n := root
		for _, seg := range strings.Split(e, "/") {
			if seg == "" {
				continue
			}
			n = n.child(seg)
		}
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	writeTree(&b, root, "")
	return b.String()
}

func writeTree(b *strings.Builder, n *treeNode, indent string) {
	kids := n.sorted()
	for i, c := range kids {
		last := i == len(kids)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		b.WriteString(indent)
		b.WriteString(branch)
		if len(c.children) > 0 {
			b.WriteString(Entry.Sprint(c.name))
		} else {
			b.WriteString(c.name)
		}
		b.WriteString("\n")
		writeTree(b, c, indent+next)
	}
}
