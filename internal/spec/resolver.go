package spec

import "strings"

// Resolve follows a local "$ref" pointer of node within root. Nodes without a
// "$ref" are returned unchanged. A ref that cannot be followed resolves to nil;
// callers treat nil as "definition not found".
func Resolve(root, node *Node) *Node {
	if node == nil || !node.Has("$ref") {
		return node
	}
	return lookupRef(root, node.String("$ref"))
}

func lookupRef(root *Node, ref string) *Node {
	if !strings.HasPrefix(ref, "#/") {
		return nil
	}
	cur := root
	for _, seg := range strings.Split(ref[2:], "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		cur = cur.Get(seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// className returns the last path segment of a ref, e.g. "Pet" for
// "#/definitions/Pet".
func className(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
