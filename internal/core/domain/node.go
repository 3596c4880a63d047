package domain

import "strings"

// Property is one global build property in "key=value" form.
type Property struct {
	Key   string
	Value string
}

// String returns "key=value".
func (p Property) String() string {
	return p.Key + "=" + p.Value
}

// ParseProperty splits "key=value". A missing '=' yields an empty value.
func ParseProperty(s string) Property {
	k, v, _ := strings.Cut(s, "=")
	return Property{Key: strings.TrimSpace(k), Value: strings.TrimSpace(v)}
}

// Node is one buildable unit of the dependency graph.
type Node struct {
	// ID is the normalized identity path of the node.
	ID InternedString
	// Properties are the global build properties in declared order.
	Properties []Property
	// Dependencies are the IDs of direct dependencies in declared order.
	Dependencies []InternedString
	// Inputs are the predicted input patterns, relative to the repository root.
	Inputs []InternedString
	// Command is the program and arguments that build the node.
	Command []string
	// WorkingDir is the directory the command runs in, relative to the repository root.
	WorkingDir InternedString
	// Targets is the default target set. Only requests for exactly these targets are cached.
	Targets []string
	// Environment holds extra environment variables for the command.
	Environment map[string]string
}

// IsDefaultTargetSet reports whether the requested targets are the node's default target
// set. An empty request means the default set.
func (n *Node) IsDefaultTargetSet(requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	if len(requested) != len(n.Targets) {
		return false
	}
	want := make(map[string]struct{}, len(n.Targets))
	for _, t := range n.Targets {
		want[strings.ToLower(t)] = struct{}{}
	}
	for _, t := range requested {
		if _, ok := want[strings.ToLower(t)]; !ok {
			return false
		}
	}
	return true
}

// NormalizeNodeID produces the identity path used for fingerprinting: forward slashes,
// no leading "./", no trailing slash.
func NormalizeNodeID(id string) string {
	id = strings.ReplaceAll(id, "\\", "/")
	id = strings.TrimPrefix(id, "./")
	return strings.TrimSuffix(id, "/")
}
