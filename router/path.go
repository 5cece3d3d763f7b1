package router

import (
	"fmt"
	"strings"
)

const pathSeparator = "/"

type componentKind int

const (
	literalComponent componentKind = iota
	paramComponent
	catchAllComponent
)

type pathComponent struct {
	kind  componentKind
	value string // literal text, or parameter name (without ':'), empty for catch-all
}

// compilePath splits a route path into trie components. A leading/trailing
// separator is ignored; an internal "**" component must be last and
// consumes the remainder of the URL.
func compilePath(path string) ([]pathComponent, error) {
	trimmed := strings.Trim(path, pathSeparator)
	if trimmed == "" {
		return []pathComponent{}, nil
	}

	parts := strings.Split(trimmed, pathSeparator)
	components := make([]pathComponent, 0, len(parts))

	for i, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("router: empty path component in %q", path)
		}

		if part == "**" {
			if i != len(parts)-1 {
				return nil, fmt.Errorf("router: catch-all '**' must be the final component in %q", path)
			}
			components = append(components, pathComponent{kind: catchAllComponent})
			continue
		}

		if strings.HasPrefix(part, ":") {
			name := strings.TrimPrefix(part, ":")
			if name == "" {
				return nil, fmt.Errorf("router: empty parameter name in %q", path)
			}
			components = append(components, pathComponent{kind: paramComponent, value: name})
			continue
		}

		components = append(components, pathComponent{kind: literalComponent, value: part})
	}

	return components, nil
}

// splitRequestPath breaks an incoming request path into literal segments
// for trie traversal, the same way compilePath does for registered routes.
func splitRequestPath(path string) []string {
	trimmed := strings.Trim(path, pathSeparator)
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, pathSeparator)
}

// isLiteralOnly reports whether every component of a compiled route is a
// literal, the precondition for GET->HEAD shadow synthesis (§4.2).
func isLiteralOnly(components []pathComponent) bool {
	for _, c := range components {
		if c.kind != literalComponent {
			return false
		}
	}
	return true
}
