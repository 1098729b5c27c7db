package geko

import (
	"strings"
	"sync"

	"github.com/clbanning/mxj/v2"
)

// Catalog is the normalized parse result. Products is always a slice, even
// when the feed carried a single <product> element.
type Catalog struct {
	Root     string
	Products []map[string]any
}

// The feed appears in the wild under two top-level wrappers.
var knownWrappers = []string{"geko", "offer"}

var mxjSetup sync.Once

// Parse decodes the raw XML into a generic map tree, lowercases every tag
// name, merges attributes into their elements and normalizes the known
// repeatable elements into explicit arrays. Unrecognized top-level wrappers
// are a hard error; single-vs-array ambiguity is resolved here so the
// transformer never branches on runtime shape.
func Parse(raw string) (*Catalog, error) {
	mxjSetup.Do(func() {
		// Attributes become plain keys on their element.
		mxj.PrependAttrWithHyphen(false)
	})

	mv, err := mxj.NewMapXml([]byte(raw))
	if err != nil {
		return nil, &ParseError{Reason: "malformed XML", Err: err}
	}

	doc, ok := normalizeKeys(map[string]any(mv)).(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: "empty document"}
	}

	for _, wrapper := range knownWrappers {
		root, ok := doc[wrapper].(map[string]any)
		if !ok {
			continue
		}
		return &Catalog{
			Root:     wrapper,
			Products: productList(root),
		}, nil
	}

	return nil, &ParseError{Reason: "unrecognized schema: expected <geko> or <offer> root element"}
}

func productList(root map[string]any) []map[string]any {
	raw := EnsureSlice(dig(root, "products", "product"))
	products := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			products = append(products, m)
		}
	}
	return products
}

// normalizeKeys lowercases map keys recursively. The feed mixes tag casing
// between exports; downstream lookups assume lowercase.
func normalizeKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[strings.ToLower(k)] = normalizeKeys(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = normalizeKeys(child)
		}
		return out
	default:
		return v
	}
}

// EnsureSlice turns the XML single-vs-array ambiguity into an explicit slice:
// nil stays empty, a lone element becomes a one-item slice.
func EnsureSlice(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	default:
		return []any{val}
	}
}

// dig walks nested maps by key, returning nil as soon as a level is missing.
func dig(m map[string]any, keys ...string) any {
	var current any = m
	for _, key := range keys {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = node[key]
	}
	return current
}
