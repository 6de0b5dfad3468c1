package route

import (
	"fmt"
	"strings"

	"github.com/roach88/dataprovider/internal/contract"
)

// Kind is the closed set of route shapes an address can resolve to.
type Kind int

const (
	// KindUnknown is the zero value; no successful resolution returns it.
	KindUnknown Kind = iota
	ImagesCollection
	ImagesItem
	HistoryCollection
	HistoryItem
	// WholeStore is the root address: not addressable for reads, but the
	// target of a destructive whole-store delete.
	WholeStore
)

// String returns the symbolic name of the kind.
func (k Kind) String() string {
	switch k {
	case ImagesCollection:
		return "IMAGES"
	case ImagesItem:
		return "IMAGES_ID"
	case HistoryCollection:
		return "HISTORY"
	case HistoryItem:
		return "HISTORY_ID"
	case WholeStore:
		return "WHOLE_STORE"
	default:
		return "UNKNOWN"
	}
}

// IsItem reports whether k addresses exactly one row.
func (k Kind) IsItem() bool {
	return k == ImagesItem || k == HistoryItem
}

// IsCollection reports whether k addresses a whole table.
func (k Kind) IsCollection() bool {
	return k == ImagesCollection || k == HistoryCollection
}

// Binding maps a path pattern to a route kind and its storage target.
//
// Pattern is a '/'-separated list of literal segments; a final "*" segment
// captures the item key. KeyColumn is required for item patterns.
type Binding struct {
	Pattern   string
	Kind      Kind
	Table     string
	KeyColumn string
}

// DefaultBindings returns the four registered shapes.
func DefaultBindings() []Binding {
	return []Binding{
		{Pattern: contract.PathImages, Kind: ImagesCollection, Table: contract.TableImages},
		{Pattern: contract.PathImages + "/*", Kind: ImagesItem, Table: contract.TableImages, KeyColumn: contract.ImageIDColumn},
		{Pattern: contract.PathHistory, Kind: HistoryCollection, Table: contract.TableHistory},
		{Pattern: contract.PathHistory + "/*", Kind: HistoryItem, Table: contract.TableHistory, KeyColumn: contract.RowIDColumn},
	}
}

// Resolution is the storage target of a resolved address.
type Resolution struct {
	Kind Kind

	// Table is empty for WholeStore.
	Table string

	// KeyColumn and Key are set for item kinds only.
	KeyColumn string
	Key       string

	// Address is the address that was resolved, options included.
	Address Address
}

// compiledBinding is a Binding split into segments.
type compiledBinding struct {
	Binding
	segments []string
	wildcard bool
}

// Router resolves addresses to exactly one route.
//
// The binding table is fixed at construction and never mutated, so a Router
// is safe for concurrent use.
type Router struct {
	authority string
	bindings  []compiledBinding
}

// NewRouter creates a router for authority. With no bindings the
// DefaultBindings are registered.
//
// Panics if a binding is malformed or two bindings share a shape; bindings
// are static program configuration.
func NewRouter(authority string, bindings ...Binding) *Router {
	if len(bindings) == 0 {
		bindings = DefaultBindings()
	}

	r := &Router{authority: authority}
	shapes := make(map[string]bool, len(bindings))

	for _, b := range bindings {
		cb := compileBinding(b)
		shape := strings.Join(cb.segments, "/")
		if cb.wildcard {
			shape += "/*"
		}
		if shapes[shape] {
			panic(fmt.Sprintf("route: duplicate binding for %q", b.Pattern))
		}
		shapes[shape] = true
		r.bindings = append(r.bindings, cb)
	}

	return r
}

func compileBinding(b Binding) compiledBinding {
	if b.Pattern == "" || b.Table == "" {
		panic(fmt.Sprintf("route: binding %+v needs a pattern and a table", b))
	}

	segs := strings.Split(b.Pattern, "/")
	cb := compiledBinding{Binding: b}
	for i, s := range segs {
		switch {
		case s == "*" && i == len(segs)-1:
			cb.wildcard = true
		case s == "" || strings.Contains(s, "*"):
			panic(fmt.Sprintf("route: invalid segment %q in pattern %q", s, b.Pattern))
		default:
			cb.segments = append(cb.segments, s)
		}
	}

	if cb.wildcard != b.Kind.IsItem() {
		panic(fmt.Sprintf("route: pattern %q does not match kind %s", b.Pattern, b.Kind))
	}
	if cb.wildcard && b.KeyColumn == "" {
		panic(fmt.Sprintf("route: item pattern %q needs a key column", b.Pattern))
	}

	return cb
}

// Authority returns the authority this router accepts.
func (r *Router) Authority() string {
	return r.authority
}

// Resolve maps addr to exactly one route.
//
// The root address resolves to WholeStore. Addresses for another authority,
// unregistered collections, extra segments, and empty keys fail with
// UNKNOWN_RESOURCE.
func (r *Router) Resolve(addr Address) (Resolution, error) {
	if addr.Authority != r.authority {
		return Resolution{}, contract.NewError(contract.ErrCodeUnknownResource, addr.String(),
			"unknown authority %q", addr.Authority)
	}

	if addr.IsRoot() {
		return Resolution{Kind: WholeStore, Address: addr}, nil
	}

	for _, b := range r.bindings {
		key, ok := b.match(addr.Segments)
		if !ok {
			continue
		}
		if b.wildcard && key == "" {
			return Resolution{}, contract.NewError(contract.ErrCodeUnknownResource, addr.String(),
				"empty item key")
		}
		res := Resolution{Kind: b.Kind, Table: b.Table, Address: addr}
		if b.wildcard {
			res.KeyColumn = b.KeyColumn
			res.Key = key
		}
		return res, nil
	}

	return Resolution{}, contract.NewError(contract.ErrCodeUnknownResource, addr.String(),
		"no route for path %q", addr.Path())
}

// match reports whether segs has exactly this binding's shape, returning the
// captured key for wildcard bindings.
func (b compiledBinding) match(segs []string) (string, bool) {
	want := len(b.segments)
	if b.wildcard {
		want++
	}
	if len(segs) != want {
		return "", false
	}
	for i, s := range b.segments {
		if segs[i] != s {
			return "", false
		}
	}
	if b.wildcard {
		return segs[len(segs)-1], true
	}
	return "", true
}
