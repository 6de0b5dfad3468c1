package route

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/roach88/dataprovider/internal/contract"
)

// Address identifies a collection, a single item, or the whole store.
//
// Format: content://<authority>[/<segment>...][?<options>]
//
// Segments are stored unescaped; String() path-escapes them again, so keys
// containing '/', '?' or spaces round-trip.
type Address struct {
	Authority string
	Segments  []string
	Query     url.Values
}

// Parse parses a full resource address.
func Parse(s string) (Address, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Address{}, fmt.Errorf("parse address %q: %w", s, err)
	}
	if u.Scheme != contract.Scheme {
		return Address{}, fmt.Errorf("parse address %q: scheme must be %q", s, contract.Scheme)
	}
	if u.Host == "" {
		return Address{}, fmt.Errorf("parse address %q: missing authority", s)
	}

	addr := Address{Authority: u.Host}

	path := strings.TrimPrefix(u.EscapedPath(), "/")
	if path != "" {
		for _, raw := range strings.Split(path, "/") {
			seg, err := url.PathUnescape(raw)
			if err != nil {
				return Address{}, fmt.Errorf("parse address %q: segment %q: %w", s, raw, err)
			}
			addr.Segments = append(addr.Segments, seg)
		}
	}

	if u.RawQuery != "" {
		q, err := url.ParseQuery(u.RawQuery)
		if err != nil {
			return Address{}, fmt.Errorf("parse address %q: query: %w", s, err)
		}
		addr.Query = q
	}

	return addr, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Address {
	addr, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// ParseRelative parses s as either a full address or a path relative to
// authority ("images/x", "/history", "/" or "" for the root).
func ParseRelative(authority, s string) (Address, error) {
	if strings.HasPrefix(s, contract.Scheme+"://") {
		return Parse(s)
	}
	return Parse(contract.Scheme + "://" + authority + "/" + strings.TrimPrefix(s, "/"))
}

// Root returns the whole-store address for authority.
func Root(authority string) Address {
	return Address{Authority: authority}
}

// String formats the address.
func (a Address) String() string {
	var b strings.Builder
	b.WriteString(contract.Scheme)
	b.WriteString("://")
	b.WriteString(a.Authority)
	for _, seg := range a.Segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	if len(a.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(a.Query.Encode())
	}
	return b.String()
}

// Path returns the unescaped segments joined by '/'.
func (a Address) Path() string {
	return strings.Join(a.Segments, "/")
}

// IsRoot reports whether a names the whole store. Options are ignored.
func (a Address) IsRoot() bool {
	return len(a.Segments) == 0
}

// Child returns the address of key under a, without options.
func (a Address) Child(key string) Address {
	segs := make([]string, len(a.Segments), len(a.Segments)+1)
	copy(segs, a.Segments)
	return Address{Authority: a.Authority, Segments: append(segs, key)}
}

// WithoutQuery returns a copy of a with all options removed.
func (a Address) WithoutQuery() Address {
	segs := make([]string, len(a.Segments))
	copy(segs, a.Segments)
	return Address{Authority: a.Authority, Segments: segs}
}

// WithOption returns a copy of a with option key set to value.
func (a Address) WithOption(key, value string) Address {
	out := a.WithoutQuery()
	out.Query = url.Values{}
	for k, vs := range a.Query {
		out.Query[k] = append([]string(nil), vs...)
	}
	out.Query.Set(key, value)
	return out
}

// Equal reports whether a and b name the same resource. Options are ignored.
func (a Address) Equal(b Address) bool {
	if a.Authority != b.Authority || len(a.Segments) != len(b.Segments) {
		return false
	}
	for i := range a.Segments {
		if a.Segments[i] != b.Segments[i] {
			return false
		}
	}
	return true
}

// Contains reports whether a is b or an ancestor of b. Options are ignored.
func (a Address) Contains(b Address) bool {
	if a.Authority != b.Authority || len(a.Segments) > len(b.Segments) {
		return false
	}
	for i := range a.Segments {
		if a.Segments[i] != b.Segments[i] {
			return false
		}
	}
	return true
}

// Distinct reports whether the distinct option is set to a true value.
func (a Address) Distinct() bool {
	return a.boolOption(contract.QueryParameterDistinct)
}

// SyncAgent reports whether the caller_is_sync_agent marker is set to a true value.
func (a Address) SyncAgent() bool {
	return a.boolOption(contract.QueryParameterSyncAgent)
}

// boolOption reads a boolean option. A present key with an empty value
// counts as true ("?distinct"); unparseable values count as false.
func (a Address) boolOption(key string) bool {
	if a.Query == nil || !a.Query.Has(key) {
		return false
	}
	v := a.Query.Get(key)
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
