// Package catalog is the fixed list of well-known public resolvers that
// can be selected by key instead of by address.
package catalog

// Entry is one known resolver.
type Entry struct {
	Key     string
	Label   string
	Address string // IPv4, without port
}

var entries = []Entry{
	{Key: "google", Label: "Google Dns", Address: "8.8.8.8"},
	{Key: "open", Label: "Open Dns", Address: "8.8.4.4"},
	{Key: "cloudflare", Label: "Cloudflare Dns", Address: "1.1.1.1"},
	{Key: "ali", Label: "Ali Dns", Address: "223.5.5.5"},
	{Key: "114", Label: "114 Dns", Address: "114.114.114.114"},
}

var byKey = func() map[string]Entry {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Key] = e
	}
	return m
}()

// Entries returns a copy of the catalog in display order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Keys returns the catalog keys in display order.
func Keys() []string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Lookup returns the entry for key.
func Lookup(key string) (Entry, bool) {
	e, ok := byKey[key]
	return e, ok
}

// Label returns the display label for key.
func Label(key string) (string, bool) {
	e, ok := byKey[key]
	return e.Label, ok
}

// Address returns the IPv4 address for key.
func Address(key string) (string, bool) {
	e, ok := byKey[key]
	return e.Address, ok
}

// LabelOrRaw returns the label for key, or key itself when it is not in
// the catalog. Custom resolver addresses always take the second path.
func LabelOrRaw(key string) string {
	if label, ok := Label(key); ok {
		return label
	}
	return key
}
