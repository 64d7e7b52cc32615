package response

import "github.com/synodriver/davgate/transport"

// Headers is an ordered header set. Keys are case-sensitive and transmitted
// in insertion order; Set replaces the value of an existing key in place.
type Headers struct {
	items []transport.Header
}

// NewHeaders returns a header set pre-populated with the given pairs.
func NewHeaders(pairs ...transport.Header) *Headers {
	return &Headers{items: pairs}
}

// Set adds the header, replacing the value of an existing exact-key entry.
func (h *Headers) Set(key, value string) {
	for i := range h.items {
		if h.items[i].Key == key {
			h.items[i].Value = value
			return
		}
	}
	h.items = append(h.items, transport.Header{Key: key, Value: value})
}

// Get returns the value of the first exact-key entry.
func (h *Headers) Get(key string) (string, bool) {
	for i := range h.items {
		if h.items[i].Key == key {
			return h.items[i].Value, true
		}
	}
	return "", false
}

// Del removes all entries with the exact key.
func (h *Headers) Del(key string) {
	kept := h.items[:0]
	for _, item := range h.items {
		if item.Key != key {
			kept = append(kept, item)
		}
	}
	h.items = kept
}

// Items returns the ordered header pairs for transmission. The returned
// slice is owned by the Headers and must not be retained across mutation.
func (h *Headers) Items() []transport.Header {
	return h.items
}

// Len returns the number of header entries.
func (h *Headers) Len() int {
	return len(h.items)
}
