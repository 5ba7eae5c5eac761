package types

// EventAttribute is one key/value tag of an event. Indexed attributes
// are the ones hosts make searchable (accounts, round ids, tiers).
type EventAttribute struct {
	Key   string `cramberry:"1"`
	Value string `cramberry:"2"`
	Index bool   `cramberry:"3"`
}

// Event is the wire form of a registry event reported in a TxOutcome.
type Event struct {
	Kind       string           `cramberry:"1"`
	Attributes []EventAttribute `cramberry:"2"`
}

// Attr returns the value of the first attribute named key.
func (e Event) Attr(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}
