package types

import "strconv"

// Event kinds emitted by the application.
const (
	EventAirdrop         = "airdrop"
	EventTransfer        = "transfer"
	EventEndowed         = "endowed"
	EventSomethingStored = "something_stored"
)

// EventAttribute is a single key-value tag within an event.
type EventAttribute struct {
	Key   string `cramberry:"1"`
	Value string `cramberry:"2"`
	Index bool   `cramberry:"3"` // Whether indexers should pick this up.
}

// Event is an application-emitted event.
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

// AccountAttr is an indexed attribute carrying an account.
func AccountAttr(key string, a AccountID) EventAttribute {
	return EventAttribute{Key: key, Value: a.String(), Index: true}
}

// Uint64Attr is a non-indexed decimal attribute.
func Uint64Attr(key string, v uint64) EventAttribute {
	return EventAttribute{Key: key, Value: strconv.FormatUint(v, 10)}
}
