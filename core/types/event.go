package types

// Event is a typed record emitted during a state transition. Attributes are
// ordered so reply handlers can scan for marker keys deterministically.
type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

// Attribute is a single key/value pair attached to an event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewEvent builds an event from alternating key/value strings.
func NewEvent(eventType string, kv ...string) *Event {
	ev := &Event{Type: eventType}
	for i := 0; i+1 < len(kv); i += 2 {
		ev.Attributes = append(ev.Attributes, Attribute{Key: kv[i], Value: kv[i+1]})
	}
	return ev
}

// Attribute returns the value for key and whether it was present.
func (e *Event) Attribute(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, attr := range e.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// HasAttribute reports whether the event carries the exact key/value pair.
func (e *Event) HasAttribute(key, value string) bool {
	got, ok := e.Attribute(key)
	return ok && got == value
}

// FindEvent scans a slice of events for the first one carrying the given
// key/value marker attribute. Reply handlers use this to confirm that an
// external call actually performed the expected action.
func FindEvent(events []*Event, key, value string) (*Event, bool) {
	for _, ev := range events {
		if ev.HasAttribute(key, value) {
			return ev, true
		}
	}
	return nil, false
}
