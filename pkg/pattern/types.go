// Package pattern compiles battito step notation into fixed-length event patterns
package pattern

// Probability bounds on the internal 0-255 scale
const (
	ProbabilityNever  uint8 = 0
	ProbabilityAlways uint8 = 255
)

// Event is one compiled step: a payload value and its trigger probability
type Event struct {
	Value       uint32 `json:"value"`
	Probability uint8  `json:"probability"` // 0 never fires, 255 always fires
}

// IsRest reports whether the event can never fire
func (e Event) IsRest() bool {
	return e.Probability == ProbabilityNever
}

// Pattern is one playback cycle of events, in grid order
type Pattern struct {
	Events []Event `json:"events"`
	Length uint32  `json:"length"`
}

// TimedEvent is an event tagged with its 1-based grid position
type TimedEvent struct {
	Index uint32 `json:"index"`
	Event Event  `json:"event"`
}

// Steps returns the events that may fire, with their grid positions
func (p Pattern) Steps() []TimedEvent {
	steps := make([]TimedEvent, 0, len(p.Events))
	for i, ev := range p.Events {
		if ev.IsRest() {
			continue
		}
		steps = append(steps, TimedEvent{Index: uint32(i) + 1, Event: ev})
	}
	return steps
}

// Equal reports whether both patterns hold the same events in the same order
func (p Pattern) Equal(other Pattern) bool {
	if p.Length != other.Length || len(p.Events) != len(other.Events) {
		return false
	}
	for i := range p.Events {
		if p.Events[i] != other.Events[i] {
			return false
		}
	}
	return true
}

// Options configures decoding defaults. The zero value is the standard setup.
type Options struct {
	// DefaultValue is used for hits without a usable explicit value
	DefaultValue uint32
}

// Summary describes how the input text was fitted onto the grid
type Summary struct {
	Steps     int  // steps taken from the input
	Padded    int  // rest slots appended after the input ran out
	Truncated bool // input had more steps than the grid
}
