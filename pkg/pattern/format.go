package pattern

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format represents an output rendering of a compiled pattern
type Format string

const (
	FormatJSON Format = "json"
	FormatMax  Format = "max"
	FormatGrid Format = "grid"
	FormatText Format = "text"
)

// Formats lists the supported output formats
func Formats() []Format {
	return []Format{FormatJSON, FormatMax, FormatGrid, FormatText}
}

// ParseFormat resolves a format name, case-insensitively
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", name)
}

// Render renders the pattern in the given format
func (p Pattern) Render(f Format) (string, error) {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode pattern: %w", err)
		}
		return string(data), nil
	case FormatMax:
		return p.MaxString(), nil
	case FormatGrid:
		return p.GridString(), nil
	case FormatText:
		return p.Notation(), nil
	default:
		return "", fmt.Errorf("unknown format %q", f)
	}
}

// MaxString renders the playable steps as "index value probability"
// triples separated by ", ", the list form Max patches consume.
func (p Pattern) MaxString() string {
	steps := p.Steps()
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = fmt.Sprintf("%d %d %d", s.Index, s.Event.Value, s.Event.Probability)
	}
	return strings.Join(parts, ", ")
}

// GridString renders one character per step: '.' rest, 'x' certain hit,
// 'o' probabilistic hit.
func (p Pattern) GridString() string {
	var b strings.Builder
	b.Grow(len(p.Events))
	for _, ev := range p.Events {
		switch {
		case ev.IsRest():
			b.WriteByte('.')
		case ev.Probability == ProbabilityAlways:
			b.WriteByte('x')
		default:
			b.WriteByte('o')
		}
	}
	return b.String()
}

// Notation writes the pattern back as step notation. Compiling the result
// onto the same grid reproduces the pattern whenever every probability
// came from a whole percentage.
func (p Pattern) Notation() string {
	parts := make([]string, len(p.Events))
	for i, ev := range p.Events {
		if ev == (Event{}) {
			parts[i] = "."
			continue
		}
		var b strings.Builder
		b.WriteByte('x')
		if ev.Value != 0 {
			fmt.Fprintf(&b, "%d", ev.Value)
		}
		if ev.Probability != ProbabilityAlways {
			fmt.Fprintf(&b, ":%d", Percent(ev.Probability))
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, " ")
}
