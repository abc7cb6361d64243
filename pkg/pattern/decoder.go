package pattern

import (
	"strconv"
	"strings"
)

// probability modifier markers; '?' is the legacy battito form
const probabilityMarkers = ":@?"

type decoder struct {
	defaultValue uint32
}

func newDecoder(opts Options) decoder {
	return decoder{defaultValue: opts.DefaultValue}
}

// decode turns a raw token into its value and probability
func (d decoder) decode(tok Token) Event {
	if tok.Kind != TokenHit {
		return Event{}
	}

	body := tok.Text
	if body != "" && (body[0] == 'x' || body[0] == 'X') {
		body = body[1:]
	}

	digits, rest := splitDigits(body)
	ev := Event{Value: d.defaultValue, Probability: ProbabilityAlways}
	if v, ok := parseUint32(digits); ok {
		ev.Value = v
	}

	if i := strings.IndexAny(rest, probabilityMarkers); i >= 0 {
		pct, _ := splitDigits(rest[i+1:])
		if p, ok := parsePercent(pct); ok {
			ev.Probability = p
		}
	}
	return ev
}

// splitDigits splits s after its leading run of ASCII digits
func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

func parseUint32(digits string) (uint32, bool) {
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// parsePercent rescales a 0-100 percentage onto 0-255, rounding half up
func parsePercent(digits string) (uint8, bool) {
	pct, ok := parseUint32(digits)
	if !ok || pct > 100 {
		return 0, false
	}
	return ScalePercent(pct), true
}

// ScalePercent maps a percentage onto the 0-255 probability scale.
// Values above 100 clamp to ProbabilityAlways.
func ScalePercent(pct uint32) uint8 {
	if pct >= 100 {
		return ProbabilityAlways
	}
	return uint8((pct*255 + 50) / 100)
}

// Percent maps a 0-255 probability back to the nearest percentage
func Percent(p uint8) uint32 {
	return (uint32(p)*100 + 127) / 255
}
