package pattern

// DefaultSubdivision is the grid size used by hosts that do not pick one
const DefaultSubdivision = 16

// Transform compiles text onto a grid of subdivision steps using the
// default options.
//
// The result always has exactly subdivision events. Short input is padded
// with rests and long input is cut, keeping the earliest steps. A
// subdivision of zero or less yields an empty pattern.
func Transform(text string, subdivision int) Pattern {
	return TransformWith(text, subdivision, Options{})
}

// TransformWith compiles text like Transform with explicit options
func TransformWith(text string, subdivision int, opts Options) Pattern {
	p, _ := Compile(text, subdivision, opts)
	return p
}

// Compile compiles text and also reports how the input fitted the grid
func Compile(text string, subdivision int, opts Options) (Pattern, Summary) {
	if subdivision <= 0 {
		return Pattern{Events: []Event{}}, Summary{}
	}
	slots := make([]Event, subdivision)
	sum := quantize(NewTokenizer(text), newDecoder(opts), slots)
	return emit(slots), sum
}
