package pattern

import (
	"fmt"
	"sync"
	"testing"
)

func events(pairs ...uint32) []Event {
	out := make([]Event, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Event{Value: pairs[i], Probability: uint8(pairs[i+1])})
	}
	return out
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		subdivision int
		expected    []Event
	}{
		{"single hit", "x", 1, events(0, 255)},
		{"value and probability", "x60:50 . x", 3, events(60, 128, 0, 0, 0, 255)},
		{"padding", "x", 4, events(0, 255, 0, 0, 0, 0, 0, 0)},
		{"truncation keeps earliest", "x1 x2 x3 x4", 2, events(1, 255, 2, 255)},
		{"empty input", "", 3, events(0, 0, 0, 0, 0, 0)},
		{"only delimiters", " ,, \t\n", 2, events(0, 0, 0, 0)},
		{"malformed words are rests", "x ? foo x", 4, events(0, 255, 0, 0, 0, 0, 0, 255)},
		{"rest symbols", ". - ~ x", 4, events(0, 0, 0, 0, 0, 0, 0, 255)},
		{"digit words", "60@25 36", 2, events(60, 64, 36, 255)},
		{"percent out of range", "x:150", 1, events(0, 255)},
		{"value overflow", "x99999999999", 1, events(0, 255)},
		{"explicit zero percent", "x60:0", 1, events(60, 0)},
		{"repetition", "x*3", 4, events(0, 255, 0, 255, 0, 255, 0, 0)},
		{"euclidean", "x(3,8)", 8, events(0, 255, 0, 0, 0, 0, 0, 255, 0, 0, 0, 0, 0, 255, 0, 0)},
		{"euclidean rotated", "x(3,8,1)", 8, events(0, 0, 0, 255, 0, 0, 0, 0, 0, 255, 0, 0, 0, 0, 0, 255)},
		{"invalid euclidean", "x(9,8)", 2, events(0, 0, 0, 0)},
		{"comma separated", "x,x60,.", 3, events(0, 255, 60, 255, 0, 0)},
		{"replication", "1 2?40!2 3", 4, events(1, 255, 2, 102, 2, 102, 3, 255)},
		{"replicated euclidean", "x36(3,4)!2", 8, events(36, 255, 0, 0, 36, 255, 36, 255, 36, 255, 0, 0, 36, 255, 36, 255)},
		{"polymetric", "{1 2 3 4}%5", 5, events(1, 255, 2, 255, 3, 255, 4, 255, 1, 255)},
		{"polymetric then step", "{1 2}%3 x9", 4, events(1, 255, 2, 255, 1, 255, 9, 255)},
		{"euclidean with probability", "x?30(3,8,0) x", 9, events(0, 77, 0, 0, 0, 0, 0, 77, 0, 0, 0, 0, 0, 77, 0, 0, 0, 255)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Transform(tt.input, tt.subdivision)
			if int(p.Length) != tt.subdivision {
				t.Fatalf("Length = %d, want %d", p.Length, tt.subdivision)
			}
			if len(p.Events) != len(tt.expected) {
				t.Fatalf("len(Events) = %d, want %d", len(p.Events), len(tt.expected))
			}
			for i := range tt.expected {
				if p.Events[i] != tt.expected[i] {
					t.Errorf("Events[%d] = %+v, want %+v", i, p.Events[i], tt.expected[i])
				}
			}
		})
	}
}

func TestTransformNonPositiveSubdivision(t *testing.T) {
	for _, sub := range []int{0, -1, -1920} {
		for _, input := range []string{"", "x", "x x x x"} {
			p := Transform(input, sub)
			if p.Length != 0 {
				t.Errorf("Transform(%q, %d).Length = %d, want 0", input, sub, p.Length)
			}
			if len(p.Events) != 0 {
				t.Errorf("Transform(%q, %d) has %d events, want 0", input, sub, len(p.Events))
			}
		}
	}
}

func TestTransformLengthMatchesSubdivision(t *testing.T) {
	inputs := []string{
		"",
		"x",
		"x60:50 . x",
		"x*4000000000",
		"x(5,8) . x(3,8,2)",
		"x(3,8)!4000000000 {x . x}%7*3",
		"{{x .}%3 x}%5 {",
		"garbage (( ,,, @@ :: x:",
		"ß x∑ 12:",
	}
	for _, input := range inputs {
		for sub := 1; sub <= 33; sub++ {
			p := Transform(input, sub)
			if int(p.Length) != sub || len(p.Events) != sub {
				t.Errorf("Transform(%q, %d) length = %d/%d, want %d", input, sub, p.Length, len(p.Events), sub)
			}
		}
	}
}

func TestTransformIdempotent(t *testing.T) {
	inputs := []string{"x60:50 . x", "x(3,8) x*2", ""}
	for _, input := range inputs {
		first := Transform(input, 16)
		second := Transform(input, 16)
		if !first.Equal(second) {
			t.Errorf("Transform(%q) differs across calls: %+v vs %+v", input, first, second)
		}
	}
}

func TestTransformDoesNotShareBuffers(t *testing.T) {
	a := Transform("x", 2)
	a.Events[1] = Event{Value: 9, Probability: 9}

	b := Transform("x", 2)
	if b.Events[1] != (Event{}) {
		t.Errorf("second call saw mutation from first: %+v", b.Events[1])
	}
}

func TestTransformConcurrent(t *testing.T) {
	inputs := make([]string, 32)
	want := make([]Pattern, len(inputs))
	for i := range inputs {
		inputs[i] = fmt.Sprintf("x%d:%d . x(%d,8)", i, i*3, i%8)
		want[i] = Transform(inputs[i], 16)
	}

	var wg sync.WaitGroup
	got := make([]Pattern, len(inputs))
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Transform(inputs[i], 16)
		}(i)
	}
	wg.Wait()

	for i := range inputs {
		if !got[i].Equal(want[i]) {
			t.Errorf("concurrent Transform(%q) = %+v, want %+v", inputs[i], got[i], want[i])
		}
	}
}

func TestTransformWithDefaultValue(t *testing.T) {
	p := TransformWith("x x72 x:50 .", 4, Options{DefaultValue: 36})
	expected := events(36, 255, 72, 255, 36, 128, 0, 0)
	for i := range expected {
		if p.Events[i] != expected[i] {
			t.Errorf("Events[%d] = %+v, want %+v", i, p.Events[i], expected[i])
		}
	}
}

func TestCompileSummary(t *testing.T) {
	tests := []struct {
		input       string
		subdivision int
		expected    Summary
	}{
		{"x", 4, Summary{Steps: 1, Padded: 3}},
		{"x x", 2, Summary{Steps: 2}},
		{"x x x", 2, Summary{Steps: 2, Truncated: true}},
		{"x*4000000000", 4, Summary{Steps: 4, Truncated: true}},
		{"", 3, Summary{Padded: 3}},
		{"x", 0, Summary{}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.input, tt.subdivision), func(t *testing.T) {
			_, sum := Compile(tt.input, tt.subdivision, Options{})
			if sum != tt.expected {
				t.Errorf("Compile() summary = %+v, want %+v", sum, tt.expected)
			}
		})
	}
}

func TestPatternSteps(t *testing.T) {
	p := Transform("x . x60:50 .", 4)
	steps := p.Steps()
	if len(steps) != 2 {
		t.Fatalf("Steps() returned %d steps, want 2", len(steps))
	}
	if steps[0].Index != 1 || steps[1].Index != 3 {
		t.Errorf("Steps() indexes = %d, %d, want 1, 3", steps[0].Index, steps[1].Index)
	}
	if steps[1].Event != (Event{Value: 60, Probability: 128}) {
		t.Errorf("Steps()[1].Event = %+v", steps[1].Event)
	}
}
