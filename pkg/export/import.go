package export

import (
	"bytes"
	"fmt"
	"os"

	"github.com/james-see/battito/pkg/pattern"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ParseMIDIFile reads a MIDI file and quantizes it onto a pattern grid
func ParseMIDIFile(filename string, subdivision int) (pattern.Pattern, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return pattern.Pattern{}, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return ParseMIDI(data, subdivision)
}

// ParseMIDI quantizes the note-ons of MIDI data onto a grid of subdivision
// steps per 4/4 bar. Every bar is folded onto the same cycle and the first
// note landing on a step wins. Hits carry the key as value and always fire.
func ParseMIDI(data []byte, subdivision int) (pattern.Pattern, error) {
	if subdivision <= 0 {
		return pattern.Pattern{}, fmt.Errorf("invalid subdivision %d", subdivision)
	}

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return pattern.Pattern{}, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	resolution := uint64(480)
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		resolution = uint64(mt.Resolution())
	}
	bar := resolution * 4
	sub := uint64(subdivision)

	type hit struct {
		tick uint64
		note uint8
	}
	first := make(map[uint64]hit)

	for _, track := range s.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)

			// Note On: 0x9n nn vv, velocity 0 is a note off
			msg := ev.Message
			if len(msg) < 3 || msg[0]&0xF0 != 0x90 || msg[2] == 0 {
				continue
			}

			pos := tick % bar
			step := ((pos*sub + bar/2) / bar) % sub
			if prev, ok := first[step]; ok && prev.tick <= tick {
				continue
			}
			first[step] = hit{tick: tick, note: msg[1]}
		}
	}

	events := make([]pattern.Event, subdivision)
	for step, h := range first {
		events[step] = pattern.Event{Value: uint32(h.note), Probability: pattern.ProbabilityAlways}
	}
	return pattern.Pattern{Events: events, Length: uint32(subdivision)}, nil
}
