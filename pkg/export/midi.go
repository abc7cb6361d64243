// Package export renders compiled patterns to and from Standard MIDI Files
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/james-see/battito/pkg/pattern"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrEmptyPattern is returned when there is nothing to render
var ErrEmptyPattern = errors.New("empty pattern")

// MIDIExporter renders patterns as one-track MIDI files.
// One pattern cycle spans one 4/4 bar.
type MIDIExporter struct {
	TicksPerQuarter uint16
	Tempo           float64
	Bars            int   // cycles to write
	Channel         uint8 // 0-15
	DefaultNote     uint8 // used for hits with value 0
}

// NewMIDIExporter creates a MIDI exporter with default settings
func NewMIDIExporter() *MIDIExporter {
	return &MIDIExporter{
		TicksPerQuarter: 480,
		Tempo:           120.0,
		Bars:            1,
		Channel:         9,
		DefaultNote:     36,
	}
}

func (m *MIDIExporter) barTicks() uint32 {
	return uint32(m.TicksPerQuarter) * 4
}

// Note maps an event value onto a MIDI key
func (m *MIDIExporter) Note(ev pattern.Event) uint8 {
	switch {
	case ev.Value == 0:
		return m.DefaultNote
	case ev.Value > 127:
		return 127
	default:
		return uint8(ev.Value)
	}
}

// Velocity maps a trigger probability onto 1-127 so chance reads as dynamics
func Velocity(p uint8) uint8 {
	return uint8(1 + uint32(p)*126/255)
}

// GenerateMIDI creates MIDI data from a compiled pattern
func (m *MIDIExporter) GenerateMIDI(p pattern.Pattern) ([]byte, error) {
	if len(p.Events) == 0 {
		return nil, ErrEmptyPattern
	}

	tempo := m.Tempo
	if tempo <= 0 {
		tempo = 120.0
	}
	bars := m.Bars
	if bars <= 0 {
		bars = 1
	}
	if m.Channel > 15 {
		return nil, fmt.Errorf("invalid MIDI channel %d", m.Channel)
	}

	steps := uint32(len(p.Events))
	bar := m.barTicks()
	if steps > bar {
		return nil, fmt.Errorf("subdivision %d exceeds %d ticks per bar", steps, bar)
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(m.TicksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName("battito"))
	track.Add(0, smf.MetaTempo(tempo))
	track.Add(0, smf.MetaMeter(4, 4))

	// step i of bar b starts at b*bar + i*bar/steps, so long grids do not drift
	start := func(b int, i uint32) uint32 {
		return uint32(b)*bar + i*bar/steps
	}

	var currentTick uint32
	for b := 0; b < bars; b++ {
		for i, ev := range p.Events {
			if ev.IsRest() {
				continue
			}
			on := start(b, uint32(i))
			length := (start(b, uint32(i)+1) - on) * 3 / 4
			if length == 0 {
				length = 1
			}

			key := m.Note(ev)
			track.Add(on-currentTick, midi.NoteOn(m.Channel, key, Velocity(ev.Probability)))
			track.Add(length, midi.NoteOff(m.Channel, key))
			currentTick = on + length
		}
	}

	end := uint32(bars) * bar
	if currentTick < end {
		track.Close(end - currentTick)
	} else {
		track.Close(0)
	}

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMIDIFile writes a pattern to a MIDI file
func (m *MIDIExporter) WriteMIDIFile(p pattern.Pattern, filename string) error {
	data, err := m.GenerateMIDI(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write MIDI file: %w", err)
	}
	return nil
}
