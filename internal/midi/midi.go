// Package midi implements stage 9 (spec.md §4.7): turning an Execution
// into a standard MIDI file, format 1, one track per active position
// plus a conductor track carrying tempo, markers, and the kempli click.
package midi

import (
	"fmt"
	"io"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

// event is one channel-voice message with its absolute tick, used the
// way gm_export.go's MidiEvent carries absolute time before a track is
// sorted and converted to deltas.
type event struct {
	Tick    uint32
	Message smf.Message
	isOff   bool // note-off, or a note-on with velocity 0 used as one
}

// The implicit kempli click (spec.md §4.4 "KEMPLI", §4.7 preamble) has no
// notation symbol and so no row of its own in the MIDI-notes table; it is
// struck on the GM percussion channel, the same fixed-note-number
// convention the teacher's general_midi.go used before table-driven
// lookups superseded it for every pitched position.
const (
	kempliChannel  = uint8(9)  // GM percussion channel (MIDI channel 10)
	kempliNote     = uint8(76) // GM "Hi Wood Block"
	kempliVelocity = uint8(100)
)

// Emit builds the MIDI bytes for one execution and writes them to w,
// resolving each position's instrument type/preset/MIDI notes from bundle
// scoped to s.InstrumentGroup.
func Emit(exec *model.Execution, s *model.Score, bundle *tables.Bundle, w io.Writer) error {
	if len(exec.Steps) == 0 {
		return fmt.Errorf("midi: execution has no steps")
	}

	settings := s.Settings
	ppq := settings.PPQ
	if ppq == 0 {
		ppq = 96
	}
	baseNoteTicks := settings.BaseNoteTicks
	if baseNoteTicks == 0 {
		baseNoteTicks = 24
	}

	file := smf.NewSMF1()
	file.TimeFormat = smf.MetricTicks(uint16(ppq))

	roster := positionRoster(s)

	channels := assignChannels(roster)

	tracks := make(map[model.Position][]event, len(roster))
	for _, p := range roster {
		tracks[p] = nil
	}

	var conductor []event
	var cursorTicks uint32
	lastTempo := -1
	beforeStart := uint32(secondsToTicks(settings.SilenceSecondsBeforeStart, 500000, ppq))
	cursorTicks += beforeStart

	lastNoteTick := map[model.Position]uint32{}
	lastNoteOffMsg := map[model.Position]smf.Message{}

	for _, step := range exec.Steps {
		g := &s.Gongans[step.GonganIndex]
		beat := g.Beats[step.BeatIndex]

		if step.TempoBPM != lastTempo && step.TempoBPM > 0 {
			conductor = append(conductor, event{Tick: cursorTicks, Message: smf.Message(smf.MetaTempo(float64(step.TempoBPM)))})
			lastTempo = step.TempoBPM
		}
		for _, name := range step.Markers {
			conductor = append(conductor, event{Tick: cursorTicks, Message: smf.Message(smf.MetaMarker(name))})
		}

		cursorTicks += uint32(secondsToTicks(step.SilenceBeforeSeconds, microsPerQuarter(step.TempoBPM), ppq))

		if g.KempliBeats[step.BeatIndex] {
			onMsg := smf.Message(gomidi.NoteOn(kempliChannel, kempliNote, kempliVelocity))
			offMsg := smf.Message(gomidi.NoteOff(kempliChannel, kempliNote))
			conductor = append(conductor, event{Tick: cursorTicks, Message: onMsg})
			conductor = append(conductor, event{Tick: cursorTicks + uint32(baseNoteTicks), Message: offMsg, isOff: true})
		}

		beatTicks := uint32(0)
		for _, pos := range roster {
			measure := beat.Measures[pos]
			if measure == nil || measure.Suppress {
				continue
			}
			entry, ok := bundle.Instruments.Lookup(pos)
			if !ok {
				continue
			}
			channel := channels[pos]

			t := cursorTicks
			velocity := step.Velocity[pos]
			for _, n := range measure.Notes {
				durTicks := uint32(n.Duration.Ticks(baseNoteTicks))
				restTicks := uint32(n.RestAfter.Ticks(baseNoteTicks))
				if !n.IsRest() && durTicks > 0 {
					vel := velocity
					if n.Velocity != nil {
						vel = *n.Velocity
					}
					note, ok := bundle.MidiNotes.Lookup(s.InstrumentGroup, entry.InstrumentType, pos, n.PitchOctave(), n.Stroke)
					if ok {
						onMsg := smf.Message(gomidi.NoteOn(channel, note, vel))
						offMsg := smf.Message(gomidi.NoteOff(channel, note))
						tracks[pos] = append(tracks[pos], event{Tick: t, Message: onMsg})
						tracks[pos] = append(tracks[pos], event{Tick: t + durTicks, Message: offMsg, isOff: true})
						lastNoteTick[pos] = t + durTicks
						lastNoteOffMsg[pos] = offMsg
					}
				}
				t += durTicks + restTicks
			}
			if t-cursorTicks > beatTicks {
				beatTicks = t - cursorTicks
			}
		}

		if beatTicks == 0 {
			beatTicks = uint32(beat.TotalBeatTicks(baseNoteTicks))
		}
		cursorTicks += beatTicks
		cursorTicks += uint32(secondsToTicks(step.SilenceAfterSeconds, microsPerQuarter(step.TempoBPM), ppq))
	}

	if !exec.Loops && settings.NaturalReleaseSeconds > 0 {
		tailTicks := uint32(secondsToTicks(settings.NaturalReleaseSeconds, microsPerQuarter(lastTempo), ppq))
		for pos, tick := range lastNoteTick {
			if _, ok := lastNoteOffMsg[pos]; !ok {
				continue
			}
			for i := range tracks[pos] {
				if tracks[pos][i].Tick == tick && tracks[pos][i].isOff {
					tracks[pos][i].Tick = tick + tailTicks
					cursorTicks = maxU32(cursorTicks, tick+tailTicks)
				}
			}
		}
	}

	cursorTicks += uint32(secondsToTicks(settings.SilenceSecondsAfterEnd, microsPerQuarter(lastTempo), ppq))

	file.Add(buildConductorTrack(conductor))
	for _, pos := range roster {
		preamble := preambleFor(pos, channels[pos], bundle, s)
		file.Add(buildTrack(string(pos), preamble, tracks[pos]))
	}

	_, err := file.WriteTo(w)
	return err
}

func preambleFor(pos model.Position, channel uint8, bundle *tables.Bundle, s *model.Score) []smf.Message {
	entry, ok := bundle.Instruments.Lookup(pos)
	if !ok {
		return nil
	}
	preset, ok := bundle.MidiNotes.Preset(entry.InstrumentType)
	if !ok {
		return nil
	}
	const bankSelectMSB = 0
	return []smf.Message{
		smf.Message(gomidi.ControlChange(channel, bankSelectMSB, preset.BankMSB)),
		smf.Message(gomidi.ProgramChange(channel, preset.Program)),
	}
}

// buildTrack assembles one position's track: name, preamble, a leading
// silence, then its note events sorted to the canonical same-tick
// ordering (spec.md §5: position-index ascending, then note-off before
// note-on — within one track that collapses to "note-off before note-on").
// The leading silence is already part of the events' absolute ticks, so
// deltas are taken from tick 0.
func buildTrack(name string, preamble []smf.Message, events []event) smf.Track {
	track := smf.Track{}
	track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName(name))})
	for _, msg := range preamble {
		track = append(track, smf.Event{Delta: 0, Message: msg})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Tick == events[j].Tick {
			return events[i].isOff && !events[j].isOff
		}
		return events[i].Tick < events[j].Tick
	})

	var last uint32
	for _, e := range events {
		delta := uint32(0)
		if e.Tick > last {
			delta = e.Tick - last
		}
		track = append(track, smf.Event{Delta: delta, Message: e.Message})
		last = e.Tick
	}
	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}

func buildConductorTrack(events []event) smf.Track {
	track := smf.Track{}
	track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName("conductor"))})

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Tick == events[j].Tick {
			return events[i].isOff && !events[j].isOff
		}
		return events[i].Tick < events[j].Tick
	})

	var last uint32
	for _, e := range events {
		delta := uint32(0)
		if e.Tick > last {
			delta = e.Tick - last
		}
		track = append(track, smf.Event{Delta: delta, Message: e.Message})
		last = e.Tick
	}
	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}

// positionRoster returns every position any beat of the score assigns a
// measure to, in a stable order (sorted) so channel assignment and track
// order are deterministic across runs (spec.md §5 "byte-identical output").
func positionRoster(s *model.Score) []model.Position {
	seen := map[model.Position]bool{}
	var out []model.Position
	for _, g := range s.Gongans {
		for _, beat := range g.Beats {
			for pos := range beat.Measures {
				if !seen[pos] {
					seen[pos] = true
					out = append(out, pos)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// assignChannels hands out MIDI channels 0..15 to positions in roster
// order, wrapping if there are more than sixteen (two positions then
// share a channel, which only affects polyphony bookkeeping a DAW does
// per channel, not this emitter's own tick math).
func assignChannels(roster []model.Position) map[model.Position]uint8 {
	out := make(map[model.Position]uint8, len(roster))
	for i, p := range roster {
		out[p] = uint8(i % 16)
	}
	return out
}

func microsPerQuarter(bpm int) float64 {
	if bpm <= 0 {
		bpm = 60
	}
	return 60_000_000.0 / float64(bpm)
}

func secondsToTicks(seconds float64, microsPerQuarterNote float64, ppq int) float64 {
	if seconds <= 0 {
		return 0
	}
	quarters := seconds * 1_000_000.0 / microsPerQuarterNote
	return quarters * float64(ppq)
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
