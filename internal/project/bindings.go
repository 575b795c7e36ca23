package project

import (
	"fmt"
	"log/slog"

	"github.com/wagiedev/host-bridge-go/internal/remote"
)

// Handle kinds as they appear in tokens.
const (
	KindTrack = "MediaTrack"
	KindItem  = "MediaItem"
)

// Bindings is the host's native scripting API. Every exported method is
// registered with the dispatcher under its own name.
type Bindings struct {
	p   *Project
	log *slog.Logger
}

// NewBindings exposes p through the native API.
func NewBindings(log *slog.Logger, p *Project) *Bindings {
	return &Bindings{p: p, log: log.With("component", "host_api")}
}

// Register declares the handle kinds, registers every binding, and
// re-registers the multi-result queries in extended mode.
func Register(reg *remote.Registry, b *Bindings) error {
	reg.Handles().RegisterKind(KindTrack, (*Track)(nil))
	reg.Handles().RegisterKind(KindItem, (*Item)(nil))

	reg.RegisterMethods(b)

	extended := []struct {
		name   string
		fn     any
		fields []string
	}{
		{"GetSet_LoopTimeRange", b.GetSet_LoopTimeRange, []string{"start", "end"}},
		{"TimeMap_GetTimeSigAtTime", b.TimeMap_GetTimeSigAtTime, []string{"num", "denom", "tempo"}},
	}

	for _, e := range extended {
		if err := reg.RegisterFields(e.name, e.fn, e.fields...); err != nil {
			return err
		}
	}

	return nil
}

// CountTracks returns the number of tracks.
func (b *Bindings) CountTracks() int { return len(b.p.Tracks) }

// GetTrack returns the track at idx, or nil.
func (b *Bindings) GetTrack(idx int) *Track {
	if idx < 0 || idx >= len(b.p.Tracks) {
		return nil
	}

	return b.p.Tracks[idx]
}

func (b *Bindings) GetTrackName(tr *Track) string { return mustTrack(tr).Name }

func (b *Bindings) SetTrackName(tr *Track, name string) bool {
	mustTrack(tr).Name = name

	return true
}

// InsertTrackAtIndex inserts an unnamed track.
func (b *Bindings) InsertTrackAtIndex(idx int, _ bool) {
	b.p.InsertTrack(idx, "")
}

func (b *Bindings) DeleteTrack(tr *Track) {
	b.p.DeleteTrack(mustTrack(tr))
}

// GetMediaTrackInfo_Value reads a numeric track parameter.
func (b *Bindings) GetMediaTrackInfo_Value(tr *Track, param string) (float64, error) {
	tr = mustTrack(tr)

	switch param {
	case "D_VOL":
		return tr.Volume, nil
	case "D_PAN":
		return tr.Pan, nil
	case "B_MUTE":
		return boolFloat(tr.Mute), nil
	case "I_SOLO":
		return boolFloat(tr.Solo), nil
	case "I_SELECTED":
		return boolFloat(tr.Selected), nil
	case "IP_TRACKNUMBER":
		return float64(b.p.TrackIndex(tr) + 1), nil
	default:
		return 0, fmt.Errorf("unknown track parameter %q", param)
	}
}

// SetMediaTrackInfo_Value writes a numeric track parameter.
func (b *Bindings) SetMediaTrackInfo_Value(tr *Track, param string, value float64) (bool, error) {
	tr = mustTrack(tr)

	switch param {
	case "D_VOL":
		if value < 0 {
			return false, fmt.Errorf("volume %v is negative", value)
		}

		tr.Volume = value
	case "D_PAN":
		tr.Pan = max(-1, min(1, value))
	case "B_MUTE":
		tr.Mute = value != 0
	case "I_SOLO":
		tr.Solo = value != 0
	case "I_SELECTED":
		tr.Selected = value != 0
	default:
		return false, fmt.Errorf("unknown track parameter %q", param)
	}

	return true, nil
}

func (b *Bindings) SetOnlyTrackSelected(tr *Track) {
	tr = mustTrack(tr)

	for _, t := range b.p.Tracks {
		t.Selected = t == tr
	}
}

func (b *Bindings) GetCursorPosition() float64 { return b.p.Cursor }

func (b *Bindings) SetEditCurPos(pos float64, _, _ bool) {
	b.p.Cursor = max(0, pos)
}

// GetSet_LoopTimeRange reads or writes the loop range (isLoop) or the
// time selection, returning the resulting range.
func (b *Bindings) GetSet_LoopTimeRange(isSet, isLoop bool, start, end float64, _ bool) (float64, float64) {
	if isSet {
		if end < start {
			start, end = end, start
		}

		if isLoop {
			b.p.LoopStart, b.p.LoopEnd = start, end
		} else {
			b.p.SelectionStart, b.p.SelectionEnd = start, end
		}
	}

	if isLoop {
		return b.p.LoopStart, b.p.LoopEnd
	}

	return b.p.SelectionStart, b.p.SelectionEnd
}

// TimeMap_GetTimeSigAtTime returns the time signature and tempo at t.
// The tempo map is constant.
func (b *Bindings) TimeMap_GetTimeSigAtTime(_ float64) (int, int, float64) {
	return b.p.BeatsPerBar, b.p.BeatUnit, b.p.Tempo
}

func (b *Bindings) Master_GetTempo() float64 { return b.p.Tempo }

func (b *Bindings) SetCurrentBPM(bpm float64, _ bool) error {
	return b.p.SetTempo(bpm)
}

// SetTimeSignature changes the project time signature.
func (b *Bindings) SetTimeSignature(num, denom int) error {
	if num <= 0 || denom <= 0 || denom&(denom-1) != 0 {
		return fmt.Errorf("invalid time signature %d/%d", num, denom)
	}

	b.p.BeatsPerBar, b.p.BeatUnit = num, denom

	return nil
}

// TimeMap2_beatsToTime converts quarter-note beats to seconds.
func (b *Bindings) TimeMap2_beatsToTime(beats float64) float64 {
	return beats * 60 / b.p.Tempo
}

// TimeMap2_timeToBeats converts seconds to quarter-note beats.
func (b *Bindings) TimeMap2_timeToBeats(seconds float64) float64 {
	return seconds * b.p.Tempo / 60
}

func (b *Bindings) CountMediaItems() int { return len(b.p.Items()) }

// GetMediaItem returns the project-wide item at idx, or nil.
func (b *Bindings) GetMediaItem(idx int) *Item {
	items := b.p.Items()
	if idx < 0 || idx >= len(items) {
		return nil
	}

	return items[idx]
}

func (b *Bindings) CountTrackMediaItems(tr *Track) int { return len(mustTrack(tr).Items) }

func (b *Bindings) GetTrackMediaItem(tr *Track, idx int) *Item {
	tr = mustTrack(tr)
	if idx < 0 || idx >= len(tr.Items) {
		return nil
	}

	return tr.Items[idx]
}

func (b *Bindings) GetMediaItem_Track(item *Item) *Track { return mustItem(item).Track }

// GetMediaItemInfo_Value reads a numeric item parameter.
func (b *Bindings) GetMediaItemInfo_Value(item *Item, param string) (float64, error) {
	item = mustItem(item)

	switch param {
	case "D_POSITION":
		return item.Position, nil
	case "D_LENGTH":
		return item.Length, nil
	case "B_MUTE":
		return boolFloat(item.Mute), nil
	case "B_UISEL":
		return boolFloat(item.Selected), nil
	case "B_LOOPSRC":
		return boolFloat(item.Loop), nil
	default:
		return 0, fmt.Errorf("unknown item parameter %q", param)
	}
}

// SetMediaItemInfo_Value writes a numeric item parameter.
func (b *Bindings) SetMediaItemInfo_Value(item *Item, param string, value float64) (bool, error) {
	item = mustItem(item)

	switch param {
	case "D_POSITION":
		item.Position = max(0, value)
		item.Track.SortItems()
	case "D_LENGTH":
		if value <= 0 {
			return false, fmt.Errorf("item length %v must be positive", value)
		}

		item.Length = value
	case "B_MUTE":
		item.Mute = value != 0
	case "B_UISEL":
		item.Selected = value != 0
	case "B_LOOPSRC":
		item.Loop = value != 0
	default:
		return false, fmt.Errorf("unknown item parameter %q", param)
	}

	return true, nil
}

func (b *Bindings) IsMIDIItem(item *Item) bool { return mustItem(item).MIDI }

func (b *Bindings) GetItemName(item *Item) string { return mustItem(item).Name }

// CreateNewMIDIItemInProj creates an empty MIDI item spanning [start, end).
func (b *Bindings) CreateNewMIDIItemInProj(tr *Track, start, end float64) (*Item, error) {
	tr = mustTrack(tr)
	if end <= start {
		return nil, fmt.Errorf("item end %v is not after start %v", end, start)
	}

	return b.p.AddItem(tr, start, end-start, true), nil
}

// AddMediaItemToTrack adds an empty one-second audio item at the project
// start. Callers position and size it afterwards.
func (b *Bindings) AddMediaItemToTrack(tr *Track) *Item {
	return b.p.AddItem(mustTrack(tr), 0, 1, false)
}

func (b *Bindings) MIDI_CountNotes(item *Item) int { return len(mustItem(item).Notes) }

// MIDI_GetNote describes the note at idx with project times.
func (b *Bindings) MIDI_GetNote(item *Item, idx int) (remote.Fields, error) {
	item = mustItem(item)
	if idx < 0 || idx >= len(item.Notes) {
		return nil, fmt.Errorf("note index %d out of range", idx)
	}

	n := item.Notes[idx]

	return remote.Fields{
		"pitch":    n.Pitch,
		"velocity": n.Velocity,
		"start":    item.Position + n.Start,
		"end":      item.Position + n.End,
	}, nil
}

// MIDI_InsertNote adds a note spanning the project times [start, end).
// Call MIDI_Sort after a batch of inserts.
func (b *Bindings) MIDI_InsertNote(item *Item, pitch, velocity int, start, end float64) (bool, error) {
	if err := mustItem(item).InsertNote(pitch, velocity, start, end); err != nil {
		return false, err
	}

	return true, nil
}

// MIDI_SetNote moves the note at idx to the project times [start, end).
// Indices stay stable until MIDI_Sort.
func (b *Bindings) MIDI_SetNote(item *Item, idx int, start, end float64) (bool, error) {
	item = mustItem(item)
	if idx < 0 || idx >= len(item.Notes) {
		return false, fmt.Errorf("note index %d out of range", idx)
	}

	if end <= start {
		return false, fmt.Errorf("note end %v is not after start %v", end, start)
	}

	item.Notes[idx].Start = max(0, start-item.Position)
	item.Notes[idx].End = end - item.Position

	return true, nil
}

func (b *Bindings) MIDI_Sort(item *Item) { mustItem(item).SortNotes() }

// AddProjectMarker adds a marker or region and returns its ID.
func (b *Bindings) AddProjectMarker(isRegion bool, pos, end float64, name string, _ int) int {
	return b.p.AddMarker(name, pos, end, isRegion)
}

func (b *Bindings) CountProjectMarkers() int { return len(b.p.Markers) }

// EnumProjectMarkers describes the marker at idx in position order.
func (b *Bindings) EnumProjectMarkers(idx int) (remote.Fields, error) {
	if idx < 0 || idx >= len(b.p.Markers) {
		return nil, fmt.Errorf("marker index %d out of range", idx)
	}

	m := b.p.Markers[idx]

	return remote.Fields{
		"id":        m.ID,
		"name":      m.Name,
		"position":  m.Position,
		"end":       m.End,
		"is_region": m.IsRegion,
	}, nil
}

// GetMarkerAtPosition reports the name of the marker exactly at pos, or "".
func (b *Bindings) GetMarkerAtPosition(pos float64) string {
	if m := b.p.MarkerAt(pos); m != nil {
		return m.Name
	}

	return ""
}

func (b *Bindings) OnPlayButton() {
	b.p.PlayState = PlayStatePlaying
	b.p.PlayPos = b.p.Cursor
}

func (b *Bindings) OnStopButton() {
	b.p.PlayState = PlayStateStopped
}

func (b *Bindings) OnPauseButton() {
	if b.p.PlayState == PlayStatePlaying {
		b.p.PlayState = PlayStatePaused
	}
}

func (b *Bindings) GetPlayState() int { return b.p.PlayState }

func (b *Bindings) GetPlayPosition() float64 { return b.p.PlayPos }

func (b *Bindings) GetProjectLength() float64 { return b.p.Length() }

func (b *Bindings) Undo_BeginBlock() {}

// Undo_EndBlock records an undo point.
func (b *Bindings) Undo_EndBlock(desc string, _ int) {
	b.p.undo = append(b.p.undo, desc)
	b.log.Debug("Undo point", "description", desc)
}

// ShowConsoleMsg writes to the host console, i.e. the log.
func (b *Bindings) ShowConsoleMsg(msg string) {
	b.log.Info(msg)
}

func mustTrack(tr *Track) *Track {
	if tr == nil {
		panic("track is nil")
	}

	return tr
}

func mustItem(item *Item) *Item {
	if item == nil {
		panic("item is nil")
	}

	return item
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
