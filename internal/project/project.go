package project

import (
	"fmt"
	"sort"
	"strings"
)

// Play states reported by GetPlayState.
const (
	PlayStateStopped = 0
	PlayStatePlaying = 1
	PlayStatePaused  = 2
)

const (
	defaultTempo       = 120.0
	defaultBeatsPerBar = 4
	defaultBeatUnit    = 4
)

// Track is a mixer track.
type Track struct {
	Name     string
	Volume   float64 // linear gain, 1.0 = 0 dB
	Pan      float64 // -1 (left) to 1 (right)
	Mute     bool
	Solo     bool
	Selected bool
	Items    []*Item
}

// Item is a media item placed on a track.
type Item struct {
	Track    *Track
	Name     string
	Position float64
	Length   float64
	MIDI     bool
	Mute     bool
	Selected bool
	Loop     bool
	Notes    []Note
}

// Note is a MIDI note. Start and End are offsets from the item position
// in seconds, so notes move with their item.
type Note struct {
	Pitch    int
	Velocity int
	Start    float64
	End      float64
}

// End returns the item's end time.
func (i *Item) End() float64 {
	return i.Position + i.Length
}

// InsertNote adds a note spanning the project times [start, end).
func (i *Item) InsertNote(pitch, velocity int, start, end float64) error {
	if !i.MIDI {
		return fmt.Errorf("item is not a MIDI item")
	}

	if pitch < 0 || pitch > 127 {
		return fmt.Errorf("pitch %d out of range 0-127", pitch)
	}

	if velocity < 1 || velocity > 127 {
		return fmt.Errorf("velocity %d out of range 1-127", velocity)
	}

	if end <= start {
		return fmt.Errorf("note end %v is not after start %v", end, start)
	}

	if start < i.Position || start >= i.End() {
		return fmt.Errorf("note start %v outside item %v - %v", start, i.Position, i.End())
	}

	i.Notes = append(i.Notes, Note{
		Pitch:    pitch,
		Velocity: velocity,
		Start:    start - i.Position,
		End:      min(end, i.End()) - i.Position,
	})

	return nil
}

// SortNotes orders notes by start, then pitch.
func (i *Item) SortNotes() {
	sort.SliceStable(i.Notes, func(a, b int) bool {
		if i.Notes[a].Start != i.Notes[b].Start {
			return i.Notes[a].Start < i.Notes[b].Start
		}

		return i.Notes[a].Pitch < i.Notes[b].Pitch
	})
}

// SortItems orders the track's items by position.
func (t *Track) SortItems() {
	sort.SliceStable(t.Items, func(i, j int) bool { return t.Items[i].Position < t.Items[j].Position })
}

// Marker is a project marker, or a region when IsRegion is set.
type Marker struct {
	ID       int
	Name     string
	Position float64
	End      float64
	IsRegion bool
}

// Project holds the complete host state.
type Project struct {
	Tracks  []*Track
	Markers []*Marker

	Tempo       float64
	BeatsPerBar int
	BeatUnit    int

	Cursor    float64
	PlayState int
	PlayPos   float64

	LoopStart      float64
	LoopEnd        float64
	SelectionStart float64
	SelectionEnd   float64

	nextMarkerID int
	undo         []string
}

// New returns an empty project at 120 BPM in 4/4.
func New() *Project {
	return &Project{
		Tempo:        defaultTempo,
		BeatsPerBar:  defaultBeatsPerBar,
		BeatUnit:     defaultBeatUnit,
		nextMarkerID: 1,
	}
}

// InsertTrack inserts a track at idx (clamped to the valid range).
func (p *Project) InsertTrack(idx int, name string) *Track {
	idx = max(0, min(idx, len(p.Tracks)))

	tr := &Track{Name: name, Volume: 1}
	p.Tracks = append(p.Tracks[:idx], append([]*Track{tr}, p.Tracks[idx:]...)...)

	return tr
}

// AddTrack appends a named track.
func (p *Project) AddTrack(name string) *Track {
	return p.InsertTrack(len(p.Tracks), name)
}

// TrackIndex returns the 0-based index of tr, or -1.
func (p *Project) TrackIndex(tr *Track) int {
	for i, t := range p.Tracks {
		if t == tr {
			return i
		}
	}

	return -1
}

// DeleteTrack removes tr and its items.
func (p *Project) DeleteTrack(tr *Track) bool {
	idx := p.TrackIndex(tr)
	if idx < 0 {
		return false
	}

	p.Tracks = append(p.Tracks[:idx], p.Tracks[idx+1:]...)

	return true
}

// AddItem places a new item on tr.
func (p *Project) AddItem(tr *Track, position, length float64, midi bool) *Item {
	item := &Item{Track: tr, Position: position, Length: length, MIDI: midi}
	tr.Items = append(tr.Items, item)
	tr.SortItems()

	return item
}

// Items returns every item in track order, then position order.
func (p *Project) Items() []*Item {
	var items []*Item
	for _, tr := range p.Tracks {
		items = append(items, tr.Items...)
	}

	return items
}

// AddMarker adds a marker or region and returns its ID.
func (p *Project) AddMarker(name string, position, end float64, region bool) int {
	m := &Marker{ID: p.nextMarkerID, Name: name, Position: position, End: end, IsRegion: region}
	p.nextMarkerID++

	p.Markers = append(p.Markers, m)
	sort.SliceStable(p.Markers, func(i, j int) bool { return p.Markers[i].Position < p.Markers[j].Position })

	return m.ID
}

// MarkerAt returns the non-region marker exactly at pos, if any.
func (p *Project) MarkerAt(pos float64) *Marker {
	const epsilon = 1e-6

	for _, m := range p.Markers {
		if !m.IsRegion && abs(m.Position-pos) < epsilon {
			return m
		}
	}

	return nil
}

// FindMarker returns the first marker or region whose name matches,
// case-insensitively.
func (p *Project) FindMarker(name string, region bool) *Marker {
	for _, m := range p.Markers {
		if m.IsRegion == region && strings.EqualFold(m.Name, name) {
			return m
		}
	}

	return nil
}

// SetTempo changes the project tempo.
func (p *Project) SetTempo(bpm float64) error {
	if bpm <= 0 || bpm > 960 {
		return fmt.Errorf("tempo %v out of range", bpm)
	}

	p.Tempo = bpm

	return nil
}

// BarSeconds returns the duration of one bar at the project tempo and
// time signature. A beat is a quarter note.
func (p *Project) BarSeconds() float64 {
	return float64(p.BeatsPerBar) * (60 / p.Tempo) * (4 / float64(p.BeatUnit))
}

// Length returns the end of the last item or region.
func (p *Project) Length() float64 {
	end := 0.0

	for _, item := range p.Items() {
		end = max(end, item.End())
	}

	for _, m := range p.Markers {
		end = max(end, m.Position, m.End)
	}

	return end
}

// Undo returns the recorded undo point descriptions.
func (p *Project) Undo() []string {
	return p.undo
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}

	return x
}
