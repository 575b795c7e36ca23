package dsl

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

// Command names.
const (
	ActionTrackCreate   = "track_create"
	ActionTrackVolume   = "track_volume"
	ActionTrackPan      = "track_pan"
	ActionTrackMute     = "track_mute"
	ActionTrackSolo     = "track_solo"
	ActionTimeSelect    = "time_select"
	ActionLoopCreate    = "loop_create"
	ActionLoopSet       = "loop_set"
	ActionItemMIDI      = "item_insert_midi"
	ActionItemQuantize  = "item_quantize"
	ActionTransportPlay = "transport_play"
	ActionTransportStop = "transport_stop"
	ActionSetTempo      = "set_tempo"
	ActionGetTracks     = "get_tracks"
	ActionGetTempoInfo  = "get_tempo_info"
	ActionResetContext  = "reset_context"
	ActionHealth        = "health"
)

// Commands runs DSL commands against the bridge. It owns the session.
type Commands struct {
	log      *slog.Logger
	c        Caller
	session  *Session
	resolver *Resolver
}

// NewCommands creates the command layer with a fresh session.
func NewCommands(log *slog.Logger, c Caller) *Commands {
	session := NewSession()

	return &Commands{
		log:      log.With("component", "dsl"),
		c:        c,
		session:  session,
		resolver: NewResolver(c, session),
	}
}

// Session returns the command layer's session context.
func (c *Commands) Session() *Session {
	return c.session
}

// Resolver returns the command layer's resolver.
func (c *Commands) Resolver() *Resolver {
	return c.resolver
}

// run executes fn, collecting bridge calls and converting its error into
// a failed Result.
func (c *Commands) run(ctx context.Context, action string, fn func(ctx context.Context, res *Result) error) *Result {
	ctx, rec := withRecorder(ctx)
	res := &Result{Action: action}

	err := fn(ctx, res)

	res.Calls = rec.snapshot()

	if err != nil {
		res.fail(err)
		c.log.Debug("Command failed", "action", action, "stage", res.Stage, "error", err)

		return res
	}

	for _, ref := range rec.resolved() {
		c.session.Remember(ref.Kind, ref)
	}

	res.Success = true
	c.log.Debug("Command completed", "action", action, "calls", len(res.Calls))

	return res
}

// TrackCreate creates a named track at index, or at the end when index is nil.
func (c *Commands) TrackCreate(ctx context.Context, name string, index *int) *Result {
	return c.run(ctx, ActionTrackCreate, func(ctx context.Context, res *Result) error {
		if name == "" {
			return &errors.ValidationError{Param: "name", Token: name, Reason: "must not be empty"}
		}

		at := -1
		if index != nil {
			at = *index
		}

		var info TrackInfo
		if err := callInto(ctx, c.c, &info, "CreateTrack", name, at); err != nil {
			return err
		}

		ref := trackRef(info)
		ref.Confidence = 1

		res.Targets = []Ref{ref}
		res.Message = fmt.Sprintf("Created track '%s' at index %d", info.Name, info.Index)
		c.session.Remember(KindTrack, ref)

		return nil
	})
}

// resolveTrack resolves expr and fetches the track's current state.
func (c *Commands) resolveTrack(ctx context.Context, expr any) (Ref, TrackInfo, error) {
	ref, err := c.resolver.Resolve(ctx, expr, KindTrack)
	if err != nil {
		return Ref{}, TrackInfo{}, err
	}

	var info TrackInfo
	if err := callInto(ctx, c.c, &info, "GetTrackInfo", ref.Index); err != nil {
		return Ref{}, TrackInfo{}, err
	}

	return ref, info, nil
}

// TrackVolume sets a track's volume. Relative changes read the current
// volume first; the read and write are not atomic.
func (c *Commands) TrackVolume(ctx context.Context, track, volume any) *Result {
	return c.run(ctx, ActionTrackVolume, func(ctx context.Context, res *Result) error {
		spec, err := ParseVolume(volume)
		if err != nil {
			return err
		}

		ref, info, err := c.resolveTrack(ctx, track)
		if err != nil {
			return err
		}

		from := LinearToDB(info.Volume)
		to := spec.Apply(from)

		if err := callInto(ctx, c.c, &info, "SetTrackVolume", ref.Index, DBToLinear(to)); err != nil {
			return err
		}

		res.Targets = []Ref{ref}
		res.change("volume_db", round(from), round(to))
		res.Message = fmt.Sprintf("Set volume of '%s' to %s", ref.Name, FormatDB(to))
		c.session.Remember(KindTrack, ref)

		return nil
	})
}

// TrackPan sets a track's pan position.
func (c *Commands) TrackPan(ctx context.Context, track, pan any) *Result {
	return c.run(ctx, ActionTrackPan, func(ctx context.Context, res *Result) error {
		spec, err := ParsePan(pan)
		if err != nil {
			return err
		}

		ref, info, err := c.resolveTrack(ctx, track)
		if err != nil {
			return err
		}

		from := info.Pan
		to := spec.Apply(from)

		if err := callInto(ctx, c.c, &info, "SetTrackPan", ref.Index, to); err != nil {
			return err
		}

		res.Targets = []Ref{ref}
		res.change("pan", FormatPan(from), FormatPan(to))
		res.Message = fmt.Sprintf("Panned '%s' to %s", ref.Name, FormatPan(to))
		c.session.Remember(KindTrack, ref)

		return nil
	})
}

// TrackMute mutes or unmutes a track; a nil state toggles it.
func (c *Commands) TrackMute(ctx context.Context, track any, mute *bool) *Result {
	return c.toggle(ctx, ActionTrackMute, "mute", "SetTrackMute", track, mute, func(t TrackInfo) bool { return t.Mute })
}

// TrackSolo solos or unsolos a track; a nil state toggles it.
func (c *Commands) TrackSolo(ctx context.Context, track any, solo *bool) *Result {
	return c.toggle(ctx, ActionTrackSolo, "solo", "SetTrackSolo", track, solo, func(t TrackInfo) bool { return t.Solo })
}

func (c *Commands) toggle(
	ctx context.Context,
	action, field, function string,
	track any,
	state *bool,
	current func(TrackInfo) bool,
) *Result {
	return c.run(ctx, action, func(ctx context.Context, res *Result) error {
		ref, info, err := c.resolveTrack(ctx, track)
		if err != nil {
			return err
		}

		from := current(info)

		to := !from
		if state != nil {
			to = *state
		}

		if err := callInto(ctx, c.c, &info, function, ref.Index, to); err != nil {
			return err
		}

		verb := field + "d"
		if !to {
			verb = "un" + verb
		}

		res.Targets = []Ref{ref}
		res.change(field, from, to)
		res.Message = fmt.Sprintf("Track '%s' %s", ref.Name, verb)
		c.session.Remember(KindTrack, ref)

		return nil
	})
}

// TimeSelect sets the time selection from a range expression.
func (c *Commands) TimeSelect(ctx context.Context, rangeExpr any) *Result {
	return c.setRange(ctx, ActionTimeSelect, "SetTimeSelection", "time selection", rangeExpr)
}

// LoopSet sets the loop range from a range expression.
func (c *Commands) LoopSet(ctx context.Context, rangeExpr any) *Result {
	return c.setRange(ctx, ActionLoopSet, "SetLoopTimeRange", "loop", rangeExpr)
}

// LoopCreate places a looping item on a track over a range. The item is a
// MIDI item unless midi is false.
func (c *Commands) LoopCreate(ctx context.Context, track, rangeExpr any, midi *bool) *Result {
	return c.run(ctx, ActionLoopCreate, func(ctx context.Context, res *Result) error {
		ref, info, rng, err := c.trackAndRange(ctx, track, rangeExpr)
		if err != nil {
			return err
		}

		function, kind := "CreateMIDIItem", "MIDI"
		if midi != nil && !*midi {
			function, kind = "CreateAudioItem", "audio"
		}

		var item ItemInfo
		if err := callInto(ctx, c.c, &item, function, ref.Index, rng.Start, rng.Length()); err != nil {
			return err
		}

		if err := callInto(ctx, c.c, &item, "SetItemLoopSource", item.Index, true); err != nil {
			return err
		}

		res.Targets = []Ref{ref}
		res.Data = item
		res.change("items", info.Items, info.Items+1)
		res.Message = fmt.Sprintf("Created %.1fs %s loop on '%s'%s", rng.Length(), kind, ref.Name, barsSuffix(rng))
		c.session.Remember(KindTrack, ref)
		c.session.Remember(KindItem, itemRef(item))

		return nil
	})
}

// ItemInsertMIDI creates a MIDI item on a track over a range and fills it
// with notes. notes is anything ParseNotes accepts; note starts are
// relative to the range start and must fall inside it.
func (c *Commands) ItemInsertMIDI(ctx context.Context, track, rangeExpr, notes any) *Result {
	return c.run(ctx, ActionItemMIDI, func(ctx context.Context, res *Result) error {
		parsed, err := ParseNotes(notes)
		if err != nil {
			return err
		}

		ref, _, rng, err := c.trackAndRange(ctx, track, rangeExpr)
		if err != nil {
			return err
		}

		wireNotes := make([]any, len(parsed))

		for i, n := range parsed {
			if n.Start >= rng.Length() {
				return &errors.ValidationError{
					Param:  "notes",
					Token:  fmt.Sprintf("notes[%d]", i),
					Reason: fmt.Sprintf("start %gs is past the %gs item", n.Start, rng.Length()),
				}
			}

			wireNotes[i] = map[string]any{
				"pitch":    n.Pitch,
				"velocity": n.Velocity,
				"start":    n.Start,
				"length":   n.Length,
			}
		}

		var item ItemInfo
		if err := callInto(ctx, c.c, &item, "CreateMIDIItem", ref.Index, rng.Start, rng.Length()); err != nil {
			return err
		}

		if len(wireNotes) > 0 {
			if err := callInto(ctx, c.c, &item, "InsertMIDINotes", item.Index, wireNotes); err != nil {
				return err
			}
		}

		res.Targets = []Ref{ref}
		res.Data = item
		res.change("notes", 0, item.Notes)
		res.Message = fmt.Sprintf("Inserted %d MIDI notes on '%s'", len(parsed), ref.Name)
		c.session.Remember(KindTrack, ref)
		c.session.Remember(KindItem, itemRef(item))

		return nil
	})
}

// QuantizeReport is the outcome of quantizing one item.
type QuantizeReport struct {
	Index int `json:"index"`
	Notes int `json:"notes"`
	Moved int `json:"moved"`
}

// ItemQuantize moves the notes of MIDI items toward a grid. items is
// "all", "selected", or a single item reference; grid is a note value
// such as "1/16" (the default); strength defaults to 1.
func (c *Commands) ItemQuantize(ctx context.Context, items, grid any, strength *float64) *Result {
	return c.run(ctx, ActionItemQuantize, func(ctx context.Context, res *Result) error {
		beats, err := ParseGrid(grid)
		if err != nil {
			return err
		}

		amount, err := ParseStrength(strength)
		if err != nil {
			return err
		}

		if items == nil {
			items = "selected"
		}

		found, err := c.resolver.Items(ctx, items)
		if err != nil {
			return err
		}

		var (
			reports []QuantizeReport
			targets []Ref
			moved   int
		)

		for _, it := range found {
			if !it.IsMIDI {
				continue
			}

			var report QuantizeReport
			if err := callInto(ctx, c.c, &report, "QuantizeItem", it.Index, beats, amount); err != nil {
				return err
			}

			reports = append(reports, report)
			targets = append(targets, itemRef(it))
			moved += report.Moved
		}

		if len(reports) == 0 {
			return &errors.ValidationError{Param: "items", Token: fmt.Sprint(items), Reason: "no MIDI items selected"}
		}

		label := DefaultGrid
		if grid != nil {
			label = fmt.Sprint(grid)
		}

		res.Targets = targets
		res.Data = reports
		res.change("notes_moved", 0, moved)
		res.Message = fmt.Sprintf("Quantized %d MIDI items to %s grid (%.0f%% strength)", len(reports), label, amount*100)
		c.session.Remember(KindItem, targets[len(targets)-1])

		return nil
	})
}

// trackAndRange resolves a track, then a range.
func (c *Commands) trackAndRange(ctx context.Context, track, rangeExpr any) (Ref, TrackInfo, TimeRange, error) {
	ref, info, err := c.resolveTrack(ctx, track)
	if err != nil {
		return Ref{}, TrackInfo{}, TimeRange{}, err
	}

	rng, err := c.resolver.Range(ctx, rangeExpr)
	if err != nil {
		return Ref{}, TrackInfo{}, TimeRange{}, err
	}

	return ref, info, rng, nil
}

func barsSuffix(rng TimeRange) string {
	if rng.Bars == 0 {
		return ""
	}

	return fmt.Sprintf(" (%g bars)", rng.Bars)
}

func (c *Commands) setRange(ctx context.Context, action, function, what string, rangeExpr any) *Result {
	return c.run(ctx, action, func(ctx context.Context, res *Result) error {
		rng, err := c.resolver.Range(ctx, rangeExpr)
		if err != nil {
			return err
		}

		var applied TimeRange
		if err := callInto(ctx, c.c, &applied, function, rng.Start, rng.End); err != nil {
			return err
		}

		applied.Bars = rng.Bars

		res.Data = applied
		res.Message = fmt.Sprintf("Set %s to %.3fs - %.3fs", what, applied.Start, applied.End)

		return nil
	})
}

// TransportPlay starts playback, optionally from a position.
func (c *Commands) TransportPlay(ctx context.Context, from any) *Result {
	return c.run(ctx, ActionTransportPlay, func(ctx context.Context, res *Result) error {
		if from != nil {
			pos, err := c.resolver.Position(ctx, from)
			if err != nil {
				return err
			}

			if _, err := c.c.Call(ctx, "SetCursorPosition", pos); err != nil {
				return err
			}

			res.change("cursor", nil, pos)
		}

		state, err := c.c.Call(ctx, "Play")
		if err != nil {
			return err
		}

		res.Data = map[string]any{"play_state": state}
		res.Message = "Playback started"

		return nil
	})
}

// TransportStop stops playback.
func (c *Commands) TransportStop(ctx context.Context) *Result {
	return c.run(ctx, ActionTransportStop, func(ctx context.Context, res *Result) error {
		state, err := c.c.Call(ctx, "Stop")
		if err != nil {
			return err
		}

		res.Data = map[string]any{"play_state": state}
		res.Message = "Playback stopped"

		return nil
	})
}

// SetTempo changes the project tempo. bpm may be a number or "<n> bpm".
func (c *Commands) SetTempo(ctx context.Context, bpm any) *Result {
	return c.run(ctx, ActionSetTempo, func(ctx context.Context, res *Result) error {
		target, err := ParseTempo(bpm)
		if err != nil {
			return err
		}

		var from, to float64
		if err := callInto(ctx, c.c, &from, "GetTempo"); err != nil {
			return err
		}

		if err := callInto(ctx, c.c, &to, "SetTempo", target); err != nil {
			return err
		}

		res.change("tempo", from, to)
		res.Message = fmt.Sprintf("Tempo set to %g BPM", to)

		return nil
	})
}

// TrackSummary is a track as reported by get_tracks.
type TrackSummary struct {
	TrackInfo

	Role     string `json:"role,omitempty"`
	VolumeDB string `json:"volume_db"`
	PanLabel string `json:"pan_label"`
}

// GetTracks lists every track with its role and formatted levels.
func (c *Commands) GetTracks(ctx context.Context) *Result {
	return c.run(ctx, ActionGetTracks, func(ctx context.Context, res *Result) error {
		tracks, err := c.resolver.Tracks(ctx)
		if err != nil {
			return err
		}

		out := make([]TrackSummary, len(tracks))
		for i, t := range tracks {
			out[i] = TrackSummary{
				TrackInfo: t,
				Role:      RoleOf(t.Name),
				VolumeDB:  FormatDB(LinearToDB(t.Volume)),
				PanLabel:  FormatPan(t.Pan),
			}
		}

		res.Data = out
		res.Message = fmt.Sprintf("%d tracks", len(out))

		return nil
	})
}

// TempoInfo is the tempo and time signature at the project start.
type TempoInfo struct {
	Tempo       float64 `json:"tempo"`
	Numerator   int     `json:"num"`
	Denominator int     `json:"denom"`
	BarSeconds  float64 `json:"bar_seconds"`
}

// GetTempoInfo reports the tempo, time signature and bar length.
func (c *Commands) GetTempoInfo(ctx context.Context) *Result {
	return c.run(ctx, ActionGetTempoInfo, func(ctx context.Context, res *Result) error {
		var info TempoInfo
		if err := callInto(ctx, c.c, &info, "GetTimeSignature"); err != nil {
			return err
		}

		bar, err := c.resolver.Duration(ctx, "1 bar", 0)
		if err != nil {
			return err
		}

		info.BarSeconds = bar

		res.Data = info
		res.Message = fmt.Sprintf("%g BPM, %d/%d", info.Tempo, info.Numerator, info.Denominator)

		return nil
	})
}

// ResetContext forgets every remembered entity.
func (c *Commands) ResetContext(ctx context.Context) *Result {
	return c.run(ctx, ActionResetContext, func(_ context.Context, res *Result) error {
		c.session.Reset()
		res.Message = "Session context cleared"

		return nil
	})
}

// round keeps two decimals for reporting.
func round(v float64) float64 {
	return math.Round(v*100) / 100
}
