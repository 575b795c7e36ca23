package dsl

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

// TrackInfo is a track as reported by GetAllTracksInfo and GetTrackInfo.
type TrackInfo struct {
	Index    int     `json:"index"`
	Name     string  `json:"name"`
	Volume   float64 `json:"volume"`
	Pan      float64 `json:"pan"`
	Mute     bool    `json:"mute"`
	Solo     bool    `json:"solo"`
	Selected bool    `json:"selected"`
	Items    int     `json:"items"`
}

// ItemInfo is an item as reported by ListItems.
type ItemInfo struct {
	Index      int     `json:"index"`
	TrackIndex int     `json:"track_index"`
	Name       string  `json:"name"`
	Position   float64 `json:"position"`
	Length     float64 `json:"length"`
	IsMIDI     bool    `json:"is_midi"`
	Selected   bool    `json:"selected"`
	Loop       bool    `json:"loop"`
	Notes      int     `json:"notes"`
}

// MarkerInfo is a marker or region as reported by ListMarkers.
type MarkerInfo struct {
	Index    int     `json:"index"`
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Position float64 `json:"position"`
	End      float64 `json:"end"`
	IsRegion bool    `json:"is_region"`
}

var lastAliases = map[string]bool{"last": true, "that": true, "previous": true}

// Resolver turns reference expressions into concrete entity references by
// querying the live project through a Caller.
type Resolver struct {
	c       Caller
	session *Session
}

// NewResolver creates a resolver that recalls "last" from session.
func NewResolver(c Caller, session *Session) *Resolver {
	return &Resolver{c: c, session: session}
}

// Resolve resolves expr to one entity of kind.
//
// expr may be an index (integer or numeric string), "last" (also "that"
// and "previous"), or a display name matched as described by Match.
func (r *Resolver) Resolve(ctx context.Context, expr any, kind Kind) (Ref, error) {
	switch x := expr.(type) {
	case int:
		return r.byIndex(ctx, kind, x, strconv.Itoa(x))
	case int64:
		return r.byIndex(ctx, kind, int(x), strconv.FormatInt(x, 10))
	case float64:
		if x != math.Trunc(x) {
			return Ref{}, &errors.ValidationError{Param: string(kind), Token: fmt.Sprint(x), Reason: "index must be an integer"}
		}

		return r.byIndex(ctx, kind, int(x), fmt.Sprint(x))
	case string:
		s := strings.TrimSpace(x)

		if lastAliases[strings.ToLower(s)] {
			return r.session.Recall(kind)
		}

		if n, err := strconv.Atoi(s); err == nil {
			return r.byIndex(ctx, kind, n, s)
		}

		return r.byName(ctx, kind, x)
	case nil:
		return Ref{}, &errors.ValidationError{Param: string(kind), Token: "", Reason: "reference is required"}
	default:
		return Ref{}, &errors.ValidationError{Param: string(kind), Token: fmt.Sprint(expr), Reason: "unsupported reference"}
	}
}

func (r *Resolver) byIndex(ctx context.Context, kind Kind, idx int, token string) (Ref, error) {
	refs, err := r.List(ctx, kind)
	if err != nil {
		return Ref{}, err
	}

	if idx < 0 || idx >= len(refs) {
		return Ref{}, &errors.NotFoundError{Kind: string(kind), Expr: token}
	}

	ref := refs[idx]
	ref.Confidence = 1

	return ref, nil
}

func (r *Resolver) byName(ctx context.Context, kind Kind, expr string) (Ref, error) {
	refs, err := r.List(ctx, kind)
	if err != nil {
		return Ref{}, err
	}

	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name
	}

	idx, confidence, err := Match(kind, expr, names)
	if err != nil {
		return Ref{}, err
	}

	ref := refs[idx]
	ref.Confidence = confidence

	return ref, nil
}

// List returns every live entity of kind, in index order.
func (r *Resolver) List(ctx context.Context, kind Kind) ([]Ref, error) {
	switch kind {
	case KindTrack:
		tracks, err := r.Tracks(ctx)
		if err != nil {
			return nil, err
		}

		refs := make([]Ref, len(tracks))
		for i, t := range tracks {
			refs[i] = trackRef(t)
		}

		return refs, nil
	case KindItem:
		var items []ItemInfo
		if err := callInto(ctx, r.c, &items, "ListItems"); err != nil {
			return nil, err
		}

		refs := make([]Ref, len(items))
		for i, it := range items {
			refs[i] = itemRef(it)
		}

		return refs, nil
	case KindMarker, KindRegion:
		var markers []MarkerInfo
		if err := callInto(ctx, r.c, &markers, "ListMarkers"); err != nil {
			return nil, err
		}

		refs := make([]Ref, 0, len(markers))
		for _, m := range markers {
			if kind == KindRegion && !m.IsRegion {
				continue
			}

			ref := Ref{Kind: kind, Index: len(refs), Name: m.Name, Position: m.Position}
			if m.IsRegion {
				ref.End = m.End
			}

			refs = append(refs, ref)
		}

		return refs, nil
	default:
		return nil, &errors.ValidationError{Param: "kind", Token: string(kind), Reason: "expected track, item, marker or region"}
	}
}

// Tracks fetches every track's info.
func (r *Resolver) Tracks(ctx context.Context) ([]TrackInfo, error) {
	var tracks []TrackInfo
	if err := callInto(ctx, r.c, &tracks, "GetAllTracksInfo"); err != nil {
		return nil, err
	}

	for i := range tracks {
		if tracks[i].Name == "" {
			tracks[i].Name = fmt.Sprintf("Track %d", tracks[i].Index+1)
		}
	}

	return tracks, nil
}

func trackRef(t TrackInfo) Ref {
	return Ref{Kind: KindTrack, Index: t.Index, Name: t.Name, Role: RoleOf(t.Name)}
}

func itemRef(it ItemInfo) Ref {
	name := it.Name
	if name == "" {
		name = fmt.Sprintf("Item %d", it.Index+1)
	}

	return Ref{Kind: KindItem, Index: it.Index, Name: name, Position: it.Position}
}

// Items resolves an item selection: "all", "selected", or any single item
// reference Resolve accepts.
func (r *Resolver) Items(ctx context.Context, expr any) ([]ItemInfo, error) {
	if s, ok := expr.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "all", "selected":
			var items []ItemInfo
			if err := callInto(ctx, r.c, &items, "ListItems"); err != nil {
				return nil, err
			}

			if strings.EqualFold(strings.TrimSpace(s), "selected") {
				items = slices.DeleteFunc(items, func(it ItemInfo) bool { return !it.Selected })
			}

			if len(items) == 0 {
				return nil, &errors.NotFoundError{Kind: string(KindItem), Expr: s}
			}

			return items, nil
		}
	}

	ref, err := r.Resolve(ctx, expr, KindItem)
	if err != nil {
		return nil, err
	}

	var item ItemInfo
	if err := callInto(ctx, r.c, &item, "GetItemInfo", ref.Index); err != nil {
		return nil, err
	}

	return []ItemInfo{item}, nil
}

// Position resolves a time token to an absolute project position.
// Durations (seconds, bars, beats) are measured from the project start.
// {"marker": name} and {"region": name} resolve to the marker position or
// the region start.
func (r *Resolver) Position(ctx context.Context, v any) (float64, error) {
	if m, ok := v.(map[string]any); ok {
		return r.positionFromMap(ctx, m)
	}

	spec, err := ParseTime(v)
	if err != nil {
		return 0, err
	}

	if spec.Unit != TimeAnchor {
		return r.duration(ctx, spec, 0)
	}

	switch spec.Anchor {
	case AnchorStart:
		return 0, nil
	case AnchorEnd:
		return r.float(ctx, "GetProjectLength")
	case AnchorCursor:
		return r.float(ctx, "GetCursorPosition")
	default:
		rng, err := r.anchorRange(ctx, spec)
		if err != nil {
			return 0, err
		}

		return rng.Start, nil
	}
}

func (r *Resolver) positionFromMap(ctx context.Context, m map[string]any) (float64, error) {
	if expr, ok := m["marker"]; ok {
		ref, err := r.Resolve(ctx, expr, KindMarker)
		if err != nil {
			return 0, err
		}

		noteResolved(ctx, ref)

		return ref.Position, nil
	}

	if expr, ok := m["region"]; ok {
		rng, err := r.region(ctx, expr)
		if err != nil {
			return 0, err
		}

		return rng.Start, nil
	}

	return 0, &errors.ValidationError{Param: "time", Token: fmt.Sprint(m), Reason: "expected a marker or region"}
}

// region resolves expr among the project's regions.
func (r *Resolver) region(ctx context.Context, expr any) (TimeRange, error) {
	ref, err := r.Resolve(ctx, expr, KindRegion)
	if err != nil {
		return TimeRange{}, err
	}

	if ref.End <= ref.Position {
		return TimeRange{}, &errors.ValidationError{Param: "region", Token: ref.Name, Reason: "region is empty"}
	}

	noteResolved(ctx, ref)

	return TimeRange{Start: ref.Position, End: ref.End}, nil
}

// Duration resolves a time token to a length in seconds; bars and beats
// are measured at position at.
func (r *Resolver) Duration(ctx context.Context, v any, at float64) (float64, error) {
	spec, err := ParseTime(v)
	if err != nil {
		return 0, err
	}

	if spec.Unit == TimeAnchor {
		return 0, &errors.ValidationError{Param: "time", Token: spec.Token, Reason: "an anchor is a position, not a duration"}
	}

	return r.duration(ctx, spec, at)
}

func (r *Resolver) duration(ctx context.Context, spec TimeSpec, at float64) (float64, error) {
	switch spec.Unit {
	case TimeBars:
		return r.float(ctx, "BarsToTime", spec.Amount, at)
	case TimeBeats:
		return r.float(ctx, "BeatsToTime", spec.Amount)
	default:
		return spec.Amount, nil
	}
}

// Range resolves a time-range expression.
//
// Accepted forms: "selection" and "loop"; a duration ("8 bars", 4.0)
// starting at the edit cursor; or a map with a region, start and end,
// start and length, or bars and an optional from position. Map positions
// may themselves be marker or region selectors.
func (r *Resolver) Range(ctx context.Context, v any) (TimeRange, error) {
	if m, ok := v.(map[string]any); ok {
		return r.rangeFromMap(ctx, m)
	}

	spec, err := ParseTime(v)
	if err != nil {
		return TimeRange{}, err
	}

	if spec.Unit == TimeAnchor {
		return r.anchorRange(ctx, spec)
	}

	start, err := r.float(ctx, "GetCursorPosition")
	if err != nil {
		return TimeRange{}, err
	}

	return r.spanFrom(ctx, start, spec)
}

func (r *Resolver) rangeFromMap(ctx context.Context, m map[string]any) (TimeRange, error) {
	if expr, ok := m["region"]; ok {
		return r.region(ctx, expr)
	}

	if bars, ok := m["bars"]; ok {
		start := 0.0

		if from, ok := m["from"]; ok {
			var err error
			if start, err = r.Position(ctx, from); err != nil {
				return TimeRange{}, err
			}
		}

		spec, err := ParseTime(fmt.Sprintf("%v bars", bars))
		if err != nil {
			return TimeRange{}, err
		}

		return r.spanFrom(ctx, start, spec)
	}

	rawStart, ok := m["start"]
	if !ok {
		return TimeRange{}, &errors.ValidationError{Param: "time", Token: fmt.Sprint(m), Reason: "expected region, start with end or length, or bars"}
	}

	start, err := r.Position(ctx, rawStart)
	if err != nil {
		return TimeRange{}, err
	}

	if rawEnd, ok := m["end"]; ok {
		end, err := r.Position(ctx, rawEnd)
		if err != nil {
			return TimeRange{}, err
		}

		if end <= start {
			return TimeRange{}, &errors.ValidationError{Param: "time", Token: fmt.Sprint(rawEnd), Reason: "end must be after start"}
		}

		return TimeRange{Start: start, End: end}, nil
	}

	if rawLength, ok := m["length"]; ok {
		spec, err := ParseTime(rawLength)
		if err != nil {
			return TimeRange{}, err
		}

		return r.spanFrom(ctx, start, spec)
	}

	return TimeRange{}, &errors.ValidationError{Param: "time", Token: fmt.Sprint(m), Reason: "start needs end or length"}
}

func (r *Resolver) spanFrom(ctx context.Context, start float64, spec TimeSpec) (TimeRange, error) {
	if spec.Unit == TimeAnchor {
		return TimeRange{}, &errors.ValidationError{Param: "time", Token: spec.Token, Reason: "an anchor is a position, not a duration"}
	}

	length, err := r.duration(ctx, spec, start)
	if err != nil {
		return TimeRange{}, err
	}

	if length <= 0 {
		return TimeRange{}, &errors.ValidationError{Param: "time", Token: spec.Token, Reason: "length must be positive"}
	}

	rng := TimeRange{Start: start, End: start + length}
	if spec.Unit == TimeBars {
		rng.Bars = spec.Amount
	}

	return rng, nil
}

func (r *Resolver) anchorRange(ctx context.Context, spec TimeSpec) (TimeRange, error) {
	var function, what string

	switch spec.Anchor {
	case AnchorSelection:
		function, what = "GetTimeSelection", "time selection"
	case AnchorLoop:
		function, what = "GetLoopTimeRange", "loop range"
	default:
		return TimeRange{}, &errors.ValidationError{Param: "time", Token: spec.Token, Reason: "a point anchor does not describe a range"}
	}

	var rng TimeRange
	if err := callInto(ctx, r.c, &rng, function); err != nil {
		return TimeRange{}, err
	}

	if rng.End <= rng.Start {
		return TimeRange{}, &errors.NotFoundError{Kind: what, Expr: spec.Token}
	}

	return rng, nil
}

func (r *Resolver) float(ctx context.Context, function string, args ...any) (float64, error) {
	var f float64
	if err := callInto(ctx, r.c, &f, function, args...); err != nil {
		return 0, err
	}

	return f, nil
}
