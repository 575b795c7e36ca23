package dsl

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

// MinDB is the floor used for silence when converting linear gain to dB.
const MinDB = -150.0

// LinearToDB converts linear gain to decibels, flooring silence at MinDB.
func LinearToDB(gain float64) float64 {
	if gain <= 0 {
		return MinDB
	}

	return max(20*math.Log10(gain), MinDB)
}

// DBToLinear converts decibels to linear gain. Values at or below MinDB
// are silence.
func DBToLinear(db float64) float64 {
	if db <= MinDB {
		return 0
	}

	return math.Pow(10, db/20)
}

// VolumeMode says how a VolumeSpec applies to the current volume.
type VolumeMode int

const (
	VolumeAbsolute VolumeMode = iota
	VolumeRelative
	VolumeLinear
)

// VolumeSpec is a parsed volume parameter.
type VolumeSpec struct {
	Mode  VolumeMode
	Value float64
}

// Relative reports whether Apply needs the current value.
func (s VolumeSpec) Relative() bool {
	return s.Mode == VolumeRelative
}

// Apply returns the target volume in dB given the current volume in dB,
// kept within MinDB and the +24 dB ceiling.
func (s VolumeSpec) Apply(currentDB float64) float64 {
	var db float64

	switch s.Mode {
	case VolumeRelative:
		db = currentDB + s.Value
	case VolumeLinear:
		db = LinearToDB(s.Value)
	default:
		db = s.Value
	}

	return min(max(db, MinDB), maxDB)
}

var (
	dbPattern     = regexp.MustCompile(`^([+-]?)(\d+(?:\.\d*)?|\.\d+)\s*(?:db)?$`)
	stepPattern   = regexp.MustCompile(`^(up|down)\s+(\d+(?:\.\d*)?|\.\d+)\s*(?:db)?$`)
	linearPattern = regexp.MustCompile(`^(\d+(?:\.\d*)?|\.\d+)\s*x$`)
)

// ParseVolume parses a volume parameter.
//
// Accepted forms: absolute dB ("-6dB", "-6", "0", -6, {"db": -6}, "-inf"),
// a relative delta ("+3", "+3dB", "up 3", "down 2", {"relative_db": 3}),
// and raw linear gain ("0.5x", {"linear": 0.5}).
func ParseVolume(v any) (VolumeSpec, error) {
	switch x := v.(type) {
	case float64:
		return checkedDB(VolumeAbsolute, x, fmt.Sprint(x))
	case int64:
		return checkedDB(VolumeAbsolute, float64(x), fmt.Sprint(x))
	case int:
		return checkedDB(VolumeAbsolute, float64(x), fmt.Sprint(x))
	case map[string]any:
		return parseVolumeMap(x)
	case string:
		return parseVolumeString(x)
	default:
		return VolumeSpec{}, &errors.ValidationError{Param: "volume", Token: fmt.Sprint(v), Reason: "unsupported type"}
	}
}

func parseVolumeString(token string) (VolumeSpec, error) {
	s := strings.ToLower(strings.TrimSpace(token))

	if s == "-inf" || s == "-infdb" || s == "silence" {
		return VolumeSpec{Mode: VolumeAbsolute, Value: MinDB}, nil
	}

	if m := stepPattern.FindStringSubmatch(s); m != nil {
		delta, _ := strconv.ParseFloat(m[2], 64)
		if m[1] == "down" {
			delta = -delta
		}

		return VolumeSpec{Mode: VolumeRelative, Value: delta}, nil
	}

	if m := linearPattern.FindStringSubmatch(s); m != nil {
		gain, _ := strconv.ParseFloat(m[1], 64)

		return VolumeSpec{Mode: VolumeLinear, Value: gain}, nil
	}

	m := dbPattern.FindStringSubmatch(s)
	if m == nil {
		return VolumeSpec{}, &errors.ValidationError{
			Param:  "volume",
			Token:  token,
			Reason: `expected dB ("-6dB"), a delta ("+3") or linear gain ("0.5x")`,
		}
	}

	value, _ := strconv.ParseFloat(m[2], 64)

	switch m[1] {
	case "+":
		return VolumeSpec{Mode: VolumeRelative, Value: value}, nil
	case "-":
		return checkedDB(VolumeAbsolute, -value, token)
	default:
		return checkedDB(VolumeAbsolute, value, token)
	}
}

func parseVolumeMap(m map[string]any) (VolumeSpec, error) {
	for _, key := range []string{"db", "relative_db", "linear"} {
		raw, ok := m[key]
		if !ok {
			continue
		}

		value, ok := toFloat(raw)
		if !ok {
			return VolumeSpec{}, &errors.ValidationError{Param: "volume", Token: fmt.Sprint(raw), Reason: key + " must be a number"}
		}

		switch key {
		case "db":
			return checkedDB(VolumeAbsolute, value, fmt.Sprint(raw))
		case "relative_db":
			return VolumeSpec{Mode: VolumeRelative, Value: value}, nil
		default:
			if value < 0 {
				return VolumeSpec{}, &errors.ValidationError{Param: "volume", Token: fmt.Sprint(raw), Reason: "linear gain must not be negative"}
			}

			return VolumeSpec{Mode: VolumeLinear, Value: value}, nil
		}
	}

	return VolumeSpec{}, &errors.ValidationError{Param: "volume", Token: fmt.Sprint(m), Reason: "expected db, relative_db or linear"}
}

// maxDB is the loudest absolute volume accepted.
const maxDB = 24.0

func checkedDB(mode VolumeMode, db float64, token string) (VolumeSpec, error) {
	if math.IsNaN(db) || db > maxDB {
		return VolumeSpec{}, &errors.ValidationError{Param: "volume", Token: token, Reason: fmt.Sprintf("must be at most %+.0f dB", maxDB)}
	}

	return VolumeSpec{Mode: mode, Value: max(db, MinDB)}, nil
}

// PanSpec is a parsed pan parameter.
type PanSpec struct {
	Relative bool
	Value    float64
}

// Apply returns the target pan given the current pan, clamped to [-1, 1].
func (s PanSpec) Apply(current float64) float64 {
	if s.Relative {
		return max(-1, min(1, current+s.Value))
	}

	return s.Value
}

var panPattern = regexp.MustCompile(`^(l|left|r|right)\s*(\d+(?:\.\d*)?)?\s*%?$`)

// ParsePan parses a pan parameter: "L<0-100>", "R<0-100>" (a bare side
// means 100), "C"/"center", a signed number in [-1, 1], or
// {"relative": delta}.
func ParsePan(v any) (PanSpec, error) {
	switch x := v.(type) {
	case float64:
		return checkedPan(x, fmt.Sprint(x))
	case int64:
		return checkedPan(float64(x), fmt.Sprint(x))
	case int:
		return checkedPan(float64(x), fmt.Sprint(x))
	case map[string]any:
		raw, ok := x["relative"]
		if !ok {
			return PanSpec{}, &errors.ValidationError{Param: "pan", Token: fmt.Sprint(x), Reason: "expected relative"}
		}

		delta, ok := toFloat(raw)
		if !ok || delta < -2 || delta > 2 {
			return PanSpec{}, &errors.ValidationError{Param: "pan", Token: fmt.Sprint(raw), Reason: "relative pan must be a number in [-2, 2]"}
		}

		return PanSpec{Relative: true, Value: delta}, nil
	case string:
		return parsePanString(x)
	default:
		return PanSpec{}, &errors.ValidationError{Param: "pan", Token: fmt.Sprint(v), Reason: "unsupported type"}
	}
}

func parsePanString(token string) (PanSpec, error) {
	s := strings.ToLower(strings.TrimSpace(token))

	switch s {
	case "c", "center", "centre", "middle":
		return PanSpec{}, nil
	}

	if m := panPattern.FindStringSubmatch(s); m != nil {
		magnitude := 100.0
		if m[2] != "" {
			magnitude, _ = strconv.ParseFloat(m[2], 64)
		}

		if magnitude > 100 {
			return PanSpec{}, &errors.ValidationError{Param: "pan", Token: token, Reason: "magnitude must be 0-100"}
		}

		if m[1][0] == 'l' {
			return PanSpec{Value: -magnitude / 100}, nil
		}

		return PanSpec{Value: magnitude / 100}, nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return checkedPan(f, token)
	}

	return PanSpec{}, &errors.ValidationError{Param: "pan", Token: token, Reason: `expected "L<0-100>", "R<0-100>", "C" or a number in [-1, 1]`}
}

func checkedPan(p float64, token string) (PanSpec, error) {
	if math.IsNaN(p) || p < -1 || p > 1 {
		return PanSpec{}, &errors.ValidationError{Param: "pan", Token: token, Reason: "must be in [-1, 1]"}
	}

	return PanSpec{Value: p}, nil
}

// FormatPan renders a pan value as "C", "L<n>" or "R<n>".
func FormatPan(pan float64) string {
	switch {
	case math.Abs(pan) < 0.01:
		return "C"
	case pan < 0:
		return fmt.Sprintf("L%d", int(math.Round(-pan*100)))
	default:
		return fmt.Sprintf("R%d", int(math.Round(pan*100)))
	}
}

// FormatDB renders a dB value, using "-inf" for silence.
func FormatDB(db float64) string {
	if db <= MinDB {
		return "-inf dB"
	}

	return fmt.Sprintf("%.1f dB", db)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

var tempoPattern = regexp.MustCompile(`^(\d+(?:\.\d*)?|\.\d+)\s*(?:bpm)?$`)

// Tempo bounds accepted by ParseTempo.
const (
	MinTempo = 1.0
	MaxTempo = 960.0
)

// ParseTempo parses a tempo in BPM: a number or "<n> bpm".
func ParseTempo(v any) (float64, error) {
	var (
		bpm   float64
		token = fmt.Sprint(v)
	)

	switch x := v.(type) {
	case float64:
		bpm = x
	case int64:
		bpm = float64(x)
	case int:
		bpm = float64(x)
	case string:
		m := tempoPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(x)))
		if m == nil {
			return 0, &errors.ValidationError{Param: "tempo", Token: x, Reason: `expected a number or "<n> bpm"`}
		}

		bpm, _ = strconv.ParseFloat(m[1], 64)
	default:
		return 0, &errors.ValidationError{Param: "tempo", Token: token, Reason: "unsupported type"}
	}

	if math.IsNaN(bpm) || bpm < MinTempo || bpm > MaxTempo {
		return 0, &errors.ValidationError{Param: "tempo", Token: token, Reason: fmt.Sprintf("must be between %g and %g BPM", MinTempo, MaxTempo)}
	}

	return bpm, nil
}

// Note is a MIDI note to insert. Start and Length are seconds, with Start
// measured from the item start.
type Note struct {
	Pitch    int     `json:"pitch"`
	Velocity int     `json:"velocity"`
	Start    float64 `json:"start"`
	Length   float64 `json:"length"`
}

// Defaults for fields a loosely typed note leaves out.
const (
	DefaultPitch      = 60
	DefaultVelocity   = 100
	DefaultNoteLength = 1.0
)

// ParseNotes parses MIDI notes from a []Note, a list of note objects, or
// an object with a "notes" list. Missing pitch, velocity, start and length
// take their defaults; a zero Velocity in a Note means DefaultVelocity.
func ParseNotes(v any) ([]Note, error) {
	var notes []Note

	switch x := v.(type) {
	case []Note:
		notes = append(notes, x...)
	case map[string]any:
		list, ok := x["notes"]
		if !ok {
			return nil, &errors.ValidationError{Param: "notes", Token: fmt.Sprint(x), Reason: `expected a "notes" list`}
		}

		return ParseNotes(list)
	case []any:
		for i, elem := range x {
			n, err := noteFromMap(i, elem)
			if err != nil {
				return nil, err
			}

			notes = append(notes, n)
		}
	case nil:
		return nil, nil
	default:
		return nil, &errors.ValidationError{Param: "notes", Token: fmt.Sprint(v), Reason: "expected a list of notes"}
	}

	for i := range notes {
		if notes[i].Velocity == 0 {
			notes[i].Velocity = DefaultVelocity
		}

		if err := checkNote(i, notes[i]); err != nil {
			return nil, err
		}
	}

	return notes, nil
}

func noteFromMap(i int, v any) (Note, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Note{}, &errors.ValidationError{Param: "notes", Token: fmt.Sprint(v), Reason: fmt.Sprintf("note %d is not an object", i)}
	}

	n := Note{Pitch: DefaultPitch, Velocity: DefaultVelocity, Length: DefaultNoteLength}

	fields := []struct {
		key     string
		integer bool
		set     func(float64)
	}{
		{"pitch", true, func(f float64) { n.Pitch = int(f) }},
		{"velocity", true, func(f float64) { n.Velocity = int(f) }},
		{"start", false, func(f float64) { n.Start = f }},
		{"length", false, func(f float64) { n.Length = f }},
	}

	for _, field := range fields {
		raw, ok := m[field.key]
		if !ok {
			continue
		}

		f, ok := toFloat(raw)
		if !ok || math.IsNaN(f) || (field.integer && f != math.Trunc(f)) {
			return Note{}, &errors.ValidationError{
				Param:  "notes",
				Token:  fmt.Sprint(raw),
				Reason: fmt.Sprintf("note %d has an invalid %s", i, field.key),
			}
		}

		field.set(f)
	}

	return n, nil
}

func checkNote(i int, n Note) error {
	var reason string

	switch {
	case n.Pitch < 0 || n.Pitch > 127:
		reason = fmt.Sprintf("pitch %d out of range 0-127", n.Pitch)
	case n.Velocity < 1 || n.Velocity > 127:
		reason = fmt.Sprintf("velocity %d out of range 1-127", n.Velocity)
	case n.Start < 0:
		reason = "start must not be negative"
	case n.Length <= 0 || math.IsInf(n.Length, 0):
		reason = "length must be positive"
	default:
		return nil
	}

	return &errors.ValidationError{Param: "notes", Token: fmt.Sprintf("notes[%d]", i), Reason: reason}
}

var gridPattern = regexp.MustCompile(`^1/(\d+)(t)?$`)

// DefaultGrid is the quantize grid used when none is given.
const DefaultGrid = "1/16"

// ParseGrid parses a note-value grid ("1/4", "1/16", "1/8t" for triplets)
// and returns its length in quarter-note beats.
func ParseGrid(v any) (float64, error) {
	if v == nil {
		v = DefaultGrid
	}

	token := fmt.Sprint(v)

	s, ok := v.(string)
	if !ok {
		return 0, &errors.ValidationError{Param: "grid", Token: token, Reason: `expected a note value such as "1/16"`}
	}

	m := gridPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return 0, &errors.ValidationError{Param: "grid", Token: s, Reason: `expected a note value such as "1/16" or "1/8t"`}
	}

	div, _ := strconv.Atoi(m[1])
	if div < 1 || div > 128 {
		return 0, &errors.ValidationError{Param: "grid", Token: s, Reason: "division must be between 1 and 128"}
	}

	beats := 4 / float64(div)
	if m[2] != "" {
		beats *= 2.0 / 3
	}

	return beats, nil
}

// ParseStrength parses a quantize strength in (0, 1]; nil means 1.
func ParseStrength(v *float64) (float64, error) {
	if v == nil {
		return 1, nil
	}

	if math.IsNaN(*v) || *v <= 0 || *v > 1 {
		return 0, &errors.ValidationError{Param: "strength", Token: fmt.Sprint(*v), Reason: "must be in (0, 1]"}
	}

	return *v, nil
}
