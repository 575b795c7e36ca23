package dsl

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

// TimeUnit classifies a parsed time token.
type TimeUnit int

const (
	TimeSeconds TimeUnit = iota
	TimeBars
	TimeBeats
	TimeAnchor
)

// Named anchors.
const (
	AnchorStart     = "start"
	AnchorEnd       = "end"
	AnchorLoop      = "loop"
	AnchorCursor    = "cursor"
	AnchorSelection = "selection"
)

var anchorAliases = map[string]string{
	"start":     AnchorStart,
	"beginning": AnchorStart,
	"end":       AnchorEnd,
	"loop":      AnchorLoop,
	"cursor":    AnchorCursor,
	"selection": AnchorSelection,
	"selected":  AnchorSelection,
}

// TimeSpec is a parsed time token. Amount is in the token's unit.
type TimeSpec struct {
	Unit   TimeUnit
	Amount float64
	Anchor string
	Token  string
}

// TimeRange is a resolved span of project time in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Bars  float64 `json:"bars,omitempty"`
}

// Length returns the span's duration.
func (r TimeRange) Length() float64 {
	return r.End - r.Start
}

var (
	secondsPattern = regexp.MustCompile(`^(\d+(?:\.\d*)?|\.\d+)\s*(?:s|sec|secs|seconds?)?$`)
	clockPattern   = regexp.MustCompile(`^(\d+):(\d{1,2})(?::(\d{1,2}))?(\.\d+)?$`)
	barsPattern    = regexp.MustCompile(`^(\d+(?:\.\d*)?|\.\d+)\s*(?:bars?|measures?)$`)
	beatsPattern   = regexp.MustCompile(`^(\d+(?:\.\d*)?|\.\d+)\s*beats?$`)
)

// ParseTime parses a time token without resolving it.
//
// Accepted forms: seconds (12.5, "12.5", "12.5s"), clock time ("1:30",
// "1:02:03.5"), bars ("8 bars"), beats ("4 beats") and the anchors start,
// end, loop, cursor and selection.
func ParseTime(v any) (TimeSpec, error) {
	switch x := v.(type) {
	case float64:
		return checkedSeconds(x, fmt.Sprint(x))
	case int64:
		return checkedSeconds(float64(x), fmt.Sprint(x))
	case int:
		return checkedSeconds(float64(x), fmt.Sprint(x))
	case string:
		return parseTimeString(x)
	default:
		return TimeSpec{}, &errors.ValidationError{Param: "time", Token: fmt.Sprint(v), Reason: "unsupported type"}
	}
}

func parseTimeString(token string) (TimeSpec, error) {
	s := strings.ToLower(strings.TrimSpace(token))

	if anchor, ok := anchorAliases[s]; ok {
		return TimeSpec{Unit: TimeAnchor, Anchor: anchor, Token: token}, nil
	}

	if m := barsPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)

		return TimeSpec{Unit: TimeBars, Amount: n, Token: token}, nil
	}

	if m := beatsPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)

		return TimeSpec{Unit: TimeBeats, Amount: n, Token: token}, nil
	}

	if m := secondsPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)

		return TimeSpec{Unit: TimeSeconds, Amount: n, Token: token}, nil
	}

	if m := clockPattern.FindStringSubmatch(s); m != nil {
		return parseClock(m, token)
	}

	return TimeSpec{}, &errors.ValidationError{
		Param:  "time",
		Token:  token,
		Reason: `expected seconds, "mm:ss", "<n> bars", "<n> beats" or start|end|loop|cursor|selection`,
	}
}

// parseClock handles "mm:ss" and "hh:mm:ss", each with optional fraction.
func parseClock(m []string, token string) (TimeSpec, error) {
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])

	hours, minutes, seconds := 0, first, second

	if m[3] != "" {
		third, _ := strconv.Atoi(m[3])
		hours, minutes, seconds = first, second, third

		if minutes >= 60 {
			return TimeSpec{}, &errors.ValidationError{Param: "time", Token: token, Reason: "minutes must be below 60"}
		}
	}

	if seconds >= 60 {
		return TimeSpec{}, &errors.ValidationError{Param: "time", Token: token, Reason: "seconds must be below 60"}
	}

	total := float64(hours*3600 + minutes*60 + seconds)

	if m[4] != "" {
		frac, _ := strconv.ParseFloat(m[4], 64)
		total += frac
	}

	return TimeSpec{Unit: TimeSeconds, Amount: total, Token: token}, nil
}

func checkedSeconds(s float64, token string) (TimeSpec, error) {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
		return TimeSpec{}, &errors.ValidationError{Param: "time", Token: token, Reason: "must be a non-negative number of seconds"}
	}

	return TimeSpec{Unit: TimeSeconds, Amount: s, Token: token}, nil
}
