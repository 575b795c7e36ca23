package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/host-bridge-go/internal/dsl"
	"github.com/wagiedev/host-bridge-go/internal/errors"
)

// CallToolName is the name of the generic passthrough tool.
const CallToolName = "call"

// CallResult is the outcome of the generic call tool.
type CallResult struct {
	Success  bool         `json:"success"`
	Function string       `json:"function"`
	Ret      any          `json:"ret,omitempty"`
	Error    string       `json:"error,omitempty"`
	Stage    errors.Stage `json:"stage,omitempty"`
}

// command is a DSL tool definition.
type command struct {
	name        string
	description string
	params      []Param
	readOnly    bool
	run         func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result
}

var (
	trackParam = Param{
		Name:        "track",
		Types:       []string{"string", "int"},
		Description: `Track name (fuzzy matched), 0-based index, or "last" for the previously referenced track`,
		Required:    true,
	}
	rangeParam = Param{
		Name:  "range",
		Types: []string{"string", "float64", "object"},
		Description: `Time range: "selection", "loop", a length from the edit cursor ("8 bars", "4 beats", 12.5), ` +
			`{"region": name}, or {"start", "end"}, {"start", "length"}, {"bars", "from"}; ` +
			`start, end and from also take {"marker": name} or {"region": name}`,
		Required: true,
	}
	itemsParam = Param{
		Name:  "items",
		Types: []string{"string", "int"},
		Description: `"selected" (the default), "all", an item name (fuzzy matched), 0-based index, ` +
			`or "last" for the previously referenced item`,
	}
)

var commands = []command{
	{
		name:        dsl.ActionTrackCreate,
		description: "Create a named track, at the end or at a 0-based index",
		params: []Param{
			{Name: "name", Types: []string{"string"}, Description: "Track name", Required: true},
			{Name: "index", Types: []string{"int"}, Description: "0-based insertion index"},
		},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			name, _ := args["name"].(string)

			return c.TrackCreate(ctx, name, intArg(args, "index"))
		},
	},
	{
		name:        dsl.ActionTrackVolume,
		description: "Set a track's volume",
		params: []Param{trackParam, {
			Name:  "volume",
			Types: []string{"string", "float64", "object"},
			Description: `Absolute dB ("-6dB", -6), relative change ("+3", "down 2"), linear gain ("0.5x"), ` +
				`or {"db"}, {"relative_db"}, {"linear"}`,
			Required: true,
		}},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			return c.TrackVolume(ctx, args["track"], args["volume"])
		},
	},
	{
		name:        dsl.ActionTrackPan,
		description: "Set a track's pan position",
		params: []Param{trackParam, {
			Name:        "pan",
			Types:       []string{"string", "float64", "object"},
			Description: `"L50", "R30", "C", a number in [-1, 1], or {"relative": delta}`,
			Required:    true,
		}},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			return c.TrackPan(ctx, args["track"], args["pan"])
		},
	},
	{
		name:        dsl.ActionTrackMute,
		description: "Mute or unmute a track; toggles when mute is omitted",
		params:      []Param{trackParam, {Name: "mute", Types: []string{"bool"}}},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			return c.TrackMute(ctx, args["track"], boolArg(args, "mute"))
		},
	},
	{
		name:        dsl.ActionTrackSolo,
		description: "Solo or unsolo a track; toggles when solo is omitted",
		params:      []Param{trackParam, {Name: "solo", Types: []string{"bool"}}},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			return c.TrackSolo(ctx, args["track"], boolArg(args, "solo"))
		},
	},
	{
		name:        dsl.ActionTimeSelect,
		description: "Set the time selection",
		params:      []Param{rangeParam},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			return c.TimeSelect(ctx, args["range"])
		},
	},
	{
		name:        dsl.ActionLoopSet,
		description: "Set the loop range",
		params:      []Param{rangeParam},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			return c.LoopSet(ctx, args["range"])
		},
	},
	{
		name:        dsl.ActionLoopCreate,
		description: "Create a looping item on a track over a time range",
		params: []Param{trackParam, rangeParam, {
			Name:        "midi",
			Types:       []string{"bool"},
			Description: "Create a MIDI item (default) or, when false, an audio item",
		}},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			return c.LoopCreate(ctx, args["track"], args["range"], boolArg(args, "midi"))
		},
	},
	{
		name:        dsl.ActionItemMIDI,
		description: "Create a MIDI item on a track over a time range and insert notes into it",
		params: []Param{trackParam, rangeParam, {
			Name:  "notes",
			Types: []string{"[]any"},
			Description: `Notes as {"pitch", "velocity", "start", "length"}; start and length are seconds, ` +
				`start measured from the item start. Defaults: pitch 60, velocity 100, start 0, length 1`,
			Required: true,
		}},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			return c.ItemInsertMIDI(ctx, args["track"], args["range"], args["notes"])
		},
	},
	{
		name:        dsl.ActionItemQuantize,
		description: "Quantize the notes of MIDI items to a grid",
		params: []Param{itemsParam, {
			Name:        "grid",
			Types:       []string{"string"},
			Description: `Note value such as "1/4", "1/16" (default) or "1/8t"`,
		}, {
			Name:        "strength",
			Types:       []string{"float64"},
			Description: "How far notes move toward the grid, in (0, 1]; default 1",
		}},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			return c.ItemQuantize(ctx, args["items"], args["grid"], floatArg(args, "strength"))
		},
	},
	{
		name:        dsl.ActionTransportPlay,
		description: "Start playback, optionally from a position",
		params: []Param{{
			Name:        "from",
			Types:       []string{"string", "float64", "object"},
			Description: `Seconds, "mm:ss", "<n> bars", start|end|cursor|loop|selection, {"marker": name} or {"region": name}`,
		}},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			return c.TransportPlay(ctx, args["from"])
		},
	},
	{
		name:        dsl.ActionTransportStop,
		description: "Stop playback",
		run: func(ctx context.Context, c *dsl.Commands, _ map[string]any) *dsl.Result {
			return c.TransportStop(ctx)
		},
	},
	{
		name:        dsl.ActionSetTempo,
		description: "Set the project tempo",
		params: []Param{{
			Name:        "bpm",
			Types:       []string{"float64", "string"},
			Description: `Tempo as a number or "<n> bpm"`,
			Required:    true,
		}},
		run: func(ctx context.Context, c *dsl.Commands, args map[string]any) *dsl.Result {
			return c.SetTempo(ctx, args["bpm"])
		},
	},
	{
		name:        dsl.ActionGetTracks,
		description: "List tracks with role, volume and pan",
		readOnly:    true,
		run: func(ctx context.Context, c *dsl.Commands, _ map[string]any) *dsl.Result {
			return c.GetTracks(ctx)
		},
	},
	{
		name:        dsl.ActionGetTempoInfo,
		description: "Report tempo, time signature and bar length",
		readOnly:    true,
		run: func(ctx context.Context, c *dsl.Commands, _ map[string]any) *dsl.Result {
			return c.GetTempoInfo(ctx)
		},
	},
	{
		name:        dsl.ActionResetContext,
		description: `Forget the entities remembered for "last"`,
		run: func(ctx context.Context, c *dsl.Commands, _ map[string]any) *dsl.Result {
			return c.ResetContext(ctx)
		},
	},
	{
		name:        dsl.ActionHealth,
		description: "Check that the host answers and provides every DSL function",
		readOnly:    true,
		run: func(ctx context.Context, c *dsl.Commands, _ map[string]any) *dsl.Result {
			return c.Health(ctx)
		},
	},
}

// RegisterTools registers the generic call tool over caller and one tool
// per DSL command.
func RegisterTools(s *Server, caller dsl.Caller, cmds *dsl.Commands) error {
	callTool := &mcp.Tool{
		Name: CallToolName,
		Description: "Invoke a function in the host's scripting runtime by name with positional arguments. " +
			"Host objects are passed as opaque handle strings.",
		InputSchema: ObjectSchema(
			Param{Name: "function", Types: []string{"string"}, Description: "Function name", Required: true},
			Param{Name: "args", Types: []string{"[]any"}, Description: "Positional arguments"},
		),
	}

	err := s.AddTool(callTool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return nil, err
		}

		function, _ := args["function"].(string)
		callArgs, _ := args["args"].([]any)

		ret, err := caller.Call(ctx, function, callArgs...)
		if err != nil {
			return JSONResult(CallResult{
				Function: function,
				Error:    err.Error(),
				Stage:    errors.StageOf(err),
			}, true), nil
		}

		return JSONResult(CallResult{Success: true, Function: function, Ret: ret}, false), nil
	})
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		tool := &mcp.Tool{
			Name:        cmd.name,
			Description: cmd.description,
			InputSchema: ObjectSchema(cmd.params...),
		}

		if cmd.readOnly {
			tool.Annotations = &mcp.ToolAnnotations{ReadOnlyHint: true}
		}

		run := cmd.run

		err := s.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return nil, err
			}

			res := run(ctx, cmds, args)

			return JSONResult(res, !res.Success), nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func intArg(args map[string]any, key string) *int {
	v, ok := args[key].(int64)
	if !ok {
		return nil
	}

	i := int(v)

	return &i
}

func floatArg(args map[string]any, key string) *float64 {
	var f float64

	switch v := args[key].(type) {
	case float64:
		f = v
	case int64:
		f = float64(v)
	default:
		return nil
	}

	return &f
}

func boolArg(args map[string]any, key string) *bool {
	v, ok := args[key].(bool)
	if !ok {
		return nil
	}

	return &v
}
