package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/host-bridge-go/internal/dsl"
	"github.com/wagiedev/host-bridge-go/internal/host"
	"github.com/wagiedev/host-bridge-go/internal/project"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

func bridgeServer(t *testing.T) (*Server, *project.Project) {
	t.Helper()

	p := host.Demo()

	h, err := host.New(discardLogger(), p)
	require.NoError(t, err)

	lb := h.Loopback(wire.JSON{})
	require.NoError(t, lb.Start(context.Background()))

	client := dsl.NewClient(discardLogger(), lb)

	server := NewServer(discardLogger(), "hostbridge", "test")
	require.NoError(t, RegisterTools(server, client, dsl.NewCommands(discardLogger(), client)))

	return server, p
}

func decodeResult[T any](t *testing.T, text string) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal([]byte(text), &out))

	return out
}

func TestRegisterToolsNames(t *testing.T) {
	server, _ := bridgeServer(t)

	var names []string
	for _, tool := range server.Tools() {
		names = append(names, tool.Name)
	}

	require.Equal(t, []string{
		"call",
		"track_create", "track_volume", "track_pan", "track_mute", "track_solo",
		"time_select", "loop_set", "loop_create", "item_insert_midi", "item_quantize",
		"transport_play", "transport_stop", "set_tempo",
		"get_tracks", "get_tempo_info", "reset_context", "health",
	}, names)
}

func TestGenericCallTool(t *testing.T) {
	server, p := bridgeServer(t)
	ctx := context.Background()

	res := server.CallTool(ctx, CallToolName, map[string]any{"function": "CountTracks"})
	require.False(t, res.IsError, resultText(t, res))

	out := decodeResult[CallResult](t, resultText(t, res))
	require.True(t, out.Success)
	require.Equal(t, float64(len(p.Tracks)), out.Ret)

	res = server.CallTool(ctx, CallToolName, map[string]any{"function": "GetTrack", "args": []any{1}})
	require.False(t, res.IsError, resultText(t, res))

	handle := decodeResult[CallResult](t, resultText(t, res)).Ret
	require.Equal(t, "MediaTrack@1", handle)

	res = server.CallTool(ctx, CallToolName, map[string]any{"function": "GetTrackName", "args": []any{handle}})
	require.Equal(t, "Bass Guitar", decodeResult[CallResult](t, resultText(t, res)).Ret)

	res = server.CallTool(ctx, CallToolName, map[string]any{"function": "Frobnicate"})
	require.True(t, res.IsError)

	out = decodeResult[CallResult](t, resultText(t, res))
	require.False(t, out.Success)
	require.Equal(t, "dispatch", string(out.Stage))
	require.Contains(t, out.Error, "Unknown function: Frobnicate")

	res = server.CallTool(ctx, CallToolName, map[string]any{"args": []any{}})
	require.True(t, res.IsError, "function is required")
}

func TestCommandTools(t *testing.T) {
	server, p := bridgeServer(t)
	ctx := context.Background()

	res := server.CallTool(ctx, "track_volume", map[string]any{"track": "bass gtr", "volume": "-6dB"})
	require.False(t, res.IsError, resultText(t, res))

	out := decodeResult[dsl.Result](t, resultText(t, res))
	require.True(t, out.Success)
	require.Equal(t, "Bass Guitar", out.Targets[0].Name)
	require.InDelta(t, 0.5012, p.Tracks[1].Volume, 1e-4)
	require.NotEmpty(t, out.Calls)

	res = server.CallTool(ctx, "track_mute", map[string]any{"track": "last", "mute": true})
	require.False(t, res.IsError, resultText(t, res))
	require.True(t, p.Tracks[1].Mute)

	res = server.CallTool(ctx, "track_create", map[string]any{"name": "Strings", "index": 0})
	require.False(t, res.IsError, resultText(t, res))
	require.Equal(t, "Strings", p.Tracks[0].Name)

	res = server.CallTool(ctx, "time_select", map[string]any{"range": "8 bars"})
	require.False(t, res.IsError, resultText(t, res))
	require.Equal(t, 16.0, p.SelectionEnd)

	res = server.CallTool(ctx, "set_tempo", map[string]any{"bpm": 100})
	require.False(t, res.IsError, resultText(t, res))
	require.Equal(t, 100.0, p.Tempo)

	res = server.CallTool(ctx, "health", nil)
	require.False(t, res.IsError, resultText(t, res))
}

func TestLoopAndItemTools(t *testing.T) {
	server, p := bridgeServer(t)
	ctx := context.Background()

	res := server.CallTool(ctx, "loop_set", map[string]any{"range": map[string]any{"region": "verse"}})
	require.False(t, res.IsError, resultText(t, res))
	require.Equal(t, 8.0, p.LoopStart)
	require.Equal(t, 24.0, p.LoopEnd)

	res = server.CallTool(ctx, "loop_create", map[string]any{
		"track": "keys",
		"range": map[string]any{"bars": 4, "from": map[string]any{"marker": "chorus"}},
	})
	require.False(t, res.IsError, resultText(t, res))

	out := decodeResult[dsl.Result](t, resultText(t, res))
	require.Equal(t, "Keys", out.Targets[0].Name)
	require.Len(t, p.Tracks[2].Items, 2)
	require.True(t, p.Tracks[2].Items[1].Loop)
	require.Equal(t, 24.0, p.Tracks[2].Items[1].Position)
	require.True(t, p.Tracks[2].Items[1].MIDI)

	res = server.CallTool(ctx, "item_insert_midi", map[string]any{
		"track": "last",
		"range": "1 bar",
		"notes": []any{
			map[string]any{"pitch": 60, "start": 0.1, "length": 0.5},
			map[string]any{"pitch": 64, "velocity": 80, "start": 1.05, "length": 0.5},
		},
	})
	require.False(t, res.IsError, resultText(t, res))

	item := p.Tracks[2].Items[0]
	require.Equal(t, 0.0, item.Position)
	require.Len(t, item.Notes, 2)
	require.Equal(t, 80, item.Notes[1].Velocity)

	res = server.CallTool(ctx, "item_quantize", map[string]any{"items": "last", "grid": "1/8"})
	require.False(t, res.IsError, resultText(t, res))

	out = decodeResult[dsl.Result](t, resultText(t, res))
	require.Equal(t, "item", string(out.Targets[0].Kind))
	require.InDelta(t, 0.0, item.Notes[0].Start, 1e-9)
	require.InDelta(t, 1.0, item.Notes[1].Start, 1e-9)

	res = server.CallTool(ctx, "item_quantize", map[string]any{"items": 0})
	require.True(t, res.IsError, "the demo drum item is audio")
	require.Equal(t, "validation", string(decodeResult[dsl.Result](t, resultText(t, res)).Stage))

	res = server.CallTool(ctx, "item_quantize", map[string]any{"strength": 0.5})
	require.True(t, res.IsError, "no items are selected")
	require.Equal(t, "resolution", string(decodeResult[dsl.Result](t, resultText(t, res)).Stage))
}

func TestCommandToolFailures(t *testing.T) {
	server, _ := bridgeServer(t)
	ctx := context.Background()

	res := server.CallTool(ctx, "track_pan", map[string]any{"track": "kazoo", "pan": "L50"})
	require.True(t, res.IsError)

	out := decodeResult[dsl.Result](t, resultText(t, res))
	require.False(t, out.Success)
	require.Equal(t, "resolution", string(out.Stage))
	require.Equal(t, "kazoo", out.Token)

	res = server.CallTool(ctx, "track_pan", map[string]any{"track": true, "pan": "L50"})
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "Invalid arguments")

	res = server.CallTool(ctx, "track_mute", map[string]any{"track": "last"})
	require.True(t, res.IsError)
	require.Equal(t, "No previous track referenced", decodeResult[dsl.Result](t, resultText(t, res)).Error)
}
