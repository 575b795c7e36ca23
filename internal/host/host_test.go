package host

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/transport"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWithExtraScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.star")
	require.NoError(t, os.WriteFile(path, []byte("def TrackCount():\n    return api.CountTracks()\n"), 0o600))

	h, err := New(discardLogger(), Demo(), path)
	require.NoError(t, err)

	lb := h.Loopback(nil)
	require.NoError(t, lb.Start(context.Background()))

	resp, err := lb.Call(context.Background(), "TrackCount", []any{})
	require.NoError(t, err)
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, int64(5), resp.Ret)
}

func TestNewMissingScript(t *testing.T) {
	_, err := New(discardLogger(), Demo(), filepath.Join(t.TempDir(), "absent.star"))
	require.Error(t, err)
}

func TestServeRequiresALoop(t *testing.T) {
	h, err := New(discardLogger(), Demo())
	require.NoError(t, err)

	require.Error(t, h.Serve(context.Background(), ServeOptions{}))
}

func TestServeFileDrop(t *testing.T) {
	h, err := New(discardLogger(), Demo())
	require.NoError(t, err)

	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- h.Serve(ctx, ServeOptions{Dir: dir, PollInterval: 5 * time.Millisecond, Codec: wire.CBOR{}})
	}()

	client := transport.NewFileTransport(discardLogger(), wire.CBOR{}, &config.Options{
		BridgeDir:    dir,
		Timeout:      2 * time.Second,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, client.Start(context.Background()))

	resp, err := client.Call(context.Background(), "GetTempo", []any{})
	require.NoError(t, err)
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, 120.0, resp.Ret)

	cancel()
	require.NoError(t, <-done)
}

func TestDemo(t *testing.T) {
	p := Demo()

	require.Len(t, p.Tracks, 5)
	require.Len(t, p.Items(), 3)
	require.NotNil(t, p.FindMarker("verse", true))
	require.Equal(t, 32.0, p.Length())
}
