package transport

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/errors"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRemote answers datagrams with whatever reply returns. A nil reply
// drops the request.
func fakeRemote(t *testing.T, reply func(env *wire.Envelope) [][]byte) *net.UDPConn {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, maxDatagramSize)

		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}

			env, err := wire.JSON{}.DecodeEnvelope(buf[:n])
			if err != nil {
				continue
			}

			for _, data := range reply(env) {
				_, _ = conn.WriteToUDP(data, from)
			}
		}
	}()

	return conn
}

func encode(t *testing.T, resp *wire.Response) []byte {
	t.Helper()

	data, err := wire.JSON{}.EncodeResponse(resp)
	require.NoError(t, err)

	return data
}

func startUDP(t *testing.T, remote *net.UDPConn, timeout time.Duration) *UDPTransport {
	t.Helper()

	tr := NewUDPTransport(discardLogger(), wire.JSON{}, &config.Options{
		LocalAddr:  "127.0.0.1:0",
		RemoteAddr: remote.LocalAddr().String(),
		Timeout:    timeout,
	})
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(func() { _ = tr.Close() })

	return tr
}

func TestUDPTransportCall(t *testing.T) {
	remote := fakeRemote(t, func(env *wire.Envelope) [][]byte {
		return [][]byte{encode(t, wire.Success(env.ID, int64(len(env.Args))))}
	})

	tr := startUDP(t, remote, time.Second)

	resp, err := tr.Call(context.Background(), "CountArgs", []any{1.5, "x"})
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, int64(2), resp.Ret)
	require.NotEmpty(t, resp.ID)

	// The channel is reusable after a completed call.
	resp, err = tr.Call(context.Background(), "CountArgs", nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), resp.Ret)
}

func TestUDPTransportRemoteFailure(t *testing.T) {
	remote := fakeRemote(t, func(env *wire.Envelope) [][]byte {
		return [][]byte{encode(t, wire.Failure(env.ID, errors.UnknownFunctionPrefix+env.Call))}
	})

	tr := startUDP(t, remote, time.Second)

	resp, err := tr.Call(context.Background(), "Frobnicate", nil)
	require.NoError(t, err, "remote failures are responses, not transport errors")
	require.False(t, resp.OK)
	require.Equal(t, "Unknown function: Frobnicate", resp.Error)
}

func TestUDPTransportTimeout(t *testing.T) {
	remote := fakeRemote(t, func(*wire.Envelope) [][]byte { return nil })

	tr := startUDP(t, remote, 50*time.Millisecond)

	start := time.Now()
	_, err := tr.Call(context.Background(), "CountTracks", nil)

	require.ErrorIs(t, err, errors.ErrTimeout)
	require.NotErrorIs(t, err, errors.ErrMalformedResponse)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	var te *errors.TimeoutError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "CountTracks", te.Function)
}

func TestUDPTransportMalformedResponse(t *testing.T) {
	remote := fakeRemote(t, func(*wire.Envelope) [][]byte {
		return [][]byte{[]byte(`{"ok":tr`)}
	})

	tr := startUDP(t, remote, time.Second)

	_, err := tr.Call(context.Background(), "CountTracks", nil)
	require.ErrorIs(t, err, errors.ErrMalformedResponse)
	require.NotErrorIs(t, err, errors.ErrTimeout)
}

func TestUDPTransportDiscardsStaleResponse(t *testing.T) {
	remote := fakeRemote(t, func(env *wire.Envelope) [][]byte {
		return [][]byte{
			encode(t, wire.Success("01STALEREQUEST", "late answer")),
			encode(t, wire.Success(env.ID, "fresh answer")),
		}
	})

	tr := startUDP(t, remote, time.Second)

	resp, err := tr.Call(context.Background(), "GetTrackName", []any{int64(0)})
	require.NoError(t, err)
	require.Equal(t, "fresh answer", resp.Ret)
}

func TestUDPTransportAcceptsUncorrelatedResponse(t *testing.T) {
	remote := fakeRemote(t, func(*wire.Envelope) [][]byte {
		return [][]byte{encode(t, wire.Success("", 3.0))}
	})

	tr := startUDP(t, remote, time.Second)

	resp, err := tr.Call(context.Background(), "GetTempo", nil)
	require.NoError(t, err)
	require.Equal(t, 3.0, resp.Ret)
}

func TestUDPTransportContextCancel(t *testing.T) {
	remote := fakeRemote(t, func(*wire.Envelope) [][]byte { return nil })

	tr := startUDP(t, remote, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := tr.Call(ctx, "CountTracks", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUDPTransportNotStarted(t *testing.T) {
	tr := NewUDPTransport(discardLogger(), wire.JSON{}, &config.Options{})

	_, err := tr.Call(context.Background(), "CountTracks", nil)
	require.ErrorIs(t, err, errors.ErrTransportClosed)
}

func TestUDPTransportCloseDuringCall(t *testing.T) {
	remote := fakeRemote(t, func(*wire.Envelope) [][]byte { return nil })

	tr := startUDP(t, remote, 5*time.Second)

	done := make(chan error, 1)

	go func() {
		_, err := tr.Call(context.Background(), "CountTracks", nil)
		done <- err
	}()

	// Give the call time to block on its read.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, tr.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, errors.ErrTransportClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not return after Close")
	}

	require.Nil(t, tr.LocalAddr())

	_, err := tr.Call(context.Background(), "CountTracks", nil)
	require.ErrorIs(t, err, errors.ErrTransportClosed)
	require.NoError(t, tr.Close(), "closing twice is a no-op")
}
