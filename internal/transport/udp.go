package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/errors"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

// maxDatagramSize is the receive buffer size for a single response.
const maxDatagramSize = 64 * 1024

// UDPTransport implements config.Transport over connectionless datagrams.
//
// Outbound requests go to the remote endpoint; responses are read on a
// separate, fixed local endpoint so the client never reads back its own
// request.
type UDPTransport struct {
	log        *slog.Logger
	codec      wire.Codec
	localAddr  string
	remoteAddr string
	timeout    time.Duration

	// mu guards conn. Call works on its own copy, so Close may run while a
	// read is blocked; the read then fails with net.ErrClosed.
	mu     sync.Mutex
	conn   *net.UDPConn
	remote *net.UDPAddr
	buf    []byte
}

// Compile-time verification that UDPTransport implements the Transport interface.
var _ config.Transport = (*UDPTransport)(nil)

// NewUDPTransport creates a datagram transport. Call Start before use.
func NewUDPTransport(log *slog.Logger, codec wire.Codec, opts *config.Options) *UDPTransport {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	return &UDPTransport{
		log:        log.With("component", "udp_transport"),
		codec:      codec,
		localAddr:  opts.LocalAddr,
		remoteAddr: opts.RemoteAddr,
		timeout:    timeout,
		buf:        make([]byte, maxDatagramSize),
	}
}

// Start binds the local endpoint and resolves the remote one.
func (t *UDPTransport) Start(_ context.Context) error {
	local, err := net.ResolveUDPAddr("udp", t.localAddr)
	if err != nil {
		return &errors.ChannelError{Op: "resolve local", Err: err}
	}

	remote, err := net.ResolveUDPAddr("udp", t.remoteAddr)
	if err != nil {
		return &errors.ChannelError{Op: "resolve remote", Err: err}
	}

	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return &errors.ChannelError{Op: "listen", Err: err}
	}

	t.mu.Lock()
	t.conn = conn
	t.remote = remote
	t.mu.Unlock()

	t.log.Info("UDP transport bound", "local", conn.LocalAddr().String(), "remote", remote.String())

	return nil
}

// LocalAddr returns the bound local endpoint, or nil before Start and
// after Close.
func (t *UDPTransport) LocalAddr() net.Addr {
	conn, _ := t.current()
	if conn == nil {
		return nil
	}

	return conn.LocalAddr()
}

func (t *UDPTransport) current() (*net.UDPConn, *net.UDPAddr) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conn, t.remote
}

// Call sends one request datagram and waits for its response. Calls must
// not overlap; Serial queues them.
func (t *UDPTransport) Call(ctx context.Context, function string, args []any) (*wire.Response, error) {
	conn, remote := t.current()
	if conn == nil {
		return nil, errors.ErrTransportClosed
	}

	id := newRequestID()

	data, err := t.codec.EncodeEnvelope(&wire.Envelope{ID: id, Call: function, Args: args})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	t.log.Debug("Sending request", "request_id", id, "call", function)

	if _, err := conn.WriteToUDP(data, remote); err != nil {
		return nil, &errors.ChannelError{Op: "write", Err: err}
	}

	deadline := time.Now().Add(t.timeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, &errors.ChannelError{Op: "set deadline", Err: err}
	}

	// Unblock the read early when ctx ends; the deadline is reset on the next call.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		n, _, err := conn.ReadFromUDP(t.buf)
		if err != nil {
			if stderrors.Is(err, net.ErrClosed) {
				return nil, &errors.ChannelError{Op: "read", Err: errors.ErrTransportClosed}
			}

			if ctx.Err() != nil {
				t.log.Debug("Request cancelled", "request_id", id)

				return nil, ctx.Err()
			}

			if stderrors.Is(err, os.ErrDeadlineExceeded) {
				t.log.Warn("Request timed out", "request_id", id, "call", function, "timeout", t.timeout)

				return nil, &errors.TimeoutError{Function: function, Timeout: t.timeout.String()}
			}

			return nil, &errors.ChannelError{Op: "read", Err: err}
		}

		resp, err := t.codec.DecodeResponse(t.buf[:n])
		if err != nil {
			t.log.Warn("Malformed response", "request_id", id, "error", err)

			return nil, err
		}

		if resp.ID != "" && resp.ID != id {
			t.log.Warn("Discarding stale response", "request_id", id, "response_id", resp.ID)

			continue
		}

		t.log.Debug("Received response", "request_id", id, "ok", resp.OK)

		return resp, nil
	}
}

// Close releases the socket. A Call blocked on a read fails with
// ErrTransportClosed.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	return conn.Close()
}
