package remote

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/transport"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

// UDPServer answers datagram envelopes, replying to each sender.
type UDPServer struct {
	log   *slog.Logger
	d     *Dispatcher
	codec wire.Codec
	addr  string
	conn  *net.UDPConn
}

// NewUDPServer creates a datagram serve loop bound to addr on Listen.
func NewUDPServer(log *slog.Logger, d *Dispatcher, codec wire.Codec, addr string) *UDPServer {
	return &UDPServer{
		log:   log.With("component", "udp_server"),
		d:     d,
		codec: codec,
		addr:  addr,
	}
}

// Listen binds the server socket.
func (s *UDPServer) Listen() error {
	addr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.addr, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	s.conn = conn
	s.log.Info("UDP server listening", "addr", conn.LocalAddr().String())

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *UDPServer) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}

	return s.conn.LocalAddr()
}

// Serve handles datagrams one at a time until ctx is done.
func (s *UDPServer) Serve(ctx context.Context) error {
	if s.conn == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer stop()

	buf := make([]byte, 64*1024)

	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				return nil
			}

			s.log.Warn("Read failed", "error", err)

			continue
		}

		reply, err := s.d.HandlePayload(ctx, s.codec, buf[:n])
		if err != nil {
			s.log.Warn("Dropping request", "from", from.String(), "error", err)

			continue
		}

		if _, err := s.conn.WriteToUDP(reply, from); err != nil {
			s.log.Warn("Reply failed", "to", from.String(), "error", err)
		}
	}
}

// Close releases the socket.
func (s *UDPServer) Close() error {
	if s.conn == nil {
		return nil
	}

	return s.conn.Close()
}

// FileServer polls a bridge directory for request files and writes the
// paired response files.
type FileServer struct {
	log          *slog.Logger
	d            *Dispatcher
	codec        wire.Codec
	dir          string
	pollInterval time.Duration
}

// NewFileServer creates a file-drop serve loop over dir.
func NewFileServer(log *slog.Logger, d *Dispatcher, codec wire.Codec, dir string, pollInterval time.Duration) *FileServer {
	if pollInterval <= 0 {
		pollInterval = config.DefaultPollInterval
	}

	return &FileServer{
		log:          log.With("component", "file_server"),
		d:            d,
		codec:        codec,
		dir:          dir,
		pollInterval: pollInterval,
	}
}

// Serve polls until ctx is done.
func (s *FileServer) Serve(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create bridge dir: %w", err)
	}

	s.log.Info("File server polling", "dir", s.dir, "interval", s.pollInterval)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if err := s.Poll(ctx); err != nil {
			s.log.Warn("Poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll handles every request currently in the directory, oldest id first.
func (s *FileServer) Poll(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	type pending struct{ id, name string }

	var requests []pending

	for _, entry := range entries {
		if id, ok := transport.IsRequestFile(entry.Name(), s.codec); ok && !entry.IsDir() {
			requests = append(requests, pending{id: id, name: entry.Name()})
		}
	}

	// ULIDs sort by creation time.
	sort.Slice(requests, func(i, j int) bool { return requests[i].id < requests[j].id })

	for _, req := range requests {
		if err := s.handle(ctx, req.id, req.name); err != nil {
			s.log.Warn("Request failed", "request_id", req.id, "error", err)
		}
	}

	return nil
}

func (s *FileServer) handle(ctx context.Context, id, name string) error {
	path := filepath.Join(s.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		return err
	}

	reply, err := s.d.HandlePayload(ctx, s.codec, data)
	if err != nil {
		return err
	}

	return transport.WriteFileAtomic(filepath.Join(s.dir, transport.ResponsePrefix+id+s.codec.Ext()), reply)
}
