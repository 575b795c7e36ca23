package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/errors"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

const (
	// RequestPrefix starts every request file name.
	RequestPrefix = "request_"
	// ResponsePrefix starts every response file name.
	ResponsePrefix = "response_"
	// tmpSuffix marks a file still being written.
	tmpSuffix = ".tmp"
)

// FileTransport implements config.Transport over paired files in a shared
// directory. Each call writes request_<id><ext> and polls for
// response_<id><ext>.
type FileTransport struct {
	log          *slog.Logger
	codec        wire.Codec
	dir          string
	timeout      time.Duration
	pollInterval time.Duration
	started      bool
}

// Compile-time verification that FileTransport implements the Transport interface.
var _ config.Transport = (*FileTransport)(nil)

// NewFileTransport creates a file-drop transport. Call Start before use.
func NewFileTransport(log *slog.Logger, codec wire.Codec, opts *config.Options) *FileTransport {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	poll := opts.PollInterval
	if poll <= 0 {
		poll = config.DefaultPollInterval
	}

	return &FileTransport{
		log:          log.With("component", "file_transport"),
		codec:        codec,
		dir:          opts.BridgeDir,
		timeout:      timeout,
		pollInterval: poll,
	}
}

// Start creates the bridge directory and removes request/response files
// orphaned by a previous session, so a stale response is never mistaken
// for a new one.
func (t *FileTransport) Start(_ context.Context) error {
	if t.dir == "" {
		return &errors.ChannelError{Op: "start", Err: stderrors.New("bridge directory not configured")}
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return &errors.ChannelError{Op: "mkdir", Err: err}
	}

	removed, err := CleanOrphans(t.dir)
	if err != nil {
		return &errors.ChannelError{Op: "cleanup", Err: err}
	}

	if removed > 0 {
		t.log.Info("Removed orphaned bridge files", "dir", t.dir, "count", removed)
	}

	t.started = true
	t.log.Info("File transport ready", "dir", t.dir)

	return nil
}

// Call writes the request file and polls for the paired response file.
func (t *FileTransport) Call(ctx context.Context, function string, args []any) (*wire.Response, error) {
	if !t.started {
		return nil, errors.ErrTransportClosed
	}

	id := newRequestID()
	ext := t.codec.Ext()
	requestPath := filepath.Join(t.dir, RequestPrefix+id+ext)
	responsePath := filepath.Join(t.dir, ResponsePrefix+id+ext)

	data, err := t.codec.EncodeEnvelope(&wire.Envelope{ID: id, Call: function, Args: args})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if err := WriteFileAtomic(requestPath, data); err != nil {
		return nil, &errors.ChannelError{Op: "write", Err: err}
	}

	t.log.Debug("Request file written", "request_id", id, "call", function)

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	// A response that exists but does not decode may still be mid-write;
	// keep polling, and report it only if it never becomes readable.
	var lastDecodeErr error

	for {
		resp, err := t.readResponse(responsePath)

		switch {
		case err == nil:
			_ = os.Remove(requestPath)
			_ = os.Remove(responsePath)

			t.log.Debug("Received response", "request_id", id, "ok", resp.OK)

			return resp, nil
		case stderrors.Is(err, errors.ErrMalformedResponse):
			lastDecodeErr = err
		case !stderrors.Is(err, fs.ErrNotExist):
			return nil, &errors.ChannelError{Op: "read", Err: err}
		}

		select {
		case <-ticker.C:
		case <-timer.C:
			_ = os.Remove(requestPath)

			if lastDecodeErr != nil {
				_ = os.Remove(responsePath)
				t.log.Warn("Malformed response", "request_id", id, "error", lastDecodeErr)

				return nil, lastDecodeErr
			}

			t.log.Warn("Request timed out", "request_id", id, "call", function, "timeout", t.timeout)

			return nil, &errors.TimeoutError{Function: function, Timeout: t.timeout.String()}
		case <-ctx.Done():
			_ = os.Remove(requestPath)
			t.log.Debug("Request cancelled", "request_id", id)

			return nil, ctx.Err()
		}
	}
}

func (t *FileTransport) readResponse(path string) (*wire.Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return t.codec.DecodeResponse(data)
}

// Close marks the transport unusable. The directory is left in place.
func (t *FileTransport) Close() error {
	t.started = false

	return nil
}

// CleanOrphans removes request, response and temporary files left in dir.
func CleanOrphans(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}

		if !strings.HasPrefix(name, RequestPrefix) && !strings.HasPrefix(name, ResponsePrefix) {
			continue
		}

		if err := os.Remove(filepath.Join(dir, name)); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return removed, err
		}

		removed++
	}

	return removed, nil
}

// WriteFileAtomic writes data to a temporary sibling and renames it into
// place, so pollers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)

		return err
	}

	return nil
}

// IsRequestFile reports whether name is a complete request file for codec.
// It returns the request id encoded in the name.
func IsRequestFile(name string, codec wire.Codec) (string, bool) {
	if !strings.HasPrefix(name, RequestPrefix) || !strings.HasSuffix(name, codec.Ext()) {
		return "", false
	}

	return strings.TrimSuffix(strings.TrimPrefix(name, RequestPrefix), codec.Ext()), true
}
