package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// TransportKind selects one of the built-in transport variants.
type TransportKind string

const (
	// TransportUDP exchanges envelopes as datagrams between two fixed endpoints.
	TransportUDP TransportKind = "udp"
	// TransportFile exchanges envelopes as paired files in a shared directory.
	TransportFile TransportKind = "file"
	// TransportEmbedded runs the in-memory host inside the client process.
	TransportEmbedded TransportKind = "embedded"
)

const (
	// DefaultTimeout bounds the wait for a single response.
	DefaultTimeout = 5 * time.Second

	// DefaultPollInterval is how often the file transport checks for a response.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultLocalAddr is where the client receives datagrams.
	DefaultLocalAddr = "127.0.0.1:9001"

	// DefaultRemoteAddr is where the remote dispatcher receives datagrams.
	DefaultRemoteAddr = "127.0.0.1:9000"

	// BridgeDirEnv overrides the default file-bridge directory.
	BridgeDirEnv = "HOSTBRIDGE_DIR"
)

// Options configures the bridge client.
type Options struct {
	// Logger receives transport and DSL diagnostics. Nil disables logging.
	Logger *slog.Logger

	// TransportKind selects the built-in transport. Ignored when Transport is set.
	TransportKind TransportKind

	// LocalAddr is the UDP endpoint the client binds for inbound responses.
	LocalAddr string

	// RemoteAddr is the UDP endpoint of the remote dispatcher.
	RemoteAddr string

	// BridgeDir is the directory shared with the remote file-drop loop.
	BridgeDir string

	// Timeout bounds the wait for each response.
	Timeout time.Duration

	// PollInterval is the file transport's response polling period.
	PollInterval time.Duration

	// Codec names the wire codec ("json" or "cbor").
	Codec string

	// Scripts are extra Starlark files loaded by the embedded host.
	Scripts []string

	// ConfigFile is a YAML or TOML file applied beneath the explicit options.
	ConfigFile string

	// Transport replaces the built-in transports, e.g. for tests.
	Transport Transport `json:"-"`
}

// ApplyDefaults fills unset fields with their defaults.
func (o *Options) ApplyDefaults() {
	if o.TransportKind == "" {
		o.TransportKind = TransportUDP
	}

	if o.LocalAddr == "" {
		o.LocalAddr = DefaultLocalAddr
	}

	if o.RemoteAddr == "" {
		o.RemoteAddr = DefaultRemoteAddr
	}

	if o.BridgeDir == "" {
		o.BridgeDir = DefaultBridgeDir()
	}

	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}

	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}

	if o.Codec == "" {
		o.Codec = "json"
	}
}

// DefaultBridgeDir returns $HOSTBRIDGE_DIR, or a directory under the
// user's config directory.
func DefaultBridgeDir() string {
	if dir := os.Getenv(BridgeDirEnv); dir != "" {
		return dir
	}

	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}

	return filepath.Join(base, "hostbridge", "bridge_data")
}
