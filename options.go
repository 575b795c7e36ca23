package hostbridge

import (
	"log/slog"
	"time"

	"github.com/wagiedev/host-bridge-go/internal/config"
)

// Options configures a Bridge. See the With* functions.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// resolveOptions layers the config file (if any) beneath opts and fills
// defaults.
func resolveOptions(opts []Option) (*Options, error) {
	options := applyOptions(opts)

	if options.ConfigFile != "" {
		f, err := config.Load(options.ConfigFile)
		if err != nil {
			return nil, err
		}

		base := &Options{}
		if err := f.Apply(base); err != nil {
			return nil, err
		}

		for _, opt := range opts {
			opt(base)
		}

		options = base
	}

	options.ApplyDefaults()

	return options, nil
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithTimeout bounds the wait for each response. Defaults to 5s.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithCodec selects the wire codec, "json" (default) or "cbor".
// Both ends of the bridge must agree.
func WithCodec(name string) Option {
	return func(o *Options) {
		o.Codec = name
	}
}

// WithConfigFile loads a YAML or TOML config file. Explicit options
// override the file's settings regardless of their order.
func WithConfigFile(path string) Option {
	return func(o *Options) {
		o.ConfigFile = path
	}
}

// ===== Transport Selection =====

// WithUDP selects the datagram transport. local is where responses are
// received, remote is the host's dispatcher.
func WithUDP(local, remote string) Option {
	return func(o *Options) {
		o.TransportKind = config.TransportUDP
		o.LocalAddr = local
		o.RemoteAddr = remote
	}
}

// WithFileBridge selects the file-drop transport over dir.
// An empty dir means $HOSTBRIDGE_DIR or the per-user default.
func WithFileBridge(dir string) Option {
	return func(o *Options) {
		o.TransportKind = config.TransportFile
		o.BridgeDir = dir
	}
}

// WithPollInterval sets how often the file transport checks for a response.
func WithPollInterval(interval time.Duration) Option {
	return func(o *Options) {
		o.PollInterval = interval
	}
}

// WithEmbeddedHost runs the in-memory demo host inside the process.
// scripts are extra Starlark files loaded after the built-in command table.
func WithEmbeddedHost(scripts ...string) Option {
	return func(o *Options) {
		o.TransportKind = config.TransportEmbedded
		o.Scripts = append(o.Scripts, scripts...)
	}
}

// WithTransport injects a custom transport, replacing the built-in ones.
func WithTransport(t Transport) Option {
	return func(o *Options) {
		o.Transport = t
	}
}
