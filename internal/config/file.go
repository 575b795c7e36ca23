package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "HOSTBRIDGE_CONFIG"

// File is the on-disk configuration shared by the MCP server and the host.
//
// The file is loaded only from an explicit path (flag or HOSTBRIDGE_CONFIG);
// there is no automatic discovery. YAML and TOML are accepted, selected by
// extension.
type File struct {
	// Transport is "udp", "file" or "embedded".
	Transport string `yaml:"transport" toml:"transport"`

	// Codec is "json" or "cbor".
	Codec string `yaml:"codec" toml:"codec"`

	// Timeout is a Go duration string, e.g. "5s".
	Timeout string `yaml:"timeout" toml:"timeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" toml:"log_level"`

	UDP  UDPSection  `yaml:"udp" toml:"udp"`
	Dir  DirSection  `yaml:"file" toml:"file"`
	Host HostSection `yaml:"host" toml:"host"`
}

// UDPSection configures the datagram endpoints.
type UDPSection struct {
	// Local is the client's receive endpoint.
	Local string `yaml:"local" toml:"local"`
	// Remote is the dispatcher's receive endpoint.
	Remote string `yaml:"remote" toml:"remote"`
}

// DirSection configures the file-drop bridge.
type DirSection struct {
	Path         string `yaml:"path" toml:"path"`
	PollInterval string `yaml:"poll_interval" toml:"poll_interval"`
}

// HostSection configures the host-side dispatcher.
type HostSection struct {
	// Scripts are extra Starlark files defining DSL functions.
	Scripts []string `yaml:"scripts" toml:"scripts"`
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) config file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var f File

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q (want .yaml, .yml or .toml)", ext)
	}

	return &f, nil
}

// Apply copies the non-empty settings of f onto o.
func (f *File) Apply(o *Options) error {
	switch TransportKind(f.Transport) {
	case "":
	case TransportUDP, TransportFile, TransportEmbedded:
		o.TransportKind = TransportKind(f.Transport)
	default:
		return fmt.Errorf("unknown transport %q", f.Transport)
	}

	if f.Codec != "" {
		o.Codec = f.Codec
	}

	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}

		o.Timeout = d
	}

	if f.UDP.Local != "" {
		o.LocalAddr = f.UDP.Local
	}

	if f.UDP.Remote != "" {
		o.RemoteAddr = f.UDP.Remote
	}

	if f.Dir.Path != "" {
		o.BridgeDir = f.Dir.Path
	}

	if f.Dir.PollInterval != "" {
		d, err := time.ParseDuration(f.Dir.PollInterval)
		if err != nil {
			return fmt.Errorf("poll_interval: %w", err)
		}

		o.PollInterval = d
	}

	if len(f.Host.Scripts) > 0 {
		o.Scripts = append([]string(nil), f.Host.Scripts...)
	}

	return nil
}
