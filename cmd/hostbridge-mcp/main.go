// hostbridge-mcp serves the host bridge as an MCP tool server over stdio.
//
// The server exposes a generic "call" tool that invokes any host function
// by name, plus one tool per DSL command (track_volume, time_select, ...).
// Logs go to stderr; stdout carries the MCP protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	hostbridge "github.com/wagiedev/host-bridge-go"
	"github.com/wagiedev/host-bridge-go/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath   string
	transport    string
	local        string
	remote       string
	dir          string
	codec        string
	logLevel     string
	timeout      time.Duration
	pollInterval time.Duration
	scripts      []string
}

func run(args []string) error {
	var f flags

	flagSet := pflag.NewFlagSet("hostbridge-mcp", pflag.ContinueOnError)
	flagSet.StringVarP(&f.configPath, "config", "c", os.Getenv(config.ConfigEnv), "YAML or TOML config file (env "+config.ConfigEnv+")")
	flagSet.StringVarP(&f.transport, "transport", "t", "", "transport: udp, file or embedded (default udp)")
	flagSet.StringVar(&f.local, "local", "", "UDP address to receive responses on (default "+config.DefaultLocalAddr+")")
	flagSet.StringVar(&f.remote, "remote", "", "UDP address of the host dispatcher (default "+config.DefaultRemoteAddr+")")
	flagSet.StringVar(&f.dir, "dir", "", "file bridge directory (env "+config.BridgeDirEnv+")")
	flagSet.StringVar(&f.codec, "codec", "", "wire codec: json or cbor (default json)")
	flagSet.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error (default info)")
	flagSet.DurationVar(&f.timeout, "timeout", 0, "bounded wait per call (default 5s)")
	flagSet.DurationVar(&f.pollInterval, "poll-interval", 0, "file bridge polling period (default 100ms)")
	flagSet.StringArrayVar(&f.scripts, "script", nil, "extra Starlark file for the embedded host (repeatable)")
	flagSet.Bool("version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}

		return err
	}

	if v, _ := flagSet.GetBool("version"); v {
		fmt.Println("hostbridge-mcp", version)

		return nil
	}

	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	if f.logLevel == "" && f.configPath != "" {
		file, err := config.Load(f.configPath)
		if err != nil {
			return err
		}

		f.logLevel = file.LogLevel
	}

	log, err := hostbridge.NewLogger(os.Stderr, f.logLevel)
	if err != nil {
		return err
	}

	opts, err := f.options(flagSet)
	if err != nil {
		return err
	}

	opts = append(opts, hostbridge.WithLogger(log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return hostbridge.WithBridge(ctx, func(b *hostbridge.Bridge) error {
		srv, err := hostbridge.NewMCPServer(b, "hostbridge", version)
		if err != nil {
			return err
		}

		resolved := b.Options()
		log.Info("Bridge ready", "transport", resolved.TransportKind, "codec", resolved.Codec)

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			return err
		}

		return nil
	}, opts...)
}

// options turns the flags that were set into bridge options. Unset flags
// leave the config file's values in place.
func (f *flags) options(flagSet *pflag.FlagSet) ([]hostbridge.Option, error) {
	var opts []hostbridge.Option

	if f.configPath != "" {
		opts = append(opts, hostbridge.WithConfigFile(f.configPath))
	}

	if flagSet.Changed("transport") {
		switch kind := hostbridge.TransportKind(f.transport); kind {
		case hostbridge.TransportUDP, hostbridge.TransportFile:
			opts = append(opts, func(o *hostbridge.Options) { o.TransportKind = kind })
		case hostbridge.TransportEmbedded:
			opts = append(opts, hostbridge.WithEmbeddedHost())
		default:
			return nil, fmt.Errorf("unknown transport %q", f.transport)
		}
	}

	if flagSet.Changed("local") {
		opts = append(opts, func(o *hostbridge.Options) { o.LocalAddr = f.local })
	}

	if flagSet.Changed("remote") {
		opts = append(opts, func(o *hostbridge.Options) { o.RemoteAddr = f.remote })
	}

	if flagSet.Changed("dir") {
		opts = append(opts, func(o *hostbridge.Options) { o.BridgeDir = f.dir })
	}

	if flagSet.Changed("codec") {
		opts = append(opts, hostbridge.WithCodec(f.codec))
	}

	if flagSet.Changed("timeout") {
		opts = append(opts, hostbridge.WithTimeout(f.timeout))
	}

	if flagSet.Changed("poll-interval") {
		opts = append(opts, hostbridge.WithPollInterval(f.pollInterval))
	}

	if len(f.scripts) > 0 {
		opts = append(opts, func(o *hostbridge.Options) { o.Scripts = append(o.Scripts, f.scripts...) })
	}

	return opts, nil
}
