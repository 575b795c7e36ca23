// hostbridge-host runs an in-memory host application behind the bridge
// dispatcher, so the MCP server and the client library can be exercised
// without a real host.
//
// The host loads the built-in DSL function table plus any --script files
// and answers requests on a UDP socket, a file-drop directory, or both.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	hostbridge "github.com/wagiedev/host-bridge-go"
	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/host"
	"github.com/wagiedev/host-bridge-go/internal/project"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath   string
	udpAddr      string
	dir          string
	codec        string
	logLevel     string
	pollInterval time.Duration
	scripts      []string
	demo         bool
}

func run(args []string) error {
	var f flags

	flagSet := pflag.NewFlagSet("hostbridge-host", pflag.ContinueOnError)
	flagSet.StringVarP(&f.configPath, "config", "c", os.Getenv(config.ConfigEnv), "YAML or TOML config file (env "+config.ConfigEnv+")")
	flagSet.StringVar(&f.udpAddr, "udp", "", "UDP address to serve on, e.g. "+config.DefaultRemoteAddr)
	flagSet.StringVar(&f.dir, "dir", "", "file bridge directory to poll")
	flagSet.StringVar(&f.codec, "codec", "", "wire codec: json or cbor (default json)")
	flagSet.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error (default info)")
	flagSet.DurationVar(&f.pollInterval, "poll-interval", 0, "file bridge polling period (default 100ms)")
	flagSet.StringArrayVar(&f.scripts, "script", nil, "extra Starlark file defining DSL functions (repeatable)")
	flagSet.BoolVar(&f.demo, "demo", false, "start with a small demo arrangement instead of an empty project")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}

		return err
	}

	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	if err := f.merge(); err != nil {
		return err
	}

	log, err := hostbridge.NewLogger(os.Stderr, f.logLevel)
	if err != nil {
		return err
	}

	codec, err := wire.ByName(f.codec)
	if err != nil {
		return err
	}

	p := project.New()
	if f.demo {
		p = host.Demo()
	}

	h, err := host.New(log, p, f.scripts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Host starting", "udp", f.udpAddr, "dir", f.dir, "codec", codec.Name(), "tracks", len(p.Tracks))

	return serve(ctx, log, h, host.ServeOptions{
		UDPAddr:      f.udpAddr,
		Dir:          f.dir,
		PollInterval: f.pollInterval,
		Codec:        codec,
	})
}

func serve(ctx context.Context, log *slog.Logger, h *host.Host, opts host.ServeOptions) error {
	err := h.Serve(ctx, opts)

	log.Info("Host stopped")

	return err
}

// merge fills unset flags from the config file. Without either, the host
// serves UDP on the default dispatcher address.
func (f *flags) merge() error {
	if f.configPath != "" {
		file, err := config.Load(f.configPath)
		if err != nil {
			return err
		}

		f.fromFile(file)
	}

	if f.udpAddr == "" && f.dir == "" {
		f.udpAddr = config.DefaultRemoteAddr
	}

	return nil
}

func (f *flags) fromFile(file *config.File) {
	if f.codec == "" {
		f.codec = file.Codec
	}

	if f.logLevel == "" {
		f.logLevel = file.LogLevel
	}

	if f.pollInterval == 0 && file.Dir.PollInterval != "" {
		if d, err := time.ParseDuration(file.Dir.PollInterval); err == nil {
			f.pollInterval = d
		}
	}

	if f.udpAddr == "" && f.dir == "" {
		switch config.TransportKind(file.Transport) {
		case config.TransportFile:
			f.dir = file.Dir.Path
			if f.dir == "" {
				f.dir = config.DefaultBridgeDir()
			}
		case config.TransportUDP, "":
			f.udpAddr = file.UDP.Remote
		}
	}

	f.scripts = append(append([]string(nil), file.Host.Scripts...), f.scripts...)
}
