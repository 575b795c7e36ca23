package host

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/host-bridge-go/internal/project"
	"github.com/wagiedev/host-bridge-go/internal/remote"
	"github.com/wagiedev/host-bridge-go/internal/script"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

// Host is an in-memory host application behind a dispatcher.
type Host struct {
	log *slog.Logger

	Project    *project.Project
	Registry   *remote.Registry
	Runtime    *script.Runtime
	Dispatcher *remote.Dispatcher
}

// New wires p's native API and the DSL table. The embedded DSL script is
// loaded first; scripts are extra Starlark files whose functions override
// it.
func New(log *slog.Logger, p *project.Project, scripts ...string) (*Host, error) {
	sources := []script.Source{script.Default()}

	for _, path := range scripts {
		src, err := script.ReadSource(path)
		if err != nil {
			return nil, err
		}

		sources = append(sources, src)
	}

	reg := remote.NewRegistry(log, nil)
	if err := project.Register(reg, project.NewBindings(log, p)); err != nil {
		return nil, fmt.Errorf("register native API: %w", err)
	}

	rt, err := script.Load(log, reg, reg.Names(), sources...)
	if err != nil {
		return nil, err
	}

	log.Debug("Host ready", "native_functions", len(reg.Names()), "dsl_functions", len(rt.Names()))

	return &Host{
		log:        log.With("component", "host"),
		Project:    p,
		Registry:   reg,
		Runtime:    rt,
		Dispatcher: remote.NewDispatcher(log, reg, rt),
	}, nil
}

// ServeOptions selects the serve loops. An empty UDPAddr or Dir disables
// that loop.
type ServeOptions struct {
	UDPAddr      string
	Dir          string
	PollInterval time.Duration
	Codec        wire.Codec
}

// Serve runs the selected serve loops until ctx is done or one fails.
// Both loops share the dispatcher, which handles one request at a time.
func (h *Host) Serve(ctx context.Context, opts ServeOptions) error {
	if opts.UDPAddr == "" && opts.Dir == "" {
		return fmt.Errorf("no serve loop selected")
	}

	codec := opts.Codec
	if codec == nil {
		codec = wire.JSON{}
	}

	g, ctx := errgroup.WithContext(ctx)

	if opts.UDPAddr != "" {
		srv := remote.NewUDPServer(h.log, h.Dispatcher, codec, opts.UDPAddr)
		if err := srv.Listen(); err != nil {
			return err
		}

		g.Go(func() error {
			defer srv.Close()

			return srv.Serve(ctx)
		})
	}

	if opts.Dir != "" {
		srv := remote.NewFileServer(h.log, h.Dispatcher, codec, opts.Dir, opts.PollInterval)

		g.Go(func() error {
			return srv.Serve(ctx)
		})
	}

	return g.Wait()
}

// Loopback returns an in-process transport to the host.
func (h *Host) Loopback(codec wire.Codec) *remote.Loopback {
	return remote.NewLoopback(h.Dispatcher, codec)
}

// Demo returns a small arrangement used by the embedded transport and the
// host command's --demo flag.
func Demo() *project.Project {
	p := project.New()

	for _, name := range []string{"Drums", "Bass Guitar", "Keys", "Lead Vocal", ""} {
		p.AddTrack(name)
	}

	bar := p.BarSeconds()

	p.AddItem(p.Tracks[0], 0, 16*bar, false)
	p.AddItem(p.Tracks[1], 0, 8*bar, true)
	p.AddItem(p.Tracks[2], 8*bar, 8*bar, true)

	p.AddMarker("Intro", 0, 0, false)
	p.AddMarker("Verse", 4*bar, 12*bar, true)
	p.AddMarker("Chorus", 12*bar, 0, false)

	return p
}
