// Package hostbridge connects a Go process to a host scripting runtime over
// a synchronous request/response bridge and layers a small command language
// on top of it.
//
// A Bridge sends one envelope per call ({id, func, args}) and blocks until
// the correlated response ({id, ok, ret} or {id, ok: false, error}) arrives
// or the bounded wait expires. Host objects never cross the bridge; they
// travel as opaque handle tokens such as "MediaTrack@3".
//
// # Basic Usage
//
// Use WithBridge for automatic lifecycle management:
//
//	err := hostbridge.WithBridge(ctx, func(b *hostbridge.Bridge) error {
//	    n, err := b.Call(ctx, "CountTracks")
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println("tracks:", n)
//
//	    res := b.Commands().TrackVolume(ctx, "bass", "-3dB")
//	    fmt.Println(res.Message)
//
//	    return nil
//	},
//	    hostbridge.WithLogger(slog.Default()),
//	    hostbridge.WithUDP("127.0.0.1:9001", "127.0.0.1:9000"),
//	)
//
// # Transports
//
// Three transports are built in:
//   - udp: one datagram per envelope between two fixed endpoints
//   - file: paired request/response files in a shared directory
//   - embedded: an in-memory host inside the calling process
//
// Custom transports can be injected with WithTransport.
//
// # Errors
//
// Every failure carries a Stage (transport, dispatch, invocation,
// resolution, validation). Use StageOf, errors.Is with the sentinel errors,
// or errors.As with the typed errors to tell them apart:
//
//	if _, err := b.Call(ctx, "Frobnicate"); err != nil {
//	    var unknown *hostbridge.UnknownFunctionError
//	    if errors.As(err, &unknown) {
//	        fmt.Println("not exported by the host:", unknown.Function)
//	    }
//	}
//
// # MCP
//
// NewMCPServer exposes a Bridge as an MCP tool server: one generic "call"
// tool plus one tool per DSL command.
package hostbridge
