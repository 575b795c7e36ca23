package hostbridge

import (
	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

// Transport carries one envelope to the host and waits for its response.
// Implement this to provide custom transports for testing or alternative
// channels. Custom transports are injected via WithTransport.
type Transport = config.Transport

// TransportKind selects one of the built-in transports.
type TransportKind = config.TransportKind

// Built-in transports.
const (
	TransportUDP      = config.TransportUDP
	TransportFile     = config.TransportFile
	TransportEmbedded = config.TransportEmbedded
)

// Response is a decoded response envelope.
type Response = wire.Response
