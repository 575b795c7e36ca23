// Package transport implements the bridge client's channels to the remote
// dispatcher.
//
// Two interchangeable variants satisfy config.Transport:
//   - UDPTransport sends each envelope as one datagram from a fixed local
//     endpoint to a fixed remote endpoint and reads the reply on the local one.
//   - FileTransport drops request_<id> files into a shared directory and
//     polls for the matching response_<id> file.
//
// Both block for at most the configured timeout, never retry, and report a
// malformed reply as a DecodeError distinct from a TimeoutError. Neither is
// safe for overlapping calls; Serial queues callers so that at most one call
// is outstanding per channel.
//
// Example usage:
//
//	t, err := transport.New(log, opts)
//	if err != nil {
//	    return err
//	}
//	if err := t.Start(ctx); err != nil {
//	    return err
//	}
//	defer t.Close()
//
//	resp, err := t.Call(ctx, "CountTracks", nil)
package transport
