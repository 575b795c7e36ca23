// Package wire defines the request/response envelope exchanged between the
// bridge client and the remote dispatcher, and the codecs that serialize it.
//
// Wire format (JSON codec):
//
//	request:  {"id": "01J...", "call": "GetTrackName", "args": ["MediaTrack@1"]}
//	success:  {"id": "01J...", "ok": true, "ret": "Bass Guitar"}
//	failure:  {"id": "01J...", "ok": false, "error": "Unknown function: Frob"}
//
// The envelope contract is independent of the transport carrying it. Two
// codecs are provided: JSON (the default, readable from the host's scripting
// runtime) and CBOR. Both preserve the distinction between integers and
// floats across a round trip.
package wire
