// Package realtime implements bidirectional audio sessions over a
// persistent WebSocket-class transport.
//
// A Session owns one transport and pumps canonical frames through a
// provider Translator: outbound frames (audio, text, function results,
// response requests, session patches) are encoded to the provider's
// wire protocol, and inbound wire messages are decoded to canonical
// events (audio deltas, text deltas, function call deltas, status,
// errors). The session state machine moves Connecting to Connected to
// Closing to Closed; a failed connect moves straight to Closed.
package realtime
