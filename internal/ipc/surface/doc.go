// Package surface implements the rendering-context side of the message bridge.
//
// The host reaches it through four entry points: HandleMessage for in-band
// messages and HandleBegin, HandleChunk and HandleEnd for chunked transfers.
// Protocol errors and malformed payloads are logged and dropped; they never
// reach listeners of other channels. Posts back to the host go through a
// Poster and are bounded by the maximum post size instead of being chunked.
package surface
