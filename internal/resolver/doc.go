// Package resolver turns catalog entries into concrete payloads.
//
// Resolution walks an entry's parameters in declaration order. Static values
// are copied unchanged and every dynamic producer is invoked exactly once per
// call; nothing is cached between calls. A failing producer aborts the whole
// resolution with an error matching ErrProducerFailed and no payload.
package resolver
