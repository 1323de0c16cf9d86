// Package connection abstracts venue links behind a small interface: a
// state observer, byte-oriented send, channel subscriptions, and callbacks
// for inbound packets, state changes, and errors.
//
// The core never blocks inside this package's hot paths; all venue I/O,
// authentication, and timeout handling lives behind the Conn interface.
// WSConn is the WebSocket implementation; Pool owns a bounded set of
// connections and hands out the first connected match per protocol.
package connection
