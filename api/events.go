// File: api/events.go
// Package api defines core event types for the TAS fast-path library.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// EventType tags the union carried by Event.
type EventType uint8

const (
	// EvListenOpen is the result of Listener.Open.
	EvListenOpen EventType = iota
	// EvListenNewConn signals an inbound connection on a listening socket.
	EvListenNewConn
	// EvListenAccept is the result of Listener.Accept.
	EvListenAccept
	// EvConnOpen is the result of Connection.Open.
	EvConnOpen
	// EvConnClosed signals a connection has fully closed.
	EvConnClosed
	// EvConnReceived signals data arrived on a connection.
	EvConnReceived
	// EvConnSendBuf signals more transmit buffer became available.
	EvConnSendBuf
	// EvConnRXClosed signals the receive half closed (peer FIN).
	EvConnRXClosed
	// EvConnTXClosed signals the transmit half has fully drained and closed.
	EvConnTXClosed
	// EvConnMoved signals a connection finished migrating to a new context.
	EvConnMoved
)

// String names the event type for logging.
func (t EventType) String() string {
	switch t {
	case EvListenOpen:
		return "listen_open"
	case EvListenNewConn:
		return "listen_newconn"
	case EvListenAccept:
		return "listen_accept"
	case EvConnOpen:
		return "conn_open"
	case EvConnClosed:
		return "conn_closed"
	case EvConnReceived:
		return "conn_received"
	case EvConnSendBuf:
		return "conn_sendbuf"
	case EvConnRXClosed:
		return "conn_rxclosed"
	case EvConnTXClosed:
		return "conn_txclosed"
	case EvConnMoved:
		return "conn_moved"
	default:
		return "unknown"
	}
}

// Event is the tagged union delivered by Context.Poll. Only the field(s)
// matching Type are meaningful; Handle is an opaque flow/listener table
// index, resolved to a *client.Connection/*client.Listener above this layer.
type Event struct {
	Type   EventType
	Status int16 // 0 on success, negative on failure (open/accept/move results)

	Handle uint32 // flow or listener table index, depending on Type

	RemotePort uint16 // EvListenNewConn
	RemoteIP   uint32 // EvListenNewConn

	RxBuf []byte // EvConnReceived: received byte range, may be delivered in two events across a wrap
}
