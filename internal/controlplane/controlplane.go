// Package controlplane implements spec.md §4.2/§6's bootstrap handshake:
// dialing the kernel/dataplane's Unix control socket, receiving the
// doorbell eventfd and per-core fast-path fds via SCM_RIGHTS ancillary
// data, and negotiating ring capacities for each new Context.
//
// Grounded on original_source/lib/tas/kernel.c's flextcp_kernel_connect
// (welcome message + batched fd receive) and flextcp_kernel_newctx
// (uxsock_request/response exchange). The real kernel_appif.h wire
// structs (byte-for-byte C layout, shared-memory offsets) are out of
// scope per internal/context's messages.go package note: the request/response here
// carry the same logical fields over a small fixed-size binary encoding
// of our own, since the dataplane counterpart is not implemented in this
// port.
package controlplane

import (
	"encoding/binary"
	"fmt"

	ctxpkg "github.com/tcp-acceleration-service/tas-sub001/internal/context"
)

// DefaultSocketPath is the Unix control socket the kernel/dataplane
// process listens on (KERNEL_SOCKET_PATH in the original).
const DefaultSocketPath = "/var/run/tas/control"

// maxFDBatch is the per-recvmsg fd batch size flextcp_kernel_connect uses.
const maxFDBatch = 4

// requestWireLen/responseWireLen are the encoded sizes of wireRequest and
// wireResponse (see encode/decodeResponse below): 2 and 5 little-endian
// uint32s respectively.
const (
	requestWireLen  = 2 * 4
	responseWireLen = 5 * 4
)

type wireRequest struct {
	RxqLen uint32
	TxqLen uint32
}

func (r wireRequest) encode() []byte {
	buf := make([]byte, requestWireLen)
	binary.LittleEndian.PutUint32(buf[0:4], r.RxqLen)
	binary.LittleEndian.PutUint32(buf[4:8], r.TxqLen)
	return buf
}

type wireResponse struct {
	Status    uint32
	DBId      uint32
	NumQueues uint32
	KinLen    uint32
	KoutLen   uint32
}

func decodeResponse(buf []byte) wireResponse {
	return wireResponse{
		Status:    binary.LittleEndian.Uint32(buf[0:4]),
		DBId:      binary.LittleEndian.Uint32(buf[4:8]),
		NumQueues: binary.LittleEndian.Uint32(buf[8:12]),
		KinLen:    binary.LittleEndian.Uint32(buf[12:16]),
		KoutLen:   binary.LittleEndian.Uint32(buf[16:20]),
	}
}

// Client is a connected control-plane session: the Unix socket, the
// kernel-side doorbell fd learned from the welcome message, and the
// per-core fast-path fds (unused beyond bootstrap in this port, since the
// fast path itself is simulated rather than driven over real NIC queues).
type Client struct {
	conn       fdReadWriter
	KernelEvfd int
	FlexnicFDs []int
}

// fdReadWriter is the subset of a connected AF_UNIX socket Dial needs;
// satisfied by *unixConn on linux, allowing controlplane_test.go to supply
// a fake for platform-independent testing of the wire encode/decode and
// Negotiate bookkeeping.
type fdReadWriter interface {
	ReadMsg(p []byte) (n int, fds []int, err error)
	WriteMsg(p []byte, fds []int) error
	Close() error
}

// Negotiate implements flextcp_kernel_newctx: send a uxsock_request
// carrying evfd as SCM_RIGHTS ancillary data, and decode the response into
// a context.NegotiationResponse.
func (c *Client) Negotiate(evfd int, req ctxpkg.NegotiationRequest) (ctxpkg.NegotiationResponse, error) {
	wreq := wireRequest{RxqLen: req.RxqLen, TxqLen: req.TxqLen}
	if err := c.conn.WriteMsg(wreq.encode(), []int{evfd}); err != nil {
		return ctxpkg.NegotiationResponse{}, fmt.Errorf("controlplane: negotiate send failed: %w", err)
	}

	buf := make([]byte, responseWireLen)
	if err := readFull(c.conn, buf); err != nil {
		return ctxpkg.NegotiationResponse{}, fmt.Errorf("controlplane: negotiate recv failed: %w", err)
	}

	resp := decodeResponse(buf)
	if resp.Status != 0 {
		return ctxpkg.NegotiationResponse{}, fmt.Errorf("controlplane: newctx request failed, status=%d", resp.Status)
	}

	return ctxpkg.NegotiationResponse{
		KinLen:    resp.KinLen,
		KoutLen:   resp.KoutLen,
		DBId:      resp.DBId,
		NumQueues: resp.NumQueues,
		RxqLen:    req.RxqLen,
		TxqLen:    req.TxqLen,
	}, nil
}

// Close releases the underlying socket.
func (c *Client) Close() error { return c.conn.Close() }

func readFull(r fdReadWriter, buf []byte) error {
	n, _, err := r.ReadMsg(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short read: got %d want %d", n, len(buf))
	}
	return nil
}
