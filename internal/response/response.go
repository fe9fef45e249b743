// Package response models what comes back from a dispatched call: a single
// reply for unary/client-streaming RPCs, or an accumulating Stream for
// server-streaming/bidi RPCs, each paired with the headers/trailers and
// final status the Transport Layer produced. Grounded on
// InvocationEventHandler's OnReceiveHeaders/OnReceiveResponse/
// OnReceiveTrailers split in the teacher's grpcurl.go, reshaped from an
// event-callback interface into the plain accumulated-value types this
// engine's blocking bridge (internal/grpcclient) returns.
package response

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"

	"github.com/kdavison/grpctui/internal/dynamicmsg"
)

// Message is a single completed unary (or client-streaming) response.
type Message struct {
	Body     *dynamicmsg.Message
	Headers  metadata.MD
	Trailers metadata.MD
	Code     codes.Code
	Status   string
}

// Stream accumulates every message a server-streaming (or bidi) call
// delivered, in arrival order, plus the terminal status once the stream
// closes.
type Stream struct {
	Headers  metadata.MD
	Messages []*dynamicmsg.Message
	Trailers metadata.MD
	Code     codes.Code
	Status   string
	done     bool
}

// Append records one more message as it arrives; called from the
// dispatch goroutine as the Transport Layer's StreamHandler.
func (s *Stream) Append(msg *dynamicmsg.Message) {
	s.Messages = append(s.Messages, msg)
}

// Finish marks the stream closed with its terminal status.
func (s *Stream) Finish(code codes.Code, status string, trailers metadata.MD) {
	s.Code = code
	s.Status = status
	s.Trailers = trailers
	s.done = true
}

// Done reports whether Finish has been called.
func (s *Stream) Done() bool { return s.done }
