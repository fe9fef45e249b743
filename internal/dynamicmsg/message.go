// Package dynamicmsg implements the Dynamic Message & JSON Bridge of
// spec.md §4.2: construction of protobuf messages purely from a
// descriptor, with JSON and binary-wire conversions, and no generated Go
// types anywhere in the path. Grounded on the teacher's use of
// github.com/jhump/protoreflect/dynamic and github.com/golang/protobuf/jsonpb
// throughout grpcurl.go (fullyConvertToDynamic, the invokeXxx family's use
// of dynamic.Message as both request and response buffer).
package dynamicmsg

import (
	"fmt"

	"github.com/golang/protobuf/jsonpb"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
)

// DeserializeError reports a failure to parse JSON or wire bytes into a
// message of a known descriptor.
type DeserializeError struct {
	MessageType string
	Err         error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("dynamicmsg: deserialize %s: %v", e.MessageType, e.Err)
}

func (e *DeserializeError) Unwrap() error { return e.Err }

// SerializeError reports a failure to render a message to JSON or wire
// bytes.
type SerializeError struct {
	MessageType string
	Err         error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("dynamicmsg: serialize %s: %v", e.MessageType, e.Err)
}

func (e *SerializeError) Unwrap() error { return e.Err }

// Message wraps a *dynamic.Message, the same value type the teacher's
// invokeXxx functions pass to grpcdynamic.Stub as both request and response
// buffer.
type Message struct {
	msg *dynamic.Message
}

// New allocates a zero-valued message for the given descriptor.
func New(md *desc.MessageDescriptor) *Message {
	return &Message{msg: dynamic.NewMessage(md)}
}

// Wrap adopts an existing *dynamic.Message, e.g. one handed back by
// grpcdynamic.Stub.InvokeRpc.
func Wrap(m *dynamic.Message) *Message {
	return &Message{msg: m}
}

// Raw exposes the underlying dynamic.Message for handoff to
// grpcdynamic.Stub / the codec.
func (m *Message) Raw() *dynamic.Message { return m.msg }

// Descriptor returns the message's descriptor.
func (m *Message) Descriptor() *desc.MessageDescriptor { return m.msg.GetMessageDescriptor() }

// Clone returns a deep copy, used by the Template Engine and by the
// Messages Model when seeding a new request from a cached one.
func (m *Message) Clone() *Message {
	return &Message{msg: m.msg.Copy()}
}

// jsonMarshaler controls the bridge's JSON rendering. EmitDefaults mirrors
// spec.md's skip_default_fields = false (zero-valued fields are rendered,
// not omitted); OrigName keeps proto field names instead of camelCase.
var jsonMarshaler = &jsonpb.Marshaler{
	EmitDefaults: true,
	OrigName:     true,
	Indent:       "  ",
}

var jsonUnmarshaler = &jsonpb.Unmarshaler{
	AllowUnknownFields: false,
}

// ToJSON renders the message as indented JSON text.
//
// Known library constraint (see DESIGN.md "jsonpb 64-bit integers"):
// jsonpb.Marshaler always stringifies int64/uint64/sint64/fixed64/sfixed64
// fields per the proto3 canonical JSON mapping. spec.md's
// stringify_64_bit_integers = false cannot be honored with this library;
// values still round-trip correctly through FromJSON, which accepts both
// the string and number spellings.
func (m *Message) ToJSON() (string, error) {
	s, err := jsonMarshaler.MarshalToString(m.msg)
	if err != nil {
		return "", &SerializeError{MessageType: m.msg.GetMessageDescriptor().GetFullyQualifiedName(), Err: err}
	}
	return s, nil
}

// FromJSON parses JSON text into a message of the given descriptor.
func FromJSON(md *desc.MessageDescriptor, jsonText string) (*Message, error) {
	dm := dynamic.NewMessage(md)
	if err := jsonUnmarshaler.Unmarshal(newStringReader(jsonText), dm); err != nil {
		return nil, &DeserializeError{MessageType: md.GetFullyQualifiedName(), Err: err}
	}
	return &Message{msg: dm}, nil
}

// MergeJSON applies JSON text onto an already-constructed message in
// place, used when the request editor's buffer is only a partial edit
// (e.g. one field changed) layered on top of a template default.
func (m *Message) MergeJSON(jsonText string) error {
	if err := jsonUnmarshaler.Unmarshal(newStringReader(jsonText), m.msg); err != nil {
		return &DeserializeError{MessageType: m.msg.GetMessageDescriptor().GetFullyQualifiedName(), Err: err}
	}
	return nil
}

// Marshal encodes the message to protobuf wire bytes.
func (m *Message) Marshal() ([]byte, error) {
	b, err := m.msg.Marshal()
	if err != nil {
		return nil, &SerializeError{MessageType: m.msg.GetMessageDescriptor().GetFullyQualifiedName(), Err: err}
	}
	return b, nil
}

// Unmarshal decodes protobuf wire bytes into a message of the given
// descriptor.
func Unmarshal(md *desc.MessageDescriptor, data []byte) (*Message, error) {
	dm := dynamic.NewMessage(md)
	if err := dm.Unmarshal(data); err != nil {
		return nil, &DeserializeError{MessageType: md.GetFullyQualifiedName(), Err: err}
	}
	return &Message{msg: dm}, nil
}
