// Package template implements the Template Engine of spec.md §4.3: building
// a default-populated dynamic message for a descriptor, the way the "new
// request" affordance seeds an editor buffer before the user touches
// anything. Ported from the recursive algorithm in
// original_source/stellarpc-core/src/descriptor/message/template.rs,
// generalized from prost_reflect's DynamicMessage to
// github.com/jhump/protoreflect/dynamic's dynamic.Message.
package template

import (
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/kdavison/grpctui/internal/dynamicmsg"
)

// Apply builds a new message of the given descriptor with every field
// populated by its template default, recursing into nested and repeated
// message fields. A cycle in the message graph (a message that contains
// itself, directly or transitively) is broken by stopping the recursion
// the second time a descriptor is visited on the current path — the
// innermost occurrence is left at its proto3 zero value instead of
// recursing forever, matching template.rs's visited-descriptor-name guard.
func Apply(md *desc.MessageDescriptor) *dynamicmsg.Message {
	dm := dynamic.NewMessage(md)
	populate(dm, md, map[string]bool{})
	return dynamicmsg.Wrap(dm)
}

func populate(dm *dynamic.Message, md *desc.MessageDescriptor, visited map[string]bool) {
	name := md.GetFullyQualifiedName()
	if visited[name] {
		return
	}
	visited[name] = true
	defer delete(visited, name)

	for _, fd := range md.GetFields() {
		setFieldDefault(dm, fd, visited)
	}
}

func setFieldDefault(dm *dynamic.Message, fd *desc.FieldDescriptor, visited map[string]bool) {
	switch {
	case fd.IsMap():
		// Maps default to empty; an empty Go map is indistinguishable
		// from "unset" to the dynamic message, so there is nothing to set.
		return

	case fd.IsRepeated():
		elem := defaultScalarOrMessage(fd, visited)
		if elem == nil {
			return
		}
		_ = dm.TrySetField(fd, []interface{}{elem})
		return

	default:
		val := defaultScalarOrMessage(fd, visited)
		if val == nil {
			return
		}
		_ = dm.TrySetField(fd, val)
	}
}

// defaultScalarOrMessage returns the template default for a single
// (non-repeated) occurrence of the field: a populated sub-message for
// message fields, the string "Hello" for string fields, and the proto3
// zero value left untouched (by returning nil) for everything else.
func defaultScalarOrMessage(fd *desc.FieldDescriptor, visited map[string]bool) interface{} {
	if fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_GROUP {
		return nil
	}
	if fd.GetMessageType() != nil {
		nested := dynamic.NewMessage(fd.GetMessageType())
		populate(nested, fd.GetMessageType(), visited)
		return nested
	}
	if fd.GetEnumType() != nil {
		// proto3 zero value for an enum is its first (number 0) value;
		// leaving it unset already yields that, so nothing to do.
		return nil
	}
	if fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_STRING {
		return "Hello"
	}
	// Numeric/bool/bytes fields keep their proto3 zero value.
	return nil
}
