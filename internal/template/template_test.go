package template

import (
	"bytes"
	"io"
	"testing"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
)

// parseTestSchema compiles an in-memory .proto source into file
// descriptors, the way other_examples' grpcext conn_test.go builds fixture
// descriptors via a custom protoparse.FileAccessor instead of touching disk.
func parseTestSchema(t *testing.T, src string) []*desc.FileDescriptor {
	t.Helper()
	parser := protoparse.Parser{
		InferImportPaths: false,
		Accessor: protoparse.FileAccessor(func(filename string) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewBufferString(src)), nil
		}),
	}
	fds, err := parser.ParseFiles("test.proto")
	if err != nil {
		t.Fatalf("parse test schema: %v", err)
	}
	return fds
}

const simpleSchema = `
syntax = "proto3";
package tmpl;

message Simple {
  string name = 1;
  int32 count = 2;
  bool flag = 3;
}
`

func TestApplySimpleMessage(t *testing.T) {
	fds := parseTestSchema(t, simpleSchema)
	md := fds[0].FindMessage("tmpl.Simple")
	if md == nil {
		t.Fatal("message tmpl.Simple not found")
	}

	msg := Apply(md)

	name, err := msg.Raw().TryGetFieldByName("name")
	if err != nil {
		t.Fatalf("get name: %v", err)
	}
	if name != "Hello" {
		t.Errorf("name = %q, want %q", name, "Hello")
	}

	count, err := msg.Raw().TryGetFieldByName("count")
	if err != nil {
		t.Fatalf("get count: %v", err)
	}
	if count != int32(0) {
		t.Errorf("count = %v, want 0 (proto3 zero value)", count)
	}

	flag, err := msg.Raw().TryGetFieldByName("flag")
	if err != nil {
		t.Fatalf("get flag: %v", err)
	}
	if flag != false {
		t.Errorf("flag = %v, want false", flag)
	}
}

const nestedAndRepeatedSchema = `
syntax = "proto3";
package tmpl;

message Inner {
  string label = 1;
}

message Outer {
  Inner single = 1;
  repeated Inner many = 2;
  repeated string tags = 3;
}
`

func TestApplyNestedAndRepeated(t *testing.T) {
	fds := parseTestSchema(t, nestedAndRepeatedSchema)
	md := fds[0].FindMessage("tmpl.Outer")
	if md == nil {
		t.Fatal("message tmpl.Outer not found")
	}

	msg := Apply(md)

	single, err := msg.Raw().TryGetFieldByName("single")
	if err != nil {
		t.Fatalf("get single: %v", err)
	}
	if single == nil {
		t.Fatal("single should be populated, not left nil")
	}

	many, err := msg.Raw().TryGetFieldByName("many")
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	manySlice, ok := many.([]interface{})
	if !ok || len(manySlice) != 1 {
		t.Fatalf("many = %#v, want a single-element repeated list", many)
	}

	tags, err := msg.Raw().TryGetFieldByName("tags")
	if err != nil {
		t.Fatalf("get tags: %v", err)
	}
	tagsSlice, ok := tags.([]interface{})
	if !ok || len(tagsSlice) != 1 || tagsSlice[0] != "Hello" {
		t.Fatalf("tags = %#v, want [\"Hello\"]", tags)
	}
}

const cyclicSchema = `
syntax = "proto3";
package tmpl;

message Node {
  string name = 1;
  Node child = 2;
}
`

func TestApplyBreaksCycles(t *testing.T) {
	fds := parseTestSchema(t, cyclicSchema)
	md := fds[0].FindMessage("tmpl.Node")
	if md == nil {
		t.Fatal("message tmpl.Node not found")
	}

	// Apply must return rather than recursing forever.
	msg := Apply(md)

	child, err := msg.Raw().TryGetFieldByName("child")
	if err != nil {
		t.Fatalf("get child: %v", err)
	}
	if child == nil {
		t.Fatal("the child field should be set, to an empty Node")
	}

	// The child is the second occurrence of Node on this path, so it is left
	// at its zero value: its own child field (the grandchild) stays unset.
	childMsg := child.(interface {
		TryGetFieldByName(string) (interface{}, error)
		HasFieldName(string) bool
	})
	grandchild, err := childMsg.TryGetFieldByName("child")
	if err != nil {
		t.Fatalf("get grandchild: %v", err)
	}
	if childMsg.HasFieldName("child") {
		t.Fatalf("grandchild should be unset (cycle break), got %#v", grandchild)
	}
}
