package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
)

const testSchema = `
syntax = "proto3";
package greet;

message HelloRequest {
  string name = 1;
}
`

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	parser := protoparse.Parser{
		InferImportPaths: false,
		Accessor: protoparse.FileAccessor(func(filename string) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewBufferString(testSchema)), nil
		}),
	}
	fds, err := parser.ParseFiles("greet.proto")
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	md := fds[0].FindMessage("greet.HelloRequest")

	msg := dynamic.NewMessage(md)
	if err := msg.TrySetField(md.FindFieldByName("name"), "codec-test"); err != nil {
		t.Fatal(err)
	}

	var c DynamicCodec
	b, err := c.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded := dynamic.NewMessage(md)
	if err := c.Unmarshal(b, decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got, _ := decoded.TryGetFieldByName("name"); got != "codec-test" {
		t.Errorf("decoded name = %v, want codec-test", got)
	}
}

func TestMarshalRejectsNonDynamicMessage(t *testing.T) {
	var c DynamicCodec
	_, err := c.Marshal("not a dynamic message")
	if err == nil {
		t.Fatal("expected an EncodeError for a non-*dynamic.Message value")
	}
	if _, ok := err.(*EncodeError); !ok {
		t.Errorf("expected *EncodeError, got %T", err)
	}
}

func TestUnmarshalRejectsNonDynamicMessage(t *testing.T) {
	var c DynamicCodec
	var dst string
	err := c.Unmarshal([]byte{}, &dst)
	if err == nil {
		t.Fatal("expected a DecodeError for a non-*dynamic.Message target")
	}
	if _, ok := err.(*DecodeError); !ok {
		t.Errorf("expected *DecodeError, got %T", err)
	}
}

func TestNameMatchesRegisteredConstant(t *testing.T) {
	var c DynamicCodec
	if c.Name() != Name {
		t.Errorf("Name() = %q, want %q", c.Name(), Name)
	}
}
