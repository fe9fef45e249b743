package dynamicmsg

import (
	"bytes"
	"io"
	"testing"

	"github.com/jhump/protoreflect/desc/protoparse"
)

const testSchema = `
syntax = "proto3";
package greet;

message HelloRequest {
  string name = 1;
  int64 big_number = 2;
}
`

func TestFromJSONAndToJSONRoundTrip(t *testing.T) {
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

	msg, err := FromJSON(md, `{"name":"world","big_number":"123"}`)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	j, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !bytes.Contains([]byte(j), []byte(`"name": "world"`)) {
		t.Errorf("ToJSON output missing name field: %s", j)
	}
}

func TestMarshalUnmarshalWireRoundTrip(t *testing.T) {
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

	msg, err := FromJSON(md, `{"name":"wire-test"}`)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	b, err := msg.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded, err := Unmarshal(md, b)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	j, err := decoded.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !bytes.Contains([]byte(j), []byte("wire-test")) {
		t.Errorf("decoded message missing expected field value: %s", j)
	}
}

func TestCloneIsIndependent(t *testing.T) {
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

	original, err := FromJSON(md, `{"name":"original"}`)
	if err != nil {
		t.Fatal(err)
	}
	clone := original.Clone()
	if err := clone.MergeJSON(`{"name":"changed"}`); err != nil {
		t.Fatal(err)
	}

	origJSON, _ := original.ToJSON()
	if !bytes.Contains([]byte(origJSON), []byte("original")) {
		t.Errorf("mutating the clone affected the original: %s", origJSON)
	}
}
