package descriptor

import (
	"bytes"
	"io"
	"testing"

	"github.com/jhump/protoreflect/desc/protoparse"
)

const testSchema = `
syntax = "proto3";
package greet;

service Greeter {
  rpc SayHello(HelloRequest) returns (HelloResponse);
  rpc SayHelloStream(HelloRequest) returns (stream HelloResponse);
}

message HelloRequest {
  string name = 1;
}

message HelloResponse {
  string reply = 1;
}
`

func parseFixture(t *testing.T) *Pool {
	t.Helper()
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
	return fromFileDescriptors(fds...)
}

func TestPoolServicesAndMethods(t *testing.T) {
	pool := parseFixture(t)

	services := pool.Services()
	if len(services) != 1 || services[0].GetFullyQualifiedName() != "greet.Greeter" {
		t.Fatalf("Services() = %v", services)
	}

	methods, err := pool.Methods("greet.Greeter")
	if err != nil {
		t.Fatalf("Methods: %v", err)
	}
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(methods))
	}
}

func TestPoolMethodByName(t *testing.T) {
	pool := parseFixture(t)
	md, err := pool.MethodByName("greet.Greeter.SayHello")
	if err != nil {
		t.Fatalf("MethodByName: %v", err)
	}
	if md.GetName() != "SayHello" {
		t.Errorf("got method %q", md.GetName())
	}
}

func TestPoolMethodByNameNotFound(t *testing.T) {
	pool := parseFixture(t)
	_, err := pool.MethodByName("greet.Greeter.DoesNotExist")
	if err == nil {
		t.Fatal("expected NotFoundError")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("expected *NotFoundError, got %T", err)
	}
}

func TestPoolMessageByName(t *testing.T) {
	pool := parseFixture(t)
	md, err := pool.MessageByName("greet.HelloRequest")
	if err != nil {
		t.Fatalf("MessageByName: %v", err)
	}
	if md.FindFieldByName("name") == nil {
		t.Error("expected field 'name' on HelloRequest")
	}
}

func TestPoolMergeDeduplicatesFiles(t *testing.T) {
	a := parseFixture(t)
	b := parseFixture(t)

	merged := NewPool()
	merged.Merge(a)
	merged.Merge(b)

	if len(merged.Files()) != 1 {
		t.Errorf("expected merge to dedupe the single file, got %d files", len(merged.Files()))
	}
}
