package selection

import (
	"bytes"
	"io"
	"testing"

	"github.com/jhump/protoreflect/desc/protoparse"

	"github.com/kdavison/grpctui/internal/descriptor"
)

const testSchema = `
syntax = "proto3";
package greet;

service Alpha {
  rpc One(Empty) returns (Empty);
  rpc Two(Empty) returns (Empty);
}

service Beta {
  rpc Three(Empty) returns (Empty);
}

message Empty {}
`

func newTestPool(t *testing.T) *descriptor.Pool {
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
	return descriptor.FromFileDescriptors(fds...)
}

func TestPreselectsFirstServiceAndItsMethods(t *testing.T) {
	pool := newTestPool(t)
	sel := New(pool)

	services := sel.Services()
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %v", services)
	}

	methods := sel.Methods()
	if len(methods) == 0 {
		t.Fatal("expected the preselected service's methods to be loaded")
	}
}

func TestNextServiceWrapsAndReloadsMethods(t *testing.T) {
	pool := newTestPool(t)
	sel := New(pool)

	first := sel.Services()[0]
	sel.NextService()
	second := sel.Services()[0]
	_ = second
	if methods := sel.Methods(); len(methods) != 1 || methods[0] != "Three" {
		t.Fatalf("after advancing to greet.Beta, methods = %v, want [Three]", methods)
	}

	sel.NextService() // wraps back to the first service
	if sel.SelectedService() == nil {
		t.Fatal("expected a selected service after wrapping")
	}
	if sel.SelectedService().GetFullyQualifiedName() != first {
		t.Errorf("after wrapping, selected service = %q, want %q", sel.SelectedService().GetFullyQualifiedName(), first)
	}
}

func TestServicesFilterNarrowsList(t *testing.T) {
	pool := newTestPool(t)
	sel := New(pool)

	sel.PushCharServicesFilter('g')
	sel.PushCharServicesFilter('r')
	sel.PushCharServicesFilter('e')
	sel.PushCharServicesFilter('e')
	sel.PushCharServicesFilter('t')
	sel.PushCharServicesFilter('.')
	sel.PushCharServicesFilter('B')

	services := sel.Services()
	if len(services) != 1 || services[0] != "greet.Beta" {
		t.Fatalf("filtered services = %v, want [greet.Beta]", services)
	}

	sel.ClearServicesFilter()
	if len(sel.Services()) != 2 {
		t.Fatalf("expected filter clear to restore both services, got %v", sel.Services())
	}
}

func TestSelectedMethodRequiresBothCursors(t *testing.T) {
	pool := newTestPool(t)
	sel := New(pool)

	if sel.SelectedMethod() == nil {
		t.Fatal("expected a selected method once a service and its first method are both selected by default")
	}
}
