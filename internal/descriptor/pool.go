// Package descriptor builds and queries the in-memory set of protobuf
// descriptors the rest of the engine operates against — the Descriptor Pool
// of spec.md §4.1. A Pool can be assembled either from .proto sources on
// disk or from the raw FileDescriptorProtos a reflection.Client resolves
// transitively from a running server.
package descriptor

import (
	"fmt"
	"sort"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/desc/protoprint"
	"google.golang.org/protobuf/types/descriptorpb"
)

// CompileError reports a failure to parse or link a .proto source file.
type CompileError struct {
	File       string
	Diagnostic string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("descriptor: %s: %s", e.File, e.Diagnostic)
}

// NotFoundError reports a missing service, method or message symbol.
type NotFoundError struct {
	Kind string // "service", "method" or "message"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("descriptor: %s not found: %s", e.Kind, e.Name)
}

// Pool holds a resolved, deduplicated set of file descriptors and answers
// queries about the services, methods and messages they declare.
type Pool struct {
	files map[string]*desc.FileDescriptor
}

// NewPool returns an empty pool, ready for repeated Merge calls — used
// when accumulating a pool service-by-service from a reflection client.
func NewPool() *Pool {
	return &Pool{files: map[string]*desc.FileDescriptor{}}
}

// FromProtoFiles compiles the named .proto files (and their transitive
// imports, located via importPaths) into a Pool. Mirrors
// DescriptorSourceFromProtoFiles in the teacher's grpcurl.go.
func FromProtoFiles(importPaths []string, filenames ...string) (*Pool, error) {
	p := protoparse.Parser{
		ImportPaths:      importPaths,
		InferImportPaths: len(importPaths) == 0,
	}
	fds, err := p.ParseFiles(filenames...)
	if err != nil {
		return nil, &CompileError{File: firstOf(filenames), Diagnostic: err.Error()}
	}
	return fromFileDescriptors(fds...), nil
}

// FromFileDescriptorProtos resolves a set of raw FileDescriptorProto values
// — as returned by a reflection client's transitive file walk — into a
// Pool. Generalizes resolveFileDescriptor/DescriptorSourceFromFileDescriptorSet
// in the teacher's grpcurl.go from the protoset case to the reflection case.
func FromFileDescriptorProtos(protos []*descriptorpb.FileDescriptorProto) (*Pool, error) {
	unresolved := make(map[string]*descriptorpb.FileDescriptorProto, len(protos))
	for _, fd := range protos {
		unresolved[fd.GetName()] = fd
	}
	resolved := make(map[string]*desc.FileDescriptor, len(protos))
	for _, fd := range protos {
		if _, err := resolveFile(unresolved, resolved, fd.GetName()); err != nil {
			return nil, err
		}
	}
	return &Pool{files: resolved}, nil
}

func resolveFile(unresolved map[string]*descriptorpb.FileDescriptorProto, resolved map[string]*desc.FileDescriptor, filename string) (*desc.FileDescriptor, error) {
	if fd, ok := resolved[filename]; ok {
		return fd, nil
	}
	fdProto, ok := unresolved[filename]
	if !ok {
		return nil, &CompileError{File: filename, Diagnostic: "no descriptor returned by server for dependency"}
	}
	deps := make([]*desc.FileDescriptor, 0, len(fdProto.GetDependency()))
	for _, dep := range fdProto.GetDependency() {
		depFd, err := resolveFile(unresolved, resolved, dep)
		if err != nil {
			return nil, err
		}
		deps = append(deps, depFd)
	}
	fd, err := desc.CreateFileDescriptor(fdProto, deps...)
	if err != nil {
		return nil, &CompileError{File: filename, Diagnostic: err.Error()}
	}
	resolved[filename] = fd
	return fd, nil
}

// FromFileDescriptors builds a Pool directly from already-linked file
// descriptors, pulling in their transitive dependencies too. Used by
// FromProtoFiles and by callers (tests, other packages) that already have
// *desc.FileDescriptor values in hand, e.g. from protoparse.Parser.ParseFiles.
func FromFileDescriptors(fds ...*desc.FileDescriptor) *Pool {
	files := make(map[string]*desc.FileDescriptor, len(fds))
	for _, fd := range fds {
		addFile(fd, files)
	}
	return &Pool{files: files}
}

func fromFileDescriptors(fds ...*desc.FileDescriptor) *Pool {
	return FromFileDescriptors(fds...)
}

func addFile(fd *desc.FileDescriptor, files map[string]*desc.FileDescriptor) {
	if _, ok := files[fd.GetName()]; ok {
		return
	}
	files[fd.GetName()] = fd
	for _, dep := range fd.GetDependencies() {
		addFile(dep, files)
	}
}

// Merge folds another pool's files into this one, skipping files already
// present. Used when a workspace mixes file-based and reflection-based
// sources across multiple servers.
func (p *Pool) Merge(other *Pool) {
	for name, fd := range other.files {
		if _, ok := p.files[name]; !ok {
			p.files[name] = fd
		}
	}
}

// Services returns every service descriptor declared across the pool's
// files, sorted by fully-qualified name.
func (p *Pool) Services() []*desc.ServiceDescriptor {
	var out []*desc.ServiceDescriptor
	for _, fd := range p.files {
		out = append(out, fd.GetServices()...)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GetFullyQualifiedName() < out[j].GetFullyQualifiedName()
	})
	return out
}

// Service looks up a service descriptor by fully-qualified name.
func (p *Pool) Service(fullName string) (*desc.ServiceDescriptor, error) {
	for _, fd := range p.files {
		if sd := fd.FindService(fullName); sd != nil {
			return sd, nil
		}
	}
	return nil, &NotFoundError{Kind: "service", Name: fullName}
}

// Methods returns the methods declared on the named service, sorted by
// fully-qualified name, matching get_methods in
// original_source/wireman-core/src/descriptor/mod.rs.
func (p *Pool) Methods(serviceFullName string) ([]*desc.MethodDescriptor, error) {
	sd, err := p.Service(serviceFullName)
	if err != nil {
		return nil, err
	}
	out := append([]*desc.MethodDescriptor(nil), sd.GetMethods()...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].GetFullyQualifiedName() < out[j].GetFullyQualifiedName()
	})
	return out, nil
}

// MethodByName looks up a single method by its "package.Service.Method"
// fully-qualified name.
func (p *Pool) MethodByName(fullName string) (*desc.MethodDescriptor, error) {
	svc, method := splitMethodName(fullName)
	sd, err := p.Service(svc)
	if err != nil {
		return nil, &NotFoundError{Kind: "method", Name: fullName}
	}
	md := sd.FindMethodByName(method)
	if md == nil {
		return nil, &NotFoundError{Kind: "method", Name: fullName}
	}
	return md, nil
}

// MessageByName looks up a message descriptor by fully-qualified name.
func (p *Pool) MessageByName(fullName string) (*desc.MessageDescriptor, error) {
	for _, fd := range p.files {
		if md := fd.FindMessage(fullName); md != nil {
			return md, nil
		}
	}
	return nil, &NotFoundError{Kind: "message", Name: fullName}
}

// Files returns every file descriptor in the pool.
func (p *Pool) Files() []*desc.FileDescriptor {
	out := make([]*desc.FileDescriptor, 0, len(p.files))
	for _, fd := range p.files {
		out = append(out, fd)
	}
	return out
}

// Text renders a descriptor back to .proto source, used by the request
// model's "view descriptor" affordance. Grounded on GetDescriptorText in
// the teacher's grpcurl.go.
func Text(d desc.Descriptor) (string, error) {
	printer := protoprint.Printer{}
	return printer.PrintProtoToString(d)
}

func splitMethodName(fullName string) (service, method string) {
	idx := -1
	for i := len(fullName) - 1; i >= 0; i-- {
		if fullName[i] == '.' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", fullName
	}
	return fullName[:idx], fullName[idx+1:]
}

func firstOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
