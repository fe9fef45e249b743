// Package selection implements the Selection Model of spec.md §4.11: a
// flat two-list model of service names and the methods of the currently
// selected service, each with an independent cursor and prefix filter.
// Ported directly from original_source/wireman/src/model/selection.rs —
// per DESIGN.md's Open Question resolution, the flat two-list shape (not
// a nested list-with-children tree) is the canonical model.
package selection

import (
	"strings"

	"github.com/jhump/protoreflect/desc"

	"github.com/kdavison/grpctui/internal/descriptor"
)

// Model holds the full set of services, the methods of the currently
// selected service, and cursor/filter state for both lists.
type Model struct {
	pool *descriptor.Pool

	services []string
	methods  []string

	serviceIdx int // -1 means "no selection"
	methodIdx  int

	servicesFilter string
	methodsFilter  string
}

// New builds a Model from a descriptor pool, preselecting the first
// service (loading its methods and preselecting the first of them) the
// way SelectionModel::new does.
func New(pool *descriptor.Pool) *Model {
	m := &Model{pool: pool, serviceIdx: -1, methodIdx: -1}
	for _, sd := range pool.Services() {
		m.services = append(m.services, sd.GetFullyQualifiedName())
	}
	if len(m.services) > 0 {
		m.serviceIdx = 0
		m.loadMethods()
		if len(m.methods) > 0 {
			m.methodIdx = 0
		}
	}
	return m
}

func (m *Model) loadMethods() {
	m.methods = nil
	name, ok := m.serviceAt(m.serviceIdx)
	if !ok {
		return
	}
	mds, err := m.pool.Methods(name)
	if err != nil {
		return
	}
	for _, md := range mds {
		m.methods = append(m.methods, md.GetName())
	}
}

func (m *Model) serviceAt(i int) (string, bool) {
	list := m.Services()
	if i < 0 || i >= len(list) {
		return "", false
	}
	return list[i], true
}

func (m *Model) methodAt(i int) (string, bool) {
	list := m.Methods()
	if i < 0 || i >= len(list) {
		return "", false
	}
	return list[i], true
}

// Services returns the service list, filtered by prefix if a filter is
// set.
func (m *Model) Services() []string {
	return filterByPrefix(m.services, m.servicesFilter)
}

// Methods returns the method list of the currently selected service,
// filtered by prefix if a filter is set.
func (m *Model) Methods() []string {
	return filterByPrefix(m.methods, m.methodsFilter)
}

func filterByPrefix(list []string, prefix string) []string {
	if prefix == "" {
		return list
	}
	var out []string
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	return out
}

// NextService advances the service cursor, wrapping around, then reloads
// the method list and clears the method filter.
func (m *Model) NextService() {
	n := len(m.Services())
	if n == 0 {
		return
	}
	if m.serviceIdx < 0 || m.serviceIdx >= n-1 {
		m.serviceIdx = 0
	} else {
		m.serviceIdx++
	}
	m.loadMethods()
	m.methodsFilter = ""
}

// PreviousService retreats the service cursor, wrapping around, then
// reloads the method list.
func (m *Model) PreviousService() {
	n := len(m.Services())
	if n == 0 {
		return
	}
	if m.serviceIdx <= 0 {
		m.serviceIdx = n - 1
	} else {
		m.serviceIdx--
	}
	m.loadMethods()
}

// NextMethod advances the method cursor, wrapping around.
func (m *Model) NextMethod() {
	n := len(m.Methods())
	if n == 0 {
		return
	}
	if m.methodIdx < 0 || m.methodIdx >= n-1 {
		m.methodIdx = 0
	} else {
		m.methodIdx++
	}
}

// PreviousMethod retreats the method cursor, wrapping around.
func (m *Model) PreviousMethod() {
	n := len(m.Methods())
	if n == 0 {
		return
	}
	if m.methodIdx <= 0 {
		m.methodIdx = n - 1
	} else {
		m.methodIdx--
	}
}

// SelectedService returns the service descriptor at the current cursor,
// or nil if nothing is selected.
func (m *Model) SelectedService() *desc.ServiceDescriptor {
	name, ok := m.serviceAt(m.serviceIdx)
	if !ok {
		return nil
	}
	sd, err := m.pool.Service(name)
	if err != nil {
		return nil
	}
	return sd
}

// SelectedMethod returns the method descriptor at the current cursor
// pair, or nil if either cursor has no selection.
func (m *Model) SelectedMethod() *desc.MethodDescriptor {
	svcName, ok := m.serviceAt(m.serviceIdx)
	if !ok {
		return nil
	}
	methodName, ok := m.methodAt(m.methodIdx)
	if !ok {
		return nil
	}
	sd, err := m.pool.Service(svcName)
	if err != nil {
		return nil
	}
	return sd.FindMethodByName(methodName)
}

// ClearMethodsSelection drops the method cursor, e.g. when switching
// services in a UI that wants no method preselected.
func (m *Model) ClearMethodsSelection() { m.methodIdx = -1 }

func (m *Model) setServicesFilter(filter string) {
	m.servicesFilter = filter
	if len(m.Services()) == 0 {
		m.serviceIdx = -1
	} else {
		m.serviceIdx = 0
	}
	m.loadMethods()
}

func (m *Model) setMethodsFilter(filter string) {
	m.methodsFilter = filter
	if len(m.Methods()) == 0 {
		m.methodIdx = -1
	} else {
		m.methodIdx = 0
	}
}

// ClearServicesFilter removes the services prefix filter.
func (m *Model) ClearServicesFilter() { m.setServicesFilter("") }

// ClearMethodsFilter removes the methods prefix filter.
func (m *Model) ClearMethodsFilter() { m.setMethodsFilter("") }

// PushCharServicesFilter appends one rune to the services filter.
func (m *Model) PushCharServicesFilter(ch rune) {
	m.setServicesFilter(m.servicesFilter + string(ch))
}

// PushCharMethodsFilter appends one rune to the methods filter.
func (m *Model) PushCharMethodsFilter(ch rune) {
	m.setMethodsFilter(m.methodsFilter + string(ch))
}

// RemoveCharServicesFilter drops the last rune of the services filter.
func (m *Model) RemoveCharServicesFilter() {
	if m.servicesFilter == "" {
		return
	}
	r := []rune(m.servicesFilter)
	m.setServicesFilter(string(r[:len(r)-1]))
}

// RemoveCharMethodsFilter drops the last rune of the methods filter.
func (m *Model) RemoveCharMethodsFilter() {
	if m.methodsFilter == "" {
		return
	}
	r := []rune(m.methodsFilter)
	m.setMethodsFilter(string(r[:len(r)-1]))
}
