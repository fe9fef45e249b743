// Package headers implements the Headers Model of spec.md §4.9: the target
// address, a Bearer/Basic authorization value, and an ordered list of
// metadata key/value pairs, plus shell-expanded variants of both. Ported
// from original_source/wireman/src/model/headers.rs, headers/auth.rs and
// headers/meta.rs — the TUI-facing cursor/tab fields in those files are
// out of scope (the UI is an external collaborator); what's kept is the
// data and the `$(...)` shell expansion behavior.
package headers

import (
	"os/exec"
	"strings"
	"unicode/utf8"
)

// AuthKind selects which of the two authorization value slots is active,
// mirroring AuthSelection in auth.rs.
type AuthKind int

const (
	AuthBearer AuthKind = iota
	AuthBasic
)

// AuthHeaderKey is the metadata key the authorization value is sent under.
const AuthHeaderKey = "authorization"

// Auth holds both possible authorization values; only the Selected one is
// ever rendered, but both are retained so switching kinds doesn't lose
// the other's text — exactly auth.rs's `bearer`/`basic` pair.
type Auth struct {
	Bearer   string
	Basic    string
	Selected AuthKind
}

// Value returns the literal "Bearer <token>" / "Basic <token>" string, or
// "" if the selected slot is empty.
func (a *Auth) Value() string { return a.value(false) }

// ValueExpanded returns Value with `$(...)` shell expansion applied to the
// raw token first.
func (a *Auth) ValueExpanded() string { return a.value(true) }

func (a *Auth) value(expand bool) string {
	var prefix, raw string
	switch a.Selected {
	case AuthBasic:
		prefix, raw = "Basic ", a.Basic
	default:
		prefix, raw = "Bearer ", a.Bearer
	}
	if expand {
		raw = TryExpand(raw)
	}
	if raw == "" {
		return ""
	}
	return prefix + raw
}

// IsEmpty reports whether the currently selected slot has no text.
func (a *Auth) IsEmpty() bool {
	if a.Selected == AuthBasic {
		return a.Basic == ""
	}
	return a.Bearer == ""
}

// SetText parses a full "Bearer x" / "Basic x" string back into the
// matching slot, selecting it. Mirrors AuthHeader::set_text.
func (a *Auth) SetText(value string) {
	switch {
	case strings.HasPrefix(value, "Bearer "):
		a.Bearer = strings.TrimPrefix(value, "Bearer ")
		a.Selected = AuthBearer
	case strings.HasPrefix(value, "Basic "):
		a.Basic = strings.TrimPrefix(value, "Basic ")
		a.Selected = AuthBasic
	}
}

// Clear resets both slots and the selection.
func (a *Auth) Clear() {
	a.Bearer = ""
	a.Basic = ""
	a.Selected = AuthBearer
}

// MetaPair is one ordered metadata key/value entry.
type MetaPair struct {
	Key   string
	Value string
}

// Model is the full Headers Model: address, authorization and ordered
// metadata.
type Model struct {
	Address string
	Auth    Auth
	Meta    []MetaPair
}

// New creates a Model pre-filled with server defaults (spec.md §6's
// `server.default_address` / `server.default_auth_header`).
func New(defaultAddress, defaultAuthHeader string) *Model {
	m := &Model{Address: defaultAddress}
	m.Auth.SetText(defaultAuthHeader)
	return m
}

// AddMeta appends an empty key/value pair, mirroring MetaHeaders::add.
func (m *Model) AddMeta() {
	m.Meta = append(m.Meta, MetaPair{})
}

// RemoveMeta deletes the pair at index, mirroring MetaHeaders::remove.
func (m *Model) RemoveMeta(index int) {
	if index < 0 || index >= len(m.Meta) {
		return
	}
	m.Meta = append(m.Meta[:index], m.Meta[index+1:]...)
}

// Clear resets address, auth and metadata to empty, mirroring the
// top-level HeadersModel::clear used when applying history.
func (m *Model) Clear() {
	m.Address = ""
	m.Auth.Clear()
	m.Meta = nil
}

// Headers returns the raw (non-expanded) outgoing header map: the
// authorization header if set, plus every non-empty-keyed metadata pair.
// Mirrors HeadersModel::headers.
func (m *Model) Headers() map[string]string {
	out := map[string]string{}
	if !m.Auth.IsEmpty() {
		out[AuthHeaderKey] = m.Auth.Value()
	}
	for _, p := range m.Meta {
		if p.Key != "" {
			out[p.Key] = p.Value
		}
	}
	return out
}

// HeadersExpanded is Headers with `$(...)` shell expansion applied to
// every key and value. Mirrors HeadersModel::headers_expanded.
func (m *Model) HeadersExpanded() map[string]string {
	out := map[string]string{}
	if !m.Auth.IsEmpty() {
		out[AuthHeaderKey] = m.Auth.ValueExpanded()
	}
	for _, p := range m.Meta {
		if p.Key != "" {
			out[TryExpand(p.Key)] = TryExpand(p.Value)
		}
	}
	return out
}

// TryExpand runs raw through a subshell command when it has the shape
// "$(command args...)", returning the command's trimmed stdout; otherwise
// it returns raw unchanged. Mirrors try_expand/execute_command in
// headers.rs exactly, including its silent fallback to the literal string
// on any failure (missing program, non-zero exit, invalid UTF-8 output).
func TryExpand(raw string) string {
	if strings.HasPrefix(raw, "$(") && strings.HasSuffix(raw, ")") {
		command := raw[2 : len(raw)-1]
		if out, ok := executeCommand(command); ok {
			return out
		}
	}
	return raw
}

func executeCommand(command string) (string, bool) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", false
	}
	cmd := exec.Command(parts[0], parts[1:]...)
	out, err := cmd.Output()
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	s := strings.TrimSuffix(string(out), "\n")
	return s, true
}
