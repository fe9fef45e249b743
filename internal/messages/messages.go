// Package messages implements the Messages Model of spec.md §4.10: the
// request/response editor buffers, the per-method cache, and the dispatch
// state machine (Idle -> InFlight -> {Completed|Errored|Cancelled} -> Idle)
// that drives exactly one RPC at a time. Ported from
// original_source/wireman/src/model/messages.rs's MessagesModel, with
// Rust's spawned tokio JoinHandle replaced by a goroutine reporting onto a
// capacity-1 result channel — the "blocking bridge" pattern described in
// spec.md §9.
package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc"

	"github.com/kdavison/grpctui/internal/config"
	"github.com/kdavison/grpctui/internal/dynamicmsg"
	"github.com/kdavison/grpctui/internal/grpcclient"
	"github.com/kdavison/grpctui/internal/headers"
	"github.com/kdavison/grpctui/internal/history"
	"github.com/kdavison/grpctui/internal/request"
	"github.com/kdavison/grpctui/internal/response"
	"github.com/kdavison/grpctui/internal/template"
	"github.com/kdavison/grpctui/internal/clipboard"
)

// State is the dispatch state machine's current phase.
type State int

const (
	Idle State = iota
	InFlight
	Completed
	Errored
	Cancelled
)

type cacheEntry struct {
	requestJSON  string
	responseJSON string
}

// Outcome is delivered on the result channel when a dispatched call
// finishes, whichever way it finishes.
type Outcome struct {
	State        State
	ResponseJSON string
	Err          error
}

// Model owns the request/response editor buffers and drives dispatch.
// Not safe for concurrent use from more than one goroutine except through
// its Results() channel, matching spec.md §5's "single UI-owning
// goroutine" rule — only the dispatch goroutine itself runs concurrently
// with the owner, and it never touches Model fields directly.
type Model struct {
	client  *grpcclient.Client
	headers *headers.Model
	history *history.Store
	cfg     *config.File

	selectedMethod *desc.MethodDescriptor
	requestJSON    string
	responseJSON   string

	cache        map[string]cacheEntry
	loadedCache  string

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	result chan Outcome
}

// New creates a Model wired to a transport client, a headers model, a
// history store and the loaded config (the source of the include paths
// YankGrpcurl needs to render a reproducible grpcurl command).
func New(client *grpcclient.Client, hm *headers.Model, hist *history.Store, cfg *config.File) *Model {
	return &Model{
		client:  client,
		headers: hm,
		history: hist,
		cfg:     cfg,
		cache:   map[string]cacheEntry{},
		result:  make(chan Outcome, 1),
	}
}

// State returns the current dispatch phase.
func (m *Model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RequestJSON returns the editor buffer for the request body.
func (m *Model) RequestJSON() string { return m.requestJSON }

// SetRequestJSON replaces the request buffer, e.g. on user edit.
func (m *Model) SetRequestJSON(text string) { m.requestJSON = text }

// ResponseJSON returns the editor buffer for the response body.
func (m *Model) ResponseJSON() string { return m.responseJSON }

// SelectedMethod returns the currently loaded method, or nil.
func (m *Model) SelectedMethod() *desc.MethodDescriptor { return m.selectedMethod }

// LoadMethod switches the active method, restoring its cached editor
// buffers (or, when the request buffer is empty, history slot 1, or a
// fresh template if that slot holds nothing) as load_method does in
// messages.rs.
func (m *Model) LoadMethod(md *desc.MethodDescriptor) {
	id := md.GetName()
	if id != m.loadedCache {
		m.changeMethod(id)
	}
	m.selectedMethod = md

	if m.requestJSON == "" {
		if rec, ok := m.history.Load(md.GetFullyQualifiedName(), 1); ok {
			m.applyHistory(rec)
		} else {
			m.ApplyTemplate()
		}
	}
}

// ClearMethod unloads the current method and clears both buffers.
func (m *Model) ClearMethod() {
	m.selectedMethod = nil
	m.loadedCache = ""
	m.requestJSON = ""
	m.responseJSON = ""
}

func (m *Model) changeMethod(id string) {
	if m.loadedCache != "" {
		m.cache[m.loadedCache] = cacheEntry{requestJSON: m.requestJSON, responseJSON: m.responseJSON}
	}
	entry := m.cache[id]
	m.loadedCache = id
	m.requestJSON = entry.requestJSON
	m.responseJSON = entry.responseJSON
}

// ApplyTemplate discards the current request buffer and reloads the
// method's default template.
func (m *Model) ApplyTemplate() {
	if m.selectedMethod == nil {
		return
	}
	tmpl := template.Apply(m.selectedMethod.GetInputType())
	if j, err := tmpl.ToJSON(); err == nil {
		m.requestJSON = j
	} else {
		m.requestJSON = "{}"
	}
}

func (m *Model) applyHistory(rec *history.Record) {
	m.headers.Clear()
	m.headers.Address = rec.Address
	if rec.Authentication != "" {
		m.headers.Auth.SetText(rec.Authentication)
	}
	for k, v := range rec.Metadata {
		m.headers.Meta = append(m.headers.Meta, headers.MetaPair{Key: k, Value: v})
	}
	m.requestJSON = rec.Message
}

// CollectRequest builds a request.Message from the current buffers: the
// parsed JSON body, expanded metadata, and the configured address.
// Mirrors MessagesModel::collect_request.
func (m *Model) CollectRequest() (*request.Message, error) {
	if m.selectedMethod == nil {
		return nil, fmt.Errorf("messages: no method selected")
	}
	dm, err := dynamicmsg.FromJSON(m.selectedMethod.GetInputType(), m.requestJSON)
	if err != nil {
		return nil, err
	}
	req := request.New(m.selectedMethod, dm)
	for k, v := range m.headers.HeadersExpanded() {
		if k != "" {
			_ = req.InsertMetadata(k, v)
		}
	}
	req.SetAddress(m.headers.Address)
	return req, nil
}

// StartRequest transitions Idle -> InFlight and dispatches the current
// request on a background goroutine, autosaving to history first if the
// store's autosave flag is set (spec.md §9's pre-dispatch autosave
// ordering). Results arrive on Results().
func (m *Model) StartRequest(ctx context.Context) error {
	m.mu.Lock()
	if m.state == InFlight {
		m.mu.Unlock()
		return fmt.Errorf("messages: a request is already in flight")
	}
	m.mu.Unlock()

	req, err := m.CollectRequest()
	if err != nil {
		return err
	}

	if m.history.Autosave() {
		m.saveHistory(1)
	}

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.state = InFlight
	m.cancel = cancel
	m.mu.Unlock()

	m.responseJSON = "Processing..."

	go m.dispatch(ctx, req)
	return nil
}

func (m *Model) dispatch(ctx context.Context, req *request.Message) {
	md := req.Method()
	var outcome Outcome

	if md.IsServerStreaming() || md.IsClientStreaming() {
		var stream response.Stream
		_, err := m.client.InvokeServerStream(ctx, md, req.Message(), req.Metadata(), func(msg *dynamicmsg.Message) error {
			stream.Append(msg)
			return nil
		})
		outcome = m.finish(ctx, streamOutcome(&stream, err))
	} else {
		resp, _, err := m.client.InvokeUnary(ctx, md, req.Message(), req.Metadata())
		outcome = m.finish(ctx, unaryOutcome(resp, err))
	}

	m.mu.Lock()
	select {
	case m.result <- outcome:
	default:
	}
	m.mu.Unlock()
}

func unaryOutcome(resp *dynamicmsg.Message, err error) Outcome {
	if err != nil {
		return Outcome{State: Errored, Err: err}
	}
	j, jerr := resp.ToJSON()
	if jerr != nil {
		return Outcome{State: Errored, Err: jerr}
	}
	return Outcome{State: Completed, ResponseJSON: prettyJSON(j)}
}

func streamOutcome(stream *response.Stream, err error) Outcome {
	if err != nil && len(stream.Messages) == 0 {
		return Outcome{State: Errored, Err: err}
	}
	parts := make([]string, 0, len(stream.Messages))
	for _, msg := range stream.Messages {
		j, jerr := msg.ToJSON()
		if jerr != nil {
			continue
		}
		parts = append(parts, j)
	}
	body, _ := json.MarshalIndent(parts, "", "  ")
	if err != nil {
		return Outcome{State: Errored, ResponseJSON: string(body), Err: err}
	}
	return Outcome{State: Completed, ResponseJSON: string(body)}
}

// finish is where ctx.Err() is consulted to distinguish a user-requested
// Cancelled from a genuine Errored outcome.
func (m *Model) finish(ctx context.Context, outcome Outcome) Outcome {
	if outcome.State == Errored && ctx.Err() != nil {
		outcome.State = Cancelled
		outcome.ResponseJSON = "Cancelled"
		outcome.Err = nil
	}
	return outcome
}

// Results returns the channel dispatch outcomes are delivered on. The
// caller's event loop should select on it and call ApplyOutcome with
// whatever it receives.
func (m *Model) Results() <-chan Outcome { return m.result }

// ApplyOutcome folds a received Outcome into the model's state and
// response buffer, returning the state machine to Idle.
func (m *Model) ApplyOutcome(o Outcome) {
	m.mu.Lock()
	m.state = Idle
	m.cancel = nil
	m.mu.Unlock()

	switch o.State {
	case Completed:
		m.responseJSON = o.ResponseJSON
	case Errored:
		m.responseJSON = o.Err.Error()
	case Cancelled:
		m.responseJSON = "Cancelled"
	}
}

// AbortRequest cancels the in-flight call, if any. Mirrors
// MessagesModel::abort_request.
func (m *Model) AbortRequest() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		m.responseJSON = "Cancelled"
	}
}

// YankGrpcurl copies the current request, rendered as an equivalent
// grpcurl invocation, to the system clipboard. Mirrors
// MessagesModel::yank_grpcurl.
func (m *Model) YankGrpcurl() error {
	if m.selectedMethod == nil {
		return fmt.Errorf("messages: no method selected")
	}
	req, err := m.CollectRequest()
	if err != nil {
		return err
	}
	cmd, err := req.AsGrpcurlCommand(m.cfg)
	if err != nil {
		return err
	}
	return clipboard.Yank(cmd)
}

func (m *Model) saveHistory(slot int) {
	if m.selectedMethod == nil {
		return
	}
	rec := history.Record{
		Message:  m.requestJSON,
		Address:  m.headers.Address,
		Metadata: map[string]string{},
	}
	if !m.headers.Auth.IsEmpty() {
		rec.Authentication = m.headers.Auth.Value()
	}
	for _, p := range m.headers.Meta {
		if p.Key != "" {
			rec.Metadata[p.Key] = p.Value
		}
	}
	m.history.Save(m.selectedMethod.GetFullyQualifiedName(), slot, rec)
}

// SaveHistory exposes saveHistory as the explicit "save to slot" user
// action (as opposed to the implicit pre-dispatch autosave).
func (m *Model) SaveHistory(slot int) { m.saveHistory(slot) }

func prettyJSON(s string) string {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return s
	}
	return string(b)
}
