package headers

import "testing"

func TestTryExpandRunsCommand(t *testing.T) {
	got := TryExpand("$(echo hello)")
	if got != "hello" {
		t.Errorf("TryExpand = %q, want %q", got, "hello")
	}
}

func TestTryExpandLeavesPlainTextUntouched(t *testing.T) {
	for _, in := range []string{"plain-token", "", "$(unterminated", "no-parens)"} {
		if got := TryExpand(in); got != in {
			t.Errorf("TryExpand(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestTryExpandFallsBackOnMissingProgram(t *testing.T) {
	got := TryExpand("$(definitely-not-a-real-program-xyz)")
	if got != "$(definitely-not-a-real-program-xyz)" {
		t.Errorf("TryExpand should fall back to the literal string on failure, got %q", got)
	}
}

func TestAuthValueBearerVsBasic(t *testing.T) {
	var a Auth
	a.Bearer = "token123"
	if got := a.Value(); got != "Bearer token123" {
		t.Errorf("Value() = %q, want %q", got, "Bearer token123")
	}

	a.Selected = AuthBasic
	a.Basic = "dXNlcjpwYXNz"
	if got := a.Value(); got != "Basic dXNlcjpwYXNz" {
		t.Errorf("Value() = %q, want %q", got, "Basic dXNlcjpwYXNz")
	}

	// Switching selection must not clobber the other slot.
	a.Selected = AuthBearer
	if got := a.Value(); got != "Bearer token123" {
		t.Errorf("switching back to Bearer lost its value, got %q", got)
	}
}

func TestAuthSetTextRoundTrip(t *testing.T) {
	var a Auth
	a.SetText("Bearer abc")
	if a.Selected != AuthBearer || a.Bearer != "abc" {
		t.Errorf("SetText(Bearer) = %+v", a)
	}
	a.SetText("Basic def")
	if a.Selected != AuthBasic || a.Basic != "def" {
		t.Errorf("SetText(Basic) = %+v", a)
	}
}

func TestAuthIsEmpty(t *testing.T) {
	var a Auth
	if !a.IsEmpty() {
		t.Error("zero-value Auth should be empty")
	}
	a.Bearer = "x"
	if a.IsEmpty() {
		t.Error("Auth with a bearer token should not be empty")
	}
}

func TestModelHeadersIncludesAuthAndMeta(t *testing.T) {
	m := New("localhost:50051", "Bearer seed-token")
	m.Meta = append(m.Meta, MetaPair{Key: "x-request-id", Value: "abc"})
	m.Meta = append(m.Meta, MetaPair{Key: "", Value: "skipped because key is empty"})

	h := m.Headers()
	if h[AuthHeaderKey] != "Bearer seed-token" {
		t.Errorf("authorization header = %q", h[AuthHeaderKey])
	}
	if h["x-request-id"] != "abc" {
		t.Errorf("x-request-id header = %q", h["x-request-id"])
	}
	if len(h) != 2 {
		t.Errorf("expected 2 headers (empty-keyed pair skipped), got %d: %v", len(h), h)
	}
}

func TestModelClearResetsEverything(t *testing.T) {
	m := New("localhost:50051", "Bearer seed-token")
	m.Meta = append(m.Meta, MetaPair{Key: "k", Value: "v"})

	m.Clear()

	if m.Address != "" || !m.Auth.IsEmpty() || len(m.Meta) != 0 {
		t.Errorf("Clear() did not reset state: %+v", m)
	}
}

func TestAddRemoveMeta(t *testing.T) {
	m := New("", "")
	m.AddMeta()
	m.AddMeta()
	if len(m.Meta) != 2 {
		t.Fatalf("expected 2 meta pairs, got %d", len(m.Meta))
	}
	m.RemoveMeta(0)
	if len(m.Meta) != 1 {
		t.Fatalf("expected 1 meta pair after remove, got %d", len(m.Meta))
	}
}
