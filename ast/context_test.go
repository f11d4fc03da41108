package ast

import "testing"

func TestContext_SetGetValue(t *testing.T) {
	ctx := NewContext()
	if _, ok := ctx.GetValue("missing"); ok {
		t.Errorf("expected missing key to report ok=false")
	}
	ctx.SetValue("k", 42)
	v, ok := ctx.GetValue("k")
	if !ok || v.(int) != 42 {
		t.Errorf("GetValue(k) = %v, %v", v, ok)
	}
}

func TestContext_IncludeStackAndCycleDetection(t *testing.T) {
	ctx := NewContext()
	if ctx.HasInclude("a") {
		t.Fatalf("empty stack should not report a cycle")
	}
	ctx.PushInclude("a")
	ctx.PushInclude("b")
	if ctx.IncludeDepth() != 2 {
		t.Errorf("IncludeDepth() = %d, want 2", ctx.IncludeDepth())
	}
	if !ctx.HasInclude("a") {
		t.Errorf("expected 'a' to be detected on the stack")
	}
	ctx.PopInclude()
	if ctx.HasInclude("b") {
		t.Errorf("expected 'b' to be popped off the stack")
	}
	if !ctx.HasInclude("a") {
		t.Errorf("expected 'a' to remain on the stack")
	}
}

func TestContext_CorrelationIDsDifferPerTraversal(t *testing.T) {
	a := NewContext()
	b := NewContext()
	if a.CorrelationID() == b.CorrelationID() {
		t.Errorf("expected distinct correlation IDs per context")
	}
}

func TestContext_ContextFieldResolverInstalled(t *testing.T) {
	ctx := NewContext()
	if _, ok := ctx.ContextFieldResolver(); ok {
		t.Errorf("expected no context resolver installed initially")
	}
	ctx.SetContextFieldResolver(func(f string) (string, bool, error) { return f, true, nil })
	if _, ok := ctx.ContextFieldResolver(); !ok {
		t.Errorf("expected context resolver to be installed")
	}
}

func TestContext_StashAndRetrieveOriginalField(t *testing.T) {
	ctx := NewContext()
	node := NewSyntheticTermNode(0, "x")
	if _, ok := ctx.OriginalField(node); ok {
		t.Errorf("expected no original field stashed initially")
	}
	ctx.StashOriginalField(node, "status")
	got, ok := ctx.OriginalField(node)
	if !ok || got != "status" {
		t.Errorf("OriginalField = %q, %v, want 'status', true", got, ok)
	}
}

func TestContext_SkipIncludeDefaultsToFalse(t *testing.T) {
	ctx := NewContext()
	if ctx.ShouldSkipInclude("anything") {
		t.Errorf("expected no-op predicate to never skip")
	}
}
