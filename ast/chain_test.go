package ast

import "testing"

func recordingVisitor(log *[]string, name string) *Visitor {
	return &Visitor{
		Term: func(ctx *Context, n *TermNode) (Expr, error) {
			*log = append(*log, name)
			return n, nil
		},
	}
}

func TestChainedVisitor_RunsInPriorityOrder(t *testing.T) {
	var log []string
	c := NewChainedVisitor()
	c.Add("second", recordingVisitor(&log, "second"), 20)
	c.Add("first", recordingVisitor(&log, "first"), 10)
	c.Add("third", recordingVisitor(&log, "third"), 30)

	doc := &QueryDocument{Query: NewSyntheticTermNode(0, "x")}
	ctx := NewContext()
	if _, err := c.Apply(ctx, doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first", "second", "third"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %s, want %s", i, log[i], want[i])
		}
	}
}

func TestChainedVisitor_EqualPriorityPreservesInsertionOrder(t *testing.T) {
	var log []string
	c := NewChainedVisitor()
	c.Add("a", recordingVisitor(&log, "a"), 5)
	c.Add("b", recordingVisitor(&log, "b"), 5)
	c.Add("c", recordingVisitor(&log, "c"), 5)

	doc := &QueryDocument{Query: NewSyntheticTermNode(0, "x")}
	if _, err := c.Apply(NewContext(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %s, want %s", i, log[i], want[i])
		}
	}
}

func TestChainedVisitor_AddBeforeAndAfter(t *testing.T) {
	var log []string
	c := NewChainedVisitor()
	c.Add("middle", recordingVisitor(&log, "middle"), 10)
	c.AddBefore("middle", "before", recordingVisitor(&log, "before"))
	c.AddAfter("middle", "after", recordingVisitor(&log, "after"))

	doc := &QueryDocument{Query: NewSyntheticTermNode(0, "x")}
	if _, err := c.Apply(NewContext(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"before", "middle", "after"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %s, want %s", i, log[i], want[i])
		}
	}
}

func TestChainedVisitor_RemoveAndReplace(t *testing.T) {
	var log []string
	c := NewChainedVisitor()
	c.Add("a", recordingVisitor(&log, "a"), 10)
	c.Add("b", recordingVisitor(&log, "b"), 20)
	c.Remove("a")
	c.Replace("b", recordingVisitor(&log, "replaced"))

	doc := &QueryDocument{Query: NewSyntheticTermNode(0, "x")}
	if _, err := c.Apply(NewContext(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(log) != 1 || log[0] != "replaced" {
		t.Fatalf("log = %v, want [replaced]", log)
	}
}

func TestChainedVisitor_SharedContextVisibleAcrossChildren(t *testing.T) {
	c := NewChainedVisitor()
	c.Add("writer", &Visitor{
		Term: func(ctx *Context, n *TermNode) (Expr, error) {
			ctx.SetValue("seen", true)
			return n, nil
		},
	}, 10)
	var sawIt bool
	c.Add("reader", &Visitor{
		Term: func(ctx *Context, n *TermNode) (Expr, error) {
			v, ok := ctx.GetValue("seen")
			sawIt = ok && v == true
			return n, nil
		},
	}, 20)

	doc := &QueryDocument{Query: NewSyntheticTermNode(0, "x")}
	ctx := NewContext()
	if _, err := c.Apply(ctx, doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawIt {
		t.Errorf("expected the second visitor to see the value set by the first")
	}
}
