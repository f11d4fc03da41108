package visitors

import (
	"errors"
	"testing"

	"github.com/Tangerg/lucenequery/ast"
)

func TestFieldMap_HierarchicalResolve(t *testing.T) {
	fm := NewFieldMap().Add("a.b", "x.y")
	resolved, ok, err := fm.Resolve("a.b.c")
	if err != nil || !ok {
		t.Fatalf("Resolve error=%v ok=%v", err, ok)
	}
	if resolved != "x.y.c" {
		t.Errorf("resolved = %q, want %q", resolved, "x.y.c")
	}
}

func TestFieldMap_ExactMatchWinsOverPrefix(t *testing.T) {
	fm := NewFieldMap().Add("a.b.c", "exact").Add("a.b", "prefix")
	resolved, ok, _ := fm.Resolve("a.b.c")
	if !ok || resolved != "exact" {
		t.Fatalf("resolved = %q ok=%v, want exact match to win", resolved, ok)
	}
}

func TestFieldMap_CaseInsensitive(t *testing.T) {
	fm := NewFieldMap().Add("Status", "state")
	resolved, ok, _ := fm.Resolve("STATUS")
	if !ok || resolved != "state" {
		t.Fatalf("resolved = %q ok=%v", resolved, ok)
	}
}

func TestFieldResolver_RewritesFieldAndStashesOriginal(t *testing.T) {
	doc := mustParse(t, "status:active")
	fr := NewFieldResolver(NewFieldMap().Add("status", "state").Resolver())
	ctx := ast.NewContext()
	expr, err := ast.Apply(fr.Visitor(), ctx, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fq := expr.(*ast.QueryDocument).Query.(*ast.FieldQueryNode)
	if fq.Field() != "state" {
		t.Errorf("Field() = %q, want %q", fq.Field(), "state")
	}
	orig, ok := ctx.OriginalField(fq)
	if !ok || orig != "status" {
		t.Errorf("OriginalField = %q, ok=%v, want 'status'", orig, ok)
	}
}

func TestFieldResolver_UnresolvedFieldsRecorded(t *testing.T) {
	doc := mustParse(t, "mystery:1")
	fr := NewFieldResolver(NewFieldMap().Add("status", "state").Resolver())
	ctx := ast.NewContext()
	if _, err := ast.Apply(fr.Visitor(), ctx, doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := fr.UnresolvedFields()
	if len(got) != 1 || got[0] != "mystery" {
		t.Fatalf("UnresolvedFields() = %v, want [mystery]", got)
	}
}

func TestFieldResolver_ContextResolverTakesPrecedence(t *testing.T) {
	doc := mustParse(t, "status:active")
	fr := NewFieldResolver(NewFieldMap().Add("status", "captured").Resolver())
	ctx := ast.NewContext()
	ctx.SetContextFieldResolver(func(field string) (string, bool, error) {
		if field == "status" {
			return "contextual", true, nil
		}
		return "", false, nil
	})
	expr, err := ast.Apply(fr.Visitor(), ctx, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fq := expr.(*ast.QueryDocument).Query.(*ast.FieldQueryNode)
	if fq.Field() != "contextual" {
		t.Errorf("Field() = %q, want %q (context resolver should win)", fq.Field(), "contextual")
	}
}

func TestFieldResolver_IdempotentOnSecondPass(t *testing.T) {
	doc := mustParse(t, "status:active")
	fr := NewFieldResolver(NewFieldMap().Add("status", "state").Resolver())
	ctx := ast.NewContext()
	expr, err := ast.Apply(fr.Visitor(), ctx, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expr2, err := ast.Apply(fr.Visitor(), ctx, expr)
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	fq := expr2.(*ast.QueryDocument).Query.(*ast.FieldQueryNode)
	if fq.Field() != "state" {
		t.Errorf("second pass Field() = %q, want unchanged 'state'", fq.Field())
	}
}

func TestFieldResolver_CapturedResolverErrorBecomesValidationError(t *testing.T) {
	doc := mustParse(t, "status:active")
	boom := errors.New("boom")
	fr := NewFieldResolver(func(field string) (string, bool, error) {
		return "", false, boom
	})
	vv := NewValidationVisitor(ValidationOptions{})
	ctx := ast.NewContext()
	if _, err := ast.Apply(vv.Visitor(), ctx, doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ast.Apply(fr.Visitor(), ctx, doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vv.Result().Valid() {
		t.Errorf("expected resolver error to be recorded as a validation error")
	}
}

func TestFieldResolver_AppliesToRangeExistsMissing(t *testing.T) {
	resolver := NewFieldMap().Add("status", "state").Resolver()
	for _, input := range []string{"status:[a TO b]", "_exists_:status", "_missing_:status"} {
		doc := mustParse(t, input)
		fr := NewFieldResolver(resolver)
		ctx := ast.NewContext()
		expr, err := ast.Apply(fr.Visitor(), ctx, doc)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", input, err)
		}
		var field string
		switch n := expr.(*ast.QueryDocument).Query.(type) {
		case *ast.FieldQueryNode:
			field = n.Field()
		case *ast.ExistsNode:
			field = n.Field()
		case *ast.MissingNode:
			field = n.Field()
		}
		if field != "state" {
			t.Errorf("%s: Field() = %q, want 'state'", input, field)
		}
	}
}
