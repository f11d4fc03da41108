package visitors

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/Tangerg/lucenequery/ast"
)

// ValidationOptions configures a ValidationVisitor run. Any list left nil
// or empty is treated as "no restriction" for that dimension; a non-empty
// Allowed* list is an allow-list (everything else fails), while a
// Restricted* list is a deny-list layered on top of it.
type ValidationOptions struct {
	AllowedFields         []string
	RestrictedFields      []string
	AllowedOperations     []string
	RestrictedOperations  []string
	AllowLeadingWildcards bool
	AllowedMaxNodeDepth   int // 0 means unlimited
	ShouldThrow           bool
}

// ValidationResult accumulates what a ValidationVisitor observed: every
// field referenced anywhere in the tree, a count of each operation kind,
// the deepest group nesting encountered, and any restriction violations.
// ID stamps the run so a caller correlating several chained visitors'
// output (parse diagnostics, resolver misses, validation errors) against
// one logical request can do so without threading its own identifier.
type ValidationResult struct {
	ID               uuid.UUID
	ReferencedFields map[string]struct{}
	Operations       map[string]int
	MaxNodeDepth     int
	Errors           []string
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{
		ID:               uuid.New(),
		ReferencedFields: make(map[string]struct{}),
		Operations:       make(map[string]int),
	}
}

func (r *ValidationResult) addError(message string) {
	r.Errors = append(r.Errors, message)
}

// Fields returns the referenced field names, sorted.
func (r *ValidationResult) Fields() []string {
	names := lo.Keys(r.ReferencedFields)
	sort.Strings(names)
	return names
}

// Valid reports whether the traversal recorded no restriction
// violations or resolver errors.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Summary renders a one-line digest suitable for a log line: field and
// operation counts, max depth, and the number of outstanding errors.
func (r *ValidationResult) Summary() string {
	return fmt.Sprintf("fields=%d operations=%d maxDepth=%d errors=%d",
		len(r.ReferencedFields), r.totalOperations(), r.MaxNodeDepth, len(r.Errors))
}

func (r *ValidationResult) totalOperations() int {
	total := 0
	for _, n := range r.Operations {
		total += n
	}
	return total
}

// ValidationError reports the restriction violations collected by a
// ValidationVisitor run with ShouldThrow set.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "query validation failed: " + strings.Join(e.Errors, "; ")
}

// ValidationVisitor walks the tree collecting referenced fields, a count
// of each operation kind, and the maximum group nesting depth, then
// checks the collected facts against ValidationOptions. It never rejects
// a node mid-traversal except for an immediate leading-wildcard
// violation; every other restriction is a post-pass check run once the
// whole tree has been seen, so the full set of referenced fields and
// operations is always available to report together.
type ValidationVisitor struct {
	options ValidationOptions
	result  *ValidationResult
	depth   int
}

// NewValidationVisitor creates a ValidationVisitor configured by opts.
func NewValidationVisitor(opts ValidationOptions) *ValidationVisitor {
	return &ValidationVisitor{options: opts, result: newValidationResult()}
}

// Result returns the accumulated result. Valid only after the traversal
// completes.
func (vv *ValidationVisitor) Result() *ValidationResult { return vv.result }

// Visitor returns an ast.Visitor bundle driving validation. It installs
// its ValidationResult and ValidationOptions onto the Context under the
// well-known keys so other visitors in the same chain (notably
// FieldResolver) can report resolver failures back through it.
func (vv *ValidationVisitor) Visitor() *ast.Visitor {
	v := &ast.Visitor{}

	v.Document = func(ctx *ast.Context, n *ast.QueryDocument) (ast.Expr, error) {
		ctx.SetValue(ast.KeyValidationResult, vv.result)
		ctx.SetValue(ast.KeyValidationOptions, vv.options)
		expr, err := ast.DefaultDocument(v, ctx, n)
		if err != nil {
			return expr, err
		}
		vv.finalize()
		if vv.options.ShouldThrow && !vv.result.Valid() {
			return expr, &ValidationError{Errors: vv.result.Errors}
		}
		return expr, nil
	}
	v.Group = func(ctx *ast.Context, n *ast.GroupNode) (ast.Expr, error) {
		vv.depth++
		if vv.depth > vv.result.MaxNodeDepth {
			vv.result.MaxNodeDepth = vv.depth
		}
		if n.Field != "" {
			vv.recordField(n.Field)
		}
		expr, err := ast.DefaultGroup(v, ctx, n)
		vv.depth--
		return expr, err
	}
	v.Boolean = func(ctx *ast.Context, n *ast.BooleanQueryNode) (ast.Expr, error) {
		return ast.DefaultBoolean(v, ctx, n)
	}
	v.Not = func(ctx *ast.Context, n *ast.NotNode) (ast.Expr, error) {
		vv.recordOperation("not")
		return ast.DefaultNot(v, ctx, n)
	}
	v.FieldQuery = func(ctx *ast.Context, n *ast.FieldQueryNode) (ast.Expr, error) {
		vv.recordOperation("field")
		vv.recordField(n.Field())
		return ast.DefaultFieldQuery(v, ctx, n)
	}
	v.Term = func(ctx *ast.Context, n *ast.TermNode) (ast.Expr, error) {
		vv.recordOperation("term")
		if n.HasLeadingWildcard() && !vv.options.AllowLeadingWildcards {
			vv.result.addError("leading wildcard not allowed: " + n.Term())
		}
		return n, nil
	}
	v.Phrase = func(ctx *ast.Context, n *ast.PhraseNode) (ast.Expr, error) {
		vv.recordOperation("phrase")
		return n, nil
	}
	v.Regex = func(ctx *ast.Context, n *ast.RegexNode) (ast.Expr, error) {
		vv.recordOperation("regex")
		return n, nil
	}
	v.Range = func(ctx *ast.Context, n *ast.RangeNode) (ast.Expr, error) {
		vv.recordOperation("range")
		if n.HasField() {
			vv.recordField(n.Field())
		}
		return n, nil
	}
	v.MultiTerm = func(ctx *ast.Context, n *ast.MultiTermNode) (ast.Expr, error) {
		vv.recordOperation("multiterm")
		return ast.DefaultMultiTerm(v, ctx, n)
	}
	v.Exists = func(ctx *ast.Context, n *ast.ExistsNode) (ast.Expr, error) {
		vv.recordOperation("exists")
		vv.recordField(n.Field())
		return n, nil
	}
	v.Missing = func(ctx *ast.Context, n *ast.MissingNode) (ast.Expr, error) {
		vv.recordOperation("missing")
		vv.recordField(n.Field())
		return n, nil
	}
	v.MatchAll = func(ctx *ast.Context, n *ast.MatchAllNode) (ast.Expr, error) {
		vv.recordOperation("matchall")
		return n, nil
	}
	return v
}

func (vv *ValidationVisitor) recordField(field string) {
	if field == "" {
		return
	}
	vv.result.ReferencedFields[field] = struct{}{}
}

func (vv *ValidationVisitor) recordOperation(kind string) {
	vv.result.Operations[kind]++
}

// finalize runs the post-pass restriction checks once the full tree has
// been seen. The five checks are independent of one another and run as
// concurrent errgroup tasks; a mutex guards the shared error slice since
// addError is not otherwise safe for concurrent callers.
func (vv *ValidationVisitor) finalize() {
	opts := vv.options
	var mu sync.Mutex
	addError := func(message string) {
		mu.Lock()
		defer mu.Unlock()
		vv.result.addError(message)
	}

	var g errgroup.Group

	g.Go(func() error {
		if len(opts.AllowedFields) == 0 {
			return nil
		}
		for field := range vv.result.ReferencedFields {
			if !lo.ContainsBy(opts.AllowedFields, func(allowed string) bool {
				return strings.EqualFold(allowed, field)
			}) {
				addError("field not allowed: " + field)
			}
		}
		return nil
	})
	g.Go(func() error {
		if len(opts.RestrictedFields) == 0 {
			return nil
		}
		for field := range vv.result.ReferencedFields {
			if lo.ContainsBy(opts.RestrictedFields, func(restricted string) bool {
				return strings.EqualFold(restricted, field)
			}) {
				addError("field is restricted: " + field)
			}
		}
		return nil
	})
	g.Go(func() error {
		if len(opts.AllowedOperations) == 0 {
			return nil
		}
		for op := range vv.result.Operations {
			if !lo.ContainsBy(opts.AllowedOperations, func(allowed string) bool {
				return strings.EqualFold(allowed, op)
			}) {
				addError("operation not allowed: " + op)
			}
		}
		return nil
	})
	g.Go(func() error {
		if len(opts.RestrictedOperations) == 0 {
			return nil
		}
		for op := range vv.result.Operations {
			if lo.ContainsBy(opts.RestrictedOperations, func(restricted string) bool {
				return strings.EqualFold(restricted, op)
			}) {
				addError("operation is restricted: " + op)
			}
		}
		return nil
	})
	g.Go(func() error {
		if opts.AllowedMaxNodeDepth > 0 && vv.result.MaxNodeDepth > opts.AllowedMaxNodeDepth {
			addError(fmt.Sprintf("max node depth %d exceeds limit %d", vv.result.MaxNodeDepth, opts.AllowedMaxNodeDepth))
		}
		return nil
	})

	_ = g.Wait()
}
