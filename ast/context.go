package ast

import "github.com/google/uuid"

// Well-known Context keys for the untyped store, used by the built-in
// visitors (FieldResolver, IncludeVisitor, ValidationVisitor) to
// interoperate without the ast package importing them directly.
const (
	KeyValidationResult  = "lucenequery.validationResult"
	KeyValidationOptions = "lucenequery.validationOptions"
)

// FieldResolverFunc maps an input field name to an output field name. It
// returns ok=false when the name has no mapping, and a non-nil error when
// resolution failed outright.
type FieldResolverFunc func(field string) (resolved string, ok bool, err error)

// IncludeResolverFunc resolves an include name to the saved query text it
// refers to.
type IncludeResolverFunc func(name string) (text string, ok bool, err error)

// SkipIncludeFunc reports whether a named include should be left
// unexpanded.
type SkipIncludeFunc func(name string) bool

// Context travels with a single visitor traversal. It is not safe for
// concurrent use by multiple goroutines over the same traversal: the
// concurrency model is single-threaded cooperative, and only resolver
// callbacks may suspend.
type Context struct {
	values        map[string]any
	includeStack  []string
	originalField map[Expr]string

	contextFieldResolver  FieldResolverFunc
	capturedFieldResolver FieldResolverFunc
	includeResolver       IncludeResolverFunc
	skipInclude           SkipIncludeFunc

	correlationID uuid.UUID
}

// NewContext creates an empty traversal context, stamped with a fresh
// correlation ID so diagnostics from chained visitors can be tied back
// to the same run.
func NewContext() *Context {
	return &Context{
		values:        make(map[string]any),
		originalField: make(map[Expr]string),
		correlationID: uuid.New(),
	}
}

// CorrelationID identifies this traversal run.
func (c *Context) CorrelationID() uuid.UUID { return c.correlationID }

// SetValue stores an arbitrary value under key, visible to every visitor
// that runs later in the same traversal.
func (c *Context) SetValue(key string, value any) {
	c.values[key] = value
}

// GetValue retrieves a previously stored value.
func (c *Context) GetValue(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// SetContextFieldResolver installs the per-call resolver, consulted
// before the resolver captured at visitor construction time.
func (c *Context) SetContextFieldResolver(fn FieldResolverFunc) { c.contextFieldResolver = fn }

// ContextFieldResolver returns the per-call resolver, if any.
func (c *Context) ContextFieldResolver() (FieldResolverFunc, bool) {
	return c.contextFieldResolver, c.contextFieldResolver != nil
}

// SetCapturedFieldResolver stores a resolver in the context's
// captured-resolver slot. The built-in FieldResolver does not read this
// slot; its fallback is the resolver passed to NewFieldResolver.
func (c *Context) SetCapturedFieldResolver(fn FieldResolverFunc) { c.capturedFieldResolver = fn }

// CapturedFieldResolver returns the captured resolver, if any.
func (c *Context) CapturedFieldResolver() (FieldResolverFunc, bool) {
	return c.capturedFieldResolver, c.capturedFieldResolver != nil
}

// SetIncludeResolver installs the resolver used to look up include text.
func (c *Context) SetIncludeResolver(fn IncludeResolverFunc) { c.includeResolver = fn }

// IncludeResolver returns the installed include resolver, if any.
func (c *Context) IncludeResolver() (IncludeResolverFunc, bool) {
	return c.includeResolver, c.includeResolver != nil
}

// SetSkipInclude installs the "should skip include" predicate.
func (c *Context) SetSkipInclude(fn SkipIncludeFunc) { c.skipInclude = fn }

// ShouldSkipInclude reports whether name should be left unexpanded. With
// no predicate installed, nothing is skipped.
func (c *Context) ShouldSkipInclude(name string) bool {
	if c.skipInclude == nil {
		return false
	}
	return c.skipInclude(name)
}

// PushInclude records name as currently being expanded, for cycle
// detection and the max-depth-50 cap.
func (c *Context) PushInclude(name string) {
	c.includeStack = append(c.includeStack, name)
}

// PopInclude removes the most recently pushed include name.
func (c *Context) PopInclude() {
	if len(c.includeStack) == 0 {
		return
	}
	c.includeStack = c.includeStack[:len(c.includeStack)-1]
}

// IncludeDepth reports how many includes are currently being expanded.
func (c *Context) IncludeDepth() int { return len(c.includeStack) }

// HasInclude reports whether name is already on the include stack
// (a circular include).
func (c *Context) HasInclude(name string) bool {
	for _, n := range c.includeStack {
		if n == name {
			return true
		}
	}
	return false
}

// StashOriginalField records the pre-resolution field name for node,
// keyed by node identity rather than stored on the node itself, avoiding
// a cyclic back-reference from node to its own history.
func (c *Context) StashOriginalField(node Expr, original string) {
	c.originalField[node] = original
}

// OriginalField retrieves a previously stashed pre-resolution field name.
func (c *Context) OriginalField(node Expr) (string, bool) {
	v, ok := c.originalField[node]
	return v, ok
}
