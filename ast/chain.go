package ast

import "sort"

// ChainedVisitor composes a priority-ordered collection of named visitors
// that all run over the same document, sharing one Context. Visitors are
// handler-bundle values rather than distinct named types, so a child is
// addressed by the string name it was registered under.
type ChainedVisitor struct {
	entries []chainEntry
	seq     int
}

type chainEntry struct {
	name     string
	visitor  *Visitor
	priority int
	seq      int
}

// NewChainedVisitor creates an empty chain.
func NewChainedVisitor() *ChainedVisitor {
	return &ChainedVisitor{}
}

// Add registers a child visitor under name at the given priority.
// Children run in ascending priority order; equal priorities preserve
// insertion order.
func (c *ChainedVisitor) Add(name string, v *Visitor, priority int) {
	c.entries = append(c.entries, chainEntry{name: name, visitor: v, priority: priority, seq: c.seq})
	c.seq++
	c.sort()
}

// AddBefore inserts a new child just before the one named beforeName,
// adopting its priority and taking over its sequence number while the
// anchor and every later entry move one step back, so the new entry
// sorts immediately ahead of the anchor. Falls back to Add at priority 0
// when no child carries beforeName.
func (c *ChainedVisitor) AddBefore(beforeName, name string, v *Visitor) {
	idx := c.indexOf(beforeName)
	if idx < 0 {
		c.Add(name, v, 0)
		return
	}
	anchor := c.entries[idx]
	for i := range c.entries {
		if c.entries[i].seq >= anchor.seq {
			c.entries[i].seq++
		}
	}
	c.entries = append(c.entries, chainEntry{name: name, visitor: v, priority: anchor.priority, seq: anchor.seq})
	c.seq++
	c.sort()
}

// AddAfter inserts a new child just after the one named afterName.
func (c *ChainedVisitor) AddAfter(afterName, name string, v *Visitor) {
	idx := c.indexOf(afterName)
	if idx < 0 {
		c.Add(name, v, 0)
		return
	}
	anchor := c.entries[idx]
	for i := range c.entries {
		if c.entries[i].seq > anchor.seq {
			c.entries[i].seq++
		}
	}
	c.entries = append(c.entries, chainEntry{name: name, visitor: v, priority: anchor.priority, seq: anchor.seq + 1})
	c.seq++
	c.sort()
}

// Remove deletes the child registered under name, if present.
func (c *ChainedVisitor) Remove(name string) {
	idx := c.indexOf(name)
	if idx < 0 {
		return
	}
	c.entries = append(c.entries[:idx], c.entries[idx+1:]...)
}

// Replace swaps the visitor registered under name, keeping its priority
// and position.
func (c *ChainedVisitor) Replace(name string, v *Visitor) {
	idx := c.indexOf(name)
	if idx < 0 {
		return
	}
	c.entries[idx].visitor = v
}

func (c *ChainedVisitor) indexOf(name string) int {
	for i, e := range c.entries {
		if e.name == name {
			return i
		}
	}
	return -1
}

func (c *ChainedVisitor) sort() {
	sort.SliceStable(c.entries, func(i, j int) bool {
		if c.entries[i].priority != c.entries[j].priority {
			return c.entries[i].priority < c.entries[j].priority
		}
		return c.entries[i].seq < c.entries[j].seq
	})
}

// Apply runs every child visitor over expr in priority order, threading
// the (possibly rewritten) expression from one child to the next and
// sharing a single Context across all of them.
func (c *ChainedVisitor) Apply(ctx *Context, expr Expr) (Expr, error) {
	current := expr
	for _, e := range c.entries {
		next, err := Apply(e.visitor, ctx, current)
		if err != nil {
			return current, err
		}
		current = next
	}
	return current, nil
}
