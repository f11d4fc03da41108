package visitors

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/Tangerg/lucenequery/ast"
)

// DateMathEvaluator rewrites date-math expressions ("now-1d/d",
// "2024-01-01||+1M/M") found in term and range bound text into their
// resolved ISO-8601 instants. It only touches candidates that look like
// date math (the literal "now", a "||" date-math separator, or a run of
// at least four leading digits forming a bare year); everything else
// passes through unevaluated. The lexer applies a narrower test to the
// identifier before a "||" (exactly "now", or at least four leading
// digits) to decide whether it introduces date math or the OR operator.
type DateMathEvaluator struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewDateMathEvaluator creates an evaluator anchored to the real wall
// clock in UTC.
func NewDateMathEvaluator() *DateMathEvaluator {
	return &DateMathEvaluator{now: func() time.Time { return time.Now().UTC() }}
}

// NewDateMathEvaluatorWithClock creates an evaluator anchored to a fixed
// or injected clock, for deterministic tests and replay.
func NewDateMathEvaluatorWithClock(now func() time.Time) *DateMathEvaluator {
	return &DateMathEvaluator{now: now}
}

// NewDateMathEvaluatorInLocation creates an evaluator that anchors "now"
// to the current wall-clock time in loc; results render with that
// location's offset.
func NewDateMathEvaluatorInLocation(loc *time.Location) *DateMathEvaluator {
	return &DateMathEvaluator{now: func() time.Time { return time.Now().In(loc) }}
}

// SetLogger installs a structured logger; evaluation decisions are
// reported at Debug only, since the rewritten node already carries the
// result.
func (e *DateMathEvaluator) SetLogger(l *slog.Logger) { e.logger = l }

// Visitor returns an ast.Visitor bundle that evaluates date math on
// TermNode text and on both bounds of a RangeNode; the min bound rounds
// down (lower bound of the implied interval) and the max bound rounds up.
func (e *DateMathEvaluator) Visitor() *ast.Visitor {
	return &ast.Visitor{
		Term: func(ctx *ast.Context, n *ast.TermNode) (ast.Expr, error) {
			if evaluated, ok := e.evaluate(n.UnescapedTerm(), true); ok {
				n.SetTerm(evaluated)
			}
			return n, nil
		},
		Range: func(ctx *ast.Context, n *ast.RangeNode) (ast.Expr, error) {
			if n.Min != "" {
				if evaluated, ok := e.evaluate(n.Min, true); ok {
					n.Min = evaluated
				}
			}
			if n.Max != "" {
				if evaluated, ok := e.evaluate(n.Max, false); ok {
					n.Max = evaluated
				}
			}
			return n, nil
		},
	}
}

// dateMathTimestampLayout always renders a numeric zone offset (e.g.
// "+00:00" for UTC) rather than the "Z" shorthand, matching the rendered
// form saved-query includes are expected to produce.
const dateMathTimestampLayout = "2006-01-02T15:04:05.000-07:00"

func (e *DateMathEvaluator) evaluate(raw string, lowerBound bool) (string, bool) {
	if !isDateMathCandidate(raw) {
		return "", false
	}
	anchorText, ops, ok := splitDateMathAnchor(raw)
	if !ok {
		return "", false
	}
	anchor, ok := e.parseAnchor(anchorText)
	if !ok {
		return "", false
	}
	result, ok := applyDateMathOps(anchor, ops, lowerBound)
	if !ok {
		return "", false
	}
	formatted := result.Format(dateMathTimestampLayout)
	if e.logger != nil {
		e.logger.Debug("evaluated date math",
			slog.String("input", raw),
			slog.String("result", formatted),
			slog.Bool("lowerBound", lowerBound))
	}
	return formatted, true
}

// isDateMathCandidate reports whether raw looks like date math rather
// than an ordinary term: the literal "now", an embedded "||" separator,
// or a leading run of at least four digits (a bare year anchor).
func isDateMathCandidate(raw string) bool {
	if strings.HasPrefix(raw, "now") {
		return true
	}
	if strings.Contains(raw, "||") {
		return true
	}
	digits := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			break
		}
		digits++
	}
	return digits >= 4
}

// splitDateMathAnchor separates the anchor ("now" or a date literal) from
// the trailing sequence of +/-/ operations. "now" is followed directly by
// math with no separator; a literal date anchor is followed by "||".
func splitDateMathAnchor(raw string) (anchor, ops string, ok bool) {
	if strings.HasPrefix(raw, "now") {
		rest := raw[len("now"):]
		rest = strings.TrimPrefix(rest, "||")
		return "now", rest, true
	}
	if idx := strings.Index(raw, "||"); idx >= 0 {
		return raw[:idx], raw[idx+2:], true
	}
	return raw, "", true
}

var dateMathLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

func (e *DateMathEvaluator) parseAnchor(anchorText string) (time.Time, bool) {
	if anchorText == "now" {
		return e.now(), true
	}
	for _, layout := range dateMathLayouts {
		if t, err := time.Parse(layout, anchorText); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// applyDateMathOps applies a left-to-right sequence of "+Nunit",
// "-Nunit", or "/unit" operations to anchor. lowerBound selects the
// rounding polarity for "/unit": truncation to the unit's start for a
// lower bound, to the unit's end for an upper bound.
func applyDateMathOps(anchor time.Time, ops string, lowerBound bool) (time.Time, bool) {
	t := anchor
	i := 0
	for i < len(ops) {
		switch ops[i] {
		case '+', '-':
			sign := 1
			if ops[i] == '-' {
				sign = -1
			}
			i++
			j := i
			for j < len(ops) && ops[j] >= '0' && ops[j] <= '9' {
				j++
			}
			if j == i || j >= len(ops) {
				return anchor, false
			}
			amount, err := cast.ToIntE(ops[i:j])
			if err != nil {
				return anchor, false
			}
			unit := ops[j]
			t = addDateMathUnit(t, sign*amount, unit)
			i = j + 1
		case '/':
			i++
			if i >= len(ops) {
				return anchor, false
			}
			t = roundDateMathUnit(t, ops[i], lowerBound)
			i++
		default:
			return anchor, false
		}
	}
	return t, true
}

func addDateMathUnit(t time.Time, amount int, unit byte) time.Time {
	switch unit {
	case 'y':
		return t.AddDate(amount, 0, 0)
	case 'M':
		return t.AddDate(0, amount, 0)
	case 'w':
		return t.AddDate(0, 0, amount*7)
	case 'd':
		return t.AddDate(0, 0, amount)
	case 'h', 'H':
		return t.Add(time.Duration(amount) * time.Hour)
	case 'm':
		return t.Add(time.Duration(amount) * time.Minute)
	case 's':
		return t.Add(time.Duration(amount) * time.Second)
	default:
		return t
	}
}

// roundDateMathUnit truncates t to the start of unit, or, for an upper
// bound, to the last instant before the start of the next unit. Week
// rounding follows the ISO week definition: weeks start on Monday.
func roundDateMathUnit(t time.Time, unit byte, lowerBound bool) time.Time {
	loc := t.Location()
	var start, next time.Time
	switch unit {
	case 'y':
		start = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, loc)
		next = start.AddDate(1, 0, 0)
	case 'M':
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 1, 0)
	case 'w':
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
		next = start.AddDate(0, 0, 7)
	case 'd':
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		next = start.AddDate(0, 0, 1)
	case 'h', 'H':
		start = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
		next = start.Add(time.Hour)
	case 'm':
		start = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		next = start.Add(time.Minute)
	case 's':
		start = t.Truncate(time.Second)
		next = start.Add(time.Second)
	default:
		return t
	}
	if lowerBound {
		return start
	}
	return next.Add(-time.Nanosecond)
}
