// Package diag is the Diagnostics handle threaded through every pipeline
// stage (spec §9 "Global state": replace the source's process-wide error
// channel with an explicit handle). It also carries the taxonomy-typed
// errors of spec §7, following the same wrap/Error/Unwrap shape as the
// teacher's internal/tqerrors.
package diag

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Class is the error taxonomy of spec.md §7.
type Class int

const (
	ClassParse Class = iota
	ClassSemantic
	ClassBudget
	ClassUnreachable
)

func (c Class) String() string {
	switch c {
	case ClassParse:
		return "parse"
	case ClassSemantic:
		return "semantic"
	case ClassBudget:
		return "budget"
	case ClassUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Location is a source position, carried on every warning and fatal error
// (spec §7: "reported with file and line").
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" && l.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// stageError is the concrete error type behind every diag constructor. It
// mirrors tqerrors.interpreterError's wrap/Error/Unwrap shape, with a Class
// and Location instead of a player-facing message.
type stageError struct {
	class Class
	msg   string
	loc   Location
	wrap  error
}

func (e *stageError) Error() string {
	if e.loc.String() != "" {
		return fmt.Sprintf("[%s] %s: %s", e.class, e.loc, e.msg)
	}
	return fmt.Sprintf("[%s] %s", e.class, e.msg)
}

func (e *stageError) Unwrap() error { return e.wrap }

// ErrClass returns the taxonomy class of err, or (ClassSemantic, false) if err
// was not produced by this package.
func ErrClass(err error) (Class, bool) {
	se, ok := err.(*stageError)
	if !ok {
		return ClassSemantic, false
	}
	return se.class, true
}

func newErr(class Class, loc Location, wrap error, format string, a ...interface{}) error {
	return &stageError{class: class, msg: fmt.Sprintf(format, a...), loc: loc, wrap: wrap}
}

// Parse reports a structural/parse error (spec §7: fatal, aborts the
// pipeline).
func Parse(loc Location, format string, a ...interface{}) error {
	return newErr(ClassParse, loc, nil, format, a...)
}

// Semantic reports a semantic error (disjunction in effect, negated function,
// missing requirement flag, etc). Fatal unless the caller specifically
// degrades it to a warning (spec §7: mixed landmark orderings do this).
func Semantic(loc Location, format string, a ...interface{}) error {
	return newErr(ClassSemantic, loc, nil, format, a...)
}

// WrapSemantic wraps an existing error as a semantic failure, preserving it
// via Unwrap.
func WrapSemantic(wrap error, loc Location, format string, a ...interface{}) error {
	return newErr(ClassSemantic, loc, wrap, format, a...)
}

// Budget reports a budget-exhaustion condition (spec §7: not fatal; analysis
// returns whatever it proved, flagged).
func Budget(format string, a ...interface{}) error {
	return newErr(ClassBudget, Location{}, nil, format, a...)
}

// Unreachable reports an unreachability condition (spec §7: not fatal; sets
// goal_is_unreachable downstream).
func Unreachable(format string, a ...interface{}) error {
	return newErr(ClassUnreachable, Location{}, nil, format, a...)
}

// Severity of a Warning.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
)

// Warning is a single user-visible diagnostic with one source location
// (spec §7: "Warnings carry a user-visible severity and a single source
// location").
type Warning struct {
	Severity Severity
	Message  string
	Loc      Location
}

// Diagnostics is threaded through every call in the pipeline instead of a
// process-wide error/warn/info channel (spec §9). It accumulates warnings
// and backs them with a structured logger (zerolog; see SPEC_FULL §1 for why
// this departs from the teacher's bare `log` usage) so a CLI driver can
// stream diagnostics live while a library caller can still inspect the
// accumulated Warnings slice afterward.
type Diagnostics struct {
	RunID    string
	Warnings []Warning
	log      zerolog.Logger
}

// New creates a Diagnostics handle with a fresh run id, logging through
// logger with that id attached as the run_id field.
func New(logger zerolog.Logger) *Diagnostics {
	id := uuid.NewString()
	return &Diagnostics{RunID: id, log: logger.With().Str("run_id", id).Logger()}
}

// Warn records a warning and emits it at warn level.
func (d *Diagnostics) Warn(loc Location, format string, a ...interface{}) {
	w := Warning{Severity: SeverityWarn, Message: fmt.Sprintf(format, a...), Loc: loc}
	d.Warnings = append(d.Warnings, w)
	d.log.Warn().Str("run_id", d.RunID).Str("loc", loc.String()).Msg(w.Message)
}

// Info records an informational diagnostic (does not affect exit status,
// same as Warn).
func (d *Diagnostics) Info(loc Location, format string, a ...interface{}) {
	w := Warning{Severity: SeverityInfo, Message: fmt.Sprintf(format, a...), Loc: loc}
	d.Warnings = append(d.Warnings, w)
	d.log.Info().Str("run_id", d.RunID).Str("loc", loc.String()).Msg(w.Message)
}

// Stage logs a pipeline-stage transition (spec §2 "strictly acyclic" stage
// order) at debug level, useful for tracing which stage produced a given
// warning.
func (d *Diagnostics) Stage(name string) {
	d.log.Debug().Str("run_id", d.RunID).Msg("entering stage " + name)
}
