// Package rules compiles and evaluates the user-supplied boolean
// inclusion expression against live process metrics.
package rules

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/eliteGoblin/procscope/internal/domain"
)

// ExpressionError reports a rule source that failed to compile.
// Evaluation failures at match time are swallowed per record and never
// surface as errors.
type ExpressionError struct {
	Source string
	Err    error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("rule %q: %v", e.Source, e.Err)
}

func (e *ExpressionError) Unwrap() error {
	return e.Err
}

// ruleEnv declares the four variables an expression may reference:
// cpu (float percent), mem (float megabytes), pid (integer),
// name (string). Unknown identifiers fail at compile time.
func ruleEnv(r domain.ProcessRecord) map[string]any {
	return map[string]any{
		"cpu":  r.CPUPercent,
		"mem":  r.MemoryMB(),
		"pid":  int(r.PID),
		"name": r.Name,
	}
}

// Rule is a compiled inclusion expression. The zero source compiles to
// the include-all rule. A source that fails to compile still produces
// a usable Rule: it excludes every record and reports the failure via
// Err, so one malformed rule never stops the refresh pass.
type Rule struct {
	source  string
	program *vm.Program
	err     error
}

// Compile builds a Rule from a free-form expression string. Compile
// never fails hard; inspect Err for compile diagnostics.
func Compile(source string) *Rule {
	r := &Rule{source: source}
	if strings.TrimSpace(source) == "" {
		return r
	}

	program, err := expr.Compile(source,
		expr.Env(ruleEnv(domain.ProcessRecord{})),
		expr.AsBool(),
	)
	if err != nil {
		r.err = &ExpressionError{Source: source, Err: err}
		return r
	}
	r.program = program
	return r
}

// Include evaluates the rule for one record. Empty rules include
// everything; any compile or evaluation error excludes the record and
// evaluation continues for the rest of the batch.
func (r *Rule) Include(rec domain.ProcessRecord) bool {
	if r.program == nil {
		return r.err == nil
	}

	out, err := expr.Run(r.program, ruleEnv(rec))
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

// Source returns the original expression string.
func (r *Rule) Source() string {
	return r.source
}

// Err returns the compile diagnostic, or nil for a usable rule.
func (r *Rule) Err() error {
	return r.err
}

// Ensure Rule implements domain.Predicate.
var _ domain.Predicate = (*Rule)(nil)
