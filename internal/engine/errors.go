package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/demiurge/internal/state"
)

// RuleError reports a rule whose Apply returned an error during
// execution. Rules are assumed pure and total, so this indicates a
// caller defect, not a transient condition: the run aborts immediately
// and is not retried. The offending state snapshot is carried so the
// failing epoch can be reproduced.
type RuleError struct {
	Rule  string
	Epoch int
	State state.Map
	Err   error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s failed at epoch %d: %v", e.Rule, e.Epoch, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// MetricError reports a metric that failed or returned a value outside
// its contract (negative or NaN). Fatal to the run, same as RuleError.
type MetricError struct {
	Epoch int
	Err   error
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("metric failed at epoch %d: %v", e.Epoch, e.Err)
}

func (e *MetricError) Unwrap() error {
	return e.Err
}

// IsRuleError reports whether err is or wraps a RuleError.
func IsRuleError(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}

// IsMetricError reports whether err is or wraps a MetricError.
func IsMetricError(err error) bool {
	var me *MetricError
	return errors.As(err, &me)
}
