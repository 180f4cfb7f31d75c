// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the result of one stage.
type Outcome int

const (
	Skipped Outcome = iota
	Succeeded
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

type (
	// StageResult records how a stage ended.
	StageResult struct {
		Name     string
		Outcome  Outcome
		Duration time.Duration
		Err      error
	}

	// Report is the per-stage account of one run, in stage order.
	Report struct {
		Results []StageResult
	}
)

// Succeeded reports whether every stage succeeded.
func (r *Report) Succeeded() bool {
	for _, res := range r.Results {
		if res.Outcome != Succeeded {
			return false
		}
	}
	return true
}

// Failed returns the failed stage, if any.
func (r *Report) Failed() (StageResult, bool) {
	for _, res := range r.Results {
		if res.Outcome == Failed {
			return res, true
		}
	}
	return StageResult{}, false
}

// Count returns how many stages ended with o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// String renders one line per stage.
func (r *Report) String() string {
	var sb strings.Builder
	for _, res := range r.Results {
		fmt.Fprintf(&sb, "%-22s %-9s %s\n", res.Name, res.Outcome, res.Duration.Round(time.Millisecond))
	}
	return sb.String()
}
