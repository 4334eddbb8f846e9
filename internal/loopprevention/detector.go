// Package loopprevention detects when a task has stopped making forward
// progress. Detect is a pure function of a TaskContext and the current
// time — it never holds its own state, so "counters reset on task clear"
// is automatic (a reset is just asking about a fresh TaskContext) and
// stagnation timers are trivially testable with a fake clock, per the
// rate-limiter redesign note that also applies here.
package loopprevention

import (
	"fmt"
	"time"

	"agentcore.dev/core/internal/model"
)

// Config holds the configurable thresholds (§4.8, §6 env vars).
type Config struct {
	MaxTotalActions      int
	MaxDuplicateActions  int
	MaxValidationActions int
	StagnationWindow     time.Duration // no new evidence within this window...
	StagnationOccurrences int          // ...repeated this many times counts as stuck
	MaxActionGap         time.Duration // no new actions at all within this window
	RepeatedPatternLen   int           // action-triple length
	RepeatedPatternCount int           // times it must repeat consecutively
}

// DefaultConfig matches the spec's §4.8/§6 defaults.
func DefaultConfig() Config {
	return Config{
		MaxTotalActions:       40,
		MaxDuplicateActions:   3,
		MaxValidationActions:  5,
		StagnationWindow:      2 * time.Minute,
		StagnationOccurrences: 2,
		MaxActionGap:          5 * time.Minute,
		RepeatedPatternLen:    3,
		RepeatedPatternCount:  3,
	}
}

// Result is the loop-prevention verdict.
type Result struct {
	Looped bool
	Reason string
}

// Detect evaluates every trigger in §4.8 against ctx as of now and returns
// the first one that fires. Checks are ordered cheapest-and-most-specific
// first so the reported Reason is the most actionable one available.
func Detect(ctx model.TaskContext, now time.Time, cfg Config) Result {
	if len(ctx.Actions) >= cfg.MaxTotalActions {
		return Result{Looped: true, Reason: "max_total_actions"}
	}

	if dup, count := mostDuplicatedAction(ctx.Actions); count >= cfg.MaxDuplicateActions {
		return Result{Looped: true, Reason: fmt.Sprintf("duplicate_actions:%s", dup)}
	}

	if countValidations(ctx.Actions) >= cfg.MaxValidationActions {
		return Result{Looped: true, Reason: "validation_actions"}
	}

	if hasCircularFSDependency(ctx.Actions) {
		return Result{Looped: true, Reason: "circular_fs_dependency"}
	}

	if repeatsPattern(ctx.Actions, cfg.RepeatedPatternLen, cfg.RepeatedPatternCount) {
		return Result{Looped: true, Reason: "repeated_action_pattern"}
	}

	if stagnated, reason := detectStagnation(ctx, now, cfg); stagnated {
		return Result{Looped: true, Reason: reason}
	}

	return Result{Looped: false}
}

// canonicalKey identifies an action by type and a stable rendering of its
// inputs, so two structurally identical retries collapse to one key
// regardless of map iteration order.
func canonicalKey(action model.Action) string {
	return string(action.Type) + ":" + canonicalInputs(action.Inputs)
}

func canonicalInputs(inputs map[string]any) string {
	if len(inputs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sortStrings(keys)

	s := ""
	for _, k := range keys {
		s += fmt.Sprintf("%s=%v;", k, inputs[k])
	}
	return s
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

func mostDuplicatedAction(actions []model.Action) (string, int) {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, a := range actions {
		key := canonicalKey(a)
		counts[key]++
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	return best, bestCount
}

func countValidations(actions []model.Action) int {
	n := 0
	for _, a := range actions {
		if a.Type == model.ActionValidate {
			n++
		}
	}
	return n
}

// hasCircularFSDependency flags a task that writes a path, later reads it,
// then writes it again — the write→read→write cycle §4.8 calls out.
func hasCircularFSDependency(actions []model.Action) bool {
	writeCount := make(map[string]int)
	sawReadAfterWrite := make(map[string]bool)

	for _, a := range actions {
		path := filePathOf(a)
		if path == "" {
			continue
		}
		switch {
		case a.Type == model.ActionWriteFile:
			if sawReadAfterWrite[path] {
				return true
			}
			writeCount[path]++
		case a.Type == model.ActionExtractData:
			if writeCount[path] > 0 {
				sawReadAfterWrite[path] = true
			}
		}
	}
	return false
}

func filePathOf(a model.Action) string {
	if a.Outputs.Kind == model.OutputFile && a.Outputs.File != nil {
		return a.Outputs.File.Path
	}
	if p, ok := a.Inputs["path"].(string); ok {
		return p
	}
	if p, ok := a.Inputs["file_path"].(string); ok {
		return p
	}
	return ""
}

// repeatsPattern reports whether the same sequence of n action types
// appears as the last `count` non-overlapping windows of the log.
func repeatsPattern(actions []model.Action, n, count int) bool {
	if n <= 0 || count <= 1 || len(actions) < n*count {
		return false
	}

	window := func(start int) string {
		s := ""
		for i := start; i < start+n; i++ {
			s += string(actions[i].Type) + ","
		}
		return s
	}

	last := len(actions) - n
	reference := window(last)
	for i := 1; i < count; i++ {
		start := last - i*n
		if start < 0 {
			return false
		}
		if window(start) != reference {
			return false
		}
	}
	return true
}

func detectStagnation(ctx model.TaskContext, now time.Time, cfg Config) (bool, string) {
	if len(ctx.Actions) == 0 {
		return false, ""
	}

	lastAction := ctx.Actions[len(ctx.Actions)-1]
	if now.Sub(lastAction.Timestamp) >= cfg.MaxActionGap {
		return true, "no_new_actions"
	}

	if len(ctx.Actions) < 3 {
		return false, ""
	}

	occurrences := countStagnationWindows(ctx, now, cfg.StagnationWindow)
	if occurrences >= cfg.StagnationOccurrences {
		return true, "no_new_evidence"
	}
	return false, ""
}

// countStagnationWindows counts, walking backward from the newest action,
// how many consecutive windows of cfg.StagnationWindow duration produced
// zero new evidence — i.e. how many successive stagnation periods just
// happened, which is what §4.8's "two successive stagnation periods" means.
func countStagnationWindows(ctx model.TaskContext, now time.Time, window time.Duration) int {
	if window <= 0 || len(ctx.Evidence) == 0 {
		return 0
	}

	occurrences := 0
	cursor := now
	evidenceIdx := len(ctx.Evidence) - 1

	for occurrences < 8 { // hard cap; a real run never needs more than StagnationOccurrences
		windowStart := cursor.Add(-window)
		found := false
		for evidenceIdx >= 0 && !ctx.Evidence[evidenceIdx].Timestamp.Before(windowStart) {
			if ctx.Evidence[evidenceIdx].Timestamp.Before(cursor) {
				found = true
			}
			evidenceIdx--
		}
		if found {
			return occurrences
		}
		occurrences++
		cursor = windowStart
		if evidenceIdx < 0 {
			break
		}
	}
	return occurrences
}
