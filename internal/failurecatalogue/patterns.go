// Package failurecatalogue holds the static table of known-bad plan shapes
// and the adaptations that make them safe (or the demerit that keeps them
// from crowding out better candidates). Every pattern here is a pure
// function of a PlanNode and the task string — no store, no clock, no I/O —
// which is what lets Apply run on every scoring pass without side effects.
package failurecatalogue

import (
	"fmt"
	"regexp"
	"strings"

	"agentcore.dev/core/internal/model"
)

var (
	systemDirPattern  = regexp.MustCompile(`(?i)(^|[\s"'=])(/etc/|/var/|/usr/|[a-z]:\\windows)`)
	privilegedPattern = regexp.MustCompile(`(?i)\b(systemctl|service\s+\w+\s+(start|stop|restart)|sudo|apt(-get)?\s+install|yum\s+install)\b`)
	destructivePattern = regexp.MustCompile(`(?i)\brm\s+-rf\b|\bdel\s+/s\b|\brd\s+/s\b`)
)

// Catalogue is the ordered, fixed set of patterns applied by Apply. Each
// pattern is evaluated against the plan as adapted by the patterns before
// it, so order affects both which patterns match and the "(Adapted: …)"
// reasoning trail.
var Catalogue = []model.FailurePattern{
	{
		ID:          "path_traversal_system_dir",
		Reason:      "inputs reference a system directory outside the task workspace",
		Match:       matchesSystemDir,
		Adapt:       adaptToWorkspacePath,
		ScoreFactor: 0.8,
	},
	{
		ID:          "privileged_service_control",
		Reason:      "action requires privileged service management (systemctl/sudo/package manager)",
		Match:       matchesPrivilegedControl,
		Adapt:       adaptToUserSpaceServer,
		ScoreFactor: 0.7,
	},
	{
		ID:          "destructive_fs_operation",
		Reason:      "action performs a recursive delete on an unscoped path",
		Match:       matchesDestructiveOp,
		Adapt:       nil,
		ScoreFactor: 0.1,
	},
	{
		ID:          "network_egress_forbidden",
		Reason:      "remote execution is forbidden for this task",
		Match:       matchesForbiddenEgress,
		Adapt:       adaptEgressToLocal,
		ScoreFactor: 0.5,
	},
}

func inputString(inputs map[string]any, keys ...string) string {
	var sb strings.Builder
	for _, k := range keys {
		v, ok := inputs[k]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		sb.WriteString(s)
		sb.WriteString(" ")
	}
	return sb.String()
}

func matchesSystemDir(plan model.PlanNode, _ string) bool {
	text := inputString(plan.Inputs, "path", "file_path", "target", "command", "args")
	return systemDirPattern.MatchString(text)
}

func adaptToWorkspacePath(plan model.PlanNode) (model.PlanNode, bool) {
	adapted := plan.Clone()
	changed := false
	for _, key := range []string{"path", "file_path", "target"} {
		v, ok := adapted.Inputs[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || !systemDirPattern.MatchString(s) {
			continue
		}
		adapted.Inputs[key] = rewriteToWorkspace(s)
		changed = true
	}
	if !changed {
		return model.PlanNode{}, false
	}
	return adapted, true
}

func rewriteToWorkspace(path string) string {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	if idx := strings.LastIndex(base, "\\"); idx >= 0 {
		base = base[idx+1:]
	}
	if base == "" {
		base = "output"
	}
	return "./workspace/" + base
}

func matchesPrivilegedControl(plan model.PlanNode, _ string) bool {
	text := inputString(plan.Inputs, "command", "args", "script")
	return privilegedPattern.MatchString(text)
}

func adaptToUserSpaceServer(plan model.PlanNode) (model.PlanNode, bool) {
	adapted := plan.Clone()
	changed := false
	for _, key := range []string{"command", "script"} {
		v, ok := adapted.Inputs[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || !privilegedPattern.MatchString(s) {
			continue
		}
		adapted.Inputs[key] = substituteUserSpaceEquivalent(s)
		changed = true
	}
	if !changed {
		return model.PlanNode{}, false
	}
	return adapted, true
}

// substituteUserSpaceEquivalent swaps a privileged service-control command
// for a language-level stand-in that exercises the same verification intent
// (listen on a port, serve files) without requiring root.
func substituteUserSpaceEquivalent(command string) string {
	lower := strings.ToLower(command)
	switch {
	case strings.Contains(lower, "httpd") || strings.Contains(lower, "nginx") || strings.Contains(lower, "apache"):
		return "python3 -m http.server 8080 --directory ."
	default:
		return "python3 -m http.server 8080 --directory ."
	}
}

func matchesDestructiveOp(plan model.PlanNode, _ string) bool {
	text := inputString(plan.Inputs, "command", "args", "script")
	return destructivePattern.MatchString(text)
}

func matchesForbiddenEgress(plan model.PlanNode, task string) bool {
	if plan.Tool != "remote_exec" && !strings.EqualFold(plan.Tool, "remote_exec") {
		return false
	}
	lower := strings.ToLower(task)
	return strings.Contains(lower, "no network") || strings.Contains(lower, "no remote") ||
		strings.Contains(lower, "offline") || strings.Contains(lower, "without network access")
}

func adaptEgressToLocal(plan model.PlanNode) (model.PlanNode, bool) {
	adapted := plan.Clone()
	adapted.Tool = "local_exec"
	return adapted, true
}

// Apply runs every pattern in Catalogue against each plan and returns a new
// slice: adapted plans replace the original, demerited plans carry a
// multiplied Score and an appended "(Adapted: …)" note, and plans whose
// resulting Score falls at or below model.HardBlockThreshold are dropped
// entirely rather than returned to the caller.
func Apply(plans []model.PlanNode, task string) []model.PlanNode {
	out := make([]model.PlanNode, 0, len(plans))
	for _, plan := range plans {
		next, blocked := applyOne(plan, task)
		if blocked {
			continue
		}
		out = append(out, next)
	}
	return out
}

func applyOne(plan model.PlanNode, task string) (model.PlanNode, bool) {
	current := plan
	for _, pattern := range Catalogue {
		if !pattern.Match(current, task) {
			continue
		}
		if pattern.Adapt != nil {
			adapted, ok := pattern.Adapt(current)
			if !ok {
				// The pattern matched but none of the fields it knows how
				// to rewrite actually carried the offending value (e.g. it
				// showed up only in "command"/"args") — there is no safe
				// adaptation, so the plan is dropped rather than kept with
				// the unsafe reference untouched.
				return model.PlanNode{}, true
			}
			adapted.Reasoning = fmt.Sprintf("%s (Adapted: %s)", adapted.Reasoning, pattern.Reason)
			current = adapted
			continue
		}
		current.Score *= pattern.ScoreFactor
		current.Reasoning = fmt.Sprintf("%s (Adapted: demerited — %s)", current.Reasoning, pattern.Reason)
		if current.Score <= model.HardBlockThreshold {
			return model.PlanNode{}, true
		}
	}
	return current, false
}
