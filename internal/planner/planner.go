// Package planner proposes candidate PlanNodes for a task by prompting an
// LLM for structured output. Scoring and tie-breaking belong to the
// orchestrator; this package only produces the base candidates and their
// LLM-supplied prior.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agentcore.dev/core/common/id"
	"agentcore.dev/core/common/logger"
	"agentcore.dev/core/internal/llmclient"
	"agentcore.dev/core/internal/model"
	"agentcore.dev/core/internal/tool"
)

// Planner proposes plan nodes from a task description, the available
// tools, and a textual rendering of the current memory/hints.
type Planner struct {
	llm llmclient.LLM
}

// New builds a Planner backed by the given LLM.
func New(llm llmclient.LLM) *Planner {
	return &Planner{llm: llm}
}

// Request bundles ProposePlans' inputs.
type Request struct {
	Task       string
	TaskType   model.TaskType
	Tools      []tool.Spec
	Context    string // rendered scratchpad/memory summary
	Hints      []string
	K          int
	ParentID   string
	Depth      int
}

type planCandidate struct {
	Action           string   `json:"action"`
	Tool             string   `json:"tool"`
	Inputs           map[string]any `json:"inputs"`
	Reasoning        string   `json:"reasoning"`
	Score            *float64 `json:"score"`
	ExpectedEvidence []string `json:"expected_evidence"`
}

type proposalResponse struct {
	Plans []planCandidate `json:"plans"`
}

// defaultBasePrior is used when the LLM omits a per-plan score, per §4.10.
const defaultBasePrior = 0.5

// ProposePlans asks the LLM for up to req.K candidate plans and converts
// them into PlanNodes. Score is the LLM's base prior (or defaultBasePrior);
// the orchestrator layers hint boosts and penalties on top.
func (p *Planner) ProposePlans(ctx context.Context, req Request) ([]model.PlanNode, error) {
	if req.K <= 0 {
		req.K = 4
	}

	ctx = logger.WithFields(ctx, logger.Fields{Component: "planner"})

	schema := llmclient.GenerateSchema[proposalResponse]()
	raw, err := p.llm.Structured(ctx, llmclient.StructuredRequest{
		Messages:    buildMessages(req),
		SchemaName:  "plan_proposal",
		Schema:      schema,
		Temperature: llmclient.Temp(0.4),
	})
	if err != nil {
		return nil, fmt.Errorf("propose plans: %w", err)
	}

	var parsed proposalResponse
	if jsonErr := decodeProposal(raw, &parsed); jsonErr != nil {
		return nil, &model.SchemaViolationError{SchemaName: "plan_proposal", Cause: jsonErr}
	}

	now := time.Now()
	nodes := make([]model.PlanNode, 0, len(parsed.Plans))
	for i, c := range parsed.Plans {
		if i >= req.K {
			break
		}
		score := defaultBasePrior
		if c.Score != nil {
			score = clamp01(*c.Score)
		}

		nodes = append(nodes, model.PlanNode{
			ID:               id.NewString("plan_"),
			Action:           model.ActionType(c.Action),
			Tool:             c.Tool,
			Inputs:           c.Inputs,
			Reasoning:        c.Reasoning,
			Score:            score,
			Depth:            req.Depth,
			ParentID:         req.ParentID,
			ExpectedEvidence: toEvidenceTypes(c.ExpectedEvidence),
			Metadata: model.PlanMetadata{
				CreatedAt: now,
			},
		})
	}
	return nodes, nil
}

func buildMessages(req Request) []llmclient.Message {
	system := "You are the planning module of a tool-using agent. Given a task, the " +
		"tools available, and a summary of work done so far, propose candidate next " +
		"steps as structured JSON. Each plan names an action (a tool name, or one of " +
		"synthesize_answer, validate, test_example, implement_code, extract_data), " +
		"its inputs, your reasoning, an optional confidence score in [0,1], and the " +
		"evidence types you expect it to produce."

	var toolLines string
	for _, t := range req.Tools {
		toolLines += fmt.Sprintf("- %s (%s): %s\n", t.Name, t.Category, t.Description)
	}

	var hintLines string
	for _, h := range req.Hints {
		hintLines += "- " + h + "\n"
	}

	user := fmt.Sprintf(
		"Task: %s\nTask type: %s\n\nAvailable tools:\n%s\nValidator hints:\n%s\nWork so far:\n%s\n\nPropose up to %d candidate plans.",
		req.Task, req.TaskType, toolLines, hintLines, req.Context, req.K,
	)

	return []llmclient.Message{
		{Role: llmclient.RoleSystem, Content: system},
		{Role: llmclient.RoleUser, Content: user},
	}
}

func toEvidenceTypes(raw []string) []model.EvidenceType {
	if len(raw) == 0 {
		return nil
	}
	out := make([]model.EvidenceType, len(raw))
	for i, r := range raw {
		out[i] = model.EvidenceType(r)
	}
	return out
}

func decodeProposal(raw []byte, out *proposalResponse) error {
	return json.Unmarshal(raw, out)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
