package tool

import (
	"context"
	"fmt"
)

// Handler is a tool's in-process implementation.
type Handler func(ctx context.Context, params map[string]any) (Result, error)

// StaticEntry pairs a tool's advertised Spec with its Handler.
type StaticEntry struct {
	Spec    Spec
	Handler Handler
}

// StaticClient wraps a fixed map of Go closures behind the Client
// interface, for tests and for the demo runner in cmd/agentcore, so the
// orchestrator can be exercised without a live bridge.
type StaticClient struct {
	entries map[string]StaticEntry
}

// NewStaticClient builds a StaticClient from a list of entries.
func NewStaticClient(entries ...StaticEntry) *StaticClient {
	c := &StaticClient{entries: make(map[string]StaticEntry, len(entries))}
	for _, e := range entries {
		c.entries[e.Spec.Name] = e
	}
	return c
}

func (c *StaticClient) ListTools(ctx context.Context) ([]Spec, error) {
	specs := make([]Spec, 0, len(c.entries))
	for _, e := range c.entries {
		specs = append(specs, e.Spec)
	}
	return specs, nil
}

func (c *StaticClient) Execute(ctx context.Context, name string, params map[string]any) (Result, error) {
	entry, ok := c.entries[name]
	if !ok {
		return Err("tool_not_found", fmt.Sprintf("no such tool: %s", name)), nil
	}
	return entry.Handler(ctx, params)
}

func (c *StaticClient) Health(ctx context.Context) error {
	return nil
}
