// Package agent implements the Prometheus control loop: a minimal
// autonomous-agent cycle that asks a language model to pick one action from
// a fixed tool set, executes it, records the outcome, and feeds the updated
// history into the next prompt.
//
// The package is organized around a few concepts:
//
//   - AgentState: the persisted record of a run (goal plus append-only
//     history of turns), flushed atomically after every iteration.
//   - ToolRegistry: declarative tool schemas consumed by both the prompt's
//     tool catalog and dispatch-time argument validation.
//   - PromptBuilder: deterministic rendering of the exact prompt text.
//   - ResponseSource: automatic (backend call) or manual (human-pasted)
//     response acquisition.
//   - Loop: the state machine tying it together, with structured recovery
//     from every failure class short of an unreachable backend.
//
// # Quick Start
//
//	state, _, _ := agent.LoadOrNewState("agent_state.json", "explore the repo")
//	ws := agent.NewLocalWorkspace("", time.Minute)
//	reg := agent.NewToolRegistry()
//	agent.RegisterCoreTools(reg, ws, nil)
//
//	builder := agent.NewPromptBuilder(ws.WorkingDirectory(), ws.Platform())
//	source := agent.NewManualSource(os.Stdin, os.Stdout)
//	loop := agent.NewLoop(state, "agent_state.json", reg, builder, source, agent.LoopConfig{})
//
//	result, err := loop.Run(ctx)
package agent
