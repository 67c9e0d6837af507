package agent

import "encoding/json"

// DefaultContextBudget is the default maximum serialized size, in characters,
// of the history included in a prompt.
const DefaultContextBudget = 4096

// RenderHistory serializes history to its canonical indented-JSON form and
// trims it to fit budget: while the serialization exceeds the budget and more
// than one turn remains, the oldest turn is dropped and the remainder is
// re-serialized. The most recent turn is never dropped, even if it alone
// exceeds the budget.
//
// The budget is measured in raw characters as a stand-in for token count.
// This is a deliberate heuristic inherited from the state-file contract, not
// an exact accounting; a real tokenizer could be substituted without changing
// the contract (drop oldest first, keep at least one turn).
func RenderHistory(history []Turn, budget int) ([]Turn, string) {
	trimmed := history
	serialized := marshalHistory(trimmed)
	for len(serialized) > budget && len(trimmed) > 1 {
		trimmed = trimmed[1:]
		serialized = marshalHistory(trimmed)
	}
	return trimmed, serialized
}

func marshalHistory(history []Turn) string {
	if len(history) == 0 {
		return "[]"
	}
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		// Turn contains only marshalable fields; this cannot happen for
		// states built through the public API.
		return "[]"
	}
	return string(data)
}
