package agent

import "fmt"

// DefaultResultCap is the maximum length of a tool result recorded into the
// history. Large outputs (shell runs, file reads) would otherwise crowd every
// subsequent prompt out of the context budget.
const DefaultResultCap = 2000

// TruncateResult caps output at maxChars. Truncation is always signaled
// in-band with a leading marker so the model knows it is not seeing the full
// output; it is never silent.
func TruncateResult(output string, maxChars int) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}
	removed := len(output) - maxChars
	return fmt.Sprintf("[Output truncated: %d characters removed]\n%s", removed, output[:maxChars])
}
