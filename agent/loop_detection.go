package agent

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// commandSignature computes a deterministic signature for a command
// (name + hash of its arguments).
func commandSignature(cmd CommandSpec) string {
	data, _ := json.Marshal(cmd.Args)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", cmd.Name, h[:8])
}

// recentCommandSignatures extracts signatures of the most recent count
// commands from the history, in chronological order. Error turns carry no
// command and are skipped.
func recentCommandSignatures(history []Turn, count int) []string {
	var sigs []string
	for i := len(history) - 1; i >= 0 && len(sigs) < count; i-- {
		if history[i].Command != nil {
			sigs = append(sigs, commandSignature(*history[i].Command))
		}
	}
	for i, j := 0, len(sigs)-1; i < j; i, j = i+1, j-1 {
		sigs[i], sigs[j] = sigs[j], sigs[i]
	}
	return sigs
}

// DetectCommandLoop reports whether the last windowSize commands follow a
// repeating pattern of length 1, 2, or 3. A stuck model tends to reissue the
// same command (or a short cycle of commands) verbatim; surfacing that as a
// warning in the next prompt is usually enough to break the cycle.
func DetectCommandLoop(history []Turn, windowSize int) bool {
	sigs := recentCommandSignatures(history, windowSize)
	if len(sigs) < windowSize {
		return false
	}

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if windowSize%patternLen != 0 {
			continue
		}
		pattern := sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < windowSize && allMatch; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
		}
		if allMatch {
			return true
		}
	}
	return false
}
