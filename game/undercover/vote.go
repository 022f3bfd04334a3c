package undercover

import (
	"regexp"
	"slices"
	"strings"
)

// playerNamePattern matches the generated player names (玩家A, 玩家27, ...).
var playerNamePattern = regexp.MustCompile(`玩家[A-Z0-9]+`)

// ParseVote extracts the voted candidate from a free-text reply. It returns
// the first candidate, in list order, that appears in the reply; failing
// that, the first player-name token of the reply that is a candidate;
// failing that, candidates[0]. With no candidates it returns "".
func ParseVote(raw string, candidates []string) string {
	target, _ := parseVote(raw, candidates)
	return target
}

// parseVote is ParseVote that also reports whether the default was used.
func parseVote(raw string, candidates []string) (target string, fallback bool) {
	if len(candidates) == 0 {
		return "", true
	}

	reply := strings.TrimSpace(raw)
	for _, candidate := range candidates {
		if candidate != "" && strings.Contains(reply, candidate) {
			return candidate, false
		}
	}

	for _, token := range playerNamePattern.FindAllString(reply, -1) {
		if slices.Contains(candidates, token) {
			return token, false
		}
	}

	return candidates[0], true
}
