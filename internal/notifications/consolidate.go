package notifications

// dedupe removes exact duplicate tokens while preserving first-seen order.
func dedupe(tokens []string) []string {
	if len(tokens) < 2 {
		return tokens
	}
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Consolidate narrows a user's registered tokens to the set that should
// actually receive a push. Tokens arrive in registration order (most recent
// last); after removing duplicates, everything but the most recently
// registered token is dropped.
//
// Most multi-token rows are the same physical device re-registering after a
// token rotation, so fanning out to the full set shows the user the same
// notification several times. The cost is that a user with genuinely
// concurrent devices only gets pushed on the latest one.
//
// An empty result means "no deliverable device" and is not an error.
func Consolidate(tokens []string) []string {
	tokens = dedupe(tokens)
	if len(tokens) > 1 {
		return tokens[len(tokens)-1:]
	}
	return tokens
}
