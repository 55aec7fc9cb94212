package notification

import "regexp"

// mentionPattern implements the two grammars of §4.7. Alternation
// order matters under Go's leftmost-first regexp semantics: the
// email branch is tried before the bare-name branch at each "@" so
// "@alice@example.com" resolves as one email token rather than the
// name token "alice" followed by a stray "@example.com".
var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_.+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}|[A-Za-z0-9_.-]+)`)

// extractMentionHandles returns every distinct raw handle token
// (without the leading "@") found in text, in first-occurrence order.
// Resolution against User.name/User.email happens in the caller.
func extractMentionHandles(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var handles []string
	for _, m := range matches {
		handle := m[1]
		key := handle
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		handles = append(handles, handle)
	}
	return handles
}
