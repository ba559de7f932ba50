package helpers

// Truncate returns s cut to at most max bytes. Both the completion
// prompt budget and the stored deal excerpt go through this, so every
// call site shares one truncation rule.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
