package models

// EventTypes is the fixed vocabulary of domain events that webhook
// endpoints may subscribe to. Unknown names are dropped on write, never stored.
var EventTypes = []string{
	"newsletter.sent",
	"newsletter.opened",
	"newsletter.clicked",
	"source.processed",
}

// Scopes is the set of capabilities an API key may carry.
var Scopes = []string{
	"events:publish",
	"webhooks:manage",
	"keys:manage",
	"usage:read",
}

func IsKnownEvent(event string) bool {
	for _, e := range EventTypes {
		if e == event {
			return true
		}
	}
	return false
}

// FilterEvents intersects the requested event names with the known
// vocabulary, preserving request order and dropping duplicates.
func FilterEvents(requested []string) []string {
	seen := make(map[string]bool, len(requested))
	var out []string
	for _, e := range requested {
		if IsKnownEvent(e) && !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

func IsKnownScope(scope string) bool {
	for _, s := range Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func FilterScopes(requested []string) []string {
	seen := make(map[string]bool, len(requested))
	var out []string
	for _, s := range requested {
		if IsKnownScope(s) && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
