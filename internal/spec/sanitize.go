package spec

import "github.com/microcosm-cc/bluemonday"

// SafeHTML is text that has been cleared for HTML rendering, either because
// the descriptor source is trusted or because it went through the sanitizer.
type SafeHTML string

type trustPolicy struct {
	policy *bluemonday.Policy // nil when the source is trusted
}

func newTrustPolicy(trusted bool) trustPolicy {
	if trusted {
		return trustPolicy{}
	}
	return trustPolicy{policy: bluemonday.UGCPolicy()}
}

func (t trustPolicy) html(s string) SafeHTML {
	if t.policy == nil {
		return SafeHTML(s)
	}
	return SafeHTML(t.policy.Sanitize(s))
}
