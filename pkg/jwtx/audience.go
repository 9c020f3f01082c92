package jwtx

import "slices"

// AudiencePolicy decides whether a token's aud claim is acceptable to the
// resource being protected.
type AudiencePolicy interface {
	Allow(aud []string) bool
}

// AudiencePolicyFunc adapts a function to AudiencePolicy.
type AudiencePolicyFunc func(aud []string) bool

func (f AudiencePolicyFunc) Allow(aud []string) bool { return f(aud) }

// AnyAudience accepts any token that names at least one non-empty audience.
// Clients register dynamically, so a stateless verifier cannot know the
// full set in advance.
func AnyAudience() AudiencePolicy {
	return AudiencePolicyFunc(func(aud []string) bool {
		for _, a := range aud {
			if a != "" {
				return true
			}
		}
		return false
	})
}

// AllowAudiences accepts tokens whose aud contains one of allowed.
func AllowAudiences(allowed ...string) AudiencePolicy {
	allowed = slices.Clone(allowed)
	return AudiencePolicyFunc(func(aud []string) bool {
		for _, a := range aud {
			if a != "" && slices.Contains(allowed, a) {
				return true
			}
		}
		return false
	})
}
