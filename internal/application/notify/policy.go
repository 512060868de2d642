// Package notify composes reminder mail and decides who may receive it.
package notify

import "strings"

// RecipientPolicy allows explicit addresses and whole domains. Everything
// else is blocked.
type RecipientPolicy struct {
	domains   []string
	addresses map[string]struct{}
}

// NewRecipientPolicy merges the send and test allowlists into one set.
func NewRecipientPolicy(allowDomains, allowlist, testAllowlist []string) RecipientPolicy {
	p := RecipientPolicy{addresses: make(map[string]struct{})}
	for _, d := range allowDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			p.domains = append(p.domains, d)
		}
	}
	for _, list := range [][]string{allowlist, testAllowlist} {
		for _, a := range list {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				p.addresses[a] = struct{}{}
			}
		}
	}
	return p
}

// Allows reports whether addr may receive mail.
func (p RecipientPolicy) Allows(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return false
	}
	if _, ok := p.addresses[addr]; ok {
		return true
	}
	for _, d := range p.domains {
		if strings.HasSuffix(addr, "@"+d) || strings.HasSuffix(addr, "."+d) {
			return true
		}
	}
	return false
}

// Filter splits recipients into allowed and blocked, lowercased and deduplicated.
// Blank entries are dropped.
func (p RecipientPolicy) Filter(recipients []string) (allowed, blocked []string) {
	seen := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		if p.Allows(r) {
			allowed = append(allowed, r)
		} else {
			blocked = append(blocked, r)
		}
	}
	return allowed, blocked
}
