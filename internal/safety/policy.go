// Package safety implements the content safety contract shared by all
// provider adapters: query-time deny terms and the authoritative
// post-fetch block-list.
package safety

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/listenupapp/artfetch/internal/domain"
)

// Policy is an immutable snapshot of the block-list and deny terms.
type Policy struct {
	blocked map[string]struct{}
	deny    []string
}

// NewPolicy builds a policy. Tags are lowercased and trimmed; blanks are ignored.
func NewPolicy(blocklist, denyTerms []string) *Policy {
	p := &Policy{
		blocked: make(map[string]struct{}, len(blocklist)),
		deny:    make([]string, 0, len(denyTerms)),
	}
	for _, t := range blocklist {
		if t = normalizeTag(t); t != "" {
			p.blocked[t] = struct{}{}
		}
	}
	seen := make(map[string]struct{}, len(denyTerms))
	for _, t := range denyTerms {
		t = normalizeTag(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		p.deny = append(p.deny, t)
	}
	return p
}

// DefaultPolicy returns the policy built from the compiled-in tables.
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultBlocklist, DefaultDenyTerms)
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// Size returns the number of block-listed tags.
func (p *Policy) Size() int {
	return len(p.blocked)
}

// BlockedTag returns the first tag in tags that is block-listed.
func (p *Policy) BlockedTag(tags []string) (string, bool) {
	for _, t := range tags {
		if _, ok := p.blocked[normalizeTag(t)]; ok {
			return t, true
		}
	}
	return "", false
}

// DenyQueryTerms returns up to limit deny terms formatted as negated query
// terms ("-tag"). A negative limit returns all of them.
func (p *Policy) DenyQueryTerms(limit int) []string {
	n := len(p.deny)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]string, n)
	for i := range n {
		out[i] = "-" + p.deny[i]
	}
	return out
}

// Filter returns the records whose tags do not intersect the block-list,
// in their original order, and the number dropped.
//
// Callers must pass the full provider tag list for each record, not the
// truncated list carried on domain.MediaRecord.
func (p *Policy) Filter(records []Candidate) ([]domain.MediaRecord, int) {
	kept := make([]domain.MediaRecord, 0, len(records))
	dropped := 0
	for _, c := range records {
		if _, blocked := p.BlockedTag(c.AllTags); blocked {
			dropped++
			continue
		}
		kept = append(kept, c.Record)
	}
	return kept, dropped
}

// Candidate pairs a built record with every tag the provider reported for it.
type Candidate struct {
	Record  domain.MediaRecord
	AllTags []string
}

// Guard holds the active policy and allows it to be swapped at runtime.
// It is safe for concurrent use.
type Guard struct {
	current atomic.Pointer[Policy]
	logger  *slog.Logger
}

// NewGuard creates a guard around p. A nil p uses DefaultPolicy.
func NewGuard(p *Policy, logger *slog.Logger) *Guard {
	if p == nil {
		p = DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{logger: logger}
	g.current.Store(p)
	return g
}

// Policy returns the active policy snapshot.
func (g *Guard) Policy() *Policy {
	return g.current.Load()
}

// Swap replaces the active policy. A nil policy is ignored.
func (g *Guard) Swap(p *Policy) {
	if p == nil {
		return
	}
	old := g.current.Swap(p)
	g.logger.Info("safety policy replaced",
		"blocklist_before", old.Size(),
		"blocklist_after", p.Size(),
		"deny_terms", len(p.deny),
	)
}
