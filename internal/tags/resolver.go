// Package tags turns a loose (subject, collection) query into an ordered
// list of provider tag candidates, most specific first.
package tags

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

const (
	// MinProbeScore is the score a probed tag needs to be tried first.
	MinProbeScore = 80

	defaultProbeLimit   = 100
	defaultProbeTimeout = 5 * time.Second
)

// Prober looks up tags on records matching a wildcard pattern, with the
// number of records each tag appeared on.
type Prober interface {
	ProbeTags(ctx context.Context, pattern string, limit int) (map[string]int, error)
}

// Config controls the live probe.
type Config struct {
	ProbeLimit   int
	ProbeTimeout time.Duration
	// DisableProbe skips the live probe entirely.
	DisableProbe bool
}

// Resolution explains how a query was resolved.
type Resolution struct {
	Subject       string   `json:"subject"`
	CollectionTag string   `json:"collection_tag,omitempty"`
	Probed        string   `json:"probed,omitempty"`
	ProbeScore    int      `json:"probe_score,omitempty"`
	Candidates    []string `json:"candidates"`
}

// Resolver produces tag candidates. It is safe for concurrent use.
type Resolver struct {
	prober Prober
	cfg    Config
	logger *slog.Logger
	vocab  atomic.Pointer[Vocabulary]
}

// NewResolver creates a resolver. prober may be nil.
func NewResolver(prober Prober, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.ProbeLimit <= 0 {
		cfg.ProbeLimit = defaultProbeLimit
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{prober: prober, cfg: cfg, logger: logger}
	v := DefaultVocabulary()
	r.vocab.Store(&v)
	return r
}

// SetVocabulary replaces the lookup tables.
func (r *Resolver) SetVocabulary(v Vocabulary) {
	r.vocab.Store(&v)
	r.logger.Info("tag vocabulary replaced",
		"aliases", len(v.Aliases),
		"honorifics", len(v.Honorifics),
		"title_prefixes", len(v.TitlePrefixes),
	)
}

// Vocabulary returns the active lookup tables.
func (r *Resolver) Vocabulary() Vocabulary {
	return *r.vocab.Load()
}

// Resolve returns the ordered tag candidates for a query. The result is
// never empty; it always contains the cleaned subject.
func (r *Resolver) Resolve(ctx context.Context, subject string, collection *string) []string {
	return r.Explain(ctx, subject, collection).Candidates
}

// Explain resolves a query and reports the intermediate steps.
func (r *Resolver) Explain(ctx context.Context, subject string, collection *string) Resolution {
	vocab := r.vocab.Load()

	res := Resolution{Subject: vocab.CleanSubject(subject)}
	if collection != nil {
		res.CollectionTag = vocab.NormalizeCollection(*collection)
	}

	if best, score, ok := r.probe(ctx, res.Subject, res.CollectionTag); ok {
		res.Probed = best
		res.ProbeScore = score
	}

	res.Candidates = BuildCandidates(res.Subject, res.CollectionTag, res.Probed)
	return res
}

// BuildCandidates orders the candidates: the probed tag (if any), the
// subject with collection suffix, its permutations with suffix, the bare
// subject, then its bare permutations. Duplicates are removed keeping
// the first occurrence.
func BuildCandidates(subject, collectionTag, probed string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(tag string) {
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	add(probed)

	perms := Permutations(subject)
	if collectionTag != "" {
		add(withCollection(subject, collectionTag))
		for _, p := range perms {
			add(withCollection(p, collectionTag))
		}
	}
	add(subject)
	for _, p := range perms {
		add(p)
	}
	return out
}

func withCollection(subject, collectionTag string) string {
	return subject + "_(" + collectionTag + ")"
}

// Permutations returns word-order variants of an underscore-joined tag.
// Two words give both orders; three words give the rotations plus the
// first-last pair in both orders. Other lengths give the tag itself.
func Permutations(tag string) []string {
	w := strings.Split(tag, "_")
	switch len(w) {
	case 2:
		return []string{
			w[0] + "_" + w[1],
			w[1] + "_" + w[0],
		}
	case 3:
		return []string{
			w[0] + "_" + w[1] + "_" + w[2],
			w[1] + "_" + w[2] + "_" + w[0],
			w[2] + "_" + w[0] + "_" + w[1],
			w[0] + "_" + w[2],
			w[2] + "_" + w[0],
		}
	default:
		return []string{tag}
	}
}

// probe runs the live lookup and returns the best-scoring tag.
// Any failure is logged and ignored.
func (r *Resolver) probe(ctx context.Context, subject, collectionTag string) (string, int, bool) {
	if r.prober == nil || r.cfg.DisableProbe || subject == "" {
		return "", 0, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	counts, err := r.prober.ProbeTags(ctx, subject+"*", r.cfg.ProbeLimit)
	if err != nil {
		r.logger.Debug("tag probe failed", "subject", subject, "error", err)
		return "", 0, false
	}

	best, score, ok := BestProbe(subject, collectionTag, counts)
	if ok {
		r.logger.Debug("tag probe matched", "subject", subject, "tag", best, "score", score)
	}
	return best, score, ok
}

// BestProbe picks the highest-scoring probed tag that starts with subject.
// ok is false when nothing reaches MinProbeScore. Ties go to the more
// popular tag, then the lexically smaller one.
func BestProbe(subject, collectionTag string, counts map[string]int) (string, int, bool) {
	type scored struct {
		tag   string
		score int
		count int
	}

	var all []scored
	for tag, count := range counts {
		if !strings.HasPrefix(tag, subject) {
			continue
		}
		all = append(all, scored{tag: tag, score: ScoreTag(tag, subject, collectionTag, count), count: count})
	}
	if len(all) == 0 {
		return "", 0, false
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].tag < all[j].tag
	})

	if all[0].score < MinProbeScore {
		return "", 0, false
	}
	return all[0].tag, all[0].score, true
}

// ScoreTag rates how well a probed tag matches the query.
func ScoreTag(tag, subject, collectionTag string, count int) int {
	score := 0

	if collectionTag != "" && strings.Contains(tag, "("+collectionTag+")") {
		score += 200
	}

	switch {
	case strings.HasPrefix(tag, subject):
		score += 100
	case strings.Contains(tag, subject):
		score += 60
	}

	expected := len(subject)
	if collectionTag != "" {
		expected += len(collectionTag) + 3
		for _, w := range strings.Split(collectionTag, "_") {
			if len(w) > 1 && strings.Contains(tag, w) {
				score += 20
			}
		}
	}

	switch excess := len(tag) - expected; {
	case excess > 20:
		score -= 50
	case excess > 10:
		score -= 20
	}

	switch {
	case count >= 50:
		score += 30
	case count >= 20:
		score += 20
	case count >= 10:
		score += 15
	case count >= 5:
		score += 10
	case count >= 1:
		score += 5
	}

	return score
}
