package tags

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	counts  map[string]int
	err     error
	pattern string
	calls   int
}

func (f *fakeProber) ProbeTags(_ context.Context, pattern string, _ int) (map[string]int, error) {
	f.calls++
	f.pattern = pattern
	return f.counts, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(s string) *string { return &s }

func TestCleanSubject(t *testing.T) {
	v := DefaultVocabulary()

	tests := []struct {
		in   string
		want string
	}{
		{"Anya", "anya"},
		{"Anya-chan", "anya"},
		{"Rem san", "rem"},
		{"Loid Forger", "loid_forger"},
		{"  Gojo   Satoru!! ", "gojo_satoru"},
		{"Zoë Hange", "zoe_hange"},
		{"Princess Zelda", "zelda"},
		{"Dr. Senku Ishigami", "senku_ishigami"},
		{"makima_(chainsaw_man)", "makima_chainsaw_man"},
		{"Sama", "sama"},
		{"!!!", "!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, v.CleanSubject(tt.in))
		})
	}
}

func TestNormalizeCollection(t *testing.T) {
	v := DefaultVocabulary()

	tests := []struct {
		in   string
		want string
	}{
		{"spy x family", "spy_x_family"},
		{"Spy x Family Season 2", "spy_x_family"},
		{"SPY×FAMILY", "spy_x_family"},
		{"JJK", "jujutsu_kaisen"},
		{"Attack on Titan: The Final Season", "shingeki_no_kyojin"},
		{"Demon Slayer 2nd Season", "kimetsu_no_yaiba"},
		{"The Apothecary Diaries Part 2", "apothecary_diaries"},
		{"Overlord IV", "overlord"},
		{"Mob Psycho 100", "mob_psycho_100"},
		{"Chainsaw Man", "chainsaw_man"},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, v.NormalizeCollection(tt.in))
		})
	}
}

func TestPermutations(t *testing.T) {
	assert.Equal(t, []string{"anya"}, Permutations("anya"))
	assert.Equal(t, []string{"loid_forger", "forger_loid"}, Permutations("loid_forger"))
	assert.Equal(t,
		[]string{"yor_briar_forger", "briar_forger_yor", "forger_yor_briar", "yor_forger", "forger_yor"},
		Permutations("yor_briar_forger"))
	assert.Equal(t, []string{"a_b_c_d"}, Permutations("a_b_c_d"))
}

func TestResolve_WithoutProbe(t *testing.T) {
	r := NewResolver(nil, Config{}, testLogger())

	got := r.Resolve(context.Background(), "Loid Forger", ptr("Spy x Family Season 2"))
	assert.Equal(t, []string{
		"loid_forger_(spy_x_family)",
		"forger_loid_(spy_x_family)",
		"loid_forger",
		"forger_loid",
	}, got)
}

func TestResolve_NeverEmpty(t *testing.T) {
	r := NewResolver(nil, Config{}, testLogger())

	assert.Equal(t, []string{"anya"}, r.Resolve(context.Background(), "Anya", nil))
	assert.Equal(t, []string{"anya"}, r.Resolve(context.Background(), "Anya", ptr("")))
}

func TestResolve_NoDuplicates(t *testing.T) {
	r := NewResolver(nil, Config{}, testLogger())

	got := r.Resolve(context.Background(), "Yor Briar Forger", ptr("spy x family"))

	seen := map[string]bool{}
	for _, c := range got {
		require.False(t, seen[c], "duplicate candidate %q", c)
		seen[c] = true
	}
	assert.Len(t, got, 10)
	assert.Equal(t, "yor_briar_forger_(spy_x_family)", got[0])
	assert.Equal(t, "yor_briar_forger", got[5])
}

func TestResolve_ProbePrependsBest(t *testing.T) {
	prober := &fakeProber{counts: map[string]int{
		"anya_(spy_x_family)": 40,
		"anya_forger":         3,
		"bond_(spy_x_family)": 10,
		"spy_x_family":        40,
	}}
	r := NewResolver(prober, Config{}, testLogger())

	res := r.Explain(context.Background(), "Anya Forger", ptr("spy x family"))

	assert.Equal(t, "anya_forger*", prober.pattern)
	assert.Equal(t, "anya_forger", res.Probed, "only tags starting with the subject are considered")
	assert.Equal(t, "anya_forger", res.Candidates[0])
	assert.Equal(t, "anya_forger_(spy_x_family)", res.Candidates[1])
}

func TestResolve_ProbeCollectionTagWins(t *testing.T) {
	prober := &fakeProber{counts: map[string]int{
		"anya_(spy_x_family)": 40,
		"anya_melfissa":       60,
	}}
	r := NewResolver(prober, Config{}, testLogger())

	got := r.Resolve(context.Background(), "Anya", ptr("spy x family"))
	assert.Equal(t, []string{"anya_(spy_x_family)", "anya"}, got)
}

func TestResolve_ProbeBelowThreshold(t *testing.T) {
	prober := &fakeProber{counts: map[string]int{
		"anya" + strings.Repeat("_x", 15): 1,
	}}
	r := NewResolver(prober, Config{}, testLogger())

	res := r.Explain(context.Background(), "Anya", nil)
	assert.Empty(t, res.Probed)
	assert.Equal(t, []string{"anya"}, res.Candidates)
}

func TestResolve_ProbeFailureIsSilent(t *testing.T) {
	prober := &fakeProber{err: errors.New("connection refused")}
	r := NewResolver(prober, Config{}, testLogger())

	got := r.Resolve(context.Background(), "Anya", ptr("spy x family"))
	assert.Equal(t, []string{"anya_(spy_x_family)", "anya"}, got)
	assert.Equal(t, 1, prober.calls)
}

func TestResolve_ProbeDisabled(t *testing.T) {
	prober := &fakeProber{counts: map[string]int{"anya_(spy_x_family)": 40}}
	r := NewResolver(prober, Config{DisableProbe: true}, testLogger())

	r.Resolve(context.Background(), "Anya", nil)
	assert.Zero(t, prober.calls)
}

func TestScoreTag(t *testing.T) {
	assert.Equal(t, 360, ScoreTag("anya_(spy_x_family)", "anya", "spy_x_family", 40))
	assert.Equal(t, 105, ScoreTag("anya_forger", "anya", "", 3))
	assert.Equal(t, 60, ScoreTag("cosplay_anya", "anya", "", 0))
	assert.Equal(t, 80, ScoreTag("anya_"+strings.Repeat("y", 15), "anya", "", 0))
}

func TestSetVocabulary(t *testing.T) {
	r := NewResolver(nil, Config{}, testLogger())

	r.SetVocabulary(r.Vocabulary().Merge(Vocabulary{
		Aliases:    map[string]string{"Apothecary Diaries": "kusuriya_no_hitorigoto"},
		Honorifics: []string{"niang"},
	}))

	got := r.Resolve(context.Background(), "Maomao-niang", ptr("The Apothecary Diaries Season 2"))
	assert.Equal(t, "maomao_(kusuriya_no_hitorigoto)", got[0])
}
