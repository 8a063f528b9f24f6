package tags

import (
	"maps"
	"slices"
	"strings"
)

// Vocabulary holds the lookup tables used while cleaning queries.
type Vocabulary struct {
	// Aliases maps a normalized collection name to its provider tag.
	Aliases map[string]string
	// Honorifics are stripped as "-suffix" or as standalone words.
	Honorifics []string
	// TitlePrefixes are stripped from the start of a subject.
	TitlePrefixes []string
}

// DefaultVocabulary returns a fresh copy of the built-in tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Aliases:       maps.Clone(defaultAliases),
		Honorifics:    slices.Clone(defaultHonorifics),
		TitlePrefixes: slices.Clone(defaultTitlePrefixes),
	}
}

// Merge returns v extended with other. Entries in other win on conflict.
func (v Vocabulary) Merge(other Vocabulary) Vocabulary {
	out := Vocabulary{
		Aliases:       maps.Clone(v.Aliases),
		Honorifics:    slices.Clone(v.Honorifics),
		TitlePrefixes: slices.Clone(v.TitlePrefixes),
	}
	if out.Aliases == nil {
		out.Aliases = make(map[string]string, len(other.Aliases))
	}
	for k, val := range other.Aliases {
		out.Aliases[aliasKey(k)] = val
	}
	for _, h := range other.Honorifics {
		if !slices.Contains(out.Honorifics, h) {
			out.Honorifics = append(out.Honorifics, h)
		}
	}
	for _, p := range other.TitlePrefixes {
		if !slices.Contains(out.TitlePrefixes, p) {
			out.TitlePrefixes = append(out.TitlePrefixes, p)
		}
	}
	return out
}

// aliasKey normalizes a collection name for alias lookup.
func aliasKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

var defaultHonorifics = []string{
	"chan", "san", "kun", "sama", "sensei", "senpai", "sempai",
	"tan", "chin", "dono", "hime", "nee", "neesan", "nii", "niisan",
	"oneesan", "oniisan", "oneechan", "oniichan", "kouhai", "shi",
}

var defaultTitlePrefixes = []string{
	"dr", "doctor", "mr", "mrs", "ms", "miss", "sir", "lady", "lord",
	"princess", "prince", "queen", "king", "captain", "capt", "general",
	"professor", "prof", "saint", "st", "sister", "brother", "master",
	"detective", "commander", "lieutenant", "sergeant", "agent",
}

var defaultAliases = map[string]string{
	"spy x family":                   "spy_x_family",
	"spy×family":                     "spy_x_family",
	"spyxfamily":                     "spy_x_family",
	"jjk":                            "jujutsu_kaisen",
	"jujutsu kaisen":                 "jujutsu_kaisen",
	"demon slayer":                   "kimetsu_no_yaiba",
	"kimetsu no yaiba":               "kimetsu_no_yaiba",
	"aot":                            "shingeki_no_kyojin",
	"attack on titan":                "shingeki_no_kyojin",
	"shingeki no kyojin":             "shingeki_no_kyojin",
	"mha":                            "boku_no_hero_academia",
	"bnha":                           "boku_no_hero_academia",
	"my hero academia":               "boku_no_hero_academia",
	"genshin":                        "genshin_impact",
	"genshin impact":                 "genshin_impact",
	"hsr":                            "honkai:_star_rail",
	"honkai star rail":               "honkai:_star_rail",
	"honkai: star rail":              "honkai:_star_rail",
	"frieren":                        "sousou_no_frieren",
	"frieren: beyond journey's end":  "sousou_no_frieren",
	"chainsaw man":                   "chainsaw_man",
	"csm":                            "chainsaw_man",
	"oshi no ko":                     "oshi_no_ko",
	"bocchi the rock":                "bocchi_the_rock!",
	"bocchi the rock!":               "bocchi_the_rock!",
	"konosuba":                       "kono_subarashii_sekai_ni_shukufuku_wo!",
	"re zero":                        "re:zero_kara_hajimeru_isekai_seikatsu",
	"re:zero":                        "re:zero_kara_hajimeru_isekai_seikatsu",
	"rezero":                         "re:zero_kara_hajimeru_isekai_seikatsu",
	"evangelion":                     "neon_genesis_evangelion",
	"eva":                            "neon_genesis_evangelion",
	"nge":                            "neon_genesis_evangelion",
	"madoka":                         "mahou_shoujo_madoka_magica",
	"madoka magica":                  "mahou_shoujo_madoka_magica",
	"jojo":                           "jojo_no_kimyou_na_bouken",
	"jojo's bizarre adventure":       "jojo_no_kimyou_na_bouken",
	"hxh":                            "hunter_x_hunter",
	"hunter x hunter":                "hunter_x_hunter",
	"fma":                            "fullmetal_alchemist",
	"fullmetal alchemist":            "fullmetal_alchemist",
	"quintessential quintuplets":     "go-toubun_no_hanayome",
	"the quintessential quintuplets": "go-toubun_no_hanayome",
	"kaguya-sama":                    "kaguya-sama_wa_kokurasetai_~tensai-tachi_no_renai_zunousen~",
	"kaguya-sama: love is war":       "kaguya-sama_wa_kokurasetai_~tensai-tachi_no_renai_zunousen~",
	"k-on":                           "k-on!",
	"toradora":                       "toradora!",
	"pokemon":                        "pokemon",
	"pokémon":                        "pokemon",
	"blue archive":                   "blue_archive",
	"umamusume":                      "umamusume",
	"uma musume":                     "umamusume",
	"hololive":                       "hololive",
	"fate":                           "fate_(series)",
	"fgo":                            "fate/grand_order",
	"fate grand order":               "fate/grand_order",
	"fate/grand order":               "fate/grand_order",
	"arknights":                      "arknights",
	"touhou":                         "touhou",
	"vocaloid":                       "vocaloid",
	"zelda":                          "the_legend_of_zelda",
	"legend of zelda":                "the_legend_of_zelda",
	"the legend of zelda":            "the_legend_of_zelda",
	"lycoris recoil":                 "lycoris_recoil",
	"dandadan":                       "dandadan",
	"blue lock":                      "blue_lock",
	"one piece":                      "one_piece",
	"naruto":                         "naruto_(series)",
	"dragon ball":                    "dragon_ball",
	"violet evergarden":              "violet_evergarden",
}
