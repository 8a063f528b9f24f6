package safety

// DefaultBlocklist is the built-in post-fetch block-list.
// Any record carrying one of these tags is dropped, whatever rating the
// provider assigned it. Operators can extend it via the tables file.
var DefaultBlocklist = []string{
	// Explicit and suggestive content
	"nude",
	"nudity",
	"completely_nude",
	"partially_nude",
	"topless",
	"bottomless",
	"nipples",
	"sex",
	"sexually_suggestive",
	"suggestive",
	"ecchi",
	"lewd",
	"hentai",
	"erotic",
	"fanservice",
	"cleavage",
	"underboob",
	"sideboob",
	"areola_slip",
	"groping",
	"ahegao",
	"blush_stickers_lewd",
	"censored",
	"mosaic_censoring",
	"convenient_censoring",

	// Exposed skin and clothing state
	"underwear",
	"underwear_only",
	"panties",
	"pantyshot",
	"bra",
	"lingerie",
	"bikini",
	"micro_bikini",
	"swimsuit",
	"one-piece_swimsuit",
	"school_swimsuit",
	"see-through",
	"wet_clothes",
	"torn_clothes",
	"undressing",
	"naked_apron",
	"naked_shirt",
	"naked_towel",
	"open_shirt",
	"unbuttoned",
	"no_bra",
	"no_panties",
	"skirt_lift",
	"shirt_lift",
	"dress_lift",
	"wardrobe_malfunction",
	"garter_belt",
	"garter_straps",
	"thong",
	"bunnysuit",
	"playboy_bunny",
	"revealing_clothes",
	"strap_slip",

	// Suggestive poses and camera angles
	"spread_legs",
	"ass",
	"ass_focus",
	"butt_crack",
	"from_below",
	"upskirt",
	"downblouse",
	"breast_focus",
	"crotch",
	"crotch_focus",
	"cameltoe",
	"thigh_focus",
	"pov_crotch",
	"all_fours",
	"bent_over",
	"on_back",
	"presenting",
	"seductive_smile",
	"bedroom_eyes",
	"licking_lips",
	"arched_back",
	"legs_up",

	// Bondage and restraint
	"bondage",
	"bdsm",
	"bound",
	"bound_wrists",
	"bound_arms",
	"rope",
	"shibari",
	"restrained",
	"gag",
	"ball_gag",
	"collar_and_leash",
	"leash",
	"handcuffs",
	"chained",
	"blindfold",

	// Age-inappropriate
	"loli",
	"shota",
	"lolicon",
	"shotacon",
	"toddlercon",
	"child_on_child",
	"aged_down",
	"petite_focus",

	// Private and bedroom settings
	"bed_sheet",
	"on_bed",
	"lying_on_bed",
	"bedroom",
	"love_hotel",
	"shower",
	"showering",
	"bathing",
	"bath",
	"bathtub",
	"onsen",
	"after_sex",
	"pillow_hug",

	// Romantic and physical contact
	"kiss",
	"kissing",
	"french_kiss",
	"couple",
	"hetero",
	"yuri",
	"yaoi",
	"hug_from_behind",
	"straddling",
	"lap_pillow",
	"princess_carry",
	"embracing",
	"imminent_kiss",
	"implied_sex",
}

// DefaultDenyTerms are negated in every provider query.
// They narrow the result set before it is transferred; the block-list
// still runs on whatever comes back.
var DefaultDenyTerms = []string{
	"nude",
	"underwear",
	"swimsuit",
	"bikini",
	"cleavage",
	"suggestive",
	"bondage",
	"loli",
	"shota",
}
