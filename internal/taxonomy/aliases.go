package taxonomy

// aliases maps common variant slugs to canonical taxonomy slugs. Classifier
// output and source metadata both wander; this is the built-in knowledge of
// which wanderings are safe to fold in.
var aliases = map[string]string{
	// Fiction variations
	"novel":            "fiction",
	"novels":           "fiction",
	"literature":       "fiction",
	"literary-fiction": "fiction",
	"tales":            "fiction",

	// Classic-era science labels
	"natural-philosophy": "science",
	"natural-science":    "science",

	// Poetry variations
	"poems": "poetry",
	"verse": "poetry",

	// Drama variations
	"plays":   "drama",
	"play":    "drama",
	"theatre": "drama",
	"theater": "drama",

	// Religion variations
	"spirituality": "religion",
	"divinity":     "theology",

	// Biography variations
	"autobiography": "biography",
	"memoirs":       "memoir",

	// History variations
	"historical": "history",
	"antiquity":  "ancient-history",

	// Science Fiction variations
	"sci-fi":                "science-fiction",
	"scifi":                 "science-fiction",
	"scientific-romance":    "science-fiction",
	"speculative-fiction":   "science-fiction",

	// Folklore variations
	"folk-tales": "folklore",
	"folktales":  "folklore",
	"legends":    "mythology",
	"myths":      "mythology",

	// Mystery variations
	"detective":         "mystery",
	"detective-fiction": "mystery",
	"crime":             "mystery",

	// Politics variations
	"political-science": "politics",
	"government":        "politics",

	// Economics variations
	"political-economy": "economics",

	// Essays variations
	"essay": "essays",

	// Letters variations
	"correspondence": "letters",
	"epistles":       "letters",

	// Speeches variations
	"orations": "speeches",
	"oratory":  "speeches",
}
