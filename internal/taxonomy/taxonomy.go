package taxonomy

import "slices"

// Version identifies the taxonomy revision embedded in this build.
const Version = "2025.1"

// primaryGenres is the permitted set of primary genres, tuned for
// public-domain catalogs rather than contemporary bookstore shelves.
var primaryGenres = []string{
	"Fiction",
	"Philosophy",
	"History",
	"Science",
	"Poetry",
	"Drama",
	"Religion",
	"Biography",
	"Essays",
	"Politics",
	"Economics",
	"Adventure",
	"Romance",
	"Mystery",
	"Folklore",
	"Travel",
	"Reference",
}

// subgenres is the permitted set of sub-genres. A classification carries at
// most one of these.
var subgenres = []string{
	"Epic Poetry",
	"Lyric Poetry",
	"Tragedy",
	"Comedy",
	"Satire",
	"Gothic Fiction",
	"Historical Fiction",
	"Science Fiction",
	"Short Stories",
	"Fairy Tales",
	"Mythology",
	"Stoicism",
	"Ethics",
	"Metaphysics",
	"Political Philosophy",
	"Ancient History",
	"Medieval History",
	"Military History",
	"Natural History",
	"Astronomy",
	"Mathematics",
	"Medicine",
	"Theology",
	"Memoir",
	"Letters",
	"Speeches",
}

var (
	genreIndex    map[string]string // slug -> canonical name
	subgenreIndex map[string]string
)

func init() {
	genreIndex = buildIndex(primaryGenres)
	subgenreIndex = buildIndex(subgenres)
}

func buildIndex(names []string) map[string]string {
	idx := make(map[string]string, len(names))
	for _, name := range names {
		idx[Slugify(name)] = name
	}
	return idx
}

// Genres returns the primary genre list in taxonomy order.
func Genres() []string {
	return slices.Clone(primaryGenres)
}

// Subgenres returns the sub-genre list in taxonomy order.
func Subgenres() []string {
	return slices.Clone(subgenres)
}

// CanonicalGenre resolves name to its taxonomy spelling, matching
// case-insensitively and applying aliases. ok is false when name is not a
// primary genre.
func CanonicalGenre(name string) (canonical string, ok bool) {
	return canonicalize(name, genreIndex)
}

// CanonicalSubgenre resolves name against the sub-genre list.
func CanonicalSubgenre(name string) (canonical string, ok bool) {
	return canonicalize(name, subgenreIndex)
}

// canonicalize tries a direct index hit before consulting aliases, so a name
// that is valid in one list is never rerouted by an alias meant for the other.
func canonicalize(name string, index map[string]string) (string, bool) {
	slug := Slugify(name)
	if slug == "" {
		return "", false
	}
	if canonical, ok := index[slug]; ok {
		return canonical, true
	}
	if target, ok := aliases[slug]; ok {
		if canonical, ok := index[target]; ok {
			return canonical, true
		}
	}
	return "", false
}
