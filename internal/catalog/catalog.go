// Package catalog implements the Source Resolver and the process-wide
// Source Catalog (spec §3, §4.1): mapping a short identifier such as
// "planet" or "europe/belgium" to a download URL and default filename, and,
// on a miss, proposing the closest valid identifier.
package catalog

import "sync"

// Origins for the two supported upstreams. Resolution is purely syntactic;
// neither is contacted during Resolve.
const (
	PlanetOrigin    = "https://planet.openstreetmap.org/pbf"
	GeofabrikOrigin = "https://download.geofabrik.de"
)

var (
	catalogOnce sync.Once
	catalogIDs  []string
)

// catalog returns the static, immutable set of known identifiers, building
// it once lazily on first use and reusing it for the remainder of the
// process's lifetime (spec §3, §9).
func catalog() []string {
	catalogOnce.Do(func() {
		catalogIDs = []string{
			"africa",
			"antarctica",
			"asia",
			"australia-oceania",
			"central-america",
			"europe",
			"north-america",
			"south-america",

			"africa/egypt",
			"africa/kenya",
			"africa/morocco",
			"africa/nigeria",
			"africa/south-africa",

			"asia/china",
			"asia/india",
			"asia/indonesia",
			"asia/israel-and-palestine",
			"asia/japan",
			"asia/kazakhstan",
			"asia/south-korea",
			"asia/thailand",
			"asia/turkey",

			"australia-oceania/australia",
			"australia-oceania/new-zealand",

			"central-america/guatemala",
			"central-america/mexico",

			"europe/austria",
			"europe/belgium",
			"europe/denmark",
			"europe/finland",
			"europe/france",
			"europe/germany",
			"europe/great-britain",
			"europe/greece",
			"europe/ireland-and-northern-ireland",
			"europe/italy",
			"europe/netherlands",
			"europe/norway",
			"europe/poland",
			"europe/portugal",
			"europe/russia",
			"europe/spain",
			"europe/sweden",
			"europe/switzerland",
			"europe/ukraine",

			"north-america/canada",
			"north-america/greenland",
			"north-america/us",

			"south-america/argentina",
			"south-america/brazil",
			"south-america/chile",
			"south-america/colombia",
			"south-america/peru",
		}
	})
	return catalogIDs
}

// Known reports whether id is present in the static catalog.
func Known(id string) bool {
	for _, c := range catalog() {
		if c == id {
			return true
		}
	}
	return false
}

// All returns a copy of the static catalog, safe for a caller to range over
// without synchronizing against a later lazy-init (there isn't one: the
// slice is immutable post-init).
func All() []string {
	src := catalog()
	out := make([]string, len(src))
	copy(out, src)
	return out
}
