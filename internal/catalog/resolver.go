package catalog

import (
	"regexp"
	"strings"

	"github.com/cognusion/go-osmdl/internal/xerrors"
)

// identifierShape matches the literal "planet", a single continent token,
// or a "continent/region" pair, per spec §3's Source identifier shapes.
var identifierShape = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*(/[a-z0-9][a-z0-9_-]*)?$`)

// IsSyntacticallyValid reports whether id has one of the three shapes the
// spec recognizes, independent of catalog membership.
func IsSyntacticallyValid(id string) bool {
	return id != "" && identifierShape.MatchString(id)
}

// DefaultFilename is total over every syntactically valid id: it never
// consults the catalog or the network.
func DefaultFilename(id string) string {
	if id == "planet" {
		return "planet-latest.osm.pbf"
	}
	leaf := id
	if i := strings.LastIndex(id, "/"); i >= 0 {
		leaf = id[i+1:]
	}
	return leaf + "-latest.osm.pbf"
}

// Resolve maps id to a download URL and a default local filename. Resolution
// is purely syntactic: a "continent/region" pair is never checked against
// the static catalog, which is not the source of truth for URL construction
// and only covers a small fraction of Geofabrik's real sub-regions (it
// exists solely to drive Suggest). A bare continent token is checked against
// the catalog, since that's a small closed set and a typo there (e.g.
// "austrailia") should fail fast with a suggestion rather than build a URL
// that 404s. Resolve fails with xerrors.SourceNotFound (carrying a fuzzy
// suggestion when one clears the threshold) for anything else. Resolution
// never touches the network.
func Resolve(id string) (url, filename string, err error) {
	if id == "planet" {
		return PlanetOrigin + "/planet-latest.osm.pbf", DefaultFilename(id), nil
	}

	if !IsSyntacticallyValid(id) {
		return "", "", xerrors.SourceNotFound(id, Suggest(id))
	}
	if !strings.Contains(id, "/") && !Known(id) {
		return "", "", xerrors.SourceNotFound(id, Suggest(id))
	}

	return GeofabrikOrigin + "/" + id + "-latest.osm.pbf", DefaultFilename(id), nil
}
