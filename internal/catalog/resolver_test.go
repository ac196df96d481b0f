package catalog

import (
	"testing"

	"github.com/cognusion/go-osmdl/internal/xerrors"
	. "github.com/smartystreets/goconvey/convey"
)

func Test_Resolve(t *testing.T) {
	Convey("When resolving 'planet'", t, func() {
		url, filename, err := Resolve("planet")
		So(err, ShouldBeNil)
		So(url, ShouldEqual, PlanetOrigin+"/planet-latest.osm.pbf")
		So(filename, ShouldEqual, "planet-latest.osm.pbf")
	})

	Convey("When resolving a known continent", t, func() {
		url, filename, err := Resolve("europe")
		So(err, ShouldBeNil)
		So(url, ShouldEqual, GeofabrikOrigin+"/europe-latest.osm.pbf")
		So(filename, ShouldEqual, "europe-latest.osm.pbf")
	})

	Convey("When resolving a known continent/region", t, func() {
		url, filename, err := Resolve("europe/belgium")
		So(err, ShouldBeNil)
		So(url, ShouldEqual, GeofabrikOrigin+"/europe/belgium-latest.osm.pbf")
		So(filename, ShouldEqual, "belgium-latest.osm.pbf")
	})

	Convey("When resolving a syntactically valid continent/region not in the static catalog", t, func() {
		url, filename, err := Resolve("europe/hungary")
		So(err, ShouldBeNil)
		So(url, ShouldEqual, GeofabrikOrigin+"/europe/hungary-latest.osm.pbf")
		So(filename, ShouldEqual, "hungary-latest.osm.pbf")
	})

	Convey("When resolving an unknown bare continent token", t, func() {
		_, _, err := Resolve("atlantis")
		So(err, ShouldNotBeNil)

		e, ok := xerrors.AsError(err)
		So(ok, ShouldBeTrue)
		So(e.Code, ShouldEqual, xerrors.CodeSourceNotFound)
		So(e.Input, ShouldEqual, "atlantis")
	})

	Convey("When resolving a syntactically invalid identifier", t, func() {
		_, _, err := Resolve("Europe/Belgium!!")
		So(err, ShouldNotBeNil)

		e, ok := xerrors.AsError(err)
		So(ok, ShouldBeTrue)
		So(e.Code, ShouldEqual, xerrors.CodeSourceNotFound)
	})
}

func Test_DefaultFilename(t *testing.T) {
	Convey("DefaultFilename is total for any syntactically valid id", t, func() {
		So(DefaultFilename("planet"), ShouldEqual, "planet-latest.osm.pbf")
		So(DefaultFilename("europe"), ShouldEqual, "europe-latest.osm.pbf")
		So(DefaultFilename("europe/belgium"), ShouldEqual, "belgium-latest.osm.pbf")
		So(DefaultFilename("nonsense-but-shaped-ok"), ShouldEqual, "nonsense-but-shaped-ok-latest.osm.pbf")
	})
}

func Test_IsSyntacticallyValid(t *testing.T) {
	Convey("Shapes", t, func() {
		So(IsSyntacticallyValid("planet"), ShouldBeTrue)
		So(IsSyntacticallyValid("europe"), ShouldBeTrue)
		So(IsSyntacticallyValid("europe/belgium"), ShouldBeTrue)
		So(IsSyntacticallyValid(""), ShouldBeFalse)
		So(IsSyntacticallyValid("Europe"), ShouldBeFalse)
		So(IsSyntacticallyValid("europe/belgium/extra"), ShouldBeFalse)
		So(IsSyntacticallyValid("europe belgium"), ShouldBeFalse)
	})
}
