package catalog

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func Test_Suggest(t *testing.T) {
	Convey("When given a misspelled continent, the closest catalog entry is suggested", t, func() {
		So(Suggest("austrailia"), ShouldEqual, "australia-oceania")
	})

	Convey("When given a misspelled composite identifier, the region is still found via its component", t, func() {
		So(Suggest("europe/belgum"), ShouldEqual, "europe/belgium")
	})

	Convey("When given gibberish, no suggestion clears the threshold", t, func() {
		So(Suggest("zzzzqqqqxxxx"), ShouldEqual, "")
	})

	Convey("Suggest is deterministic across repeated calls", t, func() {
		first := Suggest("austrailia")
		for i := 0; i < 20; i++ {
			So(Suggest("austrailia"), ShouldEqual, first)
		}
	})
}
