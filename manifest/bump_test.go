package manifest

import (
	"strings"
	"testing"

	"github.com/bgm-tracker/tracker/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNextVersion(t *testing.T) {
	Convey("NextVersion", t, func() {
		So(lo.Must(NextVersion("0.10.6", BumpPatch)), ShouldEqual, "0.10.7")
		So(lo.Must(NextVersion("0.10.6", BumpMinor)), ShouldEqual, "0.11.0")
		So(lo.Must(NextVersion("0.10.6", BumpMajor)), ShouldEqual, "1.0.0")
		So(lo.Must(NextVersion("0.10.6", "0.12.0")), ShouldEqual, "0.12.0")

		Convey("rejects an explicit version that does not move forward", func() {
			_, err := NextVersion("0.10.6", "0.10.6")
			So(err, ShouldNotBeNil)
			_, err = NextVersion("0.10.6", "0.9.0")
			So(err, ShouldNotBeNil)
		})

		Convey("rejects garbage targets", func() {
			_, err := NextVersion("0.10.6", "next")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestBumpVersion(t *testing.T) {
	Convey("Given a package descriptor", t, func() {
		seedPackage()
		before := lo.Must(filesystem.API().ReadFile(packagePath))
		oldManifest := lo.Must(FromPackageFile(packagePath, Options{}))

		Convey("When bumping the patch version", func() {
			previous, next, err := BumpVersion(packagePath, BumpPatch)
			So(err, ShouldBeNil)
			So(previous, ShouldEqual, "0.10.6")
			So(next, ShouldEqual, "0.10.7")

			Convey("Then only the version value changed in the file", func() {
				after := lo.Must(filesystem.API().ReadFile(packagePath))
				So(string(after), ShouldEqual, strings.Replace(string(before), `"0.10.6"`, `"0.10.7"`, 1))
			})

			Convey("Then only the version line of the header changed", func() {
				newManifest := lo.Must(FromPackageFile(packagePath, Options{}))
				oldLines := strings.Split(oldManifest.Header(), "\n")
				newLines := strings.Split(newManifest.Header(), "\n")
				So(len(newLines), ShouldEqual, len(oldLines))

				var changed []string
				for i := range oldLines {
					if oldLines[i] != newLines[i] {
						changed = append(changed, newLines[i])
					}
				}
				So(changed, ShouldResemble, []string{"// @version   0.10.7"})
			})
		})

		Convey("When the target is invalid the file is untouched", func() {
			_, _, err := BumpVersion(packagePath, "0.1.0")
			So(err, ShouldNotBeNil)
			So(string(lo.Must(filesystem.API().ReadFile(packagePath))), ShouldEqual, string(before))
		})
	})
}
