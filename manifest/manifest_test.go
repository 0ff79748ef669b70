package manifest

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/bgm-tracker/tracker/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

const packagePath = "/project/package.json"

func init() {
	filesystem.SetMemMapFs()
}

// seedPackage copies testdata/package.json into the in-memory filesystem.
func seedPackage() {
	data := lo.Must(os.ReadFile("testdata/package.json"))
	lo.Must0(filesystem.API().WriteFile(packagePath, data, 0o644))
}

func TestDeclaration(t *testing.T) {
	Convey("The tracker declaration", t, func() {
		So(Tracker.Name, ShouldEqual, "Bgm.tv auto tracker")
		So(Tracker.Namespace, ShouldEqual, "https://trim21.me/")
		So(Tracker.License, ShouldEqual, "MIT")
		So(Tracker.RunAt, ShouldEqual, DocumentEnd)

		So(Tracker.Match, ShouldResemble, []string{
			"https://www.bilibili.com/bangumi/play/*",
			"http*://www.iqiyi.com/*",
			"https://bangumi-auto-tracker.trim21.cn/oauth_callback*",
			"https://bangumi-auto-tracker.trim21.cn/userscript/options*",
		})

		So(Tracker.Require, ShouldResemble, []string{
			"https://cdn.bootcss.com/jquery/3.3.1/jquery.min.js",
			"https://cdn.bootcss.com/axios/0.18.0/axios.js",
		})

		So(Tracker.Grant, ShouldResemble, []string{
			"GM_addStyle",
			"GM_setValue",
			"GM_getValue",
			"GM_openInTab",
			"GM_addStyle",
			"GM_xmlhttpRequest",
			"unsafeWindow",
		})

		So(Tracker.Connect, ShouldResemble, []string{
			"localhost",
			"api.bgm.tv",
			"bangumi-auto-tracker.trim21.cn",
		})
	})
}

func TestBuild(t *testing.T) {
	Convey("Given a package descriptor", t, func() {
		seedPackage()
		pkg, err := LoadPackage(packagePath)
		So(err, ShouldBeNil)

		Convey("When building the tracker manifest", func() {
			m, err := Build(Tracker, pkg, Options{})
			So(err, ShouldBeNil)

			Convey("Then derived fields equal the descriptor's", func() {
				So(m.Version, ShouldEqual, pkg.Version)
				So(m.Author, ShouldEqual, pkg.Author)
				So(m.Source, ShouldEqual, pkg.Source)
			})

			Convey("Then repeated grants are collapsed in declaration order", func() {
				So(m.Grant, ShouldResemble, []string{
					"GM_addStyle",
					"GM_setValue",
					"GM_getValue",
					"GM_openInTab",
					"GM_xmlhttpRequest",
					"unsafeWindow",
				})
			})

			Convey("Then the manifest does not share slices with the declaration", func() {
				m.Match[0] = "changed"
				So(Tracker.Match[0], ShouldEqual, "https://www.bilibili.com/bangumi/play/*")
			})
		})

		Convey("When duplicates are kept", func() {
			m, err := Build(Tracker, pkg, Options{KeepDuplicateGrants: true})
			So(err, ShouldBeNil)
			So(m.Grant, ShouldResemble, Tracker.Grant)
		})

		Convey("When the declaration is invalid", func() {
			Convey("unknown run-at", func() {
				decl := Tracker
				decl.RunAt = "document-later"
				_, err := Build(decl, pkg, Options{})
				So(errors.Is(err, ErrInvalidDeclaration), ShouldBeTrue)
			})

			Convey("bad connect host", func() {
				decl := Tracker
				decl.Connect = []string{"api.bgm.tv/path"}
				_, err := Build(decl, pkg, Options{})
				So(errors.Is(err, ErrInvalidDeclaration), ShouldBeTrue)
			})

			Convey("relative require", func() {
				decl := Tracker
				decl.Require = []string{"jquery.min.js"}
				_, err := Build(decl, pkg, Options{})
				So(errors.Is(err, ErrInvalidDeclaration), ShouldBeTrue)
			})

			Convey("line break in a grant", func() {
				decl := Tracker
				decl.Grant = []string{"GM_addStyle\n// @grant none"}
				_, err := Build(decl, pkg, Options{})
				So(errors.Is(err, ErrInvalidDeclaration), ShouldBeTrue)
			})

			Convey("match without scheme", func() {
				decl := Tracker
				decl.Match = []string{"www.bilibili.com/*"}
				_, err := Build(decl, pkg, Options{})
				So(errors.Is(err, ErrInvalidDeclaration), ShouldBeTrue)
			})
		})

		Convey("Wildcard connect keywords are accepted", func() {
			decl := Tracker
			decl.Connect = []string{"*", "self"}
			_, err := Build(decl, pkg, Options{})
			So(err, ShouldBeNil)
		})

		Convey("A nil descriptor is rejected", func() {
			_, err := Build(Tracker, nil, Options{})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRender(t *testing.T) {
	Convey("Given a built manifest", t, func() {
		seedPackage()
		m, err := FromPackageFile(packagePath, Options{})
		So(err, ShouldBeNil)

		Convey("Header matches the golden file", func() {
			golden := string(lo.Must(os.ReadFile("testdata/header.golden")))
			So(m.Header(), ShouldEqual, golden)
		})

		Convey("Rebuilding from the same descriptor is byte-identical", func() {
			again, err := FromPackageFile(packagePath, Options{})
			So(err, ShouldBeNil)
			So(again.Header(), ShouldEqual, m.Header())
			So(string(lo.Must(again.JSON())), ShouldEqual, string(lo.Must(m.JSON())))
		})

		Convey("JSON keeps field order and does not escape the author", func() {
			out := string(lo.Must(m.JSON()))
			So(out, ShouldContainSubstring, `"author": "Trim21 <trim21me@gmail.com>"`)
			So(out, ShouldContainSubstring, `"run-at": "document-end"`)
			So(strings.Index(out, `"name"`), ShouldBeLessThan, strings.Index(out, `"run-at"`))
			So(strings.Index(out, `"match"`), ShouldBeLessThan, strings.Index(out, `"require"`))
		})
	})

	Convey("Given a missing descriptor", t, func() {
		_, err := FromPackageFile("/nowhere/package.json", Options{})
		So(err, ShouldNotBeNil)
	})
}

func TestSchema(t *testing.T) {
	Convey("Schema", t, func() {
		schema := Schema()
		So(schema, ShouldNotBeNil)

		runAt, ok := schema.Properties.Get("run-at")
		So(ok, ShouldBeTrue)
		So(runAt.Enum, ShouldContain, "document-end")

		So(schema.Required, ShouldContain, "version")
		So(schema.Required, ShouldContain, "grant")
	})
}
