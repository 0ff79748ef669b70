package manifest

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParsePackage(t *testing.T) {
	Convey("ParsePackage", t, func() {
		Convey("reads a string author and repository object", func() {
			pkg, err := ParsePackage([]byte(`{"version":"1.2.3","author":"Trim21","repository":{"url":"git+https://example.com/repo.git"}}`))
			So(err, ShouldBeNil)
			So(pkg, ShouldResemble, &Package{Version: "1.2.3", Author: "Trim21", Source: "git+https://example.com/repo.git"})
		})

		Convey("formats an author object npm-style", func() {
			pkg, err := ParsePackage([]byte(`{"version":"1.0.0","author":{"name":"Trim21","email":"a@b.c","url":"https://trim21.me"},"repository":"github:Trim21/repo"}`))
			So(err, ShouldBeNil)
			So(pkg.Author, ShouldEqual, "Trim21 <a@b.c> (https://trim21.me)")
			So(pkg.Source, ShouldEqual, "github:Trim21/repo")
		})

		Convey("keeps the version string verbatim", func() {
			pkg, err := ParsePackage([]byte(`{"version":"2.0.0-beta.1","author":"x","repository":"y"}`))
			So(err, ShouldBeNil)
			So(pkg.Version, ShouldEqual, "2.0.0-beta.1")
		})

		Convey("rejects invalid JSON", func() {
			_, err := ParsePackage([]byte(`{"version":`))
			So(errors.Is(err, ErrMalformedPackage), ShouldBeTrue)
		})

		Convey("rejects a non-object document", func() {
			_, err := ParsePackage([]byte(`["1.0.0"]`))
			So(errors.Is(err, ErrMalformedPackage), ShouldBeTrue)
		})

		Convey("rejects a non-semver version", func() {
			_, err := ParsePackage([]byte(`{"version":"latest","author":"x","repository":"y"}`))
			So(errors.Is(err, ErrMalformedPackage), ShouldBeTrue)
		})

		Convey("rejects control characters that would inject header lines", func() {
			for _, tc := range []struct{ name, doc string }{
				{"author string", `{"version":"1.0.0","author":"Trim21\n// @grant none","repository":"y"}`},
				{"author object", `{"version":"1.0.0","author":{"name":"Trim21","email":"a@b.c\r\n// @connect *"},"repository":"y"}`},
				{"repository string", `{"version":"1.0.0","author":"x","repository":"https://example.com\n// @require https://evil.example/x.js"}`},
				{"repository url", `{"version":"1.0.0","author":"x","repository":{"url":"https://example.com\u0000"}}`},
			} {
				Convey(tc.name, func() {
					_, err := ParsePackage([]byte(tc.doc))
					So(errors.Is(err, ErrMalformedPackage), ShouldBeTrue)
				})
			}
		})

		Convey("reports each missing field", func() {
			for _, tc := range []struct{ name, doc string }{
				{"version", `{"author":"x","repository":"y"}`},
				{"numeric version", `{"version":1,"author":"x","repository":"y"}`},
				{"author", `{"version":"1.0.0","repository":"y"}`},
				{"author name", `{"version":"1.0.0","author":{"email":"a@b.c"},"repository":"y"}`},
				{"repository", `{"version":"1.0.0","author":"x"}`},
				{"repository url", `{"version":"1.0.0","author":"x","repository":{"type":"git"}}`},
			} {
				Convey(tc.name, func() {
					_, err := ParsePackage([]byte(tc.doc))
					So(errors.Is(err, ErrMissingField), ShouldBeTrue)
				})
			}
		})
	})
}
