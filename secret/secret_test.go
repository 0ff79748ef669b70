package secret

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/zalando/go-keyring"
)

func init() {
	keyring.MockInit()
}

func TestSecret(t *testing.T) {
	Convey("Given an empty keyring", t, func() {
		_ = Delete()

		Convey("Get should report a missing secret", func() {
			_, err := Get()
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("Set should reject an empty value", func() {
			So(Set(""), ShouldNotBeNil)
		})

		Convey("A stored secret should round trip until deleted", func() {
			So(Set("s3cret"), ShouldBeNil)

			value, err := Get()
			So(err, ShouldBeNil)
			So(value, ShouldEqual, "s3cret")

			So(Delete(), ShouldBeNil)
			_, err = Get()
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}
