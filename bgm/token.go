package bgm

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// TokenResponse is the raw JSON document returned by the token endpoint.
// It is kept as bytes so fields this package does not know about survive untouched.
type TokenResponse struct {
	Body       []byte
	Date       time.Time
	StatusCode int
}

// HasError reports whether bgm.tv rejected the grant.
func (t *TokenResponse) HasError() bool {
	return gjson.GetBytes(t.Body, "error").Exists()
}

// UserID is the bgm.tv user the token belongs to, as a decimal string.
func (t *TokenResponse) UserID() string {
	return gjson.GetBytes(t.Body, "user_id").String()
}

// Stamp records auth_time (unix seconds of the upstream Date header) and,
// when withID is set, mirrors user_id into _id.
func (t *TokenResponse) Stamp(withID bool) ([]byte, error) {
	out, err := sjson.SetBytes(t.Body, "auth_time", t.Date.Unix())
	if err != nil {
		return nil, fmt.Errorf("set auth_time: %w", err)
	}

	if id := gjson.GetBytes(t.Body, "user_id"); withID && id.Exists() {
		out, err = sjson.SetRawBytes(out, "_id", []byte(id.Raw))
		if err != nil {
			return nil, fmt.Errorf("set _id: %w", err)
		}
	}
	return out, nil
}

// ExampleToken is rendered by the callback page when it is opened without an authorization code.
const ExampleToken = `{"_id":1,"access_token":"example_access_token","expires_in":604800,"token_type":"Bearer","scope":null,"user_id":1,"refresh_token":"example_refresh_token","auth_time":1529418738}`
