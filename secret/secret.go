// Package secret keeps the bgm.tv application secret in the system keyring.
package secret

import (
	"errors"

	"github.com/bgm-tracker/tracker/constant"
	"github.com/zalando/go-keyring"
)

const user = "bgm-app-secret"

// ErrNotFound is returned when no secret has been stored yet.
var ErrNotFound = keyring.ErrNotFound

// Set persists the application secret.
func Set(value string) error {
	if value == "" {
		return errors.New("secret must not be empty")
	}

	return keyring.Set(constant.App, user, value)
}

// Get retrieves the application secret.
func Get() (string, error) {
	return keyring.Get(constant.App, user)
}

// Delete removes the application secret.
func Delete() error {
	return keyring.Delete(constant.App, user)
}
