package keyring

import (
	"os"
	"strings"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/m96-chan/zterm/internal/consts"
)

// ErrNotFound is returned when no key is stored for an account.
var ErrNotFound = gokeyring.ErrNotFound

// accountKey is the keyring user name for an account: the email plus the
// site host, so one email can hold keys for several servers.
func accountKey(site, email string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(site, "https://"), "http://")
	return email + "@" + strings.TrimRight(host, "/")
}

// GetAPIKey returns the API key from the ZTERM_API_KEY env var, falling back
// to the system keyring.
func GetAPIKey(site, email string) (string, error) {
	if v := os.Getenv(consts.APIKeyEnv); v != "" {
		return v, nil
	}
	return gokeyring.Get(consts.Name, accountKey(site, email))
}

// SetAPIKey stores the API key in the system keyring.
func SetAPIKey(site, email, key string) error {
	return gokeyring.Set(consts.Name, accountKey(site, email), key)
}

// DeleteAPIKey removes the API key from the system keyring.
func DeleteAPIKey(site, email string) error {
	return gokeyring.Delete(consts.Name, accountKey(site, email))
}
