package zulip

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// LoadZuliprc reads credentials from a zuliprc file:
//
//	[api]
//	email=user@example.com
//	key=abcdef
//	site=https://chat.example.com
func LoadZuliprc(path string) (Credentials, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Credentials{}, err
	}

	api := f.Section("api")
	creds := Credentials{
		Email:  strings.TrimSpace(api.Key("email").String()),
		APIKey: strings.TrimSpace(api.Key("key").String()),
		Site:   strings.TrimSpace(api.Key("site").String()),
	}
	if creds.Email == "" || creds.APIKey == "" || creds.Site == "" {
		return Credentials{}, fmt.Errorf("%s: [api] section needs email, key and site", path)
	}
	return creds, nil
}
