package consts

import (
	"os"
	"path/filepath"
)

const Name = "zterm"

// APIKeyEnv overrides the keyring when set.
const APIKeyEnv = "ZTERM_API_KEY"

var CacheDir string

func init() {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	CacheDir = filepath.Join(dir, Name)
	os.MkdirAll(CacheDir, 0o700)
}
