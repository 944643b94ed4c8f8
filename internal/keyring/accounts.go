package keyring

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/m96-chan/zterm/internal/consts"
)

// Account is a server login remembered across runs. The API key itself is
// kept in the system keyring, never in the registry file.
type Account struct {
	Site     string    `json:"site"`
	Email    string    `json:"email"`
	LastUsed time.Time `json:"last_used"`
}

const accountsFile = "accounts.json"

// accountsPath returns the path to the accounts registry file.
var accountsPath = func() string {
	return filepath.Join(consts.CacheDir, accountsFile)
}

// ListAccounts returns all remembered accounts, most recently used first.
func ListAccounts() ([]Account, error) {
	data, err := os.ReadFile(accountsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, err
	}
	slices.SortStableFunc(accounts, func(a, b Account) int {
		return b.LastUsed.Compare(a.LastUsed)
	})
	return accounts, nil
}

func saveAccounts(accounts []Account) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(accountsPath()), 0o700); err != nil {
		return err
	}
	return os.WriteFile(accountsPath(), data, 0o600)
}

// AddAccount stores the key in the keyring and marks the account as the most
// recently used. An existing entry for the same site and email is updated.
func AddAccount(site, email, key string) error {
	if err := SetAPIKey(site, email, key); err != nil {
		return err
	}

	accounts, err := ListAccounts()
	if err != nil {
		accounts = nil
	}

	now := time.Now()
	i := slices.IndexFunc(accounts, func(a Account) bool {
		return a.Site == site && a.Email == email
	})
	if i >= 0 {
		accounts[i].LastUsed = now
	} else {
		accounts = append(accounts, Account{Site: site, Email: email, LastUsed: now})
	}
	return saveAccounts(accounts)
}

// RemoveAccount forgets an account and deletes its key.
func RemoveAccount(site, email string) error {
	accounts, err := ListAccounts()
	if err != nil {
		return err
	}
	_ = DeleteAPIKey(site, email)

	accounts = slices.DeleteFunc(accounts, func(a Account) bool {
		return a.Site == site && a.Email == email
	})
	return saveAccounts(accounts)
}

// LastAccount returns the most recently used account, if any.
func LastAccount() (Account, bool) {
	accounts, err := ListAccounts()
	if err != nil || len(accounts) == 0 {
		return Account{}, false
	}
	return accounts[0], true
}
