// Package accounts loads user accounts for the credential store.
package accounts

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/synodriver/davgate"
)

// Config holds configuration for loading accounts.
type Config struct {
	Inline []davgate.Account `mapstructure:"inline"` // Inline accounts from config
	File   string            `mapstructure:"file"`   // Path to JSON file containing accounts
}

// Load collects accounts from both inline config and file (if specified),
// merging them into a single list. File accounts take precedence over inline
// accounts with the same username.
func Load(cfg Config) ([]davgate.Account, error) {
	byName := make(map[string]davgate.Account)
	order := make([]string, 0, len(cfg.Inline))

	add := func(a davgate.Account) {
		if a.Username == "" {
			return
		}
		if _, ok := byName[a.Username]; !ok {
			order = append(order, a.Username)
		}
		byName[a.Username] = a
	}

	for _, a := range cfg.Inline {
		add(a)
	}

	if cfg.File != "" {
		fileAccounts, err := LoadFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for _, a := range fileAccounts {
			add(a)
		}
	}

	out := make([]davgate.Account, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

// LoadFromFile loads accounts from a JSON file. The file should contain an
// array of accounts:
//
//	[
//	  {"username": "alice", "password": "secret", "permissions": ["+^/"], "admin": true},
//	  {"username": "guest", "password": "guest", "permissions": ["+^/public"]}
//	]
func LoadFromFile(path string) ([]davgate.Account, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	var list []davgate.Account
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}

	return list, nil
}
