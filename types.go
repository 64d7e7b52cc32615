package davgate

import (
	"encoding/base64"
	"fmt"
	"regexp"
)

// Account is the configuration-level description of a user, as it appears in
// config files or account JSON files.
type Account struct {
	Username    string   `json:"username" mapstructure:"username"`
	Password    string   `json:"password" mapstructure:"password"`
	Permissions []string `json:"permissions" mapstructure:"permissions"`
	Admin       bool     `json:"admin" mapstructure:"admin"`
}

// permissionRule is one compiled entry of a user's permission list. A rule
// string is a sign character followed by a regex, e.g. "+^/public" or
// "-^/public/secret". The regex is matched against the start of a path; a
// bare sign carries an empty regex and matches every path.
type permissionRule struct {
	allow bool
	re    *regexp.Regexp
}

// User is an immutable, verified account loaded at startup. It is shared
// read-only across concurrent requests.
type User struct {
	Username    string
	Password    string
	Permissions []string
	Admin       bool

	rules []permissionRule
}

// NewUser compiles the permission rules of an account into a User.
func NewUser(account Account) (*User, error) {
	u := &User{
		Username:    account.Username,
		Password:    account.Password,
		Permissions: account.Permissions,
		Admin:       account.Admin,
	}

	for _, p := range account.Permissions {
		if p == "" || (p[0] != '+' && p[0] != '-') {
			return nil, fmt.Errorf("user %q: permission rule %q must start with '+' or '-': %w",
				account.Username, p, ErrInvalidInput)
		}
		re, err := regexp.Compile(p[1:])
		if err != nil {
			return nil, fmt.Errorf("user %q: permission rule %q: %w", account.Username, p, err)
		}
		u.rules = append(u.rules, permissionRule{allow: p[0] == '+', re: re})
	}

	return u, nil
}

// CheckPaths reports whether every path is allowed by the user's permission
// rules. Admin users are always allowed. A path with no matching rule is
// denied; when several rules match, the last one wins.
func (u *User) CheckPaths(paths []string) bool {
	if u.Admin {
		return true
	}
	for _, path := range paths {
		allowed := false
		matched := false
		for _, rule := range u.rules {
			if MatchPrefix(rule.re, path) {
				matched = true
				allowed = rule.allow
			}
		}
		if !matched || !allowed {
			return false
		}
	}
	return true
}

func (u *User) String() string {
	return fmt.Sprintf("DAVUser(%s, admin=%t, permissions=%v)", u.Username, u.Admin, u.Permissions)
}

// BasicCredential returns the precomputed Basic credential token for a
// username/password pair: base64(username + ":" + password).
func BasicCredential(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// CredentialStore is the read-only user registry built once at startup.
// Lookups are safe for concurrent use; the store is never mutated after
// construction.
type CredentialStore struct {
	byUsername map[string]*User
	byBasic    map[string]*User
}

// NewCredentialStore compiles the configured accounts into a store. Two
// accounts producing the same Basic credential string resolve
// last-write-wins.
func NewCredentialStore(accounts []Account) (*CredentialStore, error) {
	s := &CredentialStore{
		byUsername: make(map[string]*User, len(accounts)),
		byBasic:    make(map[string]*User, len(accounts)),
	}

	for _, account := range accounts {
		user, err := NewUser(account)
		if err != nil {
			return nil, err
		}
		s.byUsername[user.Username] = user
		s.byBasic[BasicCredential(user.Username, user.Password)] = user
	}

	return s, nil
}

// FindByUsername looks up a user by username.
func (s *CredentialStore) FindByUsername(username string) (*User, bool) {
	u, ok := s.byUsername[username]
	return u, ok
}

// FindByBasic looks up a user by the base64 token of a Basic Authorization
// header. The token is compared in its encoded form; no decoding happens.
func (s *CredentialStore) FindByBasic(credential string) (*User, bool) {
	u, ok := s.byBasic[credential]
	return u, ok
}

// Len returns the number of registered users.
func (s *CredentialStore) Len() int {
	return len(s.byUsername)
}
