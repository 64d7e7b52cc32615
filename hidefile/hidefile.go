// Package hidefile decides which directory entries are hidden from listings
// based on the client user agent and configured regex rules.
//
// Rules map a user-agent regex to a filename regex. Rules sharing a
// user-agent pattern are merged by alternation at construction time, and the
// fallback rule (keyed by the empty pattern) is merged into every other rule
// so that fallback patterns always apply in addition to agent-specific ones.
// All matching is prefix-anchored: a pattern applies if it matches starting
// at position 0 of the string.
package hidefile

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/synodriver/davgate"
)

// Default rules hiding the metadata junk common WebDAV clients litter into
// listings, keyed by fragments of their user-agent strings.
var defaultRules = [][2]string{
	// macOS Finder and friends
	{"WebDAVFS", `^\.(_|DS_Store|Spotlight-V100|TemporaryItems|Trashes|fseventsd|apdisk)`},
	// Windows WebDAV redirector and Explorer
	{"Microsoft-WebDAV-MiniRedir", `^(Thumbs\.db|desktop\.ini)`},
	// Synology DSM
	{"Synology", `^(#recycle|@eaDir)`},
}

// Config is the directory-hide surface of the gateway configuration.
type Config struct {
	Enable             bool              `mapstructure:"enable"`
	EnableDefaultRules bool              `mapstructure:"enable_default_rules"`
	// UserRules maps a user-agent regex to a filename regex. The empty
	// key is the fallback rule applied to every client.
	UserRules map[string]string `mapstructure:"user_rules"`
}

type rule struct {
	uaPattern string
	ua        *regexp.Regexp
	fileName  *regexp.Regexp
}

// Filter answers whether a directory entry should be hidden for a client.
// The compiled rules are immutable; the user-agent resolution cache is the
// only mutable state and is guarded by a mutex because concurrent requests
// race to populate it.
type Filter struct {
	enabled bool
	rules   []rule
	// fallback applies when no user-agent rule matches.
	fallback *regexp.Regexp

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// New compiles the configured rules into a Filter.
func New(cfg Config) (*Filter, error) {
	f := &Filter{
		enabled: cfg.Enable,
		cache:   make(map[string]*regexp.Regexp),
	}
	if !cfg.Enable {
		return f, nil
	}

	// Merge rules that share a user-agent pattern by alternation,
	// preserving insertion order: defaults first, then user rules in
	// sorted order for determinism.
	order := make([]string, 0, len(defaultRules)+len(cfg.UserRules))
	merged := make(map[string]string)
	add := func(uaPattern, fileNameRegex string) {
		if existing, ok := merged[uaPattern]; ok {
			merged[uaPattern] = existing + "|" + fileNameRegex
			return
		}
		merged[uaPattern] = fileNameRegex
		order = append(order, uaPattern)
	}

	if cfg.EnableDefaultRules {
		for _, r := range defaultRules {
			add(r[0], r[1])
		}
	}
	userKeys := make([]string, 0, len(cfg.UserRules))
	for k := range cfg.UserRules {
		userKeys = append(userKeys, k)
	}
	sort.Strings(userKeys)
	for _, k := range userKeys {
		add(k, cfg.UserRules[k])
	}

	// The fallback rule is merged into every user-agent rule too.
	fallbackExpr, hasFallback := merged[""]

	for _, uaPattern := range order {
		if uaPattern == "" {
			continue
		}
		expr := merged[uaPattern]
		if hasFallback {
			expr = expr + "|" + fallbackExpr
		}
		uaRe, err := regexp.Compile(uaPattern)
		if err != nil {
			return nil, fmt.Errorf("compile user agent rule %q: %w", uaPattern, err)
		}
		fileRe, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile hide rule %q for agent %q: %w", expr, uaPattern, err)
		}
		f.rules = append(f.rules, rule{uaPattern: uaPattern, ua: uaRe, fileName: fileRe})
	}

	if hasFallback {
		re, err := regexp.Compile(fallbackExpr)
		if err != nil {
			return nil, fmt.Errorf("compile fallback hide rule %q: %w", fallbackExpr, err)
		}
		f.fallback = re
	}

	return f, nil
}

// ResolveRule returns the filename-hiding regex for a user agent, or nil
// when no rule applies. The first matching rule in insertion order wins and
// the resolution is cached; the fallback path is deterministic and cheap,
// so it is recomputed rather than cached.
func (f *Filter) ResolveRule(userAgent string) *regexp.Regexp {
	f.mu.Lock()
	if re, ok := f.cache[userAgent]; ok {
		f.mu.Unlock()
		return re
	}
	f.mu.Unlock()

	for _, r := range f.rules {
		if davgate.MatchPrefix(r.ua, userAgent) {
			f.mu.Lock()
			f.cache[userAgent] = r.fileName
			f.mu.Unlock()
			return r.fileName
		}
	}

	return f.fallback
}

// ShouldHide reports whether the named entry is hidden from the listing
// presented to the given user agent. A disabled filter hides nothing.
func (f *Filter) ShouldHide(userAgent, fileName string) bool {
	if !f.enabled {
		return false
	}
	re := f.ResolveRule(userAgent)
	if re == nil {
		return false
	}
	return davgate.MatchPrefix(re, fileName)
}
