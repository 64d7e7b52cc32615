package accounts_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synodriver/davgate"
	"github.com/synodriver/davgate/accounts"
)

func writeAccountsFile(t *testing.T, list []davgate.Account) string {
	t.Helper()
	data, err := json.Marshal(list)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoad_InlineOnly(t *testing.T) {
	got, err := accounts.Load(accounts.Config{
		Inline: []davgate.Account{
			{Username: "alice", Password: "secret", Permissions: []string{"+"}},
			{Username: "bob", Password: "pw"},
		},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, "bob", got[1].Username)
}

func TestLoad_FileOnly(t *testing.T) {
	path := writeAccountsFile(t, []davgate.Account{
		{Username: "carol", Password: "pw", Permissions: []string{"+^/public"}, Admin: true},
	})

	got, err := accounts.Load(accounts.Config{File: path})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "carol", got[0].Username)
	assert.True(t, got[0].Admin)
	assert.Equal(t, []string{"+^/public"}, got[0].Permissions)
}

func TestLoad_FileOverridesInline(t *testing.T) {
	path := writeAccountsFile(t, []davgate.Account{
		{Username: "alice", Password: "from-file"},
		{Username: "dave", Password: "pw"},
	})

	got, err := accounts.Load(accounts.Config{
		Inline: []davgate.Account{
			{Username: "alice", Password: "from-inline"},
			{Username: "bob", Password: "pw"},
		},
		File: path,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Inline order is preserved; the file only overrides the password.
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, "from-file", got[0].Password)
	assert.Equal(t, "bob", got[1].Username)
	assert.Equal(t, "dave", got[2].Username)
}

func TestLoad_SkipsEmptyUsernames(t *testing.T) {
	got, err := accounts.Load(accounts.Config{
		Inline: []davgate.Account{
			{Username: "", Password: "pw"},
			{Username: "alice", Password: "secret"},
		},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Username)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := accounts.LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = accounts.LoadFromFile(path)
	assert.Error(t, err)
}
