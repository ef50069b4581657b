package oui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndLookup(t *testing.T) {
	db, err := Load([]byte(`{"AABBCC":"VendorX","00-0C-42":"MikroTik Latvia"}`))
	require.NoError(t, err)

	assert.Equal(t, "MikroTik Latvia", db.Lookup("00:0c:42:11:22:33"))
	assert.Equal(t, "VendorX", db.Lookup("AA-BB-CC-01-02-03"))
	assert.Equal(t, "Raspberry Pi", db.Lookup("b8:27:eb:00:00:01"))
	assert.Empty(t, db.Lookup("11:22:33:44:55:66"))
	assert.Empty(t, db.Lookup(""))
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	_, err := Load([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	db, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, len(builtin), db.Len())

	path := filepath.Join(t.TempDir(), "oui.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"112233":"Acme"}`), 0o600))
	db, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme", db.Lookup("11:22:33:44:55:66"))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNilDB(t *testing.T) {
	var db *DB
	assert.Empty(t, db.Lookup("00:0C:42:00:00:00"))
	assert.Zero(t, db.Len())
}
