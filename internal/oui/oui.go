package oui

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// builtin covers vendors commonly seen on MikroTik wireless networks.
var builtin = map[string]string{
	"000C42": "MikroTik",
	"4C5E0C": "MikroTik",
	"6C3B6B": "MikroTik",
	"B869F4": "MikroTik",
	"DC2C6E": "MikroTik",
	"3C0754": "Apple",
	"A4B197": "Apple",
	"F0DBE2": "Apple",
	"002590": "Super Micro",
	"B827EB": "Raspberry Pi",
	"DCA632": "Raspberry Pi",
}

// DB maps the first three MAC octets to a vendor name.
type DB struct {
	vendors map[string]string
}

// Default returns the built-in vendor table.
func Default() *DB {
	db := &DB{vendors: make(map[string]string, len(builtin))}
	for prefix, vendor := range builtin {
		db.vendors[prefix] = vendor
	}
	return db
}

// Load parses a JSON object of prefix to vendor and merges it over the
// built-in table.
func Load(data []byte) (*DB, error) {
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	db := Default()
	for k, v := range m {
		if prefix := normalizePrefix(k); len(prefix) == 6 {
			db.vendors[prefix] = strings.TrimSpace(v)
		}
	}
	return db, nil
}

// LoadFile reads a JSON vendor table from disk. An empty path yields the
// built-in table.
func LoadFile(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read oui file: %w", err)
	}
	return Load(data)
}

// Lookup returns the vendor of mac, or "" when it is not known.
func (db *DB) Lookup(mac string) string {
	if db == nil {
		return ""
	}
	return db.vendors[normalizePrefix(mac)]
}

func (db *DB) Len() int {
	if db == nil {
		return 0
	}
	return len(db.vendors)
}

func normalizePrefix(v string) string {
	replacer := strings.NewReplacer(":", "", "-", "", ".", "")
	v = strings.ToUpper(strings.TrimSpace(replacer.Replace(v)))
	if len(v) >= 6 {
		return v[:6]
	}
	return v
}
