// Package accounting maps drivers to their exact debnr, the debtor number
// used by the invoicing system.
package accounting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mapping is an immutable driver UUID to debnr lookup. Build one per process
// start, or per cycle when the file is expected to change.
type Mapping struct {
	codes map[string]string
}

// file is the on-disk layout:
//
//	codes:
//	  <bolt driver uuid>: "<debnr>"
type file struct {
	Codes map[string]string `yaml:"codes"`
}

// NewMapping builds a mapping from an in-memory table.
func NewMapping(codes map[string]string) *Mapping {
	m := &Mapping{codes: make(map[string]string, len(codes))}
	for driver, code := range codes {
		driver = strings.TrimSpace(driver)
		code = strings.TrimSpace(code)
		if driver == "" || code == "" {
			continue
		}
		m.codes[driver] = code
	}
	return m
}

// Load reads a mapping file. An empty path yields an empty mapping.
func Load(path string) (*Mapping, error) {
	if path == "" {
		return NewMapping(nil), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open accounting codes: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a mapping from r.
func Parse(r io.Reader) (*Mapping, error) {
	var doc file
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return NewMapping(nil), nil
		}
		return nil, fmt.Errorf("decode accounting codes: %w", err)
	}
	return NewMapping(doc.Codes), nil
}

// Lookup returns the debnr for a driver.
func (m *Mapping) Lookup(driverUUID string) (string, bool) {
	if m == nil {
		return "", false
	}
	code, ok := m.codes[driverUUID]
	return code, ok
}

// Len returns the number of mapped drivers.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.codes)
}
