/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package oui resolves MAC address prefixes to hardware vendors. The
// database is loaded once at startup; lookups afterwards are in-memory
// and never block.
package oui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var errMalformedLine = errors.New("malformed oui database line")

// Table maps 24-bit OUI prefixes to vendor names. Immutable after load,
// safe for concurrent lookups.
type Table struct {
	vendors map[string]string
}

// Load reads an OUI database in nmap-mac-prefixes format: one
// "PREFIX vendor name" pair per line, prefix as six hex digits,
// '#' comments and blank lines ignored.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open oui database: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads an OUI database from a reader. See Load for the format.
func Parse(r io.Reader) (*Table, error) {
	vendors := make(map[string]string)

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		prefix, vendor, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: line %d", errMalformedLine, lineNo)
		}

		prefix = strings.ToUpper(strings.TrimSpace(prefix))
		if len(prefix) != 6 {
			return nil, fmt.Errorf("%w: line %d: prefix %q", errMalformedLine, lineNo, prefix)
		}

		vendors[prefix] = strings.TrimSpace(vendor)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read oui database: %w", err)
	}

	return &Table{vendors: vendors}, nil
}

// Lookup returns the vendor for a MAC address, or "" when the prefix is
// not in the database. Accepts any common MAC notation.
func (t *Table) Lookup(mac string) string {
	if t == nil {
		return ""
	}

	prefix := ouiPrefix(mac)
	if prefix == "" {
		return ""
	}

	return t.vendors[prefix]
}

// Len reports how many prefixes the table holds.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.vendors)
}

// ouiPrefix extracts the first three octets of a MAC as six upper-case
// hex digits, stripping ':' and '-' separators.
func ouiPrefix(mac string) string {
	cleaned := strings.ToUpper(strings.NewReplacer(":", "", "-", "", ".", "").Replace(strings.TrimSpace(mac)))
	if len(cleaned) < 6 {
		return ""
	}

	return cleaned[:6]
}
