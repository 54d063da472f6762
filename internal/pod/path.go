/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package pod

import (
	"path"
	"strings"
)

// HashedPath splits a hex digest into depth 2-character prefix directories
// plus a remainder filename, e.g. "abcdef0123..." -> "ab/cd/ef0123...".
func HashedPath(digest string, depth int) string {
	if depth <= 0 || len(digest) <= depth*2 {
		return digest
	}
	parts := make([]string, 0, depth+1)
	for i := 0; i < depth; i++ {
		parts = append(parts, digest[i*2:i*2+2])
	}
	parts = append(parts, digest[depth*2:])
	return strings.Join(parts, "/")
}

// SplitHashedPath returns the directory and filename halves of
// HashedPath(digest, depth), so callers can Cd into the directory and
// Read/Write just the filename.
func SplitHashedPath(digest string, depth int) (dir, filename string) {
	full := HashedPath(digest, depth)
	i := strings.LastIndexByte(full, '/')
	if i < 0 {
		return "", full
	}
	return full[:i], full[i+1:]
}

// UnhashPath reverses HashedPath, collapsing "ab/cd/ef0123..." back into
// "abcdef0123...". Non-hashed-looking inputs are returned unchanged.
func UnhashPath(p string) string {
	return strings.ReplaceAll(path.Clean(p), "/", "")
}

// Join joins path segments lakota-style: '/'-separated, no leading slash,
// "." collapses to "".
func Join(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" || p == "." {
			continue
		}
		clean = append(clean, p)
	}
	if len(clean) == 0 {
		return ""
	}
	return path.Clean(strings.Join(clean, "/"))
}
