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

// Package lakotalog centralizes the one-line-per-event logging lakota does
// at commit/pull/gc/squash boundaries.
package lakotalog

import (
	"log"
	"os"
)

var std = log.New(os.Stderr, "[lakota] ", log.LstdFlags)

// Default returns the package-wide logger. Tests may replace it with
// log.New(io.Discard, "", 0) to silence output.
func Default() *log.Logger {
	return std
}

// SetOutput redirects the package-wide logger, mainly for tests.
func SetOutput(l *log.Logger) {
	std = l
}

func Debugf(format string, args ...any) {
	std.Printf("DEBUG "+format, args...)
}

func Infof(format string, args ...any) {
	std.Printf("INFO "+format, args...)
}

func Warnf(format string, args ...any) {
	std.Printf("WARN "+format, args...)
}
