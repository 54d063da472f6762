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

package frame

// Closed names which ends of an index range are inclusive.
type Closed string

const (
	ClosedLeft  Closed = "left"
	ClosedRight Closed = "right"
	ClosedBoth  Closed = "both"
	ClosedNone  Closed = "none"
)

func (c Closed) IncludesLeft() bool  { return c == ClosedLeft || c == ClosedBoth }
func (c Closed) IncludesRight() bool { return c == ClosedRight || c == ClosedBoth }

// LeftHalf and RightHalf keep one side of the closed flag — used when
// Commit.Update splits a row into a left remnant (keeps only the "left or
// none" half of the original closed flag) and a right remnant (keeps
// "right or none").
func (c Closed) LeftHalf() Closed {
	if c.IncludesLeft() {
		return ClosedLeft
	}
	return ClosedNone
}

func (c Closed) RightHalf() Closed {
	if c.IncludesRight() {
		return ClosedRight
	}
	return ClosedNone
}
