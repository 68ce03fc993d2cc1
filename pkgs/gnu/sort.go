package gnu

import "slices"

/* Compare file names containing version numbers.

   Copyright (C) 1995 Ian Jackson <iwj10@cus.cam.ac.uk>
   Copyright (C) 2001 Anthony Towns <aj@azure.humbug.org.au>
   Copyright (C) 2008-2025 Free Software Foundation, Inc.

   This file is free software: you can redistribute it and/or modify
   it under the terms of the GNU Lesser General Public License as
   published by the Free Software Foundation, either version 3 of the
   License, or (at your option) any later version.

   This file is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU Lesser General Public License for more details.

   You should have received a copy of the GNU Lesser General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.  */

// Compare orders two version strings the way `sort -V` does and returns a
// negative number, zero or a positive number.
func Compare(a, b string) int {
	return verrevcmp([]byte(a), []byte(b))
}

// Latest returns the newest of versions, or "" for an empty list.
func Latest(versions []string) string {
	if len(versions) == 0 {
		return ""
	}
	return slices.MaxFunc(versions, Compare)
}

// verrevcmp walks both strings segment by segment: non-digit runs compare by
// order, digit runs compare by numeric value.
func verrevcmp(s1, s2 []byte) int {
	i, j := 0, 0
	for i < len(s1) || j < len(s2) {
		for (i < len(s1) && !isDigit(s1[i])) || (j < len(s2) && !isDigit(s2[j])) {
			c1, c2 := order(at(s1, i)), order(at(s2, j))
			if c1 != c2 {
				return c1 - c2
			}
			i++
			j++
		}
		for i < len(s1) && s1[i] == '0' {
			i++
		}
		for j < len(s2) && s2[j] == '0' {
			j++
		}
		diff := 0
		for i < len(s1) && j < len(s2) && isDigit(s1[i]) && isDigit(s2[j]) {
			if diff == 0 {
				diff = int(s1[i]) - int(s2[j])
			}
			i++
			j++
		}
		if i < len(s1) && isDigit(s1[i]) {
			return 1
		}
		if j < len(s2) && isDigit(s2[j]) {
			return -1
		}
		if diff != 0 {
			return diff
		}
	}
	return 0
}

func at(s []byte, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// order ranks a character: '~' first, then end of string and digits,
// then letters, then everything else.
func order(c byte) int {
	switch {
	case isDigit(c), c == 0:
		return 0
	case isAlpha(c):
		return int(c)
	case c == '~':
		return -1
	}
	return int(c) + 256
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
