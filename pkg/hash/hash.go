// Package hash computes the 32-bit identifiers used to address widgets.
//
// Identifiers are CRC32 (IEEE) checksums chained through the GUI library's
// identifier stack: pushing "Window" then "Button" yields the same value as
// hashing "WindowButton" in one pass, because each level uses the previous
// identifier as its seed. DecoratedPath exploits this to turn a slash
// separated path such as "Window/Tree/Button" into the identifier of the
// widget submitted at that nesting.
package hash

import "hash/crc32"

// String hashes a widget label the way the GUI library does when it pushes
// the label onto its identifier stack. A "###" sequence resets the checksum
// to seed and is itself skipped, so "Save###file" and "file" share an ID.
func String(s string, seed uint32) uint32 {
	crc := ^seed
	for i := 0; i < len(s); i++ {
		if s[i] == '#' && i+2 < len(s) && s[i+1] == '#' && s[i+2] == '#' {
			crc = ^seed
			i += 2
			continue
		}
		crc = update(crc, s[i])
	}
	return ^crc
}

// DecoratedPath hashes a slash separated widget path.
//
//   - A leading '/' ignores seed and hashes from zero (absolute path).
//   - Unescaped '/' separators are not hashed.
//   - '\' escapes the next byte, so "\/" hashes a literal slash.
//   - "###" resets the checksum to the seed of the current segment.
func DecoratedPath(path string, seed uint32) uint32 {
	if len(path) > 0 && path[0] == '/' {
		seed = 0
	}
	segSeed := ^seed
	crc := segSeed
	escaped := false
	for i := 0; i < len(path); i++ {
		c := path[i]
		if escaped {
			escaped = false
			crc = update(crc, c)
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '/':
			segSeed = crc
		case c == '#' && i+2 < len(path) && path[i+1] == '#' && path[i+2] == '#':
			crc = segSeed
			i += 2
		default:
			crc = update(crc, c)
		}
	}
	return ^crc
}

func update(crc uint32, c byte) uint32 {
	return (crc >> 8) ^ crc32.IEEETable[byte(crc)^c]
}
