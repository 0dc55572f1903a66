package upgrades

import "strings"

// Repair drops the lines of removed blocks and keeps every other line
// verbatim and in order. removed is indexed like blocks.
func Repair(text string, blocks []Block, removed []bool) string {
	lines := strings.Split(text, "\n")
	drop := make([]bool, len(lines))
	dropped := false
	for i, b := range blocks {
		if i >= len(removed) || !removed[i] {
			continue
		}
		for l := b.StartLine; l < b.EndLine && l < len(lines); l++ {
			drop[l] = true
			dropped = true
		}
	}
	if !dropped {
		return text
	}

	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if !drop[i] {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
