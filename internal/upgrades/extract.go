package upgrades

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/cardname"
)

// Optional list marker: "1." / "2)" / "-" / "•".
const listMarker = `^\s*(?:\d+[.)]|[-•])?\s*`

var (
	addBracketRegex = regexp.MustCompile(listMarker + `ADD\s*(?:\+(\d+)\s*)?\[\[([^\[\]]+)\]\]`)
	cutBracketRegex = regexp.MustCompile(listMarker + `CUT\s*\[\[([^\[\]]+)\]\]`)
	inlineCutRegex  = regexp.MustCompile(`\bCUT\s*\[\[([^\[\]]+)\]\]`)
	bareSwapRegex   = regexp.MustCompile(listMarker + `ADD\s+(?:\+(\d+)\s+)?([^\[\]/]+?)\s*/\s*CUT\s+([^\[\]/]+?)\s*$`)
)

type lineKind int

const (
	lineOther lineKind = iota
	lineAdd
	lineCut
)

type lineClass struct {
	kind     lineKind
	add      string
	cut      string
	quantity int
}

// classifyLine recognizes ADD and CUT lines. The bracket syntax is tried
// before the bare "ADD X / CUT Y" one-liner so a line never matches twice.
func classifyLine(line string) lineClass {
	if m := addBracketRegex.FindStringSubmatchIndex(line); m != nil {
		name := strings.TrimSpace(line[m[4]:m[5]])
		if name == "" {
			return lineClass{}
		}
		c := lineClass{kind: lineAdd, add: name, quantity: parseQuantity(line, m[2], m[3])}
		if cm := inlineCutRegex.FindStringSubmatch(line[m[1]:]); cm != nil {
			c.cut = strings.TrimSpace(cm[1])
		}
		return c
	}

	if m := cutBracketRegex.FindStringSubmatch(line); m != nil {
		name := strings.TrimSpace(m[1])
		if name == "" {
			return lineClass{}
		}
		return lineClass{kind: lineCut, cut: name}
	}

	if m := bareSwapRegex.FindStringSubmatchIndex(line); m != nil {
		add := cardname.StripAnnotation(line[m[4]:m[5]])
		cut := cardname.StripAnnotation(line[m[6]:m[7]])
		if add == "" {
			return lineClass{}
		}
		return lineClass{kind: lineAdd, add: add, cut: cut, quantity: parseQuantity(line, m[2], m[3])}
	}

	return lineClass{}
}

func parseQuantity(line string, start, end int) int {
	if start < 0 {
		return 1
	}
	n, err := strconv.Atoi(line[start:end])
	if errors.Is(err, strconv.ErrRange) {
		// Too many digits for an int is still a request for that many copies.
		return math.MaxInt
	}
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// isDetailLine reports whether a line continues the block above it: an
// indented, non-blank line that is not itself an ADD or CUT line.
func isDetailLine(line string, c lineClass) bool {
	if c.kind != lineOther || strings.TrimSpace(line) == "" {
		return false
	}
	return line[0] == ' ' || line[0] == '\t'
}

// Extract scans text once and returns its suggestion blocks in order.
//
// An ADD line opens a block. The first CUT line before the next ADD line is the
// block's cut; later CUT lines in that region are swallowed into the block so
// they cannot attach to a different block once this one is removed. Indented
// lines directly after the block extend it. Blocks never overlap.
func Extract(text string, format Format) []Block {
	lines := strings.Split(text, "\n")
	classes := make([]lineClass, len(lines))
	for i, line := range lines {
		classes[i] = classifyLine(line)
	}

	var blocks []Block
	for i := 0; i < len(lines); {
		c := classes[i]
		if c.kind != lineAdd {
			i++
			continue
		}

		block := Block{
			StartLine: i,
			AddCard:   c.add,
			CutCard:   c.cut,
			Quantity:  c.quantity,
		}
		if !format.Quantified {
			block.Quantity = 1
		}

		last := i
		for j := i + 1; j < len(lines) && classes[j].kind != lineAdd; j++ {
			if classes[j].kind != lineCut {
				continue
			}
			if block.CutCard == "" {
				block.CutCard = classes[j].cut
			}
			last = j
		}

		end := last + 1
		for end < len(lines) && isDetailLine(lines[end], classes[end]) {
			end++
		}
		block.EndLine = end

		blocks = append(blocks, block)
		i = end
	}

	return blocks
}
