package facet

import (
	"strconv"
	"strings"
)

// Path is the chain of options selected from the State level down, the option
// at index i is the selection made at Level(i).
type Path []Option

// At returns the selection made at the given level.
func (p Path) At(level Level) (Option, bool) {
	if int(level) < 0 || int(level) >= len(p) {
		return Option{}, false
	}
	return p[level], true
}

// Label returns the label selected at the given level, or "" if there is none.
func (p Path) Label(level Level) string {
	o, _ := p.At(level)
	return o.Label
}

// Depth is the level the next selection will be made at.
func (p Path) Depth() Level {
	return Level(len(p))
}

// With returns a new path with o appended, p is left untouched.
func (p Path) With(o Option) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, o)
}

// Parent returns the path without its last selection.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Key identifies the path by every (label, occurrence) pair, two paths with
// the same key were reached by selecting the same entities.
func (p Path) Key() string {
	var b strings.Builder
	for _, o := range p {
		b.WriteString(o.Label)
		b.WriteByte(0)
		b.WriteString(strconv.Itoa(o.Occurrence))
		b.WriteByte(0)
	}
	return b.String()
}

func (p Path) String() string {
	if len(p) == 0 {
		return "<root>"
	}
	parts := make([]string, len(p))
	for i, o := range p {
		parts[i] = o.String()
	}
	return strings.Join(parts, " > ")
}
