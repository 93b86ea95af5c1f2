package facet

import (
	"fmt"
	"strings"
)

// RawOption is one entry of a list exactly as a Surface rendered it.
type RawOption struct {
	Label string
	// Value is the backing value of the entry when the surface can see it,
	// at the Station level this is the station code.
	Value string
}

// IsSelectAll reports whether the label belongs to the "Select all" pseudo-option
// the multiselect widgets put at the top of every list.
func IsSelectAll(label string) bool {
	return strings.Contains(strings.ToLower(label), "select all")
}

func selectable(r RawOption) bool {
	return (r.Label != "" || r.Value != "") && !IsSelectAll(r.Label)
}

// Option is a selectable entry identified by (Label, Occurrence). Occurrence is
// the zero-based rank of the entry among the visible entries sharing its label.
type Option struct {
	Label      string
	Occurrence int
	// Index is the position in the raw list the option was read from, it is
	// only meaningful until the next mutation of the surface.
	Index int
	Value string
}

func (o Option) String() string {
	if o.Occurrence == 0 {
		return o.Label
	}
	return fmt.Sprintf("%s#%d", o.Label, o.Occurrence)
}

// Tag drops the pseudo-options of a raw list and assigns occurrence indices
// to the remaining entries in list order. Entries rendered without a label
// are only kept when they carry a value.
func Tag(raw []RawOption) []Option {
	seen := map[string]int{}
	var out []Option
	for i, r := range raw {
		if !selectable(r) {
			continue
		}
		occurrence := seen[r.Label]
		seen[r.Label] = occurrence + 1
		out = append(out, Option{
			Label:      r.Label,
			Occurrence: occurrence,
			Index:      i,
			Value:      r.Value,
		})
	}
	return out
}

// GroupByLabel reorders options so that all occurrences of a label are
// adjacent, labels keep the order of their first appearance.
func GroupByLabel(options []Option) []Option {
	groups := map[string][]Option{}
	var order []string
	for _, o := range options {
		if _, ok := groups[o.Label]; !ok {
			order = append(order, o.Label)
		}
		groups[o.Label] = append(groups[o.Label], o)
	}
	out := make([]Option, 0, len(options))
	for _, label := range order {
		out = append(out, groups[label]...)
	}
	return out
}

// Locate returns the raw index of the occurrence-th visible entry labelled
// `label`. Only the given (current) list is consulted.
func Locate(raw []RawOption, label string, occurrence int) (int, error) {
	if occurrence < 0 {
		return -1, fmt.Errorf("%w: negative occurrence %d", ErrOccurrenceNotFound, occurrence)
	}
	matched := 0
	for i, r := range raw {
		if r.Label != label || !selectable(r) {
			continue
		}
		if matched == occurrence {
			return i, nil
		}
		matched++
	}
	return -1, fmt.Errorf(
		"%w: wanted occurrence %d of %q, only %d visible",
		ErrOccurrenceNotFound, occurrence, label, matched,
	)
}
