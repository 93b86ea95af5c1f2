// Package fixture implements facet.Surface over an in-memory tree. It models
// the portal's multiselect widgets: the list of a level is the union of the
// children of every entry selected at the level above, and every mutation
// drops the selections that are no longer visible further down.
package fixture

import (
	"context"
	"fmt"
	"os"
	"sync"

	"wris-inventory/internal/facet"

	"github.com/titanous/json5"
)

const selectAllLabel = "Select all"

// Node is one entry of the tree. The children of an Agency node are its
// modes, the children of a Mode node are its stations.
type Node struct {
	Label    string  `json:"label"`
	Value    string  `json:"value,omitempty"`
	Children []*Node `json:"children,omitempty"`

	// station only
	StationID       string `json:"station_id,omitempty"`
	MetaName        string `json:"meta_name,omitempty"`
	MetadataTimeout bool   `json:"metadata_timeout,omitempty"`
}

// Tree is the file format read by Load.
type Tree struct {
	States []*Node `json:"states"`
}

// N builds a node, it keeps test trees short.
func N(label string, children ...*Node) *Node {
	return &Node{Label: label, Children: children}
}

// Station builds a station node with a code and metadata.
func Station(code, name string) *Node {
	return &Node{Label: name, Value: code, StationID: code, MetaName: name}
}

// Call is one operation performed against the surface.
type Call struct {
	Op    string
	Level facet.Level
	Arg   string
}

func (c Call) String() string {
	if c.Arg == "" {
		return fmt.Sprintf("%s %s", c.Op, c.Level)
	}
	return fmt.Sprintf("%s %s %s", c.Op, c.Level, c.Arg)
}

type listFault struct {
	level  facet.Level
	parent string
	err    error
}

type selectFault struct {
	level facet.Level
	label string
	err   error
}

type Surface struct {
	lock sync.Mutex

	root     *Node
	selected map[facet.Level][]*Node
	calls    []Call

	rootMissing  bool
	listFaults   []listFault
	selectFaults []selectFault
	metaFaults   map[string]error
}

func New(states ...*Node) *Surface {
	return &Surface{
		root:       &Node{Children: states},
		selected:   map[facet.Level][]*Node{},
		metaFaults: map[string]error{},
	}
}

// Load reads a json5 tree from path.
func Load(path string) (*Surface, error) {
	buff, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tree Tree
	err = json5.Unmarshal(buff, &tree)
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return New(tree.States...), nil
}

// RemoveRoot makes the surface behave as if the selection UI was never found.
func (s *Surface) RemoveRoot() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.rootMissing = true
}

// FailList makes listing level fail whenever the path passed in renders as parent.
func (s *Surface) FailList(level facet.Level, parent string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.listFaults = append(s.listFaults, listFault{level: level, parent: parent, err: err})
}

// FailSelect makes selecting any entry labelled label at level fail.
func (s *Surface) FailSelect(level facet.Level, label string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.selectFaults = append(s.selectFaults, selectFault{level: level, label: label, err: err})
}

// FailMetadata makes reading the metadata of the station with the given code fail.
func (s *Surface) FailMetadata(code string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.metaFaults[code] = err
}

// Calls returns every operation performed so far.
func (s *Surface) Calls() []Call {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Selected returns the labels currently selected at level.
func (s *Surface) Selected(level facet.Level) []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	var out []string
	for _, n := range s.selected[level] {
		out = append(out, n.Label)
	}
	return out
}

func (s *Surface) log(op string, level facet.Level, arg string) {
	s.calls = append(s.calls, Call{Op: op, Level: level, Arg: arg})
}

// visible returns the entries of level given the current selections.
func (s *Surface) visible(level facet.Level) []*Node {
	if level == facet.LEVEL_STATE {
		return s.root.Children
	}
	var out []*Node
	for _, parent := range s.selected[level-1] {
		out = append(out, parent.Children...)
	}
	return out
}

func hasSelectAll(level facet.Level) bool {
	return level != facet.LEVEL_MODE
}

func (s *Surface) render(level facet.Level) []facet.RawOption {
	nodes := s.visible(level)
	if len(nodes) == 0 {
		return nil
	}
	out := make([]facet.RawOption, 0, len(nodes)+1)
	if hasSelectAll(level) {
		out = append(out, facet.RawOption{Label: selectAllLabel})
	}
	for _, n := range nodes {
		out = append(out, facet.RawOption{Label: n.Label, Value: n.Value})
	}
	return out
}

func (s *Surface) ListOptions(ctx context.Context, level facet.Level, path facet.Path) ([]facet.RawOption, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.log("list", level, "")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.rootMissing {
		return nil, fmt.Errorf("%w: no selection widgets rendered", facet.ErrRootMissing)
	}
	for _, f := range s.listFaults {
		if f.level == level && f.parent == path.String() {
			return nil, f.err
		}
	}
	return s.render(level), nil
}

func (s *Surface) Select(ctx context.Context, level facet.Level, index int) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	nodes := s.visible(level)
	offset := 0
	if hasSelectAll(level) && len(nodes) > 0 {
		offset = 1
		if index == 0 {
			s.log("select", level, selectAllLabel)
			s.selected[level] = append([]*Node(nil), nodes...)
			s.prune(level)
			return nil
		}
	}

	i := index - offset
	if i < 0 || i >= len(nodes) {
		return fmt.Errorf("select %s: index %d out of range (%d entries)", level, index, len(nodes))
	}
	node := nodes[i]
	s.log("select", level, node.Label)

	for _, f := range s.selectFaults {
		if f.level == level && f.label == node.Label {
			return f.err
		}
	}

	if level == facet.LEVEL_MODE {
		s.selected[level] = []*Node{node}
	} else if !contains(s.selected[level], node) {
		s.selected[level] = s.ordered(level, append(s.selected[level], node))
	}
	s.prune(level)
	return nil
}

func (s *Surface) ClearAll(ctx context.Context, level facet.Level) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.log("clear", level, "")

	if err := ctx.Err(); err != nil {
		return err
	}
	delete(s.selected, level)
	s.prune(level)
	return nil
}

func (s *Surface) ReadMetadata(ctx context.Context) (facet.Metadata, error) {
	s.lock.Lock()
	s.log("metadata", facet.LEVEL_STATION, "")
	stations := s.selected[facet.LEVEL_STATION]
	var station *Node
	var fault error
	if len(stations) == 1 {
		station = stations[0]
		fault = s.metaFaults[station.Value]
	}
	s.lock.Unlock()

	if station == nil || station.MetadataTimeout {
		// the panel never settles on a single station
		<-ctx.Done()
		return facet.Metadata{}, fmt.Errorf("%w: %w", facet.ErrMetadataTimeout, ctx.Err())
	}
	if fault != nil {
		return facet.Metadata{}, fault
	}
	return facet.Metadata{
		StationCode: station.Value,
		StationName: station.Label,
		StationID:   station.StationID,
		MetaName:    station.MetaName,
	}, nil
}

// ordered sorts selected into the order the entries are rendered in.
func (s *Surface) ordered(level facet.Level, selected []*Node) []*Node {
	var out []*Node
	for _, n := range s.visible(level) {
		if contains(selected, n) {
			out = append(out, n)
		}
	}
	return out
}

// prune drops the selections below level that are no longer visible.
func (s *Surface) prune(level facet.Level) {
	for below := level + 1; below <= facet.LEVEL_STATION; below++ {
		kept := s.ordered(below, s.selected[below])
		if len(kept) == 0 {
			delete(s.selected, below)
			continue
		}
		s.selected[below] = kept
	}
}

func contains(nodes []*Node, node *Node) bool {
	for _, n := range nodes {
		if n == node {
			return true
		}
	}
	return false
}
