// Package search implements a bidirectional breadth-first search over an
// unweighted, directed, possibly cyclic graph of page ids, reachable
// only through a NeighborOracle — it never touches a storage engine
// directly, so it can be exercised against an in-memory graph in tests
// just as well as against a SQL-backed one.
//
// The result is a path, not necessarily the strictly shortest one: the
// two fronts are grown by whichever currently holds fewer nodes, not in
// lockstep layers, so the first collision found can occasionally be one
// hop longer than optimal. This is documented, not accidental — see the
// package-level note in the project's SPEC_FULL.md.
package search

import (
	"errors"
	"fmt"
	"sort"
)

// NeighborOracle answers adjacency queries for one direction of the
// graph. Implementations must return their result sorted ascending;
// Search's collision detection depends on that ordering.
type NeighborOracle interface {
	Neighbors(id uint32) ([]uint32, error)
}

// TitleIndex resolves page titles to ids and back. A store satisfies
// this structurally — search never imports the store package, so the
// two never form an import cycle even though store imports search for
// the NeighborOracle adapters below.
type TitleIndex interface {
	Index(title string) (uint32, error)
	Lookup(id uint32) (string, error)
}

// ErrNoPath is returned when both frontiers are exhausted without ever
// colliding — no directed path from start to goal was found.
var ErrNoPath = errors.New("search: no path found")

// ErrNotFound is the sentinel a TitleIndex's Index/Lookup must wrap (via
// errors.Is) to report a title or id that doesn't exist. PathByTitle
// treats any other error as a genuine failure and propagates it as-is.
var ErrNotFound = errors.New("search: not found")

// ErrUnknownTitle is the sentinel wrapped by the error PathByTitle
// returns when either endpoint title doesn't resolve.
var ErrUnknownTitle = errors.New("search: unknown title")

// UnknownTitleError names which of the two titles passed to PathByTitle
// failed to resolve.
type UnknownTitleError struct {
	Title string
}

func (e *UnknownTitleError) Error() string {
	return fmt.Sprintf("search: unknown title %q", e.Title)
}

func (e *UnknownTitleError) Unwrap() error { return ErrUnknownTitle }

// front is one side's partial BFS state: the nodes discovered on the
// last expansion step (edge, kept sorted), and a map from every visited
// node back to its parent within this frontier. The root maps to itself
// as a sentinel so walking parents has an unambiguous stopping point.
type front struct {
	edge   []uint32
	parent map[uint32]uint32
}

func newFront(root uint32) *front {
	return &front{
		edge:   []uint32{root},
		parent: map[uint32]uint32{root: root},
	}
}

func (f *front) len() int { return len(f.parent) }

// expand queries neighbors for every node currently on the edge, records
// parents for newly-discovered nodes, and replaces edge with the sorted
// set of those new nodes.
func (f *front) expand(oracle NeighborOracle) error {
	var next []uint32
	for _, node := range f.edge {
		neighbors, err := oracle.Neighbors(node)
		if err != nil {
			return err
		}
		for _, n := range neighbors {
			if _, seen := f.parent[n]; seen {
				continue
			}
			f.parent[n] = node
			next = append(next, n)
		}
	}
	sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
	f.edge = next
	return nil
}

// merge returns the smallest value present in both sorted slices, found
// by a single linear merge walk, or ok=false if the slices don't share
// any value.
func merge(xs, ys []uint32) (v uint32, ok bool) {
	i, j := 0, 0
	for i < len(xs) && j < len(ys) {
		switch {
		case xs[i] < ys[j]:
			i++
		case xs[i] > ys[j]:
			j++
		default:
			return xs[i], true
		}
	}
	return 0, false
}

// collide looks for a node in both frontiers' current edges. If found,
// it reconstructs the full path from from's root through the collision
// node to to's root.
func collide(from, to *front) ([]uint32, bool) {
	k, ok := merge(from.edge, to.edge)
	if !ok {
		return nil, false
	}

	var prefix []uint32
	for n := k; ; {
		prefix = append(prefix, n)
		parent := from.parent[n]
		if parent == n {
			break
		}
		n = parent
	}
	for i, j := 0, len(prefix)-1; i < j; i, j = i+1, j-1 {
		prefix[i], prefix[j] = prefix[j], prefix[i]
	}

	var suffix []uint32
	for n := k; ; {
		parent := to.parent[n]
		if parent == n {
			break
		}
		n = parent
		suffix = append(suffix, n)
	}

	return append(prefix, suffix...), true
}

// Path finds a shortest (approximately — see package doc) hop path from
// start to goal along forward edges, expanding balanced fronts: forward
// from start using linksFrom, and backward from goal using linksTo.
// Path(x, x) returns []uint32{x}.
func Path(start, goal uint32, linksFrom, linksTo NeighborOracle) ([]uint32, error) {
	if start == goal {
		return []uint32{start}, nil
	}

	from := newFront(start)
	to := newFront(goal)

	for {
		if path, ok := collide(from, to); ok {
			return path, nil
		}

		fromEmpty, toEmpty := len(from.edge) == 0, len(to.edge) == 0
		if fromEmpty && toEmpty {
			return nil, ErrNoPath
		}

		// Balanced growth: expand whichever frontier holds fewer nodes,
		// unless it has nothing left to expand from.
		expandFrom := from.len() <= to.len()
		if fromEmpty {
			expandFrom = false
		} else if toEmpty {
			expandFrom = true
		}

		var err error
		if expandFrom {
			err = from.expand(linksFrom)
		} else {
			err = to.expand(linksTo)
		}
		if err != nil {
			return nil, err
		}
	}
}

// resolve looks up one title, translating an ErrNotFound miss into an
// *UnknownTitleError naming it, and leaving every other error untouched.
func resolve(idx TitleIndex, title string) (uint32, error) {
	id, err := idx.Index(title)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, &UnknownTitleError{Title: title}
		}
		return 0, fmt.Errorf("search: resolving %q: %w", title, err)
	}
	return id, nil
}

// PathByTitle is the title-level entry point the "path" command drives:
// it resolves from and to against idx, finds a path between them along
// linksFrom/linksTo, and resolves the resulting ids back to titles. A
// title that doesn't resolve surfaces as *UnknownTitleError; any other
// resolution failure is wrapped and returned unchanged so its cause
// survives (an I/O error indexing from is not the same thing as from
// simply not existing).
func PathByTitle(idx TitleIndex, from, to string, linksFrom, linksTo NeighborOracle) ([]string, error) {
	fromID, err := resolve(idx, from)
	if err != nil {
		return nil, err
	}
	toID, err := resolve(idx, to)
	if err != nil {
		return nil, err
	}

	ids, err := Path(fromID, toID, linksFrom, linksTo)
	if err != nil {
		return nil, err
	}

	titles := make([]string, len(ids))
	for i, id := range ids {
		title, err := idx.Lookup(id)
		if err != nil {
			title = "???"
		}
		titles[i] = title
	}
	return titles, nil
}
