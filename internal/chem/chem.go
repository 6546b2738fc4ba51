// Package chem is the molecular codec and validator: it decodes SELFIES
// strings into molecular graphs, parses SMILES, checks structural validity
// and re-serializes graphs to a canonical SMILES form. Everything here is
// pure and stateless.
package chem

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode reports malformed input in either encoding.
	ErrDecode = errors.New("failed to decode molecular string")
	// ErrInvalidStructure reports a syntactically well-formed string whose
	// decoded structure is not chemically valid.
	ErrInvalidStructure = errors.New("invalid molecular structure")
)

// Atom is one node of a molecular graph.
type Atom struct {
	Element  string
	Aromatic bool
	Charge   int
	// HCount is the explicit hydrogen count from a bracket atom, or -1 when
	// hydrogens are implicit.
	HCount int
}

// Bond is an undirected edge. Order is 1, 2 or 3; aromatic bonds carry
// order 1 with the flag set.
type Bond struct {
	A, B     int
	Order    int
	Aromatic bool
}

// Mol is a molecular graph. Atom indices are stable; bond direction is
// meaningless.
type Mol struct {
	Atoms []Atom
	Bonds []Bond
}

// standard valences used both by the SELFIES derivation rules and by the
// validity check. Multi-valent elements list every allowed state.
var valences = map[string][]int{
	"H": {1}, "F": {1}, "Cl": {1}, "Br": {1}, "I": {1},
	"O": {2}, "N": {3, 5}, "C": {4}, "B": {3},
	"S": {2, 4, 6}, "P": {3, 5},
}

func maxValence(element string) int {
	vs, ok := valences[element]
	if !ok {
		return 0
	}
	return vs[len(vs)-1]
}

func (m *Mol) addAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	return len(m.Atoms) - 1
}

func (m *Mol) addBond(a, b, order int, aromatic bool) {
	m.Bonds = append(m.Bonds, Bond{A: a, B: b, Order: order, Aromatic: aromatic})
}

func (m *Mol) bonded(a, b int) bool {
	for _, bond := range m.Bonds {
		if (bond.A == a && bond.B == b) || (bond.A == b && bond.B == a) {
			return true
		}
	}
	return false
}

// neighbors returns, for every atom, the (neighbor, bond index) adjacency.
func (m *Mol) neighbors() [][][2]int {
	adj := make([][][2]int, len(m.Atoms))
	for bi, b := range m.Bonds {
		adj[b.A] = append(adj[b.A], [2]int{b.B, bi})
		adj[b.B] = append(adj[b.B], [2]int{b.A, bi})
	}
	return adj
}

// bondOrderSum is the total bond order at atom i, counting aromatic bonds
// as single.
func (m *Mol) bondOrderSum(i int) int {
	sum := 0
	for _, b := range m.Bonds {
		if b.A == i || b.B == i {
			sum += b.Order
		}
	}
	return sum
}

// Validate checks every atom against its allowed valence states. Elements
// without a known valence model are accepted as-is; aromatic atoms get one
// unit of slack for the delocalized system.
func (m *Mol) Validate() error {
	if len(m.Atoms) == 0 {
		return fmt.Errorf("%w: empty molecule", ErrInvalidStructure)
	}
	for i, a := range m.Atoms {
		allowed, ok := valences[a.Element]
		if !ok {
			continue
		}
		used := m.bondOrderSum(i)
		if a.HCount > 0 {
			used += a.HCount
		}
		capacityMet := false
		for _, v := range allowed {
			limit := v + a.Charge
			if a.Aromatic {
				limit++
			}
			if used <= limit {
				capacityMet = true
				break
			}
		}
		if !capacityMet {
			return fmt.Errorf("%w: %s atom %d exceeds valence with %d bonds", ErrInvalidStructure, a.Element, i, used)
		}
	}
	return nil
}
