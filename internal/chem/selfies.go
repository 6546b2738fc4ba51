package chem

import (
	"fmt"
	"strings"
)

// SELFIES index alphabet: the position of a symbol in this table is its
// numeric value when it appears as an index operand after a branch or ring
// symbol. Symbols outside the table count as zero.
var selfiesIndex = map[string]int{
	"[C]": 0, "[Ring1]": 1, "[Ring2]": 2,
	"[Branch1]": 3, "[=Branch1]": 4, "[#Branch1]": 5,
	"[Branch2]": 6, "[=Branch2]": 7, "[#Branch2]": 8,
	"[O]": 9, "[N]": 10, "[=N]": 11, "[=C]": 12, "[#C]": 13,
	"[S]": 14, "[P]": 15,
}

// Decode derives a molecular graph from a SELFIES string. The derivation
// rules cap every bond by the remaining valence of both endpoints, so any
// well-formed symbol sequence yields some valid structure; malformed
// symbols return ErrDecode.
func Decode(s string) (*Mol, error) {
	symbols, err := tokenizeSelfies(s)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: empty SELFIES", ErrDecode)
	}

	d := &selfiesDecoder{mol: &Mol{}}
	if err := d.derive(symbols, -1, 1); err != nil {
		return nil, err
	}
	if len(d.mol.Atoms) == 0 {
		return nil, fmt.Errorf("%w: SELFIES derives no atoms", ErrDecode)
	}
	return d.mol, nil
}

func tokenizeSelfies(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	var symbols []string
	for i := 0; i < len(s); {
		if s[i] != '[' {
			return nil, fmt.Errorf("%w: unexpected character %q outside symbol", ErrDecode, s[i])
		}
		end := strings.IndexByte(s[i:], ']')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated symbol", ErrDecode)
		}
		if end == 1 {
			return nil, fmt.Errorf("%w: empty symbol", ErrDecode)
		}
		symbols = append(symbols, s[i:i+end+1])
		i += end + 1
	}
	return symbols, nil
}

type selfiesDecoder struct {
	mol *Mol
	// capacity holds each atom's remaining valence.
	capacity []int
}

// derive processes a symbol sequence attached to atom prev (or nothing for
// the main chain). order is the bond order connecting the first derived
// atom to prev.
func (d *selfiesDecoder) derive(symbols []string, prev, order int) error {
	i := 0
	for i < len(symbols) {
		sym := symbols[i]
		switch {
		case sym == "[nop]":
			i++

		case strings.Contains(sym, "Branch"):
			n, branchOrder, err := branchSpec(sym)
			if err != nil {
				return err
			}
			if i+n >= len(symbols) {
				return fmt.Errorf("%w: truncated branch index", ErrDecode)
			}
			q := selfiesNumber(symbols[i+1 : i+1+n])
			i += 1 + n
			if prev < 0 || d.capacity[prev] <= 1 {
				continue // no room to branch: index consumed, body joins the chain
			}
			end := i + q + 1
			if end > len(symbols) {
				end = len(symbols)
			}
			if err := d.derive(symbols[i:end], prev, branchOrder); err != nil {
				return err
			}
			i = end

		case strings.Contains(sym, "Ring"):
			n, ringOrder, err := ringSpec(sym)
			if err != nil {
				return err
			}
			if i+n >= len(symbols) {
				return fmt.Errorf("%w: truncated ring index", ErrDecode)
			}
			q := selfiesNumber(symbols[i+1 : i+1+n])
			i += 1 + n
			if prev < 0 {
				continue
			}
			target := prev - (q + 1)
			if target < 0 {
				target = 0
			}
			d.closeRing(prev, target, ringOrder)

		default:
			atom, bondOrder, err := parseSelfiesAtom(sym)
			if err != nil {
				return err
			}
			if order > 0 {
				bondOrder = order
				order = 0
			}
			if prev >= 0 {
				o := minInt(bondOrder, d.capacity[prev], atomCapacity(atom))
				if o == 0 {
					// the chain is saturated: this and all remaining symbols
					// cannot attach
					return nil
				}
				idx := d.addAtom(atom)
				d.mol.addBond(prev, idx, o, false)
				d.capacity[prev] -= o
				d.capacity[idx] -= o
				prev = idx
			} else {
				prev = d.addAtom(atom)
			}
			i++
		}
	}
	return nil
}

func (d *selfiesDecoder) addAtom(a Atom) int {
	idx := d.mol.addAtom(a)
	d.capacity = append(d.capacity, atomCapacity(a))
	return idx
}

func atomCapacity(a Atom) int {
	capacity := maxValence(a.Element) + a.Charge
	if a.HCount > 0 {
		capacity -= a.HCount
	}
	if capacity < 0 {
		capacity = 0
	}
	return capacity
}

func (d *selfiesDecoder) closeRing(a, b, order int) {
	if a == b || d.mol.bonded(a, b) {
		return
	}
	o := minInt(order, d.capacity[a], d.capacity[b])
	if o == 0 {
		return
	}
	d.mol.addBond(a, b, o, false)
	d.capacity[a] -= o
	d.capacity[b] -= o
}

// branchSpec returns the index-symbol count and bond order of a branch
// symbol such as [=Branch2].
func branchSpec(sym string) (n, order int, err error) {
	body := strings.Trim(sym, "[]")
	order = 1
	switch {
	case strings.HasPrefix(body, "="):
		order = 2
		body = body[1:]
	case strings.HasPrefix(body, "#"):
		order = 3
		body = body[1:]
	}
	if !strings.HasPrefix(body, "Branch") || len(body) != len("Branch")+1 {
		return 0, 0, fmt.Errorf("%w: malformed branch symbol %s", ErrDecode, sym)
	}
	n = int(body[len(body)-1] - '0')
	if n < 1 || n > 3 {
		return 0, 0, fmt.Errorf("%w: malformed branch symbol %s", ErrDecode, sym)
	}
	return n, order, nil
}

func ringSpec(sym string) (n, order int, err error) {
	body := strings.Trim(sym, "[]")
	order = 1
	switch {
	case strings.HasPrefix(body, "="):
		order = 2
		body = body[1:]
	case strings.HasPrefix(body, "#"):
		order = 3
		body = body[1:]
	}
	if !strings.HasPrefix(body, "Ring") || len(body) != len("Ring")+1 {
		return 0, 0, fmt.Errorf("%w: malformed ring symbol %s", ErrDecode, sym)
	}
	n = int(body[len(body)-1] - '0')
	if n < 1 || n > 3 {
		return 0, 0, fmt.Errorf("%w: malformed ring symbol %s", ErrDecode, sym)
	}
	return n, order, nil
}

// selfiesNumber decodes n index symbols into a base-16 operand.
func selfiesNumber(symbols []string) int {
	value := 0
	for _, sym := range symbols {
		value = value*16 + selfiesIndex[sym]
	}
	return value
}

// parseSelfiesAtom reads an atom symbol like [C], [=N], [NH1], [O-1] and
// returns the atom plus the bond order of its attachment.
func parseSelfiesAtom(sym string) (Atom, int, error) {
	body := strings.Trim(sym, "[]")
	order := 1
	switch {
	case strings.HasPrefix(body, "="):
		order = 2
		body = body[1:]
	case strings.HasPrefix(body, "#"):
		order = 3
		body = body[1:]
	case strings.HasPrefix(body, "/"), strings.HasPrefix(body, "\\"):
		body = body[1:]
	}
	if body == "" {
		return Atom{}, 0, fmt.Errorf("%w: malformed atom symbol %s", ErrDecode, sym)
	}

	atom := Atom{HCount: -1}
	i := 0
	if body[i] >= 'A' && body[i] <= 'Z' {
		i++
		if i < len(body) && body[i] >= 'a' && body[i] <= 'z' {
			i++
		}
		atom.Element = body[:i]
	} else if aromaticElements[string(body[i])] {
		atom.Element = strings.ToUpper(string(body[i]))
		atom.Aromatic = true
		i++
	} else {
		return Atom{}, 0, fmt.Errorf("%w: malformed atom symbol %s", ErrDecode, sym)
	}
	if maxValence(atom.Element) == 0 {
		return Atom{}, 0, fmt.Errorf("%w: unsupported element in %s", ErrDecode, sym)
	}

	if i < len(body) && body[i] == 'H' {
		i++
		atom.HCount = 1
		if i < len(body) && isDigit(body[i]) {
			atom.HCount = int(body[i] - '0')
			i++
		}
	}
	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		i++
		charge := 1
		if i < len(body) && isDigit(body[i]) {
			charge = int(body[i] - '0')
			i++
		}
		atom.Charge = sign * charge
	}
	if i != len(body) {
		return Atom{}, 0, fmt.Errorf("%w: malformed atom symbol %s", ErrDecode, sym)
	}
	return atom, order, nil
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
