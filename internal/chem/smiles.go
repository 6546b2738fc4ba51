package chem

import (
	"fmt"
	"sort"
	"strings"
)

// organic-subset elements that may be written without brackets.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true,
	"S": true, "F": true, "Cl": true, "Br": true, "I": true,
}

var aromaticElements = map[string]bool{
	"b": true, "c": true, "n": true, "o": true, "p": true, "s": true,
}

type ringHalf struct {
	atom  int
	order int
}

type smilesParser struct {
	s    string
	pos  int
	mol  *Mol
	prev int
	// pendingOrder is the bond symbol read since the last atom: 0 none,
	// otherwise 1-3; pendingAromatic marks an explicit ':' bond.
	pendingOrder    int
	pendingAromatic bool
	stack           []int
	rings           map[int]ringHalf
}

// ParseSMILES parses a SMILES string into a molecular graph. Stereo
// markers are accepted and discarded; structural errors return ErrDecode.
func ParseSMILES(s string) (*Mol, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty SMILES", ErrDecode)
	}
	p := &smilesParser{
		s:     s,
		mol:   &Mol{},
		prev:  -1,
		rings: map[int]ringHalf{},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	if len(p.stack) != 0 {
		return nil, fmt.Errorf("%w: unclosed branch", ErrDecode)
	}
	if len(p.rings) != 0 {
		return nil, fmt.Errorf("%w: unclosed ring bond", ErrDecode)
	}
	if len(p.mol.Atoms) == 0 {
		return nil, fmt.Errorf("%w: no atoms", ErrDecode)
	}
	return p.mol, nil
}

func (p *smilesParser) run() error {
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return fmt.Errorf("%w: branch with no preceding atom", ErrDecode)
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return fmt.Errorf("%w: unmatched ')'", ErrDecode)
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '-' || c == '/' || c == '\\':
			p.pendingOrder = 1
			p.pos++
		case c == '=':
			p.pendingOrder = 2
			p.pos++
		case c == '#':
			p.pendingOrder = 3
			p.pos++
		case c == ':':
			p.pendingOrder = 1
			p.pendingAromatic = true
			p.pos++
		case c == '.':
			if p.pendingOrder != 0 {
				return fmt.Errorf("%w: bond before fragment separator", ErrDecode)
			}
			p.prev = -1
			p.pos++
		case c >= '0' && c <= '9':
			if err := p.ringBond(int(c - '0')); err != nil {
				return err
			}
			p.pos++
		case c == '%':
			if p.pos+2 >= len(p.s) || !isDigit(p.s[p.pos+1]) || !isDigit(p.s[p.pos+2]) {
				return fmt.Errorf("%w: malformed %%nn ring label", ErrDecode)
			}
			n := int(p.s[p.pos+1]-'0')*10 + int(p.s[p.pos+2]-'0')
			if err := p.ringBond(n); err != nil {
				return err
			}
			p.pos += 3
		case c == '[':
			atom, err := p.bracketAtom()
			if err != nil {
				return err
			}
			p.pushAtom(atom)
		default:
			atom, err := p.organicAtom()
			if err != nil {
				return err
			}
			p.pushAtom(atom)
		}
	}
	if p.pendingOrder != 0 {
		return fmt.Errorf("%w: dangling bond", ErrDecode)
	}
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *smilesParser) organicAtom() (Atom, error) {
	rest := p.s[p.pos:]
	for _, two := range []string{"Cl", "Br"} {
		if strings.HasPrefix(rest, two) {
			p.pos += 2
			return Atom{Element: two, HCount: -1}, nil
		}
	}
	c := rest[0]
	if organicSubset[string(c)] {
		p.pos++
		return Atom{Element: string(c), HCount: -1}, nil
	}
	if aromaticElements[string(c)] {
		p.pos++
		return Atom{Element: strings.ToUpper(string(c)), Aromatic: true, HCount: -1}, nil
	}
	return Atom{}, fmt.Errorf("%w: unexpected character %q", ErrDecode, c)
}

func (p *smilesParser) bracketAtom() (Atom, error) {
	p.pos++ // consume '['
	// isotope label, accepted and discarded
	for p.pos < len(p.s) && isDigit(p.s[p.pos]) {
		p.pos++
	}
	if p.pos >= len(p.s) {
		return Atom{}, fmt.Errorf("%w: unterminated bracket atom", ErrDecode)
	}

	var atom Atom
	c := p.s[p.pos]
	switch {
	case c >= 'A' && c <= 'Z':
		element := string(c)
		p.pos++
		if p.pos < len(p.s) && p.s[p.pos] >= 'a' && p.s[p.pos] <= 'z' && p.s[p.pos] != 'h' {
			element += string(p.s[p.pos])
			p.pos++
		}
		atom = Atom{Element: element}
	case aromaticElements[string(c)]:
		atom = Atom{Element: strings.ToUpper(string(c)), Aromatic: true}
		p.pos++
	default:
		return Atom{}, fmt.Errorf("%w: bad element in bracket atom", ErrDecode)
	}

	// chirality, accepted and discarded
	for p.pos < len(p.s) && p.s[p.pos] == '@' {
		p.pos++
	}

	if p.pos < len(p.s) && p.s[p.pos] == 'H' {
		p.pos++
		atom.HCount = 1
		if p.pos < len(p.s) && isDigit(p.s[p.pos]) {
			atom.HCount = int(p.s[p.pos] - '0')
			p.pos++
		}
	}

	for p.pos < len(p.s) && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
		sign := 1
		if p.s[p.pos] == '-' {
			sign = -1
		}
		p.pos++
		if p.pos < len(p.s) && isDigit(p.s[p.pos]) {
			atom.Charge += sign * int(p.s[p.pos]-'0')
			p.pos++
		} else {
			atom.Charge += sign
		}
	}

	if p.pos >= len(p.s) || p.s[p.pos] != ']' {
		return Atom{}, fmt.Errorf("%w: unterminated bracket atom", ErrDecode)
	}
	p.pos++
	return atom, nil
}

func (p *smilesParser) pushAtom(atom Atom) {
	idx := p.mol.addAtom(atom)
	if p.prev >= 0 {
		order := p.pendingOrder
		aromatic := p.pendingAromatic
		if order == 0 {
			order = 1
			aromatic = p.mol.Atoms[p.prev].Aromatic && atom.Aromatic
		}
		p.mol.addBond(p.prev, idx, order, aromatic)
	}
	p.prev = idx
	p.pendingOrder = 0
	p.pendingAromatic = false
}

func (p *smilesParser) ringBond(label int) error {
	if p.prev < 0 {
		return fmt.Errorf("%w: ring label with no preceding atom", ErrDecode)
	}
	half, open := p.rings[label]
	if !open {
		p.rings[label] = ringHalf{atom: p.prev, order: p.pendingOrder}
		p.pendingOrder = 0
		p.pendingAromatic = false
		return nil
	}
	delete(p.rings, label)

	if half.atom == p.prev {
		return fmt.Errorf("%w: ring bond to self", ErrDecode)
	}
	if p.mol.bonded(half.atom, p.prev) {
		return fmt.Errorf("%w: duplicate ring bond", ErrDecode)
	}
	order := p.pendingOrder
	if order == 0 {
		order = half.order
	} else if half.order != 0 && half.order != order {
		return fmt.Errorf("%w: conflicting ring bond orders", ErrDecode)
	}
	aromatic := p.pendingAromatic
	if order == 0 {
		order = 1
		aromatic = p.mol.Atoms[half.atom].Aromatic && p.mol.Atoms[p.prev].Aromatic
	}
	p.mol.addBond(half.atom, p.prev, order, aromatic)
	p.pendingOrder = 0
	p.pendingAromatic = false
	return nil
}

// Canonical validates the molecule and serializes it to a canonical SMILES
// string. Fragments are canonicalized independently and joined in sorted
// order, so any SMILES of the same graph yields the same output.
func (m *Mol) Canonical() (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	parts := make([]string, 0, 1)
	for _, comp := range m.components() {
		parts = append(parts, comp.writeCanonical())
	}
	sort.Strings(parts)
	return strings.Join(parts, "."), nil
}

// CanonicalSMILES parses s and returns its canonical form.
func CanonicalSMILES(s string) (string, error) {
	mol, err := ParseSMILES(s)
	if err != nil {
		return "", err
	}
	return mol.Canonical()
}

// components splits the graph into connected sub-molecules with reindexed
// atoms.
func (m *Mol) components() []*Mol {
	adj := m.neighbors()
	seen := make([]bool, len(m.Atoms))
	var comps []*Mol

	for start := range m.Atoms {
		if seen[start] {
			continue
		}
		remap := map[int]int{}
		sub := &Mol{}
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			remap[u] = sub.addAtom(m.Atoms[u])
			for _, nb := range adj[u] {
				if !seen[nb[0]] {
					seen[nb[0]] = true
					queue = append(queue, nb[0])
				}
			}
		}
		for _, b := range m.Bonds {
			if _, ok := remap[b.A]; ok {
				sub.addBond(remap[b.A], remap[b.B], b.Order, b.Aromatic)
			}
		}
		comps = append(comps, sub)
	}
	return comps
}

// canonicalRanks assigns each atom a distinct rank via iterative
// neighborhood refinement. Remaining ties after refinement converges are
// broken by current rank then input index; tied atoms at that point are
// symmetry-equivalent, so the choice does not affect the output string.
func (m *Mol) canonicalRanks() []int {
	n := len(m.Atoms)
	adj := m.neighbors()

	refine := func(ranks []int) []int {
		for {
			refined := make([]string, n)
			for i := range ranks {
				nbRanks := make([]int, 0, len(adj[i]))
				for _, nb := range adj[i] {
					bond := m.Bonds[nb[1]]
					nbRanks = append(nbRanks, ranks[nb[0]]*10+bond.Order)
				}
				sort.Ints(nbRanks)
				refined[i] = fmt.Sprintf("%d|%v", ranks[i], nbRanks)
			}
			newRanks := ranksFromInvariants(refined)
			if distinct(newRanks) == distinct(ranks) {
				return newRanks
			}
			ranks = newRanks
		}
	}

	inv := make([]string, n)
	for i, a := range m.Atoms {
		inv[i] = fmt.Sprintf("%s|%d|%d|%d|%t", a.Element, len(adj[i]), a.Charge, a.HCount, a.Aromatic)
	}
	ranks := refine(ranksFromInvariants(inv))

	// Break remaining ties one atom at a time: promote the lowest-index
	// member of the lowest tied class, then re-refine.
	for distinct(ranks) < n {
		chosen := -1
		for r := 0; r < n && chosen < 0; r++ {
			first, count := -1, 0
			for i := range ranks {
				if ranks[i] == r {
					count++
					if first < 0 {
						first = i
					}
				}
			}
			if count > 1 {
				chosen = first
			}
		}
		if chosen < 0 {
			break
		}
		promoted := make([]string, n)
		for i := range ranks {
			tag := 1
			if i == chosen {
				tag = 0
			}
			promoted[i] = fmt.Sprintf("%06d", ranks[i]*2+tag)
		}
		ranks = refine(ranksFromInvariants(promoted))
	}
	return ranks
}

func ranksFromInvariants(inv []string) []int {
	uniq := make([]string, 0, len(inv))
	seen := map[string]bool{}
	for _, v := range inv {
		if !seen[v] {
			seen[v] = true
			uniq = append(uniq, v)
		}
	}
	sort.Strings(uniq)
	pos := map[string]int{}
	for i, v := range uniq {
		pos[v] = i
	}
	ranks := make([]int, len(inv))
	for i, v := range inv {
		ranks[i] = pos[v]
	}
	return ranks
}

func distinct(ranks []int) int {
	seen := map[int]bool{}
	for _, r := range ranks {
		seen[r] = true
	}
	return len(seen)
}

// writeCanonical emits one connected component in canonical order.
func (m *Mol) writeCanonical() string {
	ranks := m.canonicalRanks()
	adj := m.neighbors()

	// order each adjacency list by neighbor rank, then neighbor index for
	// stability
	for i := range adj {
		sort.Slice(adj[i], func(x, y int) bool {
			a, b := adj[i][x], adj[i][y]
			if ranks[a[0]] != ranks[b[0]] {
				return ranks[a[0]] < ranks[b[0]]
			}
			return a[0] < b[0]
		})
	}

	start := 0
	for i := range m.Atoms {
		if ranks[i] < ranks[start] {
			start = i
		}
	}

	// first pass: classify bonds into tree and ring edges following the
	// exact traversal the writer uses
	visited := make([]bool, len(m.Atoms))
	treeBond := make([]bool, len(m.Bonds))
	ringLabels := map[int]int{} // bond index -> ring digit
	nextLabel := 1

	var classify func(u int)
	classify = func(u int) {
		visited[u] = true
		for _, nb := range adj[u] {
			v, bi := nb[0], nb[1]
			if treeBond[bi] {
				continue
			}
			if _, isRing := ringLabels[bi]; isRing {
				continue
			}
			if visited[v] {
				ringLabels[bi] = nextLabel
				nextLabel++
				continue
			}
			treeBond[bi] = true
			classify(v)
		}
	}
	classify(start)

	var sb strings.Builder
	written := make([]bool, len(m.Atoms))

	var write func(u int)
	write = func(u int) {
		written[u] = true
		sb.WriteString(atomSymbol(m.Atoms[u]))

		// ring closure digits attach directly to the atom
		for _, nb := range adj[u] {
			bi := nb[1]
			if label, ok := ringLabels[bi]; ok {
				sb.WriteString(bondSymbol(m.Bonds[bi]))
				sb.WriteString(ringLabel(label))
			}
		}

		var children [][2]int
		for _, nb := range adj[u] {
			if treeBond[nb[1]] && !written[nb[0]] {
				children = append(children, nb)
			}
		}
		for i, nb := range children {
			v, bi := nb[0], nb[1]
			if i < len(children)-1 {
				sb.WriteByte('(')
				sb.WriteString(bondSymbol(m.Bonds[bi]))
				write(v)
				sb.WriteByte(')')
			} else {
				sb.WriteString(bondSymbol(m.Bonds[bi]))
				write(v)
			}
		}
	}
	write(start)
	return sb.String()
}

func bondSymbol(b Bond) string {
	switch {
	case b.Aromatic:
		return ""
	case b.Order == 2:
		return "="
	case b.Order == 3:
		return "#"
	default:
		return ""
	}
}

func ringLabel(n int) string {
	if n < 10 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%%%02d", n)
}

func atomSymbol(a Atom) string {
	symbol := a.Element
	if a.Aromatic {
		symbol = strings.ToLower(symbol)
	}
	if organicSubset[a.Element] && a.Charge == 0 && a.HCount < 0 {
		return symbol
	}

	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(symbol)
	if a.HCount == 1 {
		sb.WriteByte('H')
	} else if a.HCount > 1 {
		fmt.Fprintf(&sb, "H%d", a.HCount)
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		fmt.Fprintf(&sb, "+%d", a.Charge)
	case a.Charge < -1:
		fmt.Fprintf(&sb, "-%d", -a.Charge)
	}
	sb.WriteByte(']')
	return sb.String()
}
