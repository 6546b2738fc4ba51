package chem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/molgen.go/internal/chem"
)

func TestCanonicalSMILES(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single atom", "C", "C"},
		{"ethanol", "CCO", "CCO"},
		{"ethanol reversed", "OCC", "CCO"},
		{"double bond", "C=C", "C=C"},
		{"ether", "COC", "COC"},
		{"propane", "CCC", "CCC"},
		{"isopropanol", "CC(C)O", "CC(C)O"},
		{"isopropanol rewritten", "OC(C)C", "CC(C)O"},
		{"benzene aromatic", "c1ccccc1", "c1ccccc1"},
		{"cyclohexane", "C1CCCCC1", "C1CCCCC1"},
		{"ammonium", "[NH4+]", "[NH4+]"},
		{"alkoxide", "[O-]C", "C[O-]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chem.CanonicalSMILES(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalIsIdempotent(t *testing.T) {
	inputs := []string{
		"CCO", "CC(C)O", "C1=CC=CC=C1", "c1ccccc1", "O=C=O",
		"CC(=O)OC1=CC=CC=C1C(=O)O", // aspirin
		"N#Cc1ccccc1", "[NH4+]", "C[O-]", "ClCCl", "BrC(Br)Br",
	}
	for _, in := range inputs {
		first, err := chem.CanonicalSMILES(in)
		require.NoError(t, err, "input %q", in)
		second, err := chem.CanonicalSMILES(first)
		require.NoError(t, err, "canonical of %q", in)
		assert.Equal(t, first, second, "canonicalization not idempotent for %q", in)
	}
}

func TestCanonicalIsInputOrderInvariant(t *testing.T) {
	pairs := [][2]string{
		{"CCO", "OCC"},
		{"CC(C)O", "OC(C)C"},
		{"ClCCl", "C(Cl)Cl"},
		{"CC(=O)O", "OC(C)=O"},
	}
	for _, pair := range pairs {
		a, err := chem.CanonicalSMILES(pair[0])
		require.NoError(t, err)
		b, err := chem.CanonicalSMILES(pair[1])
		require.NoError(t, err)
		assert.Equal(t, a, b, "%q and %q describe the same molecule", pair[0], pair[1])
	}
}

func TestParseSMILESRejectsMalformedInput(t *testing.T) {
	inputs := []string{
		"",
		"xyz",
		"C1CC",     // unclosed ring
		"CC=",      // dangling bond
		"(C)",      // branch before any atom
		"C(C",      // unclosed branch
		"[C",       // unterminated bracket
		"C%1",      // malformed two-digit ring label
		"C12CC12C", // duplicate ring bond between the same atoms
	}
	for _, in := range inputs {
		_, err := chem.ParseSMILES(in)
		assert.ErrorIs(t, err, chem.ErrDecode, "input %q", in)
	}
}

func TestValidateRejectsOverValentAtoms(t *testing.T) {
	_, err := chem.CanonicalSMILES("C(C)(C)(C)(C)C")
	assert.ErrorIs(t, err, chem.ErrInvalidStructure)

	_, err = chem.CanonicalSMILES("O(C)(C)C")
	assert.ErrorIs(t, err, chem.ErrInvalidStructure)
}

func TestFragmentsAreSortedCanonically(t *testing.T) {
	a, err := chem.CanonicalSMILES("CCO.C")
	require.NoError(t, err)
	b, err := chem.CanonicalSMILES("C.OCC")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
