package chem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/molgen.go/internal/chem"
)

func decodeCanonical(t *testing.T, selfies string) string {
	t.Helper()
	mol, err := chem.Decode(selfies)
	require.NoError(t, err)
	out, err := mol.Canonical()
	require.NoError(t, err)
	return out
}

func TestDecodeLinearChains(t *testing.T) {
	tests := []struct {
		name    string
		selfies string
		want    string
	}{
		{"ethanol", "[C][C][O]", "CCO"},
		{"ethene", "[C][=C]", "C=C"},
		{"hydrogen cyanide", "[C][#N]", "C#N"},
		{"ether", "[C][O][C]", "COC"},
		{"nop is skipped", "[C][nop][O]", "CO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeCanonical(t, tt.selfies))
		})
	}
}

func TestDecodeBranch(t *testing.T) {
	// [Branch1][C] opens a one-symbol branch: C(O)C, same molecule as CCO.
	assert.Equal(t, "CCO", decodeCanonical(t, "[C][Branch1][C][O][C]"))

	// isopropanol: branch of one carbon off the middle atom
	assert.Equal(t, "CC(C)O", decodeCanonical(t, "[C][C][Branch1][C][C][O]"))
}

func TestDecodeRing(t *testing.T) {
	mol, err := chem.Decode("[C][=C][C][=C][C][=C][Ring1][=Branch1]")
	require.NoError(t, err)
	assert.Len(t, mol.Atoms, 6)
	assert.Len(t, mol.Bonds, 6)

	doubles := 0
	for _, b := range mol.Bonds {
		if b.Order == 2 {
			doubles++
		}
	}
	assert.Equal(t, 3, doubles)

	got, err := mol.Canonical()
	require.NoError(t, err)
	want, err := chem.CanonicalSMILES("C1=CC=CC=C1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeCapsBondsByValence(t *testing.T) {
	// a triple bond to oxygen is reduced to the double bond oxygen can carry
	assert.Equal(t, "C=O", decodeCanonical(t, "[O][#C]"))
}

func TestDecodeStopsAtSaturatedChain(t *testing.T) {
	// after C#N the nitrogen has no remaining valence, so the trailing
	// carbon cannot attach and derivation ends
	mol, err := chem.Decode("[C][#N][C]")
	require.NoError(t, err)
	assert.Len(t, mol.Atoms, 2)

	got, err := mol.Canonical()
	require.NoError(t, err)
	assert.Equal(t, "C#N", got)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	inputs := []string{
		"",
		"CC",              // bare characters outside a symbol
		"[C][C",           // unterminated symbol
		"[]",              // empty symbol
		"[Q]",             // unsupported element
		"[C][Branch1]",    // branch with no index symbol
		"[Ring1]",         // ring with no index symbol
		"[nop]",           // derives no atoms
		"[C][Branch9][C]", // branch arity out of range
	}
	for _, in := range inputs {
		_, err := chem.Decode(in)
		assert.ErrorIs(t, err, chem.ErrDecode, "input %q", in)
	}
}

func TestDecodeAtomModifiers(t *testing.T) {
	// explicit hydrogens and charges carry through to the SMILES writer
	assert.Equal(t, "[NH4+]", decodeCanonical(t, "[NH4+1]"))
	assert.Equal(t, "C[O-]", decodeCanonical(t, "[C][O-1]"))
}
