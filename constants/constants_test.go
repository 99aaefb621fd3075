package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsIncoterm(t *testing.T) {
	for _, c := range []Incoterm{EXW, FCA, CPT, CIP, DAP, DPU, DDP, FAS, FOB, CFR, CIF} {
		assert.True(t, IsIncoterm(string(c)), c)
	}
	assert.True(t, IsIncoterm("cif"))
	assert.True(t, IsIncoterm(" fob "))
	assert.False(t, IsIncoterm("DDU"))
	assert.False(t, IsIncoterm("FOB SHANGHAI"))
	assert.False(t, IsIncoterm(IncotermNotFound))
}

func TestIsAllowedExt(t *testing.T) {
	assert.True(t, IsAllowedExt(".pdf"))
	assert.True(t, IsAllowedExt("PDF"))
	assert.False(t, IsAllowedExt(".png"))
	assert.False(t, IsAllowedExt(""))
	assert.Equal(t, "pdf", NormalizeExt(".PDF"))
}
