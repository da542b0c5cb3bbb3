package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleSourceMap(t *testing.T) {
	code := `
# Line 2: Comment
.intel_syntax noprefix   # Line 3: directive, no instruction
main:                    # Line 4: Label
  push 1                 # Line 5: instruction 0
                         # Line 6: Empty
  push 2                 # Line 7: instruction 1
  pop rdi                # Line 8: instruction 2
`
	prog, err := Assemble(code)
	require.NoError(t, err)

	tests := []struct {
		index int
		line  int
	}{
		{0, 5},
		{1, 7},
		{2, 8},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.line, prog.SourceMap[tc.index], "SourceMap[%d]", tc.index)
	}
	assert.Equal(t, 0, prog.Labels["MAIN"])
}
