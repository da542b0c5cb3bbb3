package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntelProgram(t *testing.T) {
	instrs := generateString(t, "1+2")
	code, err := IntelTarget{}.Program(instrs, "main")
	require.NoError(t, err)

	want := `.intel_syntax noprefix
.globl main
main:
  push 1
  push 2
  pop rdi
  pop rax
  add rax, rdi
  push rax
  pop rax
  ret
`
	assert.Equal(t, want, code)
}

func TestIntelOperators(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"1+2", []string{"add rax, rdi"}},
		{"1-2", []string{"sub rax, rdi"}},
		{"1*2", []string{"imul rax, rdi"}},
		{"1/2", []string{"cqo", "idiv rdi"}},
		{"1==2", []string{"cmp rax, rdi", "sete al", "movzx rax, al"}},
		{"1!=2", []string{"cmp rax, rdi", "setne al", "movzx rax, al"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			body, err := IntelTarget{}.Render(generateString(t, tt.src))
			require.NoError(t, err)

			lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
			// push, push, pop, pop, <combine...>, push
			require.Len(t, lines, 5+len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, "  "+w, lines[4+i])
			}
			assert.Equal(t, "  push rax", lines[len(lines)-1])
		})
	}
}

// Comparisons must be self-contained: nothing from another operator may
// follow the zero-extension.
func TestComparisonDoesNotFallThrough(t *testing.T) {
	for _, src := range []string{"1==1", "1!=1"} {
		body, err := IntelTarget{}.Render(generateString(t, src))
		require.NoError(t, err)
		for _, forbidden := range []string{"add", "sub", "imul", "idiv", "cqo"} {
			assert.NotContains(t, body, forbidden, src)
		}
		assert.Equal(t, 1, strings.Count(body, "movzx rax, al\n"), src)
	}
}

func TestIntelWideLiteral(t *testing.T) {
	body, err := IntelTarget{}.Render([]Instr{Push{Value: 1 << 40}, Push{Value: -2147483648}})
	require.NoError(t, err)
	assert.Equal(t, "  mov rax, 1099511627776\n  push rax\n  push -2147483648\n", body)
}

func TestATTProgram(t *testing.T) {
	code, err := ATTTarget{}.Program(generateString(t, "6/(1!=2)"), "_main")
	require.NoError(t, err)

	want := `.globl _main
_main:
  pushq $6
  pushq $1
  pushq $2
  popq %rdi
  popq %rax
  cmpq %rdi, %rax
  setne %al
  movzbq %al, %rax
  pushq %rax
  popq %rdi
  popq %rax
  cqto
  idivq %rdi
  pushq %rax
  popq %rax
  ret
`
	assert.Equal(t, want, code)

	body, err := ATTTarget{}.Render([]Instr{Push{Value: 1 << 40}})
	require.NoError(t, err)
	assert.Equal(t, "  movabsq $1099511627776, %rax\n  pushq %rax\n", body)
}

func TestTargetErrors(t *testing.T) {
	for _, target := range []Target{IntelTarget{}, ATTTarget{}} {
		_, err := target.Render([]Instr{Combine{Op: Operator(9)}})
		assert.ErrorContains(t, err, "unknown operator", target.Name())
	}
}

func TestLookupTarget(t *testing.T) {
	target, err := LookupTarget("Intel")
	require.NoError(t, err)
	assert.Equal(t, "intel", target.Name())

	target, err = LookupTarget("att")
	require.NoError(t, err)
	assert.Equal(t, "att", target.Name())

	_, err = LookupTarget("arm64")
	assert.EqualError(t, err, `unknown target syntax "arm64" (want intel or att)`)
}
