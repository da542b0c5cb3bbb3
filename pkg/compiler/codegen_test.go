package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateString(t *testing.T, src string) []Instr {
	t.Helper()
	tree, err := parseString(t, src)
	require.NoError(t, err)
	instrs, err := Generate(tree)
	require.NoError(t, err)
	return instrs
}

func TestGenerate_Literal(t *testing.T) {
	assert.Equal(t, []Instr{Push{Value: 7}}, generateString(t, "7"))
}

func TestGenerate_PostOrder(t *testing.T) {
	got := generateString(t, "1-2*3")
	want := []Instr{
		Push{Value: 1},
		Push{Value: 2},
		Push{Value: 3},
		Pop{Reg: RegRHS},
		Pop{Reg: RegLHS},
		Combine{Op: OpMul},
		PushReg{Reg: RegLHS},
		Pop{Reg: RegRHS},
		Pop{Reg: RegLHS},
		Combine{Op: OpSub},
		PushReg{Reg: RegLHS},
	}
	assert.Equal(t, want, got)
}

func TestGenerate_UnaryMinus(t *testing.T) {
	got := generateString(t, "-5")
	want := []Instr{
		Push{Value: 0},
		Push{Value: 5},
		Pop{Reg: RegRHS},
		Pop{Reg: RegLHS},
		Combine{Op: OpSub},
		PushReg{Reg: RegLHS},
	}
	assert.Equal(t, want, got)
}

// Each literal contributes one push; each binary node two pops, one combine
// and one push, in that order after both children.
func TestGenerate_InstructionCount(t *testing.T) {
	inputs := []string{
		"1",
		"1+2",
		"-1",
		"1-2-3",
		"(1+2)*(3-4)/5",
		"1==2!=(3+-4*5)",
		"+(((1)))",
	}
	for _, src := range inputs {
		tree, err := parseString(t, src)
		require.NoError(t, err)
		instrs, err := Generate(tree)
		require.NoError(t, err)

		binaries, literals := CountNodes(tree)
		assert.Len(t, instrs, literals+4*binaries, src)

		var pushes, pops, combines int
		for i, in := range instrs {
			switch in.(type) {
			case Push:
				pushes++
			case Pop:
				pops++
			case Combine:
				combines++
				require.GreaterOrEqual(t, i, 2)
				assert.Equal(t, Pop{Reg: RegRHS}, instrs[i-2], src)
				assert.Equal(t, Pop{Reg: RegLHS}, instrs[i-1], src)
				require.Less(t, i+1, len(instrs))
				assert.Equal(t, PushReg{Reg: RegLHS}, instrs[i+1], src)
			}
		}
		assert.Equal(t, literals, pushes, src)
		assert.Equal(t, 2*binaries, pops, src)
		assert.Equal(t, binaries, combines, src)
	}
}

// Running the IR on a plain slice leaves exactly one value: the result.
func TestGenerate_StackDiscipline(t *testing.T) {
	for _, src := range []string{"1", "1+2*3", "(1+2)*3", "-3+5", "1==1", "7/2-1!=0"} {
		instrs := generateString(t, src)

		var stack []int64
		var regs [2]int64
		for _, in := range instrs {
			switch i := in.(type) {
			case Push:
				stack = append(stack, i.Value)
			case PushReg:
				stack = append(stack, regs[i.Reg])
			case Pop:
				require.NotEmpty(t, stack, src)
				regs[i.Reg] = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			case Combine:
				v, err := apply(i.Op, regs[RegLHS], regs[RegRHS], 0)
				require.NoError(t, err)
				regs[RegLHS] = v
			}
		}
		require.Len(t, stack, 1, src)

		tree, err := parseString(t, src)
		require.NoError(t, err)
		want, err := Eval(tree)
		require.NoError(t, err)
		assert.Equal(t, want, stack[0], src)
	}
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate(nil)
	assert.EqualError(t, err, "codegen: nil expression")

	_, err = Generate(&BinaryExpr{Op: OpAdd, Left: lit(1)})
	assert.ErrorContains(t, err, "missing an operand")

	_, err = Generate(&BinaryExpr{Op: Operator(42), Left: lit(1), Right: lit(2)})
	assert.ErrorContains(t, err, "unknown operator")
}

func TestFormatIR(t *testing.T) {
	got := FormatIR(generateString(t, "2==3"))
	want := strings.Join([]string{
		"  push 2",
		"  push 3",
		"  pop rhs",
		"  pop lhs",
		"  combine ==",
		"  push lhs",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}
