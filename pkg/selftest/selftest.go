// Package selftest is a smoke test of the growable sequence the rest of the
// toolchain builds on. It runs independently of the compiler.
package selftest

import (
	"fmt"
	"io"
)

// Count is the number of values appended.
const Count = 100

// CheckError names the first check that failed.
type CheckError struct {
	Check string
	Want  int
	Got   int
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("selftest: %s: want %d, got %d", e.Check, e.Want, e.Got)
}

// Run appends 0..Count-1 to an empty slice, checks its length and a few
// elements, and writes "OK" to w.
func Run(w io.Writer) error {
	var values []int
	if len(values) != 0 {
		return &CheckError{Check: "initial length", Want: 0, Got: len(values)}
	}

	for i := 0; i < Count; i++ {
		values = append(values, i)
	}

	if len(values) != Count {
		return &CheckError{Check: "length", Want: Count, Got: len(values)}
	}
	for _, idx := range []int{0, Count / 2, Count - 1} {
		if values[idx] != idx {
			return &CheckError{Check: fmt.Sprintf("element %d", idx), Want: idx, Got: values[idx]}
		}
	}

	_, err := fmt.Fprintln(w, "OK")
	return err
}
