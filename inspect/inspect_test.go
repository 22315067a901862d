package inspect_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"scriptrun/inspect"
)

func writePy(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.py")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestInputCalls(t *testing.T) {
	src := `
name = input("Name: ")
age = input('Age? ')
free = input()
# ignored = input("commented out")
wrapped = my_input("not the builtin")
padded = input(  "padded"  )
dynamic = input(prompt_var)
`
	calls := inspect.InputCalls(writePy(t, src))
	require.Len(t, calls, 5)

	require.Equal(t, 1, calls[0].Index)
	require.NotNil(t, calls[0].Prompt)
	require.Equal(t, "Name: ", *calls[0].Prompt)

	require.Equal(t, 2, calls[1].Index)
	require.Equal(t, "Age? ", *calls[1].Prompt)

	// No literal argument means no prompt.
	require.Equal(t, 3, calls[2].Index)
	require.Nil(t, calls[2].Prompt)

	require.Equal(t, 4, calls[3].Index)
	require.Equal(t, "padded", *calls[3].Prompt)

	require.Equal(t, 5, calls[4].Index)
	require.Nil(t, calls[4].Prompt)
}

func TestInputCallsEscapes(t *testing.T) {
	src := `x = input("Say \"hi\"\n> ")`
	calls := inspect.InputCalls(writePy(t, src))
	require.Len(t, calls, 1)
	require.Equal(t, "Say \"hi\"\n> ", *calls[0].Prompt)
}

func TestInputCallsMultiplePerLine(t *testing.T) {
	src := `pair = (input("a"), input("b"))`
	calls := inspect.InputCalls(writePy(t, src))
	require.Len(t, calls, 2)
	require.Equal(t, "a", *calls[0].Prompt)
	require.Equal(t, "b", *calls[1].Prompt)
}

func TestInputCallsMissingFile(t *testing.T) {
	require.Nil(t, inspect.InputCalls(filepath.Join(t.TempDir(), "nope.py")))
}
