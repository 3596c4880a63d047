package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEnvironment(t *testing.T) {
	t.Parallel()

	env := resolveEnvironment(
		[]string{"PATH=/usr/bin", "HOME=/home/u", "SECRET=x", "MALFORMED"},
		[]string{"MEMO_ACCESS_REPORT=/tmp/r.jsonl", "PATH=/opt/bin"},
		map[string]string{"CC": "clang", "MEMO_ACCESS_REPORT": "/override"},
	)

	assert.ElementsMatch(t, []string{
		"PATH=/opt/bin",
		"HOME=/home/u",
		"MEMO_ACCESS_REPORT=/override",
		"CC=clang",
	}, env)
}

func TestWorkingDir(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/repo", workingDir("/repo", ""))
	assert.Equal(t, "/repo/lib", workingDir("/repo", "lib"))
	assert.Equal(t, "/abs", workingDir("/repo", "/abs/"))
}
