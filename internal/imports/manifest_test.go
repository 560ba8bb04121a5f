package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSortsModulesAndNames(t *testing.T) {
	m := New()
	m.Record("./users/dto", "UserDto")
	m.Record("./auth/dto", "SigninDto")
	m.Record("./users/dto", "CreateUserDto")
	m.Record("./users/dto", "UserDto")

	assert.Equal(t, []Module{
		{Path: "./auth/dto", Names: []string{"SigninDto"}},
		{Path: "./users/dto", Names: []string{"CreateUserDto", "UserDto"}},
	}, m.Render())
	assert.Equal(t, 2, m.Len())
}

func TestRecordIgnoresEmptyValues(t *testing.T) {
	m := New()
	m.Record("", "Global")
	m.Record("./mod", "")

	assert.Empty(t, m.Render())
}
