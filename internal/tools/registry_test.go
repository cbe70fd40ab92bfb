package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, 6, r.Size())

	for _, name := range []Name{
		NameCreateStructure,
		NameGenerateCode,
		NameCreateDocumentation,
		NameGitOperations,
		NameInstallDependencies,
		NameDeployProject,
	} {
		def, ok := r.Lookup(name)
		require.True(t, ok, "tool %s must be registered", name)
		assert.Equal(t, name, def.Name)
		assert.NotEmpty(t, def.Description)
		assert.NotEmpty(t, def.Params)
	}

	_, ok := r.Lookup("drop_database")
	assert.False(t, ok)
}

func TestDefaultRegistry_RequiredParams(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		tool     Name
		required []string
	}{
		{NameCreateStructure, []string{"project_name"}},
		{NameGenerateCode, []string{"content", "file_type"}},
		{NameCreateDocumentation, []string{"doc_type", "project_info"}},
		{NameGitOperations, []string{"operation"}},
		{NameInstallDependencies, []string{"dependencies", "package_manager"}},
		{NameDeployProject, []string{"dependencies", "package_manager", "platform", "project_path"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.tool), func(t *testing.T) {
			def, ok := r.Lookup(tt.tool)
			require.True(t, ok)

			var required []string
			for name, p := range def.Params {
				if p.Required {
					required = append(required, name)
				}
			}
			assert.ElementsMatch(t, tt.required, required)
		})
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	defs := DefaultRegistry().List()

	require.Len(t, defs, 6)
	for i := 1; i < len(defs); i++ {
		assert.Less(t, string(defs[i-1].Name), string(defs[i].Name))
	}
}
