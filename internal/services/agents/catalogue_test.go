package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalogue(t *testing.T) {
	c, err := LoadCatalogue()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"cardiology", "psychology", "pulmonology", "dermatology", "endocrinology",
		"gastroenterology", "general_physician", "hematology", "nephrology", "radiology",
	}, c.Keys())

	for _, role := range c.Roles() {
		assert.NotEmpty(t, role.Name, role.Key)
		assert.NotEmpty(t, role.Prompt, role.Key)
	}
}

func TestCatalogue_Resolve(t *testing.T) {
	c := MustLoadCatalogue()

	tests := []struct {
		alias   string
		wantKey string
	}{
		{"cardiology", "cardiology"},
		{"Cardio", "cardiology"},
		{" CARDIOLOGIST ", "cardiology"},
		{"gp", "general_physician"},
		{"general physician", "general_physician"},
		{"hema", "hematology"},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			role, ok := c.Resolve(tt.alias)
			require.True(t, ok)
			assert.Equal(t, tt.wantKey, role.Key)
		})
	}

	_, ok := c.Resolve("astrologer")
	assert.False(t, ok)
}

func TestParseCatalogue_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"Empty", "roles: []"},
		{"Missing name", "roles:\n  - key: a\n"},
		{"Duplicate alias", "roles:\n  - key: a\n    name: A\n    aliases: [x]\n  - key: b\n    name: B\n    aliases: [x]\n"},
		{"Invalid yaml", "roles: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalogue([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestCatalogue_RolesIsCopy(t *testing.T) {
	c := MustLoadCatalogue()
	roles := c.Roles()
	roles[0].Name = "changed"
	assert.Equal(t, "Cardiologist", c.Roles()[0].Name)
}
