package agents

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var rolesYAML []byte

// Role is one configured specialist: a display name, selection aliases and
// the system instruction sent with every analysis request.
type Role struct {
	Key     string   `yaml:"key" json:"key"`
	Name    string   `yaml:"name" json:"name"`
	Aliases []string `yaml:"aliases" json:"aliases"`
	Prompt  string   `yaml:"prompt" json:"-"`
}

// Catalogue is the ordered set of specialist roles
type Catalogue struct {
	roles   []Role
	byAlias map[string]int
}

type catalogueFile struct {
	Roles []Role `yaml:"roles"`
}

// LoadCatalogue parses the embedded role catalogue
func LoadCatalogue() (*Catalogue, error) {
	return ParseCatalogue(rolesYAML)
}

// ParseCatalogue parses a YAML role catalogue. Keys and aliases must be unique.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse role catalogue: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("role catalogue is empty")
	}

	c := &Catalogue{byAlias: make(map[string]int)}
	for i, role := range file.Roles {
		if role.Key == "" || role.Name == "" {
			return nil, fmt.Errorf("role %d: key and name are required", i)
		}
		role.Prompt = strings.TrimSpace(role.Prompt)

		for _, alias := range append([]string{role.Key}, role.Aliases...) {
			alias = normalizeAlias(alias)
			if existing, ok := c.byAlias[alias]; ok && existing != i {
				return nil, fmt.Errorf("alias %q is used by both %s and %s", alias, file.Roles[existing].Key, role.Key)
			}
			c.byAlias[alias] = i
		}
		c.roles = append(c.roles, role)
	}
	return c, nil
}

// MustLoadCatalogue is LoadCatalogue for package init and tests
func MustLoadCatalogue() *Catalogue {
	c, err := LoadCatalogue()
	if err != nil {
		panic(err)
	}
	return c
}

// Roles returns the roles in panel order
func (c *Catalogue) Roles() []Role {
	out := make([]Role, len(c.roles))
	copy(out, c.roles)
	return out
}

// Resolve finds a role by key or alias, case-insensitively
func (c *Catalogue) Resolve(name string) (Role, bool) {
	i, ok := c.byAlias[normalizeAlias(name)]
	if !ok {
		return Role{}, false
	}
	return c.roles[i], true
}

// Keys returns role keys in panel order
func (c *Catalogue) Keys() []string {
	keys := make([]string, len(c.roles))
	for i, r := range c.roles {
		keys[i] = r.Key
	}
	return keys
}

func normalizeAlias(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
