package tool

import (
	"fmt"

	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/schema"
)

// Definition describes one operation: a unique name, a description guiding
// model selection and a strict parameter schema.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  *schema.Schema `json:"parameters"`
}

// Catalog is an immutable, ordered registry of operation definitions with
// precompiled argument validators. Safe for concurrent use.
type Catalog struct {
	defs       []Definition
	index      map[string]int
	validators map[string]schema.Validator
}

// NewCatalog registers defs in order and compiles their parameter schemas.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		defs:       make([]Definition, 0, len(defs)),
		index:      make(map[string]int, len(defs)),
		validators: make(map[string]schema.Validator, len(defs)),
	}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("catalog: definition without name")
		}
		if _, dup := c.index[d.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate operation %q", d.Name)
		}
		if d.Parameters == nil {
			d.Parameters = schema.Object(nil)
		}
		v, err := schema.Compile(d.Name, d.Parameters)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		c.index[d.Name] = len(c.defs)
		c.defs = append(c.defs, d)
		c.validators[d.Name] = v
	}
	return c, nil
}

// MustCatalog is NewCatalog that panics on error. Use for static catalogs.
func MustCatalog(defs ...Definition) *Catalog {
	c, err := NewCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// List returns the definitions in registration order.
func (c *Catalog) List() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Names returns the operation names in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.defs))
	for i, d := range c.defs {
		out[i] = d.Name
	}
	return out
}

// Lookup returns the definition registered under name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	i, ok := c.index[name]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Validate checks sanitized arguments against the operation's schema.
func (c *Catalog) Validate(name string, args map[string]any) error {
	v, ok := c.validators[name]
	if !ok {
		return ErrUnknownTool
	}
	return v.Validate(args)
}

// ModelTools renders the catalog in the provider neutral tool format.
func (c *Catalog) ModelTools() []model.ToolDefinition {
	tools := make([]model.ToolDefinition, len(c.defs))
	for i, d := range c.defs {
		tools[i] = model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters.Map(),
			},
		}
	}
	return tools
}
