package engine

import (
	"time"

	"github.com/gyaneshwarpardhi/formflow/internal/config"
)

// Catalog is an immutable set of built forms. Hot reload builds a new Catalog
// and swaps it in; readers never see a partially updated one.
type Catalog struct {
	forms    map[string]*config.Form
	order    []string
	loadedAt time.Time
}

// NewCatalog indexes forms by id. Later duplicates replace earlier ones.
func NewCatalog(forms []*config.Form) *Catalog {
	c := &Catalog{
		forms:    make(map[string]*config.Form, len(forms)),
		order:    make([]string, 0, len(forms)),
		loadedAt: time.Now(),
	}
	for _, f := range forms {
		if _, dup := c.forms[f.ID]; !dup {
			c.order = append(c.order, f.ID)
		}
		c.forms[f.ID] = f
	}
	return c
}

// Form returns a form by id.
func (c *Catalog) Form(id string) (*config.Form, bool) {
	f, ok := c.forms[id]
	return f, ok
}

// Forms returns the forms in config order.
func (c *Catalog) Forms() []*config.Form {
	out := make([]*config.Form, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.forms[id])
	}
	return out
}

// Len returns the number of forms.
func (c *Catalog) Len() int { return len(c.forms) }

// LoadedAt returns when the catalog was built.
func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

// BuildCatalog validates cfg and builds every form into a new Catalog.
func BuildCatalog(cfg *config.Config) (*Catalog, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	forms, err := config.BuildAll(cfg)
	if err != nil {
		return nil, err
	}
	return NewCatalog(forms), nil
}

// Apply builds a catalog from cfg and swaps it in. On error the current
// catalog stays in place.
func (e *Engine) Apply(cfg *config.Config) (*Catalog, error) {
	cat, err := BuildCatalog(cfg)
	if err != nil {
		return nil, err
	}
	e.SwapCatalog(cat)
	return cat, nil
}
