package allocation

import "github.com/iliyamo/retreat-allocation/internal/model"

// Catalog lists the labels that exist in a pool together with the wing
// owning each of them.  An empty wing means the label is shared.
type Catalog struct {
	order []string
	wings map[string]model.Gender
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{wings: make(map[string]model.Gender)}
}

// Add registers label for wing.  A label registered for both wings
// becomes shared.
func (c *Catalog) Add(label string, wing model.Gender) {
	key := NormalizeLabel(label)
	if key == "" {
		return
	}
	prev, ok := c.wings[key]
	if !ok {
		c.order = append(c.order, label)
		c.wings[key] = wing
		return
	}
	if prev != wing {
		c.wings[key] = ""
	}
}

// WingOf returns the wing owning label and whether the label exists.
func (c *Catalog) WingOf(label string) (model.Gender, bool) {
	w, ok := c.wings[NormalizeLabel(label)]
	return w, ok
}

// Labels returns the labels usable by wing in registration order; shared
// labels are included for every wing.  An empty wing returns everything.
func (c *Catalog) Labels(wing model.Gender) []string {
	out := make([]string, 0, len(c.order))
	for _, l := range c.order {
		w := c.wings[NormalizeLabel(l)]
		if wing == "" || w == "" || w == wing {
			out = append(out, l)
		}
	}
	return out
}

// Len returns the number of distinct labels.
func (c *Catalog) Len() int { return len(c.order) }

// HallCatalog builds the catalog of generated hall seats of both wings.
func HallCatalog(cfg model.SeatingConfig) *Catalog {
	c := NewCatalog()
	for _, g := range model.Genders {
		for _, l := range LayoutFor(cfg.Wing(g)).All() {
			c.Add(l, g)
		}
	}
	return c
}

// ResourceCatalog builds a catalog from stored resources of one pool.
// Inactive resources are left out.
func ResourceCatalog(pool model.PoolType, resources []model.Resource) *Catalog {
	c := NewCatalog()
	for _, r := range resources {
		if r.PoolType != pool || !r.IsActive {
			continue
		}
		wing := r.Wing
		if !pool.GenderPartitioned() {
			wing = ""
		}
		c.Add(r.Label, wing)
	}
	return c
}
