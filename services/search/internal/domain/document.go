package domain

import "fmt"

// Category is one segment of a category path.
type Category struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name" validate:"required"`
}

// Attribute is a labelled value attached to a document.
type Attribute struct {
	Label string `json:"label" validate:"required"`
	Code  string `json:"code,omitempty"`
	Value any    `json:"value"`
}

// Document is an indexable item.
type Document struct {
	ID            string         `json:"id" validate:"required"`
	Data          map[string]any `json:"data,omitempty"`
	CategoryPaths [][]Category   `json:"categories,omitempty"`
	Attributes    []Attribute    `json:"attributes,omitempty"`
}

// Variant is a concrete purchasable form of a master. Master is the index of
// the owning product in its Catalog.
type Variant struct {
	Document
	Master int `json:"-"`
}

// Product is a master document together with its variants.
type Product struct {
	Document
	Variants []Variant `json:"variants,omitempty"`
}

// Catalog is an arena of products. Variants refer to their master by index.
type Catalog struct {
	Masters []Product
}

// Add appends p, rewriting its variants' master references, and returns its
// index.
func (c *Catalog) Add(p Product) int {
	idx := len(c.Masters)
	for i := range p.Variants {
		p.Variants[i].Master = idx
	}
	c.Masters = append(c.Masters, p)
	return idx
}

// Master resolves the product a variant belongs to.
func (c *Catalog) Master(v Variant) (*Product, error) {
	if v.Master < 0 || v.Master >= len(c.Masters) {
		return nil, fmt.Errorf("variant %s: master index %d out of range", v.ID, v.Master)
	}
	return &c.Masters[v.Master], nil
}
