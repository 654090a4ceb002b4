package reference

// Catalog is one option directory: human labels for the codes an enum field
// offers in a select widget.
type Catalog struct {
	Name  string   `yaml:"name"`
	Items []Option `yaml:"items"`
}

type Option struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
	Order int    `yaml:"order,omitempty"`
}

// LabelFor returns the catalog label for a code, falling back to the code
// itself.
func (c Catalog) LabelFor(code string) string {
	for _, it := range c.Items {
		if it.Code == code {
			return it.Label
		}
	}
	return code
}
