package dataset

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Catalog is the ordered list of class labels of one model. A label's index
// is the classifier output position that represents it.
type Catalog []string

// Len returns the number of classes.
func (c Catalog) Len() int { return len(c) }

// Label returns the label at index i.
func (c Catalog) Label(i int) string { return c[i] }

// Index returns the position of label.
func (c Catalog) Index(label string) (int, bool) {
	i := slices.Index(c, label)
	return i, i >= 0
}

// Equal reports whether both catalogs list the same labels in the same order.
func (c Catalog) Equal(other Catalog) bool { return slices.Equal(c, other) }

// Clone returns an independent copy.
func (c Catalog) Clone() Catalog { return slices.Clone(c) }

// MarshalCatalog encodes a catalog the way it is stored next to a checkpoint.
func MarshalCatalog(c Catalog) ([]byte, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return json.MarshalIndent([]string(c), "", "  ")
}

// UnmarshalCatalog decodes a stored catalog verbatim.
func UnmarshalCatalog(data []byte) (Catalog, error) {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("decode catalog: no labels")
	}
	return Catalog(labels), nil
}
