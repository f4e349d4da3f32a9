package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Attribute is one selected variation attribute on a cart line.
type Attribute struct {
	Name  string `json:"attribute"`
	Value string `json:"value"`
}

// Variation is the ordered attribute selection of a cart line. Order is kept
// for display only; it does not affect the item key.
type Variation []Attribute

// Get returns the value selected for the attribute with the given name.
func (v Variation) Get(name string) (string, bool) {
	name = NormalizeAttributeName(name)
	for _, a := range v {
		if NormalizeAttributeName(a.Name) == name {
			return a.Value, true
		}
	}
	return "", false
}

// Map returns the selection keyed by normalized attribute name.
func (v Variation) Map() map[string]string {
	m := make(map[string]string, len(v))
	for _, a := range v {
		m[NormalizeAttributeName(a.Name)] = a.Value
	}
	return m
}

// Accepts reports whether a variation with these own attribute values
// matches a selection keyed by normalized attribute name. Empty values
// accept any choice; comparison ignores case.
func (v Variation) Accepts(selection map[string]string) bool {
	for _, a := range v {
		if a.Value == "" {
			continue
		}
		if !strings.EqualFold(selection[NormalizeAttributeName(a.Name)], a.Value) {
			return false
		}
	}
	return true
}

// keyPayload is the canonical form hashed into an item key. encoding/json
// writes map keys in sorted order, so ExtraData is canonical as well.
type keyPayload struct {
	ProductID   int64          `json:"p"`
	VariationID int64          `json:"v"`
	Variation   [][2]string    `json:"a"`
	ExtraData   map[string]any `json:"x"`
}

// DeriveItemKey returns the identity of a cart line. The same product,
// variation id, attribute selection (in any order) and extra data always give
// the same key; any difference gives a different one.
func DeriveItemKey(productID, variationID int64, variation Variation, extraData map[string]any) (string, error) {
	selected := variation.Map()
	names := make([]string, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([][2]string, len(names))
	for i, name := range names {
		pairs[i] = [2]string{name, selected[name]}
	}

	extra := extraData
	if len(extra) == 0 {
		extra = nil
	}

	b, err := json.Marshal(keyPayload{
		ProductID:   productID,
		VariationID: variationID,
		Variation:   pairs,
		ExtraData:   extra,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode item identity: %w", err)
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16]), nil
}
