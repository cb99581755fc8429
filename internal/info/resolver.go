// Package info maps tumor categories to descriptive text.
//
// The description table is assembled once at process start (built-in
// entries, optionally merged with a TOML override file) and is immutable
// afterwards. Lookups never fail: unknown categories get a deterministic
// placeholder.
package info

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"

	"github.com/brainmri/tumorscan/internal/analyze"
)

// builtinDescriptions carries the descriptions the product ships with.
// Medical accuracy of the text is owned by the content table, not by this
// package.
var builtinDescriptions = map[string]string{
	"glioma": "Glioma is a common type of tumor that originates from glial cells in the brain or spine. " +
		"Gliomas can be low-grade (slow-growing) or high-grade (aggressive). Symptoms depend on the tumor's " +
		"location and may include headaches, seizures, or changes in personality. Treatment often involves " +
		"surgery, radiation therapy, and chemotherapy.",
	"meningioma": "Meningioma is a tumor that arises from the meninges, the membranes that cover the brain " +
		"and spinal cord. Most meningiomas are benign, but their location in the brain can still cause serious " +
		"health problems. Common symptoms include headaches, vision problems, or seizures. Treatment may involve " +
		"surgical removal or observation in non-symptomatic cases.",
	"pituitary": "Pituitary tumors form in the pituitary gland, which controls several hormone-producing " +
		"glands in the body. These tumors may cause hormonal imbalances affecting growth, metabolism, and " +
		"reproductive functions. Treatment may include medication, hormone therapy, or surgery.",
	"tumor": "Brain Tumor is a general term for abnormal growths of cells in the brain. Tumors can be benign " +
		"(non-cancerous) or malignant (cancerous). They can affect brain function depending on their size and " +
		"location. Common treatments include surgery, radiation, and chemotherapy.",
}

// overrideFile is the TOML shape of a description override file:
//
//	[descriptions]
//	glioma = "..."
type overrideFile struct {
	Descriptions map[string]string `toml:"descriptions"`
}

// Resolver answers category description lookups against an immutable
// table.
type Resolver struct {
	descriptions map[string]string
}

// NewResolver builds a Resolver over the built-in description table.
func NewResolver() *Resolver {
	table := make(map[string]string, len(builtinDescriptions))
	for k, v := range builtinDescriptions {
		table[k] = v
	}
	return &Resolver{descriptions: table}
}

// NewResolverFromFile builds a Resolver from the built-ins merged with a
// TOML override file. Override keys are normalized, so file entries match
// categories regardless of case.
func NewResolverFromFile(path string) (*Resolver, error) {
	r := NewResolver()

	var overrides overrideFile
	if _, err := toml.DecodeFile(path, &overrides); err != nil {
		return nil, fmt.Errorf("failed to load descriptions from %s: %w", path, err)
	}
	for category, text := range overrides.Descriptions {
		r.descriptions[analyze.Normalize(category)] = text
	}
	return r, nil
}

// Describe returns the descriptive text for a category. The category is
// normalized before lookup; a miss yields the deterministic placeholder
// "<Title-Cased Category>: Additional information will be added soon."
// Describe never fails.
func (r *Resolver) Describe(category string) string {
	key := analyze.Normalize(category)
	if text, ok := r.descriptions[key]; ok {
		return text
	}
	return fmt.Sprintf("%s: Additional information will be added soon.", titleCase(key))
}

// Known reports whether the category has a real description entry.
func (r *Resolver) Known(category string) bool {
	_, ok := r.descriptions[analyze.Normalize(category)]
	return ok
}

// titleCase upper-cases the first letter of every letter run and
// lower-cases the rest, treating any non-letter as a boundary:
// "unknown_x" becomes "Unknown_X". This matches the placeholder format
// the product has always shown for unmapped categories.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
