// Package dataset discovers labeled images on disk and curates them into
// capped, stratified train/test/validation splits.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Item is one labeled image. ID is the slash-separated path relative to the
// data root and is unique within a dataset.
type Item struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

// DiscoverOptions controls which folders and files Discover accepts.
type DiscoverOptions struct {
	Labels     []string
	Extensions []string
	Excludes   []string
}

// Inventory is the result of scanning a data root.
type Inventory struct {
	Items []Item
	// Unknown lists class folders that match no configured label.
	Unknown []string
	// Skipped counts files rejected by extension or exclude pattern.
	Skipped int
}

// CountByLabel returns the number of items per label.
func (inv *Inventory) CountByLabel() map[string]int {
	out := make(map[string]int)
	for _, it := range inv.Items {
		out[it.Label]++
	}
	return out
}

// CanonicalLabel folds a class folder name into label form: NFC, runs of
// whitespace become "_", lower case. "Virabhadrasana  I" -> "virabhadrasana_i".
func CanonicalLabel(name string) string {
	s := norm.NFC.String(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), "_")
	// Casers keep state, so each call gets its own.
	return cases.Lower(language.Und).String(s)
}

// Discover scans root/<class>/<image>. Class folders are matched to
// opts.Labels by CanonicalLabel. Hidden entries are ignored; files are
// sorted by name within each class and classes follow label order.
func Discover(root string, opts DiscoverOptions) (*Inventory, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot stat data directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data path is not a directory: %s", root)
	}

	byCanon := make(map[string]string, len(opts.Labels))
	for _, l := range opts.Labels {
		byCanon[CanonicalLabel(l)] = l
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("cannot read data directory %s: %w", root, err)
	}

	inv := &Inventory{}
	byLabel := map[string][]Item{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		label, ok := byCanon[CanonicalLabel(e.Name())]
		if !ok {
			inv.Unknown = append(inv.Unknown, e.Name())
			continue
		}
		items, skipped, err := scanClass(root, e.Name(), label, opts)
		if err != nil {
			return nil, err
		}
		inv.Skipped += skipped
		byLabel[label] = append(byLabel[label], items...)
	}

	for _, l := range opts.Labels {
		items := byLabel[l]
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		inv.Items = append(inv.Items, items...)
	}
	sort.Strings(inv.Unknown)
	return inv, nil
}

func scanClass(root, folder, label string, opts DiscoverOptions) ([]Item, int, error) {
	dir := filepath.Join(root, folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot read class directory %s: %w", dir, err)
	}
	var (
		out     []Item
		skipped int
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if matchesExclude(name, opts.Excludes) || !hasExtension(name, opts.Extensions) {
			skipped++
			continue
		}
		out = append(out, Item{
			ID:    folder + "/" + name,
			Label: label,
			Path:  filepath.Join(dir, name),
		})
	}
	return out, skipped, nil
}

// matchesExclude reports whether name matches any of the given glob patterns.
func matchesExclude(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// hasExtension is case-insensitive; an empty list accepts everything.
func hasExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
