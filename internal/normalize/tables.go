package normalize

import (
	"bufio"
	"bytes"
	_ "embed"
	"sort"
	"strings"

	"github.com/calebrow/fleetsift/pkg/models"
)

//go:embed model_categories.txt
var modelCategoryRawData []byte

//go:embed ip_prefixes.txt
var ipPrefixRawData []byte

// prefixLabel pairs an IP-address prefix with its location label.
type prefixLabel struct {
	prefix string
	label  string
}

// defaultModelCategories parses the embedded model-to-category table.
func defaultModelCategories() map[string]models.Category {
	table := make(map[string]models.Category, 64)
	scanner := bufio.NewScanner(bytes.NewReader(modelCategoryRawData))
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "\t", 2)
		if len(parts) != 2 {
			continue
		}
		model := strings.TrimSpace(parts[0])
		cat := models.Category(strings.TrimSpace(parts[1]))
		if model != "" && cat != "" {
			table[model] = cat
		}
	}
	return table
}

// defaultIPPrefixes parses the embedded generic IP-prefix table, longest
// prefixes first so the most specific match wins.
func defaultIPPrefixes() []prefixLabel {
	var table []prefixLabel
	scanner := bufio.NewScanner(bytes.NewReader(ipPrefixRawData))
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "\t", 2)
		if len(parts) != 2 {
			continue
		}
		p := strings.TrimSpace(parts[0])
		l := strings.TrimSpace(parts[1])
		if p != "" && l != "" {
			table = append(table, prefixLabel{prefix: p, label: l})
		}
	}
	sortPrefixes(table)
	return table
}

// sortPrefixes orders a prefix table longest-first, ties broken
// lexicographically for determinism.
func sortPrefixes(table []prefixLabel) {
	sort.Slice(table, func(i, j int) bool {
		if len(table[i].prefix) != len(table[j].prefix) {
			return len(table[i].prefix) > len(table[j].prefix)
		}
		return table[i].prefix < table[j].prefix
	})
}
