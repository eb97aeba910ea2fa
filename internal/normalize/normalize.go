// Package normalize maps loosely-structured inventory export objects onto
// the canonical device-record shape: flattening nested security sub-objects,
// resolving legacy timestamp encodings, deriving category and location, and
// coercing every required field to its documented type.
package normalize

import (
	"strconv"
	"strings"

	"github.com/calebrow/fleetsift/pkg/models"
)

// Normalizer converts one raw export object into a canonical candidate.
// Lookup tables are injected at construction so tests can substitute
// alternates; zero-value options fall back to the embedded defaults.
type Normalizer struct {
	categories    map[string]models.Category
	ipPrefixes    []prefixLabel
	genericLabels map[string]string
}

// Option customizes a Normalizer.
type Option func(*Normalizer)

// WithModelCategories replaces the embedded model-to-category table.
func WithModelCategories(table map[string]models.Category) Option {
	return func(n *Normalizer) { n.categories = table }
}

// WithIPPrefixes replaces the built-in generic IP-prefix table.
func WithIPPrefixes(table map[string]string) Option {
	return func(n *Normalizer) {
		n.ipPrefixes = n.ipPrefixes[:0]
		for p, l := range table {
			n.ipPrefixes = append(n.ipPrefixes, prefixLabel{prefix: p, label: l})
		}
		sortPrefixes(n.ipPrefixes)
	}
}

// WithGenericLabels replaces the built-in generic location-label aliases.
func WithGenericLabels(table map[string]string) Option {
	return func(n *Normalizer) { n.genericLabels = table }
}

// New creates a Normalizer with the embedded default tables.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		categories: defaultModelCategories(),
		ipPrefixes: defaultIPPrefixes(),
		genericLabels: map[string]string{
			"hq":     "Head Office",
			"dc":     "Data Center",
			"wh":     "Warehouse",
			"branch": "Branch Office",
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Field aliases accepted for each canonical field. Exports from different
// collector versions disagree on naming; the first present alias wins.
var (
	computerNameKeys = []string{"ComputerName", "computerName", "Hostname", "hostname", "Name"}
	serialKeys       = []string{"SerialNumber", "serialNumber", "Serial", "ServiceTag"}
	manufacturerKeys = []string{"Manufacturer", "manufacturer", "Make"}
	modelKeys        = []string{"Model", "model"}
	ramKeys          = []string{"RAMGB", "RamGB", "MemoryGB", "RAM"}
	totalStorageKeys = []string{"TotalStorageGB", "StorageGB", "DiskSizeGB"}
	freeStorageKeys  = []string{"FreeStorageGB", "FreeSpaceGB", "DiskFreeGB"}
	driveTypeKeys    = []string{"DriveType", "driveType", "DiskType"}
	internalIPKeys   = []string{"InternalIP", "IPAddress", "IPv4", "IP"}
	joinTypeKeys     = []string{"JoinType", "DomainJoinType", "DomainJoin"}
	osNameKeys       = []string{"OSName", "OperatingSystem", "OS"}
	winVersionKeys   = []string{"WindowsVersion", "OSVersion", "WinVersion"}
	win11FlagKeys    = []string{"Win11Ready", "Windows11Ready", "Win11Compatible"}
	lastBootKeys     = []string{"LastBoot", "LastBootTime", "LastBootUpTime"}
	locationKeys     = []string{"location", "Location", "Site", "Office"}
	issueListKeys    = []string{"Issues", "issues"}

	tpmObjectKeys        = []string{"TPMInfo", "TPM"}
	tpmVersionKeys       = []string{"TPMVersion", "Version", "SpecVersion"}
	secureBootObjectKeys = []string{"SecureBootInfo", "SecureBoot"}
	secureBootBoolKeys   = []string{"Enabled", "SecureBootEnabled"}
)

// consumedKeys lists every top-level source key claimed by a canonical
// field; anything else passes through to the extra bag.
var consumedKeys = buildConsumedKeys()

func buildConsumedKeys() map[string]struct{} {
	set := make(map[string]struct{})
	groups := [][]string{
		computerNameKeys, serialKeys, manufacturerKeys, modelKeys,
		ramKeys, totalStorageKeys, freeStorageKeys, driveTypeKeys,
		internalIPKeys, joinTypeKeys, osNameKeys, winVersionKeys,
		win11FlagKeys, lastBootKeys, locationKeys, issueListKeys,
		tpmObjectKeys, secureBootObjectKeys,
		{"TPMVersion", "CollectionDate", "CollectionDateTime", "DateCollected", "Timestamp", "ScanDate", "ReportDate"},
	}
	for _, g := range groups {
		for _, k := range g {
			set[k] = struct{}{}
		}
	}
	return set
}

// Normalize maps one raw export object to a canonical candidate keyed by the
// canonical field names. The candidate still carries loosely-typed scalars;
// Validate applies the schema to produce the final record.
func (n *Normalizer) Normalize(raw map[string]any, mapping *models.LocationMapping) map[string]any {
	out := make(map[string]any, 24)

	out["computer_name"] = stringField(raw, computerNameKeys...)
	out["serial_number"] = stringField(raw, serialKeys...)
	out["manufacturer"] = stringField(raw, manufacturerKeys...)
	out["model"] = stringField(raw, modelKeys...)
	out["drive_type"] = stringField(raw, driveTypeKeys...)
	out["internal_ip"] = stringField(raw, internalIPKeys...)
	out["join_type"] = stringField(raw, joinTypeKeys...)
	out["os_name"] = stringField(raw, osNameKeys...)
	out["windows_version"] = stringField(raw, winVersionKeys...)

	out["ram_gb"] = floatField(raw, ramKeys...)
	out["total_storage_gb"] = floatField(raw, totalStorageKeys...)
	out["free_storage_gb"] = floatField(raw, freeStorageKeys...)

	out["tpm_version"] = n.tpmVersion(raw)
	out["secure_boot"] = n.secureBoot(raw)

	collection := NormalizeLegacyDate(n.collectionDate(raw))
	out["collection_date"] = collection
	out["last_boot"] = n.lastBoot(raw, collection)

	out["win11_ready"] = n.win11Ready(raw)

	model := toString(out["model"])
	cat, ok := n.categories[model]
	if !ok {
		cat = models.CategoryOther
	}
	out["category"] = string(cat)

	out["location"] = n.resolveLocation(raw, toString(out["internal_ip"]), mapping)

	issues := stringList(raw, issueListKeys...)
	issues = append(issues, n.deriveIssues(out)...)
	out["issues"] = issues

	extra := make(map[string]any)
	for k, v := range raw {
		if _, claimed := consumedKeys[k]; !claimed {
			extra[k] = v
		}
	}
	out["extra"] = extra

	return out
}

// tpmVersion prefers the nested security-info object, then the flat field.
func (n *Normalizer) tpmVersion(raw map[string]any) string {
	for _, objKey := range tpmObjectKeys {
		if obj, ok := raw[objKey].(map[string]any); ok {
			if v := stringField(obj, tpmVersionKeys...); v != "" {
				return v
			}
		}
	}
	return stringField(raw, "TPMVersion")
}

// secureBoot prefers an explicit boolean inside a nested status object,
// including an explicit false, before coercing the flat field.
func (n *Normalizer) secureBoot(raw map[string]any) bool {
	for _, objKey := range secureBootObjectKeys {
		if obj, ok := raw[objKey].(map[string]any); ok {
			for _, k := range secureBootBoolKeys {
				if v, present := obj[k]; present {
					return toBool(v)
				}
			}
		}
	}
	if v, present := raw["SecureBoot"]; present {
		return toBool(v)
	}
	return false
}

// collectionDate searches the alternative field names and shapes in a fixed
// priority order. The order matches what real export corpora were tuned
// against; do not reorder without re-checking those corpora.
func (n *Normalizer) collectionDate(raw map[string]any) string {
	if obj, ok := raw["CollectionDate"].(map[string]any); ok {
		if v := toString(obj["DateTime"]); v != "" {
			return v
		}
		if v := toString(obj["Date"]); v != "" {
			return v
		}
	}
	if obj, ok := raw["Timestamp"].(map[string]any); ok {
		if v := toString(obj["DateTime"]); v != "" {
			return v
		}
	}
	for _, k := range []string{"CollectionDate", "CollectionDateTime", "DateCollected", "Timestamp", "ScanDate", "ReportDate"} {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// lastBoot prefers an explicit last-boot field, falling back to the already
// resolved collection date.
func (n *Normalizer) lastBoot(raw map[string]any, collectionDate string) string {
	if v := stringField(raw, lastBootKeys...); v != "" {
		return NormalizeLegacyDate(v)
	}
	return collectionDate
}

// win11Ready is true when the OS strings mention Windows 11 or an explicit
// readiness flag is truthy.
func (n *Normalizer) win11Ready(raw map[string]any) bool {
	for _, keys := range [][]string{osNameKeys, winVersionKeys} {
		for _, k := range keys {
			if strings.Contains(strings.ToLower(toString(raw[k])), "windows 11") {
				return true
			}
		}
	}
	for _, k := range win11FlagKeys {
		if v, present := raw[k]; present && toBool(v) {
			return true
		}
	}
	return false
}

// resolveLocation applies the four-step resolution order: explicit field
// (mapped through the alias table when one matches), caller-supplied IP
// ranges, built-in IP prefixes, then the Unknown sentinel.
func (n *Normalizer) resolveLocation(raw map[string]any, internalIP string, mapping *models.LocationMapping) string {
	if explicit := stringField(raw, locationKeys...); explicit != "" {
		if mapping != nil {
			if real, ok := mapping.GenericToReal[explicit]; ok {
				return real
			}
		}
		if real, ok := n.genericLabels[strings.ToLower(explicit)]; ok {
			return real
		}
		return explicit
	}

	if internalIP != "" {
		if mapping != nil {
			if label := matchPrefix(mapping.IPRangeMapping, internalIP); label != "" {
				return label
			}
		}
		for _, pl := range n.ipPrefixes {
			if strings.HasPrefix(internalIP, pl.prefix) {
				return pl.label
			}
		}
	}

	return models.LocationUnknown
}

// deriveIssues flags conditions downstream dashboards surface per record.
func (n *Normalizer) deriveIssues(candidate map[string]any) []string {
	var issues []string
	if toString(candidate["serial_number"]) == "" {
		issues = append(issues, "missing serial number")
	}
	if toString(candidate["location"]) == models.LocationUnknown {
		issues = append(issues, "unresolved location")
	}
	if b, ok := candidate["win11_ready"].(bool); ok && !b {
		issues = append(issues, "not Windows 11 ready")
	}
	return issues
}

// matchPrefix returns the label of the longest mapping prefix that matches
// the IP, or "".
func matchPrefix(mapping map[string]string, ip string) string {
	best := ""
	bestLen := -1
	for prefix, label := range mapping {
		if strings.HasPrefix(ip, prefix) && len(prefix) > bestLen {
			best = label
			bestLen = len(prefix)
		}
	}
	return best
}

// stringField returns the first alias present with a non-empty string value.
func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s := toString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// floatField returns the first alias that parses as a number, else 0.
func floatField(raw map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if f, parsed := toFloat(v); parsed {
				return f
			}
		}
	}
	return 0
}

// stringList coerces the first present alias to a list of strings.
func stringList(raw map[string]any, keys ...string) []string {
	for _, k := range keys {
		items, ok := raw[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s := toString(it); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1", "enabled", "on":
			return true
		}
		return false
	default:
		return false
	}
}
