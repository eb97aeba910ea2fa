package normalize

import "github.com/calebrow/fleetsift/pkg/models"

// fieldKind is the primitive type a schema field coerces to.
type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindBool
	kindStringList
)

// fieldSpec declares one canonical field: its coercion kind and the default
// used when the candidate value is absent or uncoercible.
type fieldSpec struct {
	name      string
	kind      fieldKind
	defString string
}

// recordSchema declares every canonical field. Numeric fields default to 0,
// booleans to false, strings to "" unless a defString says otherwise.
var recordSchema = []fieldSpec{
	{name: "computer_name", kind: kindString},
	{name: "serial_number", kind: kindString},
	{name: "manufacturer", kind: kindString},
	{name: "model", kind: kindString},
	{name: "ram_gb", kind: kindNumber},
	{name: "total_storage_gb", kind: kindNumber},
	{name: "free_storage_gb", kind: kindNumber},
	{name: "drive_type", kind: kindString},
	{name: "tpm_version", kind: kindString},
	{name: "secure_boot", kind: kindBool},
	{name: "win11_ready", kind: kindBool},
	{name: "internal_ip", kind: kindString},
	{name: "join_type", kind: kindString, defString: "None"},
	{name: "os_name", kind: kindString},
	{name: "windows_version", kind: kindString},
	{name: "last_boot", kind: kindString},
	{name: "collection_date", kind: kindString},
	{name: "category", kind: kindString, defString: string(models.CategoryOther)},
	{name: "location", kind: kindString, defString: models.LocationUnknown},
	{name: "issues", kind: kindStringList},
}

var schemaIndex = buildSchemaIndex()

func buildSchemaIndex() map[string]fieldSpec {
	idx := make(map[string]fieldSpec, len(recordSchema))
	for _, fs := range recordSchema {
		idx[fs.name] = fs
	}
	return idx
}

// coerce applies the field's kind to a loosely-typed candidate value,
// falling back to the documented default. Never fails.
func (fs fieldSpec) coerce(v any) any {
	switch fs.kind {
	case kindNumber:
		if f, ok := toFloat(v); ok {
			return f
		}
		return float64(0)
	case kindBool:
		return toBool(v)
	case kindStringList:
		switch t := v.(type) {
		case []string:
			return t
		case []any:
			out := make([]string, 0, len(t))
			for _, it := range t {
				if s := toString(it); s != "" {
					out = append(out, s)
				}
			}
			return out
		}
		return []string{}
	default:
		if s := toString(v); s != "" {
			return s
		}
		return fs.defString
	}
}

// ValidateRecord coerces a candidate into a canonical DeviceRecord. Every
// required field ends up with a typed value; keys outside the schema are
// preserved in Extra rather than stripped.
func ValidateRecord(candidate map[string]any) models.DeviceRecord {
	coerced := make(map[string]any, len(recordSchema))
	for _, fs := range recordSchema {
		coerced[fs.name] = fs.coerce(candidate[fs.name])
	}

	extra := make(map[string]any)
	if bag, ok := candidate["extra"].(map[string]any); ok {
		for k, v := range bag {
			extra[k] = v
		}
	}
	for k, v := range candidate {
		if k == "extra" {
			continue
		}
		if _, known := schemaIndex[k]; !known {
			extra[k] = v
		}
	}

	rec := models.DeviceRecord{
		ComputerName:   coerced["computer_name"].(string),
		SerialNumber:   coerced["serial_number"].(string),
		Manufacturer:   coerced["manufacturer"].(string),
		Model:          coerced["model"].(string),
		RAMGB:          coerced["ram_gb"].(float64),
		TotalStorageGB: coerced["total_storage_gb"].(float64),
		FreeStorageGB:  coerced["free_storage_gb"].(float64),
		DriveType:      coerced["drive_type"].(string),
		TPMVersion:     coerced["tpm_version"].(string),
		SecureBoot:     coerced["secure_boot"].(bool),
		Win11Ready:     coerced["win11_ready"].(bool),
		InternalIP:     coerced["internal_ip"].(string),
		JoinType:       coerced["join_type"].(string),
		OSName:         coerced["os_name"].(string),
		WindowsVersion: coerced["windows_version"].(string),
		LastBoot:       coerced["last_boot"].(string),
		CollectionDate: coerced["collection_date"].(string),
		Location:       coerced["location"].(string),
		Issues:         coerced["issues"].([]string),
	}

	switch cat := models.Category(coerced["category"].(string)); cat {
	case models.CategoryDesktop, models.CategoryLaptop, models.CategoryOther:
		rec.Category = cat
	default:
		rec.Category = models.CategoryOther
	}

	if rec.Location == "" {
		rec.Location = models.LocationUnknown
	}
	if rec.Issues == nil {
		rec.Issues = []string{}
	}
	if len(extra) > 0 {
		rec.Extra = extra
	}

	return rec
}
