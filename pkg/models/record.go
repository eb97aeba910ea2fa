package models

// Category classifies a device by form factor.
type Category string

const (
	CategoryDesktop Category = "Desktop"
	CategoryLaptop  Category = "Laptop"
	CategoryOther   Category = "Other"
)

// LocationUnknown is the sentinel location for devices that could not be
// resolved through an explicit field, the supplied mapping, or the built-in
// IP-prefix table.
const LocationUnknown = "Unknown"

// DeviceRecord is the canonical, fully-defaulted representation of one
// inventoried machine. Every field is guaranteed to hold a typed value after
// validation: numeric fields default to 0, booleans to false, strings to "".
// Keys from the source export that have no canonical field are preserved in
// Extra so no information is dropped.
type DeviceRecord struct {
	ID             string   `json:"id,omitempty"`
	ComputerName   string   `json:"computer_name"`
	SerialNumber   string   `json:"serial_number"`
	Manufacturer   string   `json:"manufacturer"`
	Model          string   `json:"model"`
	RAMGB          float64  `json:"ram_gb"`
	TotalStorageGB float64  `json:"total_storage_gb"`
	FreeStorageGB  float64  `json:"free_storage_gb"`
	DriveType      string   `json:"drive_type"`
	TPMVersion     string   `json:"tpm_version"`
	SecureBoot     bool     `json:"secure_boot"`
	Win11Ready     bool     `json:"win11_ready"`
	InternalIP     string   `json:"internal_ip"`
	JoinType       string   `json:"join_type"`
	OSName         string   `json:"os_name"`
	WindowsVersion string   `json:"windows_version"`
	LastBoot       string   `json:"last_boot"`
	CollectionDate string   `json:"collection_date"`
	Category       Category `json:"category"`
	Location       string   `json:"location"`
	Issues         []string `json:"issues"`

	// Extra holds source fields outside the canonical shape, passed through
	// verbatim.
	Extra map[string]any `json:"extra,omitempty"`
}

// LocationMapping is an optional alias table supplied by the caller: generic
// site labels to human labels, and IP-address prefixes to human labels.
// Read-only once supplied; safe to share across goroutines.
type LocationMapping struct {
	GenericToReal  map[string]string `json:"genericToReal" yaml:"genericToReal"`
	IPRangeMapping map[string]string `json:"ipRangeMapping" yaml:"ipRangeMapping"`
}

// ParseProgress reports completion of one input source during ingestion.
type ParseProgress struct {
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	FileName string `json:"file_name,omitempty"`
}
