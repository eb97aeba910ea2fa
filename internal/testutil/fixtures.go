package testutil

import (
	"github.com/calebrow/fleetsift/pkg/models"
)

// NewRecord returns a DeviceRecord with sensible defaults, suitable for test
// fixtures. Override individual fields after creation as needed.
func NewRecord(opts ...func(*models.DeviceRecord)) models.DeviceRecord {
	r := models.DeviceRecord{
		ComputerName:   "test-device",
		SerialNumber:   "SN-0001",
		Manufacturer:   "Dell",
		Model:          "OptiPlex 7070",
		RAMGB:          16,
		TotalStorageGB: 512,
		FreeStorageGB:  256,
		DriveType:      "SSD",
		TPMVersion:     "2.0",
		SecureBoot:     true,
		Win11Ready:     true,
		InternalIP:     "10.52.1.100",
		JoinType:       "AzureAD",
		OSName:         "Windows 11 Pro",
		WindowsVersion: "23H2",
		LastBoot:       "2026-03-01 09:00:00",
		CollectionDate: "2026-03-01 09:00:00",
		Category:       models.CategoryDesktop,
		Location:       "Site A",
		Issues:         []string{},
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithComputerName sets the record's computer name.
func WithComputerName(name string) func(*models.DeviceRecord) {
	return func(r *models.DeviceRecord) { r.ComputerName = name }
}

// WithSerialNumber sets the record's serial number.
func WithSerialNumber(sn string) func(*models.DeviceRecord) {
	return func(r *models.DeviceRecord) { r.SerialNumber = sn }
}

// WithCategory sets the record's category.
func WithCategory(c models.Category) func(*models.DeviceRecord) {
	return func(r *models.DeviceRecord) { r.Category = c }
}

// WithLocation sets the record's resolved location.
func WithLocation(loc string) func(*models.DeviceRecord) {
	return func(r *models.DeviceRecord) { r.Location = loc }
}

// WithInternalIP sets the record's internal IP address.
func WithInternalIP(ip string) func(*models.DeviceRecord) {
	return func(r *models.DeviceRecord) { r.InternalIP = ip }
}

// WithIssues sets the record's issues list.
func WithIssues(issues ...string) func(*models.DeviceRecord) {
	return func(r *models.DeviceRecord) { r.Issues = issues }
}
