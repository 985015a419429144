package verification

// Status is the verification state stored on a photo record.
type Status string

const (
	StatusPending         Status = "pending"
	StatusVerified        Status = "verified"
	StatusGPSMatch        Status = "gps_match"
	StatusGPSMismatch     Status = "gps_mismatch"
	StatusOutsideGeofence Status = "outside_geofence"
	StatusStaleTimestamp  Status = "stale_timestamp"
	StatusMetadataMissing Status = "metadata_missing"
	StatusBrowserGPSOnly  Status = "browser_gps_only"
	StatusExifGPSOnly     Status = "exif_gps_only"
	StatusNoGPSData       Status = "no_gps_data"
	StatusManualApproved  Status = "manual_approved"
	StatusManualRejected  Status = "manual_rejected"
)

// Color is the display bucket a reviewer UI renders for a status.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
	ColorGray   Color = "gray"
)

var allStatuses = []Status{
	StatusPending,
	StatusVerified,
	StatusGPSMatch,
	StatusGPSMismatch,
	StatusOutsideGeofence,
	StatusStaleTimestamp,
	StatusMetadataMissing,
	StatusBrowserGPSOnly,
	StatusExifGPSOnly,
	StatusNoGPSData,
	StatusManualApproved,
	StatusManualRejected,
}

var statusLabels = map[Status]string{
	StatusPending:         "Pending Review",
	StatusVerified:        "Verified",
	StatusGPSMatch:        "GPS Match",
	StatusGPSMismatch:     "GPS Mismatch",
	StatusOutsideGeofence: "Outside Geofence",
	StatusStaleTimestamp:  "Photo Too Old",
	StatusMetadataMissing: "Missing Metadata",
	StatusBrowserGPSOnly:  "Browser GPS Only",
	StatusExifGPSOnly:     "EXIF GPS Only",
	StatusNoGPSData:       "No GPS Data",
	StatusManualApproved:  "Manually Approved",
	StatusManualRejected:  "Rejected",
}

// AllStatuses returns every status in the vocabulary, in display order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsValid reports whether s belongs to the vocabulary.
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsManualReview reports whether s was set by a human reviewer.
func (s Status) IsManualReview() bool {
	return s == StatusManualApproved || s == StatusManualRejected
}

// StatusLabel returns the display label for s. Unknown statuses render as the raw value.
func StatusLabel(s Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// StatusColor returns the color bucket for s.
func StatusColor(s Status) Color {
	switch s {
	case StatusVerified, StatusGPSMatch, StatusManualApproved:
		return ColorGreen
	case StatusPending, StatusBrowserGPSOnly, StatusExifGPSOnly:
		return ColorYellow
	case StatusGPSMismatch, StatusOutsideGeofence, StatusStaleTimestamp, StatusManualRejected:
		return ColorRed
	default:
		return ColorGray
	}
}
