package facet

// StationRecord is one station found at one (district, tehsil, block, agency,
// mode) leaf. Metadata fields are nil when the metadata panel could not be read.
type StationRecord struct {
	District    string  `json:"district"`
	Tehsil      string  `json:"tehsil"`
	Block       string  `json:"block"`
	Agency      string  `json:"agency"`
	Mode        string  `json:"mode"`
	StationCode *string `json:"station_code"`
	StationName string  `json:"station_name"`
	StationID   *string `json:"station_id"`
	MetaName    *string `json:"meta_name"`
}

// RecordKey is the identity of a StationRecord within a run.
type RecordKey struct {
	District    string
	Tehsil      string
	Block       string
	Agency      string
	Mode        string
	StationCode string
}

// Key returns the identity of the record, ok is false when the record has no
// station code and therefore no identity.
func (r StationRecord) Key() (key RecordKey, ok bool) {
	if r.StationCode == nil {
		return RecordKey{}, false
	}
	return RecordKey{
		District:    r.District,
		Tehsil:      r.Tehsil,
		Block:       r.Block,
		Agency:      r.Agency,
		Mode:        r.Mode,
		StationCode: *r.StationCode,
	}, true
}

// Metadata is what the station metadata panel shows for the selected station.
type Metadata struct {
	StationCode string
	StationName string
	StationID   string
	MetaName    string
}

// StringOrNil returns nil for the empty string.
func StringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
