package crm

import "strings"

// CRM tag vocabulary. Tags are write-only from this service; the CRM de-duplicates them.
const (
	TagTalked        = "SEOSENSE_TALKED"
	TagMeeting       = "SEOSENSE_MEETING"
	TagMeetingFailed = "SEOSENSE_MEETING_FAILED"
	TagCalling       = "SEOSENSE_MILLIS_CALLING"
	TagNotAnswered   = "SEOSENSE_NOT_ANSWERED"
	TagDoNotCall     = "MILLIS_DNC"

	// TagFailedToCallPrefix is followed by the attempt number (1-based).
	TagFailedToCallPrefix = "SEOSENSE_MILLIS_FAILED_TO_CALL_"
	// TagCallStatusPrefix is followed by the upper-cased provider call status.
	TagCallStatusPrefix = "MILLIS_"
	// TagRegionPrefix is followed by a country code, e.g. SEOSENSE_US.
	TagRegionPrefix = "SEOSENSE_"
)

// ContactMetadata is the enrichment derived from one CRM contact. It is recomputed per
// request and never persisted.
//
// Metric fields hold metricfmt.Format output: a grouped string, a number, or the raw value.
type ContactMetadata struct {
	Name         string
	FirstName    string
	CompanyName  string
	Traffic      any
	Keywords     any
	Package      any
	Clients      any
	PackageShort any
	Tags         []string
}

// Fields renders the metadata with the keys the voice agent prompt expects.
func (m ContactMetadata) Fields() map[string]any {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"Name":          m.Name,
		"FirstName":     m.FirstName,
		"CompanyName":   m.CompanyName,
		"traffic":       m.Traffic,
		"keywords":      m.Keywords,
		"package":       m.Package,
		"clients":       m.Clients,
		"package_short": m.PackageShort,
		"tags":          tags,
	}
}

// HasTag reports whether the contact carries tag.
func (m ContactMetadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ContactRecord is one raw row of the phone-indexed contact store.
type ContactRecord struct {
	Email string
	Name  string
	Phone string

	// Columns holds every column of the row as scanned.
	Columns map[string]any
}

// TagUpdate describes one contact mutation. Tags and CallID are both optional;
// an update with neither still touches the contact.
type TagUpdate struct {
	Email  string
	Tags   []string
	CallID string
}

// FirstName is the first whitespace-separated word of name.
func FirstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return ""
}
