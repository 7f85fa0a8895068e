package routing

// Decision is the outbound route picked for a contact.
//
// It carries only what the voice provider needs to place the call: the agent
// that will talk and the number it calls from.
type Decision struct {
	Region    Region `json:"region"`
	AgentID   string `json:"agent_id"`
	FromPhone string `json:"from_phone"`

	// MatchedTag is the contact tag that selected this route. Internal logs only.
	MatchedTag string `json:"matched_tag,omitempty"`
}

// Region is a country code that owns a calling agent and source number.
type Region string

const (
	RegionUK Region = "UK"
	RegionUS Region = "US"
	RegionFR Region = "FR"
	RegionDE Region = "DE"
	RegionFI Region = "FI"
)

// ScanOrder is the fixed precedence used when a contact carries several region tags.
var ScanOrder = []Region{RegionUK, RegionUS, RegionFR, RegionDE, RegionFI}

// Tags returns the contact tags that select r. UK also answers to GB.
func (r Region) Tags() []string {
	if r == RegionUK {
		return []string{regionTagPrefix + "UK", regionTagPrefix + "GB"}
	}
	return []string{regionTagPrefix + string(r)}
}

const regionTagPrefix = "SEOSENSE_"
