package domain

// RateSource identifies the provider a rate was obtained from.
// Resolution policy branches on this, so it is a closed set rather
// than a free-form string.
type RateSource string

const (
	// SourceCBSLLive is a rate fetched from the Central Bank of Sri Lanka
	// portal for a single requested date.
	SourceCBSLLive RateSource = "cbsl_live"
	// SourceCBSLBulk is a rate obtained through the CBSL date-range export
	// during a cold-store backfill.
	SourceCBSLBulk RateSource = "cbsl_bulk"
	// SourceCommercialBank is the Commercial Bank of Ceylon rates API.
	SourceCommercialBank RateSource = "combank"
	// SourceSampath is the Sampath Bank rates API.
	SourceSampath RateSource = "sampath"
	// SourcePeoples is the People's Bank exchange-rates page.
	SourcePeoples RateSource = "peoples"
	// SourceCSVImport is a rate backfilled from an uploaded CSV export.
	SourceCSVImport RateSource = "csv_import"
)

// CentralBankSources is the set of tags trusted by the central-bank
// resolution path. CSV imports carry the same official history, so they
// satisfy a CBSL lookup; retail-bank rows never do.
var CentralBankSources = []RateSource{SourceCBSLLive, SourceCBSLBulk, SourceCSVImport}

var knownSources = map[RateSource]bool{
	SourceCBSLLive:       true,
	SourceCBSLBulk:       true,
	SourceCommercialBank: true,
	SourceSampath:        true,
	SourcePeoples:        true,
	SourceCSVImport:      true,
}

// ParseRateSource validates a source tag from an external caller.
func ParseRateSource(s string) (RateSource, bool) {
	src := RateSource(s)
	return src, knownSources[src]
}

// TrustedSources returns the repository source set a resolution path for
// this provider is permitted to read back. Each retail bank trusts only
// its own rows; the CBSL family shares one history.
func (s RateSource) TrustedSources() []RateSource {
	switch s {
	case SourceCBSLLive, SourceCBSLBulk, SourceCSVImport:
		return CentralBankSources
	default:
		return []RateSource{s}
	}
}

// IsCentralBank reports whether the tag belongs to the CBSL family.
func (s RateSource) IsCentralBank() bool {
	return s == SourceCBSLLive || s == SourceCBSLBulk || s == SourceCSVImport
}
