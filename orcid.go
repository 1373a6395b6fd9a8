package scidata

import (
	"strconv"
	"strings"
)

// NormalizeORCID validates a free-form ORCID string and returns it in the
// canonical four-groups-of-four notation. Invalid identifiers never fail
// hard: the result degrades to the empty string on any violation of length,
// number range or checksum.
func NormalizeORCID(orcid string) string {
	orcid = strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(orcid))
	if len(orcid) != 16 {
		return ""
	}

	// The 15-digit prefix must fall into one of the two number ranges
	// assigned to ORCID iDs.
	number, err := strconv.ParseInt(orcid[:15], 10, 64)
	if err != nil {
		return ""
	}
	if !(number >= 15000000 && number <= 35000000) &&
		!(number >= 900000000000 && number <= 900100000000) {
		return ""
	}

	// ISO 7064 MOD 11-2 check digit over the prefix.
	product := 0
	for _, r := range orcid[:15] {
		product = ((int(r-'0') + product) * 2) % 11
	}
	checksum := (11 + 1 - product) % 11
	if orcid[15] != "0123456789X"[checksum] {
		return ""
	}

	return orcid[:4] + "-" + orcid[4:8] + "-" + orcid[8:12] + "-" + orcid[12:]
}
