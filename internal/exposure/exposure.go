// Package exposure derives discrete tracked exposure records from a
// normalized profile found at a broker.
package exposure

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/parse"
)

// FromProfile expands one broker hit into exposure records: a single
// profile_listing for the page itself plus one record per phone, email, and
// address. Data values are normalized (digits-only phones, lowercase
// emails, the address dedupe key) so rescans of an unchanged value hit the
// same natural key at the persistence boundary.
func FromProfile(userID string, broker model.Broker, p *model.QuickScanProfileData, listingURL string, now time.Time) []model.ExposureRecord {
	if p == nil {
		return nil
	}

	record := func(dt model.DataType, value string) model.ExposureRecord {
		return model.ExposureRecord{
			ID:           uuid.NewString(),
			UserID:       userID,
			BrokerID:     broker.ID,
			DataType:     dt,
			DataValue:    value,
			SourceURL:    listingURL,
			Status:       model.ExposureStatusFound,
			FirstFoundAt: now,
			LastSeenAt:   now,
		}
	}

	records := []model.ExposureRecord{
		record(model.DataTypeProfileListing, strings.ToLower(parse.CollapseSpaces(p.FullName))),
	}

	seen := make(map[string]bool, len(p.Phones)+len(p.Emails)+len(p.Addresses))
	for _, ph := range p.Phones {
		d := parse.NormalizePhone(ph.Number)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		records = append(records, record(model.DataTypePhone, d))
	}
	for _, e := range p.Emails {
		v := strings.ToLower(parse.CollapseSpaces(e))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		records = append(records, record(model.DataTypeEmail, v))
	}
	for _, a := range p.Addresses {
		v := parse.AddressKey(a)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		records = append(records, record(model.DataTypeAddress, v))
	}

	return records
}
