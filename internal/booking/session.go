package booking

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ProviderSession is the slice of a completed checkout session the snapshot
// builder needs. The payments layer maps the provider's payload onto it so
// nothing downstream touches raw provider JSON.
type ProviderSession struct {
	ID              string
	PaymentIntentID string
	// CustomerName and CustomerEmail come from the provider's checkout form.
	// Metadata identity, when present, takes precedence over these.
	CustomerName  string
	CustomerEmail string
	Metadata      SessionMetadata
}

// SessionMetadata carries the booking fields attached to the checkout
// session at creation time. Numeric fields stay as the raw strings the
// provider round-trips them as; the builder owns parsing and defaulting.
type SessionMetadata struct {
	Service           string
	PackageID         string
	PackageName       string
	Hours             string
	SessionDate       string
	SessionTime       string
	TotalSessionPrice string
	PaymentType       string
	AddonsJSON        string
	PromoCode         string
	CustomerName      string
	CustomerEmail     string
}

// MetadataFromMap lifts the provider's flat metadata map into the typed
// struct. Missing keys become zero values.
func MetadataFromMap(m map[string]string) SessionMetadata {
	return SessionMetadata{
		Service:           m["service"],
		PackageID:         m["packageId"],
		PackageName:       m["packageName"],
		Hours:             m["hours"],
		SessionDate:       m["sessionDate"],
		SessionTime:       m["sessionTime"],
		TotalSessionPrice: m["totalSessionPrice"],
		PaymentType:       m["paymentType"],
		AddonsJSON:        m["addons"],
		PromoCode:         m["promoCode"],
		CustomerName:      m["customerName"],
		CustomerEmail:     m["customerEmail"],
	}
}

// hoursOrZero parses the hours field, returning 0 for anything that is not
// a positive integer so the pricing layer applies its own default.
func (m SessionMetadata) hoursOrZero() int {
	h, err := strconv.Atoi(strings.TrimSpace(m.Hours))
	if err != nil || h < 0 {
		return 0
	}
	return h
}

// addonNames parses the addons JSON and joins the entry names. Entries may
// be plain strings or objects carrying a name or label. Malformed JSON
// yields an empty string rather than an error.
func (m SessionMetadata) addonNames() string {
	raw := strings.TrimSpace(m.AddonsJSON)
	if raw == "" {
		return ""
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		var s string
		if err := json.Unmarshal(e, &s); err == nil {
			if s != "" {
				names = append(names, s)
			}
			continue
		}
		var obj struct {
			Name  string `json:"name"`
			Label string `json:"label"`
		}
		if err := json.Unmarshal(e, &obj); err == nil {
			switch {
			case obj.Name != "":
				names = append(names, obj.Name)
			case obj.Label != "":
				names = append(names, obj.Label)
			}
		}
	}
	return strings.Join(names, ", ")
}
