// Package reference builds and parses the payment references this system
// hands to Paystack at initialization time and gets echoed back in webhooks.
//
// Two schemes exist on the wire:
//
//	ORDER-{bulkOrderUUID}-{entryUUID}   one buyer paying for their own entry
//	EXL-{12 uppercase alphanumerics}    a coordinator paying for a whole campaign
package reference

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind tags a parsed reference.
type Kind int

const (
	KindInvalid Kind = iota
	KindDirectOrder
	KindCampaign
)

func (k Kind) String() string {
	switch k {
	case KindDirectOrder:
		return "direct_order"
	case KindCampaign:
		return "campaign"
	default:
		return "invalid"
	}
}

const (
	directOrderPrefix = "ORDER"
	campaignPrefix    = "EXL-"
	campaignCodeLen   = 12

	// A canonical dashed UUID renders as five hyphen separated groups, so a
	// direct-order reference splits into exactly 1 + 5 + 5 segments. Anything
	// else is rejected outright.
	directOrderSegments = 11
	canonicalUUIDLen    = 36
)

// Reference is the parsed form of a provider payment reference. Kind tells
// which of the remaining fields carry meaning.
type Reference struct {
	Kind        Kind
	Raw         string
	BulkOrderID uuid.UUID // direct-order scheme
	EntryID     uuid.UUID // direct-order scheme
	Code        string    // campaign scheme, the full EXL-... string
}

// Parse classifies a raw reference string. Malformed input yields KindInvalid;
// it never panics and never guesses.
func Parse(raw string) Reference {
	if parts := strings.Split(raw, "-"); len(parts) == directOrderSegments && parts[0] == directOrderPrefix {
		bulkOrderID, ok1 := parseCanonicalUUID(strings.Join(parts[1:6], "-"))
		entryID, ok2 := parseCanonicalUUID(strings.Join(parts[6:11], "-"))
		if ok1 && ok2 {
			return Reference{
				Kind:        KindDirectOrder,
				Raw:         raw,
				BulkOrderID: bulkOrderID,
				EntryID:     entryID,
			}
		}
		return Reference{Kind: KindInvalid, Raw: raw}
	}

	if isCampaignCode(raw) {
		return Reference{Kind: KindCampaign, Raw: raw, Code: raw}
	}

	return Reference{Kind: KindInvalid, Raw: raw}
}

// FormatDirectOrder renders the reference for a single entry inside a bulk
// order. Parse is its inverse.
func FormatDirectOrder(bulkOrderID, entryID uuid.UUID) string {
	return fmt.Sprintf("%s-%s-%s", directOrderPrefix, bulkOrderID, entryID)
}

// NewCampaignCode issues a fresh EXL reference code. The suffix is 12
// characters drawn from uppercase letters and digits.
func NewCampaignCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, campaignCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate campaign code: %w", err)
	}
	for i, b := range buf {
		buf[i] = charset[int(b)%len(charset)]
	}
	return campaignPrefix + string(buf), nil
}

// parseCanonicalUUID accepts only the dashed 36-character rendering. Braced,
// urn-prefixed and compact hex forms that uuid.Parse would otherwise tolerate
// are not valid on our wire.
func parseCanonicalUUID(s string) (uuid.UUID, bool) {
	if len(s) != canonicalUUIDLen {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

func isCampaignCode(raw string) bool {
	if len(raw) != len(campaignPrefix)+campaignCodeLen || !strings.HasPrefix(raw, campaignPrefix) {
		return false
	}
	for _, r := range raw[len(campaignPrefix):] {
		upper := r >= 'A' && r <= 'Z'
		digit := r >= '0' && r <= '9'
		if !upper && !digit {
			return false
		}
	}
	return true
}
