package entities

import (
	"regexp"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

var slugRe = regexp.MustCompile(`^[a-z0-9-]{3,40}$`)

// Merchant represents a payee keyed by wallet address
type Merchant struct {
	Address       string      `json:"address"` // primary key, lower-cased
	DisplayName   string      `json:"displayName"`
	LogoURL       null.String `json:"logoUrl,omitempty"`
	Slug          null.String `json:"slug,omitempty"`
	WebhookURL    null.String `json:"webhookUrl,omitempty"`
	WebhookSecret null.String `json:"-"`
	RevenueSplit  null.JSON   `json:"revenueSplit,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// ValidateSlug normalizes and validates a slug claim: case-insensitive,
// 3-40 chars, [a-z0-9-]. Returns the normalized slug and whether it is valid.
func ValidateSlug(slug string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(slug))
	return normalized, slugRe.MatchString(normalized)
}

// RegisterMerchantInput represents input for merchant registration
type RegisterMerchantInput struct {
	Address      string      `json:"address" binding:"required"`
	DisplayName  string      `json:"displayName" binding:"required,min=1,max=255"`
	LogoURL      string      `json:"logoUrl,omitempty"`
	WebhookURL   string      `json:"webhookUrl,omitempty"`
	RevenueSplit interface{} `json:"revenueSplit,omitempty"`
}

// ClaimSlugInput represents input for claiming a merchant slug
type ClaimSlugInput struct {
	Slug string `json:"slug" binding:"required"`
}
