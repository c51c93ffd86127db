package links

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// LinkType distinguishes plain short links, landing pages and landing page buttons.
type LinkType string

const (
	LinkTypeRedirect  LinkType = "redirect"
	LinkTypeLanding   LinkType = "landing"
	LinkTypePrimary   LinkType = "primary"
	LinkTypeStreaming LinkType = "streaming"
	LinkTypeCommerce  LinkType = "commerce"
)

var validLinkTypes = map[LinkType]bool{
	LinkTypeRedirect:  true,
	LinkTypeLanding:   true,
	LinkTypePrimary:   true,
	LinkTypeStreaming: true,
	LinkTypeCommerce:  true,
}

// IsValid reports whether t is a known link type.
func (t LinkType) IsValid() bool {
	return validLinkTypes[t]
}

// IsButton reports whether links of this type belong on a landing page.
func (t LinkType) IsButton() bool {
	return t.IsValid() && t != LinkTypeRedirect && t != LinkTypeLanding
}

const (
	// LandingDestination marks a link that renders a landing page instead of redirecting.
	LandingDestination = "internal:landing"

	// DirectReferrer is stored when a click arrives without a referrer.
	DirectReferrer = "direct"
)

// UTMParameters are recorded at creation time and appended to the destination on redirect.
type UTMParameters struct {
	Source   string `gorm:"column:utm_source" json:"utm_source,omitempty"`
	Medium   string `gorm:"column:utm_medium" json:"utm_medium,omitempty"`
	Campaign string `gorm:"column:utm_campaign" json:"utm_campaign,omitempty"`
	Content  string `gorm:"column:utm_content" json:"utm_content,omitempty"`
	Term     string `gorm:"column:utm_term" json:"utm_term,omitempty"`
}

// IsEmpty reports whether no UTM parameter is set.
func (u UTMParameters) IsEmpty() bool {
	return u.Source == "" && u.Medium == "" && u.Campaign == "" && u.Content == "" && u.Term == ""
}

func (u UTMParameters) pairs() map[string]string {
	return map[string]string{
		"utm_source":   u.Source,
		"utm_medium":   u.Medium,
		"utm_campaign": u.Campaign,
		"utm_content":  u.Content,
		"utm_term":     u.Term,
	}
}

// Apply appends the non-empty parameters to destination. Parameters already
// present on the destination win.
func (u UTMParameters) Apply(destination string) string {
	if u.IsEmpty() {
		return destination
	}
	parsed, err := url.Parse(destination)
	if err != nil {
		return destination
	}

	query := parsed.Query()
	keys := make([]string, 0, 5)
	for key, value := range u.pairs() {
		if value != "" && query.Get(key) == "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return destination
	}
	sort.Strings(keys)

	pairs := u.pairs()
	for _, key := range keys {
		query.Set(key, pairs[key])
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// Link is a tracked short link, landing page or landing page button.
type Link struct {
	ID                uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug              string        `gorm:"uniqueIndex;not null" json:"slug"`
	Title             string        `gorm:"not null;default:''" json:"title"`
	RedirectURL       string        `gorm:"column:redirect_url;not null" json:"redirect_url"`
	ButtonType        LinkType      `gorm:"column:button_type;not null;default:'redirect';index" json:"button_type"`
	ParentLandingPage string        `gorm:"column:parent_landing_page;index" json:"parent_landing_page,omitempty"`
	UTM               UTMParameters `gorm:"embedded" json:"utm"`
	Clicks            int64         `gorm:"not null;default:0" json:"clicks"`
	CreatedAt         time.Time     `gorm:"index" json:"created_at"`

	// Populated by ListLinks and GetLink, most recent first.
	ClickHistory []ClickEvent `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"click_history"`
}

// IsLanding reports whether the link renders a landing page.
func (l Link) IsLanding() bool {
	return l.ButtonType == LinkTypeLanding
}

// BelongsTo reports whether l is a button of the landing page. An explicit
// parent always wins; links without a parent are attributed only when they are
// buttons whose slug carries the "{slug}-" prefix or whose destination
// mentions the landing slug.
func (l Link) BelongsTo(landing Link) bool {
	if !landing.IsLanding() || l.ID == landing.ID {
		return false
	}
	if l.ParentLandingPage != "" {
		return l.ParentLandingPage == landing.Slug
	}
	if !l.ButtonType.IsButton() {
		return false
	}
	return strings.HasPrefix(l.Slug, landing.Slug+"-") ||
		strings.Contains(l.RedirectURL, landing.Slug)
}

// Destination returns where a visitor ends up after following the link.
// Landing pages resolve to their public page.
func (l Link) Destination() string {
	if l.IsLanding() {
		return "/l/" + l.Slug
	}
	return l.UTM.Apply(l.RedirectURL)
}

// ClickEvent is a single recorded click. Events are immutable once written.
type ClickEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	LinkID    uint      `gorm:"not null;index" json:"link_id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Referrer  string    `gorm:"not null;default:'direct'" json:"referrer"`
	Browser   string    `gorm:"not null;default:'Unknown'" json:"browser"`
	Device    string    `gorm:"not null;default:'Desktop'" json:"device"`
	OS        string    `gorm:"column:os" json:"os"`
	Country   string    `json:"country"`
	Region    string    `json:"region"`
	City      string    `json:"city"`
	StateCode string    `json:"state_code"`
	Location  string    `json:"location"`
	IP        string    `gorm:"column:ip" json:"ip"`

	// Set only when the event is surfaced in a consolidated landing page view.
	ButtonName string `gorm:"-" json:"button_name,omitempty"`
}

// FormatLocation renders the freeform "City, Region, Country" location string.
func FormatLocation(city, region, country string) string {
	return fmt.Sprintf("%s, %s, %s", city, region, country)
}

// CreateLinkInput holds the parameters accepted by CreateLink.
type CreateLinkInput struct {
	Destination string        `json:"destination"`
	Title       string        `json:"title"`
	UTM         UTMParameters `json:"utm"`
	CustomSlug  string        `json:"custom_slug"`
	LinkType    LinkType      `json:"link_type"`
	ParentSlug  string        `json:"parent_slug"`
}

func (in CreateLinkInput) normalized() CreateLinkInput {
	in.Destination = strings.TrimSpace(in.Destination)
	in.Title = strings.TrimSpace(in.Title)
	in.CustomSlug = strings.TrimSpace(in.CustomSlug)
	in.ParentSlug = strings.TrimSpace(in.ParentSlug)
	if in.LinkType == "" {
		in.LinkType = LinkTypeRedirect
		if in.ParentSlug != "" {
			in.LinkType = LinkTypePrimary
		}
	}
	return in
}
