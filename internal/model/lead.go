package model

// Candidate is a raw business listing produced by the harvest phase.
// Empty optional fields are stored as NULL.
type Candidate struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Phone     string `json:"phone,omitempty" db:"phone"`
	Website   string `json:"website,omitempty" db:"website"`
	Address   string `json:"address,omitempty" db:"address"`
	SourceURL string `json:"source_url,omitempty" db:"google_maps_url"`
}

// Contacts holds the contact signals scraped from a business website.
type Contacts struct {
	Email     string `json:"email,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// Empty reports whether no contact signal was found.
func (c Contacts) Empty() bool {
	return c.Email == "" && c.Facebook == "" && c.Instagram == "" && c.LinkedIn == ""
}

// Enrichment is one recorded enrichment attempt for a candidate. LeadID is a
// soft reference to Candidate.ID; nothing enforces it at the storage level.
type Enrichment struct {
	ID     int64 `json:"id" db:"id"`
	LeadID int64 `json:"lead_id" db:"lead_id"`
	Contacts
}

// MasterRecord is the deduplicated output record for one business identity.
type MasterRecord struct {
	ID           int64  `json:"id" db:"id"`
	BusinessName string `json:"business_name" db:"business_name"`
	PhoneNumber  string `json:"phone_number,omitempty" db:"phone_number"`
	Website      string `json:"website,omitempty" db:"website"`
	Email        string `json:"email,omitempty" db:"email"`
	FacebookURL  string `json:"facebook_url,omitempty" db:"facebook_url"`
	InstagramURL string `json:"instagram_url,omitempty" db:"instagram_url"`
	LinkedInURL  string `json:"linkedin_url,omitempty" db:"linkedin_url"`
	Address      string `json:"address,omitempty" db:"address"`
	SourceURL    string `json:"source_url,omitempty" db:"source_url"`
}

// MergeSummary counts the outcome of one aggregation pass.
type MergeSummary struct {
	Read     int `json:"read"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}
