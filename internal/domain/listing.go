// Package domain holds the shared types of the listing base.
package domain

// Listing is one scraped/synced property ad.
type Listing struct {
	ID          int64
	DateRead    string // YYYY-MM-DD
	PropType    string
	Operation   string
	Metro       string
	Rooms       string
	Building    string
	Floor       string // "current/total"
	AreaKvm     string
	Price       float64
	Currency    string
	Phone       string
	ContactName string
	Address     string
	Document    string
	Summary     string
	SourceLink  string
	CreatedAt   string // as stored, YYYY-MM-DD HH:MM:SS
}

// SummaryRow is the per-phone aggregate shown in the listings overview:
// the latest values of each field plus the ad count.
type SummaryRow struct {
	Phone       string
	DateRead    string
	CreatedAt   string
	PropType    string
	Building    string
	Operation   string
	Metro       string
	Rooms       string
	Floor       string
	AreaKvm     string
	Price       float64
	Currency    string
	AdCount     int
	ContactName string
	Address     string
	Document    string
	Summary     string
	SourceLink  string
}

// Filter narrows a phone-summary query.
type Filter struct {
	Keyword       string // matches phone, metro or address, case-insensitive
	DateFrom      string // YYYY-MM-DD, inclusive
	DateTo        string // YYYY-MM-DD, inclusive
	ExcludeSold   bool
	OnlySold      bool
	OnlyFavorites bool
	Limit         int
}

// PhoneStats aggregates a contact's ad history.
type PhoneStats struct {
	FirstDate string
	LastDate  string
	Count     int
	AvgPrice  float64
	MinPrice  float64
	MaxPrice  float64
	TrendPct  *float64 // nil when no price spread can be computed
}

// Stats is the dashboard aggregate over the whole base.
type Stats struct {
	Total      int
	Sales      int
	Rent       int
	Duplicates int
	TopTypes   []TypeCount
}

// TypeCount is one property-type bucket in Stats.
type TypeCount struct {
	PropType string
	Count    int
}
