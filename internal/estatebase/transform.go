package estatebase

import (
	"fmt"
	"strings"

	"homebase/internal/domain"
)

// row is one raw property record pulled from the remote base. Pointer fields
// carry SQL NULLs through unchanged.
type row struct {
	InsertDateTime *string
	PropType       *string
	Operation      *string
	Metro          *string
	Rooms          *string
	Building       *string
	Floor          *string
	FloorOf        *string
	AreaSot        *string
	AreaKvm        *string
	Price          *float64
	Currency       *string
	Phone1         *string
	Phone2         *string
	ContactName    *string
	Address        *string
	Document       *string
	Summary        *string
	SourceLink     *string
}

// dupKey identifies a record within one sync run. The remote base repeats
// ads across pulls; (link, phone, price) is the narrowest key that survives
// re-listings with changed prices.
type dupKey struct {
	link  string
	phone string
	price string
}

func (r row) key() dupKey {
	return dupKey{
		link:  clean(r.SourceLink),
		phone: r.contactPhone(),
		price: fmt.Sprint(priceOf(r.Price)),
	}
}

// contactPhone prefers the first owner number and falls back to the second.
func (r row) contactPhone() string {
	if p := clean(r.Phone1); p != "" {
		return p
	}
	return clean(r.Phone2)
}

// listing converts a raw row into a local listing. Rows without any contact
// phone transform to a zero listing the store will refuse.
func (r row) listing() domain.Listing {
	return domain.Listing{
		DateRead:    dateOnly(r.InsertDateTime),
		PropType:    clean(r.PropType),
		Operation:   clean(r.Operation),
		Metro:       clean(r.Metro),
		Rooms:       clean(r.Rooms),
		Building:    clean(r.Building),
		Floor:       joinFloor(clean(r.Floor), clean(r.FloorOf)),
		AreaKvm:     joinArea(clean(r.AreaSot), clean(r.AreaKvm)),
		Price:       priceOf(r.Price),
		Currency:    clean(r.Currency),
		Phone:       r.contactPhone(),
		ContactName: clean(r.ContactName),
		Address:     clean(r.Address),
		Document:    clean(r.Document),
		Summary:     clean(r.Summary),
		SourceLink:  clean(r.SourceLink),
	}
}

// clean scrubs NULLs and blank-ish values to the empty string.
func clean(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

// dateOnly keeps the YYYY-MM-DD part of a timestamp string.
func dateOnly(s *string) string {
	v := clean(s)
	if len(v) > 10 {
		return v[:10]
	}
	return v
}

// joinFloor renders "current/total" when either side is known.
func joinFloor(cur, total string) string {
	if cur == "" && total == "" {
		return ""
	}
	return cur + "/" + total
}

// joinArea combines the plot and living areas into one display value.
func joinArea(sot, kvm string) string {
	if sot == "" && kvm == "" {
		return ""
	}
	return sot + " sot / " + kvm + " kvm"
}

func priceOf(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
