package estatebase

import "testing"

func sp(s string) *string { return &s }

func fp(f float64) *float64 { return &f }

func TestCleanScrubsNullsAndNaN(t *testing.T) {
	cases := []struct {
		in   *string
		want string
	}{
		{nil, ""},
		{sp("  "), ""},
		{sp("nan"), ""},
		{sp("NaN"), ""},
		{sp(" Yasamal "), "Yasamal"},
	}
	for _, c := range cases {
		if got := clean(c.in); got != c.want {
			t.Errorf("clean(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDateOnlyTrimsTimestamp(t *testing.T) {
	if got := dateOnly(sp("2026-08-21 14:03:55")); got != "2026-08-21" {
		t.Fatalf("dateOnly = %q", got)
	}
	if got := dateOnly(sp("2026-08-21")); got != "2026-08-21" {
		t.Fatalf("dateOnly short = %q", got)
	}
	if got := dateOnly(nil); got != "" {
		t.Fatalf("dateOnly(nil) = %q", got)
	}
}

func TestJoiners(t *testing.T) {
	if got := joinFloor("3", "9"); got != "3/9" {
		t.Fatalf("joinFloor = %q", got)
	}
	if got := joinFloor("", ""); got != "" {
		t.Fatalf("joinFloor empty = %q", got)
	}
	if got := joinArea("2", "85"); got != "2 sot / 85 kvm" {
		t.Fatalf("joinArea = %q", got)
	}
	if got := joinArea("", ""); got != "" {
		t.Fatalf("joinArea empty = %q", got)
	}
}

func TestContactPhoneFallsBackToSecondNumber(t *testing.T) {
	r := row{Phone1: sp("0501112233"), Phone2: sp("0777654321")}
	if got := r.contactPhone(); got != "0501112233" {
		t.Fatalf("contactPhone = %q", got)
	}
	r.Phone1 = nil
	if got := r.contactPhone(); got != "0777654321" {
		t.Fatalf("contactPhone fallback = %q", got)
	}
	r.Phone2 = sp("nan")
	if got := r.contactPhone(); got != "" {
		t.Fatalf("contactPhone all-empty = %q", got)
	}
}

func TestListingTransform(t *testing.T) {
	r := row{
		InsertDateTime: sp("2026-08-21 09:15:00"),
		PropType:       sp("Həyət evi"),
		Operation:      sp("Satılır"),
		Metro:          sp("Nizami"),
		Rooms:          sp("3"),
		Building:       sp("Yeni tikili"),
		Floor:          sp("4"),
		FloorOf:        sp("12"),
		AreaSot:        sp("2"),
		AreaKvm:        sp("95"),
		Price:          fp(185000),
		Currency:       sp("AZN"),
		Phone1:         sp("0501234567"),
		ContactName:    sp("Elvin"),
		Address:        sp("Nizami küç. 12"),
		Document:       sp("Çıxarış"),
		Summary:        sp("Təmirli mənzil"),
		SourceLink:     sp("https://example.az/ad/42"),
	}

	l := r.listing()
	if l.DateRead != "2026-08-21" {
		t.Errorf("DateRead = %q", l.DateRead)
	}
	if l.Floor != "4/12" {
		t.Errorf("Floor = %q", l.Floor)
	}
	if l.AreaKvm != "2 sot / 95 kvm" {
		t.Errorf("AreaKvm = %q", l.AreaKvm)
	}
	if l.Price != 185000 {
		t.Errorf("Price = %v", l.Price)
	}
	if l.Phone != "0501234567" {
		t.Errorf("Phone = %q", l.Phone)
	}
}

func TestDupKeySurvivesPriceChange(t *testing.T) {
	a := row{SourceLink: sp("https://example.az/ad/42"), Phone1: sp("0501234567"), Price: fp(100000)}
	b := row{SourceLink: sp("https://example.az/ad/42"), Phone1: sp("0501234567"), Price: fp(100000)}
	c := row{SourceLink: sp("https://example.az/ad/42"), Phone1: sp("0501234567"), Price: fp(95000)}

	if a.key() != b.key() {
		t.Fatal("identical rows produced different keys")
	}
	if a.key() == c.key() {
		t.Fatal("re-listed price change collided with original key")
	}
}
