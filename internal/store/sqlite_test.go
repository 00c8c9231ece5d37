package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"homebase/internal/domain"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "base.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func listing(phone string, price float64) domain.Listing {
	return domain.Listing{
		DateRead:  "2026-08-01",
		PropType:  "Mənzil",
		Operation: "Satılır",
		Metro:     "Nizami",
		Rooms:     "3",
		Floor:     "4/9",
		AreaKvm:   "85 kvm",
		Price:     price,
		Currency:  "AZN",
		Phone:     phone,
		Address:   "Bakı, Nizami r.",
	}
}

func TestAddListing_DuplicatePhonePriceSkipped(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	added, err := s.AddListing(ctx, listing("994501234567", 120000))
	if err != nil || !added {
		t.Fatalf("first add = (%v, %v), want (true, nil)", added, err)
	}
	added, err = s.AddListing(ctx, listing("994501234567", 120000))
	if err != nil || added {
		t.Fatalf("duplicate add = (%v, %v), want (false, nil)", added, err)
	}
	// Same phone, different price is a new listing.
	added, err = s.AddListing(ctx, listing("994501234567", 115000))
	if err != nil || !added {
		t.Fatalf("price change add = (%v, %v), want (true, nil)", added, err)
	}
}

func TestAddListing_RequiresPhone(t *testing.T) {
	s := testStore(t)
	added, err := s.AddListing(context.Background(), domain.Listing{Price: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Fatal("listing without phone must not be stored")
	}
}

func TestPhonesSummary_GroupsAndCounts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mustAdd(t, s, listing("994501234567", 120000))
	mustAdd(t, s, listing("994501234567", 115000))
	mustAdd(t, s, listing("994551112233", 95000))

	rows, err := s.PhonesSummary(ctx, domain.Filter{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	byPhone := map[string]domain.SummaryRow{}
	for _, r := range rows {
		byPhone[r.Phone] = r
	}
	if byPhone["994501234567"].AdCount != 2 {
		t.Errorf("ad count = %d, want 2", byPhone["994501234567"].AdCount)
	}
	if byPhone["994501234567"].Price != 120000 {
		t.Errorf("aggregated price = %v, want max 120000", byPhone["994501234567"].Price)
	}
}

func TestPhonesSummary_KeywordAndSoldFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	l := listing("994501234567", 120000)
	l.Metro = "Nizami"
	mustAdd(t, s, l)
	l2 := listing("994551112233", 95000)
	l2.Metro = "Sahil"
	mustAdd(t, s, l2)

	rows, err := s.PhonesSummary(ctx, domain.Filter{Keyword: "sahil"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Phone != "994551112233" {
		t.Fatalf("keyword filter returned %+v", rows)
	}

	if err := s.AddSold(ctx, "994501234567"); err != nil {
		t.Fatal(err)
	}
	rows, err = s.PhonesSummary(ctx, domain.Filter{ExcludeSold: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Phone != "994551112233" {
		t.Fatalf("exclude-sold returned %+v", rows)
	}
	rows, err = s.PhonesSummary(ctx, domain.Filter{OnlySold: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Phone != "994501234567" {
		t.Fatalf("only-sold returned %+v", rows)
	}
}

func TestSoldSet_AddRemove(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.AddSold(ctx, "994501234567"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddSold(ctx, "994501234567"); err != nil {
		t.Fatal(err) // idempotent
	}
	set, err := s.SoldSet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(set) != 1 {
		t.Fatalf("sold set = %v", set)
	}
	if err := s.RemoveSold(ctx, "994501234567"); err != nil {
		t.Fatal(err)
	}
	set, _ = s.SoldSet(ctx)
	if len(set) != 0 {
		t.Fatalf("sold set after remove = %v", set)
	}
}

func TestFavorites_ColorMap(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SetFavorite(ctx, "994501234567", "#ffdd00"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFavorite(ctx, "994551112233", ""); err != nil {
		t.Fatal(err)
	}
	favs, err := s.Favorites(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if favs["994501234567"] != "#ffdd00" {
		t.Errorf("favorite color = %q", favs["994501234567"])
	}
	if favs["994551112233"] != "#e8f2ff" {
		t.Errorf("default color = %q", favs["994551112233"])
	}
}

func TestPhoneStats_Trend(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mustAdd(t, s, listing("994501234567", 100000))
	mustAdd(t, s, listing("994501234567", 120000))

	st, err := s.PhoneStats(ctx, "994501234567")
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 2 || st.MinPrice != 100000 || st.MaxPrice != 120000 {
		t.Fatalf("stats = %+v", st)
	}
	if st.TrendPct == nil || *st.TrendPct != 20 {
		t.Fatalf("trend = %v, want 20", st.TrendPct)
	}

	history, err := s.ListingsByPhone(ctx, "994501234567")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d listings, want 2", len(history))
	}
}

func TestStats_Dashboard(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mustAdd(t, s, listing("994501234567", 120000))
	rent := listing("994551112233", 800)
	rent.Operation = "Kirayə"
	mustAdd(t, s, rent)

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 2 || st.Sales != 1 || st.Rent != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if len(st.TopTypes) == 0 || st.TopTypes[0].PropType != "Mənzil" {
		t.Fatalf("top types = %+v", st.TopTypes)
	}
}

func TestDistinctValues_Whitelist(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustAdd(t, s, listing("994501234567", 120000))

	vals, err := s.DistinctValues(ctx, "metro")
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 || vals[0] != "Nizami" {
		t.Fatalf("distinct metro = %v", vals)
	}
	if _, err := s.DistinctValues(ctx, "phone; DROP TABLE listings"); err == nil {
		t.Fatal("non-whitelisted column must be rejected")
	}
}

func mustAdd(t *testing.T, s *SQLiteStore, l domain.Listing) {
	t.Helper()
	added, err := s.AddListing(context.Background(), l)
	if err != nil {
		t.Fatalf("add listing: %v", err)
	}
	if !added {
		t.Fatalf("listing %s/%v unexpectedly skipped", l.Phone, l.Price)
	}
}
