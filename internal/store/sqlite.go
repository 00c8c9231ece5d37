// Package store implements the local listing base on SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"homebase/internal/domain"
)

// SQLiteStore persists listings plus the sold and favorite phone sets.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		date_read    TEXT,
		prop_type    TEXT,
		operation    TEXT,
		metro        TEXT,
		rooms        TEXT,
		building     TEXT,
		floor        TEXT,
		area_kvm     TEXT,
		price        REAL,
		currency     TEXT,
		phone        TEXT,
		contact_name TEXT,
		address      TEXT,
		document     TEXT,
		summary      TEXT,
		source_link  TEXT,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_listings_phone ON listings(phone);
	CREATE INDEX IF NOT EXISTS idx_listings_created ON listings(created_at);

	CREATE TABLE IF NOT EXISTS sold (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		phone TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS favorites (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		phone TEXT UNIQUE,
		color TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AddListing inserts a listing unless one with the same phone and price
// already exists. Listings without a phone are never stored; the phone is
// the identity everything else hangs off.
func (s *SQLiteStore) AddListing(ctx context.Context, l domain.Listing) (bool, error) {
	if l.Phone == "" {
		return false, nil
	}

	var existing int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM listings WHERE phone = ? AND price = ?`, l.Phone, l.Price,
	).Scan(&existing)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO listings (date_read, prop_type, operation, metro, rooms, building,
			floor, area_kvm, price, currency, phone, contact_name, address, document,
			summary, source_link)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.DateRead, l.PropType, l.Operation, l.Metro, l.Rooms, l.Building,
		l.Floor, l.AreaKvm, l.Price, l.Currency, l.Phone, l.ContactName, l.Address,
		l.Document, l.Summary, l.SourceLink,
	)
	if err != nil {
		return false, fmt.Errorf("insert listing: %w", err)
	}
	return true, nil
}

// PhonesSummary returns the per-phone aggregate view, newest activity first.
func (s *SQLiteStore) PhonesSummary(ctx context.Context, f domain.Filter) ([]domain.SummaryRow, error) {
	if f.Limit <= 0 {
		f.Limit = 500
	}

	var b strings.Builder
	b.WriteString(`
	SELECT
		phone,
		MAX(date_read), MAX(created_at), MAX(prop_type), MAX(building),
		MAX(operation), MAX(metro), MAX(rooms), MAX(floor), MAX(area_kvm),
		MAX(price), MAX(currency), COUNT(*), MAX(contact_name), MAX(address),
		MAX(document), MAX(summary), MAX(source_link)
	FROM listings
	WHERE 1=1`)
	var params []any

	if f.Keyword != "" {
		kw := "%" + strings.ToLower(f.Keyword) + "%"
		b.WriteString(" AND (LOWER(phone) LIKE ? OR LOWER(metro) LIKE ? OR LOWER(address) LIKE ?)")
		params = append(params, kw, kw, kw)
	}
	if f.DateFrom != "" {
		b.WriteString(" AND date(created_at) >= date(?)")
		params = append(params, f.DateFrom)
	}
	if f.DateTo != "" {
		b.WriteString(" AND date(created_at) <= date(?)")
		params = append(params, f.DateTo)
	}
	switch {
	case f.OnlySold:
		b.WriteString(" AND phone IN (SELECT phone FROM sold)")
	case f.OnlyFavorites:
		b.WriteString(" AND phone IN (SELECT phone FROM favorites)")
	case f.ExcludeSold:
		b.WriteString(" AND phone NOT IN (SELECT phone FROM sold)")
	}

	b.WriteString(" GROUP BY phone ORDER BY MAX(created_at) DESC LIMIT ?")
	params = append(params, f.Limit)

	rows, err := s.db.QueryContext(ctx, b.String(), params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SummaryRow
	for rows.Next() {
		var r domain.SummaryRow
		var dateRead, createdAt, propType, building, operation, metro, rooms sql.NullString
		var floor, areaKvm, currency, contactName, address, document, summary, link sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&r.Phone, &dateRead, &createdAt, &propType, &building,
			&operation, &metro, &rooms, &floor, &areaKvm,
			&price, &currency, &r.AdCount, &contactName, &address,
			&document, &summary, &link); err != nil {
			return nil, err
		}
		r.DateRead = dateRead.String
		r.CreatedAt = createdAt.String
		r.PropType = propType.String
		r.Building = building.String
		r.Operation = operation.String
		r.Metro = metro.String
		r.Rooms = rooms.String
		r.Floor = floor.String
		r.AreaKvm = areaKvm.String
		r.Price = price.Float64
		r.Currency = currency.String
		r.ContactName = contactName.String
		r.Address = address.String
		r.Document = document.String
		r.Summary = summary.String
		r.SourceLink = link.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListingsByPhone returns a contact's full ad history, newest first.
func (s *SQLiteStore) ListingsByPhone(ctx context.Context, phone string) ([]domain.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date_read, prop_type, operation, metro, rooms, building, floor,
			area_kvm, price, currency, phone, contact_name, address, document,
			summary, source_link, created_at
		 FROM listings WHERE phone = ? ORDER BY date_read DESC`, phone,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		var l domain.Listing
		var dateRead, propType, operation, metro, rooms, building sql.NullString
		var floor, areaKvm, currency, contactName, address, document, summary, link, created sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&l.ID, &dateRead, &propType, &operation, &metro, &rooms,
			&building, &floor, &areaKvm, &price, &currency, &l.Phone,
			&contactName, &address, &document, &summary, &link, &created); err != nil {
			return nil, err
		}
		l.CreatedAt = created.String
		l.DateRead = dateRead.String
		l.PropType = propType.String
		l.Operation = operation.String
		l.Metro = metro.String
		l.Rooms = rooms.String
		l.Building = building.String
		l.Floor = floor.String
		l.AreaKvm = areaKvm.String
		l.Price = price.Float64
		l.Currency = currency.String
		l.ContactName = contactName.String
		l.Address = address.String
		l.Document = document.String
		l.Summary = summary.String
		l.SourceLink = link.String
		out = append(out, l)
	}
	return out, rows.Err()
}

// PhoneStats aggregates price history for one contact. TrendPct is the
// percentage spread between min and max price, nil when min is zero.
func (s *SQLiteStore) PhoneStats(ctx context.Context, phone string) (domain.PhoneStats, error) {
	var st domain.PhoneStats
	var first, last sql.NullString
	var avg, min, max sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(date_read), MAX(date_read), COUNT(*), AVG(price), MIN(price), MAX(price)
		 FROM listings WHERE phone = ?`, phone,
	).Scan(&first, &last, &st.Count, &avg, &min, &max)
	if err != nil {
		return st, err
	}
	st.FirstDate = first.String
	st.LastDate = last.String
	st.AvgPrice = avg.Float64
	st.MinPrice = min.Float64
	st.MaxPrice = max.Float64
	if min.Valid && max.Valid && min.Float64 != 0 {
		trend := (max.Float64 - min.Float64) / min.Float64 * 100
		st.TrendPct = &trend
	}
	return st, nil
}

// DistinctValues lists the non-blank distinct values of one listing column,
// for building filter choices. The column name is checked against a fixed
// whitelist since it is interpolated into SQL.
func (s *SQLiteStore) DistinctValues(ctx context.Context, column string) ([]string, error) {
	switch column {
	case "prop_type", "operation", "metro", "rooms", "building", "currency", "document":
	default:
		return nil, fmt.Errorf("distinct values: unsupported column %q", column)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT DISTINCT %s FROM listings
		 WHERE %s IS NOT NULL AND TRIM(%s) != '' ORDER BY %s ASC`,
		column, column, column, column,
	))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- sold / favorites ---

func (s *SQLiteStore) AddSold(ctx context.Context, phone string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO sold (phone) VALUES (?)`, phone)
	return err
}

func (s *SQLiteStore) RemoveSold(ctx context.Context, phone string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sold WHERE phone = ?`, phone)
	return err
}

func (s *SQLiteStore) SoldSet(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phone FROM sold`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetFavorite(ctx context.Context, phone, color string) error {
	if color == "" {
		color = "#e8f2ff"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO favorites (phone, color) VALUES (?, ?)`, phone, color)
	return err
}

func (s *SQLiteStore) Favorites(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phone, color FROM favorites`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var p, c string
		if err := rows.Scan(&p, &c); err != nil {
			return nil, err
		}
		out[p] = c
	}
	return out, rows.Err()
}

// Stats computes the dashboard aggregates over the whole base.
func (s *SQLiteStore) Stats(ctx context.Context) (domain.Stats, error) {
	var st domain.Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&st.Total); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE operation LIKE '%Sat%'`).Scan(&st.Sales); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE operation LIKE '%Kiray%'`).Scan(&st.Rent); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (
			SELECT phone FROM listings WHERE phone IS NOT NULL
			GROUP BY phone, price, rooms, area_kvm HAVING COUNT(*) > 1
		)`).Scan(&st.Duplicates); err != nil {
		return st, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT prop_type, COUNT(*) FROM listings
		 WHERE prop_type IS NOT NULL AND TRIM(prop_type) != ''
		 GROUP BY prop_type ORDER BY COUNT(*) DESC LIMIT 5`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var tc domain.TypeCount
		if err := rows.Scan(&tc.PropType, &tc.Count); err != nil {
			return st, err
		}
		st.TopTypes = append(st.TopTypes, tc)
	}
	return st, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
