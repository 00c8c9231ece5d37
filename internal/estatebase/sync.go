// Package estatebase pulls property records from the remote EstateBase
// database into the local listing store.
package estatebase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"homebase/internal/domain"
)

// ListingStore is the slice of the local store the syncer writes to.
type ListingStore interface {
	AddListing(ctx context.Context, l domain.Listing) (bool, error)
}

// Window bounds the pull by insert date. DateFrom/DateTo take precedence;
// LastDays is the "-N" shorthand (records from the last N days).
type Window struct {
	DateFrom string // YYYY-MM-DD, inclusive
	DateTo   string // YYYY-MM-DD, inclusive
	LastDays string // e.g. "-7"
}

// Result summarizes one sync run.
type Result struct {
	RunID   string
	Total   int
	Added   int
	Skipped int
	Stopped bool
}

// Progress receives per-row progress. done includes skipped rows.
type Progress func(done, total int)

// Syncer runs the extract-transform-load loop against one remote connection.
type Syncer struct {
	dsn    string
	store  ListingStore
	logger *slog.Logger
}

type Config struct {
	DSN    string
	Store  ListingStore
	Logger *slog.Logger
}

func New(cfg Config) *Syncer {
	return &Syncer{dsn: cfg.DSN, store: cfg.Store, logger: cfg.Logger}
}

const baseQuery = `
SELECT
	p.insert_date_time::text,
	pt.property_type_name,
	o.operation_type_name,
	m.metro_name,
	rc.room_count_name,
	bt.building_type_name,
	p.floor::text,
	p.floor_of::text,
	p.area::text,
	p.general_area::text,
	p.price,
	c.currency_name,
	p.owner_phone_number_01,
	p.owner_phone_number_02,
	p.owner_full_name,
	p.address,
	d.document_name,
	p.data,
	p.source_note
FROM property p
LEFT JOIN property_type pt ON p.fk_id_property_type = pt.id_property_type
LEFT JOIN building_type bt ON p.fk_id_building_type = bt.id_building_type
LEFT JOIN operation_type o ON p.fk_id_operation_type = o.id_operation_type
LEFT JOIN currency c ON p.fk_id_currency = c.id_currency
LEFT JOIN document d ON p.fk_id_document = d.id_document
LEFT JOIN metro m ON p.fk_id_metro = m.id_metro
%s
ORDER BY p.insert_date_time DESC`

// buildQuery returns the query text and its parameters for the window.
func buildQuery(w Window) (string, []any, error) {
	switch {
	case w.DateFrom != "" && w.DateTo != "":
		where := "WHERE p.insert_date_time::date BETWEEN $1 AND $2"
		return fmt.Sprintf(baseQuery, where), []any{w.DateFrom, w.DateTo}, nil
	case strings.HasPrefix(strings.TrimSpace(w.LastDays), "-"):
		n, err := strconv.Atoi(strings.TrimSpace(w.LastDays))
		if err != nil {
			return "", nil, fmt.Errorf("invalid day window %q: %w", w.LastDays, err)
		}
		where := "WHERE p.insert_date_time::date >= CURRENT_DATE + $1"
		return fmt.Sprintf(baseQuery, where), []any{n}, nil
	default:
		return fmt.Sprintf(baseQuery, ""), nil, nil
	}
}

// Run pulls the windowed records and loads them into the local store.
// Duplicates within the run are skipped on (link, phone, price); duplicates
// against the existing base are skipped by the store's own phone+price check.
func (s *Syncer) Run(ctx context.Context, w Window, ctl *Controller, progress Progress) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	if ctl == nil {
		ctl = NewController()
	}
	if progress == nil {
		progress = func(int, int) {}
	}

	query, params, err := buildQuery(w)
	if err != nil {
		return res, err
	}

	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return res, fmt.Errorf("connect to estatebase: %w", err)
	}
	defer conn.Close(ctx)

	rawRows, err := s.fetch(ctx, conn, query, params)
	if err != nil {
		return res, err
	}
	res.Total = len(rawRows)
	s.logger.Info("sync started", "run", res.RunID, "rows", res.Total)
	if res.Total == 0 {
		return res, nil
	}

	s.load(ctx, rawRows, ctl, progress, &res)
	if res.Stopped {
		s.logger.Info("sync stopped", "run", res.RunID, "added", res.Added)
	} else {
		s.logger.Info("sync finished", "run", res.RunID, "added", res.Added, "skipped", res.Skipped)
	}
	return res, nil
}

// load walks the materialized rows: pause/stop checks between rows, in-run
// duplicate skip, then insert. A row that fails to insert is logged and
// skipped; it never aborts the run.
func (s *Syncer) load(ctx context.Context, rawRows []row, ctl *Controller, progress Progress, res *Result) {
	seen := map[dupKey]struct{}{}
	for i, r := range rawRows {
		if ctl.WaitIfPaused() {
			res.Stopped = true
			return
		}

		l := r.listing()
		if l.Phone == "" {
			progress(i+1, res.Total)
			continue
		}
		if _, dup := seen[r.key()]; dup {
			res.Skipped++
			progress(i+1, res.Total)
			continue
		}
		seen[r.key()] = struct{}{}

		added, err := s.store.AddListing(ctx, l)
		if err != nil {
			s.logger.Warn("row skipped", "run", res.RunID, "phone", l.Phone, "err", err)
		} else if added {
			res.Added++
		} else {
			res.Skipped++
		}
		progress(i+1, res.Total)
	}
}

// fetch materializes the remote rows before loading starts, so a paused run
// does not hold a server cursor open.
func (s *Syncer) fetch(ctx context.Context, conn *pgx.Conn, query string, params []any) ([]row, error) {
	rows, err := conn.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query estatebase: %w", err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		if err := rows.Scan(
			&r.InsertDateTime, &r.PropType, &r.Operation, &r.Metro, &r.Rooms,
			&r.Building, &r.Floor, &r.FloorOf, &r.AreaSot, &r.AreaKvm,
			&r.Price, &r.Currency, &r.Phone1, &r.Phone2, &r.ContactName,
			&r.Address, &r.Document, &r.Summary, &r.SourceLink,
		); err != nil {
			return nil, fmt.Errorf("scan estatebase row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read estatebase rows: %w", err)
	}
	return out, nil
}
