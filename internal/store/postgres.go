// Package store is the Postgres gateway: pooled connections, the atomic
// upsert-plus-photo-replace protocol, job lifecycle persistence, the
// deactivation sweep, and cadastre enrichment upserts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/cybersmurf/realestate-aggregator/internal/canon"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
	"github.com/cybersmurf/realestate-aggregator/internal/redisx"
)

// Store wraps a pooled *sql.DB with the listings-domain operations.
type Store struct {
	DB          *sql.DB
	SourceCache *redisx.SourceIDCache
}

// Open establishes the connection pool. Pool sizing mirrors the teacher's
// conservative defaults; callers needing different limits adjust DB
// directly after Open returns.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db, SourceCache: redisx.NewSourceIDCache(nil, time.Hour)}, nil
}

// Ping verifies connectivity at startup.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// Close releases the pool.
func (s *Store) Close() error { return s.DB.Close() }

// Migrate applies the schema described in SPEC_FULL.md §6, idempotently.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE TABLE IF NOT EXISTS sources (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            code TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            base_url TEXT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT true
        );`,
		`CREATE TABLE IF NOT EXISTS listings (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            source_id UUID NOT NULL REFERENCES sources(id),
            source_code TEXT NOT NULL,
            source_name TEXT NOT NULL,
            external_id TEXT NOT NULL,
            url TEXT NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            property_type TEXT NOT NULL,
            offer_type TEXT NOT NULL,
            price NUMERIC,
            location_text TEXT NOT NULL DEFAULT '',
            municipality TEXT NOT NULL DEFAULT '',
            district TEXT NOT NULL DEFAULT '',
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            area_built_up INTEGER,
            area_land INTEGER,
            disposition TEXT NOT NULL DEFAULT '',
            condition TEXT NOT NULL DEFAULT '',
            construction_type TEXT NOT NULL DEFAULT '',
            first_seen_at TIMESTAMPTZ NOT NULL,
            last_seen_at TIMESTAMPTZ NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT true,
            geocode_source TEXT NOT NULL DEFAULT '',
            geocoded_at TIMESTAMPTZ,
            UNIQUE (source_id, external_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_listings_active ON listings(is_active);`,
		`CREATE INDEX IF NOT EXISTS idx_listings_geo_pending ON listings(is_active) WHERE latitude IS NULL;`,
		`CREATE TABLE IF NOT EXISTS listing_photos (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            listing_id UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
            original_url TEXT NOT NULL,
            order_index INTEGER NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_listing_photos_listing ON listing_photos(listing_id, order_index);`,
		`CREATE TABLE IF NOT EXISTS listing_cadastre_data (
            listing_id UUID PRIMARY KEY REFERENCES listings(id) ON DELETE CASCADE,
            address_searched TEXT NOT NULL DEFAULT '',
            ruian_kod TEXT NOT NULL DEFAULT '',
            cadastre_url TEXT NOT NULL DEFAULT '',
            fetch_status TEXT NOT NULL,
            raw_ruian JSONB,
            fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE TABLE IF NOT EXISTS scrape_jobs (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            source_codes TEXT[] NOT NULL,
            full_rescan BOOLEAN NOT NULL,
            status TEXT NOT NULL,
            progress INTEGER NOT NULL DEFAULT 0,
            listings_found INTEGER NOT NULL DEFAULT 0,
            listings_new INTEGER NOT NULL DEFAULT 0,
            listings_updated INTEGER NOT NULL DEFAULT 0,
            error_message TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            started_at TIMESTAMPTZ,
            finished_at TIMESTAMPTZ
        );`,
		`CREATE INDEX IF NOT EXISTS idx_scrape_jobs_created ON scrape_jobs(created_at DESC);`,
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// GetSourceByCode resolves a source row by its code, the hard configuration
// boundary an adapter cannot cross (spec §3).
func (s *Store) GetSourceByCode(ctx context.Context, code string) (model.Source, error) {
	var src model.Source
	err := s.DB.QueryRowContext(ctx, `
        SELECT id, code, name, base_url, is_active FROM sources WHERE code = $1
    `, code).Scan(&src.ID, &src.Code, &src.Name, &src.BaseURL, &src.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return src, fmt.Errorf("source %q not found: %w", code, err)
	}
	if err != nil {
		return src, fmt.Errorf("get source %q: %w", code, err)
	}
	return src, nil
}

// ListActiveSourceCodes returns every is_active source code, the default
// scope when a scrape job omits source_codes (spec §4.6 step 2).
func (s *Store) ListActiveSourceCodes(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT code FROM sources WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// UpsertResult reports whether UpsertListing created a new row or updated
// an existing one, so the runner can aggregate found/new/updated counts.
type UpsertResult struct {
	ListingID string
	Created   bool
}

// sourceForCode resolves a source row, consulting SourceCache first. Every
// adapter run does this once per listing, so skipping the round trip on a
// cache hit matters at scrape volume. The cache value packs id and name
// (neither of which can contain "|") so a hit never needs a second query.
func (s *Store) sourceForCode(ctx context.Context, code string) (model.Source, error) {
	if s.SourceCache != nil {
		if packed, ok := s.SourceCache.Get(ctx, code); ok {
			if id, name, ok := strings.Cut(packed, "|"); ok {
				return model.Source{ID: id, Code: code, Name: name}, nil
			}
		}
	}
	source, err := s.GetSourceByCode(ctx, code)
	if err != nil {
		return source, err
	}
	if s.SourceCache != nil {
		s.SourceCache.Set(ctx, code, source.ID+"|"+source.Name)
	}
	return source, nil
}

// UpsertListing is the atomic insert-or-update protocol from spec §4.1: a
// single statement keyed on (source_id, external_id), returning the row id
// and an inserted discriminator via `xmax = 0` so callers never need a
// second round trip to learn whether the row was new.
func (s *Store) UpsertListing(ctx context.Context, n model.NormalizedListing) (UpsertResult, error) {
	var res UpsertResult

	source, err := s.sourceForCode(ctx, n.SourceCode)
	if err != nil {
		return res, err
	}

	canon.InferFields(&n)
	propertyType := canon.MapPropertyType(n.PropertyType)
	offerType := canon.MapOfferType(n.OfferType)

	err = s.DB.QueryRowContext(ctx, `
        INSERT INTO listings (
            source_id, source_code, source_name, external_id, url, title, description,
            property_type, offer_type, price, location_text, municipality, district,
            latitude, longitude, area_built_up, area_land, disposition, condition,
            construction_type, first_seen_at, last_seen_at, is_active
        )
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20, now(), now(), true)
        ON CONFLICT (source_id, external_id) DO UPDATE SET
            url = EXCLUDED.url,
            title = EXCLUDED.title,
            description = EXCLUDED.description,
            property_type = EXCLUDED.property_type,
            offer_type = EXCLUDED.offer_type,
            price = EXCLUDED.price,
            location_text = EXCLUDED.location_text,
            municipality = EXCLUDED.municipality,
            district = EXCLUDED.district,
            latitude = COALESCE(EXCLUDED.latitude, listings.latitude),
            longitude = COALESCE(EXCLUDED.longitude, listings.longitude),
            area_built_up = EXCLUDED.area_built_up,
            area_land = EXCLUDED.area_land,
            disposition = EXCLUDED.disposition,
            condition = EXCLUDED.condition,
            construction_type = EXCLUDED.construction_type,
            last_seen_at = now(),
            is_active = true
        RETURNING id, (xmax = 0)
    `,
		source.ID, n.SourceCode, source.Name, n.ExternalID, n.URL, truncate(n.Title, 200), truncate(n.Description, 5000),
		propertyType, offerType, n.Price, truncate(n.LocationText, 200), n.Municipality, n.District,
		n.Latitude, n.Longitude, n.AreaBuiltUp, n.AreaLand, n.Disposition, n.Condition, n.ConstructionType,
	).Scan(&res.ListingID, &res.Created)
	if err != nil {
		return res, fmt.Errorf("upsert listing %s/%s: %w", n.SourceCode, n.ExternalID, err)
	}

	if len(n.Photos) > 0 {
		if err := s.replacePhotos(ctx, res.ListingID, n.Photos); err != nil {
			return res, fmt.Errorf("replace photos for %s: %w", res.ListingID, err)
		}
	}

	return res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// replacePhotos performs the delete-all-then-reinsert protocol from spec
// §3/§4.1 inside its own short transaction, capped at model.MaxPhotosPerListing.
func (s *Store) replacePhotos(ctx context.Context, listingID string, urls []string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM listing_photos WHERE listing_id = $1`, listingID); err != nil {
		return err
	}

	capped := urls
	if len(capped) > model.MaxPhotosPerListing {
		capped = capped[:model.MaxPhotosPerListing]
	}
	for idx, u := range capped {
		if u == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
            INSERT INTO listing_photos (listing_id, original_url, order_index)
            VALUES ($1, $2, $3)
        `, listingID, u, idx); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// DeactivateUnseen marks every listing of sourceCode whose last_seen_at
// predates cutoff as inactive — invoked only after a successful full
// rescan of that source (spec §3/§4.1).
func (s *Store) DeactivateUnseen(ctx context.Context, sourceCode string, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
        UPDATE listings SET is_active = false
        WHERE source_code = $1 AND last_seen_at < $2 AND is_active
    `, sourceCode, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deactivate unseen for %s: %w", sourceCode, err)
	}
	return res.RowsAffected()
}

// CreateJob inserts a new Queued scrape job and returns its id.
func (s *Store) CreateJob(ctx context.Context, sourceCodes []string, fullRescan bool) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `
        INSERT INTO scrape_jobs (source_codes, full_rescan, status)
        VALUES ($1, $2, $3)
        RETURNING id
    `, pqStringArray(sourceCodes), fullRescan, model.JobStatusQueued).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return id, nil
}

// JobUpdate is a dynamic partial update: only non-nil fields are applied,
// matching the teacher's UpdateJob-tolerates-missing-timestamps contract
// (spec §4.1).
type JobUpdate struct {
	Status          *model.JobStatus
	Progress        *int
	ListingsFound   *int
	ListingsNew     *int
	ListingsUpdated *int
	ErrorMessage    *string
	StartedAt       *time.Time
	FinishedAt      *time.Time
}

// UpdateJob applies u to job id, building the SET clause from whichever
// fields are non-nil.
func (s *Store) UpdateJob(ctx context.Context, id string, u JobUpdate) error {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 8)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.Progress != nil {
		add("progress", *u.Progress)
	}
	if u.ListingsFound != nil {
		add("listings_found", *u.ListingsFound)
	}
	if u.ListingsNew != nil {
		add("listings_new", *u.ListingsNew)
	}
	if u.ListingsUpdated != nil {
		add("listings_updated", *u.ListingsUpdated)
	}
	if u.ErrorMessage != nil {
		add("error_message", *u.ErrorMessage)
	}
	if u.StartedAt != nil {
		add("started_at", *u.StartedAt)
	}
	if u.FinishedAt != nil {
		add("finished_at", *u.FinishedAt)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE scrape_jobs SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}

// GetJob fetches a single job record.
func (s *Store) GetJob(ctx context.Context, id string) (model.ScrapeJob, error) {
	var job model.ScrapeJob
	var codes pqStringArrayScanner
	var errMsg sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := s.DB.QueryRowContext(ctx, `
        SELECT id, source_codes, full_rescan, status, progress, listings_found,
               listings_new, listings_updated, error_message, created_at, started_at, finished_at
        FROM scrape_jobs WHERE id = $1
    `, id).Scan(&job.ID, &codes, &job.FullRescan, &job.Status, &job.Progress, &job.ListingsFound,
		&job.ListingsNew, &job.ListingsUpdated, &errMsg, &job.CreatedAt, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return job, fmt.Errorf("job %s not found: %w", id, err)
	}
	if err != nil {
		return job, fmt.Errorf("get job %s: %w", id, err)
	}

	job.SourceCodes = codes.values
	if errMsg.Valid {
		job.ErrorMessage = errMsg.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	return job, nil
}

// ListJobs returns jobs in reverse-chronological order, optionally filtered
// by status, bounded by limit.
func (s *Store) ListJobs(ctx context.Context, limit int, status model.JobStatus) ([]model.ScrapeJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT id, source_codes, full_rescan, status, progress, listings_found,
               listings_new, listings_updated, error_message, created_at, started_at, finished_at
        FROM scrape_jobs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.ScrapeJob
	for rows.Next() {
		var job model.ScrapeJob
		var codes pqStringArrayScanner
		var errMsg sql.NullString
		var startedAt, finishedAt sql.NullTime
		if err := rows.Scan(&job.ID, &codes, &job.FullRescan, &job.Status, &job.Progress, &job.ListingsFound,
			&job.ListingsNew, &job.ListingsUpdated, &errMsg, &job.CreatedAt, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		job.SourceCodes = codes.values
		if errMsg.Valid {
			job.ErrorMessage = errMsg.String
		}
		if startedAt.Valid {
			t := startedAt.Time
			job.StartedAt = &t
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			job.FinishedAt = &t
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpsertCadastre replaces the whole cadastre row for a listing. The bulk
// sweep (internal/cadastre) is responsible for never calling this for rows
// whose current status is "manual" — this method itself performs an
// unconditional replace, matching spec §3's "upsert replaces the whole row".
func (s *Store) UpsertCadastre(ctx context.Context, c model.ListingCadastreData) error {
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO listing_cadastre_data (listing_id, address_searched, ruian_kod, cadastre_url, fetch_status, raw_ruian, fetched_at)
        VALUES ($1, $2, $3, $4, $5, $6, now())
        ON CONFLICT (listing_id) DO UPDATE SET
            address_searched = EXCLUDED.address_searched,
            ruian_kod = EXCLUDED.ruian_kod,
            cadastre_url = EXCLUDED.cadastre_url,
            fetch_status = EXCLUDED.fetch_status,
            raw_ruian = EXCLUDED.raw_ruian,
            fetched_at = now()
    `, c.ListingID, c.AddressSearched, c.RuianKod, c.CadastreURL, c.FetchStatus, c.RawRuian)
	if err != nil {
		return fmt.Errorf("upsert cadastre for %s: %w", c.ListingID, err)
	}
	return nil
}

// ListingsMissingCoordinates scans active listings without a latitude,
// ordered newest-first, for the geocoding bulk sweep (spec §4.3).
func (s *Store) ListingsMissingCoordinates(ctx context.Context, batchSize int) ([]model.Listing, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, location_text, municipality, district
        FROM listings
        WHERE is_active AND latitude IS NULL
        ORDER BY first_seen_at DESC
        LIMIT $1
    `, batchSize)
	if err != nil {
		return nil, fmt.Errorf("list listings missing coordinates: %w", err)
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.ID, &l.LocationText, &l.Municipality, &l.District); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SetGeocode writes the geocoding bulk sweep's outcome for one listing.
func (s *Store) SetGeocode(ctx context.Context, listingID string, lat, lon float64, source string) error {
	_, err := s.DB.ExecContext(ctx, `
        UPDATE listings SET latitude = $1, longitude = $2, geocoded_at = now(), geocode_source = $3
        WHERE id = $4
    `, lat, lon, source, listingID)
	if err != nil {
		return fmt.Errorf("set geocode for %s: %w", listingID, err)
	}
	return nil
}

// ListingsNeedingCadastre scans active listings lacking a resolved cadastre
// row, excluding any already marked "manual" or already "found" — this is
// the explicit correction over original_source/scraper/core/ruian_service.py,
// whose bulk sweep never excludes "manual" rows (spec §4.3/§9).
//
// reprocessNotFound controls whether a prior "not_found" row is picked up
// again: when false it is excluded alongside "found"/"manual"; when true it
// is left eligible, matching bulk_ruian_lookup's own pending/not_found toggle.
func (s *Store) ListingsNeedingCadastre(ctx context.Context, batchSize int, reprocessNotFound bool) ([]model.Listing, error) {
	query := fmt.Sprintf(`
        SELECT l.id, l.location_text, l.municipality, l.district
        FROM listings l
        LEFT JOIN listing_cadastre_data cd ON cd.listing_id = l.id
        WHERE l.is_active AND (cd.listing_id IS NULL OR (%s))
        ORDER BY l.first_seen_at DESC
        LIMIT $1
    `, cadastreStatusExclusion(reprocessNotFound))
	rows, err := s.DB.QueryContext(ctx, query, batchSize)
	if err != nil {
		return nil, fmt.Errorf("list listings needing cadastre: %w", err)
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.ID, &l.LocationText, &l.Municipality, &l.District); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// cadastreStatusExclusion builds the fetch_status NOT IN (...) clause for
// ListingsNeedingCadastre. "found" and "manual" rows are always excluded;
// "not_found" is excluded too unless reprocessNotFound asks for a retry.
func cadastreStatusExclusion(reprocessNotFound bool) string {
	if reprocessNotFound {
		return `cd.fetch_status NOT IN ('found', 'manual')`
	}
	return `cd.fetch_status NOT IN ('found', 'manual', 'not_found')`
}
