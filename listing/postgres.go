package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"web/rentmap/cluster"
)

// PostgresSource reads map pins from the rental_listings table.
type PostgresSource struct {
	db *sqlx.DB
}

// listingRow mirrors one rental_listings row.
type listingRow struct {
	ID           string         `db:"id"`
	Title        string         `db:"title"`
	Address      string         `db:"address"`
	Locality     string         `db:"locality"`
	City         string         `db:"city"`
	Rent         float64        `db:"rent"`
	Bedrooms     int            `db:"bedrooms"`
	Bathrooms    int            `db:"bathrooms"`
	AreaSqft     int            `db:"area_sqft"`
	Image        string         `db:"image"`
	PropertyType string         `db:"property_type"`
	Eligibility  pq.StringArray `db:"eligibility"`
	Verified     bool           `db:"verified"`
	MapTop       float64        `db:"map_top"`
	MapLeft      float64        `db:"map_left"`
}

// OpenPostgres connects with retries, then migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSource, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	src := &PostgresSource{db: db}
	if err := src.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return src, nil
}

func (s *PostgresSource) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rental_listings (
			id            VARCHAR(64)   PRIMARY KEY,
			title         TEXT          NOT NULL DEFAULT '',
			address       TEXT          NOT NULL DEFAULT '',
			locality      TEXT          NOT NULL DEFAULT '',
			city          TEXT          NOT NULL DEFAULT '',
			rent          NUMERIC(10,2) NOT NULL DEFAULT 0,
			bedrooms      INTEGER       NOT NULL DEFAULT 0,
			bathrooms     INTEGER       NOT NULL DEFAULT 0,
			area_sqft     INTEGER       NOT NULL DEFAULT 0,
			image         TEXT          NOT NULL DEFAULT '',
			property_type TEXT          NOT NULL DEFAULT '',
			eligibility   TEXT[]        NOT NULL DEFAULT '{}',
			verified      BOOLEAN       NOT NULL DEFAULT FALSE,
			map_top       DOUBLE PRECISION NOT NULL CHECK (map_top BETWEEN 0 AND 100),
			map_left      DOUBLE PRECISION NOT NULL CHECK (map_left BETWEEN 0 AND 100),
			active        BOOLEAN       NOT NULL DEFAULT TRUE,
			updated_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_rental_listings_active   ON rental_listings(active);
		CREATE INDEX IF NOT EXISTS idx_rental_listings_locality ON rental_listings(locality);
	`)
	return err
}

// Pins returns active listings ordered by id so the pin order, and hence
// greedy clustering, is stable across loads.
func (s *PostgresSource) Pins(ctx context.Context) (cluster.PinSet, error) {
	const query = `
		SELECT id, title, address, locality, city, rent, bedrooms, bathrooms,
		       area_sqft, image, property_type, eligibility, verified,
		       map_top, map_left
		FROM rental_listings
		WHERE active
		ORDER BY id`

	var rows []listingRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}

	pins := make(cluster.PinSet, len(rows))
	for i, row := range rows {
		pins[i] = row.toPin()
	}
	return pins, nil
}

// Upsert writes pins, replacing rows with the same id.
func (s *PostgresSource) Upsert(ctx context.Context, pins cluster.PinSet) error {
	if len(pins) == 0 {
		return nil
	}
	rows := make([]listingRow, len(pins))
	for i, p := range pins {
		rows[i] = rowFromPin(p)
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO rental_listings
			(id, title, address, locality, city, rent, bedrooms, bathrooms,
			 area_sqft, image, property_type, eligibility, verified, map_top, map_left)
		VALUES
			(:id, :title, :address, :locality, :city, :rent, :bedrooms, :bathrooms,
			 :area_sqft, :image, :property_type, :eligibility, :verified, :map_top, :map_left)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			address = EXCLUDED.address,
			locality = EXCLUDED.locality,
			city = EXCLUDED.city,
			rent = EXCLUDED.rent,
			bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms,
			area_sqft = EXCLUDED.area_sqft,
			image = EXCLUDED.image,
			property_type = EXCLUDED.property_type,
			eligibility = EXCLUDED.eligibility,
			verified = EXCLUDED.verified,
			map_top = EXCLUDED.map_top,
			map_left = EXCLUDED.map_left,
			active = TRUE,
			updated_at = NOW()`, rows)
	if err != nil {
		return fmt.Errorf("failed to upsert listings: %w", err)
	}
	return nil
}

func (s *PostgresSource) Close() error { return s.db.Close() }

func (row listingRow) toPin() cluster.PropertyPin {
	return cluster.PropertyPin{
		ID:           row.ID,
		Coordinates:  cluster.Coordinates{Top: row.MapTop, Left: row.MapLeft},
		Rent:         row.Rent,
		Title:        row.Title,
		Address:      row.Address,
		Locality:     row.Locality,
		City:         row.City,
		Bedrooms:     row.Bedrooms,
		Bathrooms:    row.Bathrooms,
		AreaSqft:     row.AreaSqft,
		Image:        row.Image,
		PropertyType: row.PropertyType,
		Eligibility:  []string(row.Eligibility),
		Verified:     row.Verified,
	}
}

func rowFromPin(p cluster.PropertyPin) listingRow {
	eligibility := pq.StringArray(p.Eligibility)
	if eligibility == nil {
		eligibility = pq.StringArray{}
	}
	return listingRow{
		ID:           p.ID,
		Title:        p.Title,
		Address:      p.Address,
		Locality:     p.Locality,
		City:         p.City,
		Rent:         p.Rent,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		AreaSqft:     p.AreaSqft,
		Image:        p.Image,
		PropertyType: p.PropertyType,
		Eligibility:  eligibility,
		Verified:     p.Verified,
		MapTop:       p.Coordinates.Top,
		MapLeft:      p.Coordinates.Left,
	}
}
