package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"estatescrapers/internal/scraper"
	apperr "estatescrapers/pkg/errors"
)

// Store is the persistence backend of the pipeline
type Store interface {
	// SeenURLs returns the scrape URLs of every previously committed record
	SeenURLs(ctx context.Context) (map[string]struct{}, error)

	// WriteBatch commits a batch of records in one transaction
	WriteBatch(ctx context.Context, records []*scraper.RealEstate) error

	// Close releases the storage connection
	Close() error
}

const numColumns = 17

// Postgres implements Store on a flat real_estate_items table, one row per
// canonical record, keyed by scrape_url.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection, waits for the server to come up and
// ensures the schema exists
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperr.NewStorage("open failed", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, apperr.NewStorage("ping failed after retries", err)
	}

	p := &Postgres{db: db}
	if err := p.migrate(); err != nil {
		return nil, apperr.NewStorage("migrate failed", err)
	}

	return p, nil
}

func (p *Postgres) migrate() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS real_estate_items (
			id                      SERIAL PRIMARY KEY,
			country                 VARCHAR(3)  NOT NULL,
			city                    TEXT,
			zip_code                TEXT,
			listing_type            VARCHAR(8)  NOT NULL,
			area                    DOUBLE PRECISION,
			price_amount            DOUBLE PRECISION,
			price_unit              TEXT,
			heating_demand_class    TEXT,
			heating_demand_value    DOUBLE PRECISION,
			energy_efficiency_class TEXT,
			energy_efficiency_value DOUBLE PRECISION,
			epc_pdf_url             TEXT,
			epc_issued_date         TIMESTAMPTZ,
			date_built              TIMESTAMPTZ,
			object_type             TEXT,
			scrape_url              TEXT        UNIQUE NOT NULL,
			scrape_timestamp        TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_real_estate_items_country      ON real_estate_items(country);
		CREATE INDEX IF NOT EXISTS idx_real_estate_items_listing_type ON real_estate_items(listing_type);
	`)
	return err
}

// SeenURLs loads the scrape URLs of all committed records
func (p *Postgres) SeenURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT scrape_url FROM real_estate_items")
	if err != nil {
		return nil, apperr.NewStorage("loading seen urls failed", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, apperr.NewStorage("scanning seen url failed", err)
		}
		seen[url] = struct{}{}
	}
	return seen, rows.Err()
}

// WriteBatch commits the records in one transaction using a multi-row insert
func (p *Postgres) WriteBatch(ctx context.Context, records []*scraper.RealEstate) error {
	if len(records) == 0 {
		return nil
	}

	query, args := buildInsert(records)

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.NewStorage("begin transaction failed", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return apperr.NewStorage("batch insert failed", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.NewStorage("commit failed", err)
	}
	return nil
}

func buildInsert(records []*scraper.RealEstate) (string, []interface{}) {
	valueStrings := make([]string, 0, len(records))
	valueArgs := make([]interface{}, 0, len(records)*numColumns)

	for idx, r := range records {
		base := idx * numColumns
		placeholders := make([]string, numColumns)
		for i := range placeholders {
			placeholders[i] = fmt.Sprintf("$%d", base+i+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		var priceAmount *float64
		var priceUnit *string
		if r.Price != nil {
			priceAmount = &r.Price.Amount
			priceUnit = &r.Price.Unit
		}
		var heatClass *string
		var heatValue *float64
		if r.EPC.HeatingDemand != nil {
			heatClass = &r.EPC.HeatingDemand.Class
			heatValue = r.EPC.HeatingDemand.Value
		}
		var effClass *string
		var effValue *float64
		if r.EPC.EnergyEfficiency != nil {
			effClass = &r.EPC.EnergyEfficiency.Class
			effValue = r.EPC.EnergyEfficiency.Value
		}
		var pdfURL *string
		if r.EPC.PDFURL != "" {
			pdfURL = &r.EPC.PDFURL
		}

		valueArgs = append(valueArgs,
			r.Location.Country,
			nullable(r.Location.City),
			nullable(r.Location.ZipCode),
			string(r.ListingType),
			r.Area,
			priceAmount,
			priceUnit,
			heatClass,
			heatValue,
			effClass,
			effValue,
			pdfURL,
			r.EPC.IssuedDate,
			r.DateBuilt,
			nullable(r.ObjectType),
			r.ScrapeURL,
			r.ScrapedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO real_estate_items (
			country, city, zip_code, listing_type, area,
			price_amount, price_unit,
			heating_demand_class, heating_demand_value,
			energy_efficiency_class, energy_efficiency_value,
			epc_pdf_url, epc_issued_date,
			date_built, object_type,
			scrape_url, scrape_timestamp
		)
		VALUES %s
		ON CONFLICT (scrape_url) DO NOTHING
	`, strings.Join(valueStrings, ","))

	return query, valueArgs
}

// nullable maps the empty string to a NULL parameter
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Close closes the connection pool
func (p *Postgres) Close() error {
	return p.db.Close()
}
