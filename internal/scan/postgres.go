package scan

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// postgresScanner discovers tables and columns through information_schema.
// The column filter is applied here, inside the scanner, so filter statistics
// reflect what the database actually exposed.
type postgresScanner struct {
	dsn    string
	schema string
	db     *sql.DB
}

// NewPostgresScanner builds a database scanner from a connection config with
// keys dsn (required) and schema (default "public").
func NewPostgresScanner(config map[string]string) (Scanner, error) {
	dsn := config["dsn"]
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres scanner requires dsn", ErrInvalidConfig)
	}
	schema := config["schema"]
	if schema == "" {
		schema = "public"
	}
	return &postgresScanner{dsn: dsn, schema: schema}, nil
}

func (s *postgresScanner) Connect(ctx context.Context) error {
	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		return fmt.Errorf("%w: open: %v", ErrTransient, err)
	}
	db.SetMaxOpenConns(4)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: ping: %v", ErrTransient, err)
	}
	s.db = db
	return nil
}

func (s *postgresScanner) Discover(ctx context.Context, opts DiscoverOptions) (Discovery, error) {
	if s.db == nil {
		return Discovery{}, fmt.Errorf("%w: discover before connect", ErrInvalidConfig)
	}
	rows, err := s.db.QueryContext(ctx, `
		select table_name, column_name
		from information_schema.columns
		where table_schema = $1
		order by table_name, ordinal_position
	`, s.schema)
	if err != nil {
		return Discovery{}, fmt.Errorf("%w: query columns: %v", ErrTransient, err)
	}
	defer rows.Close()

	tables := map[string][]string{}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return Discovery{}, err
		}
		tables[table] = append(tables[table], column)
	}
	if err := rows.Err(); err != nil {
		return Discovery{}, fmt.Errorf("%w: read columns: %v", ErrTransient, err)
	}

	names := make([]string, 0, len(tables))
	for t := range tables {
		names = append(names, t)
	}
	sort.Strings(names)

	filter := NewColumnFilter(opts.Filter)
	d := Discovery{Metadata: map[string]string{"schema": s.schema}}
	for _, table := range names {
		if opts.MaxAssets > 0 && len(d.Assets) >= opts.MaxAssets {
			break
		}
		all := tables[table]
		kept, stats := filter.Apply(all)
		d.Stats.Merge(stats)
		d.Assets = append(d.Assets, Asset{
			Name:                table,
			Location:            s.schema + "." + table,
			Columns:             kept,
			AllColumnsCount:     stats.ColumnsDiscovered,
			ScannedColumnsCount: stats.ColumnsRetained,
			ReductionPercentage: stats.ReductionPercentage,
		})
	}
	d.Count = len(d.Assets)
	return d, nil
}

func (s *postgresScanner) Metadata(ctx context.Context, assetName string) (map[string]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("%w: metadata before connect", ErrInvalidConfig)
	}
	var estimate sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		select reltuples::bigint
		from pg_class c
		join pg_namespace n on n.oid = c.relnamespace
		where n.nspname = $1 and c.relname = $2
	`, s.schema, assetName).Scan(&estimate)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table %q not found", assetName)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: row estimate: %v", ErrTransient, err)
	}
	meta := map[string]string{"schema": s.schema, "table": assetName}
	if estimate.Valid && estimate.Int64 >= 0 {
		meta["estimated_rows"] = fmt.Sprintf("%d", estimate.Int64)
	}
	return meta, nil
}

func (s *postgresScanner) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
