package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/deusflow/newsrisk/internal/analysis"
	"github.com/deusflow/newsrisk/internal/news"
)

// timeLayout is fixed-width so lexical order on the TEXT column matches time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const dayLayout = "2006-01-02"

type dialect struct {
	driver      string
	placeholder sq.PlaceholderFormat
	idColumn    string
	floatType   string
}

var (
	postgresDialect = dialect{driver: "postgres", placeholder: sq.Dollar, idColumn: "SERIAL PRIMARY KEY", floatType: "DOUBLE PRECISION"}
	sqliteDialect   = dialect{driver: "sqlite", placeholder: sq.Question, idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT", floatType: "REAL"}
)

// SQLStore keeps news records and subscribers in Postgres or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

var _ Store = (*SQLStore)(nil)

// NewPostgresStore connects to Postgres and creates the schema if missing.
func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	return openSQL(ctx, postgresDialect, dsn, logger)
}

// NewSQLiteStore opens (or creates) a SQLite database file.
func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLStore, error) {
	return openSQL(ctx, sqliteDialect, path, logger)
}

func openSQL(ctx context.Context, d dialect, dsn string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %w", ErrUnavailable, err)
	}
	if d.driver == "sqlite" {
		// Single writer; avoids SQLITE_BUSY under parallel enrichment.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", ErrUnavailable, err)
	}

	s := &SQLStore{
		db:      db,
		dialect: d,
		builder: sq.StatementBuilder.PlaceholderFormat(d.placeholder),
		logger:  logger.With("component", "storage", "driver", d.driver),
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info("database connected")
	return s, nil
}

// initSchema creates the necessary tables if they don't exist
func (s *SQLStore) initSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS news_items (
			id %s,
			title TEXT,
			source TEXT,
			datetime TEXT,
			category VARCHAR(50),
			sentiment VARCHAR(50),
			toxicity %s,
			keywords TEXT,
			entities TEXT,
			risk_point INTEGER,
			rule_hits TEXT,
			created_at TEXT NOT NULL
		)`, s.dialect.idColumn, s.dialect.floatType),
		`CREATE INDEX IF NOT EXISTS idx_news_items_created_at ON news_items(created_at)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_emails (
			id %s,
			email VARCHAR(200) UNIQUE NOT NULL
		)`, s.dialect.idColumn),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_stars (
			id %s,
			email_id INTEGER REFERENCES user_emails(id),
			news_id INTEGER REFERENCES news_items(id),
			starred_at TEXT
		)`, s.dialect.idColumn),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Save inserts rec and sets its ID.
func (s *SQLStore) Save(ctx context.Context, rec *news.Record) error {
	keywords, err := json.Marshal(nonNil(rec.Keywords))
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}
	entities, err := json.Marshal(nonNilEntities(rec.Entities))
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}
	hits, err := json.Marshal(nonNil(rec.RuleHits))
	if err != nil {
		return fmt.Errorf("encode rule hits: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query, args, err := s.builder.
		Insert("news_items").
		Columns("title", "source", "datetime", "category", "sentiment", "toxicity",
			"keywords", "entities", "risk_point", "rule_hits", "created_at").
		Values(rec.Title, rec.Source, rec.Datetime, rec.Category, rec.Sentiment, rec.Toxicity,
			string(keywords), string(entities), rec.RiskPoint, string(hits), createdAt.UTC().Format(timeLayout)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("%w: insert news item: %w", ErrUnavailable, err)
	}
	rec.ID = id
	return nil
}

// FetchByDate returns records ingested on day (UTC), highest risk first, then newest first.
func (s *SQLStore) FetchByDate(ctx context.Context, day time.Time) ([]news.Record, error) {
	start := day.UTC().Format(dayLayout)
	end := day.UTC().AddDate(0, 0, 1).Format(dayLayout)

	query, args, err := s.builder.
		Select("id", "title", "source", "datetime", "category", "sentiment", "toxicity",
			"keywords", "entities", "risk_point", "rule_hits", "created_at").
		From("news_items").
		Where(sq.GtOrEq{"created_at": start}).
		Where(sq.Lt{"created_at": end}).
		OrderBy("risk_point DESC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query news items: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	out := []news.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func scanRecord(rows *sql.Rows) (news.Record, error) {
	var (
		rec                               news.Record
		title, source, datetime           sql.NullString
		category, sentiment               sql.NullString
		toxicity                          sql.NullFloat64
		keywords, entities, hits, created sql.NullString
		riskPoint                         sql.NullInt64
	)
	if err := rows.Scan(&rec.ID, &title, &source, &datetime, &category, &sentiment, &toxicity,
		&keywords, &entities, &riskPoint, &hits, &created); err != nil {
		return rec, fmt.Errorf("scan news item: %w", err)
	}

	rec.Title = title.String
	rec.Source = source.String
	rec.Datetime = datetime.String
	rec.Category = category.String
	rec.Sentiment = sentiment.String
	rec.Toxicity = toxicity.Float64
	rec.RiskPoint = int(riskPoint.Int64)
	rec.Keywords = []string{}
	rec.Entities = []analysis.Entity{}
	rec.RuleHits = []string{}

	if err := decodeJSONColumn(keywords, &rec.Keywords); err != nil {
		return rec, fmt.Errorf("decode keywords of item %d: %w", rec.ID, err)
	}
	if err := decodeJSONColumn(entities, &rec.Entities); err != nil {
		return rec, fmt.Errorf("decode entities of item %d: %w", rec.ID, err)
	}
	if err := decodeJSONColumn(hits, &rec.RuleHits); err != nil {
		return rec, fmt.Errorf("decode rule hits of item %d: %w", rec.ID, err)
	}
	if created.Valid {
		t, err := time.Parse(timeLayout, created.String)
		if err != nil {
			return rec, fmt.Errorf("parse created_at of item %d: %w", rec.ID, err)
		}
		rec.CreatedAt = t
	}
	return rec, nil
}

// SaveSubscriberEmail stores email if new and reports whether it was created.
func (s *SQLStore) SaveSubscriberEmail(ctx context.Context, email string) (bool, error) {
	query, args, err := s.builder.
		Insert("user_emails").
		Columns("email").
		Values(email).
		Suffix("ON CONFLICT (email) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: insert email: %w", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SaveStar records that email starred newsID, creating the subscriber if needed.
func (s *SQLStore) SaveStar(ctx context.Context, email string, newsID int64) error {
	if _, err := s.SaveSubscriberEmail(ctx, email); err != nil {
		return err
	}

	query, args, err := s.builder.Select("id").From("user_emails").Where(sq.Eq{"email": email}).ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}
	var emailID int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&emailID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("subscriber %q vanished", email)
		}
		return fmt.Errorf("%w: lookup email: %w", ErrUnavailable, err)
	}

	query, args, err = s.builder.
		Insert("user_stars").
		Columns("email_id", "news_id", "starred_at").
		Values(emailID, newsID, time.Now().UTC().Format(timeLayout)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: insert star: %w", ErrUnavailable, err)
	}
	return nil
}

// Stats counts stored items per category for the given day.
func (s *SQLStore) Stats(ctx context.Context, day time.Time) (map[string]int, error) {
	query, args, err := s.builder.
		Select("category", "COUNT(*)").
		From("news_items").
		Where(sq.GtOrEq{"created_at": day.UTC().Format(dayLayout)}).
		Where(sq.Lt{"created_at": day.UTC().AddDate(0, 0, 1).Format(dayLayout)}).
		GroupBy("category").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: stats: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	stats := map[string]int{}
	for rows.Next() {
		var category sql.NullString
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats["category_"+category.String] = count
		stats["total_items"] += count
	}
	return stats, rows.Err()
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func decodeJSONColumn(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilEntities(e []analysis.Entity) []analysis.Entity {
	if e == nil {
		return []analysis.Entity{}
	}
	return e
}
