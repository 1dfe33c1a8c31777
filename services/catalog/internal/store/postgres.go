package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/app-catalog/services/catalog/internal/rating"
)

// EventReviewSubmitted is the outbox event type written with every review.
const EventReviewSubmitted = "catalog.review.submitted"

const appColumns = `id::text, slug, name, category, description, size, internet, icon_url, screenshots,
       apk_url, playstore_url, uptodown_url, mega_url, mediafire_url,
       rating_avg, rating_count, stars_1, stars_2, stars_3, stars_4, stars_5,
       likes, downloads, real_downloads, created_at`

// PostgresStore persists apps and reviews in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (App, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return App{}, ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+appColumns+` FROM apps WHERE id = $1::uuid`, id)
	return scanApp(row)
}

func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (App, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+appColumns+` FROM apps WHERE slug = $1 LIMIT 1`, slug)
	return scanApp(row)
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]App, error) {
	category := strings.TrimSpace(f.Category)
	if category == "all" {
		category = ""
	}
	pattern := ""
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern = "%" + likeEscaper.Replace(q) + "%"
	}

	rows, err := s.pool.Query(ctx, `
SELECT `+appColumns+`
FROM apps
WHERE ($1 = '' OR category = $1)
  AND ($2 = '' OR name ILIKE $2 OR description ILIKE $2)
ORDER BY rating_avg DESC, rating_count DESC, created_at DESC, id DESC`, category, pattern)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	var out []App
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, a App) (App, error) {
	id := uuid.New()
	if a.ID != "" {
		parsed, err := uuid.Parse(a.ID)
		if err != nil {
			return App{}, fmt.Errorf("create app: invalid id %q: %w", a.ID, err)
		}
		id = parsed
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	shots, _ := json.Marshal(a.Screenshots)
	h := a.Aggregate.Histogram

	_, err := s.pool.Exec(ctx, `
INSERT INTO apps (id, slug, name, category, description, size, internet, icon_url, screenshots,
                  apk_url, playstore_url, uptodown_url, mega_url, mediafire_url,
                  rating_avg, rating_count, stars_1, stars_2, stars_3, stars_4, stars_5,
                  likes, downloads, real_downloads, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$25)`,
		id, a.Slug, a.Name, a.Category, a.Description, a.Size, a.Internet, a.IconURL, shots,
		a.Links.APK, a.Links.PlayStore, a.Links.Uptodown, a.Links.Mega, a.Links.Mediafire,
		a.Aggregate.Average, a.Aggregate.Count, h[0], h[1], h[2], h[3], h[4],
		a.Likes, a.Downloads, a.RealDownloads, a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return App{}, ErrSlugTaken
		}
		return App{}, fmt.Errorf("create app: %w", err)
	}
	a.ID = id.String()
	return a, nil
}

func (s *PostgresStore) IncrementLikes(ctx context.Context, appID string) error {
	return s.increment(ctx, `UPDATE apps SET likes = likes + 1, updated_at = now() WHERE id = $1::uuid`, appID)
}

func (s *PostgresStore) IncrementDownloads(ctx context.Context, appID string) error {
	return s.increment(ctx, `UPDATE apps SET real_downloads = COALESCE(real_downloads, 0) + 1, updated_at = now() WHERE id = $1::uuid`, appID)
}

func (s *PostgresStore) increment(ctx context.Context, q, appID string) error {
	tag, err := s.pool.Exec(ctx, q, appID)
	if err != nil {
		return fmt.Errorf("increment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RepairHistogram(ctx context.Context, appID string) (rating.Aggregate, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return rating.Aggregate{}, fmt.Errorf("db begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := lockAggregate(ctx, tx, appID)
	if err != nil {
		return rating.Aggregate{}, err
	}
	if !rating.NeedsRepair(cur) {
		return cur, nil
	}
	next := rating.Repaired(cur)
	if err := writeAggregate(ctx, tx, appID, next); err != nil {
		return rating.Aggregate{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return rating.Aggregate{}, fmt.Errorf("db commit: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, appID string, limit int) ([]Review, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id::text, app_id::text, stars, comment, author_tag, created_at
FROM reviews
WHERE app_id = $1::uuid
ORDER BY created_at DESC, id DESC
LIMIT $2`, appID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := []Review{}
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.AppID, &r.Stars, &r.Comment, &r.AuthorTag, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CommitReview locks the app row, folds the review into the stored aggregate
// and writes the review, the aggregate and an outbox event in one transaction.
func (s *PostgresStore) CommitReview(ctx context.Context, appID string, r Review, apply func(rating.Aggregate) (rating.Aggregate, error)) (rating.Aggregate, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return rating.Aggregate{}, fmt.Errorf("db begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := lockAggregate(ctx, tx, appID)
	if err != nil {
		return rating.Aggregate{}, err
	}
	next, err := apply(cur)
	if err != nil {
		return rating.Aggregate{}, err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO reviews (id, app_id, stars, comment, author_tag, created_at)
VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)`,
		r.ID, appID, r.Stars, r.Comment, r.AuthorTag, r.Timestamp,
	); err != nil {
		return rating.Aggregate{}, fmt.Errorf("insert review: %w", err)
	}
	if err := writeAggregate(ctx, tx, appID, next); err != nil {
		return rating.Aggregate{}, err
	}
	if err := insertOutboxEvent(ctx, tx, EventReviewSubmitted, map[string]any{
		"app_id":    appID,
		"review_id": r.ID,
		"stars":     r.Stars,
		"average":   next.Average,
		"count":     next.Count,
	}); err != nil {
		return rating.Aggregate{}, fmt.Errorf("db outbox: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return rating.Aggregate{}, fmt.Errorf("db commit: %w", err)
	}
	return next, nil
}

// ── helpers ────────────────────────────────────────────────────────────────

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func lockAggregate(ctx context.Context, tx pgx.Tx, appID string) (rating.Aggregate, error) {
	if _, err := uuid.Parse(strings.TrimSpace(appID)); err != nil {
		return rating.Aggregate{}, ErrNotFound
	}
	var a rating.Aggregate
	h := &a.Histogram
	err := tx.QueryRow(ctx, `
SELECT rating_avg, rating_count, stars_1, stars_2, stars_3, stars_4, stars_5
FROM apps WHERE id = $1::uuid
FOR UPDATE`, appID).Scan(&a.Average, &a.Count, &h[0], &h[1], &h[2], &h[3], &h[4])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rating.Aggregate{}, ErrNotFound
		}
		return rating.Aggregate{}, fmt.Errorf("lock aggregate: %w", err)
	}
	return a, nil
}

func writeAggregate(ctx context.Context, tx pgx.Tx, appID string, a rating.Aggregate) error {
	h := a.Histogram
	_, err := tx.Exec(ctx, `
UPDATE apps
SET rating_avg=$2, rating_count=$3, stars_1=$4, stars_2=$5, stars_3=$6, stars_4=$7, stars_5=$8, updated_at=now()
WHERE id=$1::uuid`,
		appID, a.Average, a.Count, h[0], h[1], h[2], h[3], h[4])
	if err != nil {
		return fmt.Errorf("update aggregate: %w", err)
	}
	return nil
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, eventType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO catalog_outbox (id, event_type, payload) VALUES ($1,$2,$3)`,
		uuid.New(), eventType, b,
	)
	return err
}

func scanApp(row pgx.Row) (App, error) {
	var a App
	var shots []byte
	h := &a.Aggregate.Histogram
	err := row.Scan(&a.ID, &a.Slug, &a.Name, &a.Category, &a.Description, &a.Size, &a.Internet, &a.IconURL, &shots,
		&a.Links.APK, &a.Links.PlayStore, &a.Links.Uptodown, &a.Links.Mega, &a.Links.Mediafire,
		&a.Aggregate.Average, &a.Aggregate.Count, &h[0], &h[1], &h[2], &h[3], &h[4],
		&a.Likes, &a.Downloads, &a.RealDownloads, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return App{}, ErrNotFound
		}
		return App{}, fmt.Errorf("scan app: %w", err)
	}
	if err := decodeScreenshots(shots, &a.Screenshots); err != nil {
		return App{}, fmt.Errorf("scan app %s: screenshots: %w", a.Slug, err)
	}
	return a, nil
}

// decodeScreenshots reads the screenshots JSON column. NULL and empty values
// leave dst nil.
func decodeScreenshots(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
