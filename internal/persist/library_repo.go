package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/l1jgo/draftsman/internal/blueprint"
	"github.com/l1jgo/draftsman/internal/exchange"
)

// BlueprintRow is one stored exchange string plus the columns derived from it.
type BlueprintRow struct {
	ID          uuid.UUID
	Digest      []byte // blake2b-256 of the exchange string
	Fingerprint uint64 // exchange.Fingerprint of the decoded document
	Label       string
	Description string
	EntityCount int
	TileCount   int
	Version     uint64
	Exchange    string
	CreatedAt   time.Time
}

// Digest hashes an exchange string, ignoring surrounding whitespace.
func Digest(s string) []byte {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(s)))
	return sum[:]
}

// NewRow derives a row from a decoded document and the string it came from.
func NewRow(doc *blueprint.Document, s string) (*BlueprintRow, error) {
	fp, err := exchange.Fingerprint(doc)
	if err != nil {
		return nil, err
	}
	return &BlueprintRow{
		Digest:      Digest(s),
		Fingerprint: fp,
		Label:       doc.Label(),
		Description: doc.Description(),
		EntityCount: doc.EntityCount(),
		TileCount:   doc.TileCount(),
		Version:     doc.Version.Pack(),
		Exchange:    strings.TrimSpace(s),
	}, nil
}

type LibraryRepo struct {
	db *DB
}

func NewLibraryRepo(db *DB) *LibraryRepo {
	return &LibraryRepo{db: db}
}

const blueprintColumns = `id, digest, fingerprint, label, description, entity_count, tile_count, version, exchange, created_at`

func scanBlueprint(row pgx.Row) (*BlueprintRow, error) {
	var (
		b       BlueprintRow
		fp, ver int64
	)
	err := row.Scan(&b.ID, &b.Digest, &fp, &b.Label, &b.Description,
		&b.EntityCount, &b.TileCount, &ver, &b.Exchange, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.Fingerprint, b.Version = uint64(fp), uint64(ver)
	return &b, nil
}

// Save stores row unless an identical exchange string is already present.
// It returns the id of the stored row and whether it was newly inserted.
// Concurrent saves of the same string settle on one row.
func (r *LibraryRepo) Save(ctx context.Context, row *BlueprintRow) (uuid.UUID, bool, error) {
	if len(row.Digest) == 0 {
		row.Digest = Digest(row.Exchange)
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("library begin: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO blueprints (id, digest, fingerprint, label, description, entity_count, tile_count, version, exchange)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (digest) DO NOTHING
		 RETURNING created_at`,
		id, row.Digest, int64(row.Fingerprint), row.Label, row.Description,
		row.EntityCount, row.TileCount, int64(row.Version), row.Exchange,
	).Scan(&row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var existing uuid.UUID
		if err := tx.QueryRow(ctx,
			`SELECT id FROM blueprints WHERE digest = $1`, row.Digest,
		).Scan(&existing); err != nil {
			return uuid.Nil, false, fmt.Errorf("library lookup: %w", err)
		}
		row.ID = existing
		return existing, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("library insert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, false, fmt.Errorf("library commit: %w", err)
	}
	row.ID = id
	r.db.log.Debug("blueprint saved",
		zap.Stringer("id", id), zap.String("label", row.Label), zap.Int("entities", row.EntityCount))
	return id, true, nil
}

// Load returns the row with the given id, or nil when there is none.
func (r *LibraryRepo) Load(ctx context.Context, id uuid.UUID) (*BlueprintRow, error) {
	b, err := scanBlueprint(r.db.Pool.QueryRow(ctx,
		`SELECT `+blueprintColumns+` FROM blueprints WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *LibraryRepo) FindByLabel(ctx context.Context, label string) ([]BlueprintRow, error) {
	return r.query(ctx,
		`SELECT `+blueprintColumns+` FROM blueprints WHERE label = $1 ORDER BY created_at, id`, label)
}

// FindByFingerprint returns rows whose documents have the same content,
// whatever their labels or compression.
func (r *LibraryRepo) FindByFingerprint(ctx context.Context, fp uint64) ([]BlueprintRow, error) {
	return r.query(ctx,
		`SELECT `+blueprintColumns+` FROM blueprints WHERE fingerprint = $1 ORDER BY created_at, id`, int64(fp))
}

// List returns the most recently saved rows first. limit <= 0 lists everything.
func (r *LibraryRepo) List(ctx context.Context, limit int) ([]BlueprintRow, error) {
	if limit <= 0 {
		return r.query(ctx, `SELECT `+blueprintColumns+` FROM blueprints ORDER BY created_at DESC, id`)
	}
	return r.query(ctx,
		`SELECT `+blueprintColumns+` FROM blueprints ORDER BY created_at DESC, id LIMIT $1`, limit)
}

func (r *LibraryRepo) query(ctx context.Context, sql string, args ...any) ([]BlueprintRow, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BlueprintRow
	for rows.Next() {
		b, err := scanBlueprint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

// Delete reports whether a row was removed.
func (r *LibraryRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM blueprints WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
