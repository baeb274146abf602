package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/repositories/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the database at connStr and applies the
// migrations directory. The caller is responsible for calling Close() on
// the repository.
func NewPostgresRepository(ctx context.Context, connStr string, migrations string) (Repository, error) {
	pool, err := connectDb(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(ctx, migrations, func(ctx context.Context, migration string) error {
		_, err := pool.Exec(ctx, migration)
		return err
	}); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

func connectDb(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	var username string
	var database string
	err = pool.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to query database: %v", err)
	}

	log.Info("Connected to %s as %s", database, username)

	return pool, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) SaveCapture(ctx context.Context, capture *models.Capture) error {
	id, err := ensureID(capture.ID)
	if err != nil {
		return err
	}

	q := `
	INSERT INTO captures (capture_id, source, received_at, size, crc, objects, mismatches, data)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (capture_id) DO UPDATE SET source = $2, received_at = $3, size = $4, crc = $5,
		objects = $6, mismatches = $7, data = $8;
	`
	_, err = r.pool.Exec(ctx, q, id, capture.Source, capture.ReceivedAt, capture.Size,
		int64(capture.CRC), capture.Objects, capture.Mismatches, compress(capture.Data))
	if err != nil {
		return fmt.Errorf("failed to insert capture: %v", err)
	}

	capture.ID = id
	return nil
}

func (r *PostgresRepository) LoadCapture(ctx context.Context, id string) (*models.Capture, error) {
	q := `
	SELECT capture_id::text, source, received_at, size, crc, objects, mismatches, data
	FROM captures WHERE capture_id = $1;
	`
	capture := &models.Capture{}
	var crc int64
	var data []byte
	err := r.pool.QueryRow(ctx, q, id).Scan(&capture.ID, &capture.Source, &capture.ReceivedAt,
		&capture.Size, &crc, &capture.Objects, &capture.Mismatches, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{Kind: "capture", ID: id}
		}
		return nil, fmt.Errorf("failed to scan capture: %v", err)
	}
	capture.CRC = uint32(crc)

	capture.Data, err = decompress(data)
	if err != nil {
		return nil, err
	}
	return capture, nil
}

func (r *PostgresRepository) ListCaptures(ctx context.Context, limit int) ([]*models.Capture, error) {
	q := `
	SELECT capture_id::text, source, received_at, size, crc, objects, mismatches
	FROM captures ORDER BY received_at DESC LIMIT $1;
	`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %v", err)
	}
	defer rows.Close()

	captures := []*models.Capture{}
	for rows.Next() {
		capture := &models.Capture{}
		var crc int64
		if err := rows.Scan(&capture.ID, &capture.Source, &capture.ReceivedAt, &capture.Size,
			&crc, &capture.Objects, &capture.Mismatches); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %v", err)
		}
		capture.CRC = uint32(crc)
		captures = append(captures, capture)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate captures: %v", err)
	}

	return captures, nil
}

func (r *PostgresRepository) SaveCRCFrame(ctx context.Context, frame *models.CRCFrame) error {
	q := `
	INSERT INTO crc_frames (session, frame, crc, log) VALUES ($1, $2, $3, $4)
	ON CONFLICT (session, frame) DO UPDATE SET crc = $3, log = $4;
	`
	_, err := r.pool.Exec(ctx, q, frame.Session, int32(frame.Frame), int64(frame.CRC), compress(frame.Log))
	if err != nil {
		return fmt.Errorf("failed to insert crc frame: %v", err)
	}

	return nil
}

func (r *PostgresRepository) ListCRCFrames(ctx context.Context, session string) ([]*models.CRCFrame, error) {
	q := `
	SELECT session, frame, crc, log FROM crc_frames WHERE session = $1 ORDER BY frame;
	`
	rows, err := r.pool.Query(ctx, q, session)
	if err != nil {
		return nil, fmt.Errorf("failed to query crc frames: %v", err)
	}
	defer rows.Close()

	frames := []*models.CRCFrame{}
	for rows.Next() {
		frame := &models.CRCFrame{}
		var number int32
		var crc int64
		var data []byte
		if err := rows.Scan(&frame.Session, &number, &crc, &data); err != nil {
			return nil, fmt.Errorf("failed to scan crc frame: %v", err)
		}
		frame.Frame = uint32(number)
		frame.CRC = uint32(crc)
		if frame.Log, err = decompress(data); err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate crc frames: %v", err)
	}

	return frames, nil
}
