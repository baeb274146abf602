package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cbodonnell/statexfer/pkg/repositories/models"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, path string, migrations string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, migrations, func(ctx context.Context, migration string) error {
		_, err := db.ExecContext(ctx, migration)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

// runMigrations executes every file of the migrations directory in name order.
func runMigrations(ctx context.Context, migrations string, exec func(ctx context.Context, migration string) error) error {
	dir, err := os.ReadDir(migrations)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %v", err)
	}

	for _, entry := range dir {
		if entry.IsDir() {
			continue
		}

		migrationPath := filepath.Join(migrations, entry.Name())
		migration, err := os.ReadFile(migrationPath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %v", migrationPath, err)
		}

		if err := exec(ctx, string(migration)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %v", migrationPath, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) SaveCapture(ctx context.Context, capture *models.Capture) error {
	id, err := ensureID(capture.ID)
	if err != nil {
		return err
	}

	q := `
	INSERT OR REPLACE INTO captures (capture_id, source, received_at, size, crc, objects, mismatches, data)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err = r.db.ExecContext(ctx, q, id, capture.Source, capture.ReceivedAt, capture.Size,
		capture.CRC, capture.Objects, capture.Mismatches, compress(capture.Data))
	if err != nil {
		return fmt.Errorf("failed to insert capture: %v", err)
	}

	capture.ID = id
	return nil
}

func (r *SQLiteRepository) LoadCapture(ctx context.Context, id string) (*models.Capture, error) {
	q := `
	SELECT capture_id, source, received_at, size, crc, objects, mismatches, data
	FROM captures WHERE capture_id = ?;
	`
	capture := &models.Capture{}
	var data []byte
	err := r.db.QueryRowContext(ctx, q, id).Scan(&capture.ID, &capture.Source, &capture.ReceivedAt,
		&capture.Size, &capture.CRC, &capture.Objects, &capture.Mismatches, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ErrNotFound{Kind: "capture", ID: id}
		}
		return nil, fmt.Errorf("failed to scan capture: %v", err)
	}

	capture.Data, err = decompress(data)
	if err != nil {
		return nil, err
	}
	return capture, nil
}

func (r *SQLiteRepository) ListCaptures(ctx context.Context, limit int) ([]*models.Capture, error) {
	q := `
	SELECT capture_id, source, received_at, size, crc, objects, mismatches
	FROM captures ORDER BY received_at DESC, rowid DESC LIMIT ?;
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %v", err)
	}
	defer rows.Close()

	captures := []*models.Capture{}
	for rows.Next() {
		capture := &models.Capture{}
		if err := rows.Scan(&capture.ID, &capture.Source, &capture.ReceivedAt, &capture.Size,
			&capture.CRC, &capture.Objects, &capture.Mismatches); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %v", err)
		}
		captures = append(captures, capture)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate captures: %v", err)
	}

	return captures, nil
}

func (r *SQLiteRepository) SaveCRCFrame(ctx context.Context, frame *models.CRCFrame) error {
	q := `
	INSERT OR REPLACE INTO crc_frames (session, frame, crc, log)
	VALUES (?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q, frame.Session, frame.Frame, frame.CRC, compress(frame.Log))
	if err != nil {
		return fmt.Errorf("failed to insert crc frame: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) ListCRCFrames(ctx context.Context, session string) ([]*models.CRCFrame, error) {
	q := `
	SELECT session, frame, crc, log FROM crc_frames WHERE session = ? ORDER BY frame;
	`
	rows, err := r.db.QueryContext(ctx, q, session)
	if err != nil {
		return nil, fmt.Errorf("failed to query crc frames: %v", err)
	}
	defer rows.Close()

	frames := []*models.CRCFrame{}
	for rows.Next() {
		frame := &models.CRCFrame{}
		var log []byte
		if err := rows.Scan(&frame.Session, &frame.Frame, &frame.CRC, &log); err != nil {
			return nil, fmt.Errorf("failed to scan crc frame: %v", err)
		}
		if frame.Log, err = decompress(log); err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate crc frames: %v", err)
	}

	return frames, nil
}
