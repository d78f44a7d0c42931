// Package store persists pipeline results in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/declutter-ai/declutter/pkg/detect"
)

// Store manages the PostgreSQL connection for pipeline records.
type Store struct {
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the tables if they don't exist.
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS photos (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			size BIGINT NOT NULL DEFAULT 0,
			user_id TEXT NOT NULL DEFAULT 'anonymous',
			processed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS cropped (
			id TEXT PRIMARY KEY,
			photo_id TEXT REFERENCES photos(id),
			object_name TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			x_min INT NOT NULL,
			y_min INT NOT NULL,
			x_max INT NOT NULL,
			y_max INT NOT NULL,
			cropped_image_url TEXT NOT NULL DEFAULT '',
			estimated_value DOUBLE PRECISION,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS listings (
			id TEXT PRIMARY KEY,
			photo_id TEXT REFERENCES photos(id),
			cropped_id TEXT REFERENCES cropped(id),
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			platforms TEXT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'draft',
			user_id TEXT NOT NULL DEFAULT 'anonymous',
			posted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS cropped_photo_id_idx ON cropped (photo_id);
		CREATE INDEX IF NOT EXISTS listings_cropped_id_idx ON listings (cropped_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// SavePhoto registers a capture and returns its generated id.
func (s *Store) SavePhoto(ctx context.Context, filename, url string, size int64) (string, error) {
	id := uuid.NewString()
	_, err := s.conn.Exec(ctx, `
		INSERT INTO photos (id, filename, url, size)
		VALUES ($1, $2, $3, $4)
	`, id, filename, url, size)
	if err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}
	return id, nil
}

// MarkPhotoProcessed flags a photo once its objects have been extracted.
func (s *Store) MarkPhotoProcessed(ctx context.Context, photoID string) error {
	_, err := s.conn.Exec(ctx, "UPDATE photos SET processed = TRUE WHERE id = $1", photoID)
	return err
}

// SaveCroppedObject records one extracted object and returns its generated id.
func (s *Store) SaveCroppedObject(ctx context.Context, photoID, label string, confidence float64, box detect.Box, cropURL string) (string, error) {
	id := uuid.NewString()
	_, err := s.conn.Exec(ctx, `
		INSERT INTO cropped (id, photo_id, object_name, confidence, x_min, y_min, x_max, y_max, cropped_image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, photoID, label, confidence, box.XMin, box.YMin, box.XMax, box.YMax, cropURL)
	if err != nil {
		return "", fmt.Errorf("failed to save cropped object: %w", err)
	}
	return id, nil
}

// SetEstimatedValue updates a cropped object's price estimate once pricing has run.
func (s *Store) SetEstimatedValue(ctx context.Context, croppedID string, value float64) error {
	_, err := s.conn.Exec(ctx, "UPDATE cropped SET estimated_value = $1 WHERE id = $2", value, croppedID)
	return err
}

// SaveListing records a drafted or posted listing and returns its generated id.
// Platforms holds only the platforms the listing actually reached.
func (s *Store) SaveListing(ctx context.Context, photoID, croppedID, title, description string, price float64, platforms []string, posted bool) (string, error) {
	id := uuid.NewString()
	status := "draft"
	var postedAt *time.Time
	if posted {
		status = "posted"
		now := time.Now()
		postedAt = &now
	}
	if platforms == nil {
		platforms = []string{}
	}

	_, err := s.conn.Exec(ctx, `
		INSERT INTO listings (id, photo_id, cropped_id, title, description, price, platforms, status, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, photoID, croppedID, title, description, price, platforms, status, postedAt)
	if err != nil {
		return "", fmt.Errorf("failed to save listing: %w", err)
	}
	return id, nil
}
