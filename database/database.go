package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"safaisetu/common"
	"safaisetu/config"
	"safaisetu/evidence"
	"safaisetu/models"

	"github.com/apex/log"
	"github.com/google/uuid"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrImageNotFound  = errors.New("image not found")
	// ErrStaleReport means the report changed status since it was read.
	ErrStaleReport = errors.New("report status changed concurrently")
)

// Database handles all database operations
type Database struct {
	db    *sql.DB
	newID func() string
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.Config) (*Database, error) {
	db, err := common.DBConnect(common.DBOptions{
		Host:               cfg.DBHost,
		Port:               cfg.DBPort,
		User:               cfg.DBUser,
		Password:           cfg.DBPassword,
		Name:               cfg.DBName,
		MaxOpenConns:       cfg.DBMaxOpenConns,
		MaxIdleConns:       cfg.DBMaxIdleConns,
		ConnMaxLifetimeMin: cfg.DBConnMaxLifetimeMin,
		PingMaxWaitSec:     cfg.DBPingMaxWaitSec,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Infof("Database connected successfully to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	return New(db), nil
}

// New wraps an open connection pool.
func New(db *sql.DB) *Database {
	return &Database{db: db, newID: uuid.NewString}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping checks the connection
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// NewID returns a fresh report id
func (d *Database) NewID() string {
	return d.newID()
}

// EnsureTables creates the reports and report_images tables if they don't exist
func (d *Database) EnsureTables(ctx context.Context) error {
	reports := `
		CREATE TABLE IF NOT EXISTS reports (
			id VARCHAR(64) NOT NULL,
			heading VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			address VARCHAR(512) NOT NULL DEFAULT '',
			latitude DOUBLE NULL,
			longitude DOUBLE NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'Pending',
			evidence_image_ref VARCHAR(64) NOT NULL,
			resolution_image_ref VARCHAR(64) NULL,
			created_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			updated_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
			PRIMARY KEY (id),
			INDEX status_index (status),
			INDEX created_at_index (created_at)
		)
	`
	if _, err := d.db.ExecContext(ctx, reports); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}
	log.Info("Reports table ensured")

	images := `
		CREATE TABLE IF NOT EXISTS report_images (
			ref VARCHAR(64) NOT NULL,
			slot ENUM('evidence', 'resolution') NOT NULL,
			data LONGBLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (ref)
		)
	`
	if _, err := d.db.ExecContext(ctx, images); err != nil {
		return fmt.Errorf("failed to create report_images table: %w", err)
	}
	log.Info("Report images table ensured")
	return nil
}

const reportColumns = "id, heading, description, address, latitude, longitude, status, evidence_image_ref, resolution_image_ref, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (models.Report, error) {
	var (
		r          models.Report
		status     string
		evidence   string
		lat, lon   sql.NullFloat64
		resolution sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Heading, &r.Description, &r.Address, &lat, &lon, &status, &evidence, &resolution, &r.CreatedAt); err != nil {
		return models.Report{}, err
	}
	if lat.Valid && lon.Valid {
		r.Latitude = &lat.Float64
		r.Longitude = &lon.Float64
	}
	r.Status = models.Status(status)
	r.EvidenceImageRef = models.ImageRef(evidence)
	if resolution.Valid {
		r.ResolutionImageRef = models.ImageRef(resolution.String)
	}
	return r, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullRef(ref models.ImageRef) sql.NullString {
	return sql.NullString{String: string(ref), Valid: ref != ""}
}

// CreateReport stores a newly constructed report
func (d *Database) CreateReport(ctx context.Context, r models.Report) (models.Report, error) {
	result, err := d.db.ExecContext(ctx,
		"INSERT INTO reports ("+reportColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.Heading, r.Description, r.Address,
		nullFloat(r.Latitude), nullFloat(r.Longitude),
		string(r.Status), string(r.EvidenceImageRef), nullRef(r.ResolutionImageRef), r.CreatedAt)
	common.LogResult("CreateReport", result, err, true)
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to insert report %s: %w", r.ID, err)
	}
	return r, nil
}

// ListReports returns all reports, newest first
func (d *Database) ListReports(ctx context.Context) ([]models.Report, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT "+reportColumns+" FROM reports ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

// GetReport returns the stored version of a report
func (d *Database) GetReport(ctx context.Context, id string) (models.Report, error) {
	row := d.db.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM reports WHERE id = ?", id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to get report %s: %w", id, err)
	}
	return r, nil
}

// PersistTransition stores the status and resolution reference of r,
// provided the stored status is still from. Otherwise it returns
// ErrStaleReport, or ErrReportNotFound if the report is gone.
func (d *Database) PersistTransition(ctx context.Context, from models.Status, r models.Report) (models.Report, error) {
	result, err := d.db.ExecContext(ctx,
		"UPDATE reports SET status = ?, resolution_image_ref = ? WHERE id = ? AND status = ?",
		string(r.Status), nullRef(r.ResolutionImageRef), r.ID, string(from))
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to update report %s: %w", r.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to get status of report %s update: %w", r.ID, err)
	}
	if rows == 1 {
		return r, nil
	}

	var exists int
	err = d.db.QueryRowContext(ctx, "SELECT 1 FROM reports WHERE id = ?", r.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, r.ID)
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to check if report exists: %w", err)
	}
	return models.Report{}, fmt.Errorf("%w: %s is no longer %q", ErrStaleReport, r.ID, from)
}

// StoreImage saves image bytes under a new reference
func (d *Database) StoreImage(ctx context.Context, slot evidence.Slot, data []byte) (models.ImageRef, error) {
	ref := models.ImageRef(d.newID())
	result, err := d.db.ExecContext(ctx,
		"INSERT INTO report_images (ref, slot, data) VALUES (?, ?, ?)",
		string(ref), string(slot), data)
	common.LogResult("StoreImage", result, err, true)
	if err != nil {
		return "", fmt.Errorf("failed to insert %s image: %w", slot, err)
	}
	return ref, nil
}

// DeleteImage removes the image stored under ref. A missing ref is not an error.
func (d *Database) DeleteImage(ctx context.Context, ref models.ImageRef) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM report_images WHERE ref = ?", string(ref))
	common.LogResult("DeleteImage", result, err, false)
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", ref, err)
	}
	return nil
}

// FetchImage returns the image bytes stored under ref
func (d *Database) FetchImage(ctx context.Context, ref models.ImageRef) ([]byte, error) {
	var data []byte
	err := d.db.QueryRowContext(ctx, "SELECT data FROM report_images WHERE ref = ?", string(ref)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image %s: %w", ref, err)
	}
	return data, nil
}
