package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/posebeat/internal/pose"
)

// Calibration is a stored resting pose.
type Calibration struct {
	ID        string
	Name      string
	Baseline  *pose.Baseline
	Active    bool
	CreatedAt time.Time
}

// CalibrationRepository provides CRUD operations for calibration profiles.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

const calibrationColumns = `id, name, baseline, active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalibration(row rowScanner) (*Calibration, error) {
	c := &Calibration{}
	var baseline string
	var active int

	if err := row.Scan(&c.ID, &c.Name, &baseline, &active, &c.CreatedAt); err != nil {
		return nil, err
	}

	c.Baseline = &pose.Baseline{}
	if err := json.Unmarshal([]byte(baseline), c.Baseline); err != nil {
		return nil, fmt.Errorf("decode baseline %s: %w", c.ID, err)
	}
	c.Active = active != 0
	return c, nil
}

// Create inserts a new calibration profile. An empty ID is generated.
// New profiles are inactive until SetActive is called.
func (r *CalibrationRepository) Create(c *Calibration) error {
	if c.Baseline == nil {
		return errors.New("calibration has no baseline")
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()
	c.Active = false

	data, err := json.Marshal(c.Baseline)
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO calibration_profiles (id, name, baseline, active, created_at)
		 VALUES (?, ?, ?, 0, ?)`,
		c.ID, c.Name, string(data), c.CreatedAt,
	)
	return err
}

// GetByID retrieves a calibration profile by its ID.
func (r *CalibrationRepository) GetByID(id string) (*Calibration, error) {
	c, err := scanCalibration(r.db.QueryRow(
		`SELECT `+calibrationColumns+` FROM calibration_profiles WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Active retrieves the active calibration profile.
func (r *CalibrationRepository) Active() (*Calibration, error) {
	c, err := scanCalibration(r.db.QueryRow(
		`SELECT ` + calibrationColumns + ` FROM calibration_profiles WHERE active = 1 LIMIT 1`,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List retrieves all calibration profiles, newest first.
func (r *CalibrationRepository) List() ([]*Calibration, error) {
	rows, err := r.db.Query(
		`SELECT ` + calibrationColumns + ` FROM calibration_profiles ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Calibration
	for rows.Next() {
		c, err := scanCalibration(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// SetActive marks one profile active and every other profile inactive.
func (r *CalibrationRepository) SetActive(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE calibration_profiles SET active = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`UPDATE calibration_profiles SET active = 0 WHERE id != ?`, id); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a calibration profile by its ID.
func (r *CalibrationRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM calibration_profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
