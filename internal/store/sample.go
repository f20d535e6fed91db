package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Sample is a recorded landmark set stored for training.
type Sample struct {
	ID          int64           `json:"id"`
	PoseID      string          `json:"pose_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SampleRepository provides operations on pose samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create appends samples for a pose in a single transaction and updates the
// pose's sample count. It returns the new total.
func (r *SampleRepository) Create(poseID string, samples []json.RawMessage) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	total, err := appendSamples(tx, poseID, samples)
	if err != nil {
		return 0, err
	}
	return total, tx.Commit()
}

// CreateWithReference appends samples and replaces the pose's reference
// landmarks in one transaction, so a reference is never stored without the
// samples it was trained from. It returns the new sample total.
func (r *SampleRepository) CreateWithReference(poseID string, samples []json.RawMessage, landmarks []Landmark) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	total, err := appendSamples(tx, poseID, samples)
	if err != nil {
		return 0, err
	}
	if err := replaceLandmarks(tx, poseID, landmarks); err != nil {
		return 0, err
	}
	return total, tx.Commit()
}

func appendSamples(tx *sql.Tx, poseID string, samples []json.RawMessage) (int, error) {
	var existing int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM pose_samples WHERE pose_id = ?`, poseID).Scan(&existing); err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`INSERT INTO pose_samples (pose_id, sample_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, data := range samples {
		if _, err := stmt.Exec(poseID, existing+i, string(data)); err != nil {
			return 0, err
		}
	}

	total := existing + len(samples)
	result, err := tx.Exec(`UPDATE poses SET samples = ?, updated_at = ? WHERE id = ?`,
		total, time.Now(), poseID)
	if err != nil {
		return 0, err
	}
	if err := requireAffected(result); err != nil {
		return 0, err
	}
	return total, nil
}

// GetByPoseID retrieves all samples for a pose.
func (r *SampleRepository) GetByPoseID(poseID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, pose_id, sample_index, data, created_at
		 FROM pose_samples
		 WHERE pose_id = ?
		 ORDER BY sample_index`,
		poseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.PoseID, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DeleteByPoseID removes all samples for a pose and zeroes its count.
func (r *SampleRepository) DeleteByPoseID(poseID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pose_samples WHERE pose_id = ?`, poseID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE poses SET samples = 0, updated_at = ? WHERE id = ?`, time.Now(), poseID); err != nil {
		return err
	}
	return tx.Commit()
}
