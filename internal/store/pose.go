package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/asana/internal/detector"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Pose is a pose definition in the challenge library.
type Pose struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	ImagePath            string    `json:"image_path"`
	Points               int       `json:"points"`
	DifficultyMultiplier float64   `json:"difficulty_multiplier"`
	Position             int       `json:"position"`
	Samples              int       `json:"samples"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Landmark is one stored reference landmark.
type Landmark struct {
	Index int
	X     float64
	Y     float64
	Z     float64
}

// PoseRepository provides CRUD operations for poses.
type PoseRepository struct {
	db *sql.DB
}

// Poses returns the pose repository for this store.
func (s *Store) Poses() *PoseRepository {
	return &PoseRepository{db: s.db}
}

const poseColumns = `id, name, image_path, points, difficulty_multiplier, position, samples, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPose(row scanner) (*Pose, error) {
	p := &Pose{}
	err := row.Scan(&p.ID, &p.Name, &p.ImagePath, &p.Points, &p.DifficultyMultiplier,
		&p.Position, &p.Samples, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new pose.
func (r *PoseRepository) Create(p *Pose) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO poses (`+poseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.ImagePath, p.Points, p.DifficultyMultiplier,
		p.Position, p.Samples, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a pose by its ID.
func (r *PoseRepository) GetByID(id string) (*Pose, error) {
	p, err := scanPose(r.db.QueryRow(`SELECT `+poseColumns+` FROM poses WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetByName retrieves a pose by its name.
func (r *PoseRepository) GetByName(name string) (*Pose, error) {
	p, err := scanPose(r.db.QueryRow(`SELECT `+poseColumns+` FROM poses WHERE name = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List retrieves all poses in sequence order.
func (r *PoseRepository) List() ([]*Pose, error) {
	rows, err := r.db.Query(`SELECT ` + poseColumns + ` FROM poses ORDER BY position, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var poses []*Pose
	for rows.Next() {
		p, err := scanPose(rows)
		if err != nil {
			return nil, err
		}
		poses = append(poses, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return poses, nil
}

// Count returns the number of poses.
func (r *PoseRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM poses`).Scan(&n)
	return n, err
}

// NextPosition returns the position after the last pose.
func (r *PoseRepository) NextPosition() (int, error) {
	var pos sql.NullInt64
	if err := r.db.QueryRow(`SELECT MAX(position) FROM poses`).Scan(&pos); err != nil {
		return 0, err
	}
	if !pos.Valid {
		return 0, nil
	}
	return int(pos.Int64) + 1, nil
}

// Update updates an existing pose.
func (r *PoseRepository) Update(p *Pose) error {
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE poses SET name = ?, image_path = ?, points = ?, difficulty_multiplier = ?,
		 position = ?, samples = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.ImagePath, p.Points, p.DifficultyMultiplier, p.Position, p.Samples, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

// Delete removes a pose and, by cascade, its landmarks and samples.
func (r *PoseRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM poses WHERE id = ?`, id)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

// SetLandmarks replaces the reference landmarks of a pose.
func (r *PoseRepository) SetLandmarks(poseID string, landmarks []Landmark) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceLandmarks(tx, poseID, landmarks); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceLandmarks(tx *sql.Tx, poseID string, landmarks []Landmark) error {
	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM poses WHERE id = ?`, poseID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM pose_landmarks WHERE pose_id = ?`, poseID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO pose_landmarks (pose_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range landmarks {
		if _, err := stmt.Exec(poseID, l.Index, l.X, l.Y, l.Z); err != nil {
			return err
		}
	}

	_, err = tx.Exec(`UPDATE poses SET updated_at = ? WHERE id = ?`, time.Now(), poseID)
	return err
}

// GetLandmarks returns the reference landmarks of a pose ordered by index.
// A pose without landmarks yields an empty slice.
func (r *PoseRepository) GetLandmarks(poseID string) ([]Landmark, error) {
	rows, err := r.db.Query(
		`SELECT landmark_index, x, y, z FROM pose_landmarks
		 WHERE pose_id = ? ORDER BY landmark_index`,
		poseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var landmarks []Landmark
	for rows.Next() {
		var l Landmark
		if err := rows.Scan(&l.Index, &l.X, &l.Y, &l.Z); err != nil {
			return nil, err
		}
		landmarks = append(landmarks, l)
	}

	return landmarks, rows.Err()
}

// SeedDefaults inserts defaults when the pose table is empty and reports how
// many poses were created. Positions follow slice order.
func (r *PoseRepository) SeedDefaults(defaults []Pose) (int, error) {
	n, err := r.Count()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	for i := range defaults {
		p := defaults[i]
		p.Position = i
		if err := r.Create(&p); err != nil {
			return i, err
		}
	}
	return len(defaults), nil
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// LandmarksFromPose converts a detected pose into storable landmarks.
func LandmarksFromPose(p *detector.Pose) []Landmark {
	if p == nil {
		return nil
	}
	landmarks := make([]Landmark, len(p.Points))
	for i, pt := range p.Points {
		landmarks[i] = Landmark{Index: i, X: pt.X, Y: pt.Y, Z: pt.Z}
	}
	return landmarks
}

// PoseFromLandmarks rebuilds a reference pose. It returns nil for no
// landmarks.
func PoseFromLandmarks(landmarks []Landmark) *detector.Pose {
	if len(landmarks) == 0 {
		return nil
	}
	n := 0
	for _, l := range landmarks {
		n = max(n, l.Index+1)
	}
	points := make([]detector.Point3D, n)
	for _, l := range landmarks {
		if l.Index >= 0 {
			points[l.Index] = detector.Point3D{X: l.X, Y: l.Y, Z: l.Z}
		}
	}
	return &detector.Pose{Points: points, Score: 1}
}
