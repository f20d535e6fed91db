package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/asana/internal/challenge"
	"github.com/ayusman/asana/internal/detector"
	"github.com/ayusman/asana/internal/log"
	"github.com/ayusman/asana/internal/store"
)

// ErrNoPoseInImage is returned when a reference image shows no body.
var ErrNoPoseInImage = errors.New("no pose found in reference image")

// defaultPoses converts the built-in sequence for seeding the store.
func defaultPoses() []store.Pose {
	seq := challenge.DefaultSequence()
	poses := make([]store.Pose, len(seq))
	for i, e := range seq {
		poses[i] = store.Pose{
			ID:                   e.ID,
			Name:                 e.Name,
			ImagePath:            e.ImagePath,
			Points:               e.Points,
			DifficultyMultiplier: e.DifficultyMultiplier,
		}
	}
	return poses
}

// LoadSequence builds the challenge sequence from the pose library, seeding
// the defaults into an empty store. Poses without stored landmarks get
// them from their reference image when one can be read; the result is
// cached in the store.
func (a *App) LoadSequence() ([]challenge.PoseEntry, error) {
	s := a.config.Store
	if s == nil {
		return challenge.DefaultSequence(), nil
	}

	seeded, err := s.Poses().SeedDefaults(defaultPoses())
	if err != nil {
		return nil, fmt.Errorf("seed poses: %w", err)
	}
	if seeded > 0 {
		log.Info("seeded default poses", "count", seeded)
	}

	poses, err := s.Poses().List()
	if err != nil {
		return nil, fmt.Errorf("list poses: %w", err)
	}

	seq := make([]challenge.PoseEntry, 0, len(poses))
	for _, p := range poses {
		landmarks, err := s.Poses().GetLandmarks(p.ID)
		if err != nil {
			return nil, fmt.Errorf("load landmarks for %s: %w", p.Name, err)
		}

		ref := store.PoseFromLandmarks(landmarks)
		if ref == nil && p.ImagePath != "" {
			ref = a.analyzeAndCache(p)
		}

		seq = append(seq, challenge.PoseEntry{
			ID:                   p.ID,
			Name:                 p.Name,
			ImagePath:            p.ImagePath,
			Points:               p.Points,
			DifficultyMultiplier: p.DifficultyMultiplier,
			Reference:            ref,
		})
	}

	log.Info("loaded pose library", "poses", len(seq))
	return seq, nil
}

// ReloadPoses pushes the current pose library into the engine.
func (a *App) ReloadPoses() error {
	seq, err := a.LoadSequence()
	if err != nil {
		return err
	}
	return a.engine.SetSequence(seq)
}

func (a *App) analyzeAndCache(p *store.Pose) *detector.Pose {
	path := a.imagePath(p.ImagePath)
	if path == "" {
		return nil
	}

	ref, err := a.AnalyzeReference(path)
	if err != nil {
		log.Warn("reference analysis failed", "pose", p.Name, "image", path, "error", err)
		return nil
	}

	if err := a.config.Store.Poses().SetLandmarks(p.ID, store.LandmarksFromPose(ref)); err != nil {
		log.Warn("cache reference landmarks failed", "pose", p.Name, "error", err)
	}
	log.Info("analyzed reference image", "pose", p.Name)
	return ref
}

// imagePath resolves a web image path such as "/tree-pose.jpg" against
// ImageDir.
func (a *App) imagePath(p string) string {
	if a.config.ImageDir == "" {
		return ""
	}
	return filepath.Join(a.config.ImageDir, filepath.FromSlash(strings.TrimPrefix(p, "/")))
}

// AnalyzeReference runs the detector once over a reference image and
// returns the first detected pose.
func (a *App) AnalyzeReference(path string) (*detector.Pose, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("read image %s: empty or unreadable", path)
	}
	defer img.Close()

	poses, err := a.detector.Detect(&img)
	if err != nil {
		return nil, fmt.Errorf("detect reference pose: %w", err)
	}
	if len(poses) == 0 {
		return nil, ErrNoPoseInImage
	}

	ref := poses[0].Clone()
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("reference pose: %w", err)
	}
	return ref, nil
}
