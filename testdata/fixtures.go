// Package testdata embeds landmark fixtures shared by package and e2e tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/ayusman/asana/internal/detector"
)

//go:embed poses/*.json
var posesFS embed.FS

// LoadSample returns the raw JSON of a landmark fixture, as a client would upload it.
func LoadSample(name string) (json.RawMessage, error) {
	data, err := posesFS.ReadFile("poses/" + name)
	if err != nil {
		return nil, fmt.Errorf("load sample %s: %w", name, err)
	}
	return json.RawMessage(data), nil
}

// LoadPose decodes a landmark fixture into a pose.
func LoadPose(name string) (*detector.Pose, error) {
	data, err := LoadSample(name)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Landmarks []detector.Point3D `json:"landmarks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode pose %s: %w", name, err)
	}
	return &detector.Pose{Points: doc.Landmarks, Score: 1}, nil
}

// LoadSamples returns every fixture whose name starts with prefix, in name order.
func LoadSamples(prefix string) ([]json.RawMessage, error) {
	entries, err := fs.ReadDir(posesFS, "poses")
	if err != nil {
		return nil, err
	}

	var samples []json.RawMessage
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		sample, err := LoadSample(entry.Name())
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}

	return samples, nil
}
