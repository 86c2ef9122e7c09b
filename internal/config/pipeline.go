package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceSpec names one gather source and the artifact file it produces,
// relative to the resources directory.
type SourceSpec struct {
	Key      string `yaml:"key"`
	Artifact string `yaml:"artifact"`
}

// Pipeline describes the deployment's gather sources, build platforms and
// the per-stage artifact filenames.
type Pipeline struct {
	Sources          []SourceSpec `yaml:"sources"`
	Platforms        []string     `yaml:"platforms"`
	FetchArtifact    string       `yaml:"fetch_artifact"`
	BulletinArtifact string       `yaml:"bulletin_artifact"`
	EnrichArtifact   string       `yaml:"enrich_artifact"`
}

// DefaultPipeline returns the standard SOFA deployment layout. Source order
// matters: it is the order gather processes sources and the order of
// changes_detected.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		Sources: []SourceSpec{
			{Key: "kev", Artifact: "kev_catalog.json"},
			{Key: "gdmf", Artifact: "gdmf_cached.json"},
			{Key: "ipsw", Artifact: "ipsw.json"},
			{Key: "beta", Artifact: "beta_feed.json"},
			{Key: "uma", Artifact: "uma_catalog.json"},
			{Key: "xprotect", Artifact: "xprotect.json"},
		},
		Platforms:        []string{"macos", "ios", "tvos", "watchos", "visionos", "safari"},
		FetchArtifact:    "apple_security_releases.json",
		BulletinArtifact: "bulletin_data.json",
		EnrichArtifact:   "cve_details.json",
	}
}

// LoadPipeline reads a pipeline.yaml from path, falling back to the default
// layout when path is empty. Fields absent from the file keep their defaults.
func LoadPipeline(path string) (*Pipeline, error) {
	pipeline := DefaultPipeline()
	if path == "" {
		return pipeline, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline config %s: %w", path, err)
	}

	var overrides Pipeline
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config %s: %w", path, err)
	}

	if len(overrides.Sources) > 0 {
		pipeline.Sources = overrides.Sources
	}
	if len(overrides.Platforms) > 0 {
		pipeline.Platforms = overrides.Platforms
	}
	if overrides.FetchArtifact != "" {
		pipeline.FetchArtifact = overrides.FetchArtifact
	}
	if overrides.BulletinArtifact != "" {
		pipeline.BulletinArtifact = overrides.BulletinArtifact
	}
	if overrides.EnrichArtifact != "" {
		pipeline.EnrichArtifact = overrides.EnrichArtifact
	}

	return pipeline, nil
}

// Validate checks the pipeline layout for duplicate or empty keys.
func (p *Pipeline) Validate() error {
	if len(p.Sources) == 0 {
		return fmt.Errorf("pipeline config must declare at least one gather source")
	}
	if len(p.Platforms) == 0 {
		return fmt.Errorf("pipeline config must declare at least one platform")
	}

	seen := make(map[string]bool, len(p.Sources))
	for _, src := range p.Sources {
		if src.Key == "" {
			return fmt.Errorf("pipeline config has a source with an empty key")
		}
		if src.Artifact == "" {
			return fmt.Errorf("source %q has no artifact filename", src.Key)
		}
		if seen[src.Key] {
			return fmt.Errorf("duplicate gather source %q", src.Key)
		}
		seen[src.Key] = true
	}

	return nil
}
