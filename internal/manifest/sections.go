package manifest

import (
	"strings"

	"github.com/macadmins/sofa-status/internal/domain"
)

// resolveSection returns a typed pointer to the subtree addressed by path.
// Map-backed leaves (gather sources, build platforms) are not addressable in
// place, so the mutator receives a pointer to a copy and commit writes the
// copy back after the mutator returns.
func resolveSection(m *domain.Manifest, path string) (section any, commit func(), err error) {
	parts := strings.Split(path, ".")
	if len(parts) < 2 || parts[0] != "pipeline" {
		return nil, nil, invalidSection(path)
	}

	switch parts[1] {
	case domain.StageGather:
		if len(parts) == 2 {
			return &m.Pipeline.Gather, nil, nil
		}
		if len(parts) == 4 && parts[2] == "sources" {
			key := parts[3]
			src := m.Pipeline.Gather.Sources[key]
			return &src, func() { m.Pipeline.Gather.Sources[key] = src }, nil
		}
	case domain.StageFetch:
		if len(parts) == 2 {
			return &m.Pipeline.Fetch, nil, nil
		}
	case domain.StageBuild:
		if len(parts) == 2 {
			return &m.Pipeline.Build, nil, nil
		}
		if len(parts) == 5 && parts[3] == "platforms" {
			var format *domain.FormatStatus
			switch parts[2] {
			case "v1":
				format = &m.Pipeline.Build.V1
			case "v2":
				format = &m.Pipeline.Build.V2
			default:
				return nil, nil, invalidSection(path)
			}
			platform := parts[4]
			feed := format.Platforms[platform]
			return &feed, func() { format.Platforms[platform] = feed }, nil
		}
	case domain.StageBulletin:
		if len(parts) == 2 {
			return &m.Pipeline.Bulletin, nil, nil
		}
	case domain.StageEnrich:
		if len(parts) == 2 {
			return &m.Pipeline.Enrich, nil, nil
		}
	}

	return nil, nil, invalidSection(path)
}

func invalidSection(path string) error {
	return domain.NewAppError(
		domain.ErrInvalidSection,
		"section path does not address any subtree of the status document",
		400,
		map[string]any{"path": path},
	)
}
