package domain

import "strings"

// QualityPreference holds the labels used to pick one source out of a resolved StreamData
type QualityPreference struct {
	Default string
	Backup  string
	Auto    string
}

// DefaultQualityPreference returns the labels used by the known providers
func DefaultQualityPreference() QualityPreference {
	return QualityPreference{
		Default: "default",
		Backup:  "backup",
		Auto:    "auto",
	}
}

// Select picks a source using a fixed order: the default label, then the backup label, then auto, then the first
// source in the list.  Labels are compared case-insensitively.  The bool is false only when there are no sources.
func (p QualityPreference) Select(sources []StreamSource) (StreamSource, bool) {
	if len(sources) == 0 {
		return StreamSource{}, false
	}

	for _, label := range []string{p.Default, p.Backup, p.Auto} {
		if label == "" {
			continue
		}
		for _, src := range sources {
			if strings.EqualFold(strings.TrimSpace(src.Quality), label) {
				return src, true
			}
		}
	}

	return sources[0], true
}
