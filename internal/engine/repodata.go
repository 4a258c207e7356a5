package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// PackageRecord is one indexed package file of a channel subdir.
type PackageRecord struct {
	Channel     string
	Subdir      string
	Filename    string
	Name        string
	Version     string
	Build       string
	BuildNumber int
	Depends     []string
}

// repodata mirrors the subset of repodata.json the index consumes. Both
// the legacy .tar.bz2 map and the .conda map contribute records.
type repodata struct {
	Info struct {
		Subdir string `json:"subdir"`
	} `json:"info"`
	Packages      map[string]repodataRecord `json:"packages"`
	CondaPackages map[string]repodataRecord `json:"packages.conda"`
}

type repodataRecord struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Build       string   `json:"build"`
	BuildNumber int      `json:"build_number"`
	Depends     []string `json:"depends"`
}

// readRepodata parses a repodata.json file into package records.
func readRepodata(path, channel, subdir string) ([]PackageRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var rd repodata
	if err := json.Unmarshal(data, &rd); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	records := make([]PackageRecord, 0, len(rd.Packages)+len(rd.CondaPackages))
	collect := func(files map[string]repodataRecord) {
		for filename, rec := range files {
			records = append(records, PackageRecord{
				Channel:     channel,
				Subdir:      subdir,
				Filename:    filename,
				Name:        rec.Name,
				Version:     rec.Version,
				Build:       rec.Build,
				BuildNumber: rec.BuildNumber,
				Depends:     rec.Depends,
			})
		}
	}
	collect(rd.Packages)
	collect(rd.CondaPackages)
	return records, nil
}
