package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/pawwatch/api/internal/model"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Reports []model.Report `yaml:"reports"`
}

// DemoReports are the sightings shown when no seed file is configured.
func DemoReports() []model.Report {
	return []model.Report{
		{
			ID:           1,
			Name:         "Buddy",
			Status:       model.StatusHealthy,
			Location:     "Galle Face Green, Colombo",
			Lat:          6.9271,
			Lng:          79.8412,
			Description:  "Friendly brown dog with white patches, often seen near food stalls",
			ReportedDate: "2023-10-15",
			Reporter:     "User123",
		},
		{
			ID:           2,
			Name:         "Max",
			Status:       model.StatusSick,
			Location:     "Viharamahadevi Park, Colombo",
			Lat:          6.9107,
			Lng:          79.8618,
			Description:  "Thin black dog with limping back leg",
			ReportedDate: "2023-10-14",
			Reporter:     "DogLover456",
		},
		{
			ID:           3,
			Name:         "Unknown",
			Status:       model.StatusRabid,
			Location:     "Borella Junction, Colombo",
			Lat:          6.9265,
			Lng:          79.8785,
			Description:  "Aggressive white dog, foaming at mouth, avoid area",
			ReportedDate: "2023-10-12",
			Reporter:     "SafetyFirst",
		},
	}
}

// LoadSeed reads seed reports from a YAML file. A missing file is not an
// error; the demo reports are returned instead.
func LoadSeed(path string) ([]model.Report, error) {
	if path == "" {
		return DemoReports(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DemoReports(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, r := range f.Reports {
		status, err := model.ParseStatus(string(r.Status))
		if err != nil {
			return nil, fmt.Errorf("seed report %d: %w", i, err)
		}
		f.Reports[i].Status = status
		if r.Name == "" {
			return nil, fmt.Errorf("seed report %d: name is required", i)
		}
	}
	return f.Reports, nil
}
