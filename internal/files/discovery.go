package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"solarcli/internal/config"
	"solarcli/pkg/contracts/domain"
)

// Kind classifies a file of the data tree
type Kind string

const (
	KindRaw     Kind = "raw"
	KindCleaned Kind = "cleaned"
	KindReport  Kind = "report"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Kind    Kind           `json:"kind"`
	Country domain.Country `json:"country,omitempty"`
	Name    string         `json:"name"`
	Path    string         `json:"path"`
	Size    int64          `json:"size"`
	ModTime time.Time      `json:"mod_time"`
}

// Inventory lists the files of each data directory, oldest first
type Inventory struct {
	Raw     []FileInfo `json:"raw"`
	Cleaned []FileInfo `json:"cleaned"`
	Reports []FileInfo `json:"reports"`
	// Missing names the countries whose configured raw file is absent
	Missing []domain.Country `json:"missing,omitempty"`
}

// Discovery provides file discovery operations over the resolved paths
type Discovery struct {
	paths *config.Paths
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(paths *config.Paths) *Discovery {
	return &Discovery{paths: paths}
}

// FindCSVFiles finds all CSV files in dir
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	return d.find(dir, ".csv")
}

// FindReportFiles finds the CSV, JSON and Excel outputs in dir
func (d *Discovery) FindReportFiles(dir string) ([]FileInfo, error) {
	return d.find(dir, ".csv", ".json", ".xlsx")
}

func (d *Discovery) find(dir string, exts ...string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !hasExt(entry.Name(), exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// Sort by modification time (oldest first), then by name
	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.Before(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// Inventory walks the raw, cleaned and reports directories
func (d *Discovery) Inventory() (*Inventory, error) {
	raw, err := d.FindCSVFiles(d.paths.RawDir)
	if err != nil {
		return nil, err
	}
	cleaned, err := d.FindCSVFiles(d.paths.CleanedDir)
	if err != nil {
		return nil, err
	}
	reports, err := d.FindReportFiles(d.paths.ReportsDir)
	if err != nil {
		return nil, err
	}

	rawOwners := owners(d.paths.RawFiles())
	cleanedOwners := owners(d.paths.CleanedFiles())
	inv := &Inventory{
		Raw:     tag(raw, KindRaw, rawOwners),
		Cleaned: tag(cleaned, KindCleaned, cleanedOwners),
		Reports: tag(reports, KindReport, nil),
	}

	found := make(map[domain.Country]bool, len(inv.Raw))
	for _, f := range inv.Raw {
		if f.Country != "" {
			found[f.Country] = true
		}
	}
	for _, c := range domain.AllCountries {
		if !found[c] {
			inv.Missing = append(inv.Missing, c)
		}
	}
	return inv, nil
}

// GetLatestFile returns the most recently modified file
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}
	latest := files[0]
	for _, f := range files[1:] {
		if f.ModTime.After(latest.ModTime) {
			latest = f
		}
	}
	return latest, true
}

func owners(byCountry map[domain.Country]string) map[string]domain.Country {
	out := make(map[string]domain.Country, len(byCountry))
	for c, path := range byCountry {
		out[filepath.Clean(path)] = c
	}
	return out
}

func tag(files []FileInfo, kind Kind, byPath map[string]domain.Country) []FileInfo {
	for i := range files {
		files[i].Kind = kind
		files[i].Country = byPath[filepath.Clean(files[i].Path)]
	}
	return files
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
