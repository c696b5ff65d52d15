package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"solarcli/pkg/contracts/domain"
)

// Paths contains all the application paths.
// This is the single source of truth for file locations; every field is absolute.
type Paths struct {
	DataDir    string
	RawDir     string
	CleanedDir string
	ReportsDir string
	LogsDir    string

	// Well-known report files
	CleaningReportCSV string
	SummaryCSV        string
	AnalysisJSON      string
	ReportXLSX        string

	sources map[domain.Country]string
}

// NewPaths resolves a PathsConfig into absolute paths.
// Relative directories are taken from the current working directory.
func NewPaths(pc PathsConfig) (*Paths, error) {
	dataDir, err := filepath.Abs(pc.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir %q: %w", pc.DataDir, err)
	}

	resolve := func(configured, fallback string) (string, error) {
		if configured == "" {
			return filepath.Join(dataDir, fallback), nil
		}
		return filepath.Abs(configured)
	}

	p := &Paths{DataDir: dataDir}
	if p.RawDir, err = resolve(pc.RawDir, RawSubdir); err != nil {
		return nil, fmt.Errorf("failed to resolve raw dir: %w", err)
	}
	if p.CleanedDir, err = resolve(pc.CleanedDir, CleanedSubdir); err != nil {
		return nil, fmt.Errorf("failed to resolve cleaned dir: %w", err)
	}
	if p.ReportsDir, err = resolve(pc.ReportsDir, ReportsSubdir); err != nil {
		return nil, fmt.Errorf("failed to resolve reports dir: %w", err)
	}

	logsDir := pc.LogsDir
	if logsDir == "" {
		logsDir = DefaultLogsDir
	}
	if p.LogsDir, err = filepath.Abs(logsDir); err != nil {
		return nil, fmt.Errorf("failed to resolve logs dir: %w", err)
	}

	p.CleaningReportCSV = filepath.Join(p.ReportsDir, CleaningReportCSV)
	p.SummaryCSV = filepath.Join(p.ReportsDir, SummaryCSV)
	p.AnalysisJSON = filepath.Join(p.ReportsDir, AnalysisJSON)
	p.ReportXLSX = filepath.Join(p.ReportsDir, DefaultReportXLSX)

	p.sources = map[domain.Country]string{
		domain.CountryBenin:       orDefault(pc.BeninFile, DefaultBeninFile),
		domain.CountrySierraLeone: orDefault(pc.SierraLeoneFile, DefaultSierraLeoneFile),
		domain.CountryTogo:        orDefault(pc.TogoFile, DefaultTogoFile),
	}

	return p, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.CleanedDir,
		p.ReportsDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// RawFile returns the raw station file for a country.
// Absolute file names are used as-is.
func (p *Paths) RawFile(country domain.Country) string {
	name := p.sources[country]
	if name == "" {
		name = string(country) + ".csv"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.RawDir, name)
}

// RawFiles returns the raw file of every known country
func (p *Paths) RawFiles() map[domain.Country]string {
	out := make(map[domain.Country]string, len(domain.AllCountries))
	for _, c := range domain.AllCountries {
		out[c] = p.RawFile(c)
	}
	return out
}

// CleanedFile returns the cleaned CSV path for a country, e.g. benin_clean.csv
func (p *Paths) CleanedFile(country domain.Country) string {
	return filepath.Join(p.CleanedDir, string(country)+CleanedFileSuffix)
}

// CleanedFiles returns the cleaned file of every known country
func (p *Paths) CleanedFiles() map[domain.Country]string {
	out := make(map[domain.Country]string, len(domain.AllCountries))
	for _, c := range domain.AllCountries {
		out[c] = p.CleanedFile(c)
	}
	return out
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("data", p.DataDir),
			slog.String("raw", p.RawDir),
			slog.String("cleaned", p.CleanedDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("sources",
			slog.String("benin", p.RawFile(domain.CountryBenin)),
			slog.String("sierraleone", p.RawFile(domain.CountrySierraLeone)),
			slog.String("togo", p.RawFile(domain.CountryTogo)),
		))
}
