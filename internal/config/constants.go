package config

import "time"

// Application constants - fixed values for the solar comparison tool
const (
	// Application Info
	AppName    = "solarcli"
	AppTitle   = "Solar Potential Comparison"
	EnvPrefix  = "SOLAR"
	DotEnvFile = ".env"

	// Raw station files shipped with the challenge data
	DefaultBeninFile       = "benin-malanville.csv"
	DefaultSierraLeoneFile = "sierraleone-bumbuna.csv"
	DefaultTogoFile        = "togo-dapaong_qc.csv"

	// File Paths (relative to the data directory)
	DefaultDataDir     = "data"
	DefaultLogsDir     = "logs"
	RawSubdir          = "raw"
	CleanedSubdir      = "cleaned"
	ReportsSubdir      = "reports"
	DefaultLogFileName = "solarcli.log"

	// Well-known output files
	CleanedFileSuffix = "_clean.csv"
	CleaningReportCSV = "cleaning_report.csv"
	SummaryCSV        = "summary.csv"
	AnalysisJSON      = "analysis.json"
	DefaultReportXLSX = "solar_report.xlsx"

	// Cleaning defaults
	DefaultZThreshold        = 3.0
	DefaultNegativeTolerance = 50.0
	DefaultOutlierPolicy     = "flag"

	// Analysis defaults
	DefaultPrimaryMetric   = "GHI"
	DefaultAlpha           = 0.05
	DefaultCSPMinDNI       = 400.0
	DefaultHeatAlertTamb   = 40.0
	DefaultHumidityAlertRH = 75.0

	// Operation Timeouts
	DefaultStepTimeout      = 10 * time.Minute
	DefaultOperationTimeout = 1 * time.Hour

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// API Endpoints
	APIBasePath     = "/api"
	HealthEndpoint  = "/api/health"
	MetricsEndpoint = "/metrics"
)

// OutlierPolicies lists the accepted values of CleaningConfig.OutlierPolicy
var OutlierPolicies = []string{"flag", "impute", "drop"}

// LogOutputs lists the accepted values of LoggingConfig.Output
var LogOutputs = []string{"console", "file", "both"}
