package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	CacheDir           string // directory of the on-disk session cache
	DB                 string // optional postgres connection string, replaces the sqlite cache
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	LogFilter          string // zapfilter rules, empty means no filtering
	Source             string // session data source (archive, openf1)
	ArchiveDir         string // root directory of recorded session archives
	OpenF1URL          string // base url of the OpenF1 compatible api
	StoryFile          string // path to story yaml, empty means embedded default
	Year               int    // overrides the story session year
	Event              string // overrides the story session event
	SessionType        string // overrides the story session type
	WaitForServices    string // duration to wait for other services to be ready
	MigrationSourceURL string // location of migration files
	EnableTelemetry    bool   // enable telemetry
	TelemetryEndpoint  string // endpoint for telemetry, "stdout" uses the stdout exporters
	ServerAddr         string // listen addr for the dashboard server
	AssetsHost         string // where the browser fetches echarts assets from
	OutputDir          string // target directory for static rendering
	ProfilingPort      int    // port for pprof, 0 disables profiling
	TLSCertFile        string // file containing the TLS certificate
	TLSKeyFile         string // file containing the TLS key
)

const (
	SourceArchive = "archive"
	SourceOpenF1  = "openf1"
)
