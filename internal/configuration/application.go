package configuration

// DefaultConfigFile is the configuration file that is read when no other file
// is requested by the user. It is not an error for it to not exist.
const DefaultConfigFile = "/etc/smartmove/smartmove.conf"

// Configuration keys, both for configuration files and environment variables.
const (
	KeyComprehensive = "SMV_COMPREHENSIVE"
	KeyVerify        = "SMV_VERIFY"
	KeyMinFreeSpace  = "SMV_MIN_FREE_SPACE"
	KeyScanExclude   = "SMV_SCAN_EXCLUDE"
	KeyNoProgress    = "SMV_NO_PROGRESS"
	KeyUI            = "SMV_UI"
)

// AppConfiguration is the principal structure holding the defaults of the
// application, as established from configuration files and the environment.
// Command-line flags are applied on top of it.
type AppConfiguration struct {
	Comprehensive bool
	Verify        bool
	NoProgress    bool
	UI            bool
	MinFreeSpace  uint64
	ScanExcludes  []string
}

// NewAppConfiguration returns a pointer to a new [AppConfiguration] holding
// the built-in defaults.
func NewAppConfiguration() *AppConfiguration {
	return &AppConfiguration{
		ScanExcludes: []string{},
	}
}
