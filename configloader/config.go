package configloader

// Root holds the engine configuration. Call Load before use; zero
// values fall back to the defaults below.
var Root = &config{}

type config struct {
	LogDevMode     bool         `yaml:"logDevMode" envconfig:"LOG_DEV_MODE"`
	InventoryPath  string       `yaml:"inventory" envconfig:"INVENTORY_PATH"`
	ReloadInterval int          `yaml:"reloadInterval" envconfig:"INVENTORY_RELOAD_INTERVAL"`
	Coordination   coordination `yaml:"coordination"`
	Runner         runner       `yaml:"runner"`
}

type coordination struct {
	Endpoints []string `yaml:"endpoints" envconfig:"COORDINATION_ENDPOINTS"`
	LockTTL   int      `yaml:"lockTTL" envconfig:"COORDINATION_LOCK_TTL"`
}

type runner struct {
	Address        string `yaml:"address" envconfig:"RUNNER_ADDRESS"`
	Token          string `yaml:"token" envconfig:"RUNNER_TOKEN"`
	Insecure       bool   `yaml:"insecure" envconfig:"RUNNER_INSECURE"`
	RequestTimeout int    `yaml:"requestTimeout" envconfig:"RUNNER_REQUEST_TIMEOUT"`
}

const (
	defaultLockTTL        = 30
	defaultRequestTimeout = 60
)

// Load reads the yml file at path, applies environment overrides and
// stores the result in Root.
func Load(path string) error {
	ptr := &config{}
	if err := Unmarshal(path, ptr); err != nil {
		return err
	}
	if ptr.Coordination.LockTTL == 0 {
		ptr.Coordination.LockTTL = defaultLockTTL
	}
	if ptr.Runner.RequestTimeout == 0 {
		ptr.Runner.RequestTimeout = defaultRequestTimeout
	}
	Root = ptr
	return nil
}
