package configloader

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Unmarshal decodes the yml file at "path" into "configPtr", then lets
// matching environment variables override the file values. A missing
// file is not an error so env-only deployments keep working.
func Unmarshal(path string, configPtr interface{}) error {
	switch filepath.Ext(path) {
	case ".yml", ".yaml":
	default:
		return fmt.Errorf("unsupported config extension %q, want .yml or .yaml", filepath.Ext(path))
	}

	if err := readFile(path, configPtr); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		log.Printf("%s not found, using environment only", path)
	}

	return envconfig.Process("", configPtr)
}

func readFile(path string, configPtr interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return yaml.NewDecoder(f).Decode(configPtr)
}
