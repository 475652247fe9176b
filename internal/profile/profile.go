package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the runtime configuration of the memory store.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Data is the data directory (sqlite database location)
	Data string
	// DSN points to where the store keeps its data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the binary
	Version string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
		}
		if err := os.MkdirAll(dataDir, 0770); err != nil {
			return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
		}
	}
	return dataDir, nil
}

// Validate normalizes the profile and fills in driver-dependent defaults.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			if p.Data == "" {
				p.Data = "."
			}
			dataDir, err := checkDataDir(p.Data)
			if err != nil {
				return err
			}
			p.Data = dataDir
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("agentmem_%s.db", p.Mode))
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for the postgres driver")
		}
	}

	return nil
}
