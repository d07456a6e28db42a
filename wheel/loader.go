package wheel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/spinwin-labs/spin-reward-service/config"
)

// LoadTable loads and validates an outcome table from a YAML file or a
// directory of YAML files. Directory contents are merged in alphabetical
// order, later files overriding earlier ones.
func LoadTable(path string) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat table path: %w", err)
	}

	var table Table
	if info.IsDir() {
		if err := loadTableFromDir(path, &table); err != nil {
			return nil, err
		}
	} else {
		if err := loadTableFromFile(path, &table); err != nil {
			return nil, err
		}
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid outcome table %s: %w", path, err)
	}
	return &table, nil
}

func loadTableFromFile(path string, out *Table) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read table: %w", err)
	}
	if err := v.Unmarshal(out, config.DecodeHooks()); err != nil {
		return fmt.Errorf("failed to unmarshal table: %w", err)
	}
	return nil
}

func loadTableFromDir(dir string, out *Table) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read table directory: %w", err)
	}

	var yamlFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			yamlFiles = append(yamlFiles, entry.Name())
		}
	}
	if len(yamlFiles) == 0 {
		return fmt.Errorf("no YAML files found in table directory: %s", dir)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, filename := range yamlFiles {
		v.SetConfigFile(filepath.Join(dir, filename))
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to merge table from %s: %w", filename, err)
		}
	}

	if err := v.Unmarshal(out, config.DecodeHooks()); err != nil {
		return fmt.Errorf("failed to unmarshal table: %w", err)
	}
	return nil
}
