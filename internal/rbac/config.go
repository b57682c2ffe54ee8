package rbac

import "fmt"

// Validate checks internal consistency of the Config
func (c *Config) Validate() error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf(errConfigTiersEmpty)
	}

	names := make(map[string]bool, len(c.Tiers))
	levels := make(map[int]string, len(c.Tiers))
	for _, td := range c.Tiers {
		if td.Name == "" {
			return fmt.Errorf(errConfigTierNameEmpty)
		}
		if err := td.Name.Validate(); err != nil {
			return fmt.Errorf(errConfigUnknownTierFmt, err)
		}
		if names[string(td.Name)] {
			return fmt.Errorf(errConfigDuplicateTierNameFmt, td.Name)
		}
		if existing, dup := levels[td.Level]; dup {
			return fmt.Errorf(errConfigDuplicateTierLevelFmt, td.Level, existing, td.Name)
		}
		names[string(td.Name)] = true
		levels[td.Level] = string(td.Name)
	}

	if c.Default == "" {
		return fmt.Errorf(errConfigDefaultEmpty)
	}
	if !names[string(c.Default)] {
		return fmt.Errorf(errConfigDefaultUnknownFmt, c.Default)
	}
	return nil
}
