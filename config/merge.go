package config

// mergeConfigs merges override configuration into base
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	// Backend
	if override.Backend.URL != "" {
		result.Backend.URL = override.Backend.URL
	}
	if override.Backend.StreamURL != "" {
		result.Backend.StreamURL = override.Backend.StreamURL
	}
	if override.Backend.RequestTimeout != 0 {
		result.Backend.RequestTimeout = override.Backend.RequestTimeout
	}
	if override.Backend.HandshakeTimeout != 0 {
		result.Backend.HandshakeTimeout = override.Backend.HandshakeTimeout
	}

	// Session
	if override.Session.MaxRetries != 0 {
		result.Session.MaxRetries = override.Session.MaxRetries
	}
	if override.Session.BaseDelay != 0 {
		result.Session.BaseDelay = override.Session.BaseDelay
	}
	if override.Session.CapDelay != 0 {
		result.Session.CapDelay = override.Session.CapDelay
	}
	if override.Session.AlertDuration != 0 {
		result.Session.AlertDuration = override.Session.AlertDuration
	}
	if override.Session.PreRoll != 0 {
		result.Session.PreRoll = override.Session.PreRoll
	}
	if override.Session.Jitter {
		result.Session.Jitter = true
	}
	if override.Session.Direction != "" {
		result.Session.Direction = override.Session.Direction
	}

	// Player replaces as a unit so args never mix between layers
	if override.Player.Command != "" {
		result.Player = override.Player
	}

	// Archive
	if override.Archive.Path != "" {
		result.Archive.Path = override.Archive.Path
	}
	if override.Archive.Disabled {
		result.Archive.Disabled = true
	}

	// Ingest
	if len(override.Ingest.Extensions) > 0 {
		result.Ingest.Extensions = append([]string(nil), override.Ingest.Extensions...)
	}
	if override.Ingest.Debounce != 0 {
		result.Ingest.Debounce = override.Ingest.Debounce
	}

	if override.TUI != nil {
		tui := *override.TUI
		if result.TUI != nil {
			if tui.Theme == "" {
				tui.Theme = result.TUI.Theme
			}
			if tui.Icons == "" {
				tui.Icons = result.TUI.Icons
			}
			keys := make(map[string][]string, len(result.TUI.Keys)+len(tui.Keys))
			for action, k := range result.TUI.Keys {
				keys[action] = k
			}
			for action, k := range tui.Keys {
				keys[action] = k
			}
			if len(keys) > 0 {
				tui.Keys = keys
			}
		}
		result.TUI = &tui
	}

	// Merge extensions
	if override.Extensions != nil {
		merged := make(map[string]interface{}, len(result.Extensions)+len(override.Extensions))
		for key, value := range result.Extensions {
			merged[key] = value
		}
		for key, value := range override.Extensions {
			// If both base and override have the same extension key, merge them
			if baseMap, ok := merged[key].(map[string]interface{}); ok {
				if overrideMap, ok := value.(map[string]interface{}); ok {
					mergedMap := make(map[string]interface{}, len(baseMap)+len(overrideMap))
					for k, v := range baseMap {
						mergedMap[k] = v
					}
					for k, v := range overrideMap {
						mergedMap[k] = v
					}
					merged[key] = mergedMap
					continue
				}
			}
			merged[key] = value
		}
		result.Extensions = merged
	}

	return &result
}
