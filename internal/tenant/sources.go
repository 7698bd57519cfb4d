package tenant

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// DefaultTimeoutMinutes is the idle conversation expiry used when a tenant
// entry does not set one.
const DefaultTimeoutMinutes = 15

// sourceEntry is the on-disk shape of one tenant in the tenants file. The
// config field holds the raw Spanish config document used as fallback data.
type sourceEntry struct {
	TenantID       string          `json:"tenantId"`
	DisplayName    string          `json:"displayName"`
	PhoneNumberID  string          `json:"phoneNumberId,omitempty"`
	FetchURL       string          `json:"fetchUrl,omitempty"`
	TimeoutMinutes int             `json:"timeoutMinutes,omitempty"`
	TriggerWords   []string        `json:"triggerWords,omitempty"`
	AdminPhones    []string        `json:"adminPhones,omitempty"`
	Config         json.RawMessage `json:"config,omitempty"`
}

// LoadSources reads the tenants file, a JSON array of tenant entries.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tenants file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes tenant entries from JSON.
func ParseSources(data []byte) ([]Source, error) {
	var entries []sourceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing tenants file: %w", err)
	}

	sources := make([]Source, 0, len(entries))
	for _, e := range entries {
		if e.TenantID == "" {
			return nil, fmt.Errorf("tenant entry missing tenantId")
		}
		if e.FetchURL == "" && len(e.Config) == 0 {
			return nil, fmt.Errorf("tenant %q has neither fetchUrl nor config", e.TenantID)
		}
		if e.DisplayName == "" {
			e.DisplayName = e.TenantID
		}
		if e.TimeoutMinutes <= 0 {
			e.TimeoutMinutes = DefaultTimeoutMinutes
		}
		sources = append(sources, Source{
			TenantID:       e.TenantID,
			DisplayName:    e.DisplayName,
			PhoneNumberID:  e.PhoneNumberID,
			FetchURL:       e.FetchURL,
			Fallback:       e.Config,
			TimeoutMinutes: e.TimeoutMinutes,
			TriggerWords:   e.TriggerWords,
			AdminPhones:    e.AdminPhones,
		})
	}
	slog.Info("Loaded tenant sources", "count", len(sources))
	return sources, nil
}
