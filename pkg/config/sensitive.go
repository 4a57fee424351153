package config

import "encoding/json"

const redacted = "[REDACTED]"

// SensitiveString holds a secret that must never be printed or serialized verbatim.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Value returns the raw secret.
func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SensitiveString) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SensitiveString(raw)
	return nil
}

// MarshalYAML redacts the secret in YAML output.
func (s SensitiveString) MarshalYAML() (any, error) {
	return s.String(), nil
}
