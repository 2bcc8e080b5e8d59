package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// jsonDuration decodes "500ms"-style strings as well as integer nanoseconds,
// so JSON configs read the same as YAML and TOML ones.
type jsonDuration time.Duration

func (d *jsonDuration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = jsonDuration(time.Duration(value))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = jsonDuration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}

func (s *ServerConfig) UnmarshalJSON(data []byte) error {
	type plain ServerConfig
	aux := struct {
		*plain
		ReadTimeout  jsonDuration `json:"read_timeout"`
		WriteTimeout jsonDuration `json:"write_timeout"`
		IdleTimeout  jsonDuration `json:"idle_timeout"`
	}{
		plain:        (*plain)(s),
		ReadTimeout:  jsonDuration(s.ReadTimeout),
		WriteTimeout: jsonDuration(s.WriteTimeout),
		IdleTimeout:  jsonDuration(s.IdleTimeout),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ReadTimeout = time.Duration(aux.ReadTimeout)
	s.WriteTimeout = time.Duration(aux.WriteTimeout)
	s.IdleTimeout = time.Duration(aux.IdleTimeout)
	return nil
}

func (w *WatchConfig) UnmarshalJSON(data []byte) error {
	type plain WatchConfig
	aux := struct {
		*plain
		Interval jsonDuration `json:"interval"`
		Backoff  jsonDuration `json:"backoff"`
	}{
		plain:    (*plain)(w),
		Interval: jsonDuration(w.Interval),
		Backoff:  jsonDuration(w.Backoff),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	w.Interval = time.Duration(aux.Interval)
	w.Backoff = time.Duration(aux.Backoff)
	return nil
}

func (r *ReloadConfig) UnmarshalJSON(data []byte) error {
	type plain ReloadConfig
	aux := struct {
		*plain
		MinInterval jsonDuration `json:"min_interval"`
	}{
		plain:       (*plain)(r),
		MinInterval: jsonDuration(r.MinInterval),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.MinInterval = time.Duration(aux.MinInterval)
	return nil
}
