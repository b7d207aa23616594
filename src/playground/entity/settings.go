package entity

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SettingsStorageKey is the default storage key holding the serialized settings.
const SettingsStorageKey = "mznPlayground"

// MaxSessions is the default number of sessions retained by the settings store.
const MaxSessions = 5

// SplitterDirection is the orientation of the editor/output splitter.
type SplitterDirection string

const (
	// SplitterVertical stacks the output below the editor.
	SplitterVertical SplitterDirection = "vertical"
	// SplitterHorizontal places the output beside the editor.
	SplitterHorizontal SplitterDirection = "horizontal"
)

const (
	_autoClearOutputKey   = "autoClearOutput"
	_splitterDirectionKey = "splitterDirection"
	_splitterSizeKey      = "splitterSize"
	_sessionsKey          = "sessions"
	_timestampKey         = "timestamp"
)

// SessionRecord is a saved playground session. Fields other than the timestamp are
// kept verbatim.
type SessionRecord struct {
	// Timestamp is the last time the session was touched, in milliseconds since the epoch.
	Timestamp int64
	Extra     map[string]json.RawMessage
}

// MarshalJSON implements json.Marshaler.
func (r SessionRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Extra)+1)
	for k, v := range r.Extra {
		out[k] = v
	}
	ts, err := json.Marshal(r.Timestamp)
	if err != nil {
		return nil, err
	}
	out[_timestampKey] = ts
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *SessionRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = SessionRecord{}
	if ts, ok := raw[_timestampKey]; ok {
		var f float64
		if err := json.Unmarshal(ts, &f); err != nil {
			return fmt.Errorf("session timestamp: %w", err)
		}
		r.Timestamp = int64(f)
		delete(raw, _timestampKey)
	}
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

// Settings is the persisted playground configuration.
type Settings struct {
	AutoClearOutput   bool
	SplitterDirection SplitterDirection
	SplitterSize      float64
	Sessions          map[string]SessionRecord
	// Extra holds top-level keys this version does not know about.
	Extra map[string]json.RawMessage
}

// DefaultSettings returns the settings used before anything has been stored.
func DefaultSettings() Settings {
	return Settings{
		AutoClearOutput:   false,
		SplitterDirection: SplitterVertical,
		SplitterSize:      75,
		Sessions:          map[string]SessionRecord{},
	}
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	c := s
	c.Sessions = make(map[string]SessionRecord, len(s.Sessions))
	for k, v := range s.Sessions {
		if v.Extra != nil {
			extra := make(map[string]json.RawMessage, len(v.Extra))
			for ek, ev := range v.Extra {
				extra[ek] = ev
			}
			v.Extra = extra
		}
		c.Sessions[k] = v
	}
	if s.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Fields returns the settings as a map of top-level keys to their JSON encoding.
func (s Settings) Fields() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+4)
	for k, v := range s.Extra {
		out[k] = v
	}
	sessions := s.Sessions
	if sessions == nil {
		sessions = map[string]SessionRecord{}
	}
	for k, v := range map[string]interface{}{
		_autoClearOutputKey:   s.AutoClearOutput,
		_splitterDirectionKey: s.SplitterDirection,
		_splitterSizeKey:      s.SplitterSize,
		_sessionsKey:          sessions,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}

// MarshalJSON implements json.Marshaler.
func (s Settings) MarshalJSON() ([]byte, error) {
	fields, err := s.Fields()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON implements json.Unmarshaler. Keys missing from data take their default values.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	next := DefaultSettings()
	for k, v := range raw {
		var err error
		switch k {
		case _autoClearOutputKey:
			err = json.Unmarshal(v, &next.AutoClearOutput)
		case _splitterDirectionKey:
			err = json.Unmarshal(v, &next.SplitterDirection)
		case _splitterSizeKey:
			err = json.Unmarshal(v, &next.SplitterSize)
		case _sessionsKey:
			sessions := map[string]SessionRecord{}
			err = json.Unmarshal(v, &sessions)
			if sessions == nil {
				sessions = map[string]SessionRecord{}
			}
			next.Sessions = sessions
		default:
			if next.Extra == nil {
				next.Extra = make(map[string]json.RawMessage)
			}
			next.Extra[k] = v
		}
		if err != nil {
			return fmt.Errorf("decoding %q: %w", k, err)
		}
	}
	*s = next
	return nil
}

// MergeJSON returns s with every top-level key present in data replacing its current
// value. Keys absent from data are left as they are.
func (s Settings) MergeJSON(data []byte) (Settings, error) {
	var incoming map[string]json.RawMessage
	if err := json.Unmarshal(data, &incoming); err != nil {
		return s, err
	}
	fields, err := s.Fields()
	if err != nil {
		return s, err
	}
	for k, v := range incoming {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return s, err
	}
	var out Settings
	if err := json.Unmarshal(merged, &out); err != nil {
		return s, err
	}
	return out, nil
}

// SessionKeysByRecency returns session keys ordered by timestamp, newest first. Equal
// timestamps are ordered by key so every context computes the same order.
func (s Settings) SessionKeysByRecency() []string {
	keys := make([]string, 0, len(s.Sessions))
	for k := range s.Sessions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := s.Sessions[keys[i]].Timestamp, s.Sessions[keys[j]].Timestamp
		if ti != tj {
			return ti > tj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Evict returns s keeping only the capacity most recently touched sessions, and the
// keys that were dropped.
func (s Settings) Evict(capacity int) (Settings, []string) {
	if len(s.Sessions) <= capacity {
		return s, nil
	}
	keys := s.SessionKeysByRecency()
	out := s.Clone()
	dropped := keys[capacity:]
	for _, k := range dropped {
		delete(out.Sessions, k)
	}
	return out, dropped
}
