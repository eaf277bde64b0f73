package db

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Signal is one recorded sensor channel: the raw readings in recording order
// plus whatever ad hoc attributes the recording session attached.
type Signal struct {
	ID           string         `json:"id"`
	Kind         string         `json:"kind"`
	SampleRateHz float64        `json:"sample_rate_hz"`
	RecordedAt   time.Time      `json:"recorded_at"`
	Readings     []float64      `json:"readings"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Trial groups the signals captured during one stimulus presentation.
// SignalIDs is ordered as the signals were recorded.
type Trial struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	StartedAt time.Time      `json:"started_at"`
	SignalIDs []string       `json:"signal_ids"`
	Extra     map[string]any `json:"extra,omitempty"`
}

func (s *Signal) String() string {
	return fmt.Sprintf("Signal %s: kind=%s, rate=%.2fHz, readings=%d, recorded=%s",
		s.ID, s.Kind, s.SampleRateHz, len(s.Readings), s.RecordedAt.Format(time.RFC3339))
}

func (t *Trial) String() string {
	return fmt.Sprintf("Trial %s: label=%q, signals=%d, started=%s",
		t.ID, t.Label, len(t.SignalIDs), t.StartedAt.Format(time.RFC3339))
}

// Document returns the signal as a JSON-like map: the extra attributes
// overlaid with the fixed fields, which take precedence.
func (s *Signal) Document() map[string]any {
	doc := make(map[string]any, len(s.Extra)+5)
	for k, v := range s.Extra {
		doc[k] = v
	}
	readings := make([]any, len(s.Readings))
	for i, r := range s.Readings {
		readings[i] = r
	}
	doc["id"] = s.ID
	doc["kind"] = s.Kind
	doc["sample_rate_hz"] = s.SampleRateHz
	doc["recorded_at"] = s.RecordedAt.UTC().Format(time.RFC3339Nano)
	doc["readings"] = readings
	return doc
}

// Document returns the trial as a JSON-like map. When signals is non-nil the
// resolved signal documents are embedded under "signals"; otherwise the
// ordered ids are.
func (t *Trial) Document(signals []Signal) map[string]any {
	doc := make(map[string]any, len(t.Extra)+4)
	for k, v := range t.Extra {
		doc[k] = v
	}
	doc["id"] = t.ID
	doc["label"] = t.Label
	doc["started_at"] = t.StartedAt.UTC().Format(time.RFC3339Nano)
	if signals != nil {
		docs := make([]any, len(signals))
		for i := range signals {
			docs[i] = signals[i].Document()
		}
		doc["signals"] = docs
	} else {
		ids := make([]any, len(t.SignalIDs))
		for i, id := range t.SignalIDs {
			ids[i] = id
		}
		doc["signals"] = ids
	}
	return doc
}

// encodeExtra coerces extra into a google.protobuf.Struct and returns its JSON
// form. Integers become float64 and []byte becomes base64 text; values with no
// JSON representation are rejected.
func encodeExtra(extra map[string]any) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	s, err := structpb.NewStruct(extra)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidExtra, err)
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidExtra, err)
	}
	return string(b), nil
}

func decodeExtra(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var s structpb.Struct
	if err := protojson.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to decode extra attributes: %w", err)
	}
	return s.AsMap(), nil
}
