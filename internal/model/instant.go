package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// InstantKind tags which representation an Instant carries.
type InstantKind uint8

const (
	KindNone InstantKind = iota
	KindEpochMillis
	KindTime
	KindText
)

// Instant is a raw, not yet normalized time value as supplied by the host:
// epoch milliseconds, an already constructed time.Time, or text.
type Instant struct {
	kind InstantKind
	ms   int64
	t    time.Time
	text string
}

func EpochMillis(ms int64) Instant { return Instant{kind: KindEpochMillis, ms: ms} }

func At(t time.Time) Instant { return Instant{kind: KindTime, t: t} }

func Text(s string) Instant { return Instant{kind: KindText, text: s} }

func (i Instant) Kind() InstantKind { return i.kind }
func (i Instant) Millis() int64     { return i.ms }
func (i Instant) Time() time.Time   { return i.t }
func (i Instant) Text() string      { return i.text }

// IsZero reports whether no value was supplied.
func (i Instant) IsZero() bool { return i.kind == KindNone }

func (i Instant) String() string {
	switch i.kind {
	case KindEpochMillis:
		return strconv.FormatInt(i.ms, 10)
	case KindTime:
		return i.t.Format(time.RFC3339Nano)
	case KindText:
		return i.text
	default:
		return "<none>"
	}
}

func (i Instant) MarshalJSON() ([]byte, error) {
	switch i.kind {
	case KindEpochMillis:
		return []byte(strconv.FormatInt(i.ms, 10)), nil
	case KindTime:
		return json.Marshal(i.t.Format(time.RFC3339Nano))
	case KindText:
		return json.Marshal(i.text)
	default:
		return []byte("null"), nil
	}
}

func (i *Instant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = Instant{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("instant: expected number or string, got %s", data)
	}
	ms, err := numberToMillis(n.String())
	if err != nil {
		return err
	}
	*i = EpochMillis(ms)
	return nil
}

func (i Instant) MarshalYAML() (any, error) {
	switch i.kind {
	case KindEpochMillis:
		return i.ms, nil
	case KindTime:
		return i.t.Format(time.RFC3339Nano), nil
	case KindText:
		return i.text, nil
	default:
		return nil, nil
	}
}

func (i *Instant) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("instant: line %d: expected scalar", value.Line)
	}
	switch value.ShortTag() {
	case "!!null":
		*i = Instant{}
	case "!!int", "!!float":
		ms, err := numberToMillis(value.Value)
		if err != nil {
			return fmt.Errorf("instant: line %d: %w", value.Line, err)
		}
		*i = EpochMillis(ms)
	case "!!timestamp":
		var t time.Time
		if err := value.Decode(&t); err != nil {
			return fmt.Errorf("instant: line %d: %w", value.Line, err)
		}
		// Date-only timestamps stay naive so they are read in the active zone.
		if len(value.Value) == len("2006-01-02") {
			*i = Text(value.Value)
			return nil
		}
		*i = At(t)
	default:
		*i = Text(value.Value)
	}
	return nil
}

func numberToMillis(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("instant: invalid epoch millis %q", s)
	}
	return int64(f), nil
}
