package giphy

import (
	"fmt"
	"time"

	"github.com/relvacode/iso8601"
)

// TimeFormat used in the Giphy API.
const TimeFormat = "2006-01-02 15:04:05"

// zeroTime is sent by the API if the time is not set.
const zeroTime = "0000-00-00 00:00:00"

// Time is decoded from the TimeFormat, an ISO-8601 value is accepted too.
// The zero value is encoded as "0000-00-00 00:00:00".
type Time struct {
	time.Time
}

// ParseTime parses a time in the TimeFormat (UTC) or ISO-8601.
// An empty string and the "0000-00-00 00:00:00" are the zero time.
func ParseTime(value string) (time.Time, error) {
	switch value {
	case "", zeroTime, "0000-00-00":
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(TimeFormat, value, time.UTC); err == nil {
		return t, nil
	}
	t, err := iso8601.ParseString(value)
	if err != nil {
		return time.Time{}, fmt.Errorf(`invalid time "%s": %w`, value, err)
	}
	return t, nil
}

// UnmarshalJSON implements JSON decoding.
func (t *Time) UnmarshalJSON(data []byte) error {
	var value *string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	if value == nil {
		t.Time = time.Time{}
		return nil
	}
	v, err := ParseTime(*value)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

// MarshalJSON implements JSON encoding.
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t Time) String() string {
	if t.IsZero() {
		return zeroTime
	}
	return t.UTC().Format(TimeFormat)
}
