package giphy_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giphy-random/go-client/pkg/giphy"
)

func TestParseTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected time.Time
	}{
		{input: "", expected: time.Time{}},
		{input: "0000-00-00 00:00:00", expected: time.Time{}},
		{input: "2021-03-04 05:06:07", expected: time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)},
		{input: "2021-03-04T05:06:07Z", expected: time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)},
		{input: "2021-03-04T07:06:07+02:00", expected: time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)},
	}
	for _, tc := range cases {
		actual, err := giphy.ParseTime(tc.input)
		require.NoError(t, err, tc.input)
		assert.True(t, tc.expected.Equal(actual), "%s: %s", tc.input, actual)
	}

	_, err := giphy.ParseTime("yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid time "yesterday"`)
}

func TestTime_JSON(t *testing.T) {
	t.Parallel()

	type item struct {
		Created giphy.Time `json:"created"`
		Updated giphy.Time `json:"updated"`
		Deleted giphy.Time `json:"deleted"`
	}

	var v item
	require.NoError(t, json.Unmarshal([]byte(`{"created":"2021-03-04 05:06:07","updated":"0000-00-00 00:00:00","deleted":null}`), &v))
	assert.Equal(t, "2021-03-04 05:06:07", v.Created.String())
	assert.True(t, v.Updated.IsZero())
	assert.True(t, v.Deleted.IsZero())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"created":"2021-03-04 05:06:07","updated":"0000-00-00 00:00:00","deleted":"0000-00-00 00:00:00"}`, string(out))
}
