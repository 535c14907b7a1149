package lotmatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2023-01-01", "2023-01-01", false},
		{"2023-1-1", "2023-01-01", false}, // permissive read format
		{"01/02/2023", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String())
	}
}

func TestDateOrdering(t *testing.T) {
	early := MustParseDate("2023-01-31")
	late := MustParseDate("2023-02-01")

	assert.True(t, early.Before(late))
	assert.True(t, late.After(early))
	assert.False(t, early.Before(early))
	assert.Equal(t, late, early.Add(1), "dates normalize across month ends")
}

func TestDateJSON(t *testing.T) {
	d := MustParseDate("2023-03-01")
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2023-03-01"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}
