package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Timestamp
		wantErr bool
	}{
		{"null", `null`, 0, false},
		{"empty string", `""`, 0, false},
		{"zero", `0`, 0, false},
		{"seconds", `1700000000`, 1700000000, false},
		{"milliseconds", `1700000000123`, 1700000000123, false},
		{"numeric string", `"1700000000"`, 1700000000, false},
		{"float", `1.7e12`, 1700000000000, false},
		{"garbage", `"yesterday"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ts)
		})
	}
}

func TestTimestampMillis(t *testing.T) {
	assert.Equal(t, int64(1700000000000), Timestamp(1700000000).Millis())
	assert.Equal(t, int64(1700000000000), Timestamp(1700000000000).Millis())
	assert.Equal(t, int64(9999999999000), Timestamp(9999999999).Millis())
	assert.Equal(t, int64(10000000000), Timestamp(10000000000).Millis())
	assert.Equal(t, 2, Timestamp(-1).Digits())
}

func TestJobRecordDecode(t *testing.T) {
	payload := `[{"uuid":"a","name":"scan","provider":"X","publisher":null,"state":"IN_QUEUE","created":1700000000,"started":"","completed":null}]`

	var jobs []JobRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &jobs))
	require.Len(t, jobs, 1)

	job := jobs[0]
	assert.Equal(t, "X", job.ProviderClass())
	assert.Nil(t, job.Publisher)
	assert.Equal(t, StateInQueue, job.State)
	assert.True(t, job.Started.IsZero())
	assert.True(t, job.Completed.IsZero())
}
