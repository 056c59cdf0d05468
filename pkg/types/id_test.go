package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ID
	}{
		{name: "number", in: `42`, want: "42"},
		{name: "numeric string", in: `"42"`, want: "42"},
		{name: "opaque string", in: `"dept-7"`, want: "dept-7"},
		{name: "null", in: `null`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.want, id)
		})
	}

	t.Run("object is rejected", func(t *testing.T) {
		var id ID
		err := json.Unmarshal([]byte(`{"id":1}`), &id)
		assert.Error(t, err)
	})
}

func TestIDMarshal(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{id: "42", want: `42`},
		{id: "0", want: `0`},
		{id: "007", want: `"007"`},
		{id: "dept-7", want: `"dept-7"`},
		{id: "", want: `null`},
	}
	for _, tt := range tests {
		out, err := json.Marshal(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(out))
	}
}

func TestIDsFromNumbersAndStringsCompareEqual(t *testing.T) {
	var fromNumber, fromString Department
	require.NoError(t, json.Unmarshal([]byte(`{"id": 5}`), &fromNumber))
	require.NoError(t, json.Unmarshal([]byte(`{"id": "5"}`), &fromString))
	assert.Equal(t, fromNumber.ID, fromString.ID)
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, ID("12"), id)

	_, err = ParseID("  ")
	assert.ErrorIs(t, err, ErrInvalidID)
}
