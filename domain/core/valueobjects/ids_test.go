package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectID(t *testing.T) {
	t.Run("new IDs are unique and non-zero", func(t *testing.T) {
		a := NewProjectID()
		b := NewProjectID()
		assert.False(t, a.IsZero())
		assert.False(t, a.Equals(b))
	})

	t.Run("round-trips through string", func(t *testing.T) {
		a := NewProjectID()
		b, err := NewProjectIDFromString(a.String())
		require.NoError(t, err)
		assert.True(t, a.Equals(b))
	})

	t.Run("rejects empty and malformed strings", func(t *testing.T) {
		_, err := NewProjectIDFromString("")
		assert.Error(t, err)

		_, err = NewProjectIDFromString("not-a-uuid")
		assert.Error(t, err)
	})

	t.Run("marshals as a JSON string", func(t *testing.T) {
		a := NewProjectID()
		data, err := json.Marshal(a)
		require.NoError(t, err)
		assert.Equal(t, `"`+a.String()+`"`, string(data))

		var b ProjectID
		require.NoError(t, json.Unmarshal(data, &b))
		assert.True(t, a.Equals(b))
	})
}

func TestTaskID(t *testing.T) {
	a := NewTaskID()
	b, err := NewTaskIDFromString(a.String())
	require.NoError(t, err)
	assert.True(t, a.Equals(b))

	_, err = NewTaskIDFromString("nope")
	assert.Error(t, err)
}
