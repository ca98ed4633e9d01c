package feature_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/toggler/pkg/feature"
)

func TestValue_Accessors(t *testing.T) {
	t.Parallel()

	t.Run("bool", func(t *testing.T) {
		t.Parallel()
		v := feature.BoolValue(true)
		assert.Equal(t, feature.KindBool, v.Kind())
		b, err := v.AsBool()
		require.NoError(t, err)
		assert.True(t, b)

		_, err = v.AsString()
		assert.ErrorIs(t, err, feature.ErrAttributeType)
	})

	t.Run("string", func(t *testing.T) {
		t.Parallel()
		v := feature.StringValue("growth")
		s, err := v.AsString()
		require.NoError(t, err)
		assert.Equal(t, "growth", s)

		_, err = v.AsStringList()
		assert.ErrorIs(t, err, feature.ErrAttributeType)
	})

	t.Run("string list is copied", func(t *testing.T) {
		t.Parallel()
		src := []string{"u1", "u2"}
		v := feature.StringListValue(src...)
		src[0] = "changed"

		list, err := v.AsStringList()
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2"}, list)

		list[1] = "changed"
		assert.True(t, v.Contains("u2"))
		assert.False(t, v.Contains("changed"))
	})

	t.Run("number", func(t *testing.T) {
		t.Parallel()
		v := feature.NumberValue(2.5)
		n, err := v.AsNumber()
		require.NoError(t, err)
		assert.InDelta(t, 2.5, n, 0)

		_, err = v.AsBool()
		assert.ErrorIs(t, err, feature.ErrAttributeType)
	})

	t.Run("zero value", func(t *testing.T) {
		t.Parallel()
		var v feature.Value
		assert.Equal(t, feature.KindInvalid, v.Kind())
		_, err := v.AsBool()
		assert.ErrorIs(t, err, feature.ErrAttributeType)
		assert.Nil(t, v.Any())
	})
}

func TestValue_Equal(t *testing.T) {
	t.Parallel()

	assert.True(t, feature.BoolValue(true).Equal(feature.BoolValue(true)))
	assert.False(t, feature.BoolValue(true).Equal(feature.StringValue("true")))
	assert.True(t, feature.StringListValue("a", "b").Equal(feature.StringListValue("a", "b")))
	assert.False(t, feature.StringListValue("a").Equal(feature.StringListValue("a", "b")))
	assert.True(t, feature.NumberValue(1).Equal(feature.NumberValue(1)))
}

func TestValue_JSON(t *testing.T) {
	t.Parallel()

	input := `{"flag":true,"owner":"growth","ids":["u1","u2"],"weight":3}`
	var attrs feature.Attributes
	require.NoError(t, json.Unmarshal([]byte(input), &attrs))

	assert.True(t, attrs["flag"].Equal(feature.BoolValue(true)))
	assert.True(t, attrs["owner"].Equal(feature.StringValue("growth")))
	assert.True(t, attrs["ids"].Equal(feature.StringListValue("u1", "u2")))
	assert.True(t, attrs["weight"].Equal(feature.NumberValue(3)))

	out, err := json.Marshal(attrs)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))

	var bad feature.Value
	err = json.Unmarshal([]byte(`[1,2]`), &bad)
	assert.ErrorIs(t, err, feature.ErrInvalidValue)

	err = json.Unmarshal([]byte(`{"a":1}`), &bad)
	assert.ErrorIs(t, err, feature.ErrInvalidValue)
}

func TestValue_YAML(t *testing.T) {
	t.Parallel()

	input := `
flag: true
owner: growth
quoted: "true"
ids: [u1, u2]
weight: 0.5
count: 7
`
	var attrs feature.Attributes
	require.NoError(t, yaml.Unmarshal([]byte(input), &attrs))

	assert.Equal(t, feature.KindBool, attrs["flag"].Kind())
	assert.Equal(t, feature.KindString, attrs["owner"].Kind())
	assert.True(t, attrs["quoted"].Equal(feature.StringValue("true")))
	assert.True(t, attrs["ids"].Equal(feature.StringListValue("u1", "u2")))
	assert.True(t, attrs["weight"].Equal(feature.NumberValue(0.5)))
	assert.True(t, attrs["count"].Equal(feature.NumberValue(7)))

	var bad feature.Attributes
	err := yaml.Unmarshal([]byte("nested: {a: b}"), &bad)
	assert.ErrorIs(t, err, feature.ErrInvalidValue)
}
