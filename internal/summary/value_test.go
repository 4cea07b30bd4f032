package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PreservesKeyOrder(t *testing.T) {
	v, err := Parse([]byte(`{"zeta": 1, "alpha": {"y": true, "b": null}, "mid": [1, "two"]}`))
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, obj.Keys())

	inner, _ := obj.Get("alpha")
	assert.Equal(t, []string{"y", "b"}, inner.(*Object).Keys())

	mid, _ := obj.Get("mid")
	assert.Equal(t, List{Scalar{V: 1.0}, Scalar{V: "two"}}, mid)

	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":{"y":true,"b":null},"mid":[1,"two"]}`, string(out))
}

func TestParse_DuplicateKeys(t *testing.T) {
	v, err := Parse([]byte(`{"a": 1, "b": 2, "a": 3}`))
	require.NoError(t, err)
	obj := v.(*Object)
	assert.Equal(t, []string{"a", "b"}, obj.Keys())
	a, _ := obj.Get("a")
	assert.Equal(t, Scalar{V: 3.0}, a)
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{`{"a": 1} {"b": 2}`, `{"a": }`, `[1, 2`, ``} {
		_, err := Parse([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{"b": int64(2), "a": []any{"x", nil}})
	require.NoError(t, err)
	obj := v.(*Object)
	assert.Equal(t, []string{"a", "b"}, obj.Keys())
	b, _ := obj.Get("b")
	assert.Equal(t, Scalar{V: 2.0}, b)

	type pair struct {
		Second string `json:"second"`
		First  int    `json:"first"`
	}
	v, err = FromGo(pair{Second: "s", First: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, v.(*Object).Keys())

	_, err = FromGo(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}
