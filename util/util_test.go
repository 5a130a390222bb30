package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeepCopyMap(t *testing.T) {
	src := map[string]interface{}{
		"level":  "senior",
		"nested": map[string]interface{}{"panel": []interface{}{"a", "b"}},
	}

	cp := DeepCopyMap(src)
	assert.Equal(t, src, cp)

	cp["nested"].(map[string]interface{})["panel"] = []interface{}{"c"}
	assert.Equal(t, []interface{}{"a", "b"}, src["nested"].(map[string]interface{})["panel"])

	assert.Nil(t, DeepCopyMap(nil))
}

func TestCopyStrings(t *testing.T) {
	src := []string{"x", "y"}
	cp := CopyStrings(src)
	cp[0] = "z"
	assert.Equal(t, "x", src[0])
	assert.Nil(t, CopyStrings(nil))
}

func TestNewID(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
	assert.Len(t, NewID(), 36)
}
