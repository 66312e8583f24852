package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndValidate(t *testing.T) {
	a, b := New(), NewOrdered()
	assert.NoError(t, Validate(a))
	assert.NoError(t, Validate(b))
	assert.NotEqual(t, a, b)
	assert.Error(t, Validate("not-a-uuid"))
}
