package main

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestChildArgs(t *testing.T) {
	assert.Equal(t, []string{"-validate"}, childArgs([]string{"-supervise", "-validate"}))
	assert.Equal(t, []string{}, childArgs([]string{"--supervise=true"}))
	assert.Equal(t, []string{"-v", "x"}, childArgs([]string{"-v", "x"}))
}
