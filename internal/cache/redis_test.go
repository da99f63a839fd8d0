package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_EmptyURLReturnsNil(t *testing.T) {
	assert.Nil(t, New(Config{}))
}

func TestNew_InvalidURLReturnsNil(t *testing.T) {
	assert.Nil(t, New(Config{URL: "not a url"}))
}

func TestNilStore_OperationsAreNoOps(t *testing.T) {
	var s *Store

	// None of these may panic.
	s.SetSession("k", []byte("v"))
	assert.Nil(t, s.GetSession("k"))
	s.Close()
}
