package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/voyago/parley/pkg/domain"
)

func TestSession_FullAndAge(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := domain.NewSession("s1", "u1", start)

	assert.False(t, s.Full())
	s.JoinerID = "u2"
	assert.True(t, s.Full())

	assert.Equal(t, 25*time.Minute, s.Age(start.Add(25*time.Minute)))
	assert.True(t, s.Active)
}
