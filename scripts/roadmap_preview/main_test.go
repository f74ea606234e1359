package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
)

func TestParseLessons(t *testing.T) {
	lessons, err := parseLessons(" Fractions:3, Decimals ,Ratios:0")
	require.NoError(t, err)
	assert.Equal(t, []models.Lesson{
		{ID: "L1", Name: "Fractions", Pacing: 3},
		{ID: "L2", Name: "Decimals", Pacing: 1},
		{ID: "L3", Name: "Ratios", Pacing: 0},
	}, lessons)

	lessons, err = parseLessons("  ")
	require.NoError(t, err)
	assert.Nil(t, lessons)

	_, err = parseLessons("Fractions:x")
	assert.Error(t, err)

	_, err = parseLessons("Fractions,:2")
	assert.Error(t, err)
}
