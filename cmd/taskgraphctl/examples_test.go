package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDiamond_ResolvesToExpectedSum(t *testing.T) {
	sink, graph := buildDiamond()

	require.NoError(t, sink.ScheduleAll())
	v, err := sink.Get()
	require.NoError(t, err)
	assert.Equal(t, 35, v) // 7*2 + 7*3

	assert.Equal(t, "diamond", graph.Name())
	assert.Len(t, graph.Tasks(), 4)
}
