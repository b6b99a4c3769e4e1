package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsFlushOnStop(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db)

	a.Track(EvtPlayerJoin, 0, "s1", "")
	a.Track(EvtPlayerJoin, 0, "s1", "")
	a.Track(EvtMatchEnd, 0, "s1", `{"duration":120,"winner":"a"}`)
	a.Track(EvtMatchEnd, 0, "s1", `{"duration":60,"winner":"none"}`)
	a.Track(EvtHostMigration, 0, "s1", `{"restored":false}`)
	a.Stop()
	a.Stop()

	counts, err := a.EventCounts(7)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[EvtPlayerJoin])
	assert.Equal(t, 2, counts[EvtMatchEnd])

	sum, err := a.Matches(7)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.InDelta(t, 90, sum.AvgDuration, 0.001)
	assert.Equal(t, 1, sum.Migrations)
}

func TestAnalyticsWithoutDatabase(t *testing.T) {
	a := NewAnalytics(nil)
	a.Track(EvtKnockout, 1, "s1", "")
	a.Stop()

	counts, err := a.EventCounts(7)
	assert.NoError(t, err)
	assert.Empty(t, counts)
}
