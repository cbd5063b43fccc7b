package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorTimings(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpDBQuery, 10*time.Millisecond)
	c.RecordTiming(OpDBQuery, 30*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.DBQuery)
	assert.Equal(t, int64(2), snap.DBQuery.Count)
	assert.Equal(t, int64(10), snap.DBQuery.MinTimeMs)
	assert.Equal(t, int64(30), snap.DBQuery.MaxTimeMs)
	assert.Equal(t, 20.0, snap.DBQuery.AvgTimeMs)

	assert.Nil(t, snap.LLMGenerate)
	assert.Nil(t, snap.Embedding)
}

func TestCollectorLLMUsage(t *testing.T) {
	c := NewCollector()
	c.RecordLLMUsage(OpLLMGenerate, 100*time.Millisecond, 500, 200)
	c.RecordLLMUsage(OpLLMGenerate, 200*time.Millisecond, 700, 400)

	snap := c.Snapshot()
	require.NotNil(t, snap.LLMGenerate)
	require.NotNil(t, snap.LLMGenerate.TotalInputTokens)
	assert.Equal(t, int64(1200), *snap.LLMGenerate.TotalInputTokens)
	assert.Equal(t, int64(600), *snap.LLMGenerate.TotalOutputTokens)
	assert.Equal(t, 600.0, *snap.LLMGenerate.AvgInputTokens)
	assert.Equal(t, int64(500), *snap.LLMGenerate.MinInputTokens)
	assert.Equal(t, int64(400), *snap.LLMGenerate.MaxOutputTokens)
}

func TestCollectorStages(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpStage("extraction"), 2*time.Second)
	c.RecordTiming(OpStage("reasoning"), 5*time.Second)
	c.RecordTiming(OpStage("extraction"), 4*time.Second)

	snap := c.Snapshot()
	require.Len(t, snap.Stages, 2)
	require.Contains(t, snap.Stages, "extraction")
	assert.Equal(t, int64(2), snap.Stages["extraction"].Count)
	assert.Equal(t, int64(5000), snap.Stages["reasoning"].TotalTimeMs)
}

func TestCollectorEmptySnapshot(t *testing.T) {
	snap := NewCollector().Snapshot()
	assert.Nil(t, snap.DBQuery)
	assert.Nil(t, snap.Stages)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}
