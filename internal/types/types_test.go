package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/gotoinstr/internal/program"
)

func TestSeverityText(t *testing.T) {
	t.Parallel()
	for _, s := range []Severity{SeverityError, SeverityWarning, SeverityInfo, SeverityOff} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back Severity
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	var s Severity
	assert.Error(t, s.UnmarshalText([]byte("fatal")))
	assert.Equal(t, "unknown", Severity(42).String())

	var rules map[string]ConfigRule
	require.NoError(t, yaml.Unmarshal([]byte("basic-block:\n  severity: Warning\n"), &rules))
	assert.Equal(t, SeverityWarning, rules[RuleBasicBlock].Severity)
}

func TestCollector(t *testing.T) {
	t.Parallel()
	var c Collector
	c.Report(Issue{Rule: RuleBasicBlock, Block: 0})
	c.Report(Issue{Rule: RuleBlockAnomaly, Block: 1})
	c.Report(Issue{Rule: RuleBasicBlock, Block: 1})

	assert.Len(t, c.Issues(), 3)
	blocks := c.Filter(RuleBasicBlock)
	require.Len(t, blocks, 2)
	assert.Equal(t, 1, blocks[1].Block)
	assert.Empty(t, c.Filter(RuleRestrictedCall))
}

func TestSeverityFilter(t *testing.T) {
	t.Parallel()
	var c Collector
	f := SeverityFilter{
		Rules: map[string]ConfigRule{
			RuleBasicBlock:   {Severity: SeverityOff},
			RuleBlockAnomaly: {Severity: SeverityError},
		},
		Next: &c,
	}

	f.Report(Issue{Rule: RuleBasicBlock, Severity: SeverityInfo})
	f.Report(Issue{Rule: RuleBlockAnomaly, Severity: SeverityWarning})
	f.Report(Issue{Rule: RuleRestrictedCall, Severity: SeverityInfo})

	issues := c.Issues()
	require.Len(t, issues, 2)
	assert.Equal(t, SeverityError, issues[0].Severity)
	assert.Equal(t, SeverityInfo, issues[1].Severity)
}

func TestLoggerSink(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	sink := LoggerSink{Logger: zap.New(core)}

	sink.Report(Issue{
		Rule:     RuleBlockAnomaly,
		Severity: SeverityWarning,
		Function: "main",
		Block:    2,
		Message:  "ignoring block 2 location 7: missing source location",
		Location: program.Location{File: "main.c", Line: 9},
	})
	sink.Report(Issue{Rule: RuleBasicBlock, Severity: SeverityOff, Message: "dropped"})
	LoggerSink{}.Report(Issue{Message: "no logger"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "ignoring block 2 location 7: missing source location", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "main", fields["function"])
	assert.Equal(t, int64(2), fields["block"])
	assert.Equal(t, RuleBlockAnomaly, fields["rule"])
}
