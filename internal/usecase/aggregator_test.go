package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

var testWindow = domain.TimeWindow{
	Start: time.UnixMilli(1_700_000_000_000),
	End:   time.UnixMilli(1_700_003_600_000),
}

func TestAggregate_SignificanceThreshold(t *testing.T) {
	source := &mockUsageSource{
		aggregated: map[string]domain.UsageRecord{
			"com.example.zero":    record("com.example.zero", 0, 10),
			"com.example.at":      record("com.example.at", 1000, 10),
			"com.example.above":   record("com.example.above", 1001, 10),
			"com.example.minutes": record("com.example.minutes", 300_000, 10),
		},
	}
	agg := NewAggregator(allowedGate(), source, &mockRegistry{}, zapNop)

	summaries, err := agg.Aggregate(context.Background(), testWindow)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"com.example.above", "com.example.minutes"}, packageIDs(summaries))
	for _, s := range summaries {
		assert.Greater(t, s.TotalForegroundMs, domain.SignificanceThresholdMs)
	}
}

func TestAggregate_PassesWindowToSource(t *testing.T) {
	source := &mockUsageSource{}
	agg := NewAggregator(allowedGate(), source, &mockRegistry{}, zapNop)

	_, err := agg.Aggregate(context.Background(), testWindow)

	require.NoError(t, err)
	assert.Equal(t, 1, source.aggregatedCalls)
	assert.Equal(t, 0, source.granularCalls)
	assert.True(t, testWindow.Start.Equal(source.lastStart))
	assert.True(t, testWindow.End.Equal(source.lastEnd))
}

func TestAggregate_ResolvesDisplayNames(t *testing.T) {
	source := &mockUsageSource{
		aggregated: map[string]domain.UsageRecord{
			"com.example.notes":   record("com.example.notes", 5000, 10),
			"com.example.removed": record("com.example.removed", 5000, 10),
		},
	}
	registry := &mockRegistry{
		apps: []domain.ApplicationInfo{{PackageID: "com.example.notes", DisplayName: "Notes"}},
	}
	agg := NewAggregator(allowedGate(), source, registry, zapNop)

	summaries, err := agg.Aggregate(context.Background(), testWindow)

	require.NoError(t, err)
	names := map[string]string{}
	for _, s := range summaries {
		names[s.PackageID] = s.AppName
	}
	assert.Equal(t, "Notes", names["com.example.notes"])
	assert.Equal(t, "com.example.removed", names["com.example.removed"], "uninstalled app falls back to package id")
}

func TestAggregate_RegistryErrorDoesNotAbortBatch(t *testing.T) {
	source := &mockUsageSource{
		aggregated: map[string]domain.UsageRecord{
			"com.example.a": record("com.example.a", 5000, 10),
			"com.example.b": record("com.example.b", 5000, 10),
		},
	}
	registry := &mockRegistry{lookupErr: errors.New("registry unavailable")}
	agg := NewAggregator(allowedGate(), source, registry, zapNop)

	summaries, err := agg.Aggregate(context.Background(), testWindow)

	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.Equal(t, s.PackageID, s.AppName)
	}
	assert.Equal(t, 2, registry.lookups)
}

func TestAggregate_CopiesRecordFields(t *testing.T) {
	source := &mockUsageSource{
		aggregated: map[string]domain.UsageRecord{
			"com.example.a": {
				PackageID:         "com.example.a",
				TotalForegroundMs: 4200,
				FirstTimestamp:    100,
				LastTimestamp:     900,
				LastTimeUsed:      850,
			},
		},
	}
	agg := NewAggregator(allowedGate(), source, nil, zapNop)

	summaries, err := agg.Aggregate(context.Background(), testWindow)

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, domain.UsageSummary{
		PackageID:         "com.example.a",
		AppName:           "com.example.a",
		TotalForegroundMs: 4200,
		FirstTimestamp:    100,
		LastTimestamp:     900,
		LastTimeUsed:      850,
	}, summaries[0])
}

func TestAggregate_PermissionDenied(t *testing.T) {
	source := &mockUsageSource{}
	agg := NewAggregator(deniedGate(), source, &mockRegistry{}, zapNop)

	summaries, err := agg.Aggregate(context.Background(), testWindow)

	assert.Nil(t, summaries)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.Equal(t, domain.CodeNoPermission, domain.CodeOf(err))
	assert.Equal(t, 0, source.calls())
}

func TestAggregate_SourceFailure(t *testing.T) {
	cause := errors.New("database is locked")
	source := &mockUsageSource{err: cause}
	agg := NewAggregator(allowedGate(), source, &mockRegistry{}, zapNop)

	_, err := agg.Aggregate(context.Background(), testWindow)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceQuery)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, domain.CodeGetUsageStats, domain.CodeOf(err))
}

func TestAggregate_EmptyIsSuccess(t *testing.T) {
	agg := NewAggregator(allowedGate(), &mockUsageSource{}, &mockRegistry{}, zapNop)

	summaries, err := agg.Aggregate(context.Background(), testWindow)

	require.NoError(t, err)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}

func TestAggregate_VisibleTimeFollowsCapability(t *testing.T) {
	rec := record("com.example.a", 5000, 10)
	rec.TotalVisibleMs = int64Ptr(7000)

	tests := []struct {
		name        string
		visibleTime bool
		want        *int64
	}{
		{name: "supported", visibleTime: true, want: int64Ptr(7000)},
		{name: "unsupported", visibleTime: false, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &mockUsageSource{
				aggregated:  map[string]domain.UsageRecord{"com.example.a": rec},
				visibleTime: tt.visibleTime,
			}
			agg := NewAggregator(allowedGate(), source, nil, zapNop)

			summaries, err := agg.Aggregate(context.Background(), testWindow)

			require.NoError(t, err)
			require.Len(t, summaries, 1)
			assert.Equal(t, tt.want, summaries[0].TotalVisibleMs)
		})
	}
}
