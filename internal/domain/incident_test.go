package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpactStatus(t *testing.T) {
	tests := []struct {
		impact IncidentImpact
		want   ComponentStatus
	}{
		{IncidentImpactCritical, ComponentStatusMajorOut},
		{IncidentImpactMajor, ComponentStatusPartialOut},
		{IncidentImpactMinor, ComponentStatusDegraded},
		{IncidentImpactNone, ComponentStatusOperational},
	}

	for _, tt := range tests {
		t.Run(string(tt.impact), func(t *testing.T) {
			assert.Equal(t, tt.want, ImpactStatus(tt.impact))
		})
	}
}

func TestPlanImpactWrites_Critical(t *testing.T) {
	writes := PlanImpactWrites(IncidentImpactCritical, []string{"c1", "c2"})

	require.Len(t, writes, 2)
	assert.Equal(t, ComponentWrite{ComponentID: "c1", NewStatus: ComponentStatusMajorOut}, writes[0])
	assert.Equal(t, ComponentWrite{ComponentID: "c2", NewStatus: ComponentStatusMajorOut}, writes[1])
}

func TestPlanImpactWrites_NoneProducesNoWrites(t *testing.T) {
	// Impact none must not silently mark affected components healthy.
	assert.Empty(t, PlanImpactWrites(IncidentImpactNone, []string{"c1"}))
}

func TestPlanImpactWrites_NoComponents(t *testing.T) {
	assert.Empty(t, PlanImpactWrites(IncidentImpactCritical, nil))
}

func TestPlanImpactWrites_Idempotent(t *testing.T) {
	first := PlanImpactWrites(IncidentImpactMajor, []string{"c1"})
	second := PlanImpactWrites(IncidentImpactMajor, []string{"c1"})

	assert.Equal(t, first, second)
}

func TestApplyStatus_ResolvedStampsTimestamp(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	incident := &Incident{Status: IncidentStatusMonitoring}

	incident.ApplyStatus(IncidentStatusResolved, now)

	assert.Equal(t, IncidentStatusResolved, incident.Status)
	require.NotNil(t, incident.ResolvedAt)
	assert.Equal(t, now, *incident.ResolvedAt)
}

func TestApplyStatus_ResolvedIsIdempotent(t *testing.T) {
	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	incident := &Incident{Status: IncidentStatusMonitoring}
	incident.ApplyStatus(IncidentStatusResolved, first)
	incident.ApplyStatus(IncidentStatusResolved, later)

	require.NotNil(t, incident.ResolvedAt)
	assert.Equal(t, first, *incident.ResolvedAt, "re-resolving must keep the original timestamp")
}

func TestApplyStatus_ReopenClearsResolvedAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	incident := &Incident{Status: IncidentStatusMonitoring}
	incident.ApplyStatus(IncidentStatusResolved, now)
	incident.ApplyStatus(IncidentStatusInvestigating, now.Add(time.Minute))

	assert.Equal(t, IncidentStatusInvestigating, incident.Status)
	assert.Nil(t, incident.ResolvedAt)
}

func TestApplyStatus_NonResolvedTransitions(t *testing.T) {
	now := time.Now()
	incident := &Incident{Status: IncidentStatusInvestigating}

	incident.ApplyStatus(IncidentStatusIdentified, now)
	assert.Nil(t, incident.ResolvedAt)

	incident.ApplyStatus(IncidentStatusMonitoring, now)
	assert.Nil(t, incident.ResolvedAt)
}

func TestIncidentEnums_IsValid(t *testing.T) {
	assert.True(t, IncidentStatusInvestigating.IsValid())
	assert.True(t, IncidentStatusResolved.IsValid())
	assert.False(t, IncidentStatus("closed").IsValid())

	assert.True(t, IncidentImpactNone.IsValid())
	assert.True(t, IncidentImpactCritical.IsValid())
	assert.False(t, IncidentImpact("catastrophic").IsValid())
}
