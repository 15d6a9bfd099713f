package tree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGraft(t *testing.T, nodes []*Node, devices []Device) []*Node {
	t.Helper()
	out, err := GraftDevices(nodes, devices)
	require.NoError(t, err)
	return out
}

func TestGraftDevices_BackfillsFromChildDevices(t *testing.T) {
	nodes := []*Node{{Name: "Region", Children: []*Node{{Name: "Parent", ID: "p1"}}}}
	devices := []Device{{ID: "d1", Name: "Leaf", ParentID: "p1", MaxAlarmSeverity: SeverityPtr(SeverityMajor)}}

	out := mustGraft(t, nodes, devices)

	parent := FindByPath(out, []string{"Region", "Parent"})
	require.NotNil(t, parent)
	require.NotNil(t, parent.MaxAlarmSeverity)
	assert.Equal(t, SeverityMajor, *parent.MaxAlarmSeverity)
	require.Len(t, parent.Children, 1)

	leaf := parent.Children[0]
	assert.Equal(t, "Leaf", leaf.Name)
	assert.Equal(t, "d1", leaf.ID)
	assert.Equal(t, "d1", leaf.Value)
	assert.Equal(t, SeverityMajor, *leaf.MaxAlarmSeverity)

	assert.Nil(t, FindByPath(out, []string{"Region"}).MaxAlarmSeverity, "backfill only looks at direct child devices")
}

func TestGraftDevices_BackfillTakesHighestValid(t *testing.T) {
	nodes := []*Node{{Name: "Parent", ID: "p"}}
	devices := []Device{
		{ID: "a", Name: "A", ParentID: "p", MaxAlarmSeverity: SeverityPtr(SeverityWarning)},
		{ID: "b", Name: "B", ParentID: "p", MaxAlarmSeverity: SeverityPtr(severityInvalid)},
		{ID: "c", Name: "C", ParentID: "p", MaxAlarmSeverity: SeverityPtr(SeverityCritical)},
		{ID: "d", Name: "D", ParentID: "p"},
	}

	out := mustGraft(t, nodes, devices)
	assert.Equal(t, SeverityCritical, *out[0].MaxAlarmSeverity)
	assert.Len(t, out[0].Children, 4)
}

func TestGraftDevices_BackfillNeverOverwrites(t *testing.T) {
	for _, explicit := range []Severity{SeverityInfo, SeverityNormal, SeverityCritical} {
		nodes := []*Node{{Name: "Parent", ID: "p", MaxAlarmSeverity: SeverityPtr(explicit)}}
		devices := []Device{{ID: "c", Name: "C", ParentID: "p", MaxAlarmSeverity: SeverityPtr(SeverityMajor)}}

		out := mustGraft(t, nodes, devices)
		assert.Equal(t, explicit, *out[0].MaxAlarmSeverity)
	}
}

func TestGraftDevices_SelfMatchOverwrites(t *testing.T) {
	nodes := []*Node{{Name: "Site", ID: "s1", MaxAlarmSeverity: SeverityPtr(SeverityInfo)}}

	out := mustGraft(t, nodes, []Device{{ID: "s1", Name: "ignored", MaxAlarmSeverity: SeverityPtr(SeverityMinor)}})
	assert.Equal(t, SeverityMinor, *out[0].MaxAlarmSeverity)
	assert.Equal(t, "Site", out[0].Name)

	out = mustGraft(t, nodes, []Device{{ID: "s1", Name: "no severity"}})
	assert.Equal(t, SeverityInfo, *out[0].MaxAlarmSeverity, "a device without severity leaves the node alone")
}

func TestGraftDevices_UpdatesExistingChild(t *testing.T) {
	nodes := []*Node{{
		Name: "Parent",
		ID:   "p",
		Children: []*Node{
			{Name: "By Name"},
			{Name: "By ID", ID: "d2", Value: "keep"},
			{Name: "By Value", Value: "d3"},
		},
	}}
	devices := []Device{
		{ID: "d1", Name: "By Name", ParentID: "p", MaxAlarmSeverity: SeverityPtr(SeverityWarning)},
		{ID: "d2", Name: "Renamed", ParentID: "p", Value: "other", MaxAlarmSeverity: SeverityPtr(SeverityMinor)},
		{ID: "d3", Name: "Also Renamed", ParentID: "p"},
	}

	out := mustGraft(t, nodes, devices)
	children := out[0].Children
	require.Len(t, children, 3, "no child is duplicated")

	assert.Equal(t, "d1", children[0].ID, "id filled when absent")
	assert.Equal(t, "d1", children[0].Value, "value filled when absent")
	assert.Equal(t, SeverityWarning, *children[0].MaxAlarmSeverity)

	assert.Equal(t, "keep", children[1].Value, "existing value is kept")
	assert.Equal(t, SeverityMinor, *children[1].MaxAlarmSeverity)

	assert.Equal(t, "d3", children[2].ID)
	assert.Nil(t, children[2].MaxAlarmSeverity)
}

func TestGraftDevices_RepeatedDeviceUpdatesGraftedLeaf(t *testing.T) {
	nodes := []*Node{{Name: "Parent", ID: "p"}}
	devices := []Device{
		{ID: "d1", Name: "Leaf", ParentID: "p", MaxAlarmSeverity: SeverityPtr(SeverityNormal)},
		{ID: "d1", Name: "Leaf", ParentID: "p", MaxAlarmSeverity: SeverityPtr(SeverityMajor)},
	}

	out := mustGraft(t, nodes, devices)
	require.Len(t, out[0].Children, 1)
	assert.Equal(t, SeverityMajor, *out[0].Children[0].MaxAlarmSeverity)
}

func TestGraftDevices_RecursesIntoGraftedChildren(t *testing.T) {
	nodes := []*Node{{Name: "Root", ID: "r"}}
	devices := []Device{
		{ID: "gw", Name: "Gateway", ParentID: "r"},
		{ID: "sensor", Name: "Sensor", ParentID: "gw", MaxAlarmSeverity: SeverityPtr(SeverityCritical)},
	}

	out := mustGraft(t, nodes, devices)
	gw := FindByPath(out, []string{"Root", "Gateway"})
	require.NotNil(t, gw)
	require.Len(t, gw.Children, 1)
	assert.Equal(t, SeverityCritical, *gw.MaxAlarmSeverity)
	assert.Nil(t, out[0].MaxAlarmSeverity, "gateway device itself had no severity")
}

func TestGraftDevices_EmptyIdentifiersNeverMatch(t *testing.T) {
	nodes := []*Node{{Name: "No ID", Children: []*Node{{Name: "Child"}}}}
	devices := []Device{
		{Name: "Floating", MaxAlarmSeverity: SeverityPtr(SeverityCritical)},
		{ID: "x", Name: "Top level", MaxAlarmSeverity: SeverityPtr(SeverityCritical)},
	}

	out := mustGraft(t, nodes, devices)
	assert.Equal(t, 2, Count(out))
	assert.Nil(t, out[0].MaxAlarmSeverity)
	assert.Nil(t, out[0].Children[0].MaxAlarmSeverity)
}

func TestGraftDevices_CarriesLocations(t *testing.T) {
	lat, lng := 40.0, -70.0
	loc := &Location{Latitude: &lat, Longitude: &lng, Country: "US"}
	nodes := []*Node{{Name: "Parent", ID: "p", Children: []*Node{{Name: "Known"}}}}
	devices := []Device{
		{ID: "k", Name: "Known", ParentID: "p", Location: loc},
		{ID: "n", Name: "New", ParentID: "p", Location: loc},
	}

	out := mustGraft(t, nodes, devices)
	for _, c := range out[0].Children {
		require.NotNil(t, c.Location, c.Name)
		assert.True(t, c.Location.HasCoordinates())
	}
	lat = 0
	assert.InDelta(t, 40.0, *out[0].Children[1].Location.Latitude, 1e-9, "locations are copied")
}

func TestGraftDevices_DoesNotMutateInput(t *testing.T) {
	nodes := []*Node{{Name: "Parent", ID: "p", Children: []*Node{{Name: "Child"}}}}
	before := CloneAll(nodes)

	_ = mustGraft(t, nodes, []Device{
		{ID: "c", Name: "Child", ParentID: "p", MaxAlarmSeverity: SeverityPtr(SeverityMajor)},
		{ID: "n", Name: "New", ParentID: "p"},
	})

	assert.Equal(t, before, nodes)
}

func TestGraftDevices_SelfParentedDeviceIsCyclic(t *testing.T) {
	nodes := []*Node{{Name: "Site", ID: "s"}}

	_, err := GraftDevices(nodes, []Device{{ID: "s", Name: "Loop", ParentID: "s"}})
	require.ErrorIs(t, err, ErrCyclicStructure)
}

func TestGraftDevices_DeviceLoopIsCyclic(t *testing.T) {
	nodes := []*Node{{Name: "All Site Groups", ID: "root"}}
	devices := []Device{
		{ID: "x", Name: "X", ParentID: "root"},
		{ID: "x2", Name: "X2", ParentID: "x"},
		{ID: "x", Name: "X again", ParentID: "x2"},
	}

	_, err := GraftDevices(nodes, devices)
	require.ErrorIs(t, err, ErrCyclicStructure)
}

func TestGraftDevices_RepeatedIDOffPathIsFine(t *testing.T) {
	nodes := []*Node{
		{Name: "A", ID: "a"},
		{Name: "B", ID: "b"},
	}
	devices := []Device{
		{ID: "shared", Name: "Shared", ParentID: "a"},
		{ID: "shared", Name: "Shared", ParentID: "b"},
	}

	out := mustGraft(t, nodes, devices)
	assert.Len(t, out[0].Children, 1)
	assert.Len(t, out[1].Children, 1)
}

func TestGraftDevices_DeepDeviceChainTooDeep(t *testing.T) {
	nodes := []*Node{{Name: "Root", ID: "d0"}}
	devices := make([]Device, 0, MaxDepth+1)
	for i := 1; i <= MaxDepth+1; i++ {
		devices = append(devices, Device{
			ID:       fmt.Sprintf("d%d", i),
			Name:     fmt.Sprintf("D%d", i),
			ParentID: fmt.Sprintf("d%d", i-1),
		})
	}

	_, err := GraftDevices(nodes, devices)
	require.ErrorIs(t, err, ErrTreeTooDeep)
}
