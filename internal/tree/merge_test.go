package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shape renders the nesting of a forest as a string of names and brackets.
func shape(nodes []*Node) string {
	s := ""
	for _, n := range nodes {
		s += n.Name + "[" + shape(n.Children) + "]"
	}
	return s
}

func TestMergeUserIntoDefault_CopiesDefinedFields(t *testing.T) {
	overlay := []*Node{{
		Name: "All Site Groups",
		Children: []*Node{{
			Name: "Huzaifa",
			Children: []*Node{{
				Name: "Hive X",
				Children: []*Node{
					{Name: "Hive 117", ID: "dev-117", MaxAlarmSeverity: SeverityPtr(SeverityInfo)},
					{Name: "Hive 120", Value: "v-120", Icon: "custom.svg"},
				},
			}},
		}},
	}}

	merged := MergeUserIntoDefault(DefaultTree(), overlay)

	h117 := FindByPath(merged, []string{"All Site Groups", "Huzaifa", "Hive X", "Hive 117"})
	require.NotNil(t, h117)
	assert.Equal(t, "dev-117", h117.ID)
	assert.Equal(t, "117", h117.Value, "overlay without value keeps the baseline value")
	require.NotNil(t, h117.MaxAlarmSeverity)
	assert.Equal(t, SeverityInfo, *h117.MaxAlarmSeverity, "an explicit 0 is still a value")

	h120 := FindByPath(merged, []string{"All Site Groups", "Huzaifa", "Hive X", "Hive 120"})
	require.NotNil(t, h120)
	assert.Equal(t, "v-120", h120.Value)
	assert.Equal(t, SeverityCritical, *h120.MaxAlarmSeverity, "overlay never erases by omission")
	assert.Equal(t, "custom.svg", h120.Icon)
}

func TestMergeUserIntoDefault_PreservesBaselineShape(t *testing.T) {
	overlays := map[string][]*Node{
		"empty": nil,
		"unrelated": {
			{Name: "Somewhere Else", Children: []*Node{{Name: "X"}}},
		},
		"extra children": {
			{Name: "All Site Groups", Children: []*Node{
				{Name: "Eastern Region", Children: []*Node{{Name: "New Site", ID: "n1"}}},
				{Name: "Brand New Region"},
			}},
		},
		"same name, wrong depth": {
			{Name: "Hive X", MaxAlarmSeverity: SeverityPtr(SeverityNormal)},
		},
	}

	baseline := DefaultTree()
	for name, overlay := range overlays {
		t.Run(name, func(t *testing.T) {
			merged := MergeUserIntoDefault(baseline, overlay)
			assert.Equal(t, shape(baseline), shape(merged))
			assert.Equal(t, Count(baseline), Count(merged))
			assert.Equal(t, Depth(baseline), Depth(merged))
		})
	}

	merged := MergeUserIntoDefault(baseline, overlays["same name, wrong depth"])
	hiveX := FindByPath(merged, []string{"All Site Groups", "Huzaifa", "Hive X"})
	assert.Equal(t, SeverityCritical, *hiveX.MaxAlarmSeverity, "matching is by full path, not name")
}

func TestMergeUserIntoDefault_BlankSeverityKeepsBaseline(t *testing.T) {
	records, err := DecodeRecords(`[{"name":"All Site Groups","children":[{"name":"Huzaifa","children":[
		{"name":"Hive X","children":[{"name":"Hive 117","maxAlarmSeverity":""},{"name":"Hive 120","maxAlarmSeverity":" "}]}
	]}]}]`)
	require.NoError(t, err)

	merged := MergeUserIntoDefault(DefaultTree(), NodesFromRecords(records))

	for _, name := range []string{"Hive 117", "Hive 120"} {
		n := FindByPath(merged, []string{"All Site Groups", "Huzaifa", "Hive X", name})
		require.NotNil(t, n, name)
		require.NotNil(t, n.MaxAlarmSeverity, name)
		assert.Equal(t, SeverityCritical, *n.MaxAlarmSeverity, name)
	}
}

func TestMergeUserIntoDefault_EmptyOverlayEqualsBaseline(t *testing.T) {
	baseline := DefaultTree()
	assert.Equal(t, baseline, MergeUserIntoDefault(baseline, nil))
	assert.Equal(t, baseline, MergeUserIntoDefault(baseline, []*Node{}))
}

func TestMergeUserIntoDefault_LastDuplicateWins(t *testing.T) {
	baseline := []*Node{{Name: "A"}}
	overlay := []*Node{{Name: "A", ID: "first"}, {Name: "A", ID: "second"}}

	merged := MergeUserIntoDefault(baseline, overlay)
	assert.Equal(t, "second", merged[0].ID)
}

func TestMergeUserIntoDefault_DoesNotMutateInputs(t *testing.T) {
	baseline := DefaultTree()
	before := CloneAll(baseline)
	overlay := []*Node{{Name: "All Site Groups", ID: "root", MaxAlarmSeverity: SeverityPtr(SeverityMajor)}}

	merged := MergeUserIntoDefault(baseline, overlay)
	merged[0].Children[0].Name = "mutated"
	*merged[0].MaxAlarmSeverity = SeverityInfo

	assert.Equal(t, before, baseline)
	assert.Equal(t, SeverityMajor, *overlay[0].MaxAlarmSeverity)
}
