package wiql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_Default(t *testing.T) {
	got := NewBuilder().Build()
	assert.Equal(t, "SELECT [System.Id] FROM workitems WHERE [System.TeamProject] = @project", got)
}

func TestBuilder_CrossProjectsWithoutClauses(t *testing.T) {
	got := NewBuilder().CrossProjects(true).Build()
	assert.Equal(t, "SELECT [System.Id] FROM workitems", got)
}

func TestBuilder_AllClauses(t *testing.T) {
	modified := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	b := NewBuilder().
		ExcludeStatuses("Closed", "Removed").
		WorkItemTypes("Bug", "User Story").
		ModifiedAfter(&modified).
		CreatedAfter(&created).
		IDs("1", "2", "3")

	want := "SELECT [System.Id] FROM workitems WHERE [System.TeamProject] = @project" +
		" AND [State] <> 'Closed' AND [State] <> 'Removed'" +
		" AND ([System.WorkItemType] = 'Bug' OR [System.WorkItemType] = 'User Story')" +
		" AND [System.ChangedDate] >= '2024-03-01T10:30:00Z'" +
		" AND [System.CreatedDate] >= '2024-02-01T00:00:00Z'" +
		" AND [System.Id] IN (1,2,3)"

	assert.Equal(t, want, b.Build())
	assert.True(t, b.NeedsTime())
}

func TestBuilder_DeduplicatesAndEscapes(t *testing.T) {
	got := NewBuilder().
		CrossProjects(true).
		WorkItemTypes("Task", "Task").
		ExcludeStatuses("Won't Fix", "Won't Fix").
		Build()

	assert.Equal(t, "SELECT [System.Id] FROM workitems WHERE [State] <> 'Won''t Fix' AND ([System.WorkItemType] = 'Task')", got)
}

func TestBuilder_IgnoresNonNumericIDs(t *testing.T) {
	got := NewBuilder().CrossProjects(true).IDs("10", "x) OR (1=1", " 12 ").Build()
	assert.Equal(t, "SELECT [System.Id] FROM workitems WHERE [System.Id] IN (10,12)", got)
}

func TestBuilder_NeedsTime(t *testing.T) {
	assert.False(t, NewBuilder().IDs("1").NeedsTime())

	now := time.Now()
	assert.True(t, NewBuilder().CreatedAfter(&now).NeedsTime())
}

func TestBuilder_ModifiedSinceConvertedToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	since := time.Date(2024, 5, 10, 12, 0, 0, 0, loc)

	got := NewBuilder().CrossProjects(true).ModifiedAfter(&since).Build()
	assert.Equal(t, "SELECT [System.Id] FROM workitems WHERE [System.ChangedDate] >= '2024-05-10T09:00:00Z'", got)
}

func TestLinksBuilder(t *testing.T) {
	tests := []struct {
		name string
		b    *LinksBuilder
		want string
	}{
		{
			name: "root only",
			b:    NewLinksBuilder("42"),
			want: "SELECT [System.Id] FROM WorkItemLinks WHERE ([System.Links.LinkType] = 'System.LinkTypes.Hierarchy-Forward'" +
				" AND Source.[System.Id] = 42) MODE (Recursive)",
		},
		{
			name: "with filters",
			b:    NewLinksBuilder("42").ExcludeStatuses("Closed", "Removed").WorkItemTypes("Feature", "Task"),
			want: "SELECT [System.Id] FROM WorkItemLinks WHERE ([System.Links.LinkType] = 'System.LinkTypes.Hierarchy-Forward'" +
				" AND Source.[System.Id] = 42" +
				" AND (Target.[State] <> 'Closed' AND Target.[State] <> 'Removed')" +
				" AND (Target.[System.WorkItemType] = 'Feature' OR Target.[System.WorkItemType] = 'Task')) MODE (Recursive)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.b.Build())
			assert.False(t, tt.b.NeedsTime())
		})
	}
}
