package entityschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelql/internal/qerr"
)

func taskConfigs() []EntityConfig {
	return []EntityConfig{
		{
			Name:       "user",
			PrimaryKey: Column{Name: "id", Kind: KindInt},
			Columns: []Column{
				{Name: "username", Kind: KindString},
			},
			Relationships: []RelationshipConfig{
				{Name: "tasks", Target: "task", ToMany: true, FKColumn: "user_id"},
			},
		},
		{
			Name:       "task",
			PrimaryKey: Column{Name: "id", Kind: KindInt},
			Columns: []Column{
				{Name: "message", Kind: KindString},
				{Name: "done", Kind: KindBool, HasDefault: true},
				{Name: "created_at", Kind: KindDateTime, HasDefault: true},
				{Name: "done_at", Kind: KindDateTime, Nullable: true},
			},
			Relationships: []RelationshipConfig{
				{Name: "user", Target: "user", FKColumn: "user_id"},
				{Name: "tagged_user", Target: "user", Nullable: true, FKColumn: "tagged_user_id"},
			},
		},
	}
}

func TestBuildLinksRelationships(t *testing.T) {
	schema, err := Build(taskConfigs())
	require.NoError(t, err)

	task, ok := schema.Entity("task")
	require.True(t, ok)
	user, ok := schema.Entity("user")
	require.True(t, ok)

	rel, ok := task.Relationship("user")
	require.True(t, ok)
	assert.Same(t, user, rel.Target)
	assert.False(t, rel.ToMany)
	assert.Equal(t, "user_id", rel.FKColumn)

	tasks, ok := user.Relationship("tasks")
	require.True(t, ok)
	assert.Same(t, task, tasks.Target)
	assert.True(t, tasks.ToMany)
}

func TestBuildDefaultsTableToName(t *testing.T) {
	schema, err := Build(taskConfigs())
	require.NoError(t, err)
	task, _ := schema.Entity("task")
	assert.Equal(t, "task", task.Table)
}

func TestColumnLookupIncludesPrimaryKey(t *testing.T) {
	schema, err := Build(taskConfigs())
	require.NoError(t, err)
	task, _ := schema.Entity("task")

	pk, ok := task.Column("id")
	require.True(t, ok)
	assert.Equal(t, KindInt, pk.Kind)

	// FK columns exist only through relationships.
	_, ok = task.Column("user_id")
	assert.False(t, ok)
}

func TestSelectColumnsIncludeToOneFKs(t *testing.T) {
	schema, err := Build(taskConfigs())
	require.NoError(t, err)
	task, _ := schema.Entity("task")

	names := make([]string, 0)
	for _, col := range task.SelectColumns() {
		names = append(names, col.Name)
	}
	assert.Equal(t, []string{"id", "message", "done", "created_at", "done_at", "user_id", "tagged_user_id"}, names)
}

func TestBuildMissingPrimaryKey(t *testing.T) {
	_, err := Build([]EntityConfig{{Name: "color"}})
	require.Error(t, err)
	assert.True(t, qerr.IsSchema(err))
	assert.Contains(t, err.Error(), "no primary key")
}

func TestBuildUnknownRelationshipTarget(t *testing.T) {
	_, err := Build([]EntityConfig{
		{
			Name:       "task",
			PrimaryKey: Column{Name: "id", Kind: KindInt},
			Relationships: []RelationshipConfig{
				{Name: "owner", Target: "person", FKColumn: "person_id"},
			},
		},
	})
	require.Error(t, err)
	assert.True(t, qerr.IsSchema(err))
	assert.Contains(t, err.Error(), "unknown entity")
}

func TestBuildDuplicateColumn(t *testing.T) {
	_, err := Build([]EntityConfig{
		{
			Name:       "task",
			PrimaryKey: Column{Name: "id", Kind: KindInt},
			Columns: []Column{
				{Name: "message", Kind: KindString},
				{Name: "message", Kind: KindString},
			},
		},
	})
	require.Error(t, err)
	assert.True(t, qerr.IsSchema(err))
}
