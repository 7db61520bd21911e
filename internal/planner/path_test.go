package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelql/internal/entityschema"
	"modelql/internal/qerr"
)

func TestResolvePathRootColumn(t *testing.T) {
	jc := NewJoinContext(testEntity(t, "task"))

	ref, err := jc.ResolvePath("message")
	require.NoError(t, err)
	assert.Equal(t, "`task`.`message`", ref.Qualified)
	assert.Equal(t, entityschema.KindString, ref.Column.Kind)
	assert.Empty(t, jc.Joins())
}

func TestResolvePathToOneJoin(t *testing.T) {
	jc := NewJoinContext(testEntity(t, "task"))

	ref, err := jc.ResolvePath("user.username")
	require.NoError(t, err)
	assert.Equal(t, "`__user_1`.`username`", ref.Qualified)

	joins := jc.Joins()
	require.Len(t, joins, 1)
	assert.Equal(t, "`user` AS `__user_1` ON `task`.`user_id` = `__user_1`.`id`", joins[0].Clause)
}

func TestResolvePathToManyJoin(t *testing.T) {
	jc := NewJoinContext(testEntity(t, "user"))

	ref, err := jc.ResolvePath("tasks.message")
	require.NoError(t, err)
	assert.Equal(t, "`__tasks_1`.`message`", ref.Qualified)

	joins := jc.Joins()
	require.Len(t, joins, 1)
	assert.Equal(t, "`task` AS `__tasks_1` ON `user`.`id` = `__tasks_1`.`user_id`", joins[0].Clause)
}

func TestResolvePathReusesJoinForEqualPaths(t *testing.T) {
	jc := NewJoinContext(testEntity(t, "task"))

	first, err := jc.ResolvePath("user.username")
	require.NoError(t, err)
	second, err := jc.ResolvePath("user.id")
	require.NoError(t, err)

	assert.Equal(t, "`__user_1`.`username`", first.Qualified)
	assert.Equal(t, "`__user_1`.`id`", second.Qualified)
	assert.Len(t, jc.Joins(), 1)
}

func TestResolvePathDistinctPathsGetDistinctAliases(t *testing.T) {
	jc := NewJoinContext(testEntity(t, "task"))

	user, err := jc.ResolvePath("user.username")
	require.NoError(t, err)
	tagged, err := jc.ResolvePath("tagged_user.username")
	require.NoError(t, err)

	assert.Equal(t, "`__user_1`.`username`", user.Qualified)
	assert.Equal(t, "`__tagged_user_2`.`username`", tagged.Qualified)
	assert.Len(t, jc.Joins(), 2)
}

func TestResolvePathMultiHop(t *testing.T) {
	jc := NewJoinContext(testEntity(t, "task"))

	ref, err := jc.ResolvePath("user.tasks.message")
	require.NoError(t, err)
	assert.Equal(t, "`__tasks_2`.`message`", ref.Qualified)

	joins := jc.Joins()
	require.Len(t, joins, 2)
	assert.Equal(t, "`user` AS `__user_1` ON `task`.`user_id` = `__user_1`.`id`", joins[0].Clause)
	assert.Equal(t, "`task` AS `__tasks_2` ON `__user_1`.`id` = `__tasks_2`.`user_id`", joins[1].Clause)

	// A longer path sharing the prefix reuses both joins.
	_, err = jc.ResolvePath("user.tasks.done")
	require.NoError(t, err)
	assert.Len(t, jc.Joins(), 2)
}

func TestResolvePathErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "unknown column", path: "missing", want: `unknown column "missing"`},
		{name: "unknown relationship", path: "owner.username", want: `unknown relationship "owner"`},
		{name: "column used as relationship", path: "message.id", want: `unknown relationship "message"`},
		{name: "unknown nested column", path: "user.missing", want: `unknown column "missing"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jc := NewJoinContext(testEntity(t, "task"))
			_, err := jc.ResolvePath(tt.path)
			require.Error(t, err)
			assert.True(t, qerr.IsSchema(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
