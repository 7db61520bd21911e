package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanToOnePrefetch(t *testing.T) {
	task := testEntity(t, "task")
	rel, ok := task.Relationship("user")
	require.True(t, ok)

	plan, err := PlanToOnePrefetch(rel, []interface{}{1, 2, 2, 7})
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id`, `username` FROM `user` WHERE `id` IN (?,?,?,?)", plan.SQL)
	assert.Equal(t, []interface{}{1, 2, 2, 7}, plan.Args)
}

func TestPlanToManyPrefetch(t *testing.T) {
	user := testEntity(t, "user")
	rel, ok := user.Relationship("tasks")
	require.True(t, ok)

	plan, err := PlanToManyPrefetch(rel, []interface{}{1, 2})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT `id`, `message`, `done`, `created_at`, `done_at`, `user_id`, `tagged_user_id` "+
			"FROM `task` WHERE `user_id` IN (?,?) ORDER BY `user_id` ASC, `id` ASC",
		plan.SQL)
	assert.Equal(t, []interface{}{1, 2}, plan.Args)
}

func TestPlanPrefetchEmptyKeys(t *testing.T) {
	task := testEntity(t, "task")
	user := testEntity(t, "user")

	toOne, _ := task.Relationship("user")
	_, err := PlanToOnePrefetch(toOne, nil)
	require.Error(t, err)

	toMany, _ := user.Relationship("tasks")
	_, err = PlanToManyPrefetch(toMany, nil)
	require.Error(t, err)
}
