package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampPage(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		wantPage    int
		wantPerPage int
	}{
		{name: "defaults", page: 0, perPage: 0, wantPage: 1, wantPerPage: 10},
		{name: "negative", page: -3, perPage: -3, wantPage: 1, wantPerPage: 10},
		{name: "in range", page: 2, perPage: 50, wantPage: 2, wantPerPage: 50},
		{name: "over max", page: 1, perPage: 1000, wantPage: 1, wantPerPage: 100},
		{name: "at max", page: 1, perPage: 100, wantPage: 1, wantPerPage: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, perPage := ClampPage(tt.page, tt.perPage, DefaultPerPage, MaxPerPage)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPerPage, perPage)
		})
	}
}

func TestParseSort(t *testing.T) {
	specs := ParseSort([]string{"-created_at", "message", "user.username"})
	assert.Equal(t, []SortSpec{
		{Path: "created_at", Descending: true},
		{Path: "message"},
		{Path: "user.username"},
	}, specs)
}

func TestPlanListDefaults(t *testing.T) {
	task := testEntity(t, "task")
	plan, err := PlanList(task, ListArgs{Page: 1, PerPage: 10})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT `task`.`id`, `task`.`message`, `task`.`done`, `task`.`created_at`, `task`.`done_at`, "+
			"`task`.`user_id`, `task`.`tagged_user_id` "+
			"FROM `task` ORDER BY `task`.`id` ASC LIMIT 10 OFFSET 0",
		plan.SQL)
	assert.Empty(t, plan.Args)
}

func TestPlanListPageOffset(t *testing.T) {
	task := testEntity(t, "task")
	plan, err := PlanList(task, ListArgs{Page: 3, PerPage: 20})
	require.NoError(t, err)
	assert.Contains(t, plan.SQL, "LIMIT 20 OFFSET 40")
}

func TestPlanListFilterAndSortShareJoin(t *testing.T) {
	task := testEntity(t, "task")
	plan, err := PlanList(task, ListArgs{
		Filter: []Group{{
			{Path: "user.username", Op: "eq", Value: "alice"},
		}},
		Sort:    []SortSpec{{Path: "user.username", Descending: true}},
		Page:    1,
		PerPage: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(plan.SQL, "JOIN"))
	assert.Contains(t, plan.SQL, "JOIN `user` AS `__user_1` ON `task`.`user_id` = `__user_1`.`id`")
	assert.Contains(t, plan.SQL, "WHERE (`__user_1`.`username` = ?)")
	assert.Contains(t, plan.SQL, "ORDER BY `__user_1`.`username` DESC")
	assert.Equal(t, []interface{}{"alice"}, plan.Args)
}

func TestPlanListEmptyFilterGroupDropsJoins(t *testing.T) {
	user := testEntity(t, "user")
	args := ListArgs{
		Filter: []Group{
			{{Path: "tasks.done", Op: "eq", Value: true}},
			{},
		},
		Page:    1,
		PerPage: 10,
	}

	plan, err := PlanList(user, args)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT `user`.`id`, `user`.`username` FROM `user` ORDER BY `user`.`id` ASC LIMIT 10 OFFSET 0",
		plan.SQL)
	assert.Empty(t, plan.Args)

	countPlan, err := PlanCount(user, args.Filter)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT 1 FROM `user`) AS `__count`", countPlan.SQL)
	assert.Empty(t, countPlan.Args)
}

func TestPlanListExplicitSortReplacesDefault(t *testing.T) {
	task := testEntity(t, "task")
	plan, err := PlanList(task, ListArgs{
		Sort:    []SortSpec{{Path: "created_at", Descending: true}, {Path: "id"}},
		Page:    1,
		PerPage: 10,
	})
	require.NoError(t, err)
	assert.Contains(t, plan.SQL, "ORDER BY `task`.`created_at` DESC, `task`.`id` ASC")
}

func TestPlanListInvalidSortPath(t *testing.T) {
	task := testEntity(t, "task")
	_, err := PlanList(task, ListArgs{
		Sort:    []SortSpec{{Path: "missing"}},
		Page:    1,
		PerPage: 10,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown column "missing"`)
}

func TestPlanCount(t *testing.T) {
	task := testEntity(t, "task")
	plan, err := PlanCount(task, []Group{{
		{Path: "user.username", Op: "eq", Value: "alice"},
	}})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT COUNT(*) FROM (SELECT 1 FROM `task` "+
			"JOIN `user` AS `__user_1` ON `task`.`user_id` = `__user_1`.`id` "+
			"WHERE (`__user_1`.`username` = ?)) AS `__count`",
		plan.SQL)
	assert.Equal(t, []interface{}{"alice"}, plan.Args)
}

func TestPlanCountNoFilter(t *testing.T) {
	task := testEntity(t, "task")
	plan, err := PlanCount(task, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT 1 FROM `task`) AS `__count`", plan.SQL)
	assert.Empty(t, plan.Args)

	// Ordering and paging never leak into the count.
	assert.NotContains(t, plan.SQL, "ORDER BY")
	assert.NotContains(t, plan.SQL, "LIMIT")
}
