package services

import (
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskhub/backend/models"
)

func TestQueryService_ListProjectsScoping(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	adminA := f.seedUser(t, models.RoleAdmin).Identity()
	adminB := f.seedUser(t, models.RoleAdmin).Identity()
	member := f.seedUser(t, models.RoleMember)

	pa, err := f.projects.Create(ctx, adminA, "Website Relaunch", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.projects.Create(ctx, adminB, "Billing Revamp", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.projects.AddMember(ctx, adminA, pa.ID.Hex(), member.ID.Hex()); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	listA, err := f.query.ListProjects(ctx, adminA, "")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(listA) != 1 || listA[0].ID != pa.ID {
		t.Fatalf("admin A sees %d projects, want only their own", len(listA))
	}

	listM, err := f.query.ListProjects(ctx, member.Identity(), "")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(listM) != 1 || listM[0].ID != pa.ID {
		t.Fatalf("member sees %d projects, want only memberships", len(listM))
	}
}

func TestQueryService_ListProjectsSearch(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	admin := f.seedUser(t, models.RoleAdmin).Identity()

	for _, title := range []string{"Website Relaunch", "Internal Website", "Billing Revamp"} {
		if _, err := f.projects.Create(ctx, admin, title, ""); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := f.query.ListProjects(ctx, admin, "webSITE")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("case-insensitive search matched %d, want 2", len(got))
	}

	// Regex metacharacters in the search term are literal text.
	got, err = f.query.ListProjects(ctx, admin, "relaunch.*")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("metacharacters matched %d projects, want 0", len(got))
	}
}

func TestQueryService_ListTasksCapAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	admin := f.seedUser(t, models.RoleAdmin).Identity()
	member := f.seedUser(t, models.RoleMember)

	project, err := f.projects.Create(ctx, admin, "Big Project", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Insert directly with controlled timestamps so the ordering
	// assertion is deterministic.
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		task := models.Task{
			ID:        primitive.NewObjectID(),
			Title:     fmt.Sprintf("task-%02d", i),
			ProjectID: project.ID,
			Status:    models.TaskTodo,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i%2 == 0 {
			task.AssignedTo = &member.ID
		}
		if _, err := f.tasks.TasksCollection.InsertOne(ctx, task); err != nil {
			t.Fatalf("insert task: %v", err)
		}
	}

	adminList, err := f.query.ListTasks(ctx, admin)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(adminList) != 10 {
		t.Fatalf("admin list = %d tasks, want capped at 10", len(adminList))
	}
	if adminList[0].Title != "task-11" {
		t.Fatalf("first task = %s, want most recent", adminList[0].Title)
	}
	for i := 1; i < len(adminList); i++ {
		if adminList[i].CreatedAt.After(adminList[i-1].CreatedAt) {
			t.Fatal("tasks not in most-recent-first order")
		}
	}

	memberList, err := f.query.ListTasks(ctx, member.Identity())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(memberList) != 6 {
		t.Fatalf("member list = %d tasks, want 6 assigned", len(memberList))
	}
	for _, task := range memberList {
		if !task.IsAssignedTo(member.ID) {
			t.Fatalf("member sees unassigned task %s", task.Title)
		}
	}
}

func TestQueryService_DashboardCounts(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	adminA := f.seedUser(t, models.RoleAdmin).Identity()
	adminB := f.seedUser(t, models.RoleAdmin).Identity()
	member := f.seedUser(t, models.RoleMember)

	p1, err := f.projects.Create(ctx, adminA, "P1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.projects.Create(ctx, adminA, "P2", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	pb, err := f.projects.Create(ctx, adminB, "PB", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.projects.AddMember(ctx, adminA, p1.ID.Hex(), member.ID.Hex()); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	// 5 tasks system-wide: 3 in A's projects (2 assigned to the member),
	// 2 in B's project.
	for i := 0; i < 2; i++ {
		if _, err := f.tasks.Create(ctx, adminA, p1.ID.Hex(), "t", member.ID.Hex()); err != nil {
			t.Fatalf("Create task: %v", err)
		}
	}
	if _, err := f.tasks.Create(ctx, adminA, p1.ID.Hex(), "t", ""); err != nil {
		t.Fatalf("Create task: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.tasks.Create(ctx, adminB, pb.ID.Hex(), "t", ""); err != nil {
			t.Fatalf("Create task: %v", err)
		}
	}

	// Admin A: 2 projects created, and ALL 5 tasks regardless of project
	// ownership. The asymmetry is the specified behavior.
	counts, err := f.query.Counts(ctx, adminA)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.ProjectsCount != 2 || counts.TasksCount != 5 {
		t.Fatalf("admin counts = %+v, want {2 5}", counts)
	}

	counts, err = f.query.Counts(ctx, member.Identity())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.ProjectsCount != 1 || counts.TasksCount != 2 {
		t.Fatalf("member counts = %+v, want {1 2}", counts)
	}
}

func TestQueryService_OrphanReapOnAdminListing(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	admin := f.seedUser(t, models.RoleAdmin).Identity()

	project, err := f.projects.Create(ctx, admin, "Kept", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.tasks.Create(ctx, admin, project.ID.Hex(), "kept task", ""); err != nil {
		t.Fatalf("Create task: %v", err)
	}

	// Simulate a cascade delete that crashed mid-way: tasks referencing a
	// project that no longer exists.
	ghostProject := primitive.NewObjectID()
	for i := 0; i < 2; i++ {
		orphan := models.Task{
			ID:        primitive.NewObjectID(),
			Title:     "orphan",
			ProjectID: ghostProject,
			Status:    models.TaskTodo,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if _, err := f.tasks.TasksCollection.InsertOne(ctx, orphan); err != nil {
			t.Fatalf("insert orphan: %v", err)
		}
	}

	if _, err := f.query.ListProjects(ctx, admin, ""); err != nil {
		t.Fatalf("ListProjects: %v", err)
	}

	remaining, err := f.query.ListTasks(ctx, admin)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected only the kept task to survive, got %d tasks", len(remaining))
	}
	if remaining[0].ProjectID != project.ID {
		t.Fatalf("wrong survivor: %+v", remaining[0])
	}
}
