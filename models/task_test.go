package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTaskPatch_StatusOnly(t *testing.T) {
	status := TaskDone
	title := "x"
	assignee := ""

	cases := []struct {
		name  string
		patch TaskPatch
		want  bool
	}{
		{"empty", TaskPatch{}, true},
		{"status", TaskPatch{Status: &status}, true},
		{"status and title", TaskPatch{Status: &status, Title: &title}, false},
		{"status and assignee", TaskPatch{Status: &status, AssignedTo: &assignee}, false},
		{"title only", TaskPatch{Title: &title}, false},
	}
	for _, tc := range cases {
		if got := tc.patch.StatusOnly(); got != tc.want {
			t.Errorf("%s: StatusOnly() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTask_IsAssignedTo(t *testing.T) {
	id := primitive.NewObjectID()
	other := primitive.NewObjectID()

	task := Task{}
	if task.IsAssignedTo(id) {
		t.Fatal("unassigned task should not match any id")
	}

	task.AssignedTo = &id
	if !task.IsAssignedTo(id) {
		t.Fatal("expected assignment match")
	}
	if task.IsAssignedTo(other) {
		t.Fatal("unexpected assignment match")
	}
}

func TestStatusEnums(t *testing.T) {
	for _, s := range []TaskStatus{TaskTodo, TaskInProgress, TaskDone} {
		if !IsValidTaskStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	if IsValidTaskStatus("pending") {
		t.Error("pending is not a task status")
	}

	for _, s := range []ProjectStatus{ProjectActive, ProjectCompleted} {
		if !IsValidProjectStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	if IsValidProjectStatus("archived") {
		t.Error("archived is not a project status")
	}

	if !IsValidRole(RoleAdmin) || !IsValidRole(RoleMember) {
		t.Error("known roles should be valid")
	}
	if IsValidRole("owner") {
		t.Error("owner is not a role")
	}
}
