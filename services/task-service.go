package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"taskhub/backend/logging"
	"taskhub/backend/models"
	"taskhub/backend/policy"
)

// TaskService owns the task lifecycle and assignment mutation.
type TaskService struct {
	TasksCollection    *mongo.Collection
	ProjectsCollection *mongo.Collection
}

func NewTaskService(tasksCollection, projectsCollection *mongo.Collection) *TaskService {
	return &TaskService{
		TasksCollection:    tasksCollection,
		ProjectsCollection: projectsCollection,
	}
}

func (s *TaskService) findTask(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := s.TasksCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("task")
	}
	if err != nil {
		return nil, models.NewStoreError("find task", err)
	}
	return &task, nil
}

// Create inserts a task into an existing project. The assignee is taken
// as given without checking it against the member set; assignment is a
// soft reference throughout.
func (s *TaskService) Create(ctx context.Context, identity models.Identity, projectID, title, assignedTo string) (*models.Task, error) {
	if err := policy.Decide(identity, policy.ActionCreateTask, policy.Target{}); err != nil {
		return nil, err
	}

	pid, err := parseObjectID(projectID, "project ID")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, models.NewValidationError("title is required")
	}

	err = s.ProjectsCollection.FindOne(ctx, bson.M{"_id": pid}).Err()
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("project")
	}
	if err != nil {
		return nil, models.NewStoreError("find project", err)
	}

	var assignee *primitive.ObjectID
	if assignedTo != "" {
		aid, err := parseObjectID(assignedTo, "assignee ID")
		if err != nil {
			return nil, err
		}
		assignee = &aid
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:         primitive.NewObjectID(),
		Title:      title,
		ProjectID:  pid,
		AssignedTo: assignee,
		Status:     models.TaskTodo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := s.TasksCollection.InsertOne(ctx, task); err != nil {
		return nil, models.NewStoreError("insert task", err)
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created in project %s", task.ID.Hex(), pid.Hex())
	return task, nil
}

// Update applies a task patch. Admins must be the parent project's creator
// and may change any field; the assigned member may change the status and
// nothing else. The policy check sees the whole patch, so a member request
// mixing status with other fields is denied without touching the task.
func (s *TaskService) Update(ctx context.Context, identity models.Identity, projectID, taskID string, patch models.TaskPatch) (*models.Task, error) {
	pid, err := parseObjectID(projectID, "project ID")
	if err != nil {
		return nil, err
	}
	tid, err := parseObjectID(taskID, "task ID")
	if err != nil {
		return nil, err
	}

	task, err := s.findTask(ctx, tid)
	if err != nil {
		return nil, err
	}

	var project models.Project
	err = s.ProjectsCollection.FindOne(ctx, bson.M{"_id": pid}).Decode(&project)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("project")
	}
	if err != nil {
		return nil, models.NewStoreError("find project", err)
	}

	if err := policy.Decide(identity, policy.ActionUpdateTask, policy.Target{Project: &project, Task: task, Patch: &patch}); err != nil {
		return nil, err
	}

	update := bson.M{}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, models.NewValidationError("title cannot be empty")
		}
		update["title"] = *patch.Title
	}
	if patch.Status != nil {
		if !models.IsValidTaskStatus(*patch.Status) {
			return nil, models.NewValidationError("invalid task status: %s", *patch.Status)
		}
		update["status"] = *patch.Status
	}
	if patch.AssignedTo != nil {
		if *patch.AssignedTo == "" {
			update["assignedTo"] = nil
		} else {
			aid, err := parseObjectID(*patch.AssignedTo, "assignee ID")
			if err != nil {
				return nil, err
			}
			update["assignedTo"] = aid
		}
	}
	if len(update) == 0 {
		return task, nil
	}
	update["updatedAt"] = time.Now().UTC()

	if _, err := s.TasksCollection.UpdateByID(ctx, tid, bson.M{"$set": update}); err != nil {
		return nil, models.NewStoreError("update task", err)
	}
	return s.findTask(ctx, tid)
}

// Delete removes a task. Admin only.
func (s *TaskService) Delete(ctx context.Context, identity models.Identity, taskID string) (*models.Task, error) {
	if err := policy.Decide(identity, policy.ActionDeleteTask, policy.Target{}); err != nil {
		return nil, err
	}

	tid, err := parseObjectID(taskID, "task ID")
	if err != nil {
		return nil, err
	}

	task, err := s.findTask(ctx, tid)
	if err != nil {
		return nil, err
	}

	if _, err := s.TasksCollection.DeleteOne(ctx, bson.M{"_id": tid}); err != nil {
		return nil, models.NewStoreError("delete task", err)
	}

	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted by %s", tid.Hex(), identity.ID.Hex())
	return task, nil
}

// ListByProject returns every task of one project, store-natural order.
func (s *TaskService) ListByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	pid, err := parseObjectID(projectID, "project ID")
	if err != nil {
		return nil, err
	}

	cursor, err := s.TasksCollection.Find(ctx, bson.M{"projectId": pid})
	if err != nil {
		return nil, models.NewStoreError("find tasks", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, models.NewStoreError("decode tasks", err)
	}
	return tasks, nil
}
