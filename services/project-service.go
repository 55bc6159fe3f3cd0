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

// ProjectService owns the project lifecycle and the member set. Every
// mutation consults the policy engine with the current entity state before
// touching the store.
type ProjectService struct {
	ProjectsCollection *mongo.Collection
	TasksCollection    *mongo.Collection
	UsersCollection    *mongo.Collection
}

func NewProjectService(projectsCollection, tasksCollection, usersCollection *mongo.Collection) *ProjectService {
	return &ProjectService{
		ProjectsCollection: projectsCollection,
		TasksCollection:    tasksCollection,
		UsersCollection:    usersCollection,
	}
}

func (s *ProjectService) findProject(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	err := s.ProjectsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&project)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("project")
	}
	if err != nil {
		return nil, models.NewStoreError("find project", err)
	}
	return &project, nil
}

func parseObjectID(hex, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, models.NewValidationError("invalid %s format", field)
	}
	return id, nil
}

// Create inserts a new project owned by the calling admin.
func (s *ProjectService) Create(ctx context.Context, identity models.Identity, title, description string) (*models.Project, error) {
	if err := policy.Decide(identity, policy.ActionCreateProject, policy.Target{}); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, models.NewValidationError("title is required")
	}

	now := time.Now().UTC()
	project := &models.Project{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: description,
		Status:      models.ProjectActive,
		CreatedBy:   identity.ID,
		Members:     []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.ProjectsCollection.InsertOne(ctx, project); err != nil {
		return nil, models.NewStoreError("insert project", err)
	}

	logging.Logger.Infof("Event ID: PROJECT_CREATED, Description: Project %s created by %s", project.ID.Hex(), identity.ID.Hex())
	return project, nil
}

// GetByID returns a project and its tasks, subject to the read rule:
// creator for admins, membership for members.
func (s *ProjectService) GetByID(ctx context.Context, identity models.Identity, projectID string) (*models.Project, []models.Task, error) {
	id, err := parseObjectID(projectID, "project ID")
	if err != nil {
		return nil, nil, err
	}

	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := policy.Decide(identity, policy.ActionReadProject, policy.Target{Project: project}); err != nil {
		return nil, nil, err
	}

	cursor, err := s.TasksCollection.Find(ctx, bson.M{"projectId": id})
	if err != nil {
		return nil, nil, models.NewStoreError("find tasks", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, nil, models.NewStoreError("decode tasks", err)
	}

	return project, tasks, nil
}

// Update applies the provided fields only. Creator-only, per policy.
func (s *ProjectService) Update(ctx context.Context, identity models.Identity, projectID string, patch models.ProjectPatch) (*models.Project, error) {
	id, err := parseObjectID(projectID, "project ID")
	if err != nil {
		return nil, err
	}

	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(identity, policy.ActionUpdateProject, policy.Target{Project: project}); err != nil {
		return nil, err
	}

	update := bson.M{}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, models.NewValidationError("title cannot be empty")
		}
		update["title"] = *patch.Title
	}
	if patch.Description != nil {
		update["description"] = *patch.Description
	}
	if patch.Status != nil {
		if !models.IsValidProjectStatus(*patch.Status) {
			return nil, models.NewValidationError("invalid project status: %s", *patch.Status)
		}
		update["status"] = *patch.Status
	}
	if len(update) == 0 {
		return project, nil
	}
	update["updatedAt"] = time.Now().UTC()

	if _, err := s.ProjectsCollection.UpdateByID(ctx, id, bson.M{"$set": update}); err != nil {
		return nil, models.NewStoreError("update project", err)
	}
	return s.findProject(ctx, id)
}

// Delete removes a project and all its tasks. Tasks go first so that a
// crash in between leaves orphaned tasks, never a task-less ghost project;
// orphans are reaped lazily on the next admin listing.
func (s *ProjectService) Delete(ctx context.Context, identity models.Identity, projectID string) (*models.Project, error) {
	id, err := parseObjectID(projectID, "project ID")
	if err != nil {
		return nil, err
	}

	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(identity, policy.ActionDeleteProject, policy.Target{Project: project}); err != nil {
		return nil, err
	}

	if _, err := s.TasksCollection.DeleteMany(ctx, bson.M{"projectId": id}); err != nil {
		return nil, models.NewStoreError("delete project tasks", err)
	}
	if _, err := s.ProjectsCollection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return nil, models.NewStoreError("delete project", err)
	}

	logging.Logger.Infof("Event ID: PROJECT_DELETED, Description: Project %s deleted by %s, tasks cascaded", id.Hex(), identity.ID.Hex())
	return project, nil
}

// AddMember adds a member-role user to the project. Duplicate membership is
// a conflict; a non-member-role target is a validation error.
func (s *ProjectService) AddMember(ctx context.Context, identity models.Identity, projectID, memberID string) (*models.Project, error) {
	if err := policy.Decide(identity, policy.ActionManageMembers, policy.Target{}); err != nil {
		return nil, err
	}

	id, err := parseObjectID(projectID, "project ID")
	if err != nil {
		return nil, err
	}
	mid, err := parseObjectID(memberID, "member ID")
	if err != nil {
		return nil, err
	}

	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.UsersCollection.FindOne(ctx, bson.M{"_id": mid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("user")
	}
	if err != nil {
		return nil, models.NewStoreError("find user", err)
	}
	if user.Role != models.RoleMember {
		return nil, models.NewValidationError("only member-role users can join a project")
	}

	if project.HasMember(mid) {
		return nil, models.NewConflictError("member already in project")
	}

	update := bson.M{
		"$addToSet": bson.M{"members": mid},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	if _, err := s.ProjectsCollection.UpdateByID(ctx, id, update); err != nil {
		return nil, models.NewStoreError("add member", err)
	}

	logging.Logger.Infof("Event ID: MEMBER_ADDED, Description: User %s added to project %s", mid.Hex(), id.Hex())
	return s.findProject(ctx, id)
}

// RemoveMember pulls a member from the project. Removing an id that is not
// in the set is a no-op, not an error. Task assignments pointing at the
// removed member are left as-is.
func (s *ProjectService) RemoveMember(ctx context.Context, identity models.Identity, projectID, memberID string) (*models.Project, error) {
	if err := policy.Decide(identity, policy.ActionManageMembers, policy.Target{}); err != nil {
		return nil, err
	}

	id, err := parseObjectID(projectID, "project ID")
	if err != nil {
		return nil, err
	}
	mid, err := parseObjectID(memberID, "member ID")
	if err != nil {
		return nil, err
	}

	if _, err := s.findProject(ctx, id); err != nil {
		return nil, err
	}

	update := bson.M{
		"$pull": bson.M{"members": mid},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	if _, err := s.ProjectsCollection.UpdateByID(ctx, id, update); err != nil {
		return nil, models.NewStoreError("remove member", err)
	}

	return s.findProject(ctx, id)
}
