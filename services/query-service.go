package services

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskhub/backend/logging"
	"taskhub/backend/models"
	"taskhub/backend/policy"
)

// QueryService composes role-scoped read views over projects and tasks.
// It never mutates entities, with one exception: the lazy orphan reap that
// finishes a cascade delete interrupted by a crash.
type QueryService struct {
	ProjectsCollection *mongo.Collection
	TasksCollection    *mongo.Collection
}

func NewQueryService(projectsCollection, tasksCollection *mongo.Collection) *QueryService {
	return &QueryService{
		ProjectsCollection: projectsCollection,
		TasksCollection:    tasksCollection,
	}
}

// DashboardCounts holds the two dashboard numbers.
type DashboardCounts struct {
	ProjectsCount int64 `json:"projectsCount"`
	TasksCount    int64 `json:"tasksCount"`
}

// ListProjects returns the projects visible to the identity, optionally
// filtered by a case-insensitive substring match on the title. Admin
// listings first reap tasks orphaned by an interrupted cascade delete.
func (s *QueryService) ListProjects(ctx context.Context, identity models.Identity, search string) ([]models.Project, error) {
	if identity.Role == models.RoleAdmin {
		s.reapOrphanTasks(ctx)
	}

	filter := policy.ProjectListFilter(identity)
	if search != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	}

	cursor, err := s.ProjectsCollection.Find(ctx, filter)
	if err != nil {
		return nil, models.NewStoreError("find projects", err)
	}
	defer cursor.Close(ctx)

	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, models.NewStoreError("decode projects", err)
	}
	return projects, nil
}

// ListTasks returns at most the 10 most recent tasks visible to the
// identity. The cap is deliberate; there is no pagination.
func (s *QueryService) ListTasks(ctx context.Context, identity models.Identity) ([]models.Task, error) {
	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetLimit(10)

	cursor, err := s.TasksCollection.Find(ctx, policy.TaskListFilter(identity), opts)
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

// Counts returns the dashboard numbers. Admins see the count of projects
// they created and the count of ALL tasks system-wide; members see the
// projects they belong to and the tasks assigned to them. The admin task
// count asymmetry is preserved from the observed behavior.
func (s *QueryService) Counts(ctx context.Context, identity models.Identity) (DashboardCounts, error) {
	var counts DashboardCounts
	var err error

	counts.ProjectsCount, err = s.ProjectsCollection.CountDocuments(ctx, policy.ProjectListFilter(identity))
	if err != nil {
		return counts, models.NewStoreError("count projects", err)
	}

	counts.TasksCount, err = s.TasksCollection.CountDocuments(ctx, policy.TaskListFilter(identity))
	if err != nil {
		return counts, models.NewStoreError("count tasks", err)
	}

	return counts, nil
}

// reapOrphanTasks deletes tasks whose project no longer exists. A crash
// between the two phases of a cascade delete (tasks first, then project)
// cannot leave orphans behind, but a crash mid-DeleteMany can; this pass
// makes the store consistent again. Failures are logged and ignored so a
// reap problem never blocks a listing.
func (s *QueryService) reapOrphanTasks(ctx context.Context) {
	projectIDs, err := s.TasksCollection.Distinct(ctx, "projectId", bson.M{})
	if err != nil {
		logging.Logger.Warnf("Event ID: ORPHAN_REAP_FAILED, Description: Failed to list task project ids: %v", err)
		return
	}
	if len(projectIDs) == 0 {
		return
	}

	cursor, err := s.ProjectsCollection.Find(ctx, bson.M{"_id": bson.M{"$in": projectIDs}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		logging.Logger.Warnf("Event ID: ORPHAN_REAP_FAILED, Description: Failed to resolve projects: %v", err)
		return
	}
	defer cursor.Close(ctx)

	existing := map[primitive.ObjectID]bool{}
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			logging.Logger.Warnf("Event ID: ORPHAN_REAP_FAILED, Description: Failed to decode project id: %v", err)
			return
		}
		existing[doc.ID] = true
	}

	orphaned := []primitive.ObjectID{}
	for _, raw := range projectIDs {
		id, ok := raw.(primitive.ObjectID)
		if !ok {
			continue
		}
		if !existing[id] {
			orphaned = append(orphaned, id)
		}
	}
	if len(orphaned) == 0 {
		return
	}

	result, err := s.TasksCollection.DeleteMany(ctx, bson.M{"projectId": bson.M{"$in": orphaned}})
	if err != nil {
		logging.Logger.Warnf("Event ID: ORPHAN_REAP_FAILED, Description: Failed to delete orphaned tasks: %v", err)
		return
	}
	logging.Logger.Infof("Event ID: ORPHAN_TASKS_REAPED, Description: Removed %d tasks from %d deleted projects", result.DeletedCount, len(orphaned))
}
