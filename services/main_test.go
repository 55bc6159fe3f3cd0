package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskhub/backend/models"
)

// The store-backed suites run against a real MongoDB and skip when
// MONGO_TEST_URI is not set. Each test gets its own database, dropped on
// cleanup.

// fakeAvatarStore records uploads and deletes in memory.
type fakeAvatarStore struct {
	uploads int
	deleted []string
}

func (s *fakeAvatarStore) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	s.uploads++
	return fmt.Sprintf("http://filestore.local/files/%d", s.uploads), nil
}

func (s *fakeAvatarStore) Delete(ctx context.Context, url string) error {
	s.deleted = append(s.deleted, url)
	return nil
}

type fixture struct {
	users    *mongo.Collection
	avatars  *fakeAvatarStore
	accounts *UserService
	projects *ProjectService
	tasks    *TaskService
	query    *QueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set; skipping store-backed test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("mongo connect: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("mongo ping: %v", err)
	}

	db := client.Database("taskhub_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db.Drop(ctx)
		client.Disconnect(ctx)
	})

	usersCollection := db.Collection("users")
	projectsCollection := db.Collection("projects")
	tasksCollection := db.Collection("tasks")

	avatars := &fakeAvatarStore{}
	return &fixture{
		users:    usersCollection,
		avatars:  avatars,
		accounts: NewUserService(usersCollection, avatars),
		projects: NewProjectService(projectsCollection, tasksCollection, usersCollection),
		tasks:    NewTaskService(tasksCollection, projectsCollection),
		query:    NewQueryService(projectsCollection, tasksCollection),
	}
}

var userSeq int

func (f *fixture) seedUser(t *testing.T, role models.Role) *models.User {
	t.Helper()
	userSeq++

	now := time.Now().UTC()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      fmt.Sprintf("User %d", userSeq),
		Email:     fmt.Sprintf("user%d@example.com", userSeq),
		Password:  "irrelevant-hash",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := f.users.InsertOne(ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)
	return ctx
}
