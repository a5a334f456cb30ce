package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	apierrors "github.com/yukikurage/taskdash/internal/errors"
	"github.com/yukikurage/taskdash/internal/models"
	"github.com/yukikurage/taskdash/internal/repository"
	"github.com/yukikurage/taskdash/internal/tenant"
	"github.com/yukikurage/taskdash/internal/testutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"
)

type invalidation struct {
	organizationID uint64
	taskID         uint64
}

// recordingInvalidator remembers every invalidation request
type recordingInvalidator struct {
	lists []uint64
	tasks []invalidation
	err   error
}

func (r *recordingInvalidator) InvalidateTaskList(_ context.Context, organizationID uint64) error {
	r.lists = append(r.lists, organizationID)
	return r.err
}

func (r *recordingInvalidator) InvalidateTask(_ context.Context, organizationID, taskID uint64) error {
	r.tasks = append(r.tasks, invalidation{organizationID: organizationID, taskID: taskID})
	return r.err
}

// countingRepository counts writes that reach the store
type countingRepository struct {
	repository.TaskRepository
	writes int
}

func (r *countingRepository) Create(ctx context.Context, task *models.Task) error {
	r.writes++
	return r.TaskRepository.Create(ctx, task)
}

func (r *countingRepository) Update(ctx context.Context, organizationID, id uint64, fields map[string]any) error {
	r.writes++
	return r.TaskRepository.Update(ctx, organizationID, id, fields)
}

type TaskServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	repo        *countingRepository
	invalidator *recordingInvalidator
	service     *TaskService
	ctx         context.Context
	org1        tenant.Tenant
	org2        tenant.Tenant
}

func (suite *TaskServiceTestSuite) SetupTest() {
	suite.db = testutil.NewDB(suite.T())
	suite.repo = &countingRepository{TaskRepository: repository.NewTaskRepository(suite.db)}
	suite.invalidator = &recordingInvalidator{}
	suite.service = NewTaskService(suite.repo, suite.invalidator, nil)
	suite.ctx = context.Background()

	user := testutil.CreateUser(suite.T(), suite.db, "alice")
	org1 := testutil.CreateOrganization(suite.T(), suite.db, "org_1", user.ID)
	org2 := testutil.CreateOrganization(suite.T(), suite.db, "org_2", user.ID)
	suite.org1 = tenant.Tenant{UserID: user.ID, OrganizationID: org1.ID}
	suite.org2 = tenant.Tenant{UserID: user.ID, OrganizationID: org2.ID}
}

func (suite *TaskServiceTestSuite) dueDate() time.Time {
	return time.Date(2030, 1, 15, 9, 0, 0, 0, time.UTC)
}

func (suite *TaskServiceTestSuite) TestListTasks_EmptyOrganization() {
	page, err := suite.service.ListTasks(suite.ctx, suite.org1, ListTasksInput{PageIndex: 0, PageSize: 8})

	suite.Require().NoError(err)
	suite.Empty(page.Tasks)
	suite.Equal(int64(0), page.Count)
}

func (suite *TaskServiceTestSuite) TestListTasks_SecondPage() {
	testutil.CreateTasks(suite.T(), suite.db, "t", 9, suite.org1.OrganizationID)

	page, err := suite.service.ListTasks(suite.ctx, suite.org1, ListTasksInput{PageIndex: 1, PageSize: 8})

	suite.Require().NoError(err)
	suite.Equal(int64(9), page.Count)
	suite.Require().Len(page.Tasks, 1)
	suite.Equal("t9", page.Tasks[0].Name)
}

func (suite *TaskServiceTestSuite) TestListTasks_RejectsInvalidWindow() {
	_, err := suite.service.ListTasks(suite.ctx, suite.org1, ListTasksInput{PageIndex: -1, PageSize: 8})
	suite.True(apierrors.IsValidation(err))

	_, err = suite.service.ListTasks(suite.ctx, suite.org1, ListTasksInput{PageIndex: 0, PageSize: 0})
	suite.True(apierrors.IsValidation(err))
}

func (suite *TaskServiceTestSuite) TestListTasks_StoreFailureIsDataAccess() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	suite.Require().NoError(sqlDB.Close())

	_, err = suite.service.ListTasks(suite.ctx, suite.org1, ListTasksInput{PageIndex: 0, PageSize: 8})

	suite.True(apierrors.IsDataAccess(err), "got %v", err)
}

func (suite *TaskServiceTestSuite) TestTenantIsolation() {
	created, err := suite.service.CreateTask(suite.ctx, suite.org1, CreateTaskInput{Name: "private", DueDate: suite.dueDate()})
	suite.Require().NoError(err)

	page, err := suite.service.ListTasks(suite.ctx, suite.org2, ListTasksInput{PageSize: 8})
	suite.Require().NoError(err)
	suite.Empty(page.Tasks)
	suite.Equal(int64(0), page.Count)

	_, err = suite.service.GetTask(suite.ctx, suite.org2, created.ID)
	suite.True(apierrors.IsNotFound(err))
}

func (suite *TaskServiceTestSuite) TestCreateTask_UsesTenantOrganization() {
	description := "  quarterly numbers  "
	task, err := suite.service.CreateTask(suite.ctx, suite.org1, CreateTaskInput{
		Name:        "  Budget  ",
		Description: &description,
		DueDate:     suite.dueDate(),
	})

	suite.Require().NoError(err)
	suite.NotZero(task.ID)
	suite.Equal("Budget", task.Name)
	suite.Require().NotNil(task.Description)
	suite.Equal("quarterly numbers", *task.Description)
	suite.Equal(suite.org1.OrganizationID, task.OrganizationID)
	suite.False(task.Done)
	suite.Equal([]uint64{suite.org1.OrganizationID}, suite.invalidator.lists)
}

func (suite *TaskServiceTestSuite) TestCreateTask_BlankDescriptionIsAbsent() {
	blank := "   "
	task, err := suite.service.CreateTask(suite.ctx, suite.org1, CreateTaskInput{Name: "a", Description: &blank, DueDate: suite.dueDate()})

	suite.Require().NoError(err)
	suite.Nil(task.Description)
}

func (suite *TaskServiceTestSuite) TestCreateTask_EmptyNameDoesNotWrite() {
	for _, name := range []string{"", "   "} {
		_, err := suite.service.CreateTask(suite.ctx, suite.org1, CreateTaskInput{Name: name, DueDate: suite.dueDate()})

		var validationErr *apierrors.ValidationError
		suite.Require().ErrorAs(err, &validationErr)
		suite.Equal("name", validationErr.Field)
	}

	suite.Equal(0, suite.repo.writes)
	suite.Empty(suite.invalidator.lists)

	var count int64
	suite.db.Model(&models.Task{}).Count(&count)
	suite.Equal(int64(0), count)
}

func (suite *TaskServiceTestSuite) TestCreateTask_RequiresDueDate() {
	_, err := suite.service.CreateTask(suite.ctx, suite.org1, CreateTaskInput{Name: "no date"})

	suite.True(apierrors.IsValidation(err))
	suite.Equal(0, suite.repo.writes)
}

func (suite *TaskServiceTestSuite) TestCreateTask_NameTooLong() {
	long := make([]rune, 256)
	for i := range long {
		long[i] = 'a'
	}

	_, err := suite.service.CreateTask(suite.ctx, suite.org1, CreateTaskInput{Name: string(long), DueDate: suite.dueDate()})

	suite.True(apierrors.IsValidation(err))
}

func (suite *TaskServiceTestSuite) TestUpdateTask_DoneOnlyLeavesOtherFields() {
	original := testutil.CreateTask(suite.T(), suite.db, "Write report", suite.org1.OrganizationID)
	done := true

	updated, err := suite.service.UpdateTask(suite.ctx, suite.org1, original.ID, UpdateTaskInput{Done: &done})

	suite.Require().NoError(err)
	suite.True(updated.Done)
	suite.Equal(original.Name, updated.Name)
	suite.Equal(*original.Description, *updated.Description)
	suite.True(original.DueDate.Equal(updated.DueDate))

	fetched, err := suite.service.GetTask(suite.ctx, suite.org1, original.ID)
	suite.Require().NoError(err)
	suite.True(fetched.Done)
	suite.Equal(original.Name, fetched.Name)

	suite.Equal([]uint64{suite.org1.OrganizationID}, suite.invalidator.lists)
	suite.Equal([]invalidation{{organizationID: suite.org1.OrganizationID, taskID: original.ID}}, suite.invalidator.tasks)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_ClearDescription() {
	original := testutil.CreateTask(suite.T(), suite.db, "a", suite.org1.OrganizationID)

	updated, err := suite.service.UpdateTask(suite.ctx, suite.org1, original.ID, UpdateTaskInput{ClearDescription: true})

	suite.Require().NoError(err)
	suite.Nil(updated.Description)
	suite.Equal("a", updated.Name)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_RenameAndReschedule() {
	original := testutil.CreateTask(suite.T(), suite.db, "a", suite.org1.OrganizationID)
	name := "renamed"
	due := suite.dueDate()

	updated, err := suite.service.UpdateTask(suite.ctx, suite.org1, original.ID, UpdateTaskInput{Name: &name, DueDate: &due})

	suite.Require().NoError(err)
	suite.Equal("renamed", updated.Name)
	suite.True(due.Equal(updated.DueDate))
	suite.False(updated.Done)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_Validation() {
	original := testutil.CreateTask(suite.T(), suite.db, "a", suite.org1.OrganizationID)
	blank := " "
	zero := time.Time{}

	cases := map[string]UpdateTaskInput{
		"empty":      {},
		"blank name": {Name: &blank},
		"zero date":  {DueDate: &zero},
	}
	for name, input := range cases {
		_, err := suite.service.UpdateTask(suite.ctx, suite.org1, original.ID, input)
		suite.True(apierrors.IsValidation(err), name)
	}
	suite.Equal(0, suite.repo.writes)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_ForeignTaskIsNotFound() {
	original := testutil.CreateTask(suite.T(), suite.db, "mine", suite.org1.OrganizationID)
	name := "hijacked"

	_, err := suite.service.UpdateTask(suite.ctx, suite.org2, original.ID, UpdateTaskInput{Name: &name})

	suite.True(apierrors.IsNotFound(err))
	suite.Equal(0, suite.repo.writes)
	fetched, err := suite.service.GetTask(suite.ctx, suite.org1, original.ID)
	suite.Require().NoError(err)
	suite.Equal("mine", fetched.Name)
}

func (suite *TaskServiceTestSuite) TestDeleteTask() {
	task := testutil.CreateTask(suite.T(), suite.db, "doomed", suite.org1.OrganizationID)

	suite.Require().NoError(suite.service.DeleteTask(suite.ctx, suite.org1, task.ID))

	_, err := suite.service.GetTask(suite.ctx, suite.org1, task.ID)
	suite.True(apierrors.IsNotFound(err))
	suite.Equal([]uint64{suite.org1.OrganizationID}, suite.invalidator.lists)
	suite.Equal([]invalidation{{organizationID: suite.org1.OrganizationID, taskID: task.ID}}, suite.invalidator.tasks)
}

func (suite *TaskServiceTestSuite) TestDeleteTask_ForeignTaskIsUntouched() {
	task := testutil.CreateTask(suite.T(), suite.db, "keep me", suite.org1.OrganizationID)

	err := suite.service.DeleteTask(suite.ctx, suite.org2, task.ID)

	suite.True(apierrors.IsNotFound(err))
	fetched, err := suite.service.GetTask(suite.ctx, suite.org1, task.ID)
	suite.Require().NoError(err)
	suite.Equal("keep me", fetched.Name)
	suite.Empty(suite.invalidator.lists)
}

func (suite *TaskServiceTestSuite) TestInvalidationFailureDoesNotFailMutation() {
	suite.invalidator.err = errors.New("redis down")

	task, err := suite.service.CreateTask(suite.ctx, suite.org1, CreateTaskInput{Name: "still saved", DueDate: suite.dueDate()})

	suite.Require().NoError(err)
	suite.NotZero(task.ID)
	suite.NoError(suite.service.DeleteTask(suite.ctx, suite.org1, task.ID))
}

func (suite *TaskServiceTestSuite) TestGenerateTasks_NotConfigured() {
	_, err := suite.service.GenerateTasks(suite.ctx, suite.org1, "call the bank tomorrow")
	suite.ErrorIs(err, ErrAIServiceNotConfigured)

	_, err = suite.service.GenerateTasks(suite.ctx, suite.org1, "  ")
	suite.True(apierrors.IsValidation(err))
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestTaskService_RecordsSpans(t *testing.T) {
	exporter := setupTestTracer(t)
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice")
	org := testutil.CreateOrganization(t, db, "org_1", user.ID)
	service := NewTaskService(repository.NewTaskRepository(db), nil, nil)
	tn := tenant.Tenant{UserID: user.ID, OrganizationID: org.ID}

	_, err := service.CreateTask(context.Background(), tn, CreateTaskInput{Name: "traced", DueDate: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	err = service.DeleteTask(context.Background(), tn, 999)
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "tasks.create", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	var orgAttr bool
	for _, attr := range spans[0].Attributes {
		if attr.Key == "organization.id" {
			orgAttr = true
			assert.Equal(t, int64(org.ID), attr.Value.AsInt64())
		}
	}
	assert.True(t, orgAttr, "organization.id attribute missing")

	assert.Equal(t, "tasks.delete", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

func TestFilterGeneratedTasks(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-72 * time.Hour)
	future := now.Add(48 * time.Hour)

	drafts, err := filterGeneratedTasks([]GeneratedTask{
		{Name: "  Call bank  ", DueDate: &future},
		{Name: "   "},
		{Name: "Old deadline", DueDate: &past},
	}, now)

	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Call bank", drafts[0].Name)
	assert.Equal(t, &future, drafts[0].DueDate)
	assert.Nil(t, drafts[1].DueDate)

	_, err = filterGeneratedTasks(nil, now)
	assert.ErrorIs(t, err, ErrAINoTasksGenerated)

	_, err = filterGeneratedTasks([]GeneratedTask{{Name: ""}}, now)
	assert.ErrorIs(t, err, ErrAINoValidTasks)

	_, err = filterGeneratedTasks(make([]GeneratedTask, 21), now)
	assert.Error(t, err)
}
