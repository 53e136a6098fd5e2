package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"sales-assistant/internal/common/cache"
	"sales-assistant/internal/common/config"
	"sales-assistant/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGateway struct {
	Gateway
	listProjects int
	getLead      int
	getProject   int
	projects     []Project
	err          error
}

func (g *countingGateway) ListProjects(context.Context) ([]Project, error) {
	g.listProjects++
	return g.projects, g.err
}

func (g *countingGateway) GetLead(_ context.Context, id int64) (*Lead, error) {
	g.getLead++
	return &Lead{ID: id, Name: "박지훈"}, g.err
}

func (g *countingGateway) GetProject(_ context.Context, id int64) (*Project, error) {
	g.getProject++
	return &Project{ID: id, Name: "스마트팩토리"}, g.err
}

func (g *countingGateway) AutoConnect(_ context.Context, projectID int64) (*ConnectResult, error) {
	return &ConnectResult{ProjectID: projectID, ConnectedLeadIDs: []int64{10}, Count: 1}, nil
}

func (g *countingGateway) CreateProject(_ context.Context, p Project) (*Project, error) {
	p.ID = 99
	return &p, nil
}

func TestCachedGateway_ReadThroughWithMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer rc.Close()

	next := &countingGateway{projects: []Project{{ID: 1, Name: "스마트팩토리"}}}
	g := NewCachedGateway(next, rc, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		projects, err := g.ListProjects(ctx)
		require.NoError(t, err)
		assert.Equal(t, "스마트팩토리", projects[0].Name)
	}
	assert.Equal(t, 1, next.listProjects)
	assert.True(t, mr.Exists(keyProjects))

	_, err := g.CreateProject(ctx, Project{Name: "신규"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(keyProjects))

	_, err = g.ListProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next.listProjects)

	lead, err := g.GetLead(ctx, 7)
	require.NoError(t, err)
	_, err = g.GetLead(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), lead.ID)
	assert.Equal(t, 1, next.getLead)
}

func TestCachedGateway_WritesEncodedValueWithTTL(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &countingGateway{projects: []Project{{ID: 1, Name: "A"}}}
	g := NewCachedGateway(next, cache.NewFromCmdable(db), 30*time.Second, logger.NewNoOpLogger())

	mock.ExpectGet(keyProjects).RedisNil()
	mock.ExpectSet(keyProjects, `[{"id":1,"name":"A"}]`, 30*time.Second).SetVal("OK")

	projects, err := g.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, projects, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedGateway_CacheHitSkipsGateway(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &countingGateway{}
	g := NewCachedGateway(next, cache.NewFromCmdable(db), time.Minute, logger.NewNoOpLogger())

	mock.ExpectGet(keyProjects).SetVal(`[{"id":5,"name":"cached"}]`)

	projects, err := g.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", projects[0].Name)
	assert.Equal(t, 0, next.listProjects)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedGateway_CacheDownFallsThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &countingGateway{projects: []Project{{ID: 1, Name: "A"}}}
	g := NewCachedGateway(next, cache.NewFromCmdable(db), time.Minute, logger.NewNoOpLogger())

	mock.ExpectGet(keyProjects).SetErr(errors.New("connection refused"))
	mock.ExpectSet(keyProjects, `[{"id":1,"name":"A"}]`, time.Minute).SetErr(errors.New("connection refused"))

	projects, err := g.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, projects, 1)
	assert.Equal(t, 1, next.listProjects)
}

func TestCachedGateway_UpstreamErrorNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &countingGateway{err: errors.New("502")}
	g := NewCachedGateway(next, cache.NewFromCmdable(db), time.Minute, logger.NewNoOpLogger())

	mock.ExpectGet(keyProjects).RedisNil()

	_, err := g.ListProjects(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedGateway_AutoConnectInvalidatesProjectEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer rc.Close()

	next := &countingGateway{projects: []Project{{ID: 3, Name: "스마트팩토리"}}}
	g := NewCachedGateway(next, rc, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	_, err := g.GetProject(ctx, 3)
	require.NoError(t, err)
	_, err = g.GetProject(ctx, 4)
	require.NoError(t, err)
	_, err = g.ListProjects(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists(projectKey(3)))

	_, err = g.AutoConnect(ctx, 3)
	require.NoError(t, err)

	assert.False(t, mr.Exists(projectKey(3)))
	assert.False(t, mr.Exists(keyProjects))
	assert.True(t, mr.Exists(projectKey(4)))

	_, err = g.GetProject(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, next.getProject)
}
