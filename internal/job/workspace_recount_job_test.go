package job

import (
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/redis"
	"context"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type countingAggregate struct {
	calls atomic.Int32
}

func (c *countingAggregate) Apply(context.Context, primitive.ObjectID, mongo.StatsDelta) {}
func (c *countingAggregate) MarkDirty(context.Context, primitive.ObjectID)               {}
func (c *countingAggregate) Recount(context.Context, primitive.ObjectID) error           { return nil }
func (c *countingAggregate) RecountDirty(context.Context) (int, error) {
	c.calls.Add(1)
	return 1, nil
}

func setupRedis(t *testing.T) *miniredis.Miniredis {
	mr := miniredis.RunT(t)
	prev := redis.Rdb
	redis.Rdb = goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redis.Rdb = prev })
	return mr
}

func TestRecountJobRunsAndReleasesLock(t *testing.T) {
	mr := setupRedis(t)
	agg := &countingAggregate{}

	NewWorkspaceRecountJob(agg).Run()
	NewWorkspaceRecountJob(agg).Run()

	assert.EqualValues(t, 2, agg.calls.Load())
	assert.False(t, mr.Exists(consts.WorkspaceRecountLock))
}

func TestRecountJobSkipsWhenLocked(t *testing.T) {
	mr := setupRedis(t)
	_ = mr.Set(consts.WorkspaceRecountLock, "other-instance")
	agg := &countingAggregate{}

	NewWorkspaceRecountJob(agg).Run()

	assert.Zero(t, agg.calls.Load())
	v, _ := mr.Get(consts.WorkspaceRecountLock)
	assert.Equal(t, "other-instance", v)
}
