package redis

import (
	"context"

	rd "github.com/go-redis/redis/v9"
	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/persistence"
	"go.uber.org/zap"
)

// taskQueue keeps each queue as a sorted set with a constant score, so
// redis falls back to lexical member ordering and the encoded node string
// is the claim priority. Removal is ZREM of the exact member, a zero
// removal count means the node was never there or a worker already took it.
type taskQueue struct {
	*baseDao
}

var _ persistence.TaskQueue = new(taskQueue)

func (q *taskQueue) Insert(queueName string, node string) error {
	ctx := context.Background()
	key := q.getNamespaceKey(queueName)
	member := rd.Z{Score: 0, Member: node}
	if err := q.redisClient.ZAdd(ctx, key, member).Err(); err != nil {
		logger.Error("error while push to task queue", zap.String("queue", queueName), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (q *taskQueue) Remove(queueName string, node string) error {
	ctx := context.Background()
	key := q.getNamespaceKey(queueName)
	count, err := q.redisClient.ZRem(ctx, key, node).Result()
	if err != nil {
		logger.Error("error while remove from task queue", zap.String("queue", queueName), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if count == 0 {
		return persistence.NodeNotFoundError{Node: node}
	}
	return nil
}

func (q *taskQueue) List(queueName string) ([]string, error) {
	ctx := context.Background()
	key := q.getNamespaceKey(queueName)
	members, err := q.redisClient.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return members, nil
}
