package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"github.com/taskwing/taskwing/util"
	"go.uber.org/zap"
)

const COMMAND = "COMMAND"
const COMMAND_BY_DEF = "COMMAND_BY_DEF"

type commandDao struct {
	*baseDao
}

var cmdEncDec = util.NewJsonEncoderDecoder[model.Command]()

func (d *commandDao) Insert(cmd *model.Command) error {
	id, err := d.nextId(COMMAND)
	if err != nil {
		return err
	}
	cmd.Id = id
	ctx := context.Background()
	data, err := cmdEncDec.Encode(*cmd)
	if err != nil {
		return err
	}
	pipe := d.redisClient.Pipeline()
	pipe.Set(ctx, d.getNamespaceKey(COMMAND, formatId(cmd.Id)), data, 0)
	pipe.SAdd(ctx, d.defSetKey(cmd.ProcessDefinitionId), formatId(cmd.Id))
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("error inserting command", zap.Int64("definition", cmd.ProcessDefinitionId), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

// InsertIfAbsent watches the per definition command set so the equivalence
// check and the insert commit as one unit. A concurrent insert against the
// same definition aborts the transaction and the caller retries through the
// duplicate error path.
func (d *commandDao) InsertIfAbsent(cmd *model.Command) error {
	ctx := context.Background()
	setKey := d.defSetKey(cmd.ProcessDefinitionId)
	txErr := d.redisClient.Watch(ctx, func(tx *rd.Tx) error {
		pending, err := d.pendingLocked(ctx, tx, cmd.ProcessDefinitionId)
		if err != nil {
			return err
		}
		for _, p := range pending {
			if p.CommandType == cmd.CommandType && p.RecoverProcessId() == cmd.RecoverProcessId() {
				return persistence.DuplicateCommandError{ProcessDefinitionId: cmd.ProcessDefinitionId}
			}
		}
		id, err := d.nextId(COMMAND)
		if err != nil {
			return err
		}
		cmd.Id = id
		data, err := cmdEncDec.Encode(*cmd)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
			pipe.Set(ctx, d.getNamespaceKey(COMMAND, formatId(cmd.Id)), data, 0)
			pipe.SAdd(ctx, setKey, formatId(cmd.Id))
			return nil
		})
		return err
	}, setKey)
	if txErr != nil {
		if _, ok := txErr.(persistence.DuplicateCommandError); ok {
			return txErr
		}
		if errors.Is(txErr, rd.TxFailedErr) {
			// Somebody else inserted concurrently, treat it as the duplicate.
			return persistence.DuplicateCommandError{ProcessDefinitionId: cmd.ProcessDefinitionId}
		}
		return persistence.StorageLayerError{Message: txErr.Error()}
	}
	return nil
}

func (d *commandDao) Delete(id int64) error {
	cmd, err := d.findById(id)
	if err != nil {
		return err
	}
	ctx := context.Background()
	pipe := d.redisClient.Pipeline()
	pipe.Del(ctx, d.getNamespaceKey(COMMAND, formatId(id)))
	pipe.SRem(ctx, d.defSetKey(cmd.ProcessDefinitionId), formatId(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *commandDao) FindPending(processDefinitionId int64) ([]model.Command, error) {
	ctx := context.Background()
	return d.pendingLocked(ctx, d.redisClient, processDefinitionId)
}

func (d *commandDao) pendingLocked(ctx context.Context, client rd.Cmdable, processDefinitionId int64) ([]model.Command, error) {
	ids, err := client.SMembers(ctx, d.defSetKey(processDefinitionId)).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	cmds := make([]model.Command, 0, len(ids))
	for _, idStr := range ids {
		val, err := client.Get(ctx, d.getNamespaceKey(COMMAND, idStr)).Result()
		if err != nil {
			if errors.Is(err, rd.Nil) {
				continue
			}
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		cmd, err := cmdEncDec.Decode([]byte(val))
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, *cmd)
	}
	return cmds, nil
}

func (d *commandDao) findById(id int64) (*model.Command, error) {
	ctx := context.Background()
	val, err := d.redisClient.Get(ctx, d.getNamespaceKey(COMMAND, formatId(id))).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Entity: "command", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return cmdEncDec.Decode([]byte(val))
}

func (d *commandDao) defSetKey(processDefinitionId int64) string {
	return d.getNamespaceKey(COMMAND_BY_DEF, formatId(processDefinitionId))
}
