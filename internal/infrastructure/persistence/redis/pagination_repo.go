package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
	"github.com/xiebiao/bookstore-admin/pkg/pagination"
)

const paginationPrefix = "admin:pagination:"

// PaginationRepository 共享分页游标的持久化
// 结构：HASH admin:pagination:<owner>，field为实体名，value为EntityParams的JSON
// 同一用户重新挂载看板时可以恢复上次的页码与排序
type PaginationRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewPaginationRepository ttl<=0表示不过期
func NewPaginationRepository(client redis.UniversalClient, ttl time.Duration) *PaginationRepository {
	return &PaginationRepository{client: client, ttl: ttl}
}

// Save 保存单个实体的游标并刷新过期时间
func (r *PaginationRepository) Save(ctx context.Context, owner, entity string, p pagination.EntityParams) error {
	b, err := json.Marshal(p)
	if err != nil {
		return apperrors.Wrap(err, "序列化分页参数失败")
	}

	key := paginationPrefix + owner
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, entity, b)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.ErrRedisError.WithErr(err)
	}
	return nil
}

// Load 读取owner的所有实体游标，无记录时返回空map
// 无法解析的字段会被跳过
func (r *PaginationRepository) Load(ctx context.Context, owner string) (map[string]pagination.EntityParams, error) {
	raw, err := r.client.HGetAll(ctx, paginationPrefix+owner).Result()
	if err != nil {
		return nil, apperrors.ErrRedisError.WithErr(err)
	}

	out := make(map[string]pagination.EntityParams, len(raw))
	for entity, v := range raw {
		var p pagination.EntityParams
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			continue
		}
		out[entity] = p
	}
	return out, nil
}

