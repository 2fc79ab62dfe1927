package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
	"github.com/Shanayardptrial/Passport-Photo-maker/model"
	"github.com/Shanayardptrial/Passport-Photo-maker/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const photoKeyPrefix = "passport:"

type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetPhotoResult returns the cached result for key, or nil on a miss.
func (s *RedisService) GetPhotoResult(ctx context.Context, key string) (*model.ProcessingResult, error) {
	data, err := s.client.Get(ctx, photoKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var result model.ProcessingResult
	if err := json.Unmarshal(data, &result); err != nil {
		utils.Logger.Error("failed to unmarshal cached photo",
			zap.String("key", key), zap.Error(err))
		return nil, err
	}
	result.BackgroundRemoved = true

	return &result, nil
}

// SetPhotoResult caches a successful result under key for the configured TTL.
func (s *RedisService) SetPhotoResult(ctx context.Context, key string, result *model.ProcessingResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, photoKeyPrefix+key, data, s.ttl).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
