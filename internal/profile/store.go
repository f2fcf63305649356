package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store 用户画像存储，画像以 JSON 形式存放在 Redis 中
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore 创建画像存储，ttl <= 0 表示画像不过期
func NewStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// 近期发言列表最多保留的条数
const maxUtterances = 20

func profileKey(userID string) string {
	return "profile:" + userID
}

func utteranceKey(userID string) string {
	return "utterances:" + userID
}

// Load 读取用户画像，不存在时返回 (nil, nil)
func (s *Store) Load(ctx context.Context, userID string) (*model.UserProfile, error) {
	data, err := s.client.Get(ctx, profileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取用户画像失败: %w", err)
	}

	var profile model.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("解析用户画像失败: %w", err)
	}
	return &profile, nil
}

// GetOrCreate 读取用户画像，不存在时返回新建画像（不落盘，由后续 Save 写入）
func (s *Store) GetOrCreate(ctx context.Context, userID string) (*model.UserProfile, error) {
	profile, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = model.NewUserProfile(userID)
	}
	return profile, nil
}

// Save 保存用户画像
func (s *Store) Save(ctx context.Context, profile *model.UserProfile) error {
	if profile == nil || profile.UserID == "" {
		return fmt.Errorf("画像缺少用户标识")
	}
	profile.UpdatedAt = time.Now()

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("序列化用户画像失败: %w", err)
	}
	if err := s.client.Set(ctx, profileKey(profile.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("保存用户画像失败: %w", err)
	}
	return nil
}

// Delete 删除用户画像
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, profileKey(userID)).Err(); err != nil {
		return fmt.Errorf("删除用户画像失败: %w", err)
	}
	return nil
}

// RecordUtterance 记录一条用户发言到跨会话的近期发言列表
func (s *Store) RecordUtterance(ctx context.Context, userID, text string) error {
	if userID == "" || text == "" {
		return nil
	}
	key := utteranceKey(userID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, text)
	pipe.LTrim(ctx, key, -maxUtterances, -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("记录用户发言失败: %w", err)
	}
	return nil
}

// RecentUtterances 返回用户最近 n 条发言，最早的在前
func (s *Store) RecentUtterances(ctx context.Context, userID string, n int) ([]string, error) {
	if n <= 0 {
		n = 5
	}
	items, err := s.client.LRange(ctx, utteranceKey(userID), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取近期发言失败: %w", err)
	}
	return items, nil
}

// UpdateFromEntities 从本轮实体中收集画像信息并保存，返回画像是否发生变化
func (s *Store) UpdateFromEntities(ctx context.Context, userID string, e model.Entities) (bool, error) {
	if len(e.Other) == 0 {
		return false, nil
	}

	profile, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return false, err
	}

	if !applyEntities(profile, e) {
		return false, nil
	}
	if err := s.Save(ctx, profile); err != nil {
		return false, err
	}

	s.logger.Info("用户画像已更新", zap.String("userId", userID))
	return true, nil
}

// applyEntities 将本轮实体合并进画像。
// 只采信显式声明的病史/过敏/在用药（Other 桶中的 disease/allergy/drug 键）；
// 用户咨询某种药品不代表正在服用，DrugName 不会自动入档。
func applyEntities(profile *model.UserProfile, e model.Entities) bool {
	changed := false
	if disease := e.Other["disease"]; disease != "" {
		if profile.AddMedicalHistory(disease) {
			changed = true
		}
	}
	if allergen := e.Other["allergy"]; allergen != "" {
		if profile.AddAllergy(allergen) {
			changed = true
		}
	}
	if drug := e.Other["drug"]; drug != "" {
		if _, exists := profile.CurrentMedications[drug]; !exists {
			profile.AddMedication(drug, model.MedicationInfo{Dosage: e.Other["dosage"]})
			changed = true
		}
	}
	return changed
}
