package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/google/uuid"

	"meallens-backend/shared/config"
)

type CacheManager struct {
	client *redis.Client
	ctx    context.Context
}

// OrgAdminCacheData is a cached organization-admin check result
type OrgAdminCacheData struct {
	IsAdmin  bool      `json:"is_admin"`
	Reason   string    `json:"reason"` // "owner", "admin", or a denial reason
	UserID   string    `json:"user_id"`
	OrgID    string    `json:"org_id"`
	CachedAt time.Time `json:"cached_at"`
}

var (
	globalCacheManager *CacheManager
	OrgAdminTTL        = 5 * time.Minute
)

// InitCacheManager initializes the global cache manager
func InitCacheManager() error {
	cfg := config.GetConfig()

	redisDB, err := strconv.Atoi(cfg.RedisDB)
	if err != nil {
		log.Printf("❌ Invalid Redis DB number: %s, using default 0", cfg.RedisDB)
		redisDB = 0
	}

	// Create Redis client
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       redisDB,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	globalCacheManager = &CacheManager{
		client: client,
		ctx:    ctx,
	}

	log.Printf("✅ Redis Cache Manager initialized successfully - %s:%s DB:%d",
		cfg.RedisHost, cfg.RedisPort, redisDB)

	return nil
}

// GetCacheManager returns the global cache manager instance
func GetCacheManager() *CacheManager {
	if globalCacheManager == nil {
		if err := InitCacheManager(); err != nil {
			log.Printf("❌ Failed to initialize cache manager: %v", err)
			return nil
		}
	}
	return globalCacheManager
}

// GenerateOrgAdminKey generates a cache key for an org-admin check
func GenerateOrgAdminKey(userID, orgID uuid.UUID) string {
	return fmt.Sprintf("orgadmin:user:%s:org:%s", userID, orgID)
}

// SetOrgAdminCache caches an org-admin check result
func (cm *CacheManager) SetOrgAdminCache(userID, orgID uuid.UUID, data *OrgAdminCacheData) error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}

	key := GenerateOrgAdminKey(userID, orgID)
	data.CachedAt = time.Now()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %v", err)
	}

	err = cm.client.Set(cm.ctx, key, jsonData, OrgAdminTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set cache: %v", err)
	}

	return nil
}

// GetOrgAdminCache retrieves a cached org-admin check result
func (cm *CacheManager) GetOrgAdminCache(userID, orgID uuid.UUID) (*OrgAdminCacheData, bool) {
	if cm == nil || cm.client == nil {
		return nil, false
	}

	key := GenerateOrgAdminKey(userID, orgID)

	result, err := cm.client.Get(cm.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false
		}
		log.Printf("❌ Cache error: %v", err)
		return nil, false
	}

	var data OrgAdminCacheData
	if err := json.Unmarshal([]byte(result), &data); err != nil {
		log.Printf("❌ Failed to unmarshal cache data: %v", err)
		return nil, false
	}

	return &data, true
}

// InvalidateOrgAdmin invalidates a single cached org-admin check
func (cm *CacheManager) InvalidateOrgAdmin(userID, orgID uuid.UUID) error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}

	key := GenerateOrgAdminKey(userID, orgID)
	if err := cm.client.Del(cm.ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %v", key, err)
	}
	return nil
}

// InvalidateOrgMembers invalidates every cached admin check for an organization.
// Used after role changes, removals and accepted invitations.
func (cm *CacheManager) InvalidateOrgMembers(orgID uuid.UUID) error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}

	pattern := fmt.Sprintf("orgadmin:user:*:org:%s", orgID)
	return cm.invalidateByPattern(pattern)
}

// invalidateByPattern invalidates cache entries matching a pattern
func (cm *CacheManager) invalidateByPattern(pattern string) error {
	iter := cm.client.Scan(cm.ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(cm.ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %v", err)
	}

	if len(keys) > 0 {
		err := cm.client.Del(cm.ctx, keys...).Err()
		if err != nil {
			return fmt.Errorf("failed to delete keys: %v", err)
		}
		log.Printf("🗑️  Cache invalidated: %d keys matching pattern '%s'", len(keys), pattern)
	}

	return nil
}

// TestConnection tests the Redis connection
func (cm *CacheManager) TestConnection() error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}

	testKey := "test:connection"
	testValue := "connection_test_ok"

	err := cm.client.Set(cm.ctx, testKey, testValue, time.Minute).Err()
	if err != nil {
		return fmt.Errorf("failed to set test value: %v", err)
	}

	result, err := cm.client.Get(cm.ctx, testKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get test value: %v", err)
	}

	if result != testValue {
		return fmt.Errorf("test value mismatch: expected %s, got %s", testValue, result)
	}

	if err := cm.client.Del(cm.ctx, testKey).Err(); err != nil {
		return fmt.Errorf("failed to delete test value: %v", err)
	}

	log.Println("✅ Redis connection test passed")
	return nil
}

// Close closes the cache manager connection
func (cm *CacheManager) Close() error {
	if cm != nil && cm.client != nil {
		return cm.client.Close()
	}
	return nil
}
