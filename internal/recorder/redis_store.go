package recorder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"vitals-alert/internal/alert"
)

// ==================== Constants ====================

const (
	defaultQueryLimit = 50
	redisAlertKeyFmt  = "%s:alert:%s"
	redisTimesKeyFmt  = "%s:alert:times"
	redisSeqKeyFmt    = "%s:alert:seq"
)

// ==================== Store ====================

// RedisAlertStore keeps recent alert events in Redis: one hash per event
// plus a sorted set of hash keys scored by event time (milliseconds).
type RedisAlertStore struct {
	client    *redis.Client
	namespace string
	maxKeep   int64
	ttl       time.Duration
	now       func() time.Time
}

// NewRedisAlertStore creates the store. maxKeep <= 0 disables trimming;
// ttl <= 0 disables expiry.
func NewRedisAlertStore(client *redis.Client, namespace string, maxKeep int64, ttl time.Duration) *RedisAlertStore {
	return &RedisAlertStore{
		client:    client,
		namespace: namespace,
		maxKeep:   maxKeep,
		ttl:       ttl,
		now:       time.Now,
	}
}

// keeps the newest ARGV[1] members, deleting the hashes of the rest
var trimAlertsScript = redis.NewScript(`
local sortedSetKey = KEYS[1]
local maxKeepCount = tonumber(ARGV[1])
if maxKeepCount <= 0 then return 0 end

local totalCount = redis.call("ZCARD", sortedSetKey)
if totalCount <= maxKeepCount then return 0 end

local excessCount = totalCount - maxKeepCount
local oldKeys = redis.call("ZRANGE", sortedSetKey, 0, excessCount - 1)

for i, key in ipairs(oldKeys) do
  redis.call("DEL", key)
end

redis.call("ZREMRANGEBYRANK", sortedSetKey, 0, excessCount - 1)
return excessCount
`)

// SaveAlert stores ev and trims the history to maxKeep entries.
func (store *RedisAlertStore) SaveAlert(ctx context.Context, ev alert.Event) error {
	id, err := store.eventID(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("generate alert id failed: %w", err)
	}

	timestamp := ev.Timestamp
	if timestamp.IsZero() {
		timestamp = store.now()
	}

	hashKey := store.alertKey(id)
	pipeline := store.client.TxPipeline()
	pipeline.HSet(ctx, hashKey, map[string]interface{}{
		"id":           id,
		"patient_id":   ev.PatientID,
		"band":         ev.Band.String(),
		"systolic":     ev.Systolic,
		"diastolic":    ev.Diastolic,
		"message":      ev.Message,
		"target_phone": ev.TargetPhone,
		"timestamp":    timestamp.UnixMilli(),
	})
	if store.ttl > 0 {
		pipeline.Expire(ctx, hashKey, store.ttl)
	}
	pipeline.ZAdd(ctx, store.timesKey(), redis.Z{Score: float64(timestamp.UnixMilli()), Member: hashKey})

	if _, err := pipeline.Exec(ctx); err != nil {
		return fmt.Errorf("save alert pipeline failed: %w", err)
	}

	if _, err := store.Trim(ctx); err != nil {
		return err
	}
	return nil
}

// Trim drops the oldest alerts beyond maxKeep and returns how many went.
func (store *RedisAlertStore) Trim(ctx context.Context) (int, error) {
	if store.maxKeep <= 0 {
		return 0, nil
	}

	deleted, err := trimAlertsScript.Run(ctx, store.client, []string{store.timesKey()}, store.maxKeep).Int()
	if err != nil {
		return 0, fmt.Errorf("trim alerts failed: %w", err)
	}
	return deleted, nil
}

// QueryAlerts returns up to limit alerts, newest first. patientID 0 means
// every patient; the filter applies after the limit, as entries are
// indexed by time only.
func (store *RedisAlertStore) QueryAlerts(ctx context.Context, patientID int, limit int64) ([]alert.Event, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	keys, err := store.client.ZRevRange(ctx, store.timesKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch alert keys failed: %w", err)
	}

	events := make([]alert.Event, 0, len(keys))
	for _, key := range keys {
		data, err := store.client.HGetAll(ctx, key).Result()
		if err != nil || len(data) == 0 {
			// expired or trimmed concurrently
			continue
		}
		ev := parseAlertHash(data)
		if patientID != 0 && ev.PatientID != patientID {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// TotalAlerts counts indexed alerts.
func (store *RedisAlertStore) TotalAlerts(ctx context.Context) (int64, error) {
	count, err := store.client.ZCard(ctx, store.timesKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count alerts failed: %w", err)
	}
	return count, nil
}

// ==================== Keys ====================

func (store *RedisAlertStore) alertKey(id string) string {
	return fmt.Sprintf(redisAlertKeyFmt, store.namespace, id)
}

func (store *RedisAlertStore) timesKey() string {
	return fmt.Sprintf(redisTimesKeyFmt, store.namespace)
}

func (store *RedisAlertStore) eventID(ctx context.Context, provided string) (string, error) {
	if provided != "" {
		return provided, nil
	}
	seq, err := store.client.Incr(ctx, fmt.Sprintf(redisSeqKeyFmt, store.namespace)).Result()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(seq, 10), nil
}

func parseAlertHash(data map[string]string) alert.Event {
	ev := alert.Event{
		ID:          data["id"],
		Message:     data["message"],
		TargetPhone: data["target_phone"],
	}
	_ = ev.Band.UnmarshalText([]byte(data["band"]))
	ev.PatientID, _ = strconv.Atoi(data["patient_id"])
	ev.Systolic, _ = strconv.Atoi(data["systolic"])
	ev.Diastolic, _ = strconv.Atoi(data["diastolic"])
	if ms, err := strconv.ParseInt(data["timestamp"], 10, 64); err == nil {
		ev.Timestamp = time.UnixMilli(ms)
	}
	return ev
}
