package fabric

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/srfabric/srctl/pkg/util"
)

// mastershipKeyPrefix namespaces mastership locks in the shared Redis
// instance.
const mastershipKeyPrefix = "SRCTL_MASTER|"

// campaignScript atomically (re)claims the mastership key for holder: it
// succeeds if the key is absent, or already held by holder (renewal), and
// fails if held by someone else. Returns 1 on success, 0 otherwise.
var campaignScript = redis.NewScript(`
local key = KEYS[1]
local holder = ARGV[1]
local ttl = ARGV[2]
local current = redis.call("GET", key)
if current == false or current == holder then
	redis.call("SET", key, holder, "EX", ttl)
	return 1
end
return 0
`)

// resignScript releases the mastership key only if still held by holder.
var resignScript = redis.NewScript(`
local key = KEYS[1]
local holder = ARGV[1]
local current = redis.call("GET", key)
if current == holder then
	redis.call("DEL", key)
	return 1
end
return 0
`)

// RedisMastership is a distributed, TTL-based leader-election lock per
// device. Unlike a single-shot acquire/release lock, mastership here is
// renewed by repeated Campaign calls — a controller instance keeps
// mastership only as long as it keeps renewing.
type RedisMastership struct {
	client     *redis.Client
	instanceID string
	ttl        time.Duration
}

// NewRedisMastership creates a mastership client talking to addr, identifying
// this controller instance as instanceID.
func NewRedisMastership(addr, instanceID string, ttl time.Duration) *RedisMastership {
	return &RedisMastership{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   1, // separate logical DB from rule storage
		}),
		instanceID: instanceID,
		ttl:        ttl,
	}
}

// Close closes the underlying Redis connection.
func (m *RedisMastership) Close() error {
	return m.client.Close()
}

// Campaign attempts to claim or renew mastership of id for this instance.
// Returns true if this instance holds mastership after the call.
func (m *RedisMastership) Campaign(ctx context.Context, id DeviceID) (bool, error) {
	key := mastershipKeyPrefix + string(id)
	ttlSeconds := int64(m.ttl / time.Second)
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}
	result, err := campaignScript.Run(ctx, m.client, []string{key}, m.instanceID, ttlSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("campaigning for mastership of %s: %w", id, err)
	}
	won := result == 1
	util.WithFields(map[string]interface{}{"device": id, "won": won}).Debug("mastership campaign")
	return won, nil
}

// Resign releases mastership of id if this instance currently holds it.
func (m *RedisMastership) Resign(ctx context.Context, id DeviceID) error {
	key := mastershipKeyPrefix + string(id)
	_, err := resignScript.Run(ctx, m.client, []string{key}, m.instanceID).Result()
	if err != nil {
		return fmt.Errorf("resigning mastership of %s: %w", id, err)
	}
	return nil
}

// renewalFraction sets the renewal tick at a quarter of the TTL, leaving
// three missed ticks of slack (a transient Redis error, a slow campaign)
// before mastership actually lapses.
const renewalFraction = 4

// StartRenewing launches the single background goroutine that keeps
// mastership alive for every device ids returns, re-running Campaign on a
// fixed tick for as long as the returned cancel function hasn't been
// called. Campaign's Lua script is already renewal-safe — it succeeds
// whether the key is unheld or already held by this instance — so
// re-campaigning on a timer is the renewal mechanism itself; this just
// drives it. One goroutine per RedisMastership handles every device it's
// asked to renew, rather than one per device.
func (m *RedisMastership) StartRenewing(ctx context.Context, ids func() ([]DeviceID, error)) func() {
	interval := m.ttl / renewalFraction
	if interval <= 0 {
		interval = time.Second
	}
	stop := make(chan struct{})
	go m.renewLoop(ctx, ids, interval, stop)
	return func() {
		select {
		case <-stop:
		default:
			close(stop)
		}
	}
}

// renewLoop is the renewal goroutine: one ticker, one select, exits on
// either stop or ctx being done.
func (m *RedisMastership) renewLoop(ctx context.Context, ids func() ([]DeviceID, error), interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			devices, err := ids()
			if err != nil {
				util.WithField("error", err).Warn("mastership renewal: device list failed")
				continue
			}
			for _, id := range devices {
				if _, err := m.Campaign(ctx, id); err != nil {
					util.WithFields(map[string]interface{}{"device": id, "error": err}).Warn("mastership renewal failed")
				}
			}
		}
	}
}

// IsLocalMaster reports whether this instance currently holds mastership of
// id, per the Redis key's current value. It does not attempt to claim it —
// callers drive acquisition separately via Campaign, exactly as a real SDN
// controller's mastership service would notify of role changes out-of-band.
func (m *RedisMastership) IsLocalMaster(ctx context.Context, id DeviceID) (bool, error) {
	key := mastershipKeyPrefix + string(id)
	holder, err := m.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking mastership of %s: %w", id, err)
	}
	return holder == m.instanceID, nil
}

// RedisFabricView pairs an in-memory topology store (fed by discovery
// events) with Redis-backed mastership, giving a complete FabricView that
// exercises the pack's go-redis dependency for the mastership half of the
// contract while keeping topology ingestion process-local.
type RedisFabricView struct {
	*MemView
	mastership *RedisMastership
}

// NewRedisFabricView creates a FabricView backed by mem for topology and
// mastership for mastership.
func NewRedisFabricView(mem *MemView, mastership *RedisMastership) *RedisFabricView {
	return &RedisFabricView{MemView: mem, mastership: mastership}
}

// IsLocalMaster overrides MemView's map-backed check with the Redis lock.
func (v *RedisFabricView) IsLocalMaster(ctx context.Context, id DeviceID) (bool, error) {
	return v.mastership.IsLocalMaster(ctx, id)
}
