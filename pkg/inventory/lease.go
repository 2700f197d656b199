package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrDeviceLeased means another holder owns the device lease.
var ErrDeviceLeased = errors.New("device leased by another holder")

// RedisAddrEnv overrides the lease backend address.
const RedisAddrEnv = "NETCHECK_REDIS_ADDR"

// DefaultLeaseTTL bounds how long a crashed run can keep a device leased.
const DefaultLeaseTTL = 30 * time.Minute

// acquireLeaseScript atomically takes the lease if it is free.
// Returns 1 on success, 0 if already held.
var acquireLeaseScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2], "ttl", ARGV[3])
redis.call("EXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// releaseLeaseScript releases the lease only for its holder.
// Returns 1 on success, 0 on holder mismatch, -1 if no lease exists.
var releaseLeaseScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, "holder")
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

// LeaseClient arbitrates exclusive device access through Redis.
type LeaseClient struct {
	client *redis.Client
}

// NewLeaseClient builds a client for the lease backend. The address falls
// back to NETCHECK_REDIS_ADDR, then localhost.
func NewLeaseClient(addr string) *LeaseClient {
	return &LeaseClient{
		client: redis.NewClient(&redis.Options{
			Addr: leaseAddr(addr),
		}),
	}
}

// Connect tests the connection.
func (c *LeaseClient) Connect(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("lease backend %s: %w", c.client.Options().Addr, err)
	}
	return nil
}

func leaseAddr(addr string) string {
	if addr != "" {
		return addr
	}
	if env := os.Getenv(RedisAddrEnv); env != "" {
		return env
	}
	return "127.0.0.1:6379"
}

func leaseKey(device string) string {
	return fmt.Sprintf("NETCHECK_LEASE|%s", device)
}

// Acquire takes the device lease for the holder, with an expiry so crashed
// runs cannot wedge a device forever. Returns ErrDeviceLeased when another
// holder owns it.
func (c *LeaseClient) Acquire(ctx context.Context, device, holder string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := acquireLeaseScript.Run(ctx, c.client, []string{leaseKey(device)},
		holder, now, fmt.Sprintf("%d", int(ttl.Seconds()))).Int()
	if err != nil {
		return fmt.Errorf("acquiring lease for %s: %w", device, err)
	}
	if result == 0 {
		return fmt.Errorf("device %s: %w", device, ErrDeviceLeased)
	}
	return nil
}

// Release drops the device lease if the holder still owns it. A vanished
// lease (expired TTL) is treated as released.
func (c *LeaseClient) Release(ctx context.Context, device, holder string) error {
	result, err := releaseLeaseScript.Run(ctx, c.client, []string{leaseKey(device)}, holder).Int()
	if err != nil {
		return fmt.Errorf("releasing lease for %s: %w", device, err)
	}
	if result == 0 {
		return fmt.Errorf("lease holder mismatch for %s", device)
	}
	return nil
}

// Holder reports who holds the device lease and since when. Empty holder
// means the device is free.
func (c *LeaseClient) Holder(ctx context.Context, device string) (string, time.Time, error) {
	vals, err := c.client.HGetAll(ctx, leaseKey(device)).Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("reading lease for %s: %w", device, err)
	}
	if len(vals) == 0 {
		return "", time.Time{}, nil
	}
	acquired := time.Time{}
	if ts, ok := vals["acquired"]; ok {
		acquired, _ = time.Parse(time.RFC3339, ts)
	}
	return vals["holder"], acquired, nil
}

// Close releases the Redis connection.
func (c *LeaseClient) Close() error {
	return c.client.Close()
}
