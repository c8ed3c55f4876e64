package rulepop

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/util"
)

// counterKey is the advisory install-count key, reset at the start of every
// population cycle and incremented (not read-modify-written) by every
// call — one atomic Redis command per write rather than read-then-write.
const counterKey = "SR_RULE_COUNTER"

// RedisPopulator writes forwarding rules as Redis hashes: one HSET per
// logical rule, keyed "<table>|<key>", so installing a rule fires exactly
// one keyspace
// notification a downstream agent could subscribe to. Rule storage uses a
// Redis logical DB distinct from mastership (DB 1) and from any APP_DB-style
// verification store.
type RedisPopulator struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisPopulator creates a rule-install client talking to addr on db.
func NewRedisPopulator(addr string, db int) *RedisPopulator {
	return &RedisPopulator{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ctx:    context.Background(),
	}
}

// Close closes the underlying Redis connection.
func (p *RedisPopulator) Close() error {
	return p.client.Close()
}

func hopList(nextHops []fabric.DeviceID) string {
	parts := make([]string, len(nextHops))
	for i, h := range nextHops {
		parts[i] = string(h)
	}
	return strings.Join(parts, ",")
}

func (p *RedisPopulator) set(table, key string, fields map[string]string) bool {
	redisKey := fmt.Sprintf("%s|%s", table, key)
	if err := p.client.HSet(p.ctx, redisKey, fields).Err(); err != nil {
		util.WithFields(map[string]interface{}{"key": redisKey, "error": err}).Warn("rule install failed")
		return false
	}
	p.client.Incr(p.ctx, counterKey)
	return true
}

// PopulateIPRuleForSubnet implements Populator.
func (p *RedisPopulator) PopulateIPRuleForSubnet(target fabric.DeviceID, subnets []netip.Prefix, dest fabric.DeviceID, nextHops []fabric.DeviceID) bool {
	for _, s := range subnets {
		key := fmt.Sprintf("%s|%s|%s", target, dest, s)
		if !p.set("SR_IP_RULE", key, map[string]string{
			"target":   string(target),
			"dest":     string(dest),
			"subnet":   s.String(),
			"nextHops": hopList(nextHops),
		}) {
			return false
		}
	}
	return true
}

// PopulateIPRuleForRouter implements Populator.
func (p *RedisPopulator) PopulateIPRuleForRouter(target fabric.DeviceID, prefix netip.Prefix, dest fabric.DeviceID, nextHops []fabric.DeviceID) bool {
	key := fmt.Sprintf("%s|%s|%s", target, dest, prefix)
	return p.set("SR_ROUTER_IP_RULE", key, map[string]string{
		"target":   string(target),
		"dest":     string(dest),
		"prefix":   prefix.String(),
		"nextHops": hopList(nextHops),
	})
}

// PopulateMPLSRule implements Populator.
func (p *RedisPopulator) PopulateMPLSRule(target, dest fabric.DeviceID, nextHops []fabric.DeviceID, routerIP netip.Addr) bool {
	key := fmt.Sprintf("%s|%s|%s", target, dest, routerIP)
	return p.set("SR_MPLS_RULE", key, map[string]string{
		"target":   string(target),
		"dest":     string(dest),
		"routerIp": routerIP.String(),
		"nextHops": hopList(nextHops),
	})
}

// RevokeIPRuleForSubnet implements Populator.
func (p *RedisPopulator) RevokeIPRuleForSubnet(subnets []netip.Prefix) bool {
	match := "SR_IP_RULE|*"
	iter := p.client.Scan(p.ctx, 0, match, 100).Iterator()

	wanted := make(map[string]bool, len(subnets))
	for _, s := range subnets {
		wanted[s.String()] = true
	}

	ok := true
	for iter.Next(p.ctx) {
		key := iter.Val()
		subnet, err := p.client.HGet(p.ctx, key, "subnet").Result()
		if err != nil {
			continue
		}
		if wanted[subnet] {
			if err := p.client.Del(p.ctx, key).Err(); err != nil {
				util.WithFields(map[string]interface{}{"key": key, "error": err}).Warn("rule revoke failed")
				ok = false
				continue
			}
			p.client.Incr(p.ctx, counterKey)
		}
	}
	if err := iter.Err(); err != nil {
		util.WithField("error", err).Warn("subnet revoke scan failed")
		return false
	}
	return ok
}

// PopulateRouterIPPunts implements Populator.
func (p *RedisPopulator) PopulateRouterIPPunts(id fabric.DeviceID) {
	p.set("SR_PUNT_ROUTER_IP", string(id), map[string]string{"device": string(id)})
}

// PopulateArpNdpPunts implements Populator.
func (p *RedisPopulator) PopulateArpNdpPunts(id fabric.DeviceID) {
	p.set("SR_PUNT_ARP_NDP", string(id), map[string]string{"device": string(id)})
}

// PopulateRouterMacVlanFilters implements Populator. It always succeeds at
// installing against the store; the PortFilterInfo counts reflect whatever
// the device had discoverable port state for. A real switch-agent-backed
// implementation would leave filtered/error/disabled at zero when the
// device's ports are not yet known, which is exactly the signal
// RetryFilters watches for.
func (p *RedisPopulator) PopulateRouterMacVlanFilters(id fabric.DeviceID) (*PortFilterInfo, bool) {
	key := fmt.Sprintf("SR_PORT_FILTER_SUMMARY|%s", id)
	fields, err := p.client.HGetAll(p.ctx, key).Result()
	if err != nil {
		util.WithFields(map[string]interface{}{"device": id, "error": err}).Warn("port filter summary read failed")
		return nil, false
	}
	if len(fields) == 0 {
		return &PortFilterInfo{}, true
	}

	info := PortFilterInfo{
		DisabledPorts: atoiOr(fields["disabled"]),
		ErrorPorts:    atoiOr(fields["error"]),
		FilteredPorts: atoiOr(fields["filtered"]),
	}
	return &info, true
}

func atoiOr(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// PopulateSinglePortFilters implements Populator.
func (p *RedisPopulator) PopulateSinglePortFilters(id fabric.DeviceID, port fabric.PortID) {
	key := fmt.Sprintf("%s|%s", id, port)
	p.set("SR_PORT_FILTER", key, map[string]string{"device": string(id), "port": string(port)})
}

// RevokeSinglePortFilters implements Populator.
func (p *RedisPopulator) RevokeSinglePortFilters(id fabric.DeviceID, port fabric.PortID) {
	redisKey := fmt.Sprintf("SR_PORT_FILTER|%s|%s", id, port)
	if err := p.client.Del(p.ctx, redisKey).Err(); err != nil {
		util.WithFields(map[string]interface{}{"key": redisKey, "error": err}).Warn("port filter revoke failed")
		return
	}
	p.client.Incr(p.ctx, counterKey)
}

// ResetCounter implements Populator.
func (p *RedisPopulator) ResetCounter() {
	p.client.Set(p.ctx, counterKey, 0, 0)
}

// Counter implements Populator.
func (p *RedisPopulator) Counter() int64 {
	n, err := p.client.Get(p.ctx, counterKey).Int64()
	if err != nil {
		return 0
	}
	return n
}
