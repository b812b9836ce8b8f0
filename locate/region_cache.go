// Package locate maintains the client's view of how the key space maps onto
// regions and how regions map onto storage node leaders. The view is a cache:
// it may be stale at any moment, and every consumer must be prepared to
// invalidate an entry and look it up again when a storage node disagrees.
package locate

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/google/btree"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pingcap-incubator/tinykv-client/pd"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/metapb"
	"github.com/pingcap-incubator/tinykv-client/retry"
)

// ErrRegionNotFound is returned when the coordination service reports no
// region owning a key. It is a hard error here; whether the whole operation
// retries is the caller's retry policy, not this package's.
var ErrRegionNotFound = errors.New("region not found")

const btreeDegree = 32

// RegionVerID identifies one version of one region. Any split, merge, or
// membership change produces a new ver or confVer, so two equal RegionVerIDs
// name exactly the same key range and peer set.
type RegionVerID struct {
	id      uint64
	confVer uint64
	ver     uint64
}

// GetID returns the region's id.
func (r *RegionVerID) GetID() uint64 {
	return r.id
}

func (r RegionVerID) String() string {
	return fmt.Sprintf("{%d, %d, %d}", r.id, r.confVer, r.ver)
}

// Region wraps region metadata together with the leader the client currently
// believes in.
type Region struct {
	meta   *metapb.Region
	leader *metapb.Peer
}

// VerID returns the versioned identifier of the region.
func (r *Region) VerID() RegionVerID {
	return RegionVerID{
		id:      r.meta.GetId(),
		confVer: r.meta.GetRegionEpoch().GetConfVer(),
		ver:     r.meta.GetRegionEpoch().GetVersion(),
	}
}

// StartKey returns the inclusive lower bound of the region.
func (r *Region) StartKey() []byte {
	return r.meta.StartKey
}

// EndKey returns the exclusive upper bound of the region; empty means
// unbounded.
func (r *Region) EndKey() []byte {
	return r.meta.EndKey
}

// Contains reports whether the region's range covers key.
func (r *Region) Contains(key []byte) bool {
	return bytes.Compare(r.meta.GetStartKey(), key) <= 0 &&
		(bytes.Compare(key, r.meta.GetEndKey()) < 0 || len(r.meta.GetEndKey()) == 0)
}

// leaderPeer returns the peer believed to be leader, falling back to the
// first peer when PD did not report one.
func (r *Region) leaderPeer() *metapb.Peer {
	if r.leader != nil && r.leader.GetId() != 0 {
		return r.leader
	}
	if len(r.meta.Peers) > 0 {
		return r.meta.Peers[0]
	}
	return nil
}

// KeyLocation is the result of a key lookup: which region version holds the
// key and the range the answer is valid for.
type KeyLocation struct {
	Region   RegionVerID
	StartKey []byte
	EndKey   []byte
}

// Contains reports whether the location covers key.
func (l *KeyLocation) Contains(key []byte) bool {
	return bytes.Compare(l.StartKey, key) <= 0 &&
		(bytes.Compare(key, l.EndKey) < 0 || len(l.EndKey) == 0)
}

// RPCContext carries everything needed to address one region scoped request:
// the region version, its metadata, the leader peer and the leader's address.
type RPCContext struct {
	Region RegionVerID
	Meta   *metapb.Region
	Peer   *metapb.Peer
	Addr   string
}

func (c *RPCContext) String() string {
	return fmt.Sprintf("region %s, peer %d, addr %s", c.Region, c.Peer.GetId(), c.Addr)
}

type btreeItem struct {
	key    []byte
	region *Region
}

func (item *btreeItem) Less(other btree.Item) bool {
	return bytes.Compare(item.key, other.(*btreeItem).key) < 0
}

// RegionCache caches the region metadata and store addresses fetched from
// PD. It is read-mostly: lookups take the read lock, and a reload of one
// stale entry never blocks lookups of unrelated entries.
type RegionCache struct {
	pdClient pd.Client

	mu struct {
		sync.RWMutex
		regions map[RegionVerID]*Region
		sorted  *btree.BTree
	}
	storeMu struct {
		sync.RWMutex
		stores map[uint64]string
	}
	// loads coalesces concurrent PD lookups of the same key or store so a
	// herd of requests hitting one stale entry produces one refresh.
	loads singleflight.Group
}

// NewRegionCache creates a RegionCache.
func NewRegionCache(pdClient pd.Client) *RegionCache {
	c := &RegionCache{pdClient: pdClient}
	c.mu.regions = make(map[RegionVerID]*Region)
	c.mu.sorted = btree.New(btreeDegree)
	c.storeMu.stores = make(map[uint64]string)
	return c
}

// LocateKey finds the region and range the key lives in, consulting PD on a
// cache miss.
func (c *RegionCache) LocateKey(bo *retry.Backoffer, key []byte) (*KeyLocation, error) {
	if r := c.searchCachedRegion(key); r != nil {
		return &KeyLocation{
			Region:   r.VerID(),
			StartKey: r.StartKey(),
			EndKey:   r.EndKey(),
		}, nil
	}

	r, err := c.loadRegion(bo, key)
	if err != nil {
		return nil, errors.Trace(err)
	}
	c.insertRegionToCache(r)
	return &KeyLocation{
		Region:   r.VerID(),
		StartKey: r.StartKey(),
		EndKey:   r.EndKey(),
	}, nil
}

// LocateRegionByID finds the current range of the region with the given id.
func (c *RegionCache) LocateRegionByID(bo *retry.Backoffer, regionID uint64) (*KeyLocation, error) {
	c.mu.RLock()
	for verID, r := range c.mu.regions {
		if verID.id == regionID {
			loc := &KeyLocation{
				Region:   r.VerID(),
				StartKey: r.StartKey(),
				EndKey:   r.EndKey(),
			}
			c.mu.RUnlock()
			return loc, nil
		}
	}
	c.mu.RUnlock()

	r, err := c.loadRegionByID(bo, regionID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	c.insertRegionToCache(r)
	return &KeyLocation{
		Region:   r.VerID(),
		StartKey: r.StartKey(),
		EndKey:   r.EndKey(),
	}, nil
}

// GroupKeysByRegion splits keys into per region groups. It also returns the
// region of the first key, which 2PC uses to place the primary.
func (c *RegionCache) GroupKeysByRegion(bo *retry.Backoffer, keys [][]byte) (map[RegionVerID][][]byte, RegionVerID, error) {
	groups := make(map[RegionVerID][][]byte)
	var first RegionVerID
	var lastLoc *KeyLocation
	for i, k := range keys {
		if lastLoc == nil || !lastLoc.Contains(k) {
			var err error
			lastLoc, err = c.LocateKey(bo, k)
			if err != nil {
				return nil, first, errors.Trace(err)
			}
		}
		id := lastLoc.Region
		if i == 0 {
			first = id
		}
		groups[id] = append(groups[id], k)
	}
	return groups, first, nil
}

// GetRPCContext resolves a cached region version into an addressable leader.
// It returns nil without error when the region is no longer cached, which
// tells the caller its routing is stale and the key must be located again.
func (c *RegionCache) GetRPCContext(bo *retry.Backoffer, id RegionVerID) (*RPCContext, error) {
	c.mu.RLock()
	r, ok := c.mu.regions[id]
	var meta *metapb.Region
	var peer *metapb.Peer
	if ok {
		// UpdateLeader swaps r.leader in place, so it must be read under
		// the lock. meta is never mutated after insert.
		meta = r.meta
		peer = r.leaderPeer()
	}
	c.mu.RUnlock()
	if !ok || peer == nil {
		return nil, nil
	}
	addr, err := c.GetStoreAddr(bo, peer.GetStoreId())
	if err != nil {
		return nil, errors.Trace(err)
	}
	if addr == "" {
		// Store was dropped from PD; the region cache entry is useless.
		c.InvalidateCachedRegion(id)
		return nil, nil
	}
	return &RPCContext{
		Region: id,
		Meta:   meta,
		Peer:   peer,
		Addr:   addr,
	}, nil
}

// InvalidateCachedRegion removes a region entry. The next lookup of any key
// in its range goes back to PD.
func (c *RegionCache) InvalidateCachedRegion(id RegionVerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.mu.regions[id]
	if !ok {
		return
	}
	delete(c.mu.regions, id)
	c.mu.sorted.Delete(&btreeItem{key: r.StartKey()})
}

// UpdateLeader installs a new leader for a cached region, keeping the entry
// alive. The region is dropped instead when the reported leader is not among
// its peers, since the peer set itself must then be stale.
func (c *RegionCache) UpdateLeader(id RegionVerID, leaderStoreID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.mu.regions[id]
	if !ok {
		log.Debug("regionCache: cannot find region when updating leader",
			zap.Uint64("region-id", id.GetID()))
		return
	}
	for _, p := range r.meta.Peers {
		if p.GetStoreId() == leaderStoreID {
			r.leader = p
			return
		}
	}
	delete(c.mu.regions, id)
	c.mu.sorted.Delete(&btreeItem{key: r.StartKey()})
}

// OnSendFail is called after a transport failure. Both the region entry and
// the store address are dropped so the retry path re-resolves everything.
func (c *RegionCache) OnSendFail(bo *retry.Backoffer, ctx *RPCContext, err error) {
	log.Debug("regionCache: drop entries after send failure",
		zap.Stringer("ctx", ctx), zap.Error(err))
	c.InvalidateCachedRegion(ctx.Region)
	c.invalidateStoreAddr(ctx.Peer.GetStoreId())
}

// OnRegionEpochNotMatch repairs the cache from an epoch mismatch response.
// The stale entry is removed and any region metadata the store handed back
// is installed, so the next attempt usually needs no PD round trip.
func (c *RegionCache) OnRegionEpochNotMatch(bo *retry.Backoffer, ctx *RPCContext, currentRegions []*metapb.Region) {
	c.InvalidateCachedRegion(ctx.Region)
	for _, meta := range currentRegions {
		if meta.GetRegionEpoch() == nil || len(meta.GetPeers()) == 0 {
			continue
		}
		region := &Region{meta: meta}
		// Keep the leader we already believed in if it survived the epoch
		// change.
		for _, p := range meta.Peers {
			if p.GetStoreId() == ctx.Peer.GetStoreId() {
				region.leader = p
				break
			}
		}
		c.insertRegionToCache(region)
	}
}

// GetStoreAddr returns the address of a store, consulting PD on a miss. An
// empty address with nil error means the store is gone for good (tombstone).
func (c *RegionCache) GetStoreAddr(bo *retry.Backoffer, storeID uint64) (string, error) {
	c.storeMu.RLock()
	addr, ok := c.storeMu.stores[storeID]
	c.storeMu.RUnlock()
	if ok {
		return addr, nil
	}
	return c.reloadStoreAddr(bo, storeID)
}

func (c *RegionCache) reloadStoreAddr(bo *retry.Backoffer, storeID uint64) (string, error) {
	v, err, _ := c.loads.Do(fmt.Sprintf("store-%d", storeID), func() (interface{}, error) {
		for {
			store, err := c.pdClient.GetStore(bo.GetContext(), storeID)
			if err != nil {
				if errors.Cause(err) == context.Canceled {
					return "", errors.Trace(err)
				}
				if err = bo.Backoff(retry.BoPDRPC, errors.Errorf("get store %d failed: %v", storeID, err)); err != nil {
					return "", errors.Trace(err)
				}
				continue
			}
			if store == nil {
				return "", nil
			}
			return store.GetAddress(), nil
		}
	})
	if err != nil {
		return "", errors.Trace(err)
	}
	addr := v.(string)
	if addr != "" {
		c.storeMu.Lock()
		c.storeMu.stores[storeID] = addr
		c.storeMu.Unlock()
	}
	return addr, nil
}

func (c *RegionCache) invalidateStoreAddr(storeID uint64) {
	c.storeMu.Lock()
	delete(c.storeMu.stores, storeID)
	c.storeMu.Unlock()
}

// searchCachedRegion finds the cached region covering key, or nil.
func (c *RegionCache) searchCachedRegion(key []byte) *Region {
	var r *Region
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.mu.sorted.DescendLessOrEqual(&btreeItem{key: key}, func(item btree.Item) bool {
		r = item.(*btreeItem).region
		return false
	})
	if r != nil && r.Contains(key) {
		return r
	}
	return nil
}

// insertRegionToCache installs a region, evicting any cached entries whose
// range overlaps it; their routing is stale by definition.
func (c *RegionCache) insertRegionToCache(r *Region) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []*btreeItem
	c.mu.sorted.AscendGreaterOrEqual(&btreeItem{key: r.StartKey()}, func(item btree.Item) bool {
		it := item.(*btreeItem)
		if len(r.EndKey()) > 0 && bytes.Compare(it.key, r.EndKey()) >= 0 {
			return false
		}
		stale = append(stale, it)
		return true
	})
	// An older region starting before r may still overlap it.
	c.mu.sorted.DescendLessOrEqual(&btreeItem{key: r.StartKey()}, func(item btree.Item) bool {
		it := item.(*btreeItem)
		if bytes.Equal(it.key, r.StartKey()) {
			return true
		}
		if it.region.Contains(r.StartKey()) {
			stale = append(stale, it)
		}
		return false
	})
	for _, it := range stale {
		c.mu.sorted.Delete(it)
		delete(c.mu.regions, it.region.VerID())
	}

	c.mu.sorted.ReplaceOrInsert(&btreeItem{key: r.StartKey(), region: r})
	c.mu.regions[r.VerID()] = r
}

// loadRegion fetches the region owning key from PD, coalescing concurrent
// fetches of the same key.
func (c *RegionCache) loadRegion(bo *retry.Backoffer, key []byte) (*Region, error) {
	v, err, _ := c.loads.Do("key-"+string(key), func() (interface{}, error) {
		for {
			meta, leader, err := c.pdClient.GetRegion(bo.GetContext(), key)
			if err != nil {
				if errors.Cause(err) == context.Canceled {
					return nil, errors.Trace(err)
				}
				if err = bo.Backoff(retry.BoPDRPC, errors.Errorf("load region failed: %v", err)); err != nil {
					return nil, errors.Trace(err)
				}
				continue
			}
			if meta == nil {
				return nil, errors.Annotatef(ErrRegionNotFound, "key %q", key)
			}
			if len(meta.Peers) == 0 {
				return nil, errors.Errorf("receive region with no peer, region %d", meta.GetId())
			}
			return &Region{meta: meta, leader: leader}, nil
		}
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return v.(*Region), nil
}

func (c *RegionCache) loadRegionByID(bo *retry.Backoffer, regionID uint64) (*Region, error) {
	for {
		meta, leader, err := c.pdClient.GetRegionByID(bo.GetContext(), regionID)
		if err != nil {
			if errors.Cause(err) == context.Canceled {
				return nil, errors.Trace(err)
			}
			if err = bo.Backoff(retry.BoPDRPC, errors.Errorf("load region %d failed: %v", regionID, err)); err != nil {
				return nil, errors.Trace(err)
			}
			continue
		}
		if meta == nil {
			return nil, errors.Annotatef(ErrRegionNotFound, "region %d", regionID)
		}
		if len(meta.Peers) == 0 {
			return nil, errors.Errorf("receive region with no peer, region %d", meta.GetId())
		}
		return &Region{meta: meta, leader: leader}, nil
	}
}
