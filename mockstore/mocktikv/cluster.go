// Package mocktikv is an in process implementation of a sharded kv cluster:
// a placement driver, region topology and a percolator style mvcc store,
// all behind the same interfaces the real clients speak. Tests use it to
// exercise routing, retries and the commit protocol without a network.
package mocktikv

import (
	"bytes"
	"sync"

	"github.com/pingcap-incubator/tinykv-client/proto/pkg/metapb"
)

// Cluster holds the region and store topology. Tests mutate it mid flight,
// splitting regions or moving leaders, to provoke the client's staleness
// handling.
type Cluster struct {
	sync.RWMutex
	clusterID uint64
	allocID   uint64
	stores    map[uint64]*metapb.Store
	regions   map[uint64]*mockRegion
}

type mockRegion struct {
	meta   *metapb.Region
	leader uint64
}

// NewCluster creates an empty cluster. Bootstrap it before use.
func NewCluster() *Cluster {
	return &Cluster{
		clusterID: 1,
		stores:    make(map[uint64]*metapb.Store),
		regions:   make(map[uint64]*mockRegion),
	}
}

// AllocID returns a unique id for stores, peers and regions.
func (c *Cluster) AllocID() uint64 {
	c.Lock()
	defer c.Unlock()
	return c.allocIDLocked()
}

// AllocIDs returns n unique ids.
func (c *Cluster) AllocIDs(n int) []uint64 {
	c.Lock()
	defer c.Unlock()
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = c.allocIDLocked()
	}
	return ids
}

func (c *Cluster) allocIDLocked() uint64 {
	c.allocID++
	return c.allocID
}

// GetClusterID returns the cluster id.
func (c *Cluster) GetClusterID() uint64 {
	return c.clusterID
}

// AddStore registers a store.
func (c *Cluster) AddStore(storeID uint64, addr string) {
	c.Lock()
	defer c.Unlock()
	c.stores[storeID] = &metapb.Store{
		Id:      storeID,
		Address: addr,
		State:   metapb.StoreState_Up,
	}
}

// RemoveStore drops a store. Requests routed to it afterwards fail at the
// transport layer.
func (c *Cluster) RemoveStore(storeID uint64) {
	c.Lock()
	defer c.Unlock()
	delete(c.stores, storeID)
}

// GetStore returns the store meta, or nil when it does not exist.
func (c *Cluster) GetStore(storeID uint64) *metapb.Store {
	c.RLock()
	defer c.RUnlock()
	if s, ok := c.stores[storeID]; ok {
		return cloneStore(s)
	}
	return nil
}

// GetAllStores returns all store metas.
func (c *Cluster) GetAllStores() []*metapb.Store {
	c.RLock()
	defer c.RUnlock()
	stores := make([]*metapb.Store, 0, len(c.stores))
	for _, s := range c.stores {
		stores = append(stores, cloneStore(s))
	}
	return stores
}

// Bootstrap creates the first region covering the whole key space.
func (c *Cluster) Bootstrap(regionID uint64, storeIDs, peerIDs []uint64, leaderPeerID uint64) {
	c.Lock()
	defer c.Unlock()
	c.regions[regionID] = &mockRegion{
		meta:   newRegionMeta(regionID, nil, nil, storeIDs, peerIDs),
		leader: leaderPeerID,
	}
}

// Split cuts the region owning key at key. The new region takes the right
// half and gets fresh peer ids on the same stores.
func (c *Cluster) Split(regionID, newRegionID uint64, key []byte, peerIDs []uint64, leaderPeerID uint64) {
	c.Lock()
	defer c.Unlock()
	old, ok := c.regions[regionID]
	if !ok {
		return
	}
	storeIDs := make([]uint64, 0, len(old.meta.Peers))
	for _, p := range old.meta.Peers {
		storeIDs = append(storeIDs, p.StoreId)
	}
	newMeta := newRegionMeta(newRegionID, key, old.meta.EndKey, storeIDs, peerIDs)
	newMeta.RegionEpoch.Version = old.meta.RegionEpoch.Version + 1

	old.meta.EndKey = append([]byte{}, key...)
	old.meta.RegionEpoch.Version++

	c.regions[newRegionID] = &mockRegion{meta: newMeta, leader: leaderPeerID}
}

// ChangeLeader moves a region's leadership to another of its peers.
func (c *Cluster) ChangeLeader(regionID, leaderPeerID uint64) {
	c.Lock()
	defer c.Unlock()
	if r, ok := c.regions[regionID]; ok {
		r.leader = leaderPeerID
	}
}

// GiveUpLeader leaves the region leaderless, as during an election.
func (c *Cluster) GiveUpLeader(regionID uint64) {
	c.ChangeLeader(regionID, 0)
}

// GetRegionByKey returns the region owning key and its leader peer.
func (c *Cluster) GetRegionByKey(key []byte) (*metapb.Region, *metapb.Peer) {
	c.RLock()
	defer c.RUnlock()
	for _, r := range c.regions {
		if regionContains(r.meta, key) {
			return cloneRegion(r.meta), leaderPeer(r)
		}
	}
	return nil, nil
}

// GetRegionByID returns the region with the given id and its leader peer.
func (c *Cluster) GetRegionByID(regionID uint64) (*metapb.Region, *metapb.Peer) {
	c.RLock()
	defer c.RUnlock()
	if r, ok := c.regions[regionID]; ok {
		return cloneRegion(r.meta), leaderPeer(r)
	}
	return nil, nil
}

// ScanRegions returns up to limit regions with start key at or after key,
// in key order.
func (c *Cluster) ScanRegions(key, endKey []byte, limit int) ([]*metapb.Region, []*metapb.Peer) {
	c.RLock()
	defer c.RUnlock()
	var all []*mockRegion
	for _, r := range c.regions {
		if len(endKey) > 0 && bytes.Compare(r.meta.StartKey, endKey) >= 0 {
			continue
		}
		if len(r.meta.EndKey) > 0 && bytes.Compare(r.meta.EndKey, key) <= 0 {
			continue
		}
		all = append(all, r)
	}
	sortRegions(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	regions := make([]*metapb.Region, 0, len(all))
	leaders := make([]*metapb.Peer, 0, len(all))
	for _, r := range all {
		regions = append(regions, cloneRegion(r.meta))
		leaders = append(leaders, leaderPeer(r))
	}
	return regions, leaders
}

// leaderRegion returns the raw region and leader for the request checker.
func (c *Cluster) leaderRegion(regionID uint64) (*metapb.Region, uint64) {
	c.RLock()
	defer c.RUnlock()
	if r, ok := c.regions[regionID]; ok {
		return cloneRegion(r.meta), r.leader
	}
	return nil, 0
}

func sortRegions(rs []*mockRegion) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && bytes.Compare(rs[j].meta.StartKey, rs[j-1].meta.StartKey) < 0; j-- {
			rs[j], rs[j-1] = rs[j-1], rs[j]
		}
	}
}

func leaderPeer(r *mockRegion) *metapb.Peer {
	for _, p := range r.meta.Peers {
		if p.Id == r.leader {
			return clonePeer(p)
		}
	}
	return nil
}

func regionContains(meta *metapb.Region, key []byte) bool {
	return bytes.Compare(meta.StartKey, key) <= 0 &&
		(bytes.Compare(key, meta.EndKey) < 0 || len(meta.EndKey) == 0)
}

func newRegionMeta(regionID uint64, start, end []byte, storeIDs, peerIDs []uint64) *metapb.Region {
	peers := make([]*metapb.Peer, 0, len(storeIDs))
	for i, sid := range storeIDs {
		peers = append(peers, &metapb.Peer{Id: peerIDs[i], StoreId: sid})
	}
	return &metapb.Region{
		Id:          regionID,
		StartKey:    append([]byte{}, start...),
		EndKey:      append([]byte{}, end...),
		RegionEpoch: &metapb.RegionEpoch{ConfVer: 1, Version: 1},
		Peers:       peers,
	}
}

func cloneStore(s *metapb.Store) *metapb.Store {
	cp := *s
	return &cp
}

func clonePeer(p *metapb.Peer) *metapb.Peer {
	cp := *p
	return &cp
}

func cloneRegion(m *metapb.Region) *metapb.Region {
	cp := *m
	cp.StartKey = append([]byte{}, m.StartKey...)
	cp.EndKey = append([]byte{}, m.EndKey...)
	epoch := *m.RegionEpoch
	cp.RegionEpoch = &epoch
	cp.Peers = make([]*metapb.Peer, 0, len(m.Peers))
	for _, p := range m.Peers {
		cp.Peers = append(cp.Peers, clonePeer(p))
	}
	return &cp
}

// BootstrapWithSingleStore sets up one store owning one region over the
// whole key space and returns the ids.
func BootstrapWithSingleStore(cluster *Cluster) (storeID, peerID, regionID uint64) {
	ids := cluster.AllocIDs(3)
	storeID, peerID, regionID = ids[0], ids[1], ids[2]
	cluster.AddStore(storeID, "store1")
	cluster.Bootstrap(regionID, []uint64{storeID}, []uint64{peerID}, peerID)
	return
}

// BootstrapWithMultiRegions sets up one store and splits the key space at
// the given keys, returning the region ids in key order.
func BootstrapWithMultiRegions(cluster *Cluster, splitKeys ...[]byte) (storeID uint64, regionIDs []uint64) {
	storeID, _, firstRegionID := BootstrapWithSingleStore(cluster)
	regionIDs = []uint64{firstRegionID}
	prev := firstRegionID
	for _, k := range splitKeys {
		ids := cluster.AllocIDs(2)
		newRegionID, newPeerID := ids[0], ids[1]
		cluster.Split(prev, newRegionID, k, []uint64{newPeerID}, newPeerID)
		regionIDs = append(regionIDs, newRegionID)
		prev = newRegionID
	}
	return
}
