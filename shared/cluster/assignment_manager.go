// shared/cluster/assignment_manager.go
package cluster

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/stathat/consistent"
	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/shared/registry"
)

// ServiceLister is the part of the registry the manager reads.
type ServiceLister interface {
	GetActiveServices(ctx context.Context, serviceType string) (map[string]registry.ServiceInfo, error)
}

// ServiceAssignmentManager decides which live instance owns a key (a scheduled
// job name, a player id) using consistent hashing across registered instances.
type ServiceAssignmentManager struct {
	lister         ServiceLister
	serviceType    string
	selfID         string
	updateInterval time.Duration
	logger         *zap.Logger

	chMux          sync.RWMutex
	consistentHash *consistent.Consistent

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServiceAssignmentManager creates a manager whose ring starts with only this instance.
func NewServiceAssignmentManager(
	lister ServiceLister,
	serviceType, selfID string,
	updateInterval time.Duration,
	logger *zap.Logger,
) *ServiceAssignmentManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	sam := &ServiceAssignmentManager{
		lister:         lister,
		serviceType:    serviceType,
		selfID:         selfID,
		updateInterval: updateInterval,
		logger:         logger.With(zap.String("service_type", serviceType), zap.String("service_id", selfID)),
		consistentHash: consistent.New(),
		ctx:            ctx,
		cancel:         cancel,
	}
	sam.consistentHash.Add(selfID)
	return sam
}

// Start refreshes the ring on every tick until Stop. Run it in a goroutine.
func (sam *ServiceAssignmentManager) Start() {
	ticker := time.NewTicker(sam.updateInterval)
	defer ticker.Stop()

	sam.Refresh(sam.ctx)
	for {
		select {
		case <-sam.ctx.Done():
			sam.logger.Info("assignment manager stopped")
			return
		case <-ticker.C:
			sam.Refresh(sam.ctx)
		}
	}
}

// Stop gracefully shuts down the ServiceAssignmentManager.
func (sam *ServiceAssignmentManager) Stop() {
	sam.cancel()
}

// Refresh rebuilds the ring if the set of active members has changed.
// This instance is always a member so ownership is defined even before
// its first heartbeat lands.
func (sam *ServiceAssignmentManager) Refresh(ctx context.Context) {
	activeServices, err := sam.lister.GetActiveServices(ctx, sam.serviceType)
	if err != nil {
		sam.logger.Error("failed to get active services", zap.Error(err))
		return
	}

	members := make([]string, 0, len(activeServices)+1)
	for id := range activeServices {
		members = append(members, id)
	}
	if !slices.Contains(members, sam.selfID) {
		members = append(members, sam.selfID)
	}
	slices.Sort(members)

	sam.chMux.Lock()
	defer sam.chMux.Unlock()

	currentMembers := sam.consistentHash.Members()
	slices.Sort(currentMembers)

	if !slices.Equal(members, currentMembers) {
		ring := consistent.New()
		ring.Set(members)
		sam.consistentHash = ring
		sam.logger.Info("consistent hash ring updated", zap.Strings("members", members))
	}
}

// IsResponsible reports whether this instance owns key.
func (sam *ServiceAssignmentManager) IsResponsible(key string) (bool, error) {
	sam.chMux.RLock()
	defer sam.chMux.RUnlock()

	owner, err := sam.consistentHash.Get(key)
	if err != nil {
		return false, fmt.Errorf("failed to get responsible service for %q (type %s): %w", key, sam.serviceType, err)
	}
	return owner == sam.selfID, nil
}
