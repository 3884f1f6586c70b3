package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/shared/config"
)

// ServiceRegistrar handles the self-registration and heartbeating of a service instance.
type ServiceRegistrar struct {
	redisClient redis.UniversalClient
	serviceType string
	cfg         *config.CommonConfig
	serviceID   string
	logger      *zap.Logger
	now         func() time.Time
	stopChan    chan struct{}
	doneChan    chan struct{}
}

// NewServiceRegistrar creates a new ServiceRegistrar with a fresh instance ID.
func NewServiceRegistrar(redisClient redis.UniversalClient, serviceType string, cfg *config.CommonConfig, logger *zap.Logger) *ServiceRegistrar {
	if logger == nil {
		logger = zap.NewNop()
	}
	serviceID := fmt.Sprintf("%s-%s", serviceType, uuid.New().String())

	return &ServiceRegistrar{
		redisClient: redisClient,
		serviceType: serviceType,
		cfg:         cfg,
		serviceID:   serviceID,
		logger:      logger.With(zap.String("service_type", serviceType), zap.String("service_id", serviceID)),
		now:         time.Now,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start begins the service registration and heartbeating process in a goroutine.
func (sr *ServiceRegistrar) Start() {
	sr.logger.Info("starting service registrar",
		zap.String("ip", sr.cfg.ServiceIP), zap.Int("port", sr.cfg.ServicePort))
	go sr.run()
}

// Stop signals the registrar to stop, waits for it, then removes this instance from the registry.
func (sr *ServiceRegistrar) Stop() {
	close(sr.stopChan)
	<-sr.doneChan

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sr.redisClient.HDel(ctx, hashKey(sr.serviceType), sr.serviceID).Err(); err != nil {
		sr.logger.Error("failed to remove service from registry on shutdown", zap.Error(err))
		return
	}
	sr.logger.Info("service removed from registry")
}

func (sr *ServiceRegistrar) run() {
	defer close(sr.doneChan)

	ticker := time.NewTicker(sr.cfg.HeartbeatInterval)
	defer ticker.Stop()

	var cleanup <-chan time.Time
	if sr.cfg.RegistryCleanupInterval > 0 {
		cleanupTicker := time.NewTicker(sr.cfg.RegistryCleanupInterval)
		defer cleanupTicker.Stop()
		cleanup = cleanupTicker.C
	}

	sr.heartbeat(context.Background())

	for {
		select {
		case <-ticker.C:
			sr.heartbeat(context.Background())
		case <-cleanup:
			sr.cleanup(context.Background())
		case <-sr.stopChan:
			return
		}
	}
}

// heartbeat writes this instance's ServiceInfo with a fresh LastSeen.
func (sr *ServiceRegistrar) heartbeat(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	serviceInfo := ServiceInfo{
		ServiceID:   sr.serviceID,
		ServiceType: sr.serviceType,
		IP:          sr.cfg.ServiceIP,
		Port:        sr.cfg.ServicePort,
		LastSeen:    sr.now().UnixMilli(),
		Metadata:    map[string]string{"version": "1.0"},
	}

	infoJSON, err := json.Marshal(serviceInfo)
	if err != nil {
		sr.logger.Error("failed to marshal service info", zap.Error(err))
		return
	}

	if err := sr.redisClient.HSet(ctx, hashKey(sr.serviceType), sr.serviceID, infoJSON).Err(); err != nil {
		sr.logger.Error("failed to heartbeat service to Redis", zap.Error(err))
		return
	}
	sr.logger.Debug("service heartbeated")
}

// cleanup removes stale and corrupt entries of this service type.
func (sr *ServiceRegistrar) cleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	key := hashKey(sr.serviceType)
	results, err := sr.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		sr.logger.Error("registry cleanup failed to list services", zap.Error(err))
		return
	}

	currentTime := sr.now()
	for instanceID, infoJSON := range results {
		var info ServiceInfo
		if err := json.Unmarshal([]byte(infoJSON), &info); err != nil {
			sr.logger.Warn("deleting corrupt registry entry", zap.String("instance_id", instanceID), zap.Error(err))
			if delErr := sr.redisClient.HDel(ctx, key, instanceID).Err(); delErr != nil {
				sr.logger.Error("failed to delete corrupt registry entry", zap.String("instance_id", instanceID), zap.Error(delErr))
			}
			continue
		}

		if currentTime.Sub(time.UnixMilli(info.LastSeen)) > sr.cfg.HeartbeatTTL {
			if delErr := sr.redisClient.HDel(ctx, key, instanceID).Err(); delErr != nil {
				sr.logger.Error("failed to delete stale registry entry", zap.String("instance_id", instanceID), zap.Error(delErr))
			} else {
				sr.logger.Info("removed stale service from registry", zap.String("instance_id", instanceID))
			}
		}
	}
}

// GetServiceID returns the unique ID assigned to this service instance.
func (sr *ServiceRegistrar) GetServiceID() string {
	return sr.serviceID
}

// GetServiceType returns the type of this service instance.
func (sr *ServiceRegistrar) GetServiceType() string {
	return sr.serviceType
}
