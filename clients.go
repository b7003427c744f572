package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/oracle/oci-go-sdk/v65/analytics"
	"github.com/oracle/oci-go-sdk/v65/apigateway"
	"github.com/oracle/oci-go-sdk/v65/budget"
	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/containerengine"
	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/oracle/oci-go-sdk/v65/database"
	"github.com/oracle/oci-go-sdk/v65/datascience"
	"github.com/oracle/oci-go-sdk/v65/dns"
	"github.com/oracle/oci-go-sdk/v65/functions"
	"github.com/oracle/oci-go-sdk/v65/identity"
	"github.com/oracle/oci-go-sdk/v65/loadbalancer"
	"github.com/oracle/oci-go-sdk/v65/monitoring"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"
	"github.com/oracle/oci-go-sdk/v65/streaming"
	"github.com/sony/gobreaker"
)

// ServiceClients holds one authenticated client per OCI service. The identity
// client is mandatory; every other client is initialized best-effort, so a
// service that is not available in the region leaves a nil client and its
// collectors report Unsupported instead of crashing the crawl.
type ServiceClients struct {
	Identity        *identity.IdentityClient
	Compute         *core.ComputeClient
	VirtualNetwork  *core.VirtualNetworkClient
	BlockStorage    *core.BlockstorageClient
	ObjectStorage   *objectstorage.ObjectStorageClient
	Database        *database.DatabaseClient
	ContainerEngine *containerengine.ContainerEngineClient
	Functions       *functions.FunctionsManagementClient
	APIGateway      *apigateway.GatewayClient
	LoadBalancer    *loadbalancer.LoadBalancerClient
	Streaming       *streaming.StreamAdminClient
	Monitoring      *monitoring.MonitoringClient
	Analytics       *analytics.AnalyticsClient
	DataScience     *datascience.DataScienceClient
	DNS             *dns.DnsClient
	Budget          *budget.BudgetClient

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewServiceClients builds all service clients from one configuration
// provider. Only an identity client failure is fatal: without it the
// compartment tree cannot be resolved.
func NewServiceClients(provider common.ConfigurationProvider) (*ServiceClients, error) {
	identityClient, err := identity.NewIdentityClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity client: %w", err)
	}

	sc := &ServiceClients{
		Identity: &identityClient,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}

	if c, err := core.NewComputeClientWithConfigurationProvider(provider); err == nil {
		sc.Compute = &c
	} else {
		logger.Verbose("compute client unavailable: %v", err)
	}
	if c, err := core.NewVirtualNetworkClientWithConfigurationProvider(provider); err == nil {
		sc.VirtualNetwork = &c
	} else {
		logger.Verbose("virtual network client unavailable: %v", err)
	}
	if c, err := core.NewBlockstorageClientWithConfigurationProvider(provider); err == nil {
		sc.BlockStorage = &c
	} else {
		logger.Verbose("block storage client unavailable: %v", err)
	}
	if c, err := objectstorage.NewObjectStorageClientWithConfigurationProvider(provider); err == nil {
		sc.ObjectStorage = &c
	} else {
		logger.Verbose("object storage client unavailable: %v", err)
	}
	if c, err := database.NewDatabaseClientWithConfigurationProvider(provider); err == nil {
		sc.Database = &c
	} else {
		logger.Verbose("database client unavailable: %v", err)
	}
	if c, err := containerengine.NewContainerEngineClientWithConfigurationProvider(provider); err == nil {
		sc.ContainerEngine = &c
	} else {
		logger.Verbose("container engine client unavailable: %v", err)
	}
	if c, err := functions.NewFunctionsManagementClientWithConfigurationProvider(provider); err == nil {
		sc.Functions = &c
	} else {
		logger.Verbose("functions client unavailable: %v", err)
	}
	if c, err := apigateway.NewGatewayClientWithConfigurationProvider(provider); err == nil {
		sc.APIGateway = &c
	} else {
		logger.Verbose("api gateway client unavailable: %v", err)
	}
	if c, err := loadbalancer.NewLoadBalancerClientWithConfigurationProvider(provider); err == nil {
		sc.LoadBalancer = &c
	} else {
		logger.Verbose("load balancer client unavailable: %v", err)
	}
	if c, err := streaming.NewStreamAdminClientWithConfigurationProvider(provider); err == nil {
		sc.Streaming = &c
	} else {
		logger.Verbose("streaming client unavailable: %v", err)
	}
	if c, err := monitoring.NewMonitoringClientWithConfigurationProvider(provider); err == nil {
		sc.Monitoring = &c
	} else {
		logger.Verbose("monitoring client unavailable: %v", err)
	}
	if c, err := analytics.NewAnalyticsClientWithConfigurationProvider(provider); err == nil {
		sc.Analytics = &c
	} else {
		logger.Verbose("analytics client unavailable: %v", err)
	}
	if c, err := datascience.NewDataScienceClientWithConfigurationProvider(provider); err == nil {
		sc.DataScience = &c
	} else {
		logger.Verbose("data science client unavailable: %v", err)
	}
	if c, err := dns.NewDnsClientWithConfigurationProvider(provider); err == nil {
		sc.DNS = &c
	} else {
		logger.Verbose("dns client unavailable: %v", err)
	}
	if c, err := budget.NewBudgetClientWithConfigurationProvider(provider); err == nil {
		sc.Budget = &c
	} else {
		logger.Verbose("budget client unavailable: %v", err)
	}

	return sc, nil
}

// Breaker returns the circuit breaker for a service, creating it on first
// use. A service that keeps failing with throttle or server errors is
// short-circuited for the remaining compartments instead of burning the
// retry budget on each one.
func (sc *ServiceClients) Breaker(service string) *gobreaker.CircuitBreaker {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.breakers == nil {
		sc.breakers = make(map[string]*gobreaker.CircuitBreaker)
	}
	if cb, ok := sc.breakers[service]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	sc.breakers[service] = cb
	return cb
}
