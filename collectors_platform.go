package main

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/apigateway"
	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/containerengine"
	"github.com/oracle/oci-go-sdk/v65/functions"
	"github.com/oracle/oci-go-sdk/v65/streaming"
)

// OkeClustersCollector lists container engine (OKE) clusters.
func OkeClustersCollector(sc *ServiceClients) Collector {
	return NewCollector("oke_clusters", "containerengine", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.ContainerEngine == nil {
			return nil, fmt.Errorf("containerengine: %w", errServiceUnavailable)
		}
		clusters, err := collectPages(func(page *string) ([]containerengine.ClusterSummary, *string, error) {
			resp, err := sc.ContainerEngine.ListClusters(ctx, containerengine.ListClustersRequest{
				CompartmentId: common.String(comp.ID),
				Page:          page,
			})
			if err != nil {
				return nil, nil, err
			}
			return resp.Items, resp.OpcNextPage, nil
		})
		if err != nil {
			return nil, err
		}

		records := make([]ResourceRecord, 0, len(clusters))
		for _, cl := range clusters {
			fields := map[string]any{}
			setField(fields, "kubernetesVersion", cl.KubernetesVersion)
			setField(fields, "vcnId", cl.VcnId)
			var created *common.SDKTime
			if cl.Metadata != nil {
				created = cl.Metadata.TimeCreated
			}
			records = append(records, newRecord("oke_clusters", comp, cl.Id, cl.Name, string(cl.LifecycleState), created, fields))
		}
		return records, nil
	})
}

// NodePoolsCollector lists OKE node pools.
func NodePoolsCollector(sc *ServiceClients) Collector {
	return NewCollector("node_pools", "containerengine", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.ContainerEngine == nil {
			return nil, fmt.Errorf("containerengine: %w", errServiceUnavailable)
		}
		pools, err := collectPages(func(page *string) ([]containerengine.NodePoolSummary, *string, error) {
			resp, err := sc.ContainerEngine.ListNodePools(ctx, containerengine.ListNodePoolsRequest{
				CompartmentId: common.String(comp.ID),
				Page:          page,
			})
			if err != nil {
				return nil, nil, err
			}
			return resp.Items, resp.OpcNextPage, nil
		})
		if err != nil {
			return nil, err
		}

		records := make([]ResourceRecord, 0, len(pools))
		for _, np := range pools {
			fields := map[string]any{}
			setField(fields, "kubernetesVersion", np.KubernetesVersion)
			setField(fields, "nodeShape", np.NodeShape)
			setField(fields, "clusterId", np.ClusterId)
			records = append(records, newRecord("node_pools", comp, np.Id, np.Name, string(np.LifecycleState), nil, fields))
		}
		return records, nil
	})
}

// ApplicationsCollector lists serverless function applications.
func ApplicationsCollector(sc *ServiceClients) Collector {
	return NewCollector("applications", "functions", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.Functions == nil {
			return nil, fmt.Errorf("functions: %w", errServiceUnavailable)
		}
		apps, err := listApplications(ctx, sc, comp.ID)
		if err != nil {
			return nil, err
		}

		records := make([]ResourceRecord, 0, len(apps))
		for _, app := range apps {
			records = append(records, newRecord("applications", comp, app.Id, app.DisplayName, string(app.LifecycleState), app.TimeCreated, nil))
		}
		return records, nil
	})
}

// FunctionsCollector lists functions grouped under each application in the
// compartment, following the two-level listing the service requires.
func FunctionsCollector(sc *ServiceClients) Collector {
	return NewCollector("functions", "functions", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.Functions == nil {
			return nil, fmt.Errorf("functions: %w", errServiceUnavailable)
		}
		apps, err := listApplications(ctx, sc, comp.ID)
		if err != nil {
			return nil, err
		}

		var records []ResourceRecord
		for _, app := range apps {
			fns, err := collectPages(func(page *string) ([]functions.FunctionSummary, *string, error) {
				resp, err := sc.Functions.ListFunctions(ctx, functions.ListFunctionsRequest{
					ApplicationId: app.Id,
					Page:          page,
				})
				if err != nil {
					return nil, nil, err
				}
				return resp.Items, resp.OpcNextPage, nil
			})
			if err != nil {
				return nil, err
			}
			for _, fn := range fns {
				fields := map[string]any{}
				setField(fields, "applicationName", app.DisplayName)
				setField(fields, "image", fn.Image)
				setField(fields, "memoryInMBs", fn.MemoryInMBs)
				records = append(records, newRecord("functions", comp, fn.Id, fn.DisplayName, string(fn.LifecycleState), fn.TimeCreated, fields))
			}
		}
		return records, nil
	})
}

func listApplications(ctx context.Context, sc *ServiceClients, compartmentID string) ([]functions.ApplicationSummary, error) {
	return collectPages(func(page *string) ([]functions.ApplicationSummary, *string, error) {
		resp, err := sc.Functions.ListApplications(ctx, functions.ListApplicationsRequest{
			CompartmentId: common.String(compartmentID),
			Page:          page,
		})
		if err != nil {
			return nil, nil, err
		}
		return resp.Items, resp.OpcNextPage, nil
	})
}

// ApiGatewaysCollector lists API gateways.
func ApiGatewaysCollector(sc *ServiceClients) Collector {
	return NewCollector("api_gateways", "apigateway", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.APIGateway == nil {
			return nil, fmt.Errorf("apigateway: %w", errServiceUnavailable)
		}
		gateways, err := collectPages(func(page *string) ([]apigateway.GatewaySummary, *string, error) {
			resp, err := sc.APIGateway.ListGateways(ctx, apigateway.ListGatewaysRequest{
				CompartmentId: common.String(comp.ID),
				Page:          page,
			})
			if err != nil {
				return nil, nil, err
			}
			return resp.Items, resp.OpcNextPage, nil
		})
		if err != nil {
			return nil, err
		}

		records := make([]ResourceRecord, 0, len(gateways))
		for _, gw := range gateways {
			fields := map[string]any{}
			setField(fields, "endpointType", string(gw.EndpointType))
			setField(fields, "hostname", gw.Hostname)
			records = append(records, newRecord("api_gateways", comp, gw.Id, gw.DisplayName, string(gw.LifecycleState), gw.TimeCreated, fields))
		}
		return records, nil
	})
}

// StreamsCollector lists streams.
func StreamsCollector(sc *ServiceClients) Collector {
	return NewCollector("streams", "streaming", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.Streaming == nil {
			return nil, fmt.Errorf("streaming: %w", errServiceUnavailable)
		}
		streams, err := collectPages(func(page *string) ([]streaming.StreamSummary, *string, error) {
			resp, err := sc.Streaming.ListStreams(ctx, streaming.ListStreamsRequest{
				CompartmentId: common.String(comp.ID),
				Page:          page,
			})
			if err != nil {
				return nil, nil, err
			}
			return resp.Items, resp.OpcNextPage, nil
		})
		if err != nil {
			return nil, err
		}

		records := make([]ResourceRecord, 0, len(streams))
		for _, s := range streams {
			fields := map[string]any{}
			setField(fields, "partitions", s.Partitions)
			setField(fields, "streamPoolId", s.StreamPoolId)
			records = append(records, newRecord("streams", comp, s.Id, s.Name, string(s.LifecycleState), s.TimeCreated, fields))
		}
		return records, nil
	})
}

// StreamPoolsCollector lists stream pools.
func StreamPoolsCollector(sc *ServiceClients) Collector {
	return NewCollector("stream_pools", "streaming", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.Streaming == nil {
			return nil, fmt.Errorf("streaming: %w", errServiceUnavailable)
		}
		pools, err := collectPages(func(page *string) ([]streaming.StreamPoolSummary, *string, error) {
			resp, err := sc.Streaming.ListStreamPools(ctx, streaming.ListStreamPoolsRequest{
				CompartmentId: common.String(comp.ID),
				Page:          page,
			})
			if err != nil {
				return nil, nil, err
			}
			return resp.Items, resp.OpcNextPage, nil
		})
		if err != nil {
			return nil, err
		}

		records := make([]ResourceRecord, 0, len(pools))
		for _, p := range pools {
			records = append(records, newRecord("stream_pools", comp, p.Id, p.Name, string(p.LifecycleState), p.TimeCreated, nil))
		}
		return records, nil
	})
}
