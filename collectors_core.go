package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"
)

// collectPages drains a paginated list call. The callback performs one page
// fetch and returns the items plus the opc-next-page token.
func collectPages[T any](list func(page *string) ([]T, *string, error)) ([]T, error) {
	var all []T
	var page *string
	for {
		items, next, err := list(page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if next == nil {
			return all, nil
		}
		page = next
	}
}

// newRecord assembles the common subset every record carries; collector
// specific attributes go into fields.
func newRecord(category string, comp Compartment, id, displayName *string, state string, created *common.SDKTime, fields map[string]any) ResourceRecord {
	if len(fields) == 0 {
		fields = nil
	}
	return ResourceRecord{
		Category:        category,
		CompartmentID:   comp.ID,
		CompartmentName: comp.Name,
		ID:              deref(id),
		DisplayName:     deref(displayName),
		State:           state,
		TimeCreated:     sdkTimeString(created),
		Fields:          fields,
	}
}

// ComputeInstancesCollector lists compute instances.
func ComputeInstancesCollector(sc *ServiceClients) Collector {
	return NewCollector("compute_instances", "compute", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.Compute == nil {
			return nil, fmt.Errorf("compute: %w", errServiceUnavailable)
		}
		instances, err := collectPages(func(page *string) ([]core.Instance, *string, error) {
			resp, err := sc.Compute.ListInstances(ctx, core.ListInstancesRequest{
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

		records := make([]ResourceRecord, 0, len(instances))
		for _, inst := range instances {
			fields := map[string]any{}
			setField(fields, "shape", inst.Shape)
			setField(fields, "availabilityDomain", inst.AvailabilityDomain)
			setField(fields, "faultDomain", inst.FaultDomain)
			setField(fields, "region", inst.Region)
			if len(inst.Metadata) > 0 {
				fields["metadata"] = inst.Metadata
			}
			if len(inst.FreeformTags) > 0 {
				fields["freeformTags"] = inst.FreeformTags
			}
			records = append(records, newRecord("compute_instances", comp, inst.Id, inst.DisplayName, string(inst.LifecycleState), inst.TimeCreated, fields))
		}
		return records, nil
	})
}

// BlockVolumesCollector lists block volumes.
func BlockVolumesCollector(sc *ServiceClients) Collector {
	return NewCollector("block_volumes", "blockstorage", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.BlockStorage == nil {
			return nil, fmt.Errorf("blockstorage: %w", errServiceUnavailable)
		}
		volumes, err := collectPages(func(page *string) ([]core.Volume, *string, error) {
			resp, err := sc.BlockStorage.ListVolumes(ctx, core.ListVolumesRequest{
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

		records := make([]ResourceRecord, 0, len(volumes))
		for _, v := range volumes {
			fields := map[string]any{}
			setField(fields, "sizeInGBs", v.SizeInGBs)
			setField(fields, "vpusPerGB", v.VpusPerGB)
			setField(fields, "availabilityDomain", v.AvailabilityDomain)
			setField(fields, "kmsKeyId", v.KmsKeyId)
			setField(fields, "isHydrated", v.IsHydrated)
			records = append(records, newRecord("block_volumes", comp, v.Id, v.DisplayName, string(v.LifecycleState), v.TimeCreated, fields))
		}
		return records, nil
	})
}

// BootVolumesCollector lists boot volumes.
func BootVolumesCollector(sc *ServiceClients) Collector {
	return NewCollector("boot_volumes", "blockstorage", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.BlockStorage == nil {
			return nil, fmt.Errorf("blockstorage: %w", errServiceUnavailable)
		}
		volumes, err := collectPages(func(page *string) ([]core.BootVolume, *string, error) {
			resp, err := sc.BlockStorage.ListBootVolumes(ctx, core.ListBootVolumesRequest{
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

		records := make([]ResourceRecord, 0, len(volumes))
		for _, v := range volumes {
			fields := map[string]any{}
			setField(fields, "sizeInGBs", v.SizeInGBs)
			setField(fields, "vpusPerGB", v.VpusPerGB)
			setField(fields, "availabilityDomain", v.AvailabilityDomain)
			setField(fields, "imageId", v.ImageId)
			records = append(records, newRecord("boot_volumes", comp, v.Id, v.DisplayName, string(v.LifecycleState), v.TimeCreated, fields))
		}
		return records, nil
	})
}

// namespaceCache memoizes the object storage namespace. Only success is
// cached: a transient resolution failure is surfaced to the caller and the
// next invocation resolves again, so the throttle retry loop stays effective.
type namespaceCache struct {
	mu       sync.Mutex
	resolved bool
	value    string
}

func (nc *namespaceCache) get(ctx context.Context, resolve func(ctx context.Context) (string, error)) (string, error) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.resolved {
		return nc.value, nil
	}
	v, err := resolve(ctx)
	if err != nil {
		return "", err
	}
	nc.value = v
	nc.resolved = true
	return v, nil
}

// ObjectStorageBucketsCollector lists object storage buckets. The namespace
// is resolved on first use and reused for every compartment once known.
func ObjectStorageBucketsCollector(sc *ServiceClients) Collector {
	var cache namespaceCache
	return NewCollector("object_storage_buckets", "objectstorage", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.ObjectStorage == nil {
			return nil, fmt.Errorf("objectstorage: %w", errServiceUnavailable)
		}
		namespace, err := cache.get(ctx, func(ctx context.Context) (string, error) {
			resp, err := sc.ObjectStorage.GetNamespace(ctx, objectstorage.GetNamespaceRequest{})
			if err != nil {
				return "", fmt.Errorf("failed to resolve object storage namespace: %w", err)
			}
			return deref(resp.Value), nil
		})
		if err != nil {
			return nil, err
		}

		buckets, err := collectPages(func(page *string) ([]objectstorage.BucketSummary, *string, error) {
			resp, err := sc.ObjectStorage.ListBuckets(ctx, objectstorage.ListBucketsRequest{
				NamespaceName: common.String(namespace),
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

		records := make([]ResourceRecord, 0, len(buckets))
		for _, b := range buckets {
			fields := map[string]any{}
			setField(fields, "namespace", b.Namespace)
			setField(fields, "createdBy", b.CreatedBy)
			setField(fields, "etag", b.Etag)
			// Buckets have no OCID in the list response; the name is the identifier.
			records = append(records, newRecord("object_storage_buckets", comp, b.Name, b.Name, "", b.TimeCreated, fields))
		}
		return records, nil
	})
}
