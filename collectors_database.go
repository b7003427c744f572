package main

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/database"
)

// AutonomousDatabasesCollector lists autonomous databases.
func AutonomousDatabasesCollector(sc *ServiceClients) Collector {
	return NewCollector("autonomous_databases", "database", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.Database == nil {
			return nil, fmt.Errorf("database: %w", errServiceUnavailable)
		}
		dbs, err := collectPages(func(page *string) ([]database.AutonomousDatabaseSummary, *string, error) {
			resp, err := sc.Database.ListAutonomousDatabases(ctx, database.ListAutonomousDatabasesRequest{
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

		records := make([]ResourceRecord, 0, len(dbs))
		for _, db := range dbs {
			fields := map[string]any{}
			setField(fields, "dbName", db.DbName)
			setField(fields, "dbWorkload", string(db.DbWorkload))
			setField(fields, "cpuCoreCount", db.CpuCoreCount)
			setField(fields, "dataStorageSizeInTBs", db.DataStorageSizeInTBs)
			setField(fields, "isFreeTier", db.IsFreeTier)
			records = append(records, newRecord("autonomous_databases", comp, db.Id, db.DisplayName, string(db.LifecycleState), db.TimeCreated, fields))
		}
		return records, nil
	})
}

// DbSystemsCollector lists database systems.
func DbSystemsCollector(sc *ServiceClients) Collector {
	return NewCollector("db_systems", "database", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.Database == nil {
			return nil, fmt.Errorf("database: %w", errServiceUnavailable)
		}
		systems, err := collectPages(func(page *string) ([]database.DbSystemSummary, *string, error) {
			resp, err := sc.Database.ListDbSystems(ctx, database.ListDbSystemsRequest{
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

		records := make([]ResourceRecord, 0, len(systems))
		for _, ds := range systems {
			fields := map[string]any{}
			setField(fields, "shape", ds.Shape)
			setField(fields, "databaseEdition", string(ds.DatabaseEdition))
			setField(fields, "cpuCoreCount", ds.CpuCoreCount)
			setField(fields, "availabilityDomain", ds.AvailabilityDomain)
			records = append(records, newRecord("db_systems", comp, ds.Id, ds.DisplayName, string(ds.LifecycleState), ds.TimeCreated, fields))
		}
		return records, nil
	})
}
