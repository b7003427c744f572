package main

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/analytics"
	"github.com/oracle/oci-go-sdk/v65/budget"
	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/datascience"
	"github.com/oracle/oci-go-sdk/v65/monitoring"
)

// AlarmsCollector lists monitoring alarms.
func AlarmsCollector(sc *ServiceClients) Collector {
	return NewCollector("alarms", "monitoring", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.Monitoring == nil {
			return nil, fmt.Errorf("monitoring: %w", errServiceUnavailable)
		}
		alarms, err := collectPages(func(page *string) ([]monitoring.AlarmSummary, *string, error) {
			resp, err := sc.Monitoring.ListAlarms(ctx, monitoring.ListAlarmsRequest{
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

		records := make([]ResourceRecord, 0, len(alarms))
		for _, a := range alarms {
			fields := map[string]any{}
			setField(fields, "severity", string(a.Severity))
			setField(fields, "isEnabled", a.IsEnabled)
			// AlarmSummary carries no creation timestamp.
			records = append(records, newRecord("alarms", comp, a.Id, a.DisplayName, string(a.LifecycleState), nil, fields))
		}
		return records, nil
	})
}

// AnalyticsInstancesCollector lists analytics instances.
func AnalyticsInstancesCollector(sc *ServiceClients) Collector {
	return NewCollector("analytics_instances", "analytics", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.Analytics == nil {
			return nil, fmt.Errorf("analytics: %w", errServiceUnavailable)
		}
		instances, err := collectPages(func(page *string) ([]analytics.AnalyticsInstanceSummary, *string, error) {
			resp, err := sc.Analytics.ListAnalyticsInstances(ctx, analytics.ListAnalyticsInstancesRequest{
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
		for _, ai := range instances {
			fields := map[string]any{}
			setField(fields, "featureSet", string(ai.FeatureSet))
			if ai.Capacity != nil {
				fields["capacity"] = flattenValue(ai.Capacity)
			}
			records = append(records, newRecord("analytics_instances", comp, ai.Id, ai.Name, string(ai.LifecycleState), ai.TimeCreated, fields))
		}
		return records, nil
	})
}

// DataScienceProjectsCollector lists data science projects.
func DataScienceProjectsCollector(sc *ServiceClients) Collector {
	return NewCollector("data_science_projects", "datascience", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.DataScience == nil {
			return nil, fmt.Errorf("datascience: %w", errServiceUnavailable)
		}
		projects, err := collectPages(func(page *string) ([]datascience.ProjectSummary, *string, error) {
			resp, err := sc.DataScience.ListProjects(ctx, datascience.ListProjectsRequest{
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

		records := make([]ResourceRecord, 0, len(projects))
		for _, p := range projects {
			fields := map[string]any{}
			setField(fields, "createdBy", p.CreatedBy)
			records = append(records, newRecord("data_science_projects", comp, p.Id, p.DisplayName, string(p.LifecycleState), p.TimeCreated, fields))
		}
		return records, nil
	})
}

// BudgetsCollector lists budgets. Budgets live at the tenancy level, so
// sub-compartments usually contribute nothing.
func BudgetsCollector(sc *ServiceClients) Collector {
	return NewCollector("budgets", "budget", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.Budget == nil {
			return nil, fmt.Errorf("budget: %w", errServiceUnavailable)
		}
		budgets, err := collectPages(func(page *string) ([]budget.BudgetSummary, *string, error) {
			resp, err := sc.Budget.ListBudgets(ctx, budget.ListBudgetsRequest{
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

		records := make([]ResourceRecord, 0, len(budgets))
		for _, b := range budgets {
			fields := map[string]any{}
			setField(fields, "amount", b.Amount)
			setField(fields, "resetPeriod", string(b.ResetPeriod))
			setField(fields, "actualSpend", b.ActualSpend)
			setField(fields, "forecastedSpend", b.ForecastedSpend)
			records = append(records, newRecord("budgets", comp, b.Id, b.DisplayName, string(b.LifecycleState), b.TimeCreated, fields))
		}
		return records, nil
	})
}

// NewDefaultRegistry registers every built-in collector in its canonical
// order. Registration order is the output order of the report.
func NewDefaultRegistry(sc *ServiceClients) *Registry {
	r := NewRegistry()
	r.Register(ComputeInstancesCollector(sc))
	r.Register(BlockVolumesCollector(sc))
	r.Register(BootVolumesCollector(sc))
	r.Register(ObjectStorageBucketsCollector(sc))
	r.Register(VcnsCollector(sc))
	r.Register(SubnetsCollector(sc))
	r.Register(SecurityListsCollector(sc))
	r.Register(RouteTablesCollector(sc))
	r.Register(InternetGatewaysCollector(sc))
	r.Register(NatGatewaysCollector(sc))
	r.Register(LoadBalancersCollector(sc))
	r.Register(AutonomousDatabasesCollector(sc))
	r.Register(DbSystemsCollector(sc))
	r.Register(OkeClustersCollector(sc))
	r.Register(NodePoolsCollector(sc))
	r.Register(ApplicationsCollector(sc))
	r.Register(FunctionsCollector(sc))
	r.Register(ApiGatewaysCollector(sc))
	r.Register(StreamsCollector(sc))
	r.Register(StreamPoolsCollector(sc))
	r.Register(AlarmsCollector(sc))
	r.Register(AnalyticsInstancesCollector(sc))
	r.Register(DataScienceProjectsCollector(sc))
	r.Register(DnsZonesCollector(sc))
	r.Register(BudgetsCollector(sc))
	return r
}
