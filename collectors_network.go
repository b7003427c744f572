package main

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/oracle/oci-go-sdk/v65/dns"
	"github.com/oracle/oci-go-sdk/v65/loadbalancer"
)

// VcnsCollector lists virtual cloud networks.
func VcnsCollector(sc *ServiceClients) Collector {
	return NewCollector("vcns", "virtualnetwork", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.VirtualNetwork == nil {
			return nil, fmt.Errorf("virtualnetwork: %w", errServiceUnavailable)
		}
		vcns, err := collectPages(func(page *string) ([]core.Vcn, *string, error) {
			resp, err := sc.VirtualNetwork.ListVcns(ctx, core.ListVcnsRequest{
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

		records := make([]ResourceRecord, 0, len(vcns))
		for _, vcn := range vcns {
			fields := map[string]any{}
			if len(vcn.CidrBlocks) > 0 {
				fields["cidrBlocks"] = vcn.CidrBlocks
			}
			setField(fields, "dnsLabel", vcn.DnsLabel)
			records = append(records, newRecord("vcns", comp, vcn.Id, vcn.DisplayName, string(vcn.LifecycleState), vcn.TimeCreated, fields))
		}
		return records, nil
	})
}

// SubnetsCollector lists subnets.
func SubnetsCollector(sc *ServiceClients) Collector {
	return NewCollector("subnets", "virtualnetwork", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.VirtualNetwork == nil {
			return nil, fmt.Errorf("virtualnetwork: %w", errServiceUnavailable)
		}
		subnets, err := collectPages(func(page *string) ([]core.Subnet, *string, error) {
			resp, err := sc.VirtualNetwork.ListSubnets(ctx, core.ListSubnetsRequest{
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

		records := make([]ResourceRecord, 0, len(subnets))
		for _, s := range subnets {
			fields := map[string]any{}
			setField(fields, "cidrBlock", s.CidrBlock)
			setField(fields, "availabilityDomain", s.AvailabilityDomain)
			setField(fields, "vcnId", s.VcnId)
			setField(fields, "routeTableId", s.RouteTableId)
			if len(s.SecurityListIds) > 0 {
				fields["securityListIds"] = s.SecurityListIds
			}
			records = append(records, newRecord("subnets", comp, s.Id, s.DisplayName, string(s.LifecycleState), s.TimeCreated, fields))
		}
		return records, nil
	})
}

// SecurityListsCollector lists security lists. Ingress and egress rules are
// flattened to plain mappings so the report stays serializable.
func SecurityListsCollector(sc *ServiceClients) Collector {
	return NewCollector("security_lists", "virtualnetwork", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.VirtualNetwork == nil {
			return nil, fmt.Errorf("virtualnetwork: %w", errServiceUnavailable)
		}
		lists, err := collectPages(func(page *string) ([]core.SecurityList, *string, error) {
			resp, err := sc.VirtualNetwork.ListSecurityLists(ctx, core.ListSecurityListsRequest{
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

		records := make([]ResourceRecord, 0, len(lists))
		for _, sl := range lists {
			fields := map[string]any{}
			setField(fields, "vcnId", sl.VcnId)
			if len(sl.IngressSecurityRules) > 0 {
				fields["ingressSecurityRules"] = flattenValue(sl.IngressSecurityRules)
			}
			if len(sl.EgressSecurityRules) > 0 {
				fields["egressSecurityRules"] = flattenValue(sl.EgressSecurityRules)
			}
			records = append(records, newRecord("security_lists", comp, sl.Id, sl.DisplayName, string(sl.LifecycleState), sl.TimeCreated, fields))
		}
		return records, nil
	})
}

// RouteTablesCollector lists route tables with flattened route rules.
func RouteTablesCollector(sc *ServiceClients) Collector {
	return NewCollector("route_tables", "virtualnetwork", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.VirtualNetwork == nil {
			return nil, fmt.Errorf("virtualnetwork: %w", errServiceUnavailable)
		}
		tables, err := collectPages(func(page *string) ([]core.RouteTable, *string, error) {
			resp, err := sc.VirtualNetwork.ListRouteTables(ctx, core.ListRouteTablesRequest{
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

		records := make([]ResourceRecord, 0, len(tables))
		for _, rt := range tables {
			fields := map[string]any{}
			setField(fields, "vcnId", rt.VcnId)
			if len(rt.RouteRules) > 0 {
				fields["routeRules"] = flattenValue(rt.RouteRules)
			}
			records = append(records, newRecord("route_tables", comp, rt.Id, rt.DisplayName, string(rt.LifecycleState), rt.TimeCreated, fields))
		}
		return records, nil
	})
}

// InternetGatewaysCollector lists internet gateways.
func InternetGatewaysCollector(sc *ServiceClients) Collector {
	return NewCollector("internet_gateways", "virtualnetwork", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.VirtualNetwork == nil {
			return nil, fmt.Errorf("virtualnetwork: %w", errServiceUnavailable)
		}
		gateways, err := collectPages(func(page *string) ([]core.InternetGateway, *string, error) {
			resp, err := sc.VirtualNetwork.ListInternetGateways(ctx, core.ListInternetGatewaysRequest{
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
		for _, ig := range gateways {
			fields := map[string]any{}
			setField(fields, "vcnId", ig.VcnId)
			setField(fields, "isEnabled", ig.IsEnabled)
			records = append(records, newRecord("internet_gateways", comp, ig.Id, ig.DisplayName, string(ig.LifecycleState), ig.TimeCreated, fields))
		}
		return records, nil
	})
}

// NatGatewaysCollector lists NAT gateways.
func NatGatewaysCollector(sc *ServiceClients) Collector {
	return NewCollector("nat_gateways", "virtualnetwork", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.VirtualNetwork == nil {
			return nil, fmt.Errorf("virtualnetwork: %w", errServiceUnavailable)
		}
		gateways, err := collectPages(func(page *string) ([]core.NatGateway, *string, error) {
			resp, err := sc.VirtualNetwork.ListNatGateways(ctx, core.ListNatGatewaysRequest{
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
		for _, ng := range gateways {
			fields := map[string]any{}
			setField(fields, "vcnId", ng.VcnId)
			setField(fields, "natIp", ng.NatIp)
			setField(fields, "blockTraffic", ng.BlockTraffic)
			records = append(records, newRecord("nat_gateways", comp, ng.Id, ng.DisplayName, string(ng.LifecycleState), ng.TimeCreated, fields))
		}
		return records, nil
	})
}

// LoadBalancersCollector lists load balancers.
func LoadBalancersCollector(sc *ServiceClients) Collector {
	return NewCollector("load_balancers", "loadbalancer", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.LoadBalancer == nil {
			return nil, fmt.Errorf("loadbalancer: %w", errServiceUnavailable)
		}
		lbs, err := collectPages(func(page *string) ([]loadbalancer.LoadBalancer, *string, error) {
			resp, err := sc.LoadBalancer.ListLoadBalancers(ctx, loadbalancer.ListLoadBalancersRequest{
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

		records := make([]ResourceRecord, 0, len(lbs))
		for _, lb := range lbs {
			fields := map[string]any{}
			setField(fields, "shape", lb.ShapeName)
			setField(fields, "isPrivate", lb.IsPrivate)
			var ips []string
			for _, ip := range lb.IpAddresses {
				if ip.IpAddress != nil {
					ips = append(ips, *ip.IpAddress)
				}
			}
			if len(ips) > 0 {
				fields["ipAddresses"] = ips
			}
			records = append(records, newRecord("load_balancers", comp, lb.Id, lb.DisplayName, string(lb.LifecycleState), lb.TimeCreated, fields))
		}
		return records, nil
	})
}

// DnsZonesCollector lists DNS zones.
func DnsZonesCollector(sc *ServiceClients) Collector {
	return NewCollector("dns_zones", "dns", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if sc.DNS == nil {
			return nil, fmt.Errorf("dns: %w", errServiceUnavailable)
		}
		zones, err := collectPages(func(page *string) ([]dns.ZoneSummary, *string, error) {
			resp, err := sc.DNS.ListZones(ctx, dns.ListZonesRequest{
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

		records := make([]ResourceRecord, 0, len(zones))
		for _, z := range zones {
			fields := map[string]any{}
			setField(fields, "zoneType", string(z.ZoneType))
			setField(fields, "isProtected", z.IsProtected)
			records = append(records, newRecord("dns_zones", comp, z.Id, z.Name, string(z.LifecycleState), z.TimeCreated, fields))
		}
		return records, nil
	})
}
