package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func writeDiffFixture(t *testing.T, name string, report *InventoryReport) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := WriteReport(report, []string{"compute_instances", "vcns"}, "json", path); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

func diffFixtures(t *testing.T) (string, string) {
	t.Helper()

	oldReport := NewInventoryReport([]string{"compute_instances", "vcns"})
	oldReport.Resources["compute_instances"] = []ResourceRecord{
		{Category: "compute_instances", CompartmentID: "ocid.comp.a", ID: "ocid.instance.1", DisplayName: "web-1", State: "RUNNING"},
		{Category: "compute_instances", CompartmentID: "ocid.comp.a", ID: "ocid.instance.2", DisplayName: "web-2", State: "RUNNING"},
	}
	oldReport.Resources["vcns"] = []ResourceRecord{
		{Category: "vcns", CompartmentID: "ocid.comp.a", ID: "ocid.vcn.1", DisplayName: "main", State: "AVAILABLE"},
	}

	newReport := NewInventoryReport([]string{"compute_instances", "vcns"})
	newReport.Resources["compute_instances"] = []ResourceRecord{
		// instance.1 changed state, instance.2 is gone, instance.3 is new.
		{Category: "compute_instances", CompartmentID: "ocid.comp.a", ID: "ocid.instance.1", DisplayName: "web-1", State: "STOPPED"},
		{Category: "compute_instances", CompartmentID: "ocid.comp.a", ID: "ocid.instance.3", DisplayName: "web-3", State: "RUNNING"},
	}
	newReport.Resources["vcns"] = []ResourceRecord{
		{Category: "vcns", CompartmentID: "ocid.comp.a", ID: "ocid.vcn.1", DisplayName: "main", State: "AVAILABLE"},
	}

	return writeDiffFixture(t, "old.json", oldReport), writeDiffFixture(t, "new.json", newReport)
}

func TestCompareReports(t *testing.T) {
	oldFile, newFile := diffFixtures(t)

	result, err := CompareReports(oldFile, newFile, DiffConfig{Format: "json", Detailed: true})
	if err != nil {
		t.Fatalf("CompareReports() error = %v", err)
	}

	if result.Summary.TotalAdded != 1 || result.Summary.TotalRemoved != 1 || result.Summary.TotalModified != 1 {
		t.Fatalf("summary = %+v, want 1 added, 1 removed, 1 modified", result.Summary)
	}
	if result.Added[0].ID != "ocid.instance.3" {
		t.Errorf("added = %s, want ocid.instance.3", result.Added[0].ID)
	}
	if result.Removed[0].ID != "ocid.instance.2" {
		t.Errorf("removed = %s, want ocid.instance.2", result.Removed[0].ID)
	}

	modified := result.Modified[0]
	if modified.Record.ID != "ocid.instance.1" {
		t.Errorf("modified = %s, want ocid.instance.1", modified.Record.ID)
	}
	if len(modified.Changes) != 1 {
		t.Fatalf("changes = %+v, want one state change", modified.Changes)
	}
	change := modified.Changes[0]
	if change.Field != "state" || change.OldValue != "RUNNING" || change.NewValue != "STOPPED" {
		t.Errorf("change = %+v", change)
	}

	stats := result.Stats["compute_instances"]
	if stats.Added != 1 || stats.Removed != 1 || stats.Modified != 1 {
		t.Errorf("compute_instances stats = %+v", stats)
	}
	if _, ok := result.Stats["vcns"]; ok {
		t.Error("vcns appears in stats despite no changes")
	}
}

func TestCompareReports_DetailedOff(t *testing.T) {
	oldFile, newFile := diffFixtures(t)

	result, err := CompareReports(oldFile, newFile, DiffConfig{Format: "json"})
	if err != nil {
		t.Fatalf("CompareReports() error = %v", err)
	}
	if len(result.Modified) != 1 {
		t.Fatalf("modified = %d, want 1", len(result.Modified))
	}
	if result.Modified[0].Changes != nil {
		t.Errorf("changes = %+v, want nil without --detailed", result.Modified[0].Changes)
	}
}

func TestOutputDiffResult_Text(t *testing.T) {
	oldFile, newFile := diffFixtures(t)
	config := DiffConfig{Format: "text", Detailed: true}

	result, err := CompareReports(oldFile, newFile, config)
	if err != nil {
		t.Fatalf("CompareReports() error = %v", err)
	}

	var buf bytes.Buffer
	if err := OutputDiffResult(result, config, &buf); err != nil {
		t.Fatalf("OutputDiffResult() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"+ [compute_instances] web-3",
		"- [compute_instances] web-2",
		"~ [compute_instances] web-1",
		"state: RUNNING -> STOPPED",
		"compute_instances: +1 -1 ~1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestOutputDiffResult_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := OutputDiffResult(&DiffResult{}, DiffConfig{Format: "yaml"}, &buf); err == nil {
		t.Error("OutputDiffResult() error = nil for unsupported format")
	}
}
