package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"time"
)

// DiffConfig holds report comparison settings
type DiffConfig struct {
	Format   string `yaml:"format"`   // Output format: json, text
	Detailed bool   `yaml:"detailed"` // Include per-field changes
}

// DiffResult is the outcome of comparing two inventory reports.
type DiffResult struct {
	Summary  DiffSummary          `json:"summary"`
	Added    []ResourceRecord     `json:"added"`
	Removed  []ResourceRecord     `json:"removed"`
	Modified []ModifiedResource   `json:"modified"`
	Stats    map[string]DiffStats `json:"statistics"`
}

// DiffSummary describes the comparison inputs and totals.
type DiffSummary struct {
	OldFile       string    `json:"old_file"`
	NewFile       string    `json:"new_file"`
	ComparedAt    time.Time `json:"compared_at"`
	TotalAdded    int       `json:"total_added"`
	TotalRemoved  int       `json:"total_removed"`
	TotalModified int       `json:"total_modified"`
}

// DiffStats counts changes per resource category.
type DiffStats struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

// ModifiedResource pairs a record with the field-level changes detected.
type ModifiedResource struct {
	Record  ResourceRecord `json:"record"`
	Changes []FieldChange  `json:"changes"`
}

// FieldChange is one attribute that differs between the two reports.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// CompareReports loads two report files and computes their diff. Records are
// keyed by (category, id); the scope pseudo-category never carries records
// so it needs no special casing.
func CompareReports(oldFile, newFile string, config DiffConfig) (*DiffResult, error) {
	oldReport, err := LoadReport(oldFile)
	if err != nil {
		return nil, err
	}
	newReport, err := LoadReport(newFile)
	if err != nil {
		return nil, err
	}

	oldMap := recordMap(oldReport)
	newMap := recordMap(newReport)

	result := &DiffResult{
		Summary: DiffSummary{
			OldFile:    oldFile,
			NewFile:    newFile,
			ComparedAt: time.Now().UTC(),
		},
		Added:    []ResourceRecord{},
		Removed:  []ResourceRecord{},
		Modified: []ModifiedResource{},
		Stats:    map[string]DiffStats{},
	}

	for key, rec := range newMap {
		old, exists := oldMap[key]
		if !exists {
			result.Added = append(result.Added, rec)
			continue
		}
		if changes := compareRecords(old, rec); len(changes) > 0 {
			if !config.Detailed {
				changes = nil
			}
			result.Modified = append(result.Modified, ModifiedResource{Record: rec, Changes: changes})
		}
	}
	for key, rec := range oldMap {
		if _, exists := newMap[key]; !exists {
			result.Removed = append(result.Removed, rec)
		}
	}

	sortRecords(result.Added)
	sortRecords(result.Removed)
	sort.Slice(result.Modified, func(i, j int) bool {
		return diffKey(result.Modified[i].Record) < diffKey(result.Modified[j].Record)
	})

	for _, r := range result.Added {
		s := result.Stats[r.Category]
		s.Added++
		result.Stats[r.Category] = s
	}
	for _, r := range result.Removed {
		s := result.Stats[r.Category]
		s.Removed++
		result.Stats[r.Category] = s
	}
	for _, m := range result.Modified {
		s := result.Stats[m.Record.Category]
		s.Modified++
		result.Stats[m.Record.Category] = s
	}

	result.Summary.TotalAdded = len(result.Added)
	result.Summary.TotalRemoved = len(result.Removed)
	result.Summary.TotalModified = len(result.Modified)

	return result, nil
}

func diffKey(r ResourceRecord) string {
	return r.Category + "|" + r.ID
}

func recordMap(report *InventoryReport) map[string]ResourceRecord {
	m := make(map[string]ResourceRecord)
	for _, records := range report.Resources {
		for _, r := range records {
			if r.ID == "" {
				continue
			}
			m[diffKey(r)] = r
		}
	}
	return m
}

func sortRecords(records []ResourceRecord) {
	sort.Slice(records, func(i, j int) bool {
		return diffKey(records[i]) < diffKey(records[j])
	})
}

// compareRecords returns the field-level differences between two versions of
// the same resource.
func compareRecords(old, new ResourceRecord) []FieldChange {
	var changes []FieldChange

	if old.DisplayName != new.DisplayName {
		changes = append(changes, FieldChange{Field: "displayName", OldValue: old.DisplayName, NewValue: new.DisplayName})
	}
	if old.State != new.State {
		changes = append(changes, FieldChange{Field: "state", OldValue: old.State, NewValue: new.State})
	}
	if old.CompartmentID != new.CompartmentID {
		changes = append(changes, FieldChange{Field: "compartmentId", OldValue: old.CompartmentID, NewValue: new.CompartmentID})
	}

	keys := map[string]bool{}
	for k := range old.Fields {
		keys[k] = true
	}
	for k := range new.Fields {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		oldVal, oldOk := old.Fields[k]
		newVal, newOk := new.Fields[k]
		switch {
		case oldOk && !newOk:
			changes = append(changes, FieldChange{Field: "fields." + k, OldValue: oldVal, NewValue: nil})
		case !oldOk && newOk:
			changes = append(changes, FieldChange{Field: "fields." + k, OldValue: nil, NewValue: newVal})
		case !reflect.DeepEqual(oldVal, newVal):
			changes = append(changes, FieldChange{Field: "fields." + k, OldValue: oldVal, NewValue: newVal})
		}
	}

	return changes
}

// OutputDiffResult writes the diff in the configured format.
func OutputDiffResult(result *DiffResult, config DiffConfig, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	switch config.Format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		return outputDiffText(result, config, w)
	default:
		return fmt.Errorf("unsupported diff format: %s", config.Format)
	}
}

func outputDiffText(result *DiffResult, config DiffConfig, w io.Writer) error {
	fmt.Fprintf(w, "Comparing %s -> %s\n", result.Summary.OldFile, result.Summary.NewFile)
	fmt.Fprintf(w, "Added: %d  Removed: %d  Modified: %d\n\n",
		result.Summary.TotalAdded, result.Summary.TotalRemoved, result.Summary.TotalModified)

	for _, r := range result.Added {
		fmt.Fprintf(w, "+ [%s] %s (%s)\n", r.Category, r.DisplayName, r.ID)
	}
	for _, r := range result.Removed {
		fmt.Fprintf(w, "- [%s] %s (%s)\n", r.Category, r.DisplayName, r.ID)
	}
	for _, m := range result.Modified {
		fmt.Fprintf(w, "~ [%s] %s (%s)\n", m.Record.Category, m.Record.DisplayName, m.Record.ID)
		if config.Detailed {
			for _, c := range m.Changes {
				fmt.Fprintf(w, "    %s: %v -> %v\n", c.Field, c.OldValue, c.NewValue)
			}
		}
	}

	categories := make([]string, 0, len(result.Stats))
	for c := range result.Stats {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	if len(categories) > 0 {
		fmt.Fprintln(w, "\nPer-category changes:")
		for _, c := range categories {
			s := result.Stats[c]
			fmt.Fprintf(w, "  %s: +%d -%d ~%d\n", c, s.Added, s.Removed, s.Modified)
		}
	}
	return nil
}
