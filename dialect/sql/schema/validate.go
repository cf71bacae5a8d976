package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking indicates the migration cannot proceed.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of schema validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
	// Add lists the desired columns missing from the live table, in
	// declaration order.
	Add []*Column
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err returns the errors joined into one, or nil.
func (r *ValidationResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("velite: migration: %s", strings.Join(msgs, "; "))
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateOption configures schema validation.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	relaxNotNull bool
}

// RelaxNotNull adds new NOT NULL columns that have no default as nullable
// columns instead of failing. SQLite cannot add such a column to an
// existing table.
func RelaxNotNull() ValidateOption {
	return func(c *validateConfig) {
		c.relaxNotNull = true
	}
}

// ValidateDiff compares the live table current with the desired one.
// Migration is additive: desired columns missing from current are listed in
// Add, and everything else the two disagree on is reported as a warning.
//
// Example:
//
//	result := schema.ValidateDiff(live, desired)
//	if err := result.Err(); err != nil {
//	    return err
//	}
//	for _, c := range result.Add {
//	    // alter table ... add column
//	}
func ValidateDiff(current, desired *Table, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &ValidationResult{}

	// Live columns the mapping no longer has are kept.
	for _, c := range current.Columns {
		if _, ok := desired.Column(c.Name); !ok {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   current.Name,
				Column:  c.Name,
				Message: "column is not mapped and is kept",
			})
		}
	}

	for _, desiredCol := range desired.Columns {
		currentCol, exists := current.Column(desiredCol.Name)
		if !exists {
			if !desiredCol.Nullable && desiredCol.Default == "" {
				if !cfg.relaxNotNull {
					result.Errors = append(result.Errors, &ValidationError{
						Table:    current.Name,
						Column:   desiredCol.Name,
						Message:  "cannot add NOT NULL column without default value",
						Breaking: true,
					})
					continue
				}
				result.Warnings = append(result.Warnings, &ValidationError{
					Table:   current.Name,
					Column:  desiredCol.Name,
					Message: "NOT NULL column without default value added as nullable",
				})
			}
			result.Add = append(result.Add, desiredCol)
			continue
		}

		if !strings.EqualFold(currentCol.Type, desiredCol.Type) {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   current.Name,
				Column:  desiredCol.Name,
				Message: fmt.Sprintf("column type differs: live %q, mapped %q", currentCol.Type, desiredCol.Type),
			})
		}
		if currentCol.Nullable && !desiredCol.Nullable {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   current.Name,
				Column:  desiredCol.Name,
				Message: "column is nullable in the live table but NOT NULL in the mapping",
			})
		}
	}

	// Missing indexes are created separately; only disagreements are reported.
	for _, di := range desired.Indexes {
		ci, ok := current.Index(di.Name)
		if !ok {
			continue
		}
		if ci.Unique != di.Unique || !sameColumns(ci.Columns, di.Columns) {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   current.Name,
				Message: fmt.Sprintf("index %q differs: live %s, mapped %s", di.Name, ci, di),
			})
		}
	}
	return result
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ValidateTable validates a single table definition.
func ValidateTable(t *Table) *ValidationResult {
	result := &ValidationResult{}

	if len(t.PrimaryKey) == 0 {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   t.Name,
			Message: "table has no primary key",
		})
	}

	fold := cases.Fold()
	colNames := make(map[string]bool)
	for _, c := range t.Columns {
		key := fold.String(c.Name)
		if colNames[key] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:    t.Name,
				Column:   c.Name,
				Message:  "duplicate column name",
				Breaking: true,
			})
		}
		colNames[key] = true
	}

	idxNames := make(map[string]bool)
	for _, idx := range t.Indexes {
		if idxNames[idx.Name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: fmt.Sprintf("duplicate index name: %s", idx.Name),
			})
		}
		idxNames[idx.Name] = true

		for _, col := range idx.Columns {
			if !colNames[fold.String(col)] {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("index %q references non-existent column %q", idx.Name, col),
				})
			}
		}
	}
	return result
}
