package types

import (
	"fmt"
	"strings"
)

// ResourceName is a top-level API resource.
type ResourceName int

const (
	ResourceAccount ResourceName = iota + 1
	ResourceDeployments
	ResourceDatasets
	ResourceReports
)

// String returns the path segment for the resource.
func (r ResourceName) String() string {
	switch r {
	case ResourceAccount:
		return "account"
	case ResourceDeployments:
		return "deployments"
	case ResourceDatasets:
		return "datasets"
	case ResourceReports:
		return "reports"
	}

	return fmt.Sprintf("ResourceName(%d)", int(r))
}

// Valid reports whether r is one of the declared resources.
func (r ResourceName) Valid() bool {
	switch r {
	case ResourceAccount, ResourceDeployments, ResourceDatasets, ResourceReports:
		return true
	}

	return false
}

// ParseResourceName maps a path segment to a ResourceName, ignoring case.
func ParseResourceName(s string) (ResourceName, error) {
	switch strings.ToLower(s) {
	case "account":
		return ResourceAccount, nil
	case "deployments":
		return ResourceDeployments, nil
	case "datasets":
		return ResourceDatasets, nil
	case "reports":
		return ResourceReports, nil
	}

	return 0, fmt.Errorf("resource name %q must be one of account, deployments, datasets, reports", s)
}

// SubResourceName is a resource nested under a dataset or report.
// The zero value means no sub resource.
type SubResourceName int

const (
	SubResourceNone SubResourceName = iota
	SubResourceFields
	SubResourceFeedback
)

// String returns the path segment for the sub resource.
func (s SubResourceName) String() string {
	switch s {
	case SubResourceNone:
		return ""
	case SubResourceFields:
		return "fields"
	case SubResourceFeedback:
		return "feedback"
	}

	return fmt.Sprintf("SubResourceName(%d)", int(s))
}

// Valid reports whether s is a declared sub resource or SubResourceNone.
func (s SubResourceName) Valid() bool {
	switch s {
	case SubResourceNone, SubResourceFields, SubResourceFeedback:
		return true
	}

	return false
}

// ParseSubResourceName maps a path segment to a SubResourceName, ignoring case.
// The empty string yields SubResourceNone.
func ParseSubResourceName(s string) (SubResourceName, error) {
	switch strings.ToLower(s) {
	case "":
		return SubResourceNone, nil
	case "fields":
		return SubResourceFields, nil
	case "feedback":
		return SubResourceFeedback, nil
	}

	return 0, fmt.Errorf("sub resource name %q must be one of fields, feedback", s)
}
