package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/mopinion/mopinion-go/types"
)

// ResourceLocator addresses a resource, optionally narrowed to one instance
// and to a sub resource of that instance. Empty IDs mean "absent".
type ResourceLocator struct {
	Resource      types.ResourceName
	ResourceID    string
	SubResource   types.SubResourceName
	SubResourceID string
}

// Resource is a convenience constructor taking resource names as strings.
func Resource(resourceName, resourceID, subResourceName, subResourceID string) (ResourceLocator, error) {
	name, err := types.ParseResourceName(resourceName)
	if err != nil {
		return ResourceLocator{}, &ValidationError{
			Code: CodeInvalidResource, Field: "resource_name", Value: resourceName, Err: err,
		}
	}

	sub, err := types.ParseSubResourceName(subResourceName)
	if err != nil {
		return ResourceLocator{}, &ValidationError{
			Code: CodeInvalidResource, Field: "sub_resource_name", Value: subResourceName, Err: err,
		}
	}

	return ResourceLocator{
		Resource:      name,
		ResourceID:    resourceID,
		SubResource:   sub,
		SubResourceID: subResourceID,
	}, nil
}

// ID formats a numeric resource ID for a ResourceLocator.
func ID(id int) string {
	return strconv.Itoa(id)
}

// Validate checks the locator's enums and the nesting rules.
func (l ResourceLocator) Validate() error {
	if !l.Resource.Valid() {
		return &ValidationError{
			Code: CodeInvalidResource, Field: "resource_name", Value: l.Resource.String(),
			Err: fmt.Errorf("unknown resource"),
		}
	}

	if !l.SubResource.Valid() {
		return &ValidationError{
			Code: CodeInvalidResource, Field: "sub_resource_name", Value: l.SubResource.String(),
			Err: fmt.Errorf("unknown sub resource"),
		}
	}

	if l.SubResource != types.SubResourceNone && l.ResourceID == "" {
		return &ValidationError{
			Code: CodeInvalidResource, Field: "resource_id",
			Err: fmt.Errorf("sub resource %s requires a resource id", l.SubResource),
		}
	}

	if l.SubResourceID != "" && l.SubResource == types.SubResourceNone {
		return &ValidationError{
			Code: CodeInvalidResource, Field: "sub_resource_id", Value: l.SubResourceID,
			Err: fmt.Errorf("sub resource id requires a sub resource name"),
		}
	}

	return nil
}

// BuildResourceEndpoint composes the endpoint for a locator and validates the
// result against the endpoint grammar.
func BuildResourceEndpoint(l ResourceLocator) (Endpoint, error) {
	if err := l.Validate(); err != nil {
		return Endpoint{}, err
	}

	path := "/" + l.Resource.String()
	if l.ResourceID != "" {
		path += "/" + url.PathEscape(l.ResourceID)

		if l.SubResource != types.SubResourceNone {
			path += "/" + l.SubResource.String()

			if l.SubResourceID != "" {
				path += "/" + url.PathEscape(l.SubResourceID)
			}
		}
	}

	return ParseEndpoint(path)
}
