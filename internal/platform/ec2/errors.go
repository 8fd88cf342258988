package ec2

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrorCode returns the EC2 error code carried by err, or "" when err is
// not an API error.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsNotFound checks if an error indicates a resource was not found.
// EC2 reports these as <Resource>.NotFound (InvalidInstanceID.NotFound,
// InvalidGroup.NotFound, InvalidSpotInstanceRequestID.NotFound, ...).
func IsNotFound(err error) bool {
	code := ErrorCode(err)
	return strings.HasSuffix(code, ".NotFound") || code == "NotFound"
}

// IsDuplicate checks if an error indicates the resource or rule already exists.
func IsDuplicate(err error) bool {
	return strings.HasSuffix(ErrorCode(err), ".Duplicate")
}

// IsDependencyViolation checks if a deletion failed because something
// still references the resource.
func IsDependencyViolation(err error) bool {
	return ErrorCode(err) == "DependencyViolation"
}

// IsAuthFailure checks if the request was rejected for its credentials
// or permissions.
func IsAuthFailure(err error) bool {
	switch ErrorCode(err) {
	case "AuthFailure", "UnauthorizedOperation", "InvalidClientTokenId", "SignatureDoesNotMatch":
		return true
	}
	return false
}
