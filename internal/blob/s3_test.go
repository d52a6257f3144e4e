package blob

import (
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func TestIsObjectMissing(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		missing bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"head not found", &types.NotFound{}, true},
		{"wrapped no such key", fmt.Errorf("get object: %w", &types.NoSuchKey{}), true},
		{"api code NoSuchKey", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"api code NotFound", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", fmt.Errorf("dial tcp: connection refused"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isObjectMissing(tc.err); got != tc.missing {
				t.Fatalf("isObjectMissing(%v) = %v, want %v", tc.err, got, tc.missing)
			}
		})
	}
}
