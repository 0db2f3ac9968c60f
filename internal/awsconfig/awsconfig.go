// Package awsconfig loads the AWS SDK configuration shared by the AWS secret
// sources, discovering the region from the EC2 instance metadata service when
// it isn't otherwise configured.
package awsconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// regionTimeout bounds the IMDS region lookup, which otherwise hangs for a
// while on hosts that aren't in EC2.
const regionTimeout = 5 * time.Second

// RegionGetter is the part of the IMDS client used to discover the region.
// It is usually implemented by [*imds.Client].
type RegionGetter interface {
	GetRegion(ctx context.Context, params *imds.GetRegionInput,
		optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

// Load returns the default AWS configuration. When no region is configured in
// the environment or shared config files, the region is read from IMDS, using
// regions when given, or a client built from the loaded config otherwise.
//
// client should normally be nil: a plain *http.Client replaces the SDK's own,
// and then settings like AWS_CA_BUNDLE can't be applied.
func Load(ctx context.Context, client *http.Client, regions RegionGetter) (aws.Config, error) {
	opts := [](func(*config.LoadOptions) error){}
	if client != nil {
		opts = append(opts, config.WithHTTPClient(client))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}

	if cfg.Region != "" {
		return cfg, nil
	}

	if regions == nil {
		regions = imds.NewFromConfig(cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, regionTimeout)
	defer cancel()

	out, err := regions.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return aws.Config{}, fmt.Errorf("couldn't get region from IMDS: %w", ConvertError(err))
	}

	cfg.Region = out.Region

	return cfg, nil
}

// BaseEndpoint returns the endpoint override for u, if it has a host part.
// Setting a host in the URL is only intended for test purposes.
func BaseEndpoint(u *url.URL) *string {
	if u == nil || u.Host == "" {
		return nil
	}

	return aws.String("http://" + u.Host)
}

// ConvertError converts AWS SDK errors into more general errors, so that SDK
// types don't leak out of the sources. Service-specific errors are matched by
// their error code.
func ConvertError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException", "ParameterNotFound", "ParameterVersionNotFound":
			return fmt.Errorf("%w: %s", fs.ErrNotExist, apiErr.ErrorMessage())
		case "AccessDeniedException", "AccessDenied", "UnrecognizedClientException",
			"DecryptionFailure", "ExpiredTokenException":
			return fmt.Errorf("%w: %s: %s", fs.ErrPermission, apiErr.ErrorCode(), apiErr.ErrorMessage())
		case "ValidationException", "InvalidParameterException", "InvalidRequestException",
			"InvalidParameters", "InvalidNextToken", "InvalidKeyId":
			return fmt.Errorf("%w: %s", fs.ErrInvalid, apiErr.ErrorMessage())
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", fs.ErrNotExist, respErr.Response.Status)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", fs.ErrPermission, respErr.Response.Status)
		default:
			return fmt.Errorf("%w: HTTP error %s", fs.ErrInvalid, respErr.Response.Status)
		}
	}

	var opErr *smithy.OperationError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %s", err, opErr.OperationName)
	}

	return err
}
