package awssmpsrc

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeClient struct {
	t       *testing.T
	params  map[string]string
	getErr  error
	listErr error
	pages   int
}

var _ SSMClient = (*fakeClient)(nil)

func (c *fakeClient) GetParameter(
	_ context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options),
) (*ssm.GetParameterOutput, error) {
	c.t.Helper()

	if c.getErr != nil {
		return nil, c.getErr
	}

	if !aws.ToBool(params.WithDecryption) {
		c.t.Errorf("GetParameter called without decryption")
	}

	name := aws.ToString(params.Name)
	if val, ok := c.params[name]; ok {
		return &ssm.GetParameterOutput{
			Parameter: &types.Parameter{
				Name:  aws.String(name),
				Value: aws.String(val),
				Type:  types.ParameterTypeSecureString,
			},
		}, nil
	}

	return nil, &types.ParameterNotFound{
		Message: aws.String("Simple Systems Manager can't find the specified parameter."),
	}
}

func (c *fakeClient) GetParametersByPath(
	_ context.Context, params *ssm.GetParametersByPathInput, _ ...func(*ssm.Options),
) (*ssm.GetParametersByPathOutput, error) {
	c.t.Helper()

	c.pages++

	if c.listErr != nil {
		return nil, c.listErr
	}

	p := aws.ToString(params.Path)
	if p != "/" && strings.HasSuffix(p, "/") {
		return nil, &types.ValidationException{Message: aws.String("path must not end with a slash")}
	}

	prefix := strings.TrimSuffix(p, "/") + "/"

	offset := 0

	if params.NextToken != nil {
		var err error

		offset, err = strconv.Atoi(*params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("invalid nextToken for fakeClient %q: %w", *params.NextToken, err)
		}
	}

	paramList := []types.Parameter{}

	for k, v := range c.params {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok || (!aws.ToBool(params.Recursive) && strings.Contains(rest, "/")) {
			continue
		}

		paramList = append(paramList, types.Parameter{Name: aws.String(k), Value: aws.String(v)})
	}

	sort.Slice(paramList, func(i, j int) bool {
		return aws.ToString(paramList[i].Name) > aws.ToString(paramList[j].Name)
	})

	// two results per page so we trigger pagination
	high := offset + 2

	var nextToken *string

	switch {
	case high < len(paramList):
		paramList = paramList[offset:high]
		nextToken = aws.String(strconv.Itoa(high))
	case offset < len(paramList):
		paramList = paramList[offset:]
	default:
		paramList = nil
	}

	return &ssm.GetParametersByPathOutput{Parameters: paramList, NextToken: nextToken}, nil
}
