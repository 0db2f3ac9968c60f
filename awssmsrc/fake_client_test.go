package awssmsrc

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

type fakeClient struct {
	t       *testing.T
	secrets map[string]*testVal
	getErr  error
	listErr error
	gets    int
}

var _ SecretsManagerClient = (*fakeClient)(nil)

func (c *fakeClient) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput,
	_ ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	c.t.Helper()

	c.gets++

	if c.getErr != nil {
		return nil, c.getErr
	}

	name := aws.ToString(params.SecretId)
	if val, ok := c.secrets[name]; ok {
		out := secretsmanager.GetSecretValueOutput{Name: aws.String(name)}

		if val.b != nil {
			out.SecretBinary = make([]byte, len(val.b))
			copy(out.SecretBinary, val.b)
		} else {
			out.SecretString = aws.String(val.s)
		}

		return &out, nil
	}

	return nil, &types.ResourceNotFoundException{
		Message: aws.String("Secrets Manager can't find the specified secret."),
	}
}

func (c *fakeClient) ListSecrets(_ context.Context, params *secretsmanager.ListSecretsInput,
	_ ...func(*secretsmanager.Options),
) (*secretsmanager.ListSecretsOutput, error) {
	c.t.Helper()

	if c.listErr != nil {
		return nil, c.listErr
	}

	nameFilter := ""

	for _, f := range params.Filters {
		if f.Key == types.FilterNameStringTypeName {
			nameFilter = f.Values[0]

			break
		}
	}

	offset := 0

	if params.NextToken != nil {
		var err error

		offset, err = strconv.Atoi(*params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("invalid nextToken for fakeClient %q: %w", *params.NextToken, err)
		}
	}

	secretList := []types.SecretListEntry{}

	for k := range c.secrets {
		// the real name filter also matches words after a separator, so
		// approximate that by matching anywhere
		if strings.Contains(k, nameFilter) {
			secretList = append(secretList, types.SecretListEntry{Name: aws.String(k)})
		}
	}

	// sort so pagination works
	sort.Slice(secretList, func(i, j int) bool {
		return aws.ToString(secretList[i].Name) < aws.ToString(secretList[j].Name)
	})

	// default to 2 results so we trigger pagination
	m := int(aws.ToInt32(params.MaxResults))
	if m == 0 {
		m = 2
	}

	l := len(secretList)
	high := offset + m

	var nextToken *string

	switch {
	case high < l:
		secretList = secretList[offset:high]
		nextToken = aws.String(strconv.Itoa(high))
	case offset < l:
		secretList = secretList[offset:]
	default:
		secretList = nil
	}

	// un-sort for a slightly more realistic test
	rand.Shuffle(len(secretList), func(i, j int) {
		secretList[i], secretList[j] = secretList[j], secretList[i]
	})

	return &secretsmanager.ListSecretsOutput{
		SecretList: secretList,
		NextToken:  nextToken,
	}, nil
}

func clientWithValues(t *testing.T, secrets map[string]*testVal, errs ...error) *fakeClient {
	t.Helper()

	c := &fakeClient{t: t, secrets: secrets}

	switch len(errs) {
	case 1:
		c.getErr = errs[0]
	case 2:
		c.getErr = errs[0]
		c.listErr = errs[1]
	}

	return c
}

type testVal struct {
	s string
	b []byte
}

func vs(s string) *testVal {
	return &testVal{s: s}
}

func vb(b []byte) *testVal {
	return &testVal{b: b}
}
