package gcpsmsrc

import (
	"context"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// mockClient serves secrets keyed by full version resource name, i.e.
// projects/{project}/secrets/{secret}/versions/{version}
type mockClient struct {
	secrets map[string][]byte
	err     error
	listErr error

	mu       sync.Mutex
	accessed []string
	filter   string
}

func (m *mockClient) AccessSecretVersion(
	_ context.Context,
	req *secretmanagerpb.AccessSecretVersionRequest,
	_ ...gax.CallOption,
) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	m.mu.Lock()
	m.accessed = append(m.accessed, req.GetName())
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	val, ok := m.secrets[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret not found")
	}

	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.GetName(),
		Payload: &secretmanagerpb.SecretPayload{Data: val},
	}, nil
}

func (m *mockClient) ListSecrets(
	_ context.Context,
	req *secretmanagerpb.ListSecretsRequest,
	_ ...gax.CallOption,
) SecretIterator {
	m.filter = req.GetFilter()

	if m.listErr != nil {
		return &mockIterator{err: m.listErr}
	}

	seen := map[string]bool{}
	secrets := []*secretmanagerpb.Secret{}

	for k := range m.secrets {
		if !strings.HasPrefix(k, req.GetParent()+"/secrets/") {
			continue
		}

		parts := strings.Split(k, "/")
		name := strings.Join(parts[:4], "/")

		if !seen[name] {
			seen[name] = true

			secrets = append(secrets, &secretmanagerpb.Secret{Name: name})
		}
	}

	// the real API doesn't promise an order either, so shuffle a bit
	sort.Slice(secrets, func(i, j int) bool { return secrets[i].GetName() > secrets[j].GetName() })

	return &mockIterator{secrets: secrets}
}

type mockIterator struct {
	err     error
	secrets []*secretmanagerpb.Secret
	idx     int
}

func (m *mockIterator) Next() (*secretmanagerpb.Secret, error) {
	if m.err != nil {
		return nil, m.err
	}

	if m.idx >= len(m.secrets) {
		return nil, iterator.Done
	}

	s := m.secrets[m.idx]
	m.idx++

	return s, nil
}
