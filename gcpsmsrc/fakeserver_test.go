package gcpsmsrc

import (
	"context"
	"errors"
	"net"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc"
)

// fakeServer serves a mockClient's secrets over gRPC, so the real client can
// be exercised end to end
type fakeServer struct {
	secretmanagerpb.UnimplementedSecretManagerServiceServer

	m *mockClient
}

func (f *fakeServer) AccessSecretVersion(ctx context.Context,
	req *secretmanagerpb.AccessSecretVersionRequest,
) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return f.m.AccessSecretVersion(ctx, req)
}

func (f *fakeServer) ListSecrets(ctx context.Context,
	req *secretmanagerpb.ListSecretsRequest,
) (*secretmanagerpb.ListSecretsResponse, error) {
	it := f.m.ListSecrets(ctx, req)
	resp := &secretmanagerpb.ListSecretsResponse{}

	for {
		s, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return resp, nil
		}

		if err != nil {
			return nil, err
		}

		resp.Secrets = append(resp.Secrets, s)
	}
}

func startFakeServer(t *testing.T, m *mockClient) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	secretmanagerpb.RegisterSecretManagerServiceServer(srv, &fakeServer{m: m})

	go func() { _ = srv.Serve(lis) }()

	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}
