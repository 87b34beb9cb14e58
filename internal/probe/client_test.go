package probe

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"mop.org/internal/domain"
	"mop.org/internal/httpapi"
)

type probeFunc func(context.Context) error

func (f probeFunc) Check(ctx context.Context) error { return f(ctx) }

func dialHealth(t *testing.T, readiness probeFunc) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	httpapi.NewHealthServer(readiness).Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCheckServing(t *testing.T) {
	c := dialHealth(t, func(context.Context) error { return nil })
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()

	res, err := c.Check(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "SERVING", res.Status)
}

func TestCheckNotServing(t *testing.T) {
	c := dialHealth(t, func(context.Context) error { return errors.New("db down") })
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()

	res, err := c.Check(ctx, "")
	require.ErrorIs(t, err, ErrNotServing)
	assert.Equal(t, "NOT_SERVING", res.Status)
}

func TestCheckUnknownService(t *testing.T) {
	c := dialHealth(t, func(context.Context) error { return nil })
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()

	_, err := c.Check(ctx, "payments")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMapHealthError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"not found", status.Error(codes.NotFound, "unknown service"), domain.ErrNotFound},
		{"unauthenticated", status.Error(codes.Unauthenticated, "no token"), domain.ErrUnauthorized},
		{"permission denied", status.Error(codes.PermissionDenied, "nope"), domain.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapHealthError(tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("mapHealthError() = %v, want %v", got, tc.want)
			}
		})
	}

	passthrough := status.Error(codes.Internal, "internal")
	assert.Equal(t, passthrough, mapHealthError(passthrough))
}
