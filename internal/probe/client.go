// Package probe checks a running API through the standard gRPC health protocol.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"mop.org/internal/audit"
	"mop.org/internal/domain"
)

// ErrNotServing is returned when the server answers but reports NOT_SERVING.
var ErrNotServing = errors.New("probe: service not serving")

// Client wraps a gRPC health client.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// Dial creates a new client. Without options the transport is insecure.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, health: healthpb.NewHealthClient(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Result is the outcome of one Check.
type Result struct {
	Target  string        `json:"target"`
	Service string        `json:"service,omitempty"`
	Status  string        `json:"status"`
	Latency time.Duration `json:"latency_ns"`
}

// Check asks the server for the health of service ("" for the whole server).
// A NOT_SERVING answer returns the result together with ErrNotServing.
func (c *Client) Check(ctx context.Context, service string) (Result, error) {
	ctx = outgoingWithRequestID(ctx)
	start := time.Now()
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	res := Result{Target: c.conn.Target(), Service: service, Latency: time.Since(start)}
	if err != nil {
		res.Status = "UNREACHABLE"
		return res, mapHealthError(err)
	}
	res.Status = resp.GetStatus().String()
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return res, ErrNotServing
	}
	return res, nil
}

func outgoingWithRequestID(ctx context.Context) context.Context {
	if rid := audit.RequestIDFromContext(ctx); rid != "" {
		return metadata.AppendToOutgoingContext(ctx, "x-request-id", rid)
	}
	return ctx
}

func mapHealthError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, st.Message())
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", domain.ErrForbidden, st.Message())
	default:
		return err
	}
}

// WithTimeout returns a context with a default timeout useful for CLI tools.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(parent, d)
}
