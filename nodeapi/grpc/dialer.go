package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding/gzip"
	"google.golang.org/grpc/keepalive"
)

// Dialer establishes a gRPC connection with a grid endpoint.
type Dialer func(ctx context.Context, addr string) (*grpc.ClientConn, error)

// Dial establishes a gRPC connection with a grid endpoint. It blocks until the
// connection is ready or the context expires.
func Dial(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.DialContext(
		ctx,
		addr,
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time: 10 * time.Second, // ping every 10 seconds if there is no activity
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.UseCompressor(gzip.Name)),
	)

	if err != nil {
		return nil, fmt.Errorf("grpc dial failed: %w", err)
	}

	return conn, nil
}
