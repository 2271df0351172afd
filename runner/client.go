package runner

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"web/rentmap/cluster"
	"web/rentmap/viewport"
)

// Client talks to a remote SessionRunner and implements SessionService.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a runner at addr. Extra options are appended to the
// defaults.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)
	conn, err := grpc.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session runner: %v", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Conn() *grpc.ClientConn { return c.conn }

func (c *Client) Shutdown() error { return c.conn.Close() }

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, resp)
	return fromStatus(err)
}

func (c *Client) CreateSession(ctx context.Context, strategy string) (View, error) {
	var v View
	err := c.invoke(ctx, "Create", &CreateRequest{Strategy: strategy}, &v)
	return v, err
}

func (c *Client) Dispatch(ctx context.Context, id string, ev viewport.Event) (View, error) {
	var v View
	err := c.invoke(ctx, "Dispatch", &DispatchRequest{ID: id, Event: ev}, &v)
	return v, err
}

func (c *Client) Get(ctx context.Context, id string) (View, error) {
	var v View
	err := c.invoke(ctx, "Get", &SessionRequest{ID: id}, &v)
	return v, err
}

func (c *Client) Close(ctx context.Context, id string) error {
	return c.invoke(ctx, "Close", &SessionRequest{ID: id}, &Empty{})
}

func (c *Client) List(ctx context.Context) ([]SessionInfo, error) {
	var resp ListResponse
	if err := c.invoke(ctx, "List", &Empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *Client) Restore(ctx context.Context, id string) (View, error) {
	var v View
	err := c.invoke(ctx, "Restore", &SessionRequest{ID: id}, &v)
	return v, err
}

func (c *Client) Pins(ctx context.Context) (cluster.PinSet, error) {
	var resp PinsResponse
	if err := c.invoke(ctx, "Pins", &Empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.Pins, nil
}

func (c *Client) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	var resp SnapshotsResponse
	if err := c.invoke(ctx, "ListSnapshots", &Empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.Snapshots, nil
}

// fromStatus turns status codes back into the runner's sentinel errors.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", st.Message(), ErrSessionNotFound)
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w", st.Message(), ErrInvalidArgument)
	}
	return err
}
