package sync

import (
	"context"

	"github.com/velstore/posgo/internal/remote"
)

// RemoteProbe reports connectivity by asking the remote store's health
// endpoint. It is the default probe for real deployments; tests and hosts
// with their own network awareness inject something else.
type RemoteProbe struct {
	client remote.Client
}

// NewRemoteProbe creates a probe over an existing remote client
func NewRemoteProbe(client remote.Client) *RemoteProbe {
	return &RemoteProbe{client: client}
}

// IsOnline implements ConnectivityProbe
func (p *RemoteProbe) IsOnline() bool {
	return p.client.Healthy(context.Background())
}
