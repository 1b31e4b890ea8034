package helpers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

type ESOptions struct {
	Addrs    []string
	Username string
	Password string
	// Timeout bounds dialing and waiting for response headers.
	Timeout time.Duration
}

// NewESClient builds a client and checks the cluster answers. Basic auth is
// used when a username is set.
func NewESClient(ctx context.Context, o ESOptions) (*elasticsearch.Client, error) {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  o.Addrs,
		Username:   o.Username,
		Password:   o.Password,
		MaxRetries: 2,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: o.Timeout,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: o.Timeout}).DialContext,
		},
	})
	if err != nil {
		return nil, err
	}
	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("reach elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return es, nil
}
