package customHttpClient

import (
	"net"
	"net/http"
	"time"

	"github.com/akolanti/PdfRAG/internal/config"
)

// New returns the pooled client shared by the provider SDKs so embedding and
// generation calls reuse connections.
func New(cfg config.HTTPClientConfig) *http.Client {
	customTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout.Std(),
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{Transport: customTransport, Timeout: cfg.Timeout.Std()}
}
