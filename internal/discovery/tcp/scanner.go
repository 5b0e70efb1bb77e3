// internal/discovery/tcp/scanner.go
package tcp

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"light-controller-service/internal/discovery"
	"light-controller-service/internal/model"
)

// Config for TCP scanner
type Config struct {
	ConnTimeout time.Duration `json:"connection_timeout"`
}

// Scanner probes the TCP targets of configured controllers
type Scanner struct {
	logger  *zap.Logger
	config  *Config
	targets func() []string
	dialer  func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewScanner creates a new TCP scanner. targets returns host:port strings.
func NewScanner(logger *zap.Logger, config *Config, targets func() []string) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config == nil {
		config = &Config{}
	}
	if config.ConnTimeout <= 0 {
		config.ConnTimeout = 2 * time.Second
	}

	d := &net.Dialer{Timeout: config.ConnTimeout}
	return &Scanner{
		logger:  logger.With(zap.String("scanner", "tcp")),
		config:  config,
		targets: targets,
		dialer:  d.DialContext,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "tcp"
}

// IsAvailable checks if there is anything to probe
func (s *Scanner) IsAvailable() bool {
	return s.targets != nil
}

// Scan dials every target once and reports reachability
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Endpoint, error) {
	targets := dedupe(s.targets())

	endpoints := make([]*discovery.Endpoint, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			endpoints[i] = s.probe(ctx, target)
		}(i, target)
	}
	wg.Wait()

	s.logger.Debug("TCP scan completed", zap.Int("targets", len(targets)))
	return endpoints, ctx.Err()
}

func (s *Scanner) probe(ctx context.Context, target string) *discovery.Endpoint {
	ep := &discovery.Endpoint{ConnectType: model.ConnectTypeSocket, Name: target}

	dctx, cancel := context.WithTimeout(ctx, s.config.ConnTimeout)
	defer cancel()

	conn, err := s.dialer(dctx, "tcp", target)
	if err != nil {
		ep.Error = err.Error()
		return ep
	}
	_ = conn.Close()
	ep.Reachable = true
	return ep
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
