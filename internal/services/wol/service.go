// Package wol wakes the host that stores the print library and waits until it can be used.
package wol

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/mdlayher/wol"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Service defines the interface for Wake-on-LAN operations.
type Service interface {
	Wake(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error)
}

// Client wraps the wol library for mocking.
type Client interface {
	Wake(broadcastIP string, mac net.HardwareAddr) error
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultClient sends magic packets with mdlayher/wol.
type DefaultClient struct{}

// Wake sends a magic packet to mac via the UDP discard port of broadcastIP.
func (c *DefaultClient) Wake(broadcastIP string, mac net.HardwareAddr) error {
	ip := net.ParseIP(broadcastIP)
	if ip == nil {
		return errors.Errorf("invalid broadcast IP: %s", broadcastIP)
	}

	client, err := wol.NewClient()
	if err != nil {
		return errors.Errorf("failed to create WOL client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Wake(net.JoinHostPort(ip.String(), "9"), mac); err != nil {
		return errors.Errorf("failed to send WOL packet: %w", err)
	}

	return nil
}

// Impl implements the WOL Service interface.
type Impl struct {
	wolClient  Client
	httpClient HTTPClient
	fs         filesystem.FileSystem
	logger     zerolog.Logger
}

// New creates a new WOL service.
func New(logger zerolog.Logger, fs filesystem.FileSystem) *Impl {
	return &Impl{
		wolClient: &DefaultClient{},
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		fs:     fs,
		logger: logger,
	}
}

// NewWithClients creates a new WOL service with custom clients (for testing).
func NewWithClients(logger zerolog.Logger, wolClient Client, httpClient HTTPClient, fs filesystem.FileSystem) *Impl {
	return &Impl{
		wolClient:  wolClient,
		httpClient: httpClient,
		fs:         fs,
		logger:     logger,
	}
}

// probe reports nil once the target is usable.
type probe struct {
	name  string
	check func(ctx context.Context) error
}

// Wake sends a WOL packet and waits until every configured probe succeeds.
// Failures are stored in the result, not returned.
func (s *Impl) Wake(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error) {
	result := &models.WOLResult{}
	start := time.Now()

	mac, err := net.ParseMAC(cfg.MACAddress)
	if err != nil {
		result.Error = errors.Errorf("invalid MAC address %q: %w", cfg.MACAddress, err)
		return result, nil
	}

	s.logger.Info().
		Str("mac", cfg.MACAddress).
		Str("broadcast", cfg.BroadcastIP).
		Msg("sending WOL packet")

	if err := s.wolClient.Wake(cfg.BroadcastIP, mac); err != nil {
		result.Error = err
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	result.PacketSent = true
	s.logger.Info().Msg("WOL packet sent successfully")

	probes := s.probes(cfg)
	if len(probes) == 0 {
		result.WaitDuration = time.Since(start)
		result.TargetReady = true
		return result, nil
	}

	deadline := time.Now().Add(cfg.Timeout)
	for _, p := range probes {
		s.logger.Info().
			Str("target", p.name).
			Dur("timeout", cfg.Timeout).
			Msg("waiting for target to become available")

		if err := s.waitFor(ctx, p, deadline, cfg.PollInterval); err != nil {
			result.WaitDuration = time.Since(start)
			result.Error = err
			return result, nil //nolint:nilerr // error is stored in result struct by design
		}
	}

	if cfg.StabilizeWait > 0 {
		s.logger.Debug().Str("wait", cfg.StabilizeWait.Round(time.Millisecond).String()).Msg("waiting for target to stabilize")
		select {
		case <-ctx.Done():
			result.WaitDuration = time.Since(start)
			result.Error = ctx.Err()
			return result, nil
		case <-time.After(cfg.StabilizeWait):
		}
	}

	result.TargetReady = true
	result.WaitDuration = time.Since(start)

	s.logger.Info().
		Dur("duration", result.WaitDuration).
		Msg("target is ready")

	return result, nil
}

func (s *Impl) probes(cfg models.WOLConfig) []probe {
	var probes []probe
	if cfg.PollURL != "" {
		probes = append(probes, probe{name: cfg.PollURL, check: func(ctx context.Context) error {
			return s.pollURL(ctx, cfg.PollURL)
		}})
	}
	if cfg.WaitPath != "" && s.fs != nil {
		probes = append(probes, probe{name: cfg.WaitPath, check: func(context.Context) error {
			if !s.fs.DirExists(cfg.WaitPath) {
				return errors.Errorf("%w: %s", models.ErrDirectoryNotFound, cfg.WaitPath)
			}
			return nil
		}})
	}
	return probes
}

func (s *Impl) pollURL(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	// Any response means the target is up
	_ = resp.Body.Close()
	return nil
}

func (s *Impl) waitFor(ctx context.Context, p probe, deadline time.Time, interval time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if time.Now().After(deadline) {
			return errors.Errorf("timeout waiting for target at %s", p.name)
		}

		err := p.check(ctx)
		if err == nil {
			return nil
		}

		s.logger.Debug().Err(err).Str("target", p.name).Msg("target not ready yet")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
