// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"

	applog "wavelab/internal/log"
	"wavelab/internal/session"
	"wavelab/internal/transport"
	"wavelab/internal/transport/udp"
)

// runServe answers session requests over WebSocket, broadcasts every computed
// frame to connected clients and, when enabled, streams the latest magnitudes
// over UDP. It blocks until ctx is cancelled.
func runServe(ctx context.Context, opts *Options) error {
	cfg := opts.Config
	maxWindow := cfg.Transport.MaxWindowSize
	if cfg.Transform.WindowSize > maxWindow {
		return fmt.Errorf("window size %d exceeds transport.max_window_size %d", cfg.Transform.WindowSize, maxWindow)
	}

	var sess *session.Session
	ws := transport.NewWebSocketTransport(cfg.Transport.WSAddress, func(ctx context.Context, msg []byte) (any, error) {
		return sess.Handle(ctx, msg)
	})
	ws.SetReadLimit(session.MaxMessageSize(maxWindow))

	var frames transport.Transport = ws
	if cfg.Debug {
		frames = transport.Multi{ws, transport.NewLoggingTransport()}
	}

	defaults := session.RequestFromConfig(cfg)
	sess, err := session.New(session.Options{
		Tolerance: cfg.Transform.Tolerance,
		Window:    cfg.WindowFunc(),
		PeakCount: opts.Peaks,
		Transport: frames,
		Defaults:  defaults,

		MaxWindowSize: maxWindow,
	})
	if err != nil {
		ws.Close()
		return err
	}

	// Prime the session so UDP listeners have a spectrum before the first request.
	if _, err := sess.Compute(defaults); err != nil {
		frames.Close()
		return fmt.Errorf("failed to compute initial spectrum: %w", err)
	}

	if err := ws.Start(); err != nil {
		frames.Close()
		return err
	}
	applog.Infof("serve: WebSocket listening on ws://%s/ws", ws.Addr())

	var publisher *udp.Publisher
	var sender *udp.Sender
	if cfg.Transport.UDPEnabled {
		sender, err = udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			frames.Close()
			return err
		}
		publisher, err = udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, sess)
		if err != nil {
			sender.Close()
			frames.Close()
			return err
		}
		publisher.Start()
		applog.Infof("serve: UDP magnitudes to %s every %s", cfg.Transport.UDPTargetAddress, cfg.Transport.UDPSendInterval)
	}

	<-ctx.Done()
	applog.Infof("serve: shutting down")

	var errs []error
	if publisher != nil {
		errs = append(errs, publisher.Close())
	}
	if sender != nil {
		errs = append(errs, sender.Close())
	}
	errs = append(errs, frames.Close())
	return errors.Join(errs...)
}
