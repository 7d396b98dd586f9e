package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jackyxhb/CareerHelper/internal/errors"
	"github.com/jackyxhb/CareerHelper/internal/gateway"
	"github.com/jackyxhb/CareerHelper/internal/logging"
	"github.com/jackyxhb/CareerHelper/internal/store"
	syncpkg "github.com/jackyxhb/CareerHelper/internal/sync"
	"github.com/jackyxhb/CareerHelper/internal/ws"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the local store reconciled and push changes over WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.UserID == "" {
				return errors.New(errors.ErrValidation, "user_id is not configured")
			}

			st, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			remote := gateway.NewClient(cfg.GatewayURL, gateway.WithToken(cfg.AuthToken))
			coord := syncpkg.NewCoordinator(st, remote)
			monitor := syncpkg.NewMonitor(coord, remote, syncpkg.StaticIdentity(cfg.UserID), &syncpkg.MonitorConfig{
				ProbeInterval: cfg.ProbeInterval,
				SyncInterval:  cfg.SyncInterval,
			})

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			hub := ws.NewHub()
			stop := make(chan struct{})
			go hub.Run(stop)
			defer close(stop)

			// Rebroadcast status snapshots and store snapshots to UI clients.
			statusCh, cancelStatus := coord.Status().Subscribe()
			defer cancelStatus()
			go func() {
				for snap := range statusCh {
					hub.Broadcast(ws.EventStatusChanged, snap)
				}
			}()
			go func() {
				for jobs := range st.ObserveJobs(ctx) {
					hub.Broadcast(ws.EventJobsChanged, jobs)
				}
			}()
			go func() {
				for experiences := range st.ObserveExperiences(ctx, cfg.UserID) {
					hub.Broadcast(ws.EventExperiencesChanged, experiences)
				}
			}()
			go func() {
				for applications := range st.ObserveApplications(ctx, cfg.UserID) {
					hub.Broadcast(ws.EventApplicationsChanged, applications)
				}
			}()

			mux := http.NewServeMux()
			mux.HandleFunc("/ws", hub.ServeWS)
			go func() {
				if err := http.ListenAndServe(cfg.WSAddr, mux); err != nil {
					logging.Error("websocket server stopped", err)
				}
			}()

			monitor.Start(ctx)
			defer monitor.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
			case <-ctx.Done():
			}
			return nil
		},
	}
}
