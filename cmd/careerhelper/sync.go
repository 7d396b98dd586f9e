package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackyxhb/CareerHelper/internal/errors"
	"github.com/jackyxhb/CareerHelper/internal/gateway"
	"github.com/jackyxhb/CareerHelper/internal/store"
	syncpkg "github.com/jackyxhb/CareerHelper/internal/sync"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Flush pending writes and pull all collections once",
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

			ctx := cmd.Context()
			if err := coord.FlushPending(ctx, cfg.UserID); err != nil {
				return err
			}
			if err := coord.PullAll(ctx, cfg.UserID); err != nil {
				return err
			}

			jobs, err := st.ListJobs()
			if err != nil {
				return err
			}
			experiences, err := st.ListExperiences(cfg.UserID)
			if err != nil {
				return err
			}
			applications, err := st.ListApplications(cfg.UserID)
			if err != nil {
				return err
			}
			pending, err := st.PendingCount(cfg.UserID)
			if err != nil {
				return err
			}

			fmt.Printf("jobs: %d\nexperiences: %d\napplications: %d\npending: %d\n",
				len(jobs), len(experiences), len(applications), pending)
			return nil
		},
	}
}
