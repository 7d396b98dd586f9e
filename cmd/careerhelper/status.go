package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackyxhb/CareerHelper/internal/errors"
	"github.com/jackyxhb/CareerHelper/internal/store"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local store contents and outbox state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.UserID == "" {
				return errors.New(errors.ErrValidation, "user_id is not configured")
			}

			st, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

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

			fmt.Printf("jobs: %d\nexperiences: %d\napplications: %d\n", len(jobs), len(experiences), len(applications))
			if pending == 0 {
				fmt.Println("outbox: empty")
			} else {
				fmt.Printf("outbox: %d record(s) awaiting upload\n", pending)
			}
			return nil
		},
	}
}
