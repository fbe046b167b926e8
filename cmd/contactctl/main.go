package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vipspot/contact-relay/internal/client"
)

const lastRequestKey = "contact:lastRequestId"

var (
	apiURL  string
	timeout time.Duration
)

func main() {
	root := &cobra.Command{
		Use:          "contactctl",
		Short:        "Submit contact messages to the vipspot relay",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "https://api.vipspot.net", "relay base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "request timeout")

	root.AddCommand(newSendCmd(), newHealthCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newSendCmd() *cobra.Command {
	var (
		name    string
		email   string
		message string
		source  string
		retry   bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a contact message",
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := openStorage()
			if err != nil {
				return err
			}

			form := client.Form{
				Name:    name,
				Email:   email,
				Message: message,
				Source:  source,
			}
			if retry {
				rid, ok := storage.Get(lastRequestKey)
				if !ok {
					return fmt.Errorf("no previous submission to retry")
				}
				form.RequestID = rid
			}

			c := client.New(apiURL, storage, client.WithTimeout(timeout))
			status, err := c.Submit(cmd.Context(), form)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), status.Message)
			if status.Kind != client.StatusOK {
				if status.RetryAfter > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Retry after %d seconds.\n", status.RetryAfter)
				}
				return fmt.Errorf("submission not accepted")
			}

			if status.TicketID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Ticket: %s\n", status.TicketID)
			}
			if status.Idempotent {
				fmt.Fprintln(cmd.OutOrStdout(), "Already delivered; no new emails were sent.")
			}
			if status.RequestID != "" {
				if err := storage.Set(lastRequestKey, status.RequestID); err != nil {
					return fmt.Errorf("persist request id: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "sender name")
	cmd.Flags().StringVar(&email, "email", "", "sender email address")
	cmd.Flags().StringVar(&message, "message", "", "message body")
	cmd.Flags().StringVar(&source, "source", "contactctl", "submission source label")
	cmd.Flags().BoolVar(&retry, "retry", false, "reuse the last correlation id so the relay deduplicates the send")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the relay is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := openStorage()
			if err != nil {
				return err
			}
			c := client.New(apiURL, storage, client.WithTimeout(timeout))
			if err := c.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func openStorage() (client.Storage, error) {
	path, err := client.DefaultStoragePath()
	if err != nil {
		return nil, err
	}
	return client.NewFileStorage(path), nil
}
