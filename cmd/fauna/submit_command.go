package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fauna/internal/intake"
	"fauna/internal/logging"
	"fauna/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var owner string
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit <image-file>",
		Short: "Upload an image for classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			id, err := submit(ctx, cmd, owner, args[0], data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Accepted %s\n", id)

			if wait {
				return watchStatus(ctx, cmd, id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Poll with: fauna status %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner reference recorded with the upload")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the photo settles and print the result")
	return cmd
}

// submit prefers the daemon API so the running instance sees the upload
// immediately; without a daemon it enqueues through the store directly.
func submit(ctx *commandContext, cmd *cobra.Command, owner, path string, data []byte) (string, error) {
	if base := ctx.apiBase(); base != "" {
		client := newDaemonClient(base)
		if client.Reachable() {
			accepted, err := client.Submit(cmd.Context(), owner, path, data)
			if err != nil {
				return "", err
			}
			return accepted.ID, nil
		}
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return "", err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return "", err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return "", err
	}
	defer store.Close()

	svc := intake.NewService(store, cfg.Paths.UploadDir, logging.NewNop())
	item, err := svc.Accept(cmd.Context(), owner, path, data)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Daemon not reachable; photo queued for the next run")
	return item.ID, nil
}

var errPhotoNotFound = errors.New("photo not found")
