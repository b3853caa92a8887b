package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chronicle/reorder/internal/app"
)

var replayCmd = &cobra.Command{
	Use:   "replay <document> <gesture.json>",
	Short: "Replay a recorded drag gesture and commit the resulting move",
	Long: `The gesture file holds {"gestureId", "events", "snapshot"} as accepted by
POST /api/documents/{id}/gestures. Without a snapshot the configured layout
measures the document.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		var req app.GestureRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("decode %s: %w", args[1], err)
		}

		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		resp, err := svc.ReplayGesture(cmd.Context(), args[0], req, actorFlag(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
