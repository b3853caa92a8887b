package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chronicle/reorder/internal/app"
)

var putCmd = &cobra.Command{
	Use:   "put <document> <file.json>",
	Short: "Import or replace a document from a ProseMirror JSON file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		if !json.Valid(raw) {
			return fmt.Errorf("%s is not valid JSON", args[1])
		}
		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			title = args[0]
		}

		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		outline, err := svc.PutDocument(cmd.Context(), args[0], app.PutDocumentInput{Title: title, Doc: raw}, actorFlag(cmd))
		if err != nil {
			return err
		}
		writeOutline(cmd.OutOrStdout(), outline)
		return nil
	},
}

func init() {
	putCmd.Flags().String("title", "", "Document title (defaults to the document id)")
	rootCmd.AddCommand(putCmd)
}
