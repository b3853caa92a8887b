package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"chronicle/reorder/internal/app"
)

var outlineCmd = &cobra.Command{
	Use:   "outline <document>",
	Short: "Print the draggable blocks and list items of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		outline, err := svc.Outline(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), outline)
		}
		writeOutline(cmd.OutOrStdout(), outline)
		return nil
	},
}

func init() {
	outlineCmd.Flags().Bool("json", false, "Print the outline as JSON")
	rootCmd.AddCommand(outlineCmd)
}

func writeOutline(w io.Writer, outline app.Outline) {
	fmt.Fprintf(w, "%s (%s) head %s\n", outline.Title, outline.DocumentID, outline.Head.Hash)
	for _, b := range outline.Blocks {
		fmt.Fprintf(w, "%3d  %-12s pos=%-5d size=%-4d %s\n", b.Index, b.Type, b.Position, b.Size, b.NodeID)
		for _, it := range b.Items {
			fmt.Fprintf(w, "     %3d  %-10s pos=%-5d size=%-4d %s\n", it.Index, it.Type, it.Position, it.Size, it.NodeID)
		}
	}
}
