package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chronicle/reorder/internal/app"
	"chronicle/reorder/internal/document"
	"chronicle/reorder/internal/reorder"
)

var moveCmd = &cobra.Command{
	Use:   "move <document> <from> <to>",
	Short: "Move a block, or a list item with --list, next to another sibling",
	Long: `Indices are taken from the current outline. The source lands before the
target unless --after is given.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid source index %q", args[1])
		}
		to, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid target index %q", args[2])
		}
		list, _ := cmd.Flags().GetInt("list")
		after, _ := cmd.Flags().GetBool("after")

		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		outline, err := svc.Outline(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		mv, err := moveFromOutline(outline, list, from, to, after)
		if err != nil {
			return err
		}
		resp, err := svc.ApplyMove(cmd.Context(), args[0], app.MoveRequest{Move: mv}, actorFlag(cmd))
		if err != nil {
			return err
		}
		if !resp.Changed {
			fmt.Fprintln(cmd.OutOrStdout(), "unchanged")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", resp.Commit.Hash, resp.Commit.Message)
		return nil
	},
}

func init() {
	moveCmd.Flags().Int("list", -1, "Index of the list block whose items are moved")
	moveCmd.Flags().Bool("after", false, "Place the source after the target")
	rootCmd.AddCommand(moveCmd)
}

// moveFromOutline addresses siblings by outline index. A negative list
// index selects top-level blocks.
func moveFromOutline(outline app.Outline, list, from, to int, after bool) (reorder.Move, error) {
	if list < 0 {
		src, err := blockInfo(outline, from)
		if err != nil {
			return reorder.Move{}, err
		}
		tgt, err := blockInfo(outline, to)
		if err != nil {
			return reorder.Move{}, err
		}
		return reorder.Move{Source: src, Target: tgt, InsertAfter: after}, nil
	}

	if list >= len(outline.Blocks) {
		return reorder.Move{}, fmt.Errorf("no block at index %d", list)
	}
	parent := outline.Blocks[list]
	src, err := itemInfo(parent, from)
	if err != nil {
		return reorder.Move{}, err
	}
	tgt, err := itemInfo(parent, to)
	if err != nil {
		return reorder.Move{}, err
	}
	return reorder.Move{Source: src, Target: tgt, InsertAfter: after}, nil
}

func blockInfo(outline app.Outline, index int) (document.DragInfo, error) {
	if index < 0 || index >= len(outline.Blocks) {
		return document.DragInfo{}, fmt.Errorf("no block at index %d", index)
	}
	b := outline.Blocks[index]
	return document.DragInfo{
		Position:       b.Position,
		Depth:          1,
		ParentPosition: document.RootPosition,
		Index:          b.Index,
		NodeID:         b.NodeID,
	}, nil
}

func itemInfo(parent app.OutlineBlock, index int) (document.DragInfo, error) {
	if index < 0 || index >= len(parent.Items) {
		return document.DragInfo{}, fmt.Errorf("no item at index %d in %s at %d", index, parent.Type, parent.Position)
	}
	it := parent.Items[index]
	return document.DragInfo{
		Position:       it.Position,
		Depth:          2,
		ParentPosition: parent.Position,
		Index:          it.Index,
		NodeID:         it.NodeID,
	}, nil
}
