/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/launix-de/lakota/internal/commit"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/gc"
	"github.com/launix-de/lakota/internal/registry"
	"github.com/launix-de/lakota/internal/repo"
	"github.com/launix-de/lakota/internal/schema"
	"github.com/launix-de/lakota/internal/series"
)

func newReadCmd() *cobra.Command {
	var gt, lt, after, before, closed string
	var limit, offset, paginate int
	cmd := &cobra.Command{
		Use:   "read <collection/series> [columns...]",
		Short: "print a series range as CSV",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			collLabel, serLabel, err := splitLabel(args[0])
			if err != nil {
				return err
			}
			coll, err := r.Collection(ctx, collLabel)
			if err != nil {
				return err
			}
			opts := series.ReadOptions{
				Limit:  limit,
				Offset: offset,
				Select: args[1:],
				Closed: frame.Closed(closed),
			}
			if opts.Start, err = parseKey(coll.Schema(), gt); err != nil {
				return err
			}
			if opts.Stop, err = parseKey(coll.Schema(), lt); err != nil {
				return err
			}
			if opts.After, err = parseEpoch(after); err != nil {
				return err
			}
			if opts.Before, err = parseEpoch(before); err != nil {
				return err
			}
			if paginate <= 0 {
				fr, err := coll.Read(ctx, serLabel, opts)
				if err != nil {
					return err
				}
				return writeCSV(os.Stdout, fr, true)
			}
			header := true
			for {
				opts.Limit = paginate
				fr, err := coll.Read(ctx, serLabel, opts)
				if err != nil {
					return err
				}
				if fr.Len() == 0 {
					return nil
				}
				if err := writeCSV(os.Stdout, fr, header); err != nil {
					return err
				}
				header = false
				if fr.Len() < paginate {
					return nil
				}
				opts.Offset += paginate
			}
		},
	}
	cmd.Flags().StringVar(&gt, "gt", "", "lower index bound (comma-separated compound key)")
	cmd.Flags().StringVar(&lt, "lt", "", "upper index bound")
	cmd.Flags().StringVar(&closed, "closed", "both", "bound inclusion: left, right, both or none")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.Flags().IntVar(&paginate, "paginate", 0, "page size for chunked output")
	cmd.Flags().StringVar(&after, "after", "", "only consider commits at or after this time")
	cmd.Flags().StringVar(&before, "before", "", "only consider commits before this time")
	return cmd
}

func newLenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "len <collection/series>",
		Short: "print a series' row count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			collLabel, serLabel, err := splitLabel(args[0])
			if err != nil {
				return err
			}
			coll, err := r.Collection(ctx, collLabel)
			if err != nil {
				return err
			}
			fr, err := coll.Read(ctx, serLabel, series.ReadOptions{Closed: frame.ClosedBoth})
			if err != nil {
				return err
			}
			fmt.Println(fr.Len())
			return nil
		},
	}
}

func newRevCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rev <collection>",
		Short: "list a collection's commits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			coll, err := r.Collection(ctx, args[0])
			if err != nil {
				return err
			}
			revs, err := coll.Changelog().Log(ctx)
			if err != nil {
				return err
			}
			idx := coll.Schema().IndexColumns()
			for _, rev := range revs {
				epoch := formatEpoch(rev.Epoch())
				flag := " "
				if rev.IsLeaf {
					flag = "*"
				}
				fmt.Printf("%s %s %s\n", flag, rev.Child, epoch)
				payload, err := rev.Read(ctx)
				if err != nil {
					return err
				}
				ci, err := commit.Decode(coll.Schema(), payload)
				if err != nil {
					return err
				}
				for pos := 0; pos < ci.Len(); pos++ {
					row := ci.At(pos)
					fmt.Printf("    %-20s %s -> %s len=%d\n",
						row.Label, formatKey(idx, row.Start), formatKey(idx, row.Stop), row.Length)
				}
			}
			return nil
		},
	}
}

func formatKey(idx []schema.SchemaColumn, k frame.Key) string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = formatScalar(idx[i].DType, v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func formatEpoch(hextime string) string {
	var ms int64
	if _, err := fmt.Sscanf(hextime, "%x", &ms); err != nil {
		return hextime
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05")
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [collection]",
		Short: "list collections, or the series of one collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			var labels []string
			if len(args) == 0 {
				labels, err = r.Ls(ctx)
			} else {
				c, cerr := r.Collection(ctx, args[0])
				if cerr != nil {
					return cerr
				}
				labels, err = c.Ls(ctx)
			}
			if err != nil {
				return err
			}
			for _, l := range labels {
				fmt.Println(l)
			}
			return nil
		},
	}
}

func newCreateCmd() *cobra.Command {
	var kv bool
	cmd := &cobra.Command{
		Use:   `create <collection> "<name dtype [*] [| codec ...]>" ...`,
		Short: "create a collection from column specs ('*' marks index columns)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			kind := schema.KindDefault
			if kv {
				kind = schema.KindKV
			}
			sch, err := schema.Parse(kind, strings.Join(args[1:], ", "))
			if err != nil {
				return err
			}
			_, err = r.CreateCollection(ctx, args[0], sch, true)
			return err
		},
	}
	cmd.Flags().BoolVar(&kv, "kv", false, "create with last-writer-wins kv semantics")
	return cmd
}

func newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <collection/series>",
		Short: "write CSV rows from stdin into a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			collLabel, serLabel, err := splitLabel(args[0])
			if err != nil {
				return err
			}
			coll, err := r.Collection(ctx, collLabel)
			if err != nil {
				return err
			}
			fr, err := readCSV(os.Stdin, coll.Schema())
			if err != nil {
				return err
			}
			if fr.Len() == 0 {
				return nil
			}
			if _, serr := coll.SeriesSchema(ctx, serLabel); errors.Is(serr, registry.ErrNotFound) {
				if err := coll.CreateSeries(ctx, true, serLabel); err != nil {
					return err
				}
			} else if serr != nil {
				return serr
			}
			_, err = coll.Write(ctx, serLabel, fr.Sorted(), series.WriteOptions{})
			return err
		},
	}
}

func newSquashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "squash [collections...]",
		Short: "collapse history into fresh root commits",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			labels := args
			if len(labels) == 0 {
				if labels, err = r.Ls(ctx); err != nil {
					return err
				}
				if err := r.Squash(ctx); err != nil {
					return err
				}
			}
			for _, label := range labels {
				coll, err := r.Collection(ctx, label)
				if err != nil {
					return err
				}
				if err := coll.Squash(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newPackCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "pack [collections...]",
		Short: "fold each collection's commit line into one commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			labels := args
			if len(labels) == 0 {
				if labels, err = r.Ls(ctx); err != nil {
					return err
				}
			}
			for _, label := range labels {
				coll, err := r.Collection(ctx, label)
				if err != nil {
					return err
				}
				if err := coll.Pack(ctx, olderThan); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 15*time.Minute, "leave commits newer than this untouched")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection | collection/series>",
		Short: "delete a collection, or one series within a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			if strings.Contains(args[0], "/") {
				collLabel, serLabel, err := splitLabel(args[0])
				if err != nil {
					return err
				}
				coll, err := r.Collection(ctx, collLabel)
				if err != nil {
					return err
				}
				return coll.Delete(ctx, serLabel)
			}
			return r.Delete(ctx, args[0])
		},
	}
}

func newTruncateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "truncate <collection/series>",
		Short: "drop all rows of a series, keeping the series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			collLabel, serLabel, err := splitLabel(args[0])
			if err != nil {
				return err
			}
			coll, err := r.Collection(ctx, collLabel)
			if err != nil {
				return err
			}
			return coll.Truncate(ctx, serLabel)
		},
	}
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <collection>",
		Short: "reconcile a collection's concurrent branches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			coll, err := r.Collection(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = coll.Merge(ctx)
			return err
		},
	}
}

func newGCCmd() *cobra.Command {
	var soft bool
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "remove unreferenced segment blobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			opts := gc.Options{}
			if soft {
				opts.Archive = r.Pod().Cd("archive")
			}
			count, err := gc.Run(ctx, r, opts)
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		},
	}
	cmd.Flags().BoolVar(&soft, "soft", false, "archive unreferenced segments instead of deleting them")
	return cmd
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <remote-uri> [collections...]",
		Short: "push collections to a remote repository",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			remote, err := repo.FromURI(args[0])
			if err != nil {
				return err
			}
			return r.Push(ctx, remote, args[1:]...)
		},
	}
}

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <remote-uri> [collections...]",
		Short: "pull collections from a remote repository",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := openRepo()
			if err != nil {
				return err
			}
			remote, err := repo.FromURI(args[0])
			if err != nil {
				return err
			}
			return r.Pull(ctx, remote, args[1:]...)
		},
	}
}
