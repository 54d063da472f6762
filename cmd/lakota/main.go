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

// Command lakota is the thin CLI over the storage engine: it dispatches
// to internal/repo, internal/collection and internal/series and carries
// no business logic of its own.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/launix-de/lakota/internal/changelog"
	"github.com/launix-de/lakota/internal/codec"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/pool"
	"github.com/launix-de/lakota/internal/repo"
	"github.com/launix-de/lakota/internal/schema"
)

var repoURI string

func main() {
	pool.SetThreaded(true)
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lakota",
		Short:         "versioned columnar storage for timeseries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultURI := os.Getenv("LAKOTA_REPO")
	if defaultURI == "" {
		defaultURI = "file://.lakota"
	}
	root.PersistentFlags().StringVar(&repoURI, "repo", defaultURI, "repository URI (or $LAKOTA_REPO)")

	root.AddCommand(
		newReadCmd(),
		newLenCmd(),
		newRevCmd(),
		newLsCmd(),
		newCreateCmd(),
		newWriteCmd(),
		newSquashCmd(),
		newPackCmd(),
		newDeleteCmd(),
		newTruncateCmd(),
		newMergeCmd(),
		newGCCmd(),
		newPushCmd(),
		newPullCmd(),
		newShellCmd(),
	)
	return root
}

func openRepo() (*repo.Repo, error) {
	return repo.FromURI(repoURI)
}

// splitLabel parses "collection/series".
func splitLabel(label string) (coll, ser string, err error) {
	parts := strings.SplitN(label, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected <collection>/<series>, got %q", label)
	}
	return parts[0], parts[1], nil
}

// parseKey parses a comma-separated compound key value against the
// schema's index columns, accepting as many leading columns as values
// given (a key prefix).
func parseKey(sch *schema.Schema, raw string) (frame.Key, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	idx := sch.IndexColumns()
	if len(parts) > len(idx) {
		return nil, fmt.Errorf("key %q has %d values but the index has %d columns", raw, len(parts), len(idx))
	}
	key := make(frame.Key, len(parts))
	for i, part := range parts {
		v, err := parseScalar(idx[i].DType, strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		key[i] = v
	}
	return key, nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseScalar(dt codec.DType, s string) (any, error) {
	switch dt {
	case codec.Int64:
		return strconv.ParseInt(s, 10, 64)
	case codec.Float64:
		return parseFloat(s)
	case codec.DatetimeS:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Unix(), nil
			}
		}
		return nil, fmt.Errorf("cannot parse timestamp %q", s)
	case codec.DatetimeD:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("cannot parse date %q", s)
		}
		return t.Unix() / 86400, nil
	case codec.String:
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported key dtype %v", dt)
	}
}

// parseEpoch turns a --after/--before value (RFC3339 time or unix
// seconds) into the hextime bound commit filtering wants.
func parseEpoch(s string) (*string, error) {
	if s == "" {
		return nil, nil
	}
	var t time.Time
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		t = time.Unix(n, 0)
	} else {
		var perr error
		for _, layout := range timestampLayouts {
			if t, perr = time.Parse(layout, s); perr == nil {
				break
			}
		}
		if perr != nil {
			return nil, fmt.Errorf("cannot parse time %q", s)
		}
	}
	h := changelog.Hextime(t)
	return &h, nil
}

func formatScalar(dt codec.DType, v any) string {
	switch dt {
	case codec.DatetimeS:
		return time.Unix(v.(int64), 0).UTC().Format("2006-01-02T15:04:05")
	case codec.DatetimeD:
		return time.Unix(v.(int64)*86400, 0).UTC().Format("2006-01-02")
	case codec.Float64:
		return strconv.FormatFloat(v.(float64), 'g', -1, 64)
	case codec.Int64:
		return strconv.FormatInt(v.(int64), 10)
	default:
		return fmt.Sprint(v)
	}
}
