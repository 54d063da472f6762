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
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/launix-de/lakota/internal/pod"
)

// newShellCmd runs an interactive loop dispatching lines to the regular
// commands. For filesystem-backed repos the changelog caches are dropped
// whenever another writer touches the repo, so reads between prompts see
// fresh data.
func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "interactive prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := readline.NewEx(&readline.Config{
				Prompt:            "lakota> ",
				HistoryFile:       os.TempDir() + "/.lakota-history",
				InterruptPrompt:   "^C",
				EOFPrompt:         "exit",
				HistorySearchFold: true,
			})
			if err != nil {
				return err
			}
			defer l.Close()
			l.CaptureExitSignal()

			r, err := openRepo()
			if err != nil {
				return err
			}
			if w, ok := r.Pod().(pod.Watcher); ok {
				stop, err := w.Watch(r.Refresh)
				if err == nil {
					defer stop()
				}
			}

			for {
				line, err := l.Readline()
				if err == readline.ErrInterrupt {
					if len(line) == 0 {
						break
					}
					continue
				} else if err != nil {
					break
				}
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}
				sub := newRootCmd()
				sub.SetArgs(append(strings.Fields(line), "--repo", repoURI))
				if err := sub.Execute(); err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
				}
				r.Refresh()
			}
			return nil
		},
	}
}
