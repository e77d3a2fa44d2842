package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/questlines/engine/internal/session"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored questlines, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderInfos(a.out, a.session.Infos())
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <questline-id>",
		Short: "Print a questline with quest status and prerequisites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			ql := a.session.Snapshot()
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(ql)
			}
			return renderQuestline(a.out, ql)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw questline document")
	return cmd
}

func newNewCmd(a *app) *cobra.Command {
	var quests int
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a questline, optionally with a chain of placeholder quests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.session
			if err := s.Load(cmd.Context(), ""); err != nil {
				return err
			}
			s.Rename(args[0])
			prev := ""
			for i := range quests {
				q := s.AddQuest(nil)
				s.MoveQuest(q.ID, placeholderPosition(i))
				if prev != "" {
					if err := s.AddDependency(prev, q.ID); err != nil {
						return err
					}
				}
				prev = q.ID
			}
			if err := s.Save(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.out, s.Snapshot().ID)
			return err
		},
	}
	cmd.Flags().IntVar(&quests, "quests", 0, "number of chained placeholder quests")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import an exported questline file and save it as a new questline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := a.session.LoadFromData(cmd.Context(), data); err != nil {
				return err
			}
			if err := a.session.Save(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, a.session.Snapshot().ID)
			return err
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "export <questline-id>",
		Short: "Write a questline to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			file, err := a.session.Export(cmd.Context(), format)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, filepath.Base(file.Filename))
			if err := os.WriteFile(path, file.Data, 0o644); err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, path)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "export format (json; yaml in remote mode)")
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write the file to")
	return cmd
}

// newCompleteCmd builds "complete" or, when done is false, "reopen".
func newCompleteCmd(a *app, done bool) *cobra.Command {
	use, short := "complete", "Mark a quest complete"
	if !done {
		use, short = "reopen", "Mark a quest incomplete, reopening every completed quest after it"
	}
	return &cobra.Command{
		Use:   use + " <questline-id> <quest-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd, args[0], func(s *session.Session) error {
				return s.SetCompleted(args[1], done)
			})
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "check <questline-id> <quest-id> <objective-id>",
		Short: "Tick off an objective",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd, args[0], func(s *session.Session) error {
				return s.SetObjectiveCompleted(args[1], args[2], !undo)
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "untick the objective instead")
	return cmd
}

func newLinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link <questline-id> <from-quest-id> <to-quest-id>",
		Short: "Make one quest a prerequisite of another",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd, args[0], func(s *session.Session) error {
				return s.AddDependency(args[1], args[2])
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <questline-id>",
		Short: "Delete a stored questline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.session.DeleteCurrent(cmd.Context())
		},
	}
}

func newThemeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light]",
		Short:     "Show or set the display theme preference",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"dark", "light"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return a.session.SetDarkMode(cmd.Context(), args[0] == "dark")
			}
			dark, err := a.session.Preferences().DarkMode(cmd.Context())
			if err != nil {
				return err
			}
			theme := "light"
			if dark {
				theme = "dark"
			}
			_, err = fmt.Fprintln(a.out, theme)
			return err
		},
	}
}

// edit loads a questline, applies fn and saves the result. Quests that the
// completion engine reopened along the way are reported.
func (a *app) edit(cmd *cobra.Command, id string, fn func(s *session.Session) error) error {
	s := a.session
	if err := s.Load(cmd.Context(), id); err != nil {
		return err
	}

	var reopened []string
	unsubscribe := s.Subscribe(func(ev session.Event) {
		reopened = append(reopened, ev.Cascaded...)
	})
	err := fn(s)
	unsubscribe()
	if err != nil {
		return err
	}
	if !s.Dirty() {
		return nil
	}
	if err := s.Save(cmd.Context()); err != nil {
		return err
	}
	if len(reopened) > 0 {
		_, err = fmt.Fprintf(a.out, "reopened: %s\n", strings.Join(reopened, ", "))
	}
	return err
}
