package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/infodancer/mailstore/maildir"
)

func (a *app) explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [maildir...]",
		Short: "Describe every message in one or more maildirs",
		Long: `Print the path, identifier and flags of every message in new/ and
then cur/. With no arguments the configured maildir is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var dirs []*maildir.Maildir
			for _, p := range args {
				dirs = append(dirs, a.open(p))
			}
			if len(dirs) == 0 {
				md, err := a.maildir()
				if err != nil {
					return err
				}
				dirs = append(dirs, md)
			}
			out := cmd.OutOrStdout()
			for _, md := range dirs {
				for _, entries := range []*maildir.Entries{md.ListNew(), md.ListCur()} {
					for e, err := range entries.All() {
						if err != nil {
							return err
						}
						explainEntry(out, e)
					}
				}
			}
			return nil
		},
	}
}

func explainEntry(w io.Writer, e *maildir.MailEntry) {
	fmt.Fprintf(w, "Path:         %s\n", e.Path())
	fmt.Fprintf(w, "ID:           %s\n", e.ID())
	fmt.Fprintf(w, "Flags:        %s\n", e.Flags())
	fmt.Fprintf(w, "is_draft:     %t\n", e.IsDraft())
	fmt.Fprintf(w, "is_flagged:   %t\n", e.IsFlagged())
	fmt.Fprintf(w, "is_passed:    %t\n", e.IsPassed())
	fmt.Fprintf(w, "is_replied:   %t\n", e.IsReplied())
	fmt.Fprintf(w, "is_seen:      %t\n", e.IsSeen())
	fmt.Fprintf(w, "is_trashed:   %t\n", e.IsTrashed())
}

func (a *app) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count messages in new/ and cur/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.maildir()
			if err != nil {
				return err
			}
			n, err := md.CountNew()
			if err != nil {
				return err
			}
			c, err := md.CountCur()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "new: %d\ncur: %d\n", n, c)
			return nil
		},
	}
}

// readMessage reads a message from the named file, or stdin for "-" or no name.
func readMessage(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

func (a *app) storeCmd() *cobra.Command {
	var flags string
	var toCur bool

	cmd := &cobra.Command{
		Use:   "store [file]",
		Short: "Deliver a message into the maildir",
		Long: `Deliver a message read from file (or stdin) into new/. With --flags or
--cur the message goes directly into cur/ with the given flags. The new
message identifier is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.maildir()
			if err != nil {
				return err
			}
			data, err := readMessage(cmd, args)
			if err != nil {
				return err
			}
			var id string
			if toCur || flags != "" {
				id, err = md.StoreCurWithFlags(data, flags)
			} else {
				id, err = md.StoreNew(data)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags, "flags", "", "store into cur/ with these flags (e.g. SF)")
	cmd.Flags().BoolVar(&toCur, "cur", false, "store into cur/ even without flags")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var headers bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a message",
		Long: `Print the raw message with the given identifier. With --headers print
only its subject, date and delivery time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.maildir()
			if err != nil {
				return err
			}
			e, err := md.Find(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !headers {
				data, err := e.Data()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			subject, err := e.Subject()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Subject:  %s\n", subject)
			fmt.Fprintf(out, "Date:     %s\n", formatTime(e.Date()))
			fmt.Fprintf(out, "Received: %s\n", formatTime(e.Received()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&headers, "headers", false, "print selected headers only")
	return cmd
}

func formatTime(t time.Time, err error) string {
	if err != nil {
		return "-"
	}
	return t.UTC().Format(time.RFC1123Z)
}

func (a *app) seenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seen <id>...",
		Short: "Move messages from new/ to cur/",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.maildir()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := md.MoveNewToCur(id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) flagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Change message flags",
	}

	sub := func(use, short string, apply func(*maildir.Maildir, string, string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id> <flags>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				md, err := a.maildir()
				if err != nil {
					return err
				}
				return apply(md, args[0], args[1])
			},
		}
	}

	cmd.AddCommand(
		sub("add", "Add flags to a message", (*maildir.Maildir).AddFlags),
		sub("remove", "Remove flags from a message", (*maildir.Maildir).RemoveFlags),
		sub("set", "Replace the flags of a message", (*maildir.Maildir).SetFlags),
	)
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.maildir()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := md.Delete(id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id> <target-maildir>",
		Short: "Copy a message to another maildir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.maildir()
			if err != nil {
				return err
			}
			return md.CopyTo(args[0], a.open(args[1]))
		},
	}
}

func (a *app) moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <target-maildir>",
		Short: "Move a message to another maildir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.maildir()
			if err != nil {
				return err
			}
			return md.MoveTo(args[0], a.open(args[1]))
		},
	}
}

func (a *app) mkdirCmd() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "mkdir",
		Short: "Create the maildir, or a folder inside it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.maildir()
			if err != nil {
				return err
			}
			if folder == "" {
				return md.CreateDirs()
			}
			f, err := md.CreateFolder(folder)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), f.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "create the maildir++ folder of this name")
	return cmd
}

func (a *app) cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove stale files from tmp/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.maildir()
			if err != nil {
				return err
			}
			return md.CleanTmp()
		},
	}
}

func (a *app) foldersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List maildir++ folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.maildir()
			if err != nil {
				return err
			}
			dirs, err := md.ListSubdirs()
			if err != nil {
				return err
			}
			for _, d := range dirs {
				fmt.Fprintln(cmd.OutOrStdout(), d.Path())
			}
			return nil
		},
	}
}
