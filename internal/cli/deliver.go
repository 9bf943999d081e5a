package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/infodancer/mailstore"
	"github.com/infodancer/mailstore/keyring"
	"github.com/infodancer/mailstore/maildir"
)

func (a *app) deliverCmd() *cobra.Command {
	var from string
	var to []string

	cmd := &cobra.Command{
		Use:   "deliver --to <address>... [file]",
		Short: "Deliver a message through the configured message store",
		Long: `Deliver a message read from file (or stdin) to each recipient's mailbox
under store.base_path. Recipients with a key in keys.dir receive the
message encrypted to their public key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(to) == 0 {
				return fmt.Errorf("at least one --to recipient is required")
			}
			data, err := readMessage(cmd, args)
			if err != nil {
				return err
			}

			store, err := mailstore.Open(a.cfg.StoreConfig())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			var agent mailstore.DeliveryAgent = store
			if a.cfg.Keys.Dir != "" {
				agent = mailstore.NewEncryptingDeliveryAgent(store, keyring.New(a.cfg.Keys.Dir))
			}

			envelope := mailstore.Envelope{
				From:         from,
				Recipients:   to,
				ReceivedTime: time.Now(),
			}
			return agent.Deliver(cmd.Context(), envelope, bytes.NewReader(data))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "envelope sender")
	cmd.Flags().StringSliceVar(&to, "to", nil, "envelope recipient (repeatable)")
	return cmd
}

func (a *app) keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <user>",
		Short: "Create an encryption key pair for a user",
		Long: `Create an X25519 key pair for user in keys.dir. The private key is
sealed with a password read from the first line of stdin. Existing keys
are never replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Keys.Dir == "" {
				return fmt.Errorf("keys.dir is not configured")
			}
			password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			password = strings.TrimRight(password, "\r\n")
			if password == "" {
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				return fmt.Errorf("empty password")
			}
			pub, err := keyring.New(a.cfg.Keys.Dir).Generate(args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%x\n", pub)
			return nil
		},
	}
}

func (a *app) sieveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sieve <mailbox>",
		Short: "Check a mailbox's Sieve script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Store.BasePath == "" {
				return fmt.Errorf("store.base_path is not configured")
			}
			store := maildir.NewStore(a.cfg.Store.BasePath, a.cfg.Store.MaildirSubdir, a.cfg.Store.PathTemplate)
			n, err := store.SieveScript(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d commands\n", n)
			return nil
		},
	}
}
