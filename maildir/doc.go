// Package maildir provides read/write access to Maildir mailboxes and a
// Maildir-format message store built on it.
//
// A maildir is a directory holding three subdirectories:
//
//	maildir/
//	├── tmp/     # Deliveries being written
//	├── new/     # Delivered messages not yet seen by a mail reader
//	└── cur/     # Messages with flags: <id>:2,<flags>
//
// Deliveries are written to tmp/, synced, and renamed into new/ or cur/ in
// one step, so readers never see a partial message. No locks are taken;
// other processes may deliver into the same maildir at any time.
//
// Maildir is the handle for a single mailbox:
//
//	md := maildir.New("/var/mail/alice/Maildir")
//	if err := md.CreateDirs(); err != nil { ... }
//	id, err := md.StoreNew(raw)
//	err = md.SetFlags(id, "S")
//
// MaildirStore maps user mailboxes under a base path and registers itself
// with the mailstore registry under the name "maildir". Import it with a
// blank identifier to enable maildir support:
//
//	import _ "github.com/infodancer/mailstore/maildir"
//
// Then open a maildir store:
//
//	store, err := mailstore.Open(mailstore.StoreConfig{
//	    Type:     "maildir",
//	    BasePath: "/var/mail",
//	})
package maildir
