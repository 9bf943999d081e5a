package maildir

import (
	"fmt"
	"strconv"

	"github.com/infodancer/mailstore"
	"github.com/infodancer/mailstore/errors"
)

func init() {
	mailstore.Register("maildir", openStore)
}

// openStore builds a MaildirStore from registry options:
//
//	maildir_subdir  directory under each mailbox holding the maildir, e.g. "Maildir"
//	path_template   mailbox layout using {domain}, {localpart} and {email},
//	                e.g. "{domain}/users/{localpart}"
//	lenient_count   "true" to count a missing new/ or cur/ as empty
func openStore(config mailstore.StoreConfig) (mailstore.MsgStore, error) {
	if config.BasePath == "" {
		return nil, errors.ErrStoreConfigInvalid
	}

	var opts []Option
	if v, ok := config.Options["lenient_count"]; ok {
		lenient, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: lenient_count: %v", errors.ErrStoreConfigInvalid, err)
		}
		if lenient {
			opts = append(opts, WithLenientCount())
		}
	}
	return NewStore(config.BasePath, config.Options["maildir_subdir"], config.Options["path_template"], opts...), nil
}
