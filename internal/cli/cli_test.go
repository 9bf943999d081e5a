package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infodancer/mailstore/maildir"
)

const testMail = "Received: from a by b; Sat, 21 May 2016 22:08:27 +0000\r\n" +
	"Date: Sat, 21 May 2016 22:08:00 +0000\r\n" +
	"Subject: maildir delivery test mail\r\n" +
	"\r\n" +
	"Today is Boomtime, the 59th day of Discord in the YOLD 3183\r\n"

// executeCommand runs the command tree with args and returns captured output
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	// Keep a developer's own config file out of the tests.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func newMaildir(t *testing.T) *maildir.Maildir {
	t.Helper()
	md := maildir.New(filepath.Join(t.TempDir(), "Maildir"))
	require.NoError(t, md.CreateDirs())
	return md
}

func TestRootCommand(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "maildir", root.Use)

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"explain", "count", "store", "show", "seen", "flags", "delete",
		"copy", "move", "mkdir", "clean", "folders", "deliver", "keygen", "sieve"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNoMaildirConfigured(t *testing.T) {
	_, err := executeCommand(t, "", "count")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no maildir given")
}

func TestStoreCountShow(t *testing.T) {
	md := newMaildir(t)

	out, err := executeCommand(t, testMail, "--maildir", md.Path(), "store")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = executeCommand(t, "", "-m", md.Path(), "count")
	require.NoError(t, err)
	assert.Equal(t, "new: 1\ncur: 0\n", out)

	out, err = executeCommand(t, "", "-m", md.Path(), "show", id)
	require.NoError(t, err)
	assert.Equal(t, testMail, out)

	out, err = executeCommand(t, "", "-m", md.Path(), "show", "--headers", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Subject:  maildir delivery test mail")
	assert.Contains(t, out, "Received: Sat, 21 May 2016 22:08:27 +0000")
}

func TestStoreFromFileWithFlags(t *testing.T) {
	md := newMaildir(t)
	file := filepath.Join(t.TempDir(), "msg.eml")
	require.NoError(t, os.WriteFile(file, []byte(testMail), 0600))

	out, err := executeCommand(t, "", "-m", md.Path(), "store", "--flags", "SF", file)
	require.NoError(t, err)

	e, err := md.Find(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "SF", e.Flags())
	assert.True(t, e.IsSeen())
	assert.True(t, e.IsFlagged())

	_, err = executeCommand(t, testMail, "-m", md.Path(), "store", "--flags", "S,")
	assert.Error(t, err)
}

func TestSeenAndFlags(t *testing.T) {
	md := newMaildir(t)
	id, err := md.StoreNew([]byte(testMail))
	require.NoError(t, err)

	_, err = executeCommand(t, "", "-m", md.Path(), "seen", id)
	require.NoError(t, err)
	n, err := md.CountCur()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"flags", "add", id, "RS"}, "RS"},
		{[]string{"flags", "add", id, "S"}, "RS"},
		{[]string{"flags", "remove", id, "R"}, "S"},
		{[]string{"flags", "set", id, "T"}, "T"},
	}
	for _, step := range steps {
		_, err := executeCommand(t, "", append([]string{"-m", md.Path()}, step.args...)...)
		require.NoError(t, err, "%v", step.args)
		e, err := md.Find(id)
		require.NoError(t, err)
		assert.Equal(t, step.want, e.Flags(), "%v", step.args)
	}
}

func TestExplain(t *testing.T) {
	md := newMaildir(t)
	newID, err := md.StoreNew([]byte(testMail))
	require.NoError(t, err)
	curID, err := md.StoreCurWithFlags([]byte(testMail), "DS")
	require.NoError(t, err)

	out, err := executeCommand(t, "", "explain", md.Path())
	require.NoError(t, err)

	// new/ is listed before cur/.
	newAt := strings.Index(out, "ID:           "+newID)
	curAt := strings.Index(out, "ID:           "+curID)
	require.GreaterOrEqual(t, newAt, 0)
	require.Greater(t, curAt, newAt)
	assert.Contains(t, out[curAt:], "is_draft:     true")
	assert.Contains(t, out[curAt:], "is_seen:      true")
	assert.Contains(t, out[newAt:curAt], "is_seen:      false")
}

func TestCopyMoveDelete(t *testing.T) {
	src := newMaildir(t)
	dst := newMaildir(t)
	id, err := src.StoreCurWithFlags([]byte(testMail), "S")
	require.NoError(t, err)

	_, err = executeCommand(t, "", "-m", src.Path(), "copy", id, src.Path())
	require.Error(t, err, "copy onto itself")

	_, err = executeCommand(t, "", "-m", src.Path(), "copy", id, dst.Path())
	require.NoError(t, err)
	e, err := dst.Find(id)
	require.NoError(t, err)
	assert.Equal(t, "S", e.Flags())

	_, err = executeCommand(t, "", "-m", dst.Path(), "delete", id)
	require.NoError(t, err)
	_, err = executeCommand(t, "", "-m", src.Path(), "move", id, dst.Path())
	require.NoError(t, err)

	_, err = src.Find(id)
	assert.Error(t, err)
	_, err = dst.Find(id)
	assert.NoError(t, err)
}

func TestMkdirFoldersClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "Maildir")

	_, err := executeCommand(t, "", "-m", path, "mkdir")
	require.NoError(t, err)
	assert.True(t, maildir.New(path).Exists())

	out, err := executeCommand(t, "", "-m", path, "mkdir", "--folder", "Sent")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(path, ".Sent")+"\n", out)

	out, err = executeCommand(t, "", "-m", path, "folders")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(path, ".Sent")+"\n", out)

	_, err = executeCommand(t, "", "-m", path, "clean")
	require.NoError(t, err)
}

func TestDeliverKeygenSieve(t *testing.T) {
	base := t.TempDir()
	keys := t.TempDir()
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`store:
  base_path: `+base+`
  maildir_subdir: Maildir
  path_template: "{localpart}"
keys:
  dir: `+keys+`
`), 0600))

	out, err := executeCommand(t, "hunter2\n", "-c", cfgFile, "keygen", "alice")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 64)

	_, err = executeCommand(t, testMail, "-c", cfgFile, "deliver", "--to", "alice@example.com", "--to", "bob@example.com")
	require.NoError(t, err)

	for _, user := range []string{"alice", "bob"} {
		n, err := maildir.New(filepath.Join(base, user, "Maildir")).CountNew()
		require.NoError(t, err)
		assert.Equal(t, 1, n, user)
	}

	_, err = executeCommand(t, testMail, "-c", cfgFile, "deliver")
	assert.Error(t, err, "deliver without recipients")

	require.NoError(t, os.WriteFile(filepath.Join(base, "alice", ".sieve"), []byte("keep;\n"), 0600))
	out, err = executeCommand(t, "", "-c", cfgFile, "sieve", "alice")
	require.NoError(t, err)
	assert.Equal(t, "1 commands\n", out)

	out, err = executeCommand(t, "", "-c", cfgFile, "sieve", "bob")
	require.NoError(t, err)
	assert.Equal(t, "0 commands\n", out)
}

func TestInvalidLogFormat(t *testing.T) {
	_, err := executeCommand(t, "", "--log-format", "xml", "-m", t.TempDir(), "count")
	assert.Error(t, err)
}
