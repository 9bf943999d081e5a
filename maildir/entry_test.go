package maildir

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mserrors "github.com/infodancer/mailstore/errors"
)

func TestMailEntry_Received(t *testing.T) {
	md := newTestMaildir(t)
	id, err := md.StoreNew([]byte(testMail))
	require.NoError(t, err)

	e, err := md.Find(id)
	require.NoError(t, err)

	// The topmost Received header is the final hop.
	received, err := e.Received()
	require.NoError(t, err)
	assert.True(t, received.Equal(time.Unix(1463868507, 0)), received)

	date, err := e.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(time.Unix(1463868480, 0)), date)

	subject, err := e.Subject()
	require.NoError(t, err)
	assert.Equal(t, "maildir delivery test mail", subject)

	size, err := e.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(testMail)), size)
}

func TestMailEntry_MissingHeaders(t *testing.T) {
	md := newTestMaildir(t)
	id, err := md.StoreNew([]byte("Subject: bare\r\n\r\nbody\r\n"))
	require.NoError(t, err)
	e, err := md.Find(id)
	require.NoError(t, err)

	_, err = e.Received()
	assert.True(t, errors.Is(err, mserrors.ErrNoReceivedHeader))
	assert.Equal(t, mserrors.KindDate, mserrors.KindOf(err))

	_, err = e.Date()
	assert.Equal(t, mserrors.KindDate, mserrors.KindOf(err))
}

func TestMailEntry_BadReceivedDate(t *testing.T) {
	md := newTestMaildir(t)
	id, err := md.StoreNew([]byte("Received: from a by b; not a date\r\n\r\nbody\r\n"))
	require.NoError(t, err)
	e, err := md.Find(id)
	require.NoError(t, err)

	_, err = e.Received()
	assert.True(t, errors.Is(err, mserrors.ErrDate))
}

func TestMailEntry_Parsed(t *testing.T) {
	md := newTestMaildir(t)
	id, err := md.StoreCurWithFlags([]byte(testMail), "S")
	require.NoError(t, err)
	e, err := md.Find(id)
	require.NoError(t, err)

	ent, err := e.Parsed()
	require.NoError(t, err)
	assert.Equal(t, "maildir delivery test mail", ent.Header.Get("Subject"))
	body, err := io.ReadAll(ent.Body)
	require.NoError(t, err)
	assert.Equal(t, "Today is Boomtime, the 59th day of Discord in the YOLD 3183\r\n", string(body))

	h, err := e.Headers()
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", h.Get("From"))
}

func TestMailEntry_ContentIsCached(t *testing.T) {
	md := newTestMaildir(t)
	id, err := md.StoreNew([]byte(testMail))
	require.NoError(t, err)
	e, err := md.Find(id)
	require.NoError(t, err)

	first, err := e.Data()
	require.NoError(t, err)

	// Later changes on disk are not observed.
	require.NoError(t, os.Remove(e.Path()))
	second, err := e.Data()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	subject, err := e.Subject()
	require.NoError(t, err)
	assert.Equal(t, "maildir delivery test mail", subject)
}

func TestMailEntry_ReadError(t *testing.T) {
	md := newTestMaildir(t)
	id, err := md.StoreNew([]byte(testMail))
	require.NoError(t, err)
	e, err := md.Find(id)
	require.NoError(t, err)
	require.NoError(t, md.Delete(id))

	_, err = e.Data()
	assert.True(t, errors.Is(err, mserrors.ErrIO))
	_, err = e.Subject()
	assert.True(t, errors.Is(err, mserrors.ErrIO))
}
