package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	user := UserIdentity("u-1")
	assert.False(t, user.Anonymous())
	assert.True(t, user.Valid())
	assert.Equal(t, "u-1", user.Owner())

	session := SessionIdentity("s-1")
	assert.True(t, session.Anonymous())
	assert.True(t, session.Valid())
	assert.Equal(t, "s-1", session.Owner())

	assert.False(t, Identity{}.Valid())
	assert.False(t, Identity{UserID: "u", SessionID: "s"}.Valid())

	// Same id string under different kinds is a different identity.
	assert.NotEqual(t, UserIdentity("x"), SessionIdentity("x"))
}

func TestValidateURL(t *testing.T) {
	for _, ok := range []string{
		"https://youtube.com/watch?v=abc",
		"https://www.youtube.com/watch?v=abc",
		"https://m.youtube.com/watch?v=abc",
		"https://youtu.be/abc",
		"http://youtu.be/abc",
	} {
		assert.NoError(t, validateURL(ok), ok)
	}

	for _, bad := range []string{
		"https://vimeo.com/123",
		"https://youtube.com.evil.example/watch",
		"ftp://youtube.com/x",
		"not a url",
		"",
	} {
		assert.Error(t, validateURL(bad), bad)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindBusy, KindOf(errKindf(KindBusy, "x")))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}
