package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	assert.Equal(t, "call after 5pm\nask for Samir", Text("  call   after <b>5pm</b> \n ask  for Samir "))
	assert.Equal(t, "alert(1)", Text("&lt;script&gt;alert(1)&lt;/script&gt;"))
	assert.Nil(t, TextPtr(nil))
}
