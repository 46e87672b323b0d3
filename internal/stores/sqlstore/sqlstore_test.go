package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_Rebind(t *testing.T) {
	numbered := New("", Dialect{Numbered: true})
	assert.Equal(t, "SELECT 1 WHERE a=$1 AND b IN ($2,$3)", numbered.q("SELECT 1 WHERE a=? AND b IN ("+placeholders(2)+")"))

	plain := New("", Dialect{})
	assert.Equal(t, "a=? AND b=?", plain.q("a=? AND b=?"))
	assert.Equal(t, "", placeholders(0))
}
