package rdx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	s := NewStore(nil)
	assert.NoError(t, s.Revoke(context.Background(), "jti", 0))
}
