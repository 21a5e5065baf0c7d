package modelpayments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrantKinds(t *testing.T) {
	finalized := &Grant{AccessToken: &AccessToken{Value: "tok"}, Continue: GrantContinue{URI: "https://auth/continue/1"}}
	pending := &Grant{Interact: &GrantInteract{Redirect: "https://auth/interact/1"}, Continue: GrantContinue{URI: "https://auth/continue/1"}}
	var missing *Grant

	assert.True(t, finalized.IsFinalized())
	assert.False(t, finalized.IsPending())
	assert.True(t, pending.IsPending())
	assert.False(t, pending.IsFinalized())
	assert.False(t, missing.IsFinalized())
	assert.False(t, missing.IsPending())
	assert.False(t, (&Grant{AccessToken: &AccessToken{}}).IsFinalized())
}
