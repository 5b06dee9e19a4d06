package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pitchfund/pkg/domain"
)

func TestMintAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "pitchfund", "pitchfund-api")
	identityID := id.IdentityID(uuid.New())

	t.Run("round trip", func(t *testing.T) {
		signed, err := svc.Mint(identityID, time.Hour)
		require.NoError(t, err)

		got, err := svc.Validate(signed)
		require.NoError(t, err)
		assert.Equal(t, identityID, got)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		signed, err := svc.Mint(identityID, -time.Minute)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		require.Error(t, err)
	})

	t.Run("rejects wrong signing key", func(t *testing.T) {
		other := NewService("different-key", "pitchfund", "pitchfund-api")
		signed, err := other.Mint(identityID, time.Hour)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		require.Error(t, err)
	})

	t.Run("rejects wrong audience", func(t *testing.T) {
		other := NewService("test-signing-key", "pitchfund", "other-api")
		signed, err := other.Mint(identityID, time.Hour)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		require.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		require.Error(t, err)
	})
}
