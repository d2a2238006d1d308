package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Generated_Token_Round_Trips(t *testing.T) {
	req := require.New(t)
	secret := []byte("test-secret")

	token, err := GenerateToken("alice", secret, time.Hour)
	req.NoError(err)

	claims, err := ValidateToken(token, secret)
	req.NoError(err)
	req.Equal("alice", claims.UserID)
	req.Equal("chatwire", claims.Issuer)
}

func Test_Wrong_Secret_Is_Rejected(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("alice", []byte("right"), time.Hour)
	req.NoError(err)

	_, err = ValidateToken(token, []byte("wrong"))
	req.Error(err)
}

func Test_Expired_Token_Is_Rejected(t *testing.T) {
	req := require.New(t)
	secret := []byte("test-secret")

	token, err := GenerateToken("alice", secret, -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token, secret)
	req.Error(err)
}
