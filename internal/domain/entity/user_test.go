package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUser_DefaultState(t *testing.T) {
	u := NewUser(1, 10)
	require.Equal(t, StateMainMenu, u.State)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, int64(10), u.ChatID)
}

func TestUser_SelectBin(t *testing.T) {
	u := NewUser(1, 10)
	u.SelectBin("TCH-001")
	require.Equal(t, StateAwaitingPhoto, u.State)
	require.Equal(t, "TCH-001", u.BinCode)
}
