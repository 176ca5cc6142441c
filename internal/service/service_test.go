package service

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/repository"
	"github.com/digkill/aieditor/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir(), testLogger())
	require.NoError(t, err)
	return s
}

func testUserRepo(t *testing.T) *repository.UserRepository {
	t.Helper()
	return repository.NewUserRepository(testStore(t))
}

// addUser seeds a user directly through the repository, bypassing the
// registration flow.
func addUser(t *testing.T, repo *repository.UserRepository, username string, credits int, isAdmin bool) models.User {
	t.Helper()
	user := models.User{
		ID:       "user-" + username,
		Username: username,
		IsAdmin:  isAdmin,
		Credits:  credits,
	}
	require.NoError(t, repo.Create(user))
	return user
}

// pngBlob renders a solid 2x2 PNG and returns it base64-encoded.
func pngBlob(t *testing.T, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
