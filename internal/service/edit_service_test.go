package service

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/aieditor/internal/config"
	"github.com/digkill/aieditor/internal/gemini"
	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/repository"
	"github.com/digkill/aieditor/internal/session"
)

type fakeEditClient struct {
	image     *gemini.Image
	err       error
	calls     int
	gotPrompt string
}

func (f *fakeEditClient) EditImage(_ context.Context, _, _, prompt string) (*gemini.Image, error) {
	f.calls++
	f.gotPrompt = prompt
	return f.image, f.err
}

type editFixture struct {
	svc     *EditService
	session *session.Manager
	credits *CreditService
	history *HistoryService
	catalog *TemplateService
	client  *fakeEditClient
	users   *repository.UserRepository
}

func newEditFixture(t *testing.T) *editFixture {
	t.Helper()
	st := testStore(t)
	users := repository.NewUserRepository(st)
	credits := NewCreditService(users)
	history := NewHistoryService(repository.NewHistoryRepository(st), nil, testLogger())
	catalog := NewTemplateService(repository.NewTemplateRepository(st), testLogger())
	sess := session.NewManager()
	client := &fakeEditClient{image: &gemini.Image{Data: "ZWRpdGVkLXBuZw==", Mime: "image/png"}}

	cfg := config.Config{EditCostCredits: 1}
	return &editFixture{
		svc:     NewEditService(cfg, testLogger(), sess, credits, history, catalog, client),
		session: sess,
		credits: credits,
		history: history,
		catalog: catalog,
		client:  client,
		users:   users,
	}
}

func (f *editFixture) selectImage(t *testing.T) {
	t.Helper()
	f.session.SelectImages([]models.UploadedImage{{
		ID:       "img-1",
		Data:     "b3JpZ2luYWw=",
		MimeType: "image/jpeg",
		FileName: "photo.jpg",
	}})
}

func TestEditHappyPath(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)
	f.selectImage(t)

	result, err := f.svc.Edit(context.Background(), &user, EditRequest{Prompt: "make it warmer"})
	require.NoError(t, err)
	assert.Equal(t, "ZWRpdGVkLXBuZw==", result.Data)
	assert.Equal(t, "image/png", result.MimeType)
	assert.Equal(t, "make it warmer", result.Prompt)

	balance, err := f.credits.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)

	entries := f.history.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "b3JpZ2luYWw=", entries[0].OriginalImage)
	assert.Equal(t, "image/jpeg", entries[0].OriginalMimeType)
	assert.Equal(t, "make it warmer", entries[0].Prompt)

	assert.Equal(t, session.ShowResult, f.session.ViewMode())
}

func TestEditWithTemplateUsesItsPrompt(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)
	f.selectImage(t)

	_, err := f.svc.Edit(context.Background(), &user, EditRequest{TemplateID: "style-oil-painting"})
	require.NoError(t, err)
	assert.Contains(t, f.client.gotPrompt, "oil painting")

	entries := f.history.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "Oil Painting", entries[0].TemplateName)
	assert.Equal(t, "Style Transfer", entries[0].CategoryName)
}

func TestEditCustomPromptOverridesTemplate(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)
	f.selectImage(t)

	_, err := f.svc.Edit(context.Background(), &user, EditRequest{
		Prompt:     "my own words",
		TemplateID: "style-oil-painting",
	})
	require.NoError(t, err)
	assert.Equal(t, "my own words", f.client.gotPrompt)

	entries := f.history.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "Oil Painting", entries[0].TemplateName, "template attribution survives a custom prompt")
}

func TestEditRejectsEmptyPrompt(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)
	f.selectImage(t)

	_, err := f.svc.Edit(context.Background(), &user, EditRequest{Prompt: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.client.calls)
}

func TestEditRequiresActiveImage(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)

	_, err := f.svc.Edit(context.Background(), &user, EditRequest{Prompt: "warmer"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEditRequiresUser(t *testing.T) {
	f := newEditFixture(t)
	f.selectImage(t)

	_, err := f.svc.Edit(context.Background(), nil, EditRequest{Prompt: "warmer"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEditInsufficientCreditsSkipsClient(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 0, false)
	f.selectImage(t)

	_, err := f.svc.Edit(context.Background(), &user, EditRequest{Prompt: "warmer"})
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Zero(t, f.client.calls, "no external call before the affordability check passes")
	assert.Empty(t, f.history.List())
}

func TestEditAdminIsNotCharged(t *testing.T) {
	f := newEditFixture(t)
	admin := addUser(t, f.users, "admin", 0, true)
	f.selectImage(t)

	_, err := f.svc.Edit(context.Background(), &admin, EditRequest{Prompt: "warmer"})
	require.NoError(t, err)

	balance, err := f.credits.Balance(admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestEditNoImageReturnedLeavesStateAlone(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)
	f.selectImage(t)
	f.client.image = nil

	_, err := f.svc.Edit(context.Background(), &user, EditRequest{Prompt: "warmer"})
	assert.ErrorIs(t, err, ErrNoImageReturned)

	balance, err := f.credits.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, balance, "failed edits are free")
	assert.Empty(t, f.history.List())
	_, err = f.session.Result()
	assert.ErrorIs(t, err, session.ErrNoResult)
}

func TestEditClientErrorIsFree(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)
	f.selectImage(t)
	f.client.image = nil
	f.client.err = errors.New("upstream down")

	_, err := f.svc.Edit(context.Background(), &user, EditRequest{Prompt: "warmer"})
	require.Error(t, err)

	balance, err := f.credits.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, balance)
}

func TestEditWhileAnotherEditInFlight(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)
	f.selectImage(t)

	require.NoError(t, f.session.BeginEdit())
	defer f.session.EndEdit()

	_, err := f.svc.Edit(context.Background(), &user, EditRequest{Prompt: "warmer"})
	assert.ErrorIs(t, err, session.ErrEditInFlight)
	assert.Zero(t, f.client.calls)
}

func TestMergeBlendsOntoCurrentResult(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)
	f.selectImage(t)

	base := pngBlob(t, color.RGBA{R: 255, A: 255})
	f.session.ProduceResult(session.Result{Data: base, MimeType: "image/png", Prompt: "red square"})

	overlay := models.UploadedImage{
		ID:       "ov-1",
		Data:     pngBlob(t, color.RGBA{B: 255, A: 255}),
		MimeType: "image/png",
	}
	result, err := f.svc.Merge(context.Background(), &user, MergeRequest{
		Overlay: overlay,
		Mode:    models.BlendNormal,
		Opacity: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", result.MimeType)
	assert.NotEmpty(t, result.Data)
	assert.Equal(t, "Image merge (normal, opacity 0.50)", result.Prompt)

	balance, err := f.credits.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)

	entries := f.history.List()
	require.Len(t, entries, 1)
	assert.Equal(t, base, entries[0].OriginalImage, "history records the pre-merge result as the original")
	assert.Empty(t, entries[0].TemplateName)
}

func TestMergeRequiresResult(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)
	f.selectImage(t)

	_, err := f.svc.Merge(context.Background(), &user, MergeRequest{
		Overlay: models.UploadedImage{Data: pngBlob(t, color.RGBA{A: 255})},
		Mode:    models.BlendNormal,
		Opacity: 0.5,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMergeValidatesOpacityAndOverlay(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)
	f.session.ProduceResult(session.Result{Data: pngBlob(t, color.RGBA{A: 255}), MimeType: "image/png"})

	_, err := f.svc.Merge(context.Background(), &user, MergeRequest{
		Overlay: models.UploadedImage{Data: pngBlob(t, color.RGBA{A: 255})},
		Mode:    models.BlendNormal,
		Opacity: 1.5,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Merge(context.Background(), &user, MergeRequest{
		Mode:    models.BlendNormal,
		Opacity: 0.5,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRestoreFromHistory(t *testing.T) {
	f := newEditFixture(t)
	user := addUser(t, f.users, "alice", 3, false)
	f.selectImage(t)

	_, err := f.svc.Edit(context.Background(), &user, EditRequest{Prompt: "warmer"})
	require.NoError(t, err)
	entries := f.history.List()
	require.Len(t, entries, 1)

	f.session.ClearImage("")
	require.NoError(t, f.svc.Restore(entries[0].ID))

	res, err := f.session.Result()
	require.NoError(t, err)
	assert.Equal(t, "warmer", res.Prompt)

	assert.ErrorIs(t, f.svc.Restore("missing"), ErrNotFound)
}
