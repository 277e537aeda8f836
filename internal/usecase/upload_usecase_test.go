package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFileStore struct {
	mock.Mock
	body []byte
}

func (m *mockFileStore) UploadFile(ctx context.Context, file io.Reader, contentType, objectName string) (string, error) {
	m.body, _ = io.ReadAll(file)
	args := m.Called(ctx, contentType, objectName)
	return args.String(0), args.Error(1)
}

func (m *mockFileStore) DeleteFile(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *mockFileStore) Close() error {
	return nil
}

func newUploadUseCase(store *mockFileStore) *UploadUseCase {
	uc := NewUploadUseCase(store, 16)
	uc.now = func() time.Time { return time.UnixMilli(1717236000123) }
	return uc
}

func TestUploadImageStoresDecodedBytes(t *testing.T) {
	store := &mockFileStore{}
	store.On("UploadFile", mock.Anything, "image/png", "listing_1717236000123.png").
		Return("/uploads/listing_1717236000123.png", nil)

	uc := newUploadUseCase(store)
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fakepng"))

	url, err := uc.UploadImage(context.Background(), "u1", payload, "photo.PNG")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/listing_1717236000123.png", url)
	assert.Equal(t, []byte("fakepng"), store.body)
	store.AssertExpectations(t)
}

func TestUploadImageRejectsBadInput(t *testing.T) {
	store := &mockFileStore{}
	uc := newUploadUseCase(store)
	ctx := context.Background()

	_, err := uc.UploadImage(ctx, "u1", base64.StdEncoding.EncodeToString([]byte("x")), "notes.txt")
	assertStatus(t, err, http.StatusBadRequest)

	_, err = uc.UploadImage(ctx, "u1", "%%%not-base64", "a.jpg")
	assertStatus(t, err, http.StatusBadRequest)

	_, err = uc.UploadImage(ctx, "u1", "", "a.jpg")
	assertStatus(t, err, http.StatusBadRequest)

	tooBig := base64.StdEncoding.EncodeToString(make([]byte, 17))
	_, err = uc.UploadImage(ctx, "u1", tooBig, "a.gif")
	assertStatus(t, err, http.StatusBadRequest)

	store.AssertNotCalled(t, "UploadFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadImageStoreFailure(t *testing.T) {
	store := &mockFileStore{}
	store.On("UploadFile", mock.Anything, "image/jpeg", mock.Anything).Return("", errors.New("bucket offline"))

	uc := newUploadUseCase(store)
	_, err := uc.UploadImage(context.Background(), "u1", base64.StdEncoding.EncodeToString([]byte("jpg")), "a.jpeg")
	assertStatus(t, err, http.StatusInternalServerError)
}
