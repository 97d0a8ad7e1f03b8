package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/taskify/internal/audit"
	"github.com/iliyamo/taskify/internal/config"
	"github.com/iliyamo/taskify/internal/repository"
)

const userByIDQuery = "SELECT id,full_name,first_name,last_name,dob,age,email,phone_number,password_hash,is_active,profile_image,created_at,updated_at FROM auth_users WHERE id=? LIMIT 1"

// stubUploader answers every upload with a fixed URL or a fixed error.
type stubUploader struct {
	url string
	err error
}

func (s stubUploader) Upload(context.Context, io.Reader, string, string, string) (string, error) {
	return s.url, s.err
}

func testUserHandler(t *testing.T, up stubUploader) (*UserHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{JWTSecret: handlerTestSecret, BcryptCost: bcrypt.MinCost}
	return NewUserHandler(cfg, repository.NewUserRepo(db), up, audit.Nop{}), mock
}

// multipartBody builds a form with the given fields plus an optional
// profile_image file.
func multipartBody(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withImage {
		part, err := w.CreateFormFile("profile_image", "avatar.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("not-really-a-png"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func putUpdate(t *testing.T, h *UserHandler, callerID uint64, paramID string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/user/"+paramID, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/user/:id")
	c.SetParamNames("id")
	c.SetParamValues(paramID)
	c.Set("user_id", callerID)
	require.NoError(t, h.Update(c))
	return rec
}

// A failed image upload aborts the whole update; the profile row is never
// written, so no URL pointing at a missing object can ever be stored.
func TestUpdateImageUploadFailureAborts(t *testing.T) {
	h, mock := testUserHandler(t, stubUploader{err: errors.New("storage offline")})

	mock.ExpectQuery(userByIDQuery).
		WithArgs(uint64(1)).
		WillReturnRows(userRow(t, 1, "a@b.c", "Sup3r$ecret", true))

	body, ct := multipartBody(t, map[string]string{"first_name": "Updated"}, true)
	rec := putUpdate(t, h, 1, "1", body, ct)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Failed to store profile image")
	require.Contains(t, rec.Body.String(), "storage offline")
	// No UPDATE was expected on the mock; reaching this point means the
	// handler bailed out before touching the row.
	require.NoError(t, mock.ExpectationsWereMet())
}

// A successful upload lands the new URL in the same UPDATE as the other
// fields, and the full name is rebuilt from the changed name part.
func TestUpdateStoresUploadedImage(t *testing.T) {
	const imageURL = "https://cdn.example.test/profiles/avatar.png"
	h, mock := testUserHandler(t, stubUploader{url: imageURL})

	mock.ExpectQuery(userByIDQuery).
		WithArgs(uint64(1)).
		WillReturnRows(userRow(t, 1, "a@b.c", "Sup3r$ecret", true))
	mock.ExpectExec("UPDATE auth_users SET full_name=?,first_name=?,last_name=?,dob=?,age=?,phone_number=?,profile_image=? WHERE id=?").
		WithArgs("Updated User", "Updated", "User", nil, nil, nil, imageURL, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	body, ct := multipartBody(t, map[string]string{"first_name": "Updated"}, true)
	rec := putUpdate(t, h, 1, "1", body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, true, env["success"])
	data := env["data"].(map[string]any)
	require.Equal(t, imageURL, data["profile_image"])
	require.Equal(t, "Updated User", data["full_name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOtherAccountForbidden(t *testing.T) {
	h, mock := testUserHandler(t, stubUploader{})

	body, ct := multipartBody(t, map[string]string{"first_name": "Sneaky"}, false)
	rec := putUpdate(t, h, 1, "2", body, ct)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "You can only update your own account")
	require.NoError(t, mock.ExpectationsWereMet())
}
