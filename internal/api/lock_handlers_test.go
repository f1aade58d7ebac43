package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vrsandeep/filebox/internal/api"
	"github.com/vrsandeep/filebox/internal/auth"
	"github.com/vrsandeep/filebox/internal/testutil"
)

func TestLockAndUnlock(t *testing.T) {
	server, root := testutil.SetupTestServer(t)
	router := server.Router()
	makeTree(t, root, "private/diary.txt", "file.txt")

	lock := func(path, password string) int {
		return doJSON(t, router, http.MethodPost, "/api/lock", map[string]string{"folder_path": path, "password": password}, nil).Code
	}
	unlock := func(path, password string) int {
		return doJSON(t, router, http.MethodPost, "/api/unlock", map[string]string{"folder_path": path, "password": password}, nil).Code
	}

	require.Equal(t, http.StatusOK, lock("private", "letmein"))
	folder, err := server.Store().GetFolderByPath("private")
	require.NoError(t, err)
	assert.True(t, folder.Locked())
	assert.NotEqual(t, "letmein", *folder.PasswordHash)

	assert.Equal(t, http.StatusConflict, lock("private", "another"))
	assert.Equal(t, http.StatusLocked, doJSON(t, router, http.MethodGet, "/api/browse?path=private", nil, nil).Code)

	assert.Equal(t, http.StatusForbidden, unlock("private", "wrong"))
	assert.Equal(t, http.StatusOK, unlock("private", "letmein"))
	assert.Equal(t, http.StatusNotFound, unlock("private", "letmein"), "already unlocked")
	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodGet, "/api/browse?path=private", nil, nil).Code)

	// Leading slashes name the same folder.
	require.Equal(t, http.StatusOK, lock("/private/", "letmein"))
	assert.Equal(t, http.StatusLocked, doJSON(t, router, http.MethodGet, "/api/browse?path=private", nil, nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodGet, "/api/browse?path=private", nil,
		map[string]string{api.FolderPasswordHeader: "letmein"}).Code)

	t.Run("validation", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, lock("private", ""))
		assert.Equal(t, http.StatusBadRequest, lock("private", "abc"))
		rr := doJSON(t, router, http.MethodPost, "/api/lock", map[string]string{"folder_path": "private", "password": "abc"}, nil)
		assert.Contains(t, rr.Body.String(), "password failed 'min'")
		rr = doJSON(t, router, http.MethodPost, "/api/lock", map[string]string{"folder": "private", "password": "letmein"}, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "unknown fields are rejected")
		assert.Equal(t, http.StatusBadRequest, lock("file.txt", "letmein"))
		assert.Equal(t, http.StatusBadRequest, lock("../", "letmein"))
		assert.Equal(t, http.StatusNotFound, lock("missing", "letmein"))
		assert.Equal(t, http.StatusNotFound, unlock("missing", "letmein"))
	})
}

func TestUploadIntoLockedFolder(t *testing.T) {
	server, root := testutil.SetupTestServer(t)
	router := server.Router()
	makeTree(t, root, "vault/")
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/lock",
		map[string]string{"folder_path": "vault", "password": "letmein"}, nil).Code)

	assert.Equal(t, http.StatusLocked, upload(t, router, "vault", "a.txt", []byte("x"), "").Code)
}

func TestLockedAccessUpgradesHashCost(t *testing.T) {
	server, root := testutil.SetupTestServer(t)
	router := server.Router()
	makeTree(t, root, "vault/a.txt")
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/lock",
		map[string]string{"folder_path": "vault", "password": "letmein"}, nil).Code)

	auth.Cost = bcrypt.MinCost + 1
	t.Cleanup(func() { auth.Cost = bcrypt.MinCost })

	rr := doJSON(t, router, http.MethodGet, "/api/browse?path=vault", nil,
		map[string]string{api.FolderPasswordHeader: "letmein"})
	require.Equal(t, http.StatusOK, rr.Code)

	folder, err := server.Store().GetFolderByPath("vault")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(*folder.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
	assert.True(t, auth.CheckPasswordHash("letmein", *folder.PasswordHash))
}
