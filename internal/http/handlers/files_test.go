package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evidence-hub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteUpload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice, _ := e.signedIn("alice", models.RoleUser)
	rec := alice.postMultipart("/dashboard/", map[string]string{"file_type": "image"}, "file", "cat.png", pngBytes)
	require.Equal(t, http.StatusFound, rec.Code)
	keep := e.createUser("carol", models.RoleUser)
	require.NoError(t, e.db.CreateProject(ctx, &models.Project{UserID: keep.ID, FileType: models.FileTypeLink, LinkURL: "https://keep.example"}))

	projects, err := e.db.SearchProjects(ctx, "cat.png")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	target := projects[0]
	deletePath := fmt.Sprintf("/uploads/%d/delete/", target.ID)

	rec = alice.get(deletePath)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/", rec.Header().Get("Location"))
	rec = alice.get("/dashboard/")
	assert.Contains(t, rec.Body.String(), "Only administrators can delete uploads.")

	admin, _ := e.signedIn("boss", models.RoleAdmin)
	rec = admin.get(deletePath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Delete "+target.PublicID+"?")

	rec = admin.post(deletePath, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/project/", rec.Header().Get("Location"))
	rec = admin.get("/project/")
	assert.Contains(t, rec.Body.String(), target.PublicID+" removed.")

	n, err := e.db.Count(ctx, "projects")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "exactly one row is removed")

	_, err = os.Stat(filepath.Join(e.mediaDir, filepath.FromSlash(target.FilePath)))
	assert.True(t, os.IsNotExist(err), "stored file is removed")

	assert.Equal(t, http.StatusNotFound, admin.get(deletePath).Code)
	assert.Equal(t, http.StatusNotFound, admin.post(deletePath, nil).Code)
}

func TestMediaRefusesDirectoryListing(t *testing.T) {
	e := newEnv(t)
	c, _ := e.signedIn("alice", models.RoleUser)

	rec := c.get("/media/uploads/")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.get("/media/uploads/missing.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "<pre>"))
}
