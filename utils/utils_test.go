package utils

import (
	"bytes"
	"context"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/princinho/storefront/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Kitchen Tools", "kitchen-tools"},
		{"accents", "Électroménager & Déco", "electromenager-deco"},
		{"trim", "  --Shoes!! ", "shoes"},
		{"empty", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlug(tt.in))
		})
	}
}

func TestGenerateSlugIsCapped(t *testing.T) {
	long := strings.Repeat("abcd ", 30)
	slug := GenerateSlug(long)
	assert.LessOrEqual(t, len(slug), models.MaxSlugLength)
	assert.False(t, strings.HasSuffix(slug, "-"))
}

func TestMergeImageUrlsArrays(t *testing.T) {
	got := MergeImageUrlsArrays(
		[]string{"a", "b", "c"},
		[]string{"b"},
		[]string{"c", "d"},
	)
	assert.Equal(t, []string{"a", "c", "d"}, got)
}

func TestIntersectStrings(t *testing.T) {
	assert.Equal(t, []string{"b"}, IntersectStrings([]string{"a", "b"}, []string{"b", "c"}))
	assert.Empty(t, IntersectStrings(nil, []string{"x"}))
}

func TestPagination(t *testing.T) {
	limits := QueryLimits{Default: 20, Max: 100}

	page, limit, skip := Pagination("", "", limits)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)
	assert.EqualValues(t, 0, skip)

	page, limit, skip = Pagination("3", "10", limits)
	assert.Equal(t, 3, page)
	assert.Equal(t, 10, limit)
	assert.EqualValues(t, 20, skip)

	_, limit, _ = Pagination("1", "5000", limits)
	assert.Equal(t, 100, limit)

	page, limit, _ = Pagination("-2", "abc", limits)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)
}

func TestParseBoolQuery(t *testing.T) {
	v, err := ParseBoolQuery("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseBoolQuery("true")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, *v)

	_, err = ParseBoolQuery("maybe")
	assert.Error(t, err)
}

func TestTokenManagerRoundTrip(t *testing.T) {
	m := &TokenManager{
		AccessSecret:  []byte("access"),
		RefreshSecret: []byte("refresh"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}

	access, err := m.GenerateAccessToken("u1", "a@example.com", "admin")
	require.NoError(t, err)
	claims, err := m.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	// access tokens are not accepted as refresh tokens
	_, err = m.ValidateRefreshToken(access)
	assert.Error(t, err)

	r1, err := m.GenerateRefreshToken("u1")
	require.NoError(t, err)
	r2, err := m.GenerateRefreshToken("u1")
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)
	assert.NotEqual(t, HashToken(r1), HashToken(r2))
	assert.Len(t, HashToken(r1), 64)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	m := &TokenManager{AccessSecret: []byte("access"), AccessTTL: -time.Minute}
	tok, err := m.GenerateAccessToken("u1", "a@example.com", "user")
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(tok)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "s3cret-pass"))
	assert.Error(t, CheckPassword(hash, "wrong"))
}

func TestObjectNameFromGCSPublicURL(t *testing.T) {
	obj, err := ObjectNameFromGCSPublicURL("shop", "https://storage.googleapis.com/shop/products/x/1.png")
	require.NoError(t, err)
	assert.Equal(t, "products/x/1.png", obj)

	obj, err = ObjectNameFromGCSPublicURL("shop", "https://shop.storage.googleapis.com/products/1.png")
	require.NoError(t, err)
	assert.Equal(t, "products/1.png", obj)

	_, err = ObjectNameFromGCSPublicURL("shop", "https://storage.googleapis.com/other/1.png")
	assert.Error(t, err)
}

func TestR2ObjectName(t *testing.T) {
	r := &R2Uploader{Bucket: "media", PublicDomain: "https://files.example.com"}
	url := r.publicURL("products/a.png")
	assert.Equal(t, "https://files.example.com/media/products/a.png", url)

	key, err := r.objectName(url)
	require.NoError(t, err)
	assert.Equal(t, "products/a.png", key)

	_, err = r.objectName("https://elsewhere.example.com/a.png")
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	key := objectKey("/products/abc/", "Photo.JPG")
	assert.True(t, strings.HasPrefix(key, "products/abc/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := multipart.NewReader(&buf, w.Boundary())
	form, err := r.ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["file"][0]
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestFileValidator(t *testing.T) {
	v := NewFileValidator([]string{".png", "jpg"}, []string{"image/png", "image/jpeg"}, 1)

	mime, err := v.ValidateFile(fileHeader(t, "a.png", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = v.ValidateFile(fileHeader(t, "a.gif", pngHeader))
	assert.ErrorContains(t, err, "extension")

	_, err = v.ValidateFile(fileHeader(t, "a.png", []byte("plain text, not an image")))
	assert.ErrorContains(t, err, "file type")

	_, err = v.ValidateFile(fileHeader(t, "big.png", append(pngHeader, make([]byte, 2<<20)...)))
	assert.ErrorContains(t, err, "too large")
}

type fakeUploader struct {
	uploaded []string
	deleted  []string
	failOn   string
}

func (f *fakeUploader) Upload(_ context.Context, prefix string, fh *multipart.FileHeader) (string, error) {
	if fh.Filename == f.failOn {
		return "", assert.AnError
	}
	u := "https://cdn.example.com/" + prefix + "/" + fh.Filename
	f.uploaded = append(f.uploaded, u)
	return u, nil
}

func (f *fakeUploader) Delete(_ context.Context, urls ...string) error {
	f.deleted = append(f.deleted, urls...)
	return nil
}

func TestUploadImagesRollsBackOnFailure(t *testing.T) {
	up := &fakeUploader{failOn: "b.png"}
	files := []*multipart.FileHeader{
		fileHeader(t, "a.png", pngHeader),
		fileHeader(t, "b.png", pngHeader),
	}
	_, err := UploadImages(context.Background(), up, "products/x", files, 4)
	require.Error(t, err)
	assert.Equal(t, up.uploaded, up.deleted)

	_, err = UploadImages(context.Background(), up, "products/x", files, 1)
	assert.ErrorContains(t, err, "at most 1")
}

type fakeAdminStore struct {
	users map[string]*models.User
}

func (f *fakeAdminStore) UpsertUserByEmail(_ context.Context, u *models.User) (*models.User, bool, error) {
	if existing, ok := f.users[u.Email]; ok {
		return existing, false, nil
	}
	f.users[u.Email] = u
	return u, true, nil
}

func TestSeedAdminUser(t *testing.T) {
	store := &fakeAdminStore{users: map[string]*models.User{}}
	ctx := context.Background()

	require.Error(t, SeedAdminUser(ctx, store, "", "x"))
	require.NoError(t, SeedAdminUser(ctx, store, " Admin@Example.com ", "pw"))

	u := store.users["admin@example.com"]
	require.NotNil(t, u)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)
	assert.NoError(t, CheckPassword(u.PasswordHash, "pw"))

	// second run keeps the first password
	require.NoError(t, SeedAdminUser(ctx, store, "admin@example.com", "other"))
	assert.NoError(t, CheckPassword(store.users["admin@example.com"].PasswordHash, "pw"))
}
