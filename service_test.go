package websync_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	websync "github.com/1120026847/web-sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_ReadTextBeforeSave(t *testing.T) {
	f := newFixture(t)

	text, err := f.gateway.ReadText(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestGateway_TextRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "ascii", text: "buy milk"},
		{name: "multi-line utf-8", text: "première ligne\n第二行\n🚀 third\r\n\ttabbed"},
		{name: "trailing whitespace", text: "keep me  \n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			require.NoError(t, f.gateway.SaveText(ctx, tt.text))

			got, err := f.gateway.ReadText(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.text, got)

			_, contentType, ok := f.srv.Object(websync.DefaultNotepadKey)
			require.True(t, ok)
			assert.Equal(t, "text/plain; charset=utf-8", contentType)
		})
	}
}

func TestGateway_SaveTextOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.gateway.SaveText(ctx, "first"))
	require.NoError(t, f.gateway.SaveText(ctx, "second"))

	got, err := f.gateway.ReadText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestGateway_SaveTextCustomKey(t *testing.T) {
	f := newFixture(t, withGateway(websync.GatewayConfig{NotepadKey: "shared/pad.txt"}))

	require.NoError(t, f.gateway.SaveText(context.Background(), "x"))

	assert.Equal(t, []string{"shared/pad.txt"}, f.srv.Keys())
}

func TestGateway_SaveTextTooLarge(t *testing.T) {
	f := newFixture(t, withGateway(websync.GatewayConfig{NotepadMaxBytes: 8}))

	err := f.gateway.SaveText(context.Background(), "123456789")

	assert.ErrorIs(t, err, websync.ErrTooLarge)
	assert.Empty(t, f.srv.Requests())
}

func TestGateway_ConcurrentSavesLastArrivalWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	arrived := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.srv.SetHook(func(r *http.Request) {
		if r.Method != http.MethodPut {
			return
		}
		first := false
		once.Do(func() { first = true })
		if first {
			close(arrived)
			<-release
		}
	})

	errA := make(chan error, 1)
	go func() { errA <- f.gateway.SaveText(ctx, "from A") }()

	<-arrived
	require.NoError(t, f.gateway.SaveText(ctx, "from B"))
	close(release)
	require.NoError(t, <-errA)

	got, err := f.gateway.ReadText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from A", got)
}

func TestGateway_ListFilesNewestFirst(t *testing.T) {
	f := newFixture(t)
	t1 := time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	t3 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	f.srv.Put("uploads/3-c_oldest.txt", []byte("333"), "text/plain", t3)
	f.srv.Put("uploads/1-a_newest.png", []byte("1"), "image/png", t1)
	f.srv.Put("uploads/2-b_middle file.pdf", []byte("22"), "application/pdf", t2)
	f.srv.Put(websync.DefaultNotepadKey, []byte("pad"), "text/plain", t1)
	f.srv.Put("uploads/", nil, "", t1)

	files, err := f.gateway.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, "uploads/1-a_newest.png", files[0].Key)
	assert.Equal(t, "newest.png", files[0].Name)
	assert.Equal(t, int64(1), files[0].Size)
	assert.True(t, t1.Equal(files[0].Date))

	assert.Equal(t, "middle file.pdf", files[1].Name)
	assert.Equal(t, "oldest.txt", files[2].Name)
	assert.Equal(t, int64(3), files[2].Size)

	for _, file := range files {
		u, err := url.Parse(file.URL)
		require.NoError(t, err)
		assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"), file.Key)
	}
}

func TestGateway_ListFilesDownloadURLsWork(t *testing.T) {
	f := newFixture(t)
	f.srv.Put("uploads/1-a_hello world.txt", []byte("hi there"), "text/plain", time.Now())

	files, err := f.gateway.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)

	resp, err := http.Get(files[0].URL) //nolint:noctx // test request
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateway_ListFilesEmpty(t *testing.T) {
	f := newFixture(t)

	files, err := f.gateway.ListFiles(context.Background())

	require.NoError(t, err)
	require.NotNil(t, files)
	assert.Empty(t, files)
}

func TestGateway_ListFilesFollowsPages(t *testing.T) {
	f := newFixture(t, withPageSize(2))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		f.srv.Put(fmt.Sprintf("uploads/%d-x_f%d.txt", i, i), []byte("x"), "text/plain", base.Add(time.Duration(i)*time.Hour))
	}

	files, err := f.gateway.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 5)
	assert.Equal(t, "f4.txt", files[0].Name)
	assert.Equal(t, "f0.txt", files[4].Name)
}

func TestGateway_ListFilesPageLimit(t *testing.T) {
	f := newFixture(t, withPageSize(1), withGateway(websync.GatewayConfig{MaxListPages: 2}))
	for i := range 4 {
		f.srv.Put(fmt.Sprintf("uploads/%d-x_f%d.txt", i, i), []byte("x"), "text/plain", time.Now())
	}

	files, err := f.gateway.ListFiles(context.Background())

	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestGateway_ListFilesSkipsMalformedRecords(t *testing.T) {
	f := newFixture(t)
	f.srv.SetListing([]byte(listing(
		contents("uploads/1-a_good.txt", "4", "2024-05-01T10:00:00.000Z") +
			contents("uploads/2-b_bad.txt", "four", "2024-05-02T10:00:00.000Z") +
			"<Contents><Key>uploads/3-c_nodate.txt</Key><Size>1</Size></Contents>",
	)))

	files, err := f.gateway.ListFiles(context.Background())

	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "good.txt", files[0].Name)
}

func TestGateway_ListFilesKeepsForeignKeys(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.srv.Put("uploads/1-aaaa_good.txt", []byte("good"), "text/plain", base)
	f.srv.Put(`uploads/2-bbbb_win\path.txt`, []byte("windows"), "text/plain", base.Add(time.Hour))
	f.srv.Put("uploads/3-cccc_a//b.txt", []byte("double"), "text/plain", base.Add(2*time.Hour))

	files, err := f.gateway.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "uploads/3-cccc_a//b.txt", files[0].Key)
	assert.Equal(t, `uploads/2-bbbb_win\path.txt`, files[1].Key)
	assert.Equal(t, `win\path.txt`, files[1].Name)
	assert.Equal(t, "uploads/1-aaaa_good.txt", files[2].Key)

	for _, file := range files {
		resp, err := http.Get(file.URL) //nolint:noctx // test request
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "download %q", file.Key)
	}
}

func TestGateway_ListFilesSkipsUngrantableKeys(t *testing.T) {
	f := newFixture(t)
	long := "uploads/1-x_" + strings.Repeat("a", 1100)
	f.srv.SetListing([]byte(listing(
		contents("uploads/2-b_good.txt", "4", "2024-05-01T10:00:00.000Z") +
			contents(long, "1", "2024-05-02T10:00:00.000Z"),
	)))

	files, err := f.gateway.ListFiles(context.Background())

	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "good.txt", files[0].Name)
}

func TestGateway_SignUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contentType := "text/plain"
	grant, err := f.gateway.SignUpload(ctx, websync.SignUploadRequest{Filename: "todo.txt", Type: &contentType})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(grant.Key, "uploads/"))
	assert.True(t, strings.HasSuffix(grant.Key, "_todo.txt"))

	req, err := http.NewRequest(http.MethodPut, grant.URL, strings.NewReader("- ship it"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	files, err := f.gateway.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, grant.Key, files[0].Key)
	assert.Equal(t, "todo.txt", files[0].Name)
	assert.Equal(t, int64(len("- ship it")), files[0].Size)
}

func TestGateway_SignUploadEmptyType(t *testing.T) {
	f := newFixture(t)

	empty := ""
	grant, err := f.gateway.SignUpload(context.Background(), websync.SignUploadRequest{Filename: "a.bin", Type: &empty})
	require.NoError(t, err)

	u, err := url.Parse(grant.URL)
	require.NoError(t, err)
	assert.Equal(t, "content-type;host", u.Query().Get("X-Amz-SignedHeaders"))
}

func TestGateway_SignUploadInvalidFilename(t *testing.T) {
	f := newFixture(t)

	ct := "text/plain"
	_, err := f.gateway.SignUpload(context.Background(), websync.SignUploadRequest{Filename: "dir/evil.txt", Type: &ct})

	assert.ErrorIs(t, err, websync.ErrInvalidInput)
}

func TestGateway_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.srv.Put("uploads/1-a_bye.txt", []byte("bye"), "text/plain", time.Now())
	f.srv.Put("uploads/2-b_stay.txt", []byte("stay"), "text/plain", time.Now())

	require.NoError(t, f.gateway.Delete(ctx, "uploads/1-a_bye.txt"))
	assert.Equal(t, []string{"uploads/2-b_stay.txt"}, f.srv.Keys())

	require.NoError(t, f.gateway.Delete(ctx, "uploads/1-a_bye.txt"), "deleting twice succeeds")
	require.NoError(t, f.gateway.Delete(ctx, "uploads/never-existed.txt"))
}

func TestGateway_DeleteForeignKey(t *testing.T) {
	f := newFixture(t)
	key := `uploads/2-bbbb_win\path.txt`
	f.srv.Put(key, []byte("windows"), "text/plain", time.Now())
	f.srv.Put("uploads/1-a_stay.txt", []byte("stay"), "text/plain", time.Now())

	require.NoError(t, f.gateway.Delete(context.Background(), key))
	assert.Equal(t, []string{"uploads/1-a_stay.txt"}, f.srv.Keys())
}

func TestGateway_DeleteNamesRequiredPrefix(t *testing.T) {
	f := newFixture(t)

	err := f.gateway.Delete(context.Background(), websync.DefaultNotepadKey)

	require.ErrorIs(t, err, websync.ErrInvalidInput)
	assert.ErrorContains(t, err, `key must lie under "uploads/"`)
}

func TestGateway_DeleteOutsideUploads(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "notepad", key: websync.DefaultNotepadKey},
		{name: "prefix itself", key: "uploads/"},
		{name: "nested directory", key: "uploads/dir/"},
		{name: "traversal", key: "uploads/../sync_data/notepad.txt"},
		{name: "other prefix", key: "uploadsx/file"},
		{name: "empty", key: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.srv.Put(websync.DefaultNotepadKey, []byte("pad"), "text/plain", time.Now())

			err := f.gateway.Delete(context.Background(), tt.key)

			assert.ErrorIs(t, err, websync.ErrInvalidInput)
			assert.Empty(t, f.srv.Requests())
			assert.Equal(t, []string{websync.DefaultNotepadKey}, f.srv.Keys())
		})
	}
}

func TestGateway_UpstreamFailures(t *testing.T) {
	f := newFixture(t)
	f.srv.FailWith(http.StatusServiceUnavailable)
	ctx := context.Background()

	_, err := f.gateway.ReadText(ctx)
	assert.ErrorIs(t, err, websync.ErrUpstream)

	err = f.gateway.SaveText(ctx, "x")
	assert.ErrorIs(t, err, websync.ErrUpstream)

	_, err = f.gateway.ListFiles(ctx)
	assert.ErrorIs(t, err, websync.ErrUpstream)

	err = f.gateway.Ping(ctx)
	assert.ErrorIs(t, err, websync.ErrUpstream)

	err = f.gateway.Delete(ctx, "uploads/1-a_x.txt")
	assert.ErrorIs(t, err, websync.ErrUpstream)

	var ue *websync.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusServiceUnavailable, ue.StatusCode)
	assert.Equal(t, "InternalError", ue.Code)
	assert.False(t, ue.Timeout())
}

func TestGateway_Ping(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.gateway.Ping(context.Background()))

	reqs := f.srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodHead, reqs[0].Method)
	assert.Equal(t, "/"+testBucket, reqs[0].Path)
	assert.True(t, reqs[0].Verified)
}

func TestGateway_PingWithoutCredentials(t *testing.T) {
	f := newFixture(t, withSigner(func(c *websync.SignerConfig) { c.Credentials = nil }))

	err := f.gateway.Ping(context.Background())

	assert.ErrorIs(t, err, websync.ErrConfiguration)
	assert.Empty(t, f.srv.Requests())
}
