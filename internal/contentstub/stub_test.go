package contentstub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/ccconform/internal/contentcloud"
	"github.com/gauthierbraillon/ccconform/pkg/token"
)

func newStub(t *testing.T, opts Options) (*httptest.Server, *Server, string) {
	t.Helper()
	keyPath := filepath.Join(t.TempDir(), "key.pem")
	key, err := token.GenerateKeyFile(keyPath)
	require.NoError(t, err)
	raw, err := token.NewProvider(keyPath).Generate(context.Background())
	require.NoError(t, err)

	opts.PublicKey = &key.PublicKey
	stub := New(opts)
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)
	return server, stub, raw
}

func TestStub_RequiresValidBearer(t *testing.T) {
	server, _, raw := newStub(t, Options{})
	client := contentcloud.NewClient()
	url := server.URL + Path

	tests := []struct {
		name string
		auth contentcloud.Auth
		want int
	}{
		{"missing", contentcloud.NoAuth(), http.StatusUnauthorized},
		{"malformed", contentcloud.Bearer("123.123.123"), http.StatusUnauthorized},
		{"empty", contentcloud.Bearer(""), http.StatusUnauthorized},
		{"valid", contentcloud.Bearer(raw), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Get(context.Background(), url, tt.auth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestStub_ServesPagesWithLinks(t *testing.T) {
	for _, style := range []LinkStyle{LinkAbsolute, LinkRelative, LinkRFC8288} {
		server, stub, raw := newStub(t, Options{
			Pages:     []string{PageOf(ValidRecord("1")), PageOf(ValidRecord("2"), ValidRecord("3"))},
			LinkStyle: style,
		})

		client := contentcloud.NewClient()
		first, err := client.FetchPage(context.Background(), server.URL+Path, raw)
		require.NoError(t, err)
		require.Len(t, first.Records, 1)
		assert.Equal(t, server.URL+Path+"?page=1", first.Next)

		second, err := client.FetchPage(context.Background(), first.Next, raw)
		require.NoError(t, err)
		assert.Len(t, second.Records, 2)
		assert.Empty(t, second.Next, "last page should carry no link")

		assert.Equal(t, []string{Path, Path + "?page=1"}, stub.Requests())
	}
}

func TestStub_ContentTypeDefaultsToCompliantValue(t *testing.T) {
	server, _, raw := newStub(t, Options{})

	resp, err := contentcloud.NewClient().Get(context.Background(), server.URL+Path, contentcloud.Bearer(raw))
	require.NoError(t, err)
	assert.Equal(t, contentcloud.ResponseContentType, resp.ContentType())
}

func TestPageOf_EmptyIsArray(t *testing.T) {
	assert.Equal(t, "[]", PageOf())
}
