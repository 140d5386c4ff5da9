package barcode

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResults = `<html><body>
<table class="randomBarcodes">
  <tr><th>№</th><th>Штрихкод</th><th>Наименование</th><th>Ед.</th><th>Рейтинг</th></tr>
  <tr><td>1</td><td>4601234567890</td><td> Аспирин Кардио 100 мг </td><td>шт</td><td>5</td></tr>
  <tr><td>2</td><td>4601234567890</td><td>Аспирин</td><td>шт</td><td>3</td></tr>
  <tr><td>3</td><td>4601234567890</td><td>Аспирин</td><td>шт</td><td>1</td></tr>
  <tr><td>4</td><td>4601234567890</td><td></td><td>шт</td><td>0</td></tr>
  <tr><td>short row</td></tr>
</table>
<table class="other"><tr><td>1</td><td>2</td><td>Не отсюда</td></tr></table>
</body></html>`

func TestExtractNames(t *testing.T) {
	t.Parallel()
	names, err := ExtractNames(strings.NewReader(searchResults))
	require.NoError(t, err)
	assert.Equal(t, []string{"Аспирин", "Аспирин Кардио 100 мг"}, names)
}

func TestExtractNames_NoTable(t *testing.T) {
	t.Parallel()
	names, err := ExtractNames(strings.NewReader("<html><body>Ничего не найдено</body></html>"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestScraper_ResolveNames(t *testing.T) {
	t.Parallel()
	seen := make(chan [2]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- [2]string{r.URL.Path, r.UserAgent()}
		_, _ = io.WriteString(w, searchResults)
	}))
	defer srv.Close()

	s := NewScraper(srv.URL+"/", "", time.Second)
	names, err := s.ResolveNames(context.Background(), "4601234567890")
	require.NoError(t, err)
	assert.Len(t, names, 2)
	req := <-seen
	assert.Equal(t, "/barcode/RU/barcode-4601234567890/Поиск.htm", req[0])
	assert.Equal(t, DefaultUserAgent, req[1])
}

func TestScraper_Errors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "slow") {
			time.Sleep(200 * time.Millisecond)
		}
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewScraper(srv.URL, "test-agent", time.Second)
	_, err := s.ResolveNames(context.Background(), "123")
	assert.ErrorContains(t, err, "unexpected status 503")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.ResolveNames(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLookup_ResolveNames(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, searchResults)
	}))
	defer srv.Close()

	l := NewLookup(NewDecoder(), NewScraper(srv.URL, "", time.Second), slog.New(slog.NewTextHandler(io.Discard, nil)))
	names, err := l.ResolveNames(context.Background(), "4601234567890")
	require.NoError(t, err)
	assert.Equal(t, "Аспирин", names[0])
}
