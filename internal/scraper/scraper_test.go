package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deusflow/newsrisk/internal/logger"
)

const articleHTML = `<html><head><title>Site | Haber</title></head><body>
<h1>İstanbul'da sel baskını</h1>
<article>
<p>Sağanak yağış nedeniyle birçok ilçede su baskınları yaşandı ve ekipler bölgeye sevk edildi.</p>
<p>Çerez politikamızı kabul ederek devam edebilirsiniz, lütfen okuyunuz.</p>
<p>Valilik vatandaşları zorunlu olmadıkça dışarı çıkmamaları konusunda uyardı.</p>
<p>Kısa</p>
<p>Meteoroloji yağışların yarın öğlene kadar sürmesinin beklendiğini açıkladı.</p>
</article>
</body></html>`

func TestExtractGenericArticle(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	art, err := New(logger.Discard()).Extract(context.Background(), srv.URL+"/haber/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Title != "İstanbul'da sel baskını" {
		t.Errorf("unexpected title %q", art.Title)
	}
	paragraphs := strings.Split(art.Content, "\n\n")
	if len(paragraphs) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d: %q", len(paragraphs), art.Content)
	}
	if strings.Contains(strings.ToLower(art.Content), "çerez") {
		t.Errorf("junk line was kept: %q", art.Content)
	}
}

func TestExtractHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := New(nil).Extract(context.Background(), srv.URL); err == nil || !strings.Contains(err.Error(), "410") {
		t.Fatalf("expected HTTP 410 error, got %v", err)
	}
}

func TestExtractEmptyPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><div>nothing here</div></body></html>"))
	}))
	defer srv.Close()

	_, err := New(nil).Extract(context.Background(), srv.URL)
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestCleanContentCapsLength(t *testing.T) {
	t.Parallel()

	para := strings.Repeat("Ekonomi haberleri piyasaları etkiledi. ", 10)
	content := strings.Repeat(para+"\n", 10)
	got := cleanContent(content)
	if len(got) >= targetContentLen {
		t.Fatalf("expected content under %d chars, got %d", targetContentLen, len(got))
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("content must end on a paragraph boundary: %q", got[len(got)-20:])
	}
}
