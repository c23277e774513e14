package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/models"
	"github.com/ternarybob/findata/internal/services/urls"
)

type fakeTransport struct {
	mu        sync.Mutex
	cookies   []*http.Cookie
	body      string
	err       error
	calls     int
	lastURL   string
	encodings []models.TextEncoding
}

func (f *fakeTransport) Bootstrap(_ context.Context, rawURL string, encoding models.TextEncoding) ([]*http.Cookie, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastURL = rawURL
	f.encodings = append(f.encodings, encoding)
	return f.cookies, f.body, f.err
}

func (f *fakeTransport) Get(context.Context, string, []*http.Cookie, models.TextEncoding) (string, error) {
	return "", errors.New("not used")
}

var company = models.Company{LegalName: "ACME S.A.", TradingName: "ACME", CVMCode: 1234}

func filingFor(source models.Source) models.Filing {
	return models.Filing{
		Source:         source,
		Kind:           models.KindInterim,
		ReferenceDate:  time.Date(2010, 3, 31, 0, 0, 0, 0, time.UTC),
		SubmissionDate: time.Date(2010, 5, 15, 0, 0, 0, 0, time.UTC),
		SequenceNumber: 1,
	}
}

func newCache(transport *fakeTransport) *Cache {
	return NewCache(NewBootstrapper(transport, urls.NewBuilder(), arbor.NewLogger()), company)
}

func TestBootstrap_ReturnsCookiesAndBody(t *testing.T) {
	transport := &fakeTransport{cookies: []*http.Cookie{{Name: "s", Value: "1"}}, body: "<menu/>"}
	b := NewBootstrapper(transport, urls.NewBuilder(), arbor.NewLogger())

	s, body, err := b.Bootstrap(context.Background(), company, filingFor(models.SourceLegacy))
	require.NoError(t, err)
	assert.Equal(t, "<menu/>", body)
	assert.Equal(t, models.SourceLegacy, s.Source)
	assert.Len(t, s.Cookies, 1)
	assert.Contains(t, transport.lastURL, "FrDXW.asp")
	assert.Equal(t, []models.TextEncoding{models.EncodingWindows1252}, transport.encodings)
}

func TestBootstrap_EmptyCookiesIsSessionFault(t *testing.T) {
	transport := &fakeTransport{body: "x"}
	b := NewBootstrapper(transport, urls.NewBuilder(), arbor.NewLogger())

	_, _, err := b.Bootstrap(context.Background(), company, filingFor(models.SourceRegulator))
	var fault *models.SessionFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, models.SourceRegulator, fault.Source)
}

func TestBootstrap_TransportErrorIsSessionFault(t *testing.T) {
	transport := &fakeTransport{err: &models.TransportFault{URL: "u", Err: errors.New("refused")}}
	b := NewBootstrapper(transport, urls.NewBuilder(), arbor.NewLogger())

	_, _, err := b.Bootstrap(context.Background(), company, filingFor(models.SourceLegacy))
	assert.True(t, models.IsSessionFault(err))
}

func TestCache_LazyAndMemoizedPerSource(t *testing.T) {
	transport := &fakeTransport{cookies: []*http.Cookie{{Name: "s", Value: "1"}}}
	cache := newCache(transport)
	ctx := context.Background()

	first, err := cache.Get(ctx, filingFor(models.SourceLegacy))
	require.NoError(t, err)
	second, err := cache.Get(ctx, filingFor(models.SourceLegacy))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, transport.calls)

	regulator, err := cache.Get(ctx, filingFor(models.SourceRegulator))
	require.NoError(t, err)
	assert.Equal(t, models.SourceRegulator, regulator.Source)
	assert.Equal(t, 2, transport.calls, "sources never share a session")
}

func TestCache_ConcurrentGetBootstrapsOnce(t *testing.T) {
	transport := &fakeTransport{cookies: []*http.Cookie{{Name: "s", Value: "1"}}}
	cache := newCache(transport)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background(), filingFor(models.SourceRegulator))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, transport.calls)
}

func TestCache_RefreshReplacesSession(t *testing.T) {
	transport := &fakeTransport{cookies: []*http.Cookie{{Name: "s", Value: "1"}}, body: "menu"}
	cache := newCache(transport)
	ctx := context.Background()

	first, err := cache.Get(ctx, filingFor(models.SourceLegacy))
	require.NoError(t, err)

	transport.cookies = []*http.Cookie{{Name: "s", Value: "2"}}
	refreshed, body, err := cache.Refresh(ctx, filingFor(models.SourceLegacy))
	require.NoError(t, err)
	assert.Equal(t, "menu", body)
	assert.NotSame(t, first, refreshed)

	current, err := cache.Get(ctx, filingFor(models.SourceLegacy))
	require.NoError(t, err)
	assert.Equal(t, "2", current.Cookies[0].Value)
}

func TestCache_RemembersSessionFault(t *testing.T) {
	transport := &fakeTransport{}
	cache := newCache(transport)
	ctx := context.Background()

	_, err := cache.Get(ctx, filingFor(models.SourceLegacy))
	require.True(t, models.IsSessionFault(err))

	transport.cookies = []*http.Cookie{{Name: "s", Value: "1"}}
	_, err = cache.Get(ctx, filingFor(models.SourceLegacy))
	assert.True(t, models.IsSessionFault(err))
	_, _, err = cache.Refresh(ctx, filingFor(models.SourceLegacy))
	assert.True(t, models.IsSessionFault(err))
	assert.Equal(t, 1, transport.calls)
	assert.Error(t, cache.Fault(models.SourceLegacy))

	_, err = cache.Get(ctx, filingFor(models.SourceRegulator))
	assert.NoError(t, err, "a fault of one source does not affect the other")
}
