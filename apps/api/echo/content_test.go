package echoapi_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/summercamps/apps/api/echo"
	"github.com/trezcool/summercamps/core/blog"
	"github.com/trezcool/summercamps/core/currency"
	"github.com/trezcool/summercamps/core/seo"
	testutil "github.com/trezcool/summercamps/tests"
)

func postSlugs(posts []blog.Post) []string {
	slugs := make([]string, 0, len(posts))
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
	}
	return slugs
}

func Test_blogApi(t *testing.T) {
	a := newApp(t)
	now := time.Now().UTC()

	authorID := testutil.Insert(t, a.store, "blog_authors", map[string]interface{}{"name": "Ann Writer", "slug": "ann-writer"})
	tipsID := testutil.Insert(t, a.store, "blog_categories", map[string]interface{}{"name": "Tips", "slug": "tips"})
	newsID := testutil.Insert(t, a.store, "blog_categories", map[string]interface{}{"name": "News", "slug": "news"})
	packingID := testutil.Insert(t, a.store, "blog_tags", map[string]interface{}{"name": "Packing", "slug": "packing"})

	post := func(title string, categoryID string, status string, publishedAt time.Time) string {
		return testutil.Insert(t, a.store, "blog_posts", map[string]interface{}{
			"title": title, "slug": strings.ToLower(strings.ReplaceAll(title, " ", "-")),
			"excerpt": "About " + title, "content": strings.Repeat("word ", 450),
			"author_id": authorID, "category_id": categoryID, "status": status, "published_at": publishedAt,
		})
	}
	packingPost := post("What To Pack", tipsID, "published", now.Add(-1*time.Hour))
	post("First Week Tips", tipsID, "published", now.Add(-2*time.Hour))
	post("Season Opening", newsID, "published", now.Add(-3*time.Hour))
	post("Unfinished Draft", tipsID, "draft", now)
	testutil.Insert(t, a.store, "blog_post_tags", map[string]interface{}{"post_id": packingPost, "tag_id": packingID})

	tests := []struct {
		name string
		path string
		want []string
	}{
		{name: "published, newest first", path: "/v1/blog/posts", want: []string{"what-to-pack", "first-week-tips", "season-opening"}},
		{name: "by category", path: "/v1/blog/posts?category=NEWS", want: []string{"season-opening"}},
		{name: "by tag", path: "/v1/blog/posts?tag=packing", want: []string{"what-to-pack"}},
		{name: "search", path: "/v1/blog/posts?search=week", want: []string{"first-week-tips"}},
		{name: "paginated", path: "/v1/blog/posts?page=2&per_page=2", want: []string{"season-opening"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(newRequest(http.MethodGet, tt.path))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var page struct {
				Data  []blog.Post `json:"data"`
				Count int         `json:"count"`
			}
			decode(t, rec, &page)
			assert.Equal(t, tt.want, postSlugs(page.Data))
			for _, p := range page.Data {
				assert.Empty(t, p.Content)
			}
		})
	}

	runHTTPTests(t, a, []httpTest{
		{name: "draft is hidden", path: "/v1/blog/posts/unfinished-draft", wantCode: http.StatusNotFound},
		{name: "unknown post", path: "/v1/blog/posts/lol/related", wantCode: http.StatusNotFound},
	})

	rec := a.do(newRequest(http.MethodGet, "/v1/blog/posts/what-to-pack"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p blog.Post
	decode(t, rec, &p)
	assert.Equal(t, 1, p.ViewCount)
	assert.Equal(t, 3, p.ReadingTime)
	assert.Equal(t, "Ann Writer", p.AuthorName)
	require.Len(t, p.Tags, 1)
	assert.Equal(t, "packing", p.Tags[0].Slug)

	rec = a.do(newRequest(http.MethodGet, "/v1/blog/posts/what-to-pack/related"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var related []blog.Post
	decode(t, rec, &related)
	assert.Equal(t, []string{"first-week-tips"}, postSlugs(related))

	rec = a.do(newRequest(http.MethodGet, "/v1/blog/categories"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var categories []blog.Category
	decode(t, rec, &categories)
	require.Len(t, categories, 2)
	assert.Equal(t, "News", categories[0].Name)
	assert.Equal(t, 1, categories[0].PostCount)
	assert.Equal(t, 2, categories[1].PostCount)

	rec = a.do(newRequest(http.MethodGet, "/v1/blog/authors"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var authors []blog.Author
	decode(t, rec, &authors)
	require.Len(t, authors, 1)
	assert.Equal(t, 3, authors[0].PostCount)

	rec = a.do(newRequest(http.MethodGet, "/v1/blog/tags"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tags []blog.Tag
	decode(t, rec, &tags)
	require.Len(t, tags, 1)
	assert.Equal(t, 1, tags[0].PostCount)
}

func Test_pageApi(t *testing.T) {
	a := newApp(t)
	orgID := testutil.CreateOrganisation(t, a.store, "Lakeside Adventures", "hello@lakeside.test")
	testutil.CreateCamp(t, a.store, orgID, "Sailing Week", map[string]interface{}{
		"category": "Sailing", "location": "Lake Tahoe", "min_age": 9, "max_age": 12, "price": 500,
	})
	testutil.CreateCamp(t, a.store, orgID, "Hidden Draft", map[string]interface{}{
		"category": "Hiking", "location": "Denver", "status": "draft",
	})
	adminToken := a.admin(t)

	runHTTPTests(t, a, []httpTest{
		{name: "admin required", method: http.MethodPost, path: "/v1/admin/pages/generate", wantCode: http.StatusUnauthorized},
		{name: "not generated yet", path: "/v1/pages/summer-camps-in-lake-tahoe", wantCode: http.StatusNotFound},
	})

	rec := a.do(newAuthRequest(http.MethodPost, "/v1/admin/pages/generate", adminToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res seo.GenerateResult
	decode(t, rec, &res)
	assert.Equal(t, []string{
		"summer-camps-in-lake-tahoe",
		"sailing-camps",
		"sailing-camps-in-lake-tahoe",
		"summer-camps-for-9-12-year-olds",
	}, res.Created)
	assert.Empty(t, res.Updated)

	// regenerating updates in place
	rec = a.do(newAuthRequest(http.MethodPost, "/v1/admin/pages/generate", adminToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &res)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Updated, 4)

	rec = a.do(newRequest(http.MethodGet, "/v1/pages/sailing-camps-in-lake-tahoe?currency=EUR"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page seo.PageDetail
	decode(t, rec, &page)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Camps, 1)
	assert.Equal(t, "sailing-week", page.Camps[0].Slug)
	assert.Equal(t, "EUR", page.Camps[0].DisplayCurrency)
	assert.InDelta(t, 460, page.Camps[0].DisplayPrice, 1e-9)

	assert.Equal(t, http.StatusNotFound, a.do(newRequest(http.MethodGet, "/v1/pages/hiking-camps")).Code)
}

func Test_currencyApi(t *testing.T) {
	a := newApp(t)

	runHTTPTests(t, a, []httpTest{
		{
			name: "convert", path: "/v1/currencies/convert?amount=100&from=usd&to=gbp",
			wantData: marshalObj(t, ConversionResponse{Amount: 100, From: "USD", To: "GBP", Result: 79, Formatted: "£79.00"}),
		},
		{
			name: "convert to a zero-decimal currency", path: "/v1/currencies/convert?amount=10&from=USD&to=JPY",
			wantData: marshalObj(t, ConversionResponse{Amount: 10, From: "USD", To: "JPY", Result: 1495, Formatted: "¥1,495"}),
		},
		{name: "amount required", path: "/v1/currencies/convert?to=EUR", wantCode: http.StatusBadRequest},
		{name: "unknown currency", path: "/v1/currencies/convert?amount=1&to=XXX", wantCode: http.StatusBadRequest},
		{name: "detect by locale", path: "/v1/currencies/detect?locale=pt_BR", wantData: marshalObj(t, CurrencyPreference{Currency: "BRL"})},
		{name: "detect default", path: "/v1/currencies/detect", wantData: marshalObj(t, CurrencyPreference{Currency: "USD"})},
		{
			name: "unsupported preference", method: http.MethodPut, path: "/v1/currencies/preference",
			body: marshalObj(t, CurrencyPreference{Currency: "XXX"}), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"currency": "unsupported currency"}),
		},
	})

	req := newRequest(http.MethodGet, "/v1/currencies/detect")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	rec := a.do(req)
	assert.JSONEq(t, `{"currency":"EUR"}`, rec.Body.String())

	rec = a.do(newRequest(http.MethodPut, "/v1/currencies/preference", marshalObj(t, CurrencyPreference{Currency: "chf"})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"currency":"CHF"}`, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, currency.PreferenceCookie, cookies[0].Name)
	assert.Equal(t, "CHF", cookies[0].Value)

	req = newRequest(http.MethodGet, "/v1/currencies")
	req.AddCookie(cookies[0])
	rec = a.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list CurrenciesResponse
	decode(t, rec, &list)
	assert.Equal(t, "CHF", list.Preferred)
	assert.Len(t, list.Currencies, 20)
	assert.Equal(t, "AED", list.Currencies[0].Code)
}
