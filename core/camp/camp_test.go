package camp

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/summercamps/core"
)

func completeCamp() Camp {
	return Camp{
		Description:        strings.Repeat("a", 101),
		ImageURL:           "https://cdn.example.com/a.jpg",
		VideoURL:           "https://cdn.example.com/a.mp4",
		Gallery:            core.StringList{"https://cdn.example.com/b.jpg"},
		Highlights:         core.StringList{"Canoeing"},
		Amenities:          core.StringList{"Pool"},
		FAQs:               core.JSONColumn[[]FAQ]{V: []FAQ{{Question: "Food?", Answer: "Yes"}}},
		CancellationPolicy: "Free until June",
		RefundPolicy:       "Full refund",
		SafetyInfo:         "First aiders on site",
		Requirements:       core.StringList{"Swim 25m"},
		WhatToBring:        core.StringList{"Sleeping bag"},
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		camp      func() Camp
		wantScore int
		wantLabel Quality
		missing   []string
	}{
		{
			name:      "empty camp",
			camp:      func() Camp { return Camp{} },
			wantScore: 0,
			wantLabel: QualityIncomplete,
		},
		{
			name:      "complete camp",
			camp:      completeCamp,
			wantScore: 100,
			wantLabel: QualityExcellent,
			missing:   []string{},
		},
		{
			name: "description of exactly 100 characters does not count",
			camp: func() Camp {
				c := completeCamp()
				c.Description = strings.Repeat("é", 100)
				return c
			},
			wantScore: 92,
			wantLabel: QualityExcellent,
			missing:   []string{"description"},
		},
		{
			name: "blank text fields do not count",
			camp: func() Camp {
				c := completeCamp()
				c.SafetyInfo = "   "
				c.RefundPolicy = ""
				c.VideoURL = "\t"
				return c
			},
			wantScore: 75,
			wantLabel: QualityGood,
			missing:   []string{"video", "refund_policy", "safety_info"},
		},
		{
			name: "half done",
			camp: func() Camp {
				c := completeCamp()
				c.Gallery, c.Highlights, c.Amenities = nil, nil, core.StringList{}
				c.FAQs = core.JSONColumn[[]FAQ]{}
				c.Requirements, c.WhatToBring = nil, nil
				return c
			},
			wantScore: 50,
			wantLabel: QualityBasic,
			missing:   []string{"gallery", "highlights", "amenities", "faqs", "requirements", "what_to_bring"},
		},
		{
			name:      "one item",
			camp:      func() Camp { return Camp{ImageURL: "x.jpg"} },
			wantScore: 8,
			wantLabel: QualityIncomplete,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.camp())
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.Equal(t, 12, got.Total)
			assert.Equal(t, 12-len(got.Missing), got.Completed)
			if tt.missing != nil {
				assert.Equal(t, tt.missing, got.Missing)
			}
		})
	}
}

func TestLabelFor(t *testing.T) {
	tests := []struct {
		score int
		want  Quality
	}{
		{100, QualityExcellent}, {90, QualityExcellent}, {89, QualityGood}, {70, QualityGood},
		{69, QualityBasic}, {50, QualityBasic}, {49, QualityIncomplete}, {0, QualityIncomplete},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LabelFor(tt.score), "score %d", tt.score)
	}
}

type repoFake struct {
	camps    map[string]Camp
	feedback map[string][]Feedback
}

func newRepoFake(camps ...Camp) *repoFake {
	r := &repoFake{camps: make(map[string]Camp), feedback: make(map[string][]Feedback)}
	for _, c := range camps {
		r.camps[c.ID] = c
	}
	return r
}

func (r *repoFake) QueryCamps(_ context.Context, filter QueryFilter) ([]Camp, int, error) {
	var res []Camp
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		c, ok := r.camps[id]
		if !ok {
			continue
		}
		if len(filter.Statuses) > 0 && c.Status != filter.Statuses[0] {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) {
			continue
		}
		res = append(res, c)
	}
	return res, len(res), nil
}

func (r *repoFake) GetCamp(_ context.Context, filter GetFilter) (Camp, error) {
	for _, c := range r.camps {
		if (filter.ID != "" && c.ID == filter.ID) || (filter.ID == "" && c.Slug == filter.Slug) {
			return c, nil
		}
	}
	return Camp{}, core.ErrNotFound
}

func (r *repoFake) ApprovedFeedback(_ context.Context, campID string) ([]Feedback, error) {
	return r.feedback[campID], nil
}

func (r *repoFake) SetCampStatus(_ context.Context, id string, status Status, updatedAt time.Time) (Camp, error) {
	c, ok := r.camps[id]
	if !ok {
		return Camp{}, core.ErrNotFound
	}
	c.Status, c.UpdatedAt = status, updatedAt
	r.camps[id] = c
	return c, nil
}

func (r *repoFake) SetCampMedia(_ context.Context, c Camp) (Camp, error) {
	r.camps[c.ID] = c
	return c, nil
}

func (r *repoFake) AdjustEnrolledCount(_ context.Context, id string, delta int) error {
	c := r.camps[id]
	c.EnrolledCount += delta
	r.camps[id] = c
	return nil
}

type blobFake struct {
	puts    map[string]string
	deleted []string
}

func (b *blobFake) Put(_ context.Context, key string, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if b.puts == nil {
		b.puts = make(map[string]string)
	}
	b.puts[key] = contentType + ":" + string(data)
	return "/media/" + key, nil
}

func (b *blobFake) Delete(_ context.Context, key string) error {
	b.deleted = append(b.deleted, key)
	return nil
}

func fixtures() *repoFake {
	lake := completeCamp()
	lake.ID, lake.Name, lake.Slug, lake.Status = "c1", "Lake Adventure", "lake-adventure", StatusPublished
	lake.Price, lake.Currency, lake.Capacity, lake.EnrolledCount = 100, "USD", 10, 4
	lake.OrganisationName = "Outdoors Ltd"

	art := Camp{ID: "c2", Name: "Art Studio", Slug: "art-studio", Status: StatusPublished, Price: 79, Currency: "GBP"}
	draft := Camp{ID: "c3", Name: "Secret Draft", Slug: "secret-draft", Status: StatusDraft, Price: 10, Currency: "USD"}
	basic := completeCamp()
	basic.ID, basic.Name, basic.Slug, basic.Status = "c4", "Coding Basics", "coding-basics", StatusPendingReview
	basic.VideoURL, basic.Gallery, basic.FAQs, basic.SafetyInfo = "", nil, core.JSONColumn[[]FAQ]{}, ""

	r := newRepoFake(lake, art, draft, basic)
	r.feedback["c1"] = []Feedback{{Rating: 5}, {Rating: 4}, {Rating: 4}}
	return r
}

func TestService_ListPublished(t *testing.T) {
	svc := NewService(fixtures(), &blobFake{}, core.NopLogger())

	listings, count, err := svc.ListPublished(context.Background(), QueryFilter{}, "GBP")
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Len(t, listings, 2)

	assert.Equal(t, "lake-adventure", listings[0].Slug)
	assert.Equal(t, 79.0, listings[0].DisplayPrice)
	assert.Equal(t, "GBP", listings[0].DisplayCurrency)
	assert.Equal(t, "£79.00", listings[0].FormattedPrice)
	assert.Equal(t, 6, listings[0].SpotsLeft)

	assert.Equal(t, 79.0, listings[1].DisplayPrice, "same currency is not converted")
	assert.Equal(t, -1, listings[1].SpotsLeft, "no capacity means unlimited places")

	listings, _, err = svc.ListPublished(context.Background(), QueryFilter{}, "XXX")
	require.NoError(t, err)
	assert.Equal(t, "USD", listings[0].DisplayCurrency, "unknown display currency keeps the camp currency")
}

func TestService_GetPublished(t *testing.T) {
	svc := NewService(fixtures(), &blobFake{}, core.NopLogger())
	ctx := context.Background()

	detail, err := svc.GetPublished(ctx, " Lake-Adventure ", "USD")
	require.NoError(t, err)
	assert.Equal(t, "Outdoors Ltd", detail.OrganisationName)
	assert.Equal(t, 3, detail.ReviewCount)
	assert.Equal(t, 4.3, detail.AverageRating)

	detail, err = svc.GetPublished(ctx, "art-studio", "USD")
	require.NoError(t, err)
	assert.Zero(t, detail.AverageRating)

	_, err = svc.GetPublished(ctx, "secret-draft", "USD")
	assert.True(t, errors.Is(err, core.ErrNotFound), "drafts are not public")

	_, err = svc.GetPublished(ctx, "nope", "USD")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestService_Manage(t *testing.T) {
	svc := NewService(fixtures(), &blobFake{}, core.NopLogger())
	ctx := context.Background()

	all, count, err := svc.Manage(ctx, AdminFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, 100, all[0].Completeness.Score)

	basic, count, err := svc.Manage(ctx, AdminFilter{Quality: QualityBasic})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	assert.Equal(t, "coding-basics", basic[0].Slug)
	assert.Equal(t, 67, basic[0].Completeness.Score)

	page, count, err := svc.Manage(ctx, AdminFilter{Pagination: core.Pagination{Page: 2, PerPage: 3}})
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Len(t, page, 1)

	page, _, err = svc.Manage(ctx, AdminFilter{Pagination: core.Pagination{Page: 9, PerPage: 3}})
	require.NoError(t, err)
	assert.Empty(t, page)

	_, _, err = svc.Manage(ctx, AdminFilter{Status: "bogus"})
	assert.IsType(t, &core.ValidationError{}, err)

	_, _, err = svc.Manage(ctx, AdminFilter{Quality: "superb"})
	assert.IsType(t, &core.ValidationError{}, err)
}

func TestService_ExportCSV(t *testing.T) {
	svc := NewService(fixtures(), &blobFake{}, core.NopLogger())

	out, err := svc.ExportCSV(context.Background(), AdminFilter{Status: string(StatusPublished)})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, "Lake Adventure", records[1][1])
	assert.Equal(t, "Outdoors Ltd", records[1][3])
	assert.Equal(t, "100", records[1][13])
	assert.Equal(t, "excellent", records[1][14])
	assert.Equal(t, "incomplete", records[2][14])
}

func TestService_SetStatus(t *testing.T) {
	repo := fixtures()
	svc := NewService(repo, &blobFake{}, core.NopLogger())
	ctx := context.Background()

	c, err := svc.SetStatus(ctx, "c4", StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, c.Status)
	assert.Equal(t, StatusPublished, repo.camps["c4"].Status)

	_, err = svc.SetStatus(ctx, "c4", "deleted")
	assert.IsType(t, &core.ValidationError{}, err)

	_, err = svc.SetStatus(ctx, "missing", StatusArchived)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestService_UploadMedia(t *testing.T) {
	repo := fixtures()
	blobs := &blobFake{}
	svc := NewService(repo, blobs, core.NopLogger())
	ctx := context.Background()

	c, err := svc.UploadMedia(ctx, "c2", "Cover.JPG", "", strings.NewReader("img"))
	require.NoError(t, err)
	require.Len(t, c.Gallery, 1)
	assert.Equal(t, c.Gallery[0], c.ImageURL, "first image becomes the main image")
	assert.True(t, strings.HasPrefix(c.ImageURL, "/media/camps/c2/"))
	assert.True(t, strings.HasSuffix(c.ImageURL, ".jpg"))

	c, err = svc.UploadMedia(ctx, "c2", "second.png", "image/png", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Len(t, c.Gallery, 2)
	assert.NotEqual(t, c.Gallery[1], c.ImageURL)

	c, err = svc.UploadMedia(ctx, "c2", "tour.mp4", "video/mp4", strings.NewReader("vid"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(c.VideoURL, ".mp4"))
	assert.Len(t, c.Gallery, 2)
	assert.Len(t, blobs.puts, 3)

	_, err = svc.UploadMedia(ctx, "c2", "notes.txt", "text/plain", strings.NewReader("x"))
	assert.IsType(t, &core.ValidationError{}, err)

	_, err = svc.UploadMedia(ctx, "missing", "a.png", "image/png", strings.NewReader("x"))
	assert.True(t, errors.Is(err, core.ErrNotFound))
}
