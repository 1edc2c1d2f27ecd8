package catalog

import (
	"strconv"
	"time"

	"viral-search-service/internal/domain"
)

// errorResponse is the error envelope returned by the catalog.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type pageInfo struct {
	TotalResults   int64 `json:"totalResults"`
	ResultsPerPage int   `json:"resultsPerPage"`
}

// searchResponse is the body of GET /search.
type searchResponse struct {
	NextPageToken string       `json:"nextPageToken"`
	PageInfo      pageInfo     `json:"pageInfo"`
	Items         []searchItem `json:"items"`
}

type searchItem struct {
	ID      searchItemID `json:"id"`
	Snippet snippet      `json:"snippet"`
}

type searchItemID struct {
	Kind    string `json:"kind"`
	VideoID string `json:"videoId"`
}

type thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type snippet struct {
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	ChannelID    string               `json:"channelId"`
	ChannelTitle string               `json:"channelTitle"`
	CustomURL    string               `json:"customUrl"`
	PublishedAt  string               `json:"publishedAt"`
	Tags         []string             `json:"tags"`
	Thumbnails   map[string]thumbnail `json:"thumbnails"`
}

// videosResponse is the body of GET /videos.
type videosResponse struct {
	Items []videoResource `json:"items"`
}

type videoResource struct {
	ID             string          `json:"id"`
	Snippet        snippet         `json:"snippet"`
	Statistics     videoStatistics `json:"statistics"`
	ContentDetails contentDetails  `json:"contentDetails"`
}

// Counters arrive as decimal strings.
type videoStatistics struct {
	ViewCount    string `json:"viewCount"`
	LikeCount    string `json:"likeCount"`
	CommentCount string `json:"commentCount"`
}

type contentDetails struct {
	Duration string `json:"duration"`
}

// channelsResponse is the body of GET /channels.
type channelsResponse struct {
	Items []channelResource `json:"items"`
}

type channelResource struct {
	ID         string            `json:"id"`
	Snippet    snippet           `json:"snippet"`
	Statistics channelStatistics `json:"statistics"`
}

type channelStatistics struct {
	ViewCount       string `json:"viewCount"`
	SubscriberCount string `json:"subscriberCount"`
	VideoCount      string `json:"videoCount"`
}

// ToDomain converts a video resource to domain.Item.
func (v *videoResource) ToDomain() domain.Item {
	return domain.Item{
		ID:          v.ID,
		Title:       v.Snippet.Title,
		Description: v.Snippet.Description,
		PublisherID: v.Snippet.ChannelID,
		Tags:        v.Snippet.Tags,
		PublishedAt: parseTime(v.Snippet.PublishedAt),
		Thumbnail:   v.Snippet.thumbnail(),
		Metrics: domain.ItemMetrics{
			ViewCount:    parseCount(v.Statistics.ViewCount),
			LikeCount:    parseCount(v.Statistics.LikeCount),
			CommentCount: parseCount(v.Statistics.CommentCount),
		},
		DurationSeconds: ParseDuration(v.ContentDetails.Duration),
	}
}

// ToDomain converts a channel resource to domain.Publisher.
func (c *channelResource) ToDomain() domain.Publisher {
	return domain.Publisher{
		ID:          c.ID,
		Title:       c.Snippet.Title,
		Description: c.Snippet.Description,
		Handle:      c.Snippet.CustomURL,
		PublishedAt: parseTime(c.Snippet.PublishedAt),
		Thumbnail:   c.Snippet.thumbnail(),
		Metrics: domain.PublisherMetrics{
			ViewCount:       parseCount(c.Statistics.ViewCount),
			SubscriberCount: parseCount(c.Statistics.SubscriberCount),
			ItemCount:       parseCount(c.Statistics.VideoCount),
		},
	}
}

// thumbnail picks the medium rendition, falling back to high then default.
func (s *snippet) thumbnail() domain.Thumbnail {
	for _, size := range []string{"medium", "high", "default"} {
		if t, ok := s.Thumbnails[size]; ok && t.URL != "" {
			return domain.Thumbnail{URL: t.URL, Width: t.Width, Height: t.Height}
		}
	}

	return domain.Thumbnail{}
}

// parseCount reads a decimal counter. Missing or hidden counters are zero.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}

	return n
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}

	return t.UTC()
}
