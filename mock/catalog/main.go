// Command catalog serves a small video catalog in the upstream wire format
// for local runs.
package main

import (
	_ "embed"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

//go:embed data.json
var jsonData []byte

type fixture struct {
	Channels []channel `json:"channels"`
	Videos   []video   `json:"videos"`
}

type channel struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CustomURL   string `json:"customUrl"`
	AgeDays     int    `json:"ageDays"`
	Subscribers int64  `json:"subscribers"`
	Views       int64  `json:"views"`
	Videos      int64  `json:"videos"`
}

type video struct {
	ID          string   `json:"id"`
	ChannelID   string   `json:"channelId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	AgeHours    int      `json:"ageHours"`
	Duration    string   `json:"duration"`
	Views       int64    `json:"views"`
	Likes       int64    `json:"likes"`
	Comments    int64    `json:"comments"`
}

func (v *video) matches(q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(v.Title), q) || strings.Contains(strings.ToLower(v.Description), q) {
		return true
	}
	for _, t := range v.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Publication times are relative to startup so scores stay meaningful.
var started = time.Now().UTC()

func stamp(ago time.Duration) string {
	return started.Add(-ago).Format(time.RFC3339)
}

func thumbnails(id string) map[string]any {
	return map[string]any{
		"default": map[string]any{"url": "https://img.example.com/" + id + "/default.jpg", "width": 120, "height": 90},
		"medium":  map[string]any{"url": "https://img.example.com/" + id + "/medium.jpg", "width": 320, "height": 180},
	}
}

func (v *video) snippet() map[string]any {
	return map[string]any{
		"title":       v.Title,
		"description": v.Description,
		"channelId":   v.ChannelID,
		"publishedAt": stamp(time.Duration(v.AgeHours) * time.Hour),
		"tags":        v.Tags,
		"thumbnails":  thumbnails(v.ID),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[Catalog] write error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
}

func ids(r *http.Request) map[string]bool {
	out := map[string]bool{}
	for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			out[id] = true
		}
	}
	return out
}

func main() {
	var data fixture
	if err := json.Unmarshal(jsonData, &data); err != nil {
		log.Fatalf("[Catalog] bad fixture: %v", err)
	}

	http.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if strings.TrimSpace(q) == "" {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}

		maxResults, err := strconv.Atoi(r.URL.Query().Get("maxResults"))
		if err != nil || maxResults < 1 {
			maxResults = 5
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))

		var hits []video
		for _, v := range data.Videos {
			if v.matches(q) {
				hits = append(hits, v)
			}
		}

		items := []map[string]any{}
		for i := offset; i < len(hits) && i < offset+maxResults; i++ {
			items = append(items, map[string]any{
				"id":      map[string]any{"kind": "youtube#video", "videoId": hits[i].ID},
				"snippet": hits[i].snippet(),
			})
		}

		body := map[string]any{
			"pageInfo": map[string]any{"totalResults": len(hits), "resultsPerPage": maxResults},
			"items":    items,
		}
		if offset+maxResults < len(hits) {
			body["nextPageToken"] = strconv.Itoa(offset + maxResults)
		}

		writeJSON(w, http.StatusOK, body)
		log.Printf("[Catalog] %s %s q=%q - %d hits", r.Method, r.URL.Path, q, len(items))
	})

	http.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		want := ids(r)
		items := []map[string]any{}
		for _, v := range data.Videos {
			if !want[v.ID] {
				continue
			}
			items = append(items, map[string]any{
				"id":      v.ID,
				"snippet": v.snippet(),
				"statistics": map[string]any{
					"viewCount":    strconv.FormatInt(v.Views, 10),
					"likeCount":    strconv.FormatInt(v.Likes, 10),
					"commentCount": strconv.FormatInt(v.Comments, 10),
				},
				"contentDetails": map[string]any{"duration": v.Duration},
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	})

	http.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		want := ids(r)
		items := []map[string]any{}
		for _, c := range data.Channels {
			if !want[c.ID] {
				continue
			}
			items = append(items, map[string]any{
				"id": c.ID,
				"snippet": map[string]any{
					"title":       c.Title,
					"customUrl":   c.CustomURL,
					"publishedAt": stamp(time.Duration(c.AgeDays) * 24 * time.Hour),
					"thumbnails":  thumbnails(c.ID),
				},
				"statistics": map[string]any{
					"viewCount":       strconv.FormatInt(c.Views, 10),
					"subscriberCount": strconv.FormatInt(c.Subscribers, 10),
					"videoCount":      strconv.FormatInt(c.Videos, 10),
				},
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	log.Println("Mock catalog running on :8081")
	server := &http.Server{
		Addr:         ":8081",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
