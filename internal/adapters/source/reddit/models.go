package reddit

import (
	"encoding/json"
	"math"
	"time"

	perr "invitehound/internal/platform/errors"
	"invitehound/internal/services/monitor/domain"
)

// The thread's .json view is a two-element array: the post listing and the
// comment listing. Only the second matters here

type listing struct {
	Data struct {
		Children []child `json:"children"`
	} `json:"data"`
}

type child struct {
	Kind string  `json:"kind"`
	Data comment `json:"data"`
}

type comment struct {
	ID         string  `json:"id"`
	Body       string  `json:"body"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
}

// parseListing converts the raw thread JSON into source items, newest first,
// capped at limit. Non-comment children ("more" stubs) are skipped
func parseListing(raw []byte, limit int) ([]domain.SourceItem, error) {
	var pages []listing
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "reddit listing decode failed")
	}
	if len(pages) < 2 {
		return nil, perr.Newf(perr.ErrorCodeUnknown, "reddit listing has %d pages, want 2", len(pages))
	}

	var items []domain.SourceItem
	for _, ch := range pages[1].Data.Children {
		if ch.Kind != "t1" || ch.Data.ID == "" {
			continue
		}
		items = append(items, domain.SourceItem{
			ID:        ch.Data.ID,
			Body:      ch.Data.Body,
			CreatedAt: time.Unix(int64(math.Floor(ch.Data.CreatedUTC)), 0).UTC(),
			Permalink: "https://reddit.com" + ch.Data.Permalink,
			Images:    imageRefs(ch.Data.Body),
			Source:    domain.SourceReddit,
		})
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}
