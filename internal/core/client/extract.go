package client

import (
	"encoding/json"
)

// The typed decoding here is deliberately thin: just the fields the crawl
// needs to route on. Everything else rides along untouched in Raw.

type contentEnvelope struct {
	ID       flexID `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Question *struct {
		Title string `json:"title"`
	} `json:"question"`
}

func contentFromObject(raw json.RawMessage) (ContentItem, bool) {
	var env contentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ContentItem{}, false
	}
	if env.ID == "" {
		return ContentItem{}, false
	}
	item := ContentItem{
		ID:    env.ID.String(),
		Type:  env.Type,
		Title: env.Title,
		Raw:   raw,
	}
	if item.Title == "" && env.Question != nil {
		item.Title = env.Question.Title
	}
	return item, true
}

// extractSearchContents pulls content records out of a search page. Search
// results interleave ad cards and knowledge widgets with real content, so a
// structurally valid page can extract to nothing.
func extractSearchContents(pg *Page) ([]ContentItem, error) {
	var out []ContentItem
	for _, raw := range pg.Data {
		var entry struct {
			Type   string          `json:"type"`
			Object json.RawMessage `json:"object"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.Type != "search_result" || entry.Object == nil {
			continue
		}
		if item, ok := contentFromObject(entry.Object); ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// extractCreatorContents decodes a creator listing page, whose data array
// holds the content objects directly.
func extractCreatorContents(pg *Page) ([]ContentItem, error) {
	var out []ContentItem
	for _, raw := range pg.Data {
		if item, ok := contentFromObject(raw); ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// extractFeedAnswers decodes a question feed page, where each entry wraps
// the answer in a target field.
func extractFeedAnswers(pg *Page) ([]ContentItem, error) {
	var out []ContentItem
	for _, raw := range pg.Data {
		var entry struct {
			Target json.RawMessage `json:"target"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.Target == nil {
			continue
		}
		if item, ok := contentFromObject(entry.Target); ok {
			if item.Type == "" {
				item.Type = ContentAnswer
			}
			out = append(out, item)
		}
	}
	return out, nil
}

// extractComments decodes a comment page for the given parent content.
func extractComments(contentID string, pg *Page) ([]CommentItem, error) {
	var out []CommentItem
	for _, raw := range pg.Data {
		var env struct {
			ID         flexID `json:"id"`
			Content    string `json:"content"`
			ChildCount int    `json:"child_comment_count"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if env.ID == "" {
			continue
		}
		out = append(out, CommentItem{
			ID:         env.ID.String(),
			ContentID:  contentID,
			Content:    env.Content,
			ChildCount: env.ChildCount,
			Raw:        raw,
		})
	}
	return out, nil
}
