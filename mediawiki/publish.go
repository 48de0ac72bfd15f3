package mediawiki

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Edit is a pending article update together with the revision the draft
// was based on.
type Edit struct {
	Title          string
	BaseRevisionID string
	Text           string
	Summary        string
	Minor          bool
}

// PublishResult is the outcome of a successful publish.
type PublishResult struct {
	NewRevisionID string
	// NoChange reports that the submitted text was identical to the
	// current article, so no new revision was created.
	NoChange bool
}

type editResponse struct {
	Error *apiError `json:"error"`
	Edit  struct {
		Result   string `json:"result"`
		NewRevID int64  `json:"newrevid"`
		NoChange bool   `json:"nochange"`
	} `json:"edit"`
}

// CheckAndPublish submits an edit guarded by an optimistic revision check:
// the article's current revision is compared against the edit's base
// revision first, and the submit carries baserevid so the server rejects
// any writer that slips in between the check and the save.
//
// An empty BaseRevisionID means the draft is a new article: the revision
// check is skipped and the edit is sent with createonly, so the server
// refuses if the page sprang into existence meanwhile.
//
// Error classification:
//   - *EditConflictError: base revision stale (detected locally or by the
//     server); nothing was written.
//   - *PublishRejectedError: the server refused the edit for another reason.
//   - *PublishUnknownError: the submit request failed in transit; the edit
//     may have been applied. Verify remote state before retrying.
//
// Failures before the submit (revision check, token fetch) are returned
// as-is: no write was attempted, so the caller may retry freely.
func (c *Client) CheckAndPublish(ctx context.Context, e Edit) (*PublishResult, error) {
	if e.BaseRevisionID != "" {
		current, err := c.CurrentRevision(ctx, e.Title)
		if err != nil {
			return nil, fmt.Errorf("revision check: %w", err)
		}
		if current != e.BaseRevisionID {
			return nil, &EditConflictError{
				Title:           e.Title,
				BaseRevisionID:  e.BaseRevisionID,
				CurrentRevision: current,
			}
		}
	}

	token, err := c.fetchToken(ctx, "csrf")
	if err != nil {
		return nil, fmt.Errorf("edit token: %w", err)
	}

	params := url.Values{
		"action":        {"edit"},
		"format":        {"json"},
		"formatversion": {"2"},
		"title":         {e.Title},
		"text":          {e.Text},
		"summary":       {e.Summary},
		"token":         {token},
	}
	if e.BaseRevisionID != "" {
		params.Set("baserevid", e.BaseRevisionID)
		params.Set("nocreate", "1")
	} else {
		params.Set("createonly", "1")
	}
	if e.Minor {
		params.Set("minor", "1")
	}

	var resp editResponse
	if err := c.postForm(ctx, params, &resp); err != nil {
		// The request may have reached the server; outcome is indeterminate.
		return nil, &PublishUnknownError{Cause: err}
	}
	if resp.Error != nil {
		if resp.Error.Code == "editconflict" {
			return nil, &EditConflictError{Title: e.Title, BaseRevisionID: e.BaseRevisionID}
		}
		return nil, &PublishRejectedError{Code: resp.Error.Code, Info: resp.Error.Info}
	}
	if resp.Edit.Result != "Success" {
		return nil, &PublishRejectedError{Code: resp.Edit.Result, Info: "edit not saved"}
	}

	res := &PublishResult{NoChange: resp.Edit.NoChange}
	if resp.Edit.NewRevID != 0 {
		res.NewRevisionID = strconv.FormatInt(resp.Edit.NewRevID, 10)
	} else {
		res.NewRevisionID = e.BaseRevisionID
	}
	return res, nil
}
