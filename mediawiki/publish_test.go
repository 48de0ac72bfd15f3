package mediawiki

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

// publishWiki wires the query handler CheckAndPublish needs: a revision
// lookup and a csrf token, both arriving as action=query.
func publishWiki(t *testing.T, currentRev string) (*fakeWiki, *Client) {
	fw, client := newFakeWiki(t)
	fw.on("query", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("meta") == "tokens" {
			w.Write([]byte(`{"query":{"tokens":{"csrftoken":"tok+\\"}}}`))
			return
		}
		w.Write([]byte(`{"query":{"pages":[{"title":"T","revisions":[{"revid":` + currentRev + `}]}]}}`))
	})
	return fw, client
}

func TestCheckAndPublishSuccess(t *testing.T) {
	fw, client := publishWiki(t, "5")
	fw.on("edit", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("baserevid") != "5" {
			t.Errorf("baserevid = %q", r.FormValue("baserevid"))
		}
		if r.FormValue("nocreate") != "1" {
			t.Error("existing-page edits must set nocreate")
		}
		if r.FormValue("token") == "" {
			t.Error("edit without csrf token")
		}
		w.Write([]byte(`{"edit":{"result":"Success","newrevid":6}}`))
	})

	res, err := client.CheckAndPublish(context.Background(), Edit{
		Title:          "T",
		BaseRevisionID: "5",
		Text:           "new text",
		Summary:        "update",
	})
	if err != nil {
		t.Fatalf("CheckAndPublish: %v", err)
	}
	if res.NewRevisionID != "6" || res.NoChange {
		t.Errorf("res = %+v", res)
	}
}

func TestCheckAndPublishConflictBeforeWrite(t *testing.T) {
	// Draft based on revision 5, remote already at 7: the publish must be
	// refused locally and no edit request may reach the server.
	fw, client := publishWiki(t, "7")

	_, err := client.CheckAndPublish(context.Background(), Edit{
		Title:          "T",
		BaseRevisionID: "5",
		Text:           "stale text",
	})

	var conflict *EditConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want *EditConflictError", err)
	}
	if conflict.BaseRevisionID != "5" || conflict.CurrentRevision != "7" {
		t.Errorf("conflict = %+v", conflict)
	}
	if fw.count("edit") != 0 {
		t.Errorf("edit was submitted despite the conflict: %v", fw.requests)
	}
}

func TestCheckAndPublishServerSideConflict(t *testing.T) {
	// The revision check passes but another writer slips in before the
	// save; the server's editconflict must map to the same error type.
	fw, client := publishWiki(t, "5")
	fw.on("edit", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":"editconflict","info":"Edit conflict detected"}}`))
	})

	_, err := client.CheckAndPublish(context.Background(), Edit{
		Title:          "T",
		BaseRevisionID: "5",
		Text:           "x",
	})
	var conflict *EditConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want *EditConflictError", err)
	}
}

func TestCheckAndPublishRejected(t *testing.T) {
	fw, client := publishWiki(t, "5")
	fw.on("edit", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":"protectedpage","info":"This page is protected"}}`))
	})

	_, err := client.CheckAndPublish(context.Background(), Edit{
		Title:          "T",
		BaseRevisionID: "5",
		Text:           "x",
	})
	var rejected *PublishRejectedError
	if !errors.As(err, &rejected) || rejected.Code != "protectedpage" {
		t.Fatalf("err = %v, want *PublishRejectedError", err)
	}
}

func TestCheckAndPublishUnknownOutcome(t *testing.T) {
	// The edit POST dies mid-flight: the caller must be told the outcome
	// is indeterminate, not that the edit failed.
	fw, client := publishWiki(t, "5")
	fw.on("edit", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"edit":{"result":`)) // truncated JSON
	})

	_, err := client.CheckAndPublish(context.Background(), Edit{
		Title:          "T",
		BaseRevisionID: "5",
		Text:           "x",
	})
	var unknown *PublishUnknownError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want *PublishUnknownError", err)
	}
}

func TestCheckAndPublishRevisionCheckFailureIsPlain(t *testing.T) {
	// A failure before any write attempt must not be classified as an
	// unknown outcome; nothing was submitted.
	fw, client := newFakeWiki(t)
	fw.on("query", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	_, err := client.CheckAndPublish(context.Background(), Edit{
		Title:          "T",
		BaseRevisionID: "5",
		Text:           "x",
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	var unknown *PublishUnknownError
	if errors.As(err, &unknown) {
		t.Errorf("pre-write failure misclassified as unknown outcome: %v", err)
	}
	if fw.count("edit") != 0 {
		t.Error("edit submitted after a failed revision check")
	}
}

func TestCheckAndPublishNewPage(t *testing.T) {
	fw, client := newFakeWiki(t)
	fw.on("query", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("meta") != "tokens" {
			t.Error("new-page publish must not run a revision check")
		}
		w.Write([]byte(`{"query":{"tokens":{"csrftoken":"tok"}}}`))
	})
	fw.on("edit", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("createonly") != "1" {
			t.Error("new-page edits must set createonly")
		}
		if r.FormValue("baserevid") != "" || r.FormValue("nocreate") != "" {
			t.Error("new-page edits must not carry baserevid/nocreate")
		}
		w.Write([]byte(`{"edit":{"result":"Success","newrevid":1}}`))
	})

	res, err := client.CheckAndPublish(context.Background(), Edit{
		Title: "Nueva",
		Text:  "contenido",
	})
	if err != nil {
		t.Fatalf("CheckAndPublish: %v", err)
	}
	if res.NewRevisionID != "1" {
		t.Errorf("res = %+v", res)
	}
}

func TestCheckAndPublishNoChange(t *testing.T) {
	fw, client := publishWiki(t, "5")
	fw.on("edit", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"edit":{"result":"Success","nochange":true}}`))
	})

	res, err := client.CheckAndPublish(context.Background(), Edit{
		Title:          "T",
		BaseRevisionID: "5",
		Text:           "same text",
	})
	if err != nil {
		t.Fatalf("CheckAndPublish: %v", err)
	}
	if !res.NoChange {
		t.Error("NoChange not reported")
	}
	if res.NewRevisionID != "5" {
		t.Errorf("no-change publish should keep the base revision: %q", res.NewRevisionID)
	}
}

func TestEditConflictErrorMessage(t *testing.T) {
	err := &EditConflictError{Title: "T", BaseRevisionID: "5", CurrentRevision: "7"}
	for _, want := range []string{"T", "5", "7"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("message %q missing %q", err.Error(), want)
		}
	}
}
