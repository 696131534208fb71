package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/markdave123-py/integraldb/internal/core"
	"github.com/markdave123-py/integraldb/internal/models"
)

type fakeGmail struct {
	pages       map[string]*gmailapi.ListMessagesResponse // keyed by page token
	messages    map[string]*gmailapi.Message
	attachments map[string]string // attachment id -> raw bytes
	listCalls   atomic.Int32
	failList    bool
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.Contains(path, "/attachments/"):
		id := path[strings.LastIndex(path, "/")+1:]
		raw, ok := f.attachments[id]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(gmailapi.MessagePartBody{
			Data: base64.URLEncoding.EncodeToString([]byte(raw)),
			Size: int64(len(raw)),
		})
	case strings.HasSuffix(path, "/messages"):
		f.listCalls.Add(1)
		if f.failList {
			http.Error(w, `{"error":{"code":503,"message":"unavailable"}}`, http.StatusServiceUnavailable)
			return
		}
		page, ok := f.pages[r.URL.Query().Get("pageToken")]
		if !ok {
			page = &gmailapi.ListMessagesResponse{}
		}
		_ = json.NewEncoder(w).Encode(page)
	case strings.Contains(path, "/messages/"):
		id := path[strings.LastIndex(path, "/")+1:]
		msg, ok := f.messages[id]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(msg)
	default:
		http.NotFound(w, r)
	}
}

func newTestLister(t *testing.T, f *fakeGmail, cfg Config) *Lister {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	svc, err := gmailapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewLister(svc, cfg, nil)
}

func pdfPart(filename, attID string) *gmailapi.MessagePart {
	return &gmailapi.MessagePart{
		MimeType: "application/pdf",
		Filename: filename,
		Body:     &gmailapi.MessagePartBody{AttachmentId: attID},
	}
}

func TestList_OnlyPDFAttachments(t *testing.T) {
	f := &fakeGmail{
		pages: map[string]*gmailapi.ListMessagesResponse{
			"": {Messages: []*gmailapi.Message{{Id: "m1"}, {Id: "m2"}}},
		},
		messages: map[string]*gmailapi.Message{
			"m1": {Id: "m1", Payload: &gmailapi.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: "aGk"}},
					pdfPart("Invoice.PDF", "a1"),
					{MimeType: "image/png", Filename: "logo.png", Body: &gmailapi.MessagePartBody{AttachmentId: "a2"}},
				},
			}},
			"m2": {Id: "m2", Payload: &gmailapi.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "multipart/alternative", Parts: []*gmailapi.MessagePart{pdfPart("nested.pdf", "a3")}},
				},
			}},
		},
	}
	l := newTestLister(t, f, Config{MaxResults: 10})

	recs, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, models.SourceRecord{
		Origin:      models.OriginMail,
		Identity:    "m1:a1",
		DisplayName: "Invoice.PDF",
		Fingerprint: "m1:a1",
		ContentType: "application/pdf",
	}, recs[0])
	assert.Equal(t, "m2:a3", recs[1].Identity)
	assert.Equal(t, "nested.pdf", recs[1].DisplayName)
}

func TestList_PaginatesUpToMaxResults(t *testing.T) {
	f := &fakeGmail{
		pages: map[string]*gmailapi.ListMessagesResponse{
			"":   {Messages: []*gmailapi.Message{{Id: "m1"}, {Id: "m2"}}, NextPageToken: "p2"},
			"p2": {Messages: []*gmailapi.Message{{Id: "m3"}, {Id: "m4"}}, NextPageToken: "p3"},
			"p3": {Messages: []*gmailapi.Message{{Id: "m5"}}},
		},
		messages: map[string]*gmailapi.Message{},
	}
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		f.messages[id] = &gmailapi.Message{Id: id, Payload: &gmailapi.MessagePart{
			Parts: []*gmailapi.MessagePart{pdfPart(id+".pdf", "a")},
		}}
	}
	l := newTestLister(t, f, Config{MaxResults: 3})

	recs, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "m3:a", recs[2].Identity)
	assert.EqualValues(t, 2, f.listCalls.Load())
}

func TestList_SkipsUnreadableMessage(t *testing.T) {
	f := &fakeGmail{
		pages: map[string]*gmailapi.ListMessagesResponse{
			"": {Messages: []*gmailapi.Message{{Id: "gone"}, {Id: "m1"}}},
		},
		messages: map[string]*gmailapi.Message{
			"m1": {Id: "m1", Payload: &gmailapi.MessagePart{Parts: []*gmailapi.MessagePart{pdfPart("a.pdf", "x")}}},
		},
	}
	l := newTestLister(t, f, Config{})

	recs, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "m1:x", recs[0].Identity)
}

func TestList_PageFailureIsSourceListError(t *testing.T) {
	l := newTestLister(t, &fakeGmail{failList: true}, Config{})

	_, err := l.List(context.Background())
	assert.ErrorIs(t, err, core.ErrSourceList)
}

func TestFetch(t *testing.T) {
	f := &fakeGmail{attachments: map[string]string{"a1": "%PDF-1.4 body"}}
	l := newTestLister(t, f, Config{})

	data, err := l.Fetch(context.Background(), models.SourceRecord{Identity: "m1:a1", DisplayName: "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))

	_, err = l.Fetch(context.Background(), models.SourceRecord{Identity: "m1:missing", DisplayName: "b.pdf"})
	assert.ErrorIs(t, err, core.ErrFetch)

	_, err = l.Fetch(context.Background(), models.SourceRecord{Identity: "no-colon"})
	assert.ErrorIs(t, err, core.ErrFetch)
}

func TestDecodeData(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0x01}
	padded := base64.URLEncoding.EncodeToString(raw)
	unpadded := base64.RawURLEncoding.EncodeToString(raw)

	got, err := decodeData(padded)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = decodeData(unpadded)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}
