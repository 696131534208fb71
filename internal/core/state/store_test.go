package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/integraldb/internal/models"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "ingest_state.json"), nil)

	st := store.Load()
	require.NotNil(t, st)
	assert.Equal(t, 0, st.Len())
}

func TestLoad_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingest_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	st := NewStore(path, nil).Load()
	assert.Equal(t, 0, st.Len())
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ingest_state.json")
	store := NewStore(path, nil)

	st := NewState()
	st.Put(models.OriginMail, "m1:a1", Entry{Name: "invoice.pdf", Fingerprint: "m1:a1", Uploaded: true})
	st.Put(models.OriginDrive, "f1", Entry{Name: "plan.pdf", Fingerprint: "2024-01-01T00:00:00Z"})
	require.NoError(t, store.Save(st))

	got := store.Load()
	assert.Equal(t, 2, got.Len())

	e, ok := got.Get(models.OriginMail, "m1:a1")
	require.True(t, ok)
	assert.True(t, e.Uploaded)
	assert.Equal(t, "invoice.pdf", e.Name)

	e, ok = got.Get(models.OriginDrive, "f1")
	require.True(t, ok)
	assert.False(t, e.Uploaded)
	assert.Equal(t, "2024-01-01T00:00:00Z", e.Fingerprint)

	assert.True(t, got.IsUploaded("invoice.pdf"))
	assert.False(t, got.IsUploaded("plan.pdf"))
}

func TestSave_TopLevelLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingest_state.json")
	store := NewStore(path, nil)

	st := NewState()
	st.Put(models.OriginDrive, "f1", Entry{Name: "b.pdf", Fingerprint: "t1", Uploaded: true})
	st.Put(models.OriginDrive, "f2", Entry{Name: "a.pdf", Fingerprint: "t2", Uploaded: true})
	require.NoError(t, store.Save(st))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "emails")
	assert.Contains(t, doc, "drive")
	assert.Contains(t, doc, "uploaded")

	var uploaded []string
	require.NoError(t, json.Unmarshal(doc["uploaded"], &uploaded))
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, uploaded)
}

func TestLoad_LegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingest_state.json")
	legacy := `{
	  "drive": {"f1": {"name": "Plan", "modifiedTime": "2024-05-01T10:00:00.000Z", "path": "attachments/Plan.pdf"}},
	  "emails": {"m1:a1": "attachments/invoice.pdf"},
	  "uploaded": ["invoice.pdf"]
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	st := NewStore(path, nil).Load()

	mail, ok := st.Get(models.OriginMail, "m1:a1")
	require.True(t, ok)
	assert.Equal(t, "m1:a1", mail.Fingerprint)
	assert.Equal(t, "invoice.pdf", mail.Name)
	assert.Equal(t, "attachments/invoice.pdf", mail.Path)
	assert.True(t, mail.Uploaded)

	drv, ok := st.Get(models.OriginDrive, "f1")
	require.True(t, ok)
	assert.Equal(t, "2024-05-01T10:00:00.000Z", drv.Fingerprint)
	assert.Equal(t, "Plan.pdf", drv.Name)
	assert.False(t, drv.Uploaded)
}

func TestSave_ConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingest_state.json")
	store := NewStore(path, nil)
	st := NewState()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			st.Put(models.OriginDrive, id, Entry{Name: id + ".pdf", Fingerprint: "t"})
			assert.NoError(t, store.Save(st))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, store.Load().Len())
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingest_state.json")
	store := NewStore(path, nil)
	st := NewState()
	st.Put(models.OriginDrive, "f1", Entry{Name: "x.pdf", Fingerprint: "t"})
	require.NoError(t, store.Save(st))

	require.NoError(t, store.Reset())
	require.NoError(t, store.Reset())
	assert.Equal(t, 0, store.Load().Len())
}

func TestPut_NotUploadedDropsName(t *testing.T) {
	st := NewState()
	st.Put(models.OriginDrive, "f1", Entry{Name: "plan.pdf", Fingerprint: "t1", Uploaded: true})
	require.True(t, st.IsUploaded("plan.pdf"))

	st.Put(models.OriginDrive, "f1", Entry{Name: "plan.pdf", Fingerprint: "t2", Unreadable: true})
	assert.False(t, st.IsUploaded("plan.pdf"))

	path := filepath.Join(t.TempDir(), "ingest_state.json")
	require.NoError(t, NewStore(path, nil).Save(st))
	assert.False(t, NewStore(path, nil).Load().IsUploaded("plan.pdf"))
}

func TestPut_SharedNameStaysUploaded(t *testing.T) {
	st := NewState()
	st.Put(models.OriginMail, "m1:a1", Entry{Name: "report.pdf", Fingerprint: "m1:a1", Uploaded: true})
	st.Put(models.OriginDrive, "f1", Entry{Name: "report.pdf", Fingerprint: "t1", Uploaded: true})

	st.Put(models.OriginDrive, "f1", Entry{Name: "report.pdf", Fingerprint: "t2", Unreadable: true})
	assert.True(t, st.IsUploaded("report.pdf"))
}

func TestPut_RenameDropsOldName(t *testing.T) {
	st := NewState()
	st.Put(models.OriginDrive, "f1", Entry{Name: "old.pdf", Fingerprint: "t1", Uploaded: true})
	st.Put(models.OriginDrive, "f1", Entry{Name: "new.pdf", Fingerprint: "t2", Uploaded: true})

	assert.False(t, st.IsUploaded("old.pdf"))
	assert.True(t, st.IsUploaded("new.pdf"))
}
