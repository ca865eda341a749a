package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/elanexo/audio-backend/internal/domain"
	memstore "github.com/elanexo/audio-backend/internal/storage/memory"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:msgsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.AudioMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*MessageService, *memstore.Backend) {
	t.Helper()
	blobs := memstore.New()
	return &MessageService{DB: newTestDB(t), Blobs: blobs}, blobs
}

func mustCreate(t *testing.T, svc *MessageService, sender, recipient, filename string, data []byte) *domain.AudioMessage {
	t.Helper()
	m, err := svc.Create(context.Background(), CreateInput{
		Sender:    sender,
		Recipient: recipient,
		Filename:  filename,
		Data:      data,
	})
	if err != nil {
		t.Fatalf("Create(%q): %v", filename, err)
	}
	return m
}

func TestCreate_MeasuresSizeAndKeepsName(t *testing.T) {
	svc, blobs := newTestService(t)

	payload := make([]byte, 1000)
	m := mustCreate(t, svc, "alice", "bob", "note.mp3", payload)

	if m.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if m.Filename != "note.mp3" {
		t.Fatalf("filename = %q, want note.mp3", m.Filename)
	}
	if m.FileSize != 1000 {
		t.Fatalf("file_size = %d, want 1000", m.FileSize)
	}
	if m.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
	if ok, _ := blobs.Exists(context.Background(), "note.mp3"); !ok {
		t.Fatal("blob not written")
	}
}

func TestCreate_CollidingNamesGetDistinctFilenames(t *testing.T) {
	svc, _ := newTestService(t)

	m1 := mustCreate(t, svc, "alice", "bob", "note.mp3", []byte("one"))
	m2 := mustCreate(t, svc, "alice", "bob", "note.mp3", []byte("two"))

	if m1.Filename != "note.mp3" || m2.Filename != "note_1.mp3" {
		t.Fatalf("filenames = %q, %q; want note.mp3, note_1.mp3", m1.Filename, m2.Filename)
	}

	// Both blobs resolvable with their own content.
	for _, tc := range []struct {
		name string
		want string
	}{{m1.Filename, "one"}, {m2.Filename, "two"}} {
		rc, _, err := svc.Media(context.Background(), tc.name)
		if err != nil {
			t.Fatalf("Media(%q): %v", tc.name, err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if string(got) != tc.want {
			t.Fatalf("Media(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, blobs := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		in   CreateInput
		want error
	}{
		{CreateInput{Recipient: "bob", Filename: "a.mp3"}, ErrMissingSender},
		{CreateInput{Sender: "alice", Filename: "a.mp3"}, ErrMissingRecipient},
		{CreateInput{Sender: "alice", Recipient: "bob"}, ErrMissingFile},
		{CreateInput{Sender: "alice", Recipient: "bob", Filename: "evil.exe"}, ErrUnsupportedFormat},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Errorf("Create(%+v) err = %v, want %v", tc.in, err, tc.want)
		}
	}

	// A rejected create must leave neither blob nor row behind.
	if ok, _ := blobs.Exists(ctx, "evil.exe"); ok {
		t.Fatal("rejected upload left a blob behind")
	}
	items, err := svc.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("rejected creates left %d rows behind", len(items))
	}
}

func TestCreate_NameExhaustion(t *testing.T) {
	svc, blobs := newTestService(t)
	ctx := context.Background()

	// Occupy the original name and every numbered candidate.
	for n := 0; n <= maxNameAttempts; n++ {
		if _, err := blobs.WriteExclusive(ctx, candidateName("full.mp3", n), strings.NewReader("x")); err != nil {
			t.Fatalf("seed %d: %v", n, err)
		}
	}

	_, err := svc.Create(ctx, CreateInput{
		Sender: "alice", Recipient: "bob", Filename: "full.mp3", Data: []byte("y"),
	})
	if !errors.Is(err, ErrNameExhausted) {
		t.Fatalf("expected ErrNameExhausted, got %v", err)
	}
}

func TestCreate_InsertFailureRemovesBlob(t *testing.T) {
	svc, blobs := newTestService(t)
	ctx := context.Background()

	// A row already owns the filename while the blob store key is free, so
	// the blob write succeeds and the insert hits the unique index.
	seed := domain.AudioMessage{Sender: "x", Recipient: "y", Filename: "taken.mp3", FileSize: 1}
	if err := svc.DB.Create(&seed).Error; err != nil {
		t.Fatalf("seed row: %v", err)
	}

	_, err := svc.Create(ctx, CreateInput{
		Sender: "alice", Recipient: "bob", Filename: "taken.mp3", Data: []byte("z"),
	})
	if err == nil {
		t.Fatal("expected insert failure")
	}

	if ok, _ := blobs.Exists(ctx, "taken.mp3"); ok {
		t.Fatal("blob not removed after insert failure")
	}

	// The seeded row is untouched and the name is still allocatable once
	// the conflicting row goes away.
	items, err := svc.List(ctx, ListFilter{})
	if err != nil || len(items) != 1 {
		t.Fatalf("rows = %d, err %v", len(items), err)
	}
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	m := mustCreate(t, svc, "alice", "bob", "note.mp3", []byte("x"))

	got, err := svc.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Sender != "alice" || got.Filename != "note.mp3" {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := svc.Get(ctx, 99999); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestList_Filters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, "alice", "bob", "a.mp3", []byte("1"))
	mustCreate(t, svc, "alice", "carol", "b.mp3", []byte("2"))
	mustCreate(t, svc, "dave", "bob", "c.mp3", []byte("3"))

	all, err := svc.List(ctx, ListFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("unfiltered = %d items, err %v", len(all), err)
	}

	bySender, _ := svc.List(ctx, ListFilter{Sender: "alice"})
	if len(bySender) != 2 {
		t.Fatalf("sender=alice = %d items, want 2", len(bySender))
	}
	for _, m := range bySender {
		if m.Sender != "alice" {
			t.Fatalf("filter leaked sender %q", m.Sender)
		}
	}

	both, _ := svc.List(ctx, ListFilter{Sender: "alice", Recipient: "bob"})
	if len(both) != 1 || both[0].Filename != "a.mp3" {
		t.Fatalf("AND filter = %+v", both)
	}

	none, err := svc.List(ctx, ListFilter{Sender: "nobody"})
	if err != nil || len(none) != 0 {
		t.Fatalf("no-match list = %v items, err %v", len(none), err)
	}
}

func TestUpdate_MetadataOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	m := mustCreate(t, svc, "alice", "bob", "note.mp3", []byte("x"))

	sender := "eve"
	dur := "12.5"
	got, err := svc.Update(ctx, m.ID, UpdatePatch{Sender: &sender, Duration: &dur})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Sender != "eve" || got.Recipient != "bob" {
		t.Fatalf("unexpected metadata: %+v", got)
	}
	if got.Duration == nil || *got.Duration != 12.5 {
		t.Fatalf("duration = %v, want 12.5", got.Duration)
	}
	if got.Filename != "note.mp3" || got.FileSize != 1 {
		t.Fatalf("file fields changed: %+v", got)
	}

	// Persisted too, not only in the returned value.
	reread, _ := svc.Get(ctx, m.ID)
	if reread.Sender != "eve" || reread.Duration == nil {
		t.Fatalf("update not persisted: %+v", reread)
	}
}

func TestUpdate_ReplacesFile(t *testing.T) {
	svc, blobs := newTestService(t)
	ctx := context.Background()

	m := mustCreate(t, svc, "alice", "bob", "old.mp3", []byte("old"))

	got, err := svc.Update(ctx, m.ID, UpdatePatch{
		File: &FileUpload{Name: "new.wav", Data: []byte("fresh")},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Filename != "new.wav" || got.FileSize != 5 {
		t.Fatalf("replacement not applied: %+v", got)
	}
	if ok, _ := blobs.Exists(ctx, "old.mp3"); ok {
		t.Fatal("old blob not removed")
	}
	if ok, _ := blobs.Exists(ctx, "new.wav"); !ok {
		t.Fatal("new blob missing")
	}
}

func TestUpdate_IgnoresDisallowedReplacement(t *testing.T) {
	svc, blobs := newTestService(t)
	ctx := context.Background()

	m := mustCreate(t, svc, "alice", "bob", "note.mp3", []byte("keep"))

	sender := "eve"
	got, err := svc.Update(ctx, m.ID, UpdatePatch{
		Sender: &sender,
		File:   &FileUpload{Name: "virus.exe", Data: []byte("nope")},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Sender != "eve" {
		t.Fatalf("sender not applied: %+v", got)
	}
	if got.Filename != "note.mp3" || got.FileSize != 4 {
		t.Fatalf("disallowed file replaced blob: %+v", got)
	}
	if ok, _ := blobs.Exists(ctx, "note.mp3"); !ok {
		t.Fatal("original blob gone")
	}
}

func TestUpdate_InvalidDurationFailsBeforeSideEffects(t *testing.T) {
	svc, blobs := newTestService(t)
	ctx := context.Background()

	m := mustCreate(t, svc, "alice", "bob", "note.mp3", []byte("keep"))

	sender := "eve"
	bad := "not-a-number"
	_, err := svc.Update(ctx, m.ID, UpdatePatch{
		Sender:   &sender,
		Duration: &bad,
		File:     &FileUpload{Name: "new.wav", Data: []byte("fresh")},
	})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	// Nothing persisted, nothing touched in the store.
	reread, _ := svc.Get(ctx, m.ID)
	if reread.Sender != "alice" || reread.Filename != "note.mp3" {
		t.Fatalf("failed update leaked changes: %+v", reread)
	}
	if ok, _ := blobs.Exists(ctx, "note.mp3"); !ok {
		t.Fatal("old blob was deleted despite validation failure")
	}
	if ok, _ := blobs.Exists(ctx, "new.wav"); ok {
		t.Fatal("new blob was written despite validation failure")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Update(context.Background(), 404, UpdatePatch{}); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestDelete_RemovesRowAndBlob(t *testing.T) {
	svc, blobs := newTestService(t)
	ctx := context.Background()

	m := mustCreate(t, svc, "alice", "bob", "note.mp3", []byte("x"))

	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, m.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound after delete, got %v", err)
	}
	if _, _, err := svc.Media(ctx, "note.mp3"); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound after delete, got %v", err)
	}
	if ok, _ := blobs.Exists(ctx, "note.mp3"); ok {
		t.Fatal("blob survived delete")
	}
}

func TestDelete_ToleratesMissingBlob(t *testing.T) {
	svc, blobs := newTestService(t)
	ctx := context.Background()

	m := mustCreate(t, svc, "alice", "bob", "note.mp3", []byte("x"))
	if err := blobs.Delete(ctx, "note.mp3"); err != nil {
		t.Fatalf("pre-delete blob: %v", err)
	}

	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete with missing blob: %v", err)
	}
	if _, err := svc.Get(ctx, m.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("row survived delete: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.Delete(context.Background(), 404); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestMedia_RejectsTraversal(t *testing.T) {
	svc, _ := newTestService(t)
	for _, name := range []string{"../secret", "a/b.mp3", "..", ""} {
		if _, _, err := svc.Media(context.Background(), name); !errors.Is(err, ErrMediaNotFound) {
			t.Errorf("Media(%q) err = %v, want ErrMediaNotFound", name, err)
		}
	}
}
