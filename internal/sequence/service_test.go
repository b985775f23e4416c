package sequence

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/groundstation/servo/internal/apierr"
	"github.com/groundstation/servo/internal/store"
)

type fakeDispatcher struct {
	name, script string
	calls        int
	err          error
}

func (d *fakeDispatcher) SendSequence(name, script string) error {
	d.name, d.script = name, script
	d.calls++
	return d.err
}

func newTestService(t *testing.T) (*Service, *fakeDispatcher) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	dispatcher := &fakeDispatcher{}
	return New(st, dispatcher), dispatcher
}

func TestSaveDecodesAndValidatesUTF8(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	script := base64.StdEncoding.EncodeToString([]byte("BBV.open()"))
	if err := svc.Save(ctx, "open-bbv", nil, script); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sequences, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sequences) != 1 || sequences[0].Script != "BBV.open()" {
		t.Fatalf("List = %+v, want one decoded sequence", sequences)
	}
}

func TestSaveRejectsInvalidBase64(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Save(context.Background(), "bad", nil, "not-valid-base64!!!")
	if apierr.KindOf(err) != apierr.BadRequest {
		t.Fatalf("Save(invalid base64) kind = %v, want BadRequest", apierr.KindOf(err))
	}
}

func TestSaveRejectsNonUTF8Script(t *testing.T) {
	svc, _ := newTestService(t)
	invalid := base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0xfd})
	err := svc.Save(context.Background(), "bad", nil, invalid)
	if apierr.KindOf(err) != apierr.BadRequest {
		t.Fatalf("Save(non-UTF8) kind = %v, want BadRequest", apierr.KindOf(err))
	}
}

func TestSaveUpsertsByName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := base64.StdEncoding.EncodeToString([]byte("first"))
	second := base64.StdEncoding.EncodeToString([]byte("second"))

	if err := svc.Save(ctx, "seq", nil, first); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if err := svc.Save(ctx, "seq", nil, second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	sequences, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sequences) != 1 {
		t.Fatalf("got %d sequences, want 1 (upsert should not duplicate)", len(sequences))
	}
	if sequences[0].Script != "second" {
		t.Errorf("Script = %q, want %q", sequences[0].Script, "second")
	}
}

func TestDeleteNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Delete(context.Background(), "missing")
	if apierr.KindOf(err) != apierr.NotFound {
		t.Fatalf("Delete(missing) kind = %v, want NotFound", apierr.KindOf(err))
	}
}

func TestRunDispatchesStoredScript(t *testing.T) {
	svc, dispatcher := newTestService(t)
	ctx := context.Background()

	script := base64.StdEncoding.EncodeToString([]byte("BBV.close()"))
	if err := svc.Save(ctx, "close-bbv", nil, script); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := svc.Run(ctx, "close-bbv", true); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if dispatcher.calls != 1 || dispatcher.name != "close-bbv" || dispatcher.script != "BBV.close()" {
		t.Errorf("dispatcher state = %+v, want one call with close-bbv/BBV.close()", dispatcher)
	}
}

func TestRunUnknownSequence(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Run(context.Background(), "missing", false)
	if apierr.KindOf(err) != apierr.BadRequest {
		t.Fatalf("Run(missing) kind = %v, want BadRequest", apierr.KindOf(err))
	}
}
