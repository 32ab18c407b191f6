package query

import (
	"errors"
	"testing"

	"github.com/maruel/portalemu/internal/store"
)

func TestFuture(t *testing.T) {
	s := newTestStore(t)
	b := From(s, "enrollments").Insert(store.Record{"employee": "Async"})
	f := b.Async(t.Context())
	<-f.Done()
	res, err := f.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows()) != 1 || s.Len("enrollments") != 4 {
		t.Errorf("rows = %v, len = %d", res.Rows(), s.Len("enrollments"))
	}
	if _, err := b.Async(t.Context()).Wait(); !errors.Is(err, ErrBuilderConsumed) {
		t.Errorf("err = %v", err)
	}
	if s.Len("enrollments") != 4 {
		t.Errorf("len = %d", s.Len("enrollments"))
	}
}
